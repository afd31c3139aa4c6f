// Package bundle implements the backend value carried on FRIENDLY_PIPE
// links: a numbered set of slot values with display names.
//
// Slots are 1-based. A producer packs its slot_N inputs into a [Bundle], an
// editor appends its own slots after the incoming ones, and a consumer
// unpacks the bundle into a fixed row of outputs.
package bundle

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
)

// TypeName is the link type of bundle values.
const TypeName = "FRIENDLY_PIPE"

// MaxSlots is the number of slots a bundle node exposes to the backend.
const MaxSlots = 80

// Bundle is the value flowing through a FRIENDLY_PIPE link.
type Bundle struct {
	SlotCount int            `json:"slot_count"`
	Slots     map[int]any    `json:"slots"`
	Names     map[int]string `json:"names"`
}

// New returns an empty bundle with initialized maps.
func New(slotCount int) Bundle {
	return Bundle{
		SlotCount: slotCount,
		Slots:     map[int]any{},
		Names:     map[int]string{},
	}
}

// Get returns the value of slot i.
func (b Bundle) Get(i int) (any, bool) {
	v, ok := b.Slots[i]
	return v, ok
}

// Name returns the display name of slot i, falling back to "slot_i".
func (b Bundle) Name(i int) string {
	if n, ok := b.Names[i]; ok && n != "" {
		return n
	}
	return SlotKey(i)
}

// Clone returns a copy whose maps can be modified independently. Slot values
// themselves are shared.
func (b Bundle) Clone() Bundle {
	out := New(b.SlotCount)
	maps.Copy(out.Slots, b.Slots)
	maps.Copy(out.Names, b.Names)
	return out
}

// SlotKey returns the input name of slot i ("slot_i").
func SlotKey(i int) string { return "slot_" + strconv.Itoa(i) }

// IncomingKey returns the editor input name that overrides incoming slot i.
func IncomingKey(i int) string { return "incoming_slot_" + strconv.Itoa(i) }

// Pack builds a bundle from producer inputs. slotNames is the JSON name map
// the editor sends; values are read from inputs["slot_1"] through
// inputs["slot_80"] and nil values are skipped.
func Pack(slotCount int, slotNames string, inputs map[string]any) Bundle {
	b := New(slotCount)
	b.Names = ParseNames(slotNames)
	for i := 1; i <= MaxSlots; i++ {
		if v, ok := inputs[SlotKey(i)]; ok && v != nil {
			b.Slots[i] = v
		}
	}
	return b
}

// Unpack returns the bundle's values as a row of n outputs. Output i-1 holds
// slot i; missing slots are nil.
func Unpack(b Bundle, n int) []any {
	out := make([]any, n)
	for i := 1; i <= n; i++ {
		out[i-1] = b.Slots[i]
	}
	return out
}

// Edit appends an editor's own slots to the incoming bundle. Own slot i
// lands at in.SlotCount+i together with its name. Non-nil
// inputs["incoming_slot_N"] values replace incoming slot N. The incoming
// bundle is not modified.
func Edit(in Bundle, slotCount int, slotNames string, inputs map[string]any) Bundle {
	out := in.Clone()
	out.SlotCount = in.SlotCount + slotCount

	for i := 1; i <= in.SlotCount; i++ {
		if v, ok := inputs[IncomingKey(i)]; ok && v != nil {
			out.Slots[i] = v
		}
	}

	names := ParseNames(slotNames)
	for i := 1; i <= slotCount; i++ {
		idx := in.SlotCount + i
		if v, ok := inputs[SlotKey(i)]; ok && v != nil {
			out.Slots[idx] = v
		}
		if n, ok := names[i]; ok {
			out.Names[idx] = n
		}
	}
	return out
}

// ParseNames decodes a slot name map. Keys may be JSON strings holding
// integers ("1") or bare integers; other keys are ignored. Malformed input
// yields an empty map.
func ParseNames(s string) map[int]string {
	out := map[int]string{}
	var raw map[string]any
	if err := json.Unmarshal([]byte(s), &raw); err != nil {
		return out
	}
	for k, v := range raw {
		i, err := strconv.Atoi(strings.TrimSpace(k))
		if err != nil || i < 1 {
			continue
		}
		switch v := v.(type) {
		case string:
			out[i] = v
		case nil:
		default:
			out[i] = fmt.Sprint(v)
		}
	}
	return out
}

// FormatNames encodes a slot name map as JSON with keys in numeric order.
func FormatNames(names map[int]string) string {
	var sb strings.Builder
	sb.WriteByte('{')
	for n, i := range slices.Sorted(maps.Keys(names)) {
		if n > 0 {
			sb.WriteByte(',')
		}
		key, _ := json.Marshal(strconv.Itoa(i))
		val, _ := json.Marshal(names[i])
		sb.Write(key)
		sb.WriteByte(':')
		sb.Write(val)
	}
	sb.WriteByte('}')
	return sb.String()
}
