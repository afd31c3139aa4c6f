package pipe

import (
	"encoding/json"
	"maps"

	"github.com/matzehuels/friendlypipe/pkg/graph"
)

// Persisted field names of the bundle nodes.
const (
	keySlotCount            = "slotCount"
	keySlotNames            = "slotNames"
	keySlotTypes            = "slotTypes"
	keyIncomingSlotCount    = "incomingSlotCount"
	keyExposedIncomingSlots = "exposedIncomingSlots"
)

// nodeState is the persisted payload of a bundle node. Fields are pointers
// or nil maps when absent from the saved workflow.
type nodeState struct {
	SlotCount            *int           `json:"slotCount,omitempty"`
	SlotNames            map[int]string `json:"slotNames,omitempty"`
	SlotTypes            map[int]string `json:"slotTypes,omitempty"`
	IncomingSlotCount    *int           `json:"incomingSlotCount,omitempty"`
	ExposedIncomingSlots map[int]bool   `json:"exposedIncomingSlots,omitempty"`
}

// decodeState reads the persisted fields out of a node's extra payload.
// Decoding is best effort: a malformed field is treated as absent so that a
// damaged workflow still loads with default layouts.
func decodeState(extra map[string]any) nodeState {
	var st nodeState
	for _, key := range []string{keySlotCount, keySlotNames, keySlotTypes, keyIncomingSlotCount, keyExposedIncomingSlots} {
		v, ok := extra[key]
		if !ok {
			continue
		}
		raw, err := json.Marshal(map[string]any{key: v})
		if err != nil {
			continue
		}
		_ = json.Unmarshal(raw, &st)
	}
	return st
}

func encodeSlots(extra map[string]any, count int, names, types map[int]string) {
	extra[keySlotCount] = count
	extra[keySlotNames] = maps.Clone(names)
	extra[keySlotTypes] = maps.Clone(types)
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}

func cloneSources(m map[int]*graph.Node) map[int]*graph.Node {
	out := make(map[int]*graph.Node, len(m))
	maps.Copy(out, m)
	return out
}
