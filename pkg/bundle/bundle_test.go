package bundle

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseNames(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want map[int]string
	}{
		{"string keys", `{"1":"model","2":"clip"}`, map[int]string{1: "model", 2: "clip"}},
		{"padded keys", `{" 3 ":"vae"}`, map[int]string{3: "vae"}},
		{"non-numeric keys dropped", `{"x":"a","0":"b","-1":"c","4":"d"}`, map[int]string{4: "d"}},
		{"number values stringified", `{"1":7}`, map[int]string{1: "7"}},
		{"null values dropped", `{"1":null}`, map[int]string{}},
		{"malformed", `{not json`, map[int]string{}},
		{"empty", ``, map[int]string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseNames(tt.in))
		})
	}
}

func TestFormatNamesRoundTrip(t *testing.T) {
	names := map[int]string{10: "ten", 2: "two", 1: `quo"te`}
	s := FormatNames(names)
	assert.Equal(t, `{"1":"quo\"te","2":"two","10":"ten"}`, s)
	assert.Equal(t, names, ParseNames(s))
	assert.Equal(t, "{}", FormatNames(nil))
}

func TestPack(t *testing.T) {
	b := Pack(3, `{"1":"model","3":"seed"}`, map[string]any{
		"slot_1":  "M",
		"slot_2":  nil,
		"slot_3":  42,
		"slot_81": "ignored",
	})
	assert.Equal(t, 3, b.SlotCount)
	assert.Equal(t, map[int]any{1: "M", 3: 42}, b.Slots)
	assert.Equal(t, "model", b.Name(1))
	assert.Equal(t, "slot_2", b.Name(2))
}

func TestUnpack(t *testing.T) {
	b := Pack(2, `{}`, map[string]any{"slot_1": "a", "slot_2": "b"})
	out := Unpack(b, MaxSlots)
	assert.Len(t, out, MaxSlots)
	assert.Equal(t, "a", out[0])
	assert.Equal(t, "b", out[1])
	assert.Nil(t, out[2])
}

func TestEdit(t *testing.T) {
	in := Pack(2, `{"1":"model","2":"clip"}`, map[string]any{"slot_1": "M", "slot_2": "C"})

	out := Edit(in, 2, `{"1":"vae"}`, map[string]any{
		"slot_1":          "V",
		"slot_2":          nil,
		"incoming_slot_2": "C2",
		"incoming_slot_5": "out of range",
	})

	assert.Equal(t, 4, out.SlotCount)
	assert.Equal(t, map[int]any{1: "M", 2: "C2", 3: "V"}, out.Slots)
	assert.Equal(t, map[int]string{1: "model", 2: "clip", 3: "vae"}, out.Names)

	// The incoming bundle is left untouched.
	assert.Equal(t, "C", in.Slots[2])
	assert.Equal(t, 2, in.SlotCount)
}

func TestEditChained(t *testing.T) {
	b := Pack(1, `{"1":"a"}`, map[string]any{"slot_1": 1})
	b = Edit(b, 1, `{"1":"b"}`, map[string]any{"slot_1": 2})
	b = Edit(b, 1, `{"1":"c"}`, map[string]any{"slot_1": 3})

	assert.Equal(t, 3, b.SlotCount)
	assert.Equal(t, []any{1, 2, 3}, Unpack(b, 3))
	assert.Equal(t, "c", b.Name(3))
}
