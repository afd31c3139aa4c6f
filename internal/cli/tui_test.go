package cli

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func sampleReports(n int) []bundleReport {
	out := make([]bundleReport, n)
	for i := range out {
		out[i] = bundleReport{
			Path:  string(rune('1' + i)),
			Type:  "FriendlyPipeOut",
			Kind:  "consumer",
			State: "resolved",
			Slots: []slotReport{{Index: 1, Name: "seed", Type: "INT"}},
		}
	}
	return out
}

func press(m BundleListModel, keys ...string) BundleListModel {
	for _, k := range keys {
		next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)})
		m = next.(BundleListModel)
	}
	return m
}

func TestBundleListNavigation(t *testing.T) {
	m := NewBundleListModel("pipe.json", sampleReports(5))
	m.Height = 2

	tests := []struct {
		name       string
		keys       []string
		wantCursor int
		wantOffset int
	}{
		{"up at top stays", []string{"k"}, 0, 0},
		{"down once", []string{"j"}, 1, 0},
		{"down scrolls", []string{"j", "j"}, 2, 1},
		{"down stops at end", []string{"j", "j", "j", "j", "j", "j"}, 4, 3},
		{"last", []string{"G"}, 4, 3},
		{"last then first", []string{"G", "g"}, 0, 0},
		{"up scrolls back", []string{"G", "k", "k", "k"}, 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := press(m, tt.keys...)
			if got.Cursor != tt.wantCursor || got.Offset != tt.wantOffset {
				t.Errorf("cursor, offset = %d, %d, want %d, %d", got.Cursor, got.Offset, tt.wantCursor, tt.wantOffset)
			}
		})
	}
}

func TestBundleListQuit(t *testing.T) {
	m := NewBundleListModel("pipe.json", sampleReports(1))
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("q should return a command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should quit")
	}
}

func TestBundleListWindowSize(t *testing.T) {
	m := NewBundleListModel("pipe.json", nil)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 30})
	if got := next.(BundleListModel).Height; got != 24 {
		t.Errorf("Height = %d, want 24", got)
	}
	next, _ = m.Update(tea.WindowSizeMsg{Width: 80, Height: 4})
	if got := next.(BundleListModel).Height; got != 5 {
		t.Errorf("Height = %d, want 5", got)
	}
}

func TestBundleListView(t *testing.T) {
	reports := sampleReports(2)
	reports[1].Title = "Unpack"
	reports[1].Slots = []slotReport{{Index: 1, Name: "model", Type: "MODEL", Source: "7"}}

	m := press(NewBundleListModel("pipe.json", reports), "j")
	view := m.View()
	for _, want := range []string{"pipe.json", "Unpack", "model", "MODEL", "[2/2]"} {
		if !strings.Contains(view, want) {
			t.Errorf("View() missing %q:\n%s", want, view)
		}
	}
}

func TestBundleListViewEmpty(t *testing.T) {
	view := NewBundleListModel("empty.json", nil).View()
	if !strings.Contains(view, "No bundle nodes") {
		t.Errorf("View() = %q, want empty notice", view)
	}
}
