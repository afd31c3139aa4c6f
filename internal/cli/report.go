package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/friendlypipe/pkg/graph"
	"github.com/matzehuels/friendlypipe/pkg/pipe"
)

// bundleReport describes one bundle node after loading. It is printed by
// inspect and returned by POST /v1/layouts.
type bundleReport struct {
	Path  string       `json:"path"`
	Type  string       `json:"type"`
	Title string       `json:"title,omitempty"`
	Kind  string       `json:"kind"`
	State string       `json:"state,omitempty"`
	Slots []slotReport `json:"slots"`

	// Incoming is the number of leading slots an editor passes through from
	// its input bundle.
	Incoming int `json:"incoming,omitempty"`
}

type slotReport struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
	Type  string `json:"type"`

	// Source is the path of the node a nested bundle in this slot comes from.
	Source string `json:"source,omitempty"`
}

// collectBundles reports every bundle node of root and its nested graphs in
// walk order.
func collectBundles(root *graph.Graph) []bundleReport {
	var out []bundleReport
	root.Walk(func(n *graph.Node) bool {
		if r, ok := reportNode(n); ok {
			out = append(out, r)
		}
		return true
	})
	return out
}

func reportNode(n *graph.Node) (bundleReport, bool) {
	r := bundleReport{Path: n.Path(), Type: n.Type, Title: n.Title, Kind: n.Kind.String()}
	var l pipe.Layout
	switch h := n.Handler.(type) {
	case *pipe.PipeIn:
		l = h.Layout()
	case *pipe.PipeOut:
		l = h.Layout()
		r.State = h.State().String()
	case *pipe.PipeEdit:
		l = h.Layout()
		r.State = h.State().String()
		r.Incoming = h.IncomingCount()
	default:
		return r, false
	}
	r.Slots = make([]slotReport, 0, l.Count)
	for i := 1; i <= l.Count; i++ {
		s := slotReport{Index: i, Name: l.Name(i), Type: l.Type(i)}
		if src := l.Source(i); src != nil {
			s.Source = src.Path()
		}
		r.Slots = append(r.Slots, s)
	}
	return r, true
}

// formatSlot renders a slot as "name:TYPE", followed by "←path" when it
// carries a nested bundle.
func formatSlot(s slotReport) string {
	v := s.Name + ":" + s.Type
	if s.Source != "" {
		v += " ←" + s.Source
	}
	return v
}

func stateStyle(state string) lipgloss.Style {
	switch state {
	case pipe.Resolved.String():
		return StyleSuccess
	case pipe.Unresolved.String(), pipe.Disconnected.String():
		return StyleWarning
	default:
		return StyleDim
	}
}

// renderBundleTable renders reports as a table with one row per node.
func renderBundleTable(reports []bundleReport) string {
	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	rows := make([][]string, len(reports))
	for i, r := range reports {
		slots := make([]string, len(r.Slots))
		for j, s := range r.Slots {
			slots[j] = formatSlot(s)
		}
		label := r.Type
		if r.Title != "" && r.Title != r.Type {
			label = r.Title
		}
		rows[i] = []string{r.Path, label, r.State, strings.Join(slots, "\n")}
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Node", "Title", "State", "Slots").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			base := lipgloss.NewStyle().Padding(0, 1)
			if row == -1 {
				return headerStyle.Padding(0, 1)
			}
			if row < 0 || row >= len(reports) {
				return base
			}
			switch col {
			case 0:
				return base.Foreground(colorCyan)
			case 2:
				return base.Inherit(stateStyle(reports[row].State))
			}
			return base
		})
	return t.Render()
}

// summarize counts reports by kind and state for the one-line summary.
func summarize(reports []bundleReport) string {
	var producers, consumers, editors, unresolved int
	for _, r := range reports {
		switch r.Kind {
		case graph.KindProducer.String():
			producers++
		case graph.KindConsumer.String():
			consumers++
		case graph.KindEditor.String():
			editors++
		}
		if r.State != "" && r.State != pipe.Resolved.String() {
			unresolved++
		}
	}
	s := fmt.Sprintf("%d in · %d out · %d edit", producers, consumers, editors)
	if unresolved > 0 {
		s += fmt.Sprintf(" · %d not resolved", unresolved)
	}
	return s
}
