package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
	paneStyle         = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(colorDim).
				Padding(0, 1)
)

// BundleListModel is the bubbletea model of the browse command: bundle
// nodes on the left, the selected node's slot layout on the right.
type BundleListModel struct {
	Title   string
	Reports []bundleReport
	Cursor  int
	Offset  int
	Height  int
}

// NewBundleListModel creates a list over reports.
func NewBundleListModel(title string, reports []bundleReport) BundleListModel {
	return BundleListModel{Title: title, Reports: reports, Height: 15}
}

func (m BundleListModel) Init() tea.Cmd {
	return nil
}

func (m BundleListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
				if m.Cursor < m.Offset {
					m.Offset = m.Cursor
				}
			}
		case "down", "j":
			if m.Cursor < len(m.Reports)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case "home", "g":
			m.Cursor, m.Offset = 0, 0
		case "end", "G":
			if n := len(m.Reports); n > 0 {
				m.Cursor = n - 1
				m.Offset = max(0, n-m.Height)
			}
		}
	case tea.WindowSizeMsg:
		m.Height = max(msg.Height-6, 5)
	}
	return m, nil
}

func (m BundleListModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render(m.Title))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  g/G first/last  q quit"))
	b.WriteString("\n\n")

	if len(m.Reports) == 0 {
		b.WriteString(listDimStyle.Render("No bundle nodes"))
		b.WriteString("\n")
		return b.String()
	}

	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, m.listView(), " ", m.detailView()))
	b.WriteString("\n\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(m.Reports))))
	return b.String()
}

func (m BundleListModel) listView() string {
	end := min(m.Offset+m.Height, len(m.Reports))
	var lines []string
	for i := m.Offset; i < end; i++ {
		r := m.Reports[i]
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		line := fmt.Sprintf("%s%-8s %-16s", cursor, r.Path, r.Type)
		state := ""
		if r.State != "" {
			state = " " + stateStyle(r.State).Render(r.State)
		}
		if i == m.Cursor {
			lines = append(lines, listSelectedStyle.Render(line)+state)
		} else {
			lines = append(lines, listNormalStyle.Render(line)+state)
		}
	}
	return strings.Join(lines, "\n")
}

func (m BundleListModel) detailView() string {
	r := m.Reports[m.Cursor]
	rows := make([][]string, len(r.Slots))
	for i, s := range r.Slots {
		origin := ""
		if r.Incoming > 0 && s.Index <= r.Incoming {
			origin = "incoming"
		}
		rows[i] = []string{fmt.Sprint(s.Index), s.Name, s.Type, s.Source, origin}
	}
	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	t := table.New().
		Border(lipgloss.HiddenBorder()).
		Headers("#", "Name", "Type", "Bundle", "").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			if col == 0 || col == 4 {
				return listDimStyle
			}
			return lipgloss.NewStyle()
		})

	title := r.Type
	if r.Title != "" {
		title = r.Title
	}
	return paneStyle.Render(StyleHighlight.Render(title) + "\n" + t.Render())
}
