package browse

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"

	"github.com/ardnew/ajnin/graph"
)

// Styles.
var (
	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("6")).
			Bold(true)
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("15")).
			Bold(true)
	labelStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("5"))
	hintStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	builtStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	highlightStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("4")).
			Bold(true)
	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("4"))
)

const ellipsis = "…"

func (m model) renderList() string {
	var b strings.Builder

	b.WriteString(m.input.View())
	b.WriteString("\n")

	end := min(m.offset+m.rows(), len(m.matches))

	for i := m.offset; i < end; i++ {
		b.WriteString(renderMatch(m.matches[i], i == m.selected, m.width))
		b.WriteString("\n")
	}

	hint := fmt.Sprintf("%d/%d  enter open  ctrl+p/ctrl+n history  esc quit",
		len(m.matches), len(m.artifacts))
	b.WriteString(hintStyle.Render(hint))
	b.WriteString("\n")

	return b.String()
}

// renderMatch renders one artifact row, highlighting the characters matched
// by the query and truncating to width.
func renderMatch(match fuzzy.Match, selected bool, width int) string {
	text := truncate(graph.Unescape(match.Str), width-2)

	if selected {
		return selectedStyle.Render("> " + text)
	}

	var b strings.Builder

	b.WriteString("  ")

	// Matched indexes are byte offsets.
	for i, r := range text {
		if slices.Contains(match.MatchedIndexes, i) {
			b.WriteString(highlightStyle.Render(string(r)))
		} else {
			b.WriteRune(r)
		}
	}

	return b.String()
}

func (m model) renderBuild() string {
	bd, ok := m.current()
	if !ok {
		return ""
	}

	var b strings.Builder

	trail := make([]string, len(m.trail))
	for i, a := range m.trail {
		trail[i] = graph.Unescape(a)
	}

	b.WriteString(hintStyle.Render(strings.Join(trail[:len(trail)-1], " > ")))
	b.WriteString("\n")
	b.WriteString(titleStyle.Render(trail[len(trail)-1]))
	b.WriteString("\n\n")

	field := func(label, value string) {
		if value == "" {
			return
		}

		b.WriteString(labelStyle.Render(fmt.Sprintf("%-9s", label)))
		b.WriteString(value)
		b.WriteString("\n")
	}

	field("rule", graph.Unescape(bd.Rule))
	field("pool", bd.Pool)

	for _, name := range slices.Sorted(maps.Keys(bd.Vars)) {
		field("$"+name, graph.Unescape(bd.Vars[name]))
	}

	b.WriteString("\n")

	for i, e := range m.edges() {
		text := truncate(graph.Unescape(e.artifact), m.width-12)
		line := fmt.Sprintf("%-9s %s", e.kind, text)

		_, built := m.graph.Get(e.artifact)

		switch {
		case i == m.edge:
			b.WriteString(selectedStyle.Render("> " + line))
		case built:
			b.WriteString("  " + builtStyle.Render(line))
		default:
			b.WriteString("  " + line)
		}

		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(hintStyle.Render("enter follow  esc back  q quit"))
	b.WriteString("\n")

	return b.String()
}

// truncate shortens s to width display cells, marking the cut with an
// ellipsis.
func truncate(s string, width int) string {
	if width <= 0 || lipgloss.Width(s) <= width {
		return s
	}

	runes := []rune(s)
	for len(runes) > 0 && lipgloss.Width(string(runes))+lipgloss.Width(ellipsis) > width {
		runes = runes[:len(runes)-1]
	}

	return string(runes) + ellipsis
}
