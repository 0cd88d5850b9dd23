package main

import (
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/wricardo/mcp-training/rushhour/game/engine"
)

var vehiclePalette = []string{"39", "214", "42", "171", "226", "45", "208", "141", "118", "81"}

// styles holds the lipgloss styles of one output stream. Renderers bound to a
// non-terminal writer drop the colours, so piped output stays plain text.
type styles struct {
	target  lipgloss.Style
	empty   lipgloss.Style
	exit    lipgloss.Style
	frame   lipgloss.Style
	title   lipgloss.Style
	ok      lipgloss.Style
	bad     lipgloss.Style
	muted   lipgloss.Style
	vehicle []lipgloss.Style
}

func newStyles(w io.Writer) *styles {
	r := lipgloss.NewRenderer(w)
	s := &styles{
		target: r.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		empty:  r.NewStyle().Foreground(lipgloss.Color("240")),
		exit:   r.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		frame:  r.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("63")).Padding(0, 1),
		title:  r.NewStyle().Bold(true).Underline(true),
		ok:     r.NewStyle().Foreground(lipgloss.Color("42")),
		bad:    r.NewStyle().Foreground(lipgloss.Color("196")),
		muted:  r.NewStyle().Foreground(lipgloss.Color("245")),
	}
	for _, c := range vehiclePalette {
		s.vehicle = append(s.vehicle, r.NewStyle().Foreground(lipgloss.Color(c)))
	}
	return s
}

func (s *styles) cell(id, targetID int) lipgloss.Style {
	switch {
	case id == 0:
		return s.empty
	case id == targetID:
		return s.target
	default:
		return s.vehicle[id%len(s.vehicle)]
	}
}

// renderBoard draws the board in a rounded frame, one coloured character per
// cell, with the exit marked on its edge.
func (s *styles) renderBoard(b *engine.Board) string {
	rules := b.Rules()
	grid := b.Grid()

	var lines []string
	if rules.ExitSide == engine.Up {
		lines = append(lines, s.ruler(rules, "^"))
	}
	for r, row := range grid {
		var sb strings.Builder
		if rules.ExitSide == engine.Left {
			if r == rules.ExitLine {
				sb.WriteString(s.exit.Render("<"))
			} else {
				sb.WriteString(" ")
			}
		}
		for c, id := range row {
			if c > 0 {
				sb.WriteString(" ")
			}
			sb.WriteString(s.cell(id, rules.TargetID).Render(string(engine.CellChar(id))))
		}
		if rules.ExitSide == engine.Right && r == rules.ExitLine {
			sb.WriteString(s.exit.Render(" >"))
		}
		lines = append(lines, sb.String())
	}
	if rules.ExitSide == engine.Down {
		lines = append(lines, s.ruler(rules, "v"))
	}

	return s.frame.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func (s *styles) ruler(rules engine.Rules, mark string) string {
	cells := make([]string, rules.Cols)
	for i := range cells {
		cells[i] = " "
	}
	cells[rules.ExitLine] = s.exit.Render(mark)
	return strings.Join(cells, " ")
}
