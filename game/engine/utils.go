package engine

import "strings"

const cellAlphabet = "123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// CellChar returns the single character used to draw a vehicle id
func CellChar(id int) byte {
	if id <= 0 {
		return '.'
	}
	if id <= len(cellAlphabet) {
		return cellAlphabet[id-1]
	}
	return '#'
}

// Picture draws the board one string per row, with the exit marked by '>' '<' '^' or 'v'
func Picture(b *Board) []string {
	rules := b.Rules()
	grid := b.Grid()

	lines := make([]string, 0, rules.Rows+2)
	if rules.ExitSide == Up {
		lines = append(lines, exitRuler(rules, '^'))
	}
	for r, row := range grid {
		var sb strings.Builder
		if rules.ExitSide == Left {
			if r == rules.ExitLine {
				sb.WriteByte('<')
			} else {
				sb.WriteByte(' ')
			}
		}
		for _, id := range row {
			sb.WriteByte(CellChar(id))
		}
		if rules.ExitSide == Right && r == rules.ExitLine {
			sb.WriteByte('>')
		}
		lines = append(lines, sb.String())
	}
	if rules.ExitSide == Down {
		lines = append(lines, exitRuler(rules, 'v'))
	}
	return lines
}

func exitRuler(rules Rules, mark byte) string {
	line := []byte(strings.Repeat(" ", rules.Cols))
	line[rules.ExitLine] = mark
	return string(line)
}

// BlockingVehicles returns the ids of vehicles between the target and the exit, nearest first
func BlockingVehicles(b *Board) []int {
	rules := b.Rules()
	t := b.Target()
	occ := b.occupancy()

	var blockers []int
	seen := make(map[int]bool)
	p := LeadingCell(t, rules.ExitSide)
	dr, dc := rules.ExitSide.Delta()
	for b.inBounds(p) {
		if id := occ[p.Row*rules.Cols+p.Col]; id != 0 && !seen[id] {
			seen[id] = true
			blockers = append(blockers, id)
		}
		p = Position{Row: p.Row + dr, Col: p.Col + dc}
	}
	return blockers
}

// ExitDistance is the number of cells the target still has to travel
func ExitDistance(b *Board) int {
	rules := b.Rules()
	t := b.Target()
	switch rules.ExitSide {
	case Right:
		return rules.Cols - (t.Anchor.Col + t.Length)
	case Left:
		return t.Anchor.Col
	case Down:
		return rules.Rows - (t.Anchor.Row + t.Length)
	case Up:
		return t.Anchor.Row
	}
	return 0
}

// CountVehicles counts vehicles of the given length, or all vehicles when length is 0
func CountVehicles(b *Board, length int) int {
	count := 0
	for _, v := range b.vehicles {
		if length == 0 || v.Length == length {
			count++
		}
	}
	return count
}
