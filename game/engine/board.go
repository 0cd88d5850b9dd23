package engine

import (
	"fmt"
	"sort"
)

// State is the canonical key of a vehicle configuration. It holds one byte per
// vehicle, in ascending id order, encoding the anchor cell as row*cols+col.
// Boards parsed under the same rules with the same vehicle placements have equal
// States regardless of the moves that produced them.
type State string

// Board is an immutable snapshot of the grid
type Board struct {
	rules    Rules
	vehicles []Vehicle // ascending by ID
}

// ParseBoard validates a raw grid under the given rules and derives its vehicles
func ParseBoard(grid [][]int, rules Rules) (*Board, error) {
	if err := rules.Validate(); err != nil {
		return nil, err
	}

	if len(grid) != rules.Rows {
		return nil, &ValidationError{Err: ErrGridDimensions,
			Detail: fmt.Sprintf("expected %d rows, got %d", rules.Rows, len(grid))}
	}

	// Row-major scan keeps each vehicle's cells sorted, so the first cell is the anchor
	cells := make(map[int][]Position)
	for r, row := range grid {
		if len(row) != rules.Cols {
			return nil, &ValidationError{Err: ErrGridDimensions,
				Detail: fmt.Sprintf("row %d must have %d cells, got %d", r, rules.Cols, len(row))}
		}
		for c, id := range row {
			if id < 0 {
				return nil, &ValidationError{Err: ErrNegativeCell,
					Detail: fmt.Sprintf("value %d at row %d, col %d", id, r, c)}
			}
			if id == 0 {
				continue
			}
			cells[id] = append(cells[id], Position{Row: r, Col: c})
		}
	}

	ids := make([]int, 0, len(cells))
	for id := range cells {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	vehicles := make([]Vehicle, 0, len(ids))
	for _, id := range ids {
		v, err := vehicleFromCells(id, cells[id])
		if err != nil {
			return nil, err
		}
		vehicles = append(vehicles, v)
	}

	b := &Board{rules: rules, vehicles: vehicles}
	if err := b.checkTarget(); err != nil {
		return nil, err
	}
	return b, nil
}

// ParseDefaultBoard parses a grid under DefaultRules
func ParseDefaultBoard(grid [][]int) (*Board, error) {
	return ParseBoard(grid, DefaultRules())
}

// vehicleFromCells builds a vehicle from its row-major ordered cells
func vehicleFromCells(id int, cells []Position) (Vehicle, error) {
	if len(cells) < MinVehicleLen {
		return Vehicle{}, &ValidationError{Err: ErrVehicleLength, VehicleID: id,
			Detail: fmt.Sprintf("occupies %d cell", len(cells))}
	}

	sameRow, sameCol := true, true
	for _, p := range cells[1:] {
		if p.Row != cells[0].Row {
			sameRow = false
		}
		if p.Col != cells[0].Col {
			sameCol = false
		}
	}

	var orientation Orientation
	switch {
	case sameRow:
		orientation = Horizontal
	case sameCol:
		orientation = Vertical
	case !connected(cells):
		return Vehicle{}, &ValidationError{Err: ErrDisjointFragments, VehicleID: id,
			Detail: fmt.Sprintf("%d cells in separate groups", len(cells))}
	default:
		return Vehicle{}, &ValidationError{Err: ErrVehicleShape, VehicleID: id,
			Detail: fmt.Sprintf("cells span rows %d-%d and cols %d-%d",
				cells[0].Row, cells[len(cells)-1].Row, minCol(cells), maxCol(cells))}
	}

	anchor := cells[0]
	for i, p := range cells {
		offset := p.Col - anchor.Col
		if orientation == Vertical {
			offset = p.Row - anchor.Row
		}
		if offset != i {
			return Vehicle{}, &ValidationError{Err: ErrDisjointFragments, VehicleID: id,
				Detail: fmt.Sprintf("gap before row %d, col %d", p.Row, p.Col)}
		}
	}

	if len(cells) > MaxVehicleLen {
		return Vehicle{}, &ValidationError{Err: ErrVehicleLength, VehicleID: id,
			Detail: fmt.Sprintf("occupies %d cells", len(cells))}
	}

	return Vehicle{ID: id, Orientation: orientation, Length: len(cells), Anchor: anchor}, nil
}

// connected reports whether cells form one 4-neighbour group
func connected(cells []Position) bool {
	set := make(map[Position]bool, len(cells))
	for _, p := range cells {
		set[p] = true
	}

	seen := map[Position]bool{cells[0]: true}
	stack := []Position{cells[0]}
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, d := range Directions {
			dr, dc := d.Delta()
			n := Position{Row: p.Row + dr, Col: p.Col + dc}
			if set[n] && !seen[n] {
				seen[n] = true
				stack = append(stack, n)
			}
		}
	}
	return len(seen) == len(cells)
}

func minCol(cells []Position) int {
	m := cells[0].Col
	for _, p := range cells {
		if p.Col < m {
			m = p.Col
		}
	}
	return m
}

func maxCol(cells []Position) int {
	m := cells[0].Col
	for _, p := range cells {
		if p.Col > m {
			m = p.Col
		}
	}
	return m
}

// checkTarget verifies the target vehicle sits on the exit line facing the exit
func (b *Board) checkTarget() error {
	target, ok := b.Vehicle(b.rules.TargetID)
	if !ok {
		return &ValidationError{Err: ErrTargetMissing, VehicleID: b.rules.TargetID}
	}

	if target.Orientation != b.rules.ExitSide.Axis() {
		return &ValidationError{Err: ErrTargetMisplaced, VehicleID: target.ID,
			Detail: fmt.Sprintf("%s vehicle cannot exit %s", target.Orientation, b.rules.ExitSide)}
	}

	line := target.Anchor.Row
	if target.Orientation == Vertical {
		line = target.Anchor.Col
	}
	if line != b.rules.ExitLine {
		return &ValidationError{Err: ErrTargetMisplaced, VehicleID: target.ID,
			Detail: fmt.Sprintf("on line %d, exit is on line %d", line, b.rules.ExitLine)}
	}
	return nil
}

// Rules returns the rules the board was parsed under
func (b *Board) Rules() Rules {
	return b.rules
}

// Vehicles returns a copy of the vehicles in ascending id order
func (b *Board) Vehicles() []Vehicle {
	out := make([]Vehicle, len(b.vehicles))
	copy(out, b.vehicles)
	return out
}

// Vehicle looks up a vehicle by id
func (b *Board) Vehicle(id int) (Vehicle, bool) {
	i := b.indexOf(id)
	if i < 0 {
		return Vehicle{}, false
	}
	return b.vehicles[i], true
}

// Target returns the target vehicle. ParseBoard guarantees it exists.
func (b *Board) Target() Vehicle {
	v, _ := b.Vehicle(b.rules.TargetID)
	return v
}

func (b *Board) indexOf(id int) int {
	i := sort.Search(len(b.vehicles), func(i int) bool { return b.vehicles[i].ID >= id })
	if i < len(b.vehicles) && b.vehicles[i].ID == id {
		return i
	}
	return -1
}

// IsSolved reports whether the target's leading cell touches the exit edge
func (b *Board) IsSolved() bool {
	t := b.Target()
	switch b.rules.ExitSide {
	case Right:
		return t.Anchor.Col+t.Length-1 == b.rules.Cols-1
	case Left:
		return t.Anchor.Col == 0
	case Down:
		return t.Anchor.Row+t.Length-1 == b.rules.Rows-1
	case Up:
		return t.Anchor.Row == 0
	}
	return false
}

// State returns the canonical key of the board
func (b *Board) State() State {
	key := make([]byte, len(b.vehicles))
	for i, v := range b.vehicles {
		key[i] = byte(v.Anchor.Row*b.rules.Cols + v.Anchor.Col)
	}
	return State(key)
}

// Grid renders the board back to cell values
func (b *Board) Grid() [][]int {
	grid := make([][]int, b.rules.Rows)
	for r := range grid {
		grid[r] = make([]int, b.rules.Cols)
	}
	for _, v := range b.vehicles {
		for _, p := range v.Cells() {
			grid[p.Row][p.Col] = v.ID
		}
	}
	return grid
}

// occupancy returns the vehicle id per cell in row-major order
func (b *Board) occupancy() []int {
	occ := make([]int, b.rules.Rows*b.rules.Cols)
	for _, v := range b.vehicles {
		for _, p := range v.Cells() {
			occ[p.Row*b.rules.Cols+p.Col] = v.ID
		}
	}
	return occ
}

func (b *Board) inBounds(p Position) bool {
	return p.Row >= 0 && p.Row < b.rules.Rows && p.Col >= 0 && p.Col < b.rules.Cols
}

// Apply returns the board after m. The receiver is never modified.
func (b *Board) Apply(m Move) (*Board, error) {
	if err := b.CheckMove(m); err != nil {
		return nil, err
	}

	i := b.indexOf(m.CarID)
	dr, dc := m.Direction.Delta()

	vehicles := make([]Vehicle, len(b.vehicles))
	copy(vehicles, b.vehicles)
	vehicles[i].Anchor.Row += dr
	vehicles[i].Anchor.Col += dc

	return &Board{rules: b.rules, vehicles: vehicles}, nil
}

// ApplyAll applies moves in order, stopping at the first illegal one
func (b *Board) ApplyAll(moves []Move) (*Board, error) {
	cur := b
	for i, m := range moves {
		next, err := cur.Apply(m)
		if err != nil {
			return cur, fmt.Errorf("move %d (%s): %w", i+1, m, err)
		}
		cur = next
	}
	return cur, nil
}

func (b *Board) String() string {
	out := ""
	for _, line := range Picture(b) {
		out += line + "\n"
	}
	return out
}
