package engine

import "fmt"

// LeadingCell returns the cell a vehicle would enter by sliding one step in d
func LeadingCell(v Vehicle, d Direction) Position {
	dr, dc := d.Delta()
	if d == Right || d == Down {
		// leading edge is the far end of the vehicle
		last := v.Cells()[v.Length-1]
		return Position{Row: last.Row + dr, Col: last.Col + dc}
	}
	return Position{Row: v.Anchor.Row + dr, Col: v.Anchor.Col + dc}
}

// LegalMoves enumerates every legal unit slide on the board. Vehicles are visited in
// ascending id order and directions in enum order, so the result is stable.
func LegalMoves(b *Board) []Move {
	occ := b.occupancy()
	moves := make([]Move, 0, 2*len(b.vehicles))

	for _, v := range b.vehicles {
		for _, d := range Directions {
			if !v.CanTravel(d) {
				continue
			}
			if b.isFree(occ, LeadingCell(v, d)) {
				moves = append(moves, Move{CarID: v.ID, Direction: d})
			}
		}
	}

	return moves
}

// LegalMovesFor enumerates the legal slides of a single vehicle
func LegalMovesFor(b *Board, id int) []Move {
	v, ok := b.Vehicle(id)
	if !ok {
		return nil
	}

	occ := b.occupancy()
	var moves []Move
	for _, d := range Directions {
		if v.CanTravel(d) && b.isFree(occ, LeadingCell(v, d)) {
			moves = append(moves, Move{CarID: id, Direction: d})
		}
	}
	return moves
}

func (b *Board) isFree(occ []int, p Position) bool {
	return b.inBounds(p) && occ[p.Row*b.rules.Cols+p.Col] == 0
}

// CheckMove explains why m is not legal, or returns nil
func (b *Board) CheckMove(m Move) error {
	if !m.Direction.Valid() {
		return fmt.Errorf("%w: %d", ErrUnknownDirection, int(m.Direction))
	}

	v, ok := b.Vehicle(m.CarID)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownVehicle, m.CarID)
	}

	if !v.CanTravel(m.Direction) {
		return fmt.Errorf("%w: %s vehicle %d cannot move %s", ErrIllegalMove, v.Orientation, v.ID, m.Direction)
	}

	cell := LeadingCell(v, m.Direction)
	if !b.inBounds(cell) {
		return fmt.Errorf("%w: vehicle %d would leave the board at (%d,%d)", ErrIllegalMove, v.ID, cell.Row, cell.Col)
	}

	if occupant := b.occupancy()[cell.Row*b.rules.Cols+cell.Col]; occupant != 0 {
		return fmt.Errorf("%w: vehicle %d blocked by vehicle %d at (%d,%d)", ErrIllegalMove, v.ID, occupant, cell.Row, cell.Col)
	}

	return nil
}

// CanMove reports whether m is legal on the board
func (b *Board) CanMove(m Move) bool {
	return b.CheckMove(m) == nil
}
