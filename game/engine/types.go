package engine

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Orientation is the axis a vehicle travels along
type Orientation int

const (
	Horizontal Orientation = iota
	Vertical
)

// Direction is a unit slide. The numeric values are part of the wire format.
type Direction int

const (
	Up Direction = iota
	Right
	Down
	Left
)

const (
	// Reference board and rule defaults
	DefaultRows     = 6
	DefaultCols     = 6
	DefaultTargetID = 1
	DefaultExitLine = 2

	// Validation constants
	MinGridSize     = 2
	MaxGridSize     = 16
	MinVehicleLen   = 2
	MaxVehicleLen   = 3
	MaxBulkMoves    = 50
	MaxConfigNameLn = 64
)

// Directions lists every direction in enum order. Move generation iterates in this order.
var Directions = []Direction{Up, Right, Down, Left}

func (o Orientation) String() string {
	switch o {
	case Horizontal:
		return "horizontal"
	case Vertical:
		return "vertical"
	default:
		return fmt.Sprintf("orientation(%d)", int(o))
	}
}

// MarshalJSON encodes the orientation by name
func (o Orientation) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.String())
}

// UnmarshalJSON accepts the orientation name
func (o *Orientation) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("orientation must be a string: %w", err)
	}
	switch strings.ToLower(s) {
	case "horizontal":
		*o = Horizontal
	case "vertical":
		*o = Vertical
	default:
		return fmt.Errorf("unknown orientation %q", s)
	}
	return nil
}

func (d Direction) String() string {
	switch d {
	case Up:
		return "up"
	case Right:
		return "right"
	case Down:
		return "down"
	case Left:
		return "left"
	default:
		return fmt.Sprintf("direction(%d)", int(d))
	}
}

// Valid reports whether d is one of the four directions
func (d Direction) Valid() bool {
	return d >= Up && d <= Left
}

// Axis returns the orientation a vehicle needs to travel in direction d
func (d Direction) Axis() Orientation {
	if d == Up || d == Down {
		return Vertical
	}
	return Horizontal
}

// Delta returns the row and column offsets of a unit step
func (d Direction) Delta() (dr, dc int) {
	switch d {
	case Up:
		return -1, 0
	case Right:
		return 0, 1
	case Down:
		return 1, 0
	case Left:
		return 0, -1
	}
	return 0, 0
}

// Opposite returns the reverse direction
func (d Direction) Opposite() Direction {
	return (d + 2) % 4
}

// ParseDirection parses a direction name or its numeric form
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "up", "u", "0":
		return Up, nil
	case "right", "r", "1":
		return Right, nil
	case "down", "d", "2":
		return Down, nil
	case "left", "l", "3":
		return Left, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownDirection, s)
}

// ParseMove reads the short notations "2:up", "2 up" and "2U"
func ParseMove(s string) (Move, error) {
	s = strings.TrimSpace(s)
	split := strings.IndexAny(s, ": ")
	if split < 0 {
		// digits followed by a direction letter
		split = strings.IndexFunc(s, func(r rune) bool { return r < '0' || r > '9' })
	}
	if split <= 0 {
		return Move{}, fmt.Errorf("invalid move %q, want <car>:<direction>", s)
	}

	id, err := strconv.Atoi(s[:split])
	if err != nil || id <= 0 {
		return Move{}, fmt.Errorf("invalid car id in move %q", s)
	}
	dir, err := ParseDirection(strings.TrimLeft(s[split:], ": "))
	if err != nil {
		return Move{}, err
	}
	return Move{CarID: id, Direction: dir}, nil
}

// MarshalJSON encodes the direction as its integer value
func (d Direction) MarshalJSON() ([]byte, error) {
	return json.Marshal(int(d))
}

// UnmarshalJSON accepts either the integer value or the direction name
func (d *Direction) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		if !Direction(n).Valid() {
			return fmt.Errorf("%w: %d", ErrUnknownDirection, n)
		}
		*d = Direction(n)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("direction must be a number or a name: %w", err)
	}
	parsed, err := ParseDirection(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Position is a cell coordinate
type Position struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Vehicle is a read-only view of one car or truck on a board
type Vehicle struct {
	ID          int         `json:"id"`
	Orientation Orientation `json:"orientation"`
	Length      int         `json:"length"`
	Anchor      Position    `json:"anchor"` // topmost or leftmost occupied cell
}

// Cells returns the cells covered by the vehicle, anchor first
func (v Vehicle) Cells() []Position {
	cells := make([]Position, v.Length)
	for i := 0; i < v.Length; i++ {
		if v.Orientation == Horizontal {
			cells[i] = Position{Row: v.Anchor.Row, Col: v.Anchor.Col + i}
		} else {
			cells[i] = Position{Row: v.Anchor.Row + i, Col: v.Anchor.Col}
		}
	}
	return cells
}

// CanTravel reports whether the vehicle may slide in direction d at all
func (v Vehicle) CanTravel(d Direction) bool {
	return d.Valid() && d.Axis() == v.Orientation
}

// Move slides one vehicle by one cell
type Move struct {
	CarID     int       `json:"carId"`
	Direction Direction `json:"direction"`
}

func (m Move) String() string {
	return fmt.Sprintf("%d:%s", m.CarID, m.Direction)
}

// Rules fix the board size and the target/exit conventions
type Rules struct {
	Rows     int       `json:"rows"`
	Cols     int       `json:"cols"`
	TargetID int       `json:"target_id"`
	ExitSide Direction `json:"exit_side"`
	// ExitLine is the row (exit on the left/right edge) or the column
	// (exit on the top/bottom edge) the target must occupy.
	ExitLine int `json:"exit_line"`
}

// DefaultRules returns the 6x6 board with target 1 leaving row 2 on the right
func DefaultRules() Rules {
	return Rules{
		Rows:     DefaultRows,
		Cols:     DefaultCols,
		TargetID: DefaultTargetID,
		ExitSide: Right,
		ExitLine: DefaultExitLine,
	}
}

// Validate checks the rules themselves
func (r Rules) Validate() error {
	if r.Rows < MinGridSize || r.Rows > MaxGridSize || r.Cols < MinGridSize || r.Cols > MaxGridSize {
		return &ValidationError{Err: ErrInvalidRules,
			Detail: fmt.Sprintf("board must be between %dx%d and %dx%d, got %dx%d",
				MinGridSize, MinGridSize, MaxGridSize, MaxGridSize, r.Rows, r.Cols)}
	}
	if r.TargetID <= 0 {
		return &ValidationError{Err: ErrInvalidRules, Detail: fmt.Sprintf("target id must be positive, got %d", r.TargetID)}
	}
	if !r.ExitSide.Valid() {
		return &ValidationError{Err: ErrInvalidRules, Detail: fmt.Sprintf("invalid exit side %d", int(r.ExitSide))}
	}
	limit := r.Rows
	if r.ExitSide.Axis() == Vertical {
		limit = r.Cols
	}
	if r.ExitLine < 0 || r.ExitLine >= limit {
		return &ValidationError{Err: ErrInvalidRules,
			Detail: fmt.Sprintf("exit line %d out of range [0,%d)", r.ExitLine, limit)}
	}
	return nil
}

// MoveHistoryEntry records one attempted move in an interactive session
type MoveHistoryEntry struct {
	Move       Move  `json:"move"`
	Timestamp  int64 `json:"timestamp"`
	Success    bool  `json:"success"`
	Solved     bool  `json:"solved"`
	MoveNumber int   `json:"move_number"`
}

// GameState is the serializable snapshot of an interactive puzzle
type GameState struct {
	Grid        [][]int            `json:"grid"`
	Vehicles    []Vehicle          `json:"vehicles"`
	Rules       Rules              `json:"rules"`
	Solved      bool               `json:"solved"`
	Message     string             `json:"message"`
	ConfigName  string             `json:"config_name"`
	MoveHistory []MoveHistoryEntry `json:"move_history"`
	TotalMoves  int                `json:"total_moves"`

	// CurrentMoves tracks only the moves since the last reset. MoveHistory stays cumulative.
	CurrentMoves      []MoveHistoryEntry `json:"current_moves"`
	CurrentMovesCount int                `json:"current_moves_count"`

	// Computed helper views
	PossibleMoves []Move   `json:"possible_moves,omitempty"`
	Picture       []string `json:"picture,omitempty"`
}
