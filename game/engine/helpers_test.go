package engine

import "testing"

// emptyGrid returns a rows x cols grid of zeros
func emptyGrid(rows, cols int) [][]int {
	grid := make([][]int, rows)
	for r := range grid {
		grid[r] = make([]int, cols)
	}
	return grid
}

// place writes a vehicle into grid starting at (row, col)
func place(grid [][]int, id, row, col, length int, o Orientation) {
	for i := 0; i < length; i++ {
		if o == Horizontal {
			grid[row][col+i] = id
		} else {
			grid[row+i][col] = id
		}
	}
}

func mustParse(t *testing.T, grid [][]int) *Board {
	t.Helper()
	b, err := ParseDefaultBoard(grid)
	if err != nil {
		t.Fatalf("ParseDefaultBoard: %v", err)
	}
	return b
}

func scenarioC() [][]int {
	return [][]int{
		{0, 0, 0, 0, 0, 0},
		{0, 0, 2, 0, 0, 0},
		{1, 1, 2, 3, 0, 0},
		{0, 0, 0, 3, 0, 0},
		{0, 0, 0, 0, 0, 0},
		{0, 0, 0, 0, 0, 0},
	}
}
