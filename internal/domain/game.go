package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Cell represents a board cell state.
type Cell uint8

const (
	Empty Cell = iota
	X
	O
)

// Board is a fixed 3x3 board stored row-major.
type Board [9]Cell

// Line is a winning triple of board indices.
type Line [3]int

// Position is the row/column of a board index.
type Position struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Errors returned by domain operations.
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrOccupied        = errors.New("cell occupied")
	ErrGameOver        = errors.New("game over")
)

var lines = [8]Line{
	// rows
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8},
	// cols
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8},
	// diags
	{0, 4, 8}, {2, 4, 6},
}

// Lines returns the winning lines in evaluation order.
func Lines() []Line {
	out := make([]Line, len(lines))
	copy(out, lines[:])
	return out
}

func (c Cell) String() string {
	switch c {
	case X:
		return "X"
	case O:
		return "O"
	default:
		return ""
	}
}

// Next returns the opposing mark. Empty stays Empty.
func (c Cell) Next() Cell {
	switch c {
	case X:
		return O
	case O:
		return X
	default:
		return Empty
	}
}

// ParseCell accepts "X", "O" and "", "-" or "." for an empty cell.
func ParseCell(s string) (Cell, error) {
	switch s {
	case "X", "x":
		return X, nil
	case "O", "o":
		return O, nil
	case "", "-", ".":
		return Empty, nil
	}
	return Empty, fmt.Errorf("%w: cell %q", ErrInvalidArgument, s)
}

func (c Cell) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Cell) UnmarshalText(b []byte) error {
	v, err := ParseCell(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// ParseBoard builds a board from exactly nine cells.
func ParseBoard(cells []string) (Board, error) {
	var b Board
	if len(cells) != len(b) {
		return b, fmt.Errorf("%w: board has %d cells, want %d", ErrInvalidArgument, len(cells), len(b))
	}
	for i, s := range cells {
		c, err := ParseCell(s)
		if err != nil {
			return Board{}, fmt.Errorf("index %d: %w", i, err)
		}
		b[i] = c
	}
	return b, nil
}

// Full reports whether no cell is empty.
func (b Board) Full() bool {
	for _, c := range b {
		if c == Empty {
			return false
		}
	}
	return true
}

// EmptyCells lists the indices still open.
func (b Board) EmptyCells() []int {
	out := make([]int, 0, len(b))
	for i, c := range b {
		if c == Empty {
			out = append(out, i)
		}
	}
	return out
}

// PositionOf converts a board index to row and column.
func PositionOf(index int) Position {
	return Position{Row: index / 3, Col: index % 3}
}

// Index converts the position back to a board index.
func (p Position) Index() int {
	return p.Row*3 + p.Col
}

func (p Position) Valid() bool {
	return p.Row >= 0 && p.Row < 3 && p.Col >= 0 && p.Col < 3
}

// Outcome is the state of a board after evaluation.
type Outcome uint8

const (
	InProgress Outcome = iota
	Won
	Draw
)

// Result is what Evaluate reports about a board.
type Result struct {
	Outcome Outcome
	Winner  Cell
	Line    []int
}

// Over reports whether the board accepts no more moves.
func (r Result) Over() bool {
	return r.Outcome != InProgress
}

// Contains reports whether index is part of the winning line.
func (r Result) Contains(index int) bool {
	for _, i := range r.Line {
		if i == index {
			return true
		}
	}
	return false
}

// MarshalJSON encodes the winner as "X", "O", "draw" or null.
func (r Result) MarshalJSON() ([]byte, error) {
	var winner *string
	switch r.Outcome {
	case Won:
		s := r.Winner.String()
		winner = &s
	case Draw:
		s := "draw"
		winner = &s
	}
	line := r.Line
	if line == nil {
		line = []int{}
	}
	return json.Marshal(struct {
		Winner *string `json:"winner"`
		Line   []int   `json:"line"`
	}{Winner: winner, Line: line})
}

// Evaluate reports the winner and winning line, a draw, or a game in progress.
// Lines are checked in table order, so the first complete line wins.
func Evaluate(b Board) Result {
	for _, ln := range lines {
		c := b[ln[0]]
		if c != Empty && c == b[ln[1]] && c == b[ln[2]] {
			return Result{Outcome: Won, Winner: c, Line: []int{ln[0], ln[1], ln[2]}}
		}
	}
	if b.Full() {
		return Result{Outcome: Draw, Line: []int{}}
	}
	return Result{Outcome: InProgress, Line: []int{}}
}

// ApplyMove places mark at index and returns the new board. The input board is not modified.
func ApplyMove(b Board, index int, mark Cell) (Board, Position, error) {
	if index < 0 || index >= len(b) {
		return b, Position{}, fmt.Errorf("%w: index %d", ErrInvalidArgument, index)
	}
	if mark != X && mark != O {
		return b, Position{}, fmt.Errorf("%w: mark %d", ErrInvalidArgument, mark)
	}
	if Evaluate(b).Over() {
		return b, Position{}, ErrGameOver
	}
	if b[index] != Empty {
		return b, Position{}, ErrOccupied
	}
	next := b
	next[index] = mark
	return next, PositionOf(index), nil
}

// Rejected reports whether err is an ordinary refused move rather than bad input.
func Rejected(err error) bool {
	return errors.Is(err, ErrOccupied) || errors.Is(err, ErrGameOver)
}

// TurnAt returns the mark to move after the given number of moves.
func TurnAt(move int) Cell {
	if move%2 == 0 {
		return X
	}
	return O
}
