package domain

import (
	"fmt"
	"iter"
)

// Entry is one snapshot in the game history. Position is nil for the starting board.
type Entry struct {
	Board    Board     `json:"board"`
	Position *Position `json:"position,omitempty"`
}

// History holds every board reached so far and the move currently shown.
// Playing a move after jumping back drops all entries past the current one.
type History struct {
	entries []Entry
	current int
}

// NewHistory returns a history holding only the empty board.
func NewHistory() *History {
	return &History{entries: []Entry{{}}}
}

// RestoreHistory rebuilds a history from stored entries.
func RestoreHistory(entries []Entry, current int) (*History, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: history is empty", ErrInvalidArgument)
	}
	if entries[0].Board != (Board{}) || entries[0].Position != nil {
		return nil, fmt.Errorf("%w: first entry is not the empty board", ErrInvalidArgument)
	}
	if current < 0 || current >= len(entries) {
		return nil, fmt.Errorf("%w: current move %d of %d", ErrInvalidArgument, current, len(entries))
	}
	return &History{entries: cloneEntries(entries), current: current}, nil
}

func (h *History) Len() int         { return len(h.entries) }
func (h *History) CurrentMove() int { return h.current }

// Turn is derived from the current move: X on even moves, O on odd.
func (h *History) Turn() Cell { return TurnAt(h.current) }

func (h *History) CurrentBoard() Board { return h.entries[h.current].Board }

// Result evaluates the current board. It is never cached.
func (h *History) Result() Result { return Evaluate(h.CurrentBoard()) }

// Entries returns a copy of all entries.
func (h *History) Entries() []Entry {
	return cloneEntries(h.entries)
}

func (h *History) Entry(move int) (Entry, error) {
	if move < 0 || move >= len(h.entries) {
		return Entry{}, fmt.Errorf("%w: move %d of %d", ErrInvalidArgument, move, len(h.entries))
	}
	return cloneEntry(h.entries[move]), nil
}

// Clone returns an independent copy.
func (h *History) Clone() *History {
	return &History{entries: cloneEntries(h.entries), current: h.current}
}

// Play applies mark at index against the current board. A rejected or invalid move
// leaves the history untouched.
func (h *History) Play(index int, mark Cell) error {
	next, pos, err := ApplyMove(h.CurrentBoard(), index, mark)
	if err != nil {
		return err
	}
	entries := make([]Entry, h.current+1, h.current+2)
	copy(entries, h.entries[:h.current+1])
	entries = append(entries, Entry{Board: next, Position: &pos})

	h.entries, h.current = entries, len(entries)-1
	return nil
}

// PlayNext plays index for whoever is to move.
func (h *History) PlayNext(index int) error {
	return h.Play(index, h.Turn())
}

// JumpTo moves the current pointer without changing the entries.
func (h *History) JumpTo(move int) error {
	if move < 0 || move >= len(h.entries) {
		return fmt.Errorf("%w: move %d of %d", ErrInvalidArgument, move, len(h.entries))
	}
	h.current = move
	return nil
}

// Order controls how Describe lists moves.
type Order uint8

const (
	Ascending Order = iota
	Descending
)

func ParseOrder(s string) (Order, error) {
	switch s {
	case "asc", "ascending", "":
		return Ascending, nil
	case "desc", "descending":
		return Descending, nil
	}
	return Ascending, fmt.Errorf("%w: order %q", ErrInvalidArgument, s)
}

func (o Order) String() string {
	if o == Descending {
		return "desc"
	}
	return "asc"
}

func (o Order) Toggle() Order {
	if o == Descending {
		return Ascending
	}
	return Descending
}

func (o Order) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

func (o *Order) UnmarshalText(b []byte) error {
	v, err := ParseOrder(string(b))
	if err != nil {
		return err
	}
	*o = v
	return nil
}

// MoveInfo describes one history entry for a move list.
type MoveInfo struct {
	Move     int       `json:"move"`
	Label    string    `json:"label"`
	Position *Position `json:"position,omitempty"`
	Current  bool      `json:"current"`
}

// Describe lists every entry in the requested order. The sequence works on a
// snapshot taken at call time and can be ranged over more than once.
func (h *History) Describe(order Order) iter.Seq[MoveInfo] {
	entries := cloneEntries(h.entries)
	current := h.current
	return func(yield func(MoveInfo) bool) {
		n := len(entries)
		for k := 0; k < n; k++ {
			move := k
			if order == Descending {
				move = n - 1 - k
			}
			info := MoveInfo{
				Move:     move,
				Label:    moveLabel(move, current),
				Position: entries[move].Position,
				Current:  move == current,
			}
			if !yield(info) {
				return
			}
		}
	}
}

func moveLabel(move, current int) string {
	switch {
	case move == current:
		return fmt.Sprintf("You are at move #%d", move)
	case move == 0:
		return "Go to game start"
	default:
		return fmt.Sprintf("Go to move #%d", move)
	}
}

func cloneEntries(in []Entry) []Entry {
	out := make([]Entry, len(in))
	for i, e := range in {
		out[i] = cloneEntry(e)
	}
	return out
}

func cloneEntry(e Entry) Entry {
	if e.Position != nil {
		p := *e.Position
		e.Position = &p
	}
	return e
}
