package board

// MaxPieces is the slot count of a Set.
const MaxPieces = 32

// Set is the fixed-capacity piece model. Slots are never removed; captured
// pieces stay in place with an Offboard square.
type Set struct {
	slots [MaxPieces]Piece
	n     int
}

// NewSet returns a Set with every slot empty.
func NewSet() Set {
	var s Set
	s.clear()
	return s
}

func (s *Set) clear() {
	for i := range s.slots {
		s.slots[i] = EmptyPiece
	}
	s.n = 0
}

// add appends p to the next free slot. It reports false when the set is full.
func (s *Set) add(p Piece) bool {
	if s.n >= MaxPieces {
		return false
	}
	s.slots[s.n] = p
	s.n++
	return true
}

// Len returns the number of used slots, including captured pieces.
func (s *Set) Len() int { return s.n }

// Slot returns the piece in slot i, or EmptyPiece when out of range.
func (s *Set) Slot(i int) Piece {
	if i < 0 || i >= MaxPieces {
		return EmptyPiece
	}
	return s.slots[i]
}

// FindAt returns the slot of the on-board piece at sq.
func (s *Set) FindAt(sq Square) (int, bool) {
	if !sq.Valid() {
		return -1, false
	}
	for i := 0; i < s.n; i++ {
		if s.slots[i].Square == sq && s.slots[i].Kind != NoKind {
			return i, true
		}
	}
	return -1, false
}

// At returns the on-board piece at sq.
func (s *Set) At(sq Square) (Piece, bool) {
	i, ok := s.FindAt(sq)
	if !ok {
		return EmptyPiece, false
	}
	return s.slots[i], true
}

// MarkCaptured moves the piece in slot i off the board and returns it as it
// was before the capture.
func (s *Set) MarkCaptured(i int) Piece {
	if i < 0 || i >= s.n {
		return EmptyPiece
	}
	p := s.slots[i]
	s.slots[i].Square = Offboard
	return p
}

// ReplaceAll overwrites the whole model with other.
func (s *Set) ReplaceAll(other Set) {
	*s = other
}

// OnBoard returns the on-board pieces in slot order.
func (s *Set) OnBoard() []Piece {
	out := make([]Piece, 0, s.n)
	for i := 0; i < s.n; i++ {
		if s.slots[i].OnBoard() {
			out = append(out, s.slots[i])
		}
	}
	return out
}

// Count returns the number of on-board pieces.
func (s *Set) Count() int {
	c := 0
	for i := 0; i < s.n; i++ {
		if s.slots[i].OnBoard() {
			c++
		}
	}
	return c
}

// CountOf returns the number of on-board pieces of the given side and kind.
func (s *Set) CountOf(side Side, kind Kind) int {
	c := 0
	for i := 0; i < s.n; i++ {
		p := s.slots[i]
		if p.OnBoard() && p.Side == side && p.Kind == kind {
			c++
		}
	}
	return c
}
