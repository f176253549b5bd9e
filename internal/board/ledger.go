package board

import "strings"

// Ledger records, per capturing side, the kinds it has taken in capture order.
type Ledger struct {
	white []Kind
	black []Kind
}

func (l *Ledger) list(side Side) *[]Kind {
	switch side {
	case White:
		return &l.white
	case Black:
		return &l.black
	}
	return nil
}

// Record appends kind to the captor's ledger.
func (l *Ledger) Record(captor Side, kind Kind) {
	if kind == NoKind {
		return
	}
	if dst := l.list(captor); dst != nil {
		*dst = append(*dst, kind)
	}
}

// Take records a captured piece under the side that captured it.
func (l *Ledger) Take(p Piece) {
	l.Record(p.Side.Opponent(), p.Kind)
}

// Captured returns a copy of the captor's ledger.
func (l *Ledger) Captured(captor Side) []Kind {
	src := l.list(captor)
	if src == nil || len(*src) == 0 {
		return nil
	}
	out := make([]Kind, len(*src))
	copy(out, *src)
	return out
}

// Len returns the number of pieces the captor has taken.
func (l *Ledger) Len(captor Side) int {
	if src := l.list(captor); src != nil {
		return len(*src)
	}
	return 0
}

// Render joins the captor's glyph labels with single spaces.
func (l *Ledger) Render(captor Side) string {
	src := l.list(captor)
	if src == nil {
		return ""
	}
	parts := make([]string, 0, len(*src))
	for _, k := range *src {
		parts = append(parts, k.Glyph())
	}
	return strings.Join(parts, " ")
}

// Value sums the material the captor has taken.
func (l *Ledger) Value(captor Side) int {
	src := l.list(captor)
	if src == nil {
		return 0
	}
	total := 0
	for _, k := range *src {
		total += k.Value()
	}
	return total
}

// Reset empties both ledgers.
func (l *Ledger) Reset() {
	l.white = nil
	l.black = nil
}

// Clone returns an independent copy.
func (l *Ledger) Clone() Ledger {
	return Ledger{white: l.Captured(White), black: l.Captured(Black)}
}

// NewLedger builds a ledger from existing capture lists, captor first.
func NewLedger(byWhite, byBlack []Kind) Ledger {
	var l Ledger
	for _, k := range byWhite {
		l.Record(White, k)
	}
	for _, k := range byBlack {
		l.Record(Black, k)
	}
	return l
}
