package board

// startingMaterial is the per-side piece count of a standard game.
var startingMaterial = []struct {
	kind  Kind
	count int
}{
	{Queen, 1},
	{Rook, 2},
	{Bishop, 2},
	{Knight, 2},
	{Pawn, 8},
	{King, 1},
}

// Snapshot decodes fen and infers capture ledgers from missing material.
// Capture order is not recoverable from a position; synthesized entries are
// recorded queen, rook, bishop, knight, pawn. Promoted pieces beyond the
// starting count are ignored.
func Snapshot(fen string) (Position, Ledger, error) {
	pos, err := Decode(fen)
	if err != nil {
		return pos, Ledger{}, err
	}
	var ledger Ledger
	for _, side := range []Side{White, Black} {
		for _, m := range startingMaterial {
			missing := m.count - pos.Pieces.CountOf(side, m.kind)
			for i := 0; i < missing; i++ {
				ledger.Record(side.Opponent(), m.kind)
			}
		}
	}
	return pos, ledger, nil
}

// Load replaces the model and ledgers from a standalone position string.
func (t *Tracker) Load(fen string) error {
	pos, ledger, err := Snapshot(fen)
	if err != nil {
		return err
	}
	t.Restore(pos, ledger)
	return nil
}
