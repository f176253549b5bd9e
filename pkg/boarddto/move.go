package boarddto

// MoveSummary reports one move attempt. Status is applied, rejected or
// no_move; the remaining move fields are empty unless applied.
type MoveSummary struct {
	Status   string        `json:"status"`
	Move     string        `json:"move,omitempty"`
	Kind     string        `json:"kind,omitempty"`
	Notation string        `json:"notation,omitempty"`
	Captured string        `json:"captured,omitempty"`
	State    *SessionState `json:"state"`
}
