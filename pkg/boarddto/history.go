package boarddto

import "time"

type GameRecord struct {
	SessionID       string    `json:"session_id"`
	UserSide        string    `json:"user_side"`
	Difficulty      string    `json:"difficulty"`
	Result          string    `json:"result"`
	StartFEN        string    `json:"start_fen"`
	FinalFEN        string    `json:"final_fen"`
	ECO             string    `json:"eco,omitempty"`
	Opening         string    `json:"opening,omitempty"`
	Moves           []string  `json:"moves"`
	Notation        []string  `json:"notation"`
	CapturedByWhite []string  `json:"captured_by_white"`
	CapturedByBlack []string  `json:"captured_by_black"`
	PGN             string    `json:"pgn"`
	SavedAt         time.Time `json:"saved_at"`
}
