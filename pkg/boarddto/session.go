package boarddto

type MaterialScore struct {
	White int `json:"white"`
	Black int `json:"black"`
}

// CapturedPieces lists kinds taken by each side in capture order.
type CapturedPieces struct {
	White       []string `json:"white"`
	Black       []string `json:"black"`
	WhiteGlyphs string   `json:"white_glyphs,omitempty"`
	BlackGlyphs string   `json:"black_glyphs,omitempty"`
}

type Piece struct {
	Kind   string `json:"kind"`
	Side   string `json:"side"`
	Square string `json:"square"`
}

type SessionState struct {
	SessionID   string            `json:"session_id"`
	FEN         string            `json:"fen"`
	PreviousFEN string            `json:"previous_fen,omitempty"`
	StartFEN    string            `json:"start_fen"`
	SideToMove  string            `json:"side_to_move"`
	UserSide    string            `json:"user_side"`
	UserToMove  bool              `json:"user_to_move"`
	Difficulty  string            `json:"difficulty"`
	Started     bool              `json:"started"`
	LastMove    string            `json:"last_move,omitempty"`
	History     []string          `json:"history"`
	Moves       []string          `json:"moves"`
	Tags        map[string]string `json:"tags"`
	Captured    CapturedPieces    `json:"captured"`
	Material    MaterialScore     `json:"material"`
	Pieces      []Piece           `json:"pieces"`
}
