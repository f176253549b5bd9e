package boarddto

type CreateSessionRequest struct {
	UserSide   string            `json:"user_side,omitempty"`
	Difficulty string            `json:"difficulty,omitempty"`
	Tags       map[string]string `json:"tags,omitempty"`
}

type CreateSessionResponse struct {
	State *SessionState `json:"state"`
}

// MoveRequest accepts either Move ("e2e4") or From/To squares.
type MoveRequest struct {
	Move string `json:"move,omitempty"`
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`
}

type LoadRequest struct {
	FEN string `json:"fen"`
}

type NewGameRequest struct {
	UserSide   string `json:"user_side,omitempty"`
	Difficulty string `json:"difficulty,omitempty"`
}

// TagsRequest sets PGN tags; an empty value removes the tag.
type TagsRequest struct {
	Tags map[string]string `json:"tags"`
}

type SaveResponse struct {
	Game *GameRecord `json:"game"`
}

type RecentGamesResponse struct {
	Games []*GameRecord `json:"games"`
}
