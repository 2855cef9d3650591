package matchmaker

import "time"

// JoinRequest asks for a quick match of one game type. The caller's identity
// comes from the identity middleware, never from the body.
type JoinRequest struct {
	GameType string `json:"gameType" binding:"required"`
}

// JoinResponse tells whether the caller is still queued or already matched.
type JoinResponse struct {
	Queued    bool   `json:"queued"`
	GameType  string `json:"gameType"`
	GameID    string `json:"gameId,omitempty"`
	TableSize int    `json:"tableSize"`
}

// StatusResponse is polled by queued clients until a game id shows up.
type StatusResponse struct {
	Matched  bool   `json:"matched"`
	GameType string `json:"gameType,omitempty"`
	GameID   string `json:"gameId,omitempty"`
}

// Room is a completed match: the game every listed identity should open.
type Room struct {
	ID        string    `json:"id"`
	GameType  string    `json:"gameType"`
	TableSize int       `json:"tableSize"`
	Players   []string  `json:"players"`
	CreatedAt time.Time `json:"createdAt"`
}
