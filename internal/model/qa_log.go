package model

type QALog struct {
	ID          string  `json:"id"`
	SessionID   string  `json:"session_id"`
	UserID      string  `json:"user_id"`
	Query       string  `json:"query"`
	Answer      string  `json:"answer"`
	Confidence  float64 `json:"confidence"`
	Degraded    bool    `json:"degraded"`
	SourcesJSON string  `json:"sources_json"`
	Ctime       int64   `json:"ctime"`
}
