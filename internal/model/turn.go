package model

type ConversationTurn struct {
	Query  string `json:"query"`
	Answer string `json:"answer"`
	Ctime  int64  `json:"ctime"`
}
