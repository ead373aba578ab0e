package model

type SessionInfo struct {
	ID         string `json:"id"`
	Turns      int    `json:"turns"`
	Ctime      int64  `json:"ctime"`
	LastActive int64  `json:"last_active"`
}
