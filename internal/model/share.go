package model

type Share struct {
	ID         string `json:"id"`
	Token      string `json:"token"`
	ResourceID string `json:"resource_id"`
	UserID     string `json:"user_id"`
	Ctime      int64  `json:"ctime"`
}
