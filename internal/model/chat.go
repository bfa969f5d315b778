package model

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Chat struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	ResourceID string     `json:"resource_id"`
	Title      string     `json:"title"`
	Ctime      int64      `json:"ctime"`
	Messages   []*Message `json:"messages,omitempty"`
}

type Message struct {
	ID      string `json:"id"`
	ChatID  string `json:"chat_id"`
	Role    string `json:"role"`
	Content string `json:"content"`
	Ctime   int64  `json:"ctime"`
}
