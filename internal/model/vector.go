package model

// Vector is one embedded chunk of a resource's extracted text.
type Vector struct {
	ID         int64     `json:"id"`
	ResourceID string    `json:"resource_id"`
	UserID     string    `json:"user_id"`
	Content    string    `json:"content"`
	Embedding  []float32 `json:"embedding"`
	Ctime      int64     `json:"ctime"`
}
