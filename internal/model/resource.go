package model

import "fmt"

// ResourceKind tags a resource with the strategy used to load its vectors.
type ResourceKind string

const (
	KindDocument ResourceKind = "document"
	KindWebPage  ResourceKind = "webpage"
	KindBatch    ResourceKind = "batch"
)

func ParseResourceKind(s string) (ResourceKind, error) {
	switch ResourceKind(s) {
	case KindDocument, KindWebPage, KindBatch:
		return ResourceKind(s), nil
	}
	return "", fmt.Errorf("unknown resource kind: %q", s)
}

const (
	ResourceStateNormal  = 1
	ResourceStateDeleted = 2
)

type Resource struct {
	ID       string       `json:"id"`
	UserID   string       `json:"user_id"`
	Kind     ResourceKind `json:"kind"`
	Title    string       `json:"title"`
	FileKey  string       `json:"file_key,omitempty"`
	FileType string       `json:"file_type,omitempty"`
	FileSize int64        `json:"file_size,omitempty"`
	URL      string       `json:"url,omitempty"`
	State    int          `json:"-"`
	Ctime    int64        `json:"ctime"`
}
