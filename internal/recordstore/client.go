// File path: internal/recordstore/client.go

// Package recordstore abstracts the authoritative remote record store. Any
// error returned by a Client means "authoritative unavailable"; callers
// degrade rather than abort.
package recordstore

import "context"

// Fields is the writable portion of an authoritative record. Zero values
// are omitted from update payloads. Tags is a pointer so that "clear the
// tags" (non-nil, empty) and "leave the tags untouched" (nil) stay
// distinguishable on the wire.
type Fields struct {
	Category string    `json:"category,omitempty"`
	Content  string    `json:"content,omitempty"`
	Tags     *[]string `json:"tags,omitempty"`
}

// TagList wraps a tag slice for inclusion in Fields. A nil slice still
// serializes as an explicit empty list, clearing the record's tags.
func TagList(tags []string) *[]string {
	if tags == nil {
		tags = []string{}
	}
	return &tags
}

// CreateResult is the authoritative store's answer to a successful create.
type CreateResult struct {
	ID        string `json:"id"`
	CreatedAt string `json:"created_at"`
}

// Client is the authoritative record store collaborator.
type Client interface {
	Available() bool
	Create(ctx context.Context, projectRef string, fields Fields) (*CreateResult, error)
	Update(ctx context.Context, id string, fields Fields) error
	Delete(ctx context.Context, id string) error
}
