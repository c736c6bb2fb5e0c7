// File path: internal/replica/types.go
package replica

import "time"

// Project maps a stable local project identifier to the authoritative
// store's record identifier for that project. LocalID never changes;
// AuthoritativeID, once set, never changes either.
type Project struct {
	LocalID         string    `db:"local_id" json:"localId"`
	AuthoritativeID *string   `db:"authoritative_id" json:"authoritativeId"`
	Name            string    `db:"name" json:"name"`
	Status          string    `db:"status" json:"status"`
	CreatedAt       time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time `db:"updated_at" json:"updatedAt"`
}

// Entry is a mirrored journal row. RecordID is either the authoritative
// identifier or a locally generated placeholder; a placeholder prefix marks
// the row as not yet confirmed upstream.
type Entry struct {
	RecordID               string  `db:"record_id" json:"recordId"`
	AuthoritativeProjectID *string `db:"authoritative_project_id" json:"authoritativeProjectId"`
	Category               string  `db:"category" json:"category"`
	Content                string  `db:"content" json:"content"`
	Tags                   string  `db:"tags" json:"tags"`
	CreatedAt              string  `db:"created_at" json:"createdAt"`
	LocalProjectID         string  `db:"local_project_id" json:"localProjectId"`
}

// EntryPatch describes a partial in-place mutation of an entry. Nil fields
// are left untouched.
type EntryPatch struct {
	Category *string
	Content  *string
	Tags     *string
}

// Empty reports whether the patch would change nothing.
func (p EntryPatch) Empty() bool {
	return p.Category == nil && p.Content == nil && p.Tags == nil
}
