// File path: internal/directory/directory.go

// Package directory resolves stable local project identifiers to their
// authoritative store counterparts. It is a pure read-only lookup; project
// rows are created and maintained elsewhere.
package directory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jcarrick/logbook/internal/replica"
)

// ErrProjectNotFound is returned when no project matches the local
// identifier. Callers treat it as a hard precondition failure and never
// retry it.
var ErrProjectNotFound = errors.New("directory: project not found")

// Project is the resolved mapping for a local project identifier.
// AuthoritativeID is nil until the project exists upstream.
type Project struct {
	LocalID         string
	AuthoritativeID *string
	Name            string
	Status          string
}

// Directory looks up project mappings.
type Directory interface {
	ResolveProject(ctx context.Context, localID string) (*Project, error)
}

// ReplicaDirectory serves lookups from the replica store's projects table.
type ReplicaDirectory struct {
	store *replica.Store
}

// New constructs a directory backed by the provided replica store.
func New(store *replica.Store) *ReplicaDirectory {
	return &ReplicaDirectory{store: store}
}

// ResolveProject returns the project mapped to localID, or
// ErrProjectNotFound when no row matches.
func (d *ReplicaDirectory) ResolveProject(ctx context.Context, localID string) (*Project, error) {
	if d == nil || d.store == nil {
		return nil, errors.New("directory not initialised")
	}
	localID = strings.TrimSpace(localID)
	if localID == "" {
		return nil, ErrProjectNotFound
	}
	row, err := d.store.GetProject(ctx, localID)
	if err != nil {
		if errors.Is(err, replica.ErrNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("resolve project %q: %w", localID, err)
	}
	project := &Project{
		LocalID: row.LocalID,
		Name:    row.Name,
		Status:  row.Status,
	}
	if row.AuthoritativeID != nil && strings.TrimSpace(*row.AuthoritativeID) != "" {
		id := strings.TrimSpace(*row.AuthoritativeID)
		project.AuthoritativeID = &id
	}
	return project, nil
}

var _ Directory = (*ReplicaDirectory)(nil)
