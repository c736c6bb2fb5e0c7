// File path: internal/replica/projects.go
package replica

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// GetProject fetches a project row by its stable local identifier.
func (s *Store) GetProject(ctx context.Context, localID string) (*Project, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("replica store not initialised")
	}
	localID = strings.TrimSpace(localID)
	if localID == "" {
		return nil, errors.New("project local id required")
	}
	var project Project
	if err := s.db.GetContext(ctx, &project, `SELECT * FROM projects WHERE local_id = ?`, localID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select project: %w", err)
	}
	return &project, nil
}

// UpsertProject inserts or refreshes a project mapping. The authoritative
// identifier is write-once: a later upsert can set it when it was NULL but
// can never replace an existing value.
func (s *Store) UpsertProject(ctx context.Context, project Project) error {
	if s == nil || s.db == nil {
		return errors.New("replica store not initialised")
	}
	if strings.TrimSpace(project.LocalID) == "" {
		return errors.New("project local id required")
	}
	if strings.TrimSpace(project.Name) == "" {
		return errors.New("project name required")
	}
	if strings.TrimSpace(project.Status) == "" {
		project.Status = "active"
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO projects (local_id, authoritative_id, name, status)
                VALUES (?, ?, ?, ?)
                ON CONFLICT(local_id) DO UPDATE SET
                        authoritative_id = COALESCE(projects.authoritative_id, excluded.authoritative_id),
                        name = excluded.name,
                        status = excluded.status,
                        updated_at = CURRENT_TIMESTAMP`,
		project.LocalID, project.AuthoritativeID, project.Name, project.Status)
	if err != nil {
		return fmt.Errorf("upsert project: %w", err)
	}
	return nil
}

// ListProjects returns all known projects ordered by local identifier.
func (s *Store) ListProjects(ctx context.Context) ([]Project, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("replica store not initialised")
	}
	projects := []Project{}
	if err := s.db.SelectContext(ctx, &projects, `SELECT * FROM projects ORDER BY local_id`); err != nil {
		return nil, fmt.Errorf("select projects: %w", err)
	}
	return projects, nil
}
