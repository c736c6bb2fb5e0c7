// File path: internal/replica/entries.go
package replica

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// InsertEntry persists a mirrored journal row and returns the stored row.
func (s *Store) InsertEntry(ctx context.Context, entry Entry) (*Entry, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("replica store not initialised")
	}
	if strings.TrimSpace(entry.RecordID) == "" {
		return nil, errors.New("record id required")
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO entries
                (record_id, authoritative_project_id, category, content, tags, created_at, local_project_id)
                VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.RecordID, entry.AuthoritativeProjectID, entry.Category,
		entry.Content, entry.Tags, entry.CreatedAt, entry.LocalProjectID)
	if err != nil {
		return nil, fmt.Errorf("insert entry: %w", err)
	}
	return s.GetEntry(ctx, entry.RecordID)
}

// GetEntry fetches a single entry by its record identifier.
func (s *Store) GetEntry(ctx context.Context, recordID string) (*Entry, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("replica store not initialised")
	}
	var entry Entry
	if err := s.db.GetContext(ctx, &entry, `SELECT * FROM entries WHERE record_id = ?`, recordID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select entry: %w", err)
	}
	return &entry, nil
}

// UpdateEntry applies a partial mutation to an entry in place.
func (s *Store) UpdateEntry(ctx context.Context, recordID string, patch EntryPatch) error {
	if s == nil || s.db == nil {
		return errors.New("replica store not initialised")
	}
	if patch.Empty() {
		return nil
	}
	sets := make([]string, 0, 3)
	args := make([]interface{}, 0, 4)
	if patch.Category != nil {
		sets = append(sets, "category = ?")
		args = append(args, *patch.Category)
	}
	if patch.Content != nil {
		sets = append(sets, "content = ?")
		args = append(args, *patch.Content)
	}
	if patch.Tags != nil {
		sets = append(sets, "tags = ?")
		args = append(args, *patch.Tags)
	}
	args = append(args, recordID)
	query := fmt.Sprintf(`UPDATE entries SET %s WHERE record_id = ?`, strings.Join(sets, ", "))
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update entry: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update entry rows: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteEntry removes an entry by its record identifier. Deleting a missing
// row is not an error.
func (s *Store) DeleteEntry(ctx context.Context, recordID string) error {
	if s == nil || s.db == nil {
		return errors.New("replica store not initialised")
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM entries WHERE record_id = ?`, recordID); err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	return nil
}

// ListEntriesByProject returns every mirrored entry for a project, newest
// first.
func (s *Store) ListEntriesByProject(ctx context.Context, localProjectID string) ([]Entry, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("replica store not initialised")
	}
	entries := []Entry{}
	if err := s.db.SelectContext(ctx, &entries, `SELECT * FROM entries
                WHERE local_project_id = ?
                ORDER BY created_at DESC, record_id DESC`, localProjectID); err != nil {
		return nil, fmt.Errorf("select entries: %w", err)
	}
	return entries, nil
}

// ListPendingEntries returns entries whose record identifier carries the
// given placeholder prefix, oldest first, bounded by limit.
func (s *Store) ListPendingEntries(ctx context.Context, prefix string, limit int) ([]Entry, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("replica store not initialised")
	}
	if strings.TrimSpace(prefix) == "" {
		return nil, errors.New("placeholder prefix required")
	}
	if limit <= 0 {
		limit = 100
	}
	entries := []Entry{}
	pattern := escapeLike(prefix) + "%"
	if err := s.db.SelectContext(ctx, &entries, `SELECT * FROM entries
                WHERE record_id LIKE ? ESCAPE '\'
                ORDER BY created_at, record_id
                LIMIT ?`, pattern, limit); err != nil {
		return nil, fmt.Errorf("select pending entries: %w", err)
	}
	return entries, nil
}

// CountPendingEntries reports how many rows still carry the placeholder
// prefix.
func (s *Store) CountPendingEntries(ctx context.Context, prefix string) (int, error) {
	if s == nil || s.db == nil {
		return 0, errors.New("replica store not initialised")
	}
	var count int
	pattern := escapeLike(prefix) + "%"
	if err := s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM entries WHERE record_id LIKE ? ESCAPE '\'`, pattern); err != nil {
		return 0, fmt.Errorf("count pending entries: %w", err)
	}
	return count, nil
}

// PromoteEntry renames a placeholder row's primary key to its confirmed
// authoritative identifier and records the authoritative project reference.
// The rename is a single-row UPDATE and therefore atomic.
func (s *Store) PromoteEntry(ctx context.Context, placeholderID, authoritativeID, authoritativeProjectID string) error {
	if s == nil || s.db == nil {
		return errors.New("replica store not initialised")
	}
	if strings.TrimSpace(authoritativeID) == "" {
		return errors.New("authoritative id required")
	}
	res, err := s.db.ExecContext(ctx, `UPDATE entries
                SET record_id = ?, authoritative_project_id = ?
                WHERE record_id = ?`,
		authoritativeID, nullable(authoritativeProjectID), placeholderID)
	if err != nil {
		return fmt.Errorf("promote entry: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("promote entry rows: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	s.recordAudit(ctx, "entry_promoted", fmt.Sprintf("%s -> %s", placeholderID, authoritativeID))
	return nil
}

func nullable(value string) interface{} {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func escapeLike(value string) string {
	value = strings.ReplaceAll(value, `\`, `\\`)
	value = strings.ReplaceAll(value, "%", `\%`)
	value = strings.ReplaceAll(value, "_", `\_`)
	return value
}
