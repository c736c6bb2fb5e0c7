// File path: internal/mirror/coordinator.go

// Package mirror implements the dual-write coordinator for journal entries.
// Every logical write targets two asymmetric stores: the authoritative
// remote record store (single source of truth, may fail or rate-limit) and
// the always-writable local replica. The authoritative attempt comes first
// so its identifier and timestamp can be mirrored; the replica write is
// unconditional, substituting a placeholder identifier when the
// authoritative side did not deliver one. No transaction spans the stores.
package mirror

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/jcarrick/logbook/internal/common/telemetry"
	"github.com/jcarrick/logbook/internal/directory"
	"github.com/jcarrick/logbook/internal/recordstore"
	"github.com/jcarrick/logbook/internal/replica"
)

// replicaMirrorTimeout bounds the detached replica write that runs after
// the authoritative outcome is known, so a caller abort mid-flight still
// best-effort completes the mirror.
const replicaMirrorTimeout = 10 * time.Second

// Source tags a WriteResult with which stores reflect the write.
type Source string

const (
	// SourceAuthoritativeReplica means both stores accepted the write.
	SourceAuthoritativeReplica Source = "authoritative+replica"
	// SourceReplicaOnly means only the local replica holds the write; a
	// placeholder identifier awaits reconciliation.
	SourceReplicaOnly Source = "replica-only"
)

// WriteResult is the caller-facing, serializable outcome of a coordinated
// write.
type WriteResult struct {
	OK                     bool           `json:"ok"`
	Source                 Source         `json:"source"`
	ProjectLocalID         string         `json:"projectLocalId"`
	AuthoritativeProjectID *string        `json:"authoritativeProjectId"`
	Replica                *replica.Entry `json:"replica"`
	AuthoritativeID        *string        `json:"authoritativeId"`
	AuthoritativeError     *string        `json:"authoritativeError"`
}

// EntryPatch is a partial mutation for UpdateEntry. Nil fields are left
// untouched; Tags replaces the whole tag set when non-nil.
type EntryPatch struct {
	Category *string
	Content  *string
	Tags     []string
}

// ReplicaStore is the slice of the replica store the coordinator writes
// through.
type ReplicaStore interface {
	InsertEntry(ctx context.Context, entry replica.Entry) (*replica.Entry, error)
	GetEntry(ctx context.Context, recordID string) (*replica.Entry, error)
	UpdateEntry(ctx context.Context, recordID string, patch replica.EntryPatch) error
	DeleteEntry(ctx context.Context, recordID string) error
}

// Coordinator orchestrates create/update/delete across both stores.
type Coordinator struct {
	directory directory.Directory
	records   recordstore.Client
	store     ReplicaStore
	logger    *slog.Logger
	now       func() time.Time
}

// Option customises a Coordinator.
type Option func(*Coordinator)

// WithClock overrides the time source. Primarily used in tests.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		if now != nil {
			c.now = now
		}
	}
}

// New constructs a Coordinator. The record store client may be nil when no
// authoritative store is configured; writes then degrade to replica-only.
func New(dir directory.Directory, records recordstore.Client, store ReplicaStore, logger *slog.Logger, opts ...Option) (*Coordinator, error) {
	if dir == nil {
		return nil, errors.New("mirror: directory required")
	}
	if store == nil {
		return nil, errors.New("mirror: replica store required")
	}
	if logger == nil {
		return nil, errors.New("mirror: logger required")
	}
	coord := &Coordinator{
		directory: dir,
		records:   records,
		store:     store,
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(coord)
		}
	}
	return coord, nil
}

// CreateEntry validates the input, resolves the project, attempts the
// authoritative create, and unconditionally mirrors the row into the
// replica. It fails fast on validation or lookup errors, degrades to
// replica-only on any authoritative failure, and propagates a replica
// failure only when the replica was the sole attempted persistence.
func (c *Coordinator) CreateEntry(ctx context.Context, localProjectID, category, content string, tags []string) (*WriteResult, error) {
	start := c.now()
	localProjectID = strings.TrimSpace(localProjectID)
	category = strings.TrimSpace(category)
	content = strings.TrimSpace(content)
	if localProjectID == "" {
		return nil, invalidArgument("localProjectId")
	}
	if category == "" {
		return nil, invalidArgument("category")
	}
	if content == "" {
		return nil, invalidArgument("content")
	}
	normalized := NormalizeTags(tags)

	project, err := c.directory.ResolveProject(ctx, localProjectID)
	if err != nil {
		return nil, err
	}

	var (
		authResult *recordstore.CreateResult
		authErr    error
	)
	if project.AuthoritativeID != nil {
		authResult, authErr = c.authoritativeCreate(ctx, *project.AuthoritativeID, recordstore.Fields{
			Category: category,
			Content:  content,
			Tags:     recordstore.TagList(normalized),
		})
	} else {
		c.logger.Warn("mirror: project has no authoritative mapping, skipping authoritative write",
			"project", localProjectID)
	}

	recordID := ""
	createdAt := ""
	if authResult != nil {
		recordID = authResult.ID
		createdAt = strings.TrimSpace(authResult.CreatedAt)
	} else {
		recordID = GeneratePlaceholderID()
	}
	if createdAt == "" {
		createdAt = c.now().UTC().Format(time.RFC3339)
	}

	entry := replica.Entry{
		RecordID:               recordID,
		AuthoritativeProjectID: project.AuthoritativeID,
		Category:               category,
		Content:                content,
		Tags:                   SerializeTags(normalized),
		CreatedAt:              createdAt,
		LocalProjectID:         localProjectID,
	}

	result := &WriteResult{
		OK:                     true,
		ProjectLocalID:         localProjectID,
		AuthoritativeProjectID: project.AuthoritativeID,
	}
	if authResult != nil {
		result.Source = SourceAuthoritativeReplica
		result.AuthoritativeID = &authResult.ID
	} else {
		result.Source = SourceReplicaOnly
	}
	if authErr != nil {
		msg := authErr.Error()
		result.AuthoritativeError = &msg
	}

	mirrorCtx, cancel := c.mirrorContext(ctx)
	defer cancel()
	stored, replicaErr := c.store.InsertEntry(mirrorCtx, entry)
	if replicaErr != nil {
		if authResult == nil {
			// The replica was the only attempted persistence; nothing
			// durable exists, so the failure is fatal.
			return nil, &ReplicaWriteError{Err: replicaErr}
		}
		// The authoritative store already holds durable truth; report
		// success with a missing replica row.
		c.logger.Error("mirror: replica write failed after authoritative success",
			"record", recordID, "project", localProjectID, "error", replicaErr)
		telemetry.RecordReplicaMiss()
	} else {
		result.Replica = stored
	}

	telemetry.RecordMirrorWrite(string(result.Source), c.now().Sub(start))
	return result, nil
}

// UpdateEntry mutates a mirrored entry in both stores: authoritative first,
// then the replica best-effort. Replica-side errors are logged, never
// surfaced, once the authoritative side has reflected or reported the
// outcome. Placeholder rows skip the authoritative call entirely; the
// remote store has never heard of them.
func (c *Coordinator) UpdateEntry(ctx context.Context, recordID string, patch EntryPatch) (*WriteResult, error) {
	recordID = strings.TrimSpace(recordID)
	if recordID == "" {
		return nil, invalidArgument("recordId")
	}
	if patch.Category == nil && patch.Content == nil && patch.Tags == nil {
		return nil, invalidArgument("patch")
	}
	if patch.Category != nil && strings.TrimSpace(*patch.Category) == "" {
		return nil, invalidArgument("category")
	}
	if patch.Content != nil && strings.TrimSpace(*patch.Content) == "" {
		return nil, invalidArgument("content")
	}

	existing, err := c.store.GetEntry(ctx, recordID)
	if err != nil {
		return nil, err
	}

	normalized := NormalizeTags(patch.Tags)
	fields := recordstore.Fields{}
	replicaPatch := replica.EntryPatch{}
	if patch.Category != nil {
		trimmed := strings.TrimSpace(*patch.Category)
		fields.Category = trimmed
		replicaPatch.Category = &trimmed
	}
	if patch.Content != nil {
		trimmed := strings.TrimSpace(*patch.Content)
		fields.Content = trimmed
		replicaPatch.Content = &trimmed
	}
	if patch.Tags != nil {
		// An empty (but non-nil) tag set clears the tags in both stores.
		fields.Tags = recordstore.TagList(normalized)
		serialized := SerializeTags(normalized)
		replicaPatch.Tags = &serialized
	}

	result := &WriteResult{
		OK:                     true,
		Source:                 SourceReplicaOnly,
		ProjectLocalID:         existing.LocalProjectID,
		AuthoritativeProjectID: existing.AuthoritativeProjectID,
	}

	if IsPlaceholderID(recordID) {
		c.logger.Warn("mirror: updating unconfirmed row, authoritative store skipped", "record", recordID)
	} else {
		authErr := c.authoritativeUpdate(ctx, recordID, fields)
		if authErr != nil {
			msg := authErr.Error()
			result.AuthoritativeError = &msg
		} else {
			result.Source = SourceAuthoritativeReplica
			result.AuthoritativeID = &recordID
		}
	}

	mirrorCtx, cancel := c.mirrorContext(ctx)
	defer cancel()
	if replicaErr := c.store.UpdateEntry(mirrorCtx, recordID, replicaPatch); replicaErr != nil {
		c.logger.Error("mirror: replica update failed", "record", recordID, "error", replicaErr)
		telemetry.RecordReplicaMiss()
	} else if updated, getErr := c.store.GetEntry(mirrorCtx, recordID); getErr == nil {
		result.Replica = updated
	}
	return result, nil
}

// DeleteEntry removes a mirrored entry from both stores: best-effort
// upstream, then the replica. As with updates, replica-side errors are
// logged and never surfaced.
func (c *Coordinator) DeleteEntry(ctx context.Context, recordID string) (*WriteResult, error) {
	recordID = strings.TrimSpace(recordID)
	if recordID == "" {
		return nil, invalidArgument("recordId")
	}
	existing, err := c.store.GetEntry(ctx, recordID)
	if err != nil {
		return nil, err
	}

	result := &WriteResult{
		OK:                     true,
		Source:                 SourceReplicaOnly,
		ProjectLocalID:         existing.LocalProjectID,
		AuthoritativeProjectID: existing.AuthoritativeProjectID,
	}

	if IsPlaceholderID(recordID) {
		c.logger.Warn("mirror: deleting unconfirmed row, authoritative store skipped", "record", recordID)
	} else {
		authErr := c.authoritativeDelete(ctx, recordID)
		if authErr != nil {
			msg := authErr.Error()
			result.AuthoritativeError = &msg
		} else {
			result.Source = SourceAuthoritativeReplica
			result.AuthoritativeID = &recordID
		}
	}

	mirrorCtx, cancel := c.mirrorContext(ctx)
	defer cancel()
	if replicaErr := c.store.DeleteEntry(mirrorCtx, recordID); replicaErr != nil {
		c.logger.Error("mirror: replica delete failed", "record", recordID, "error", replicaErr)
		telemetry.RecordReplicaMiss()
	}
	return result, nil
}

func (c *Coordinator) authoritativeCreate(ctx context.Context, projectRef string, fields recordstore.Fields) (*recordstore.CreateResult, error) {
	if c.records == nil {
		err := errors.New("record store client not configured")
		c.logger.Warn("mirror: authoritative create skipped", "error", err)
		return nil, err
	}
	start := c.now()
	result, err := c.records.Create(ctx, projectRef, fields)
	telemetry.RecordAuthoritativeCall("create", err == nil, c.now().Sub(start))
	if err != nil {
		// Never re-thrown here: the replica write below must still run.
		c.logger.Warn("mirror: authoritative create failed", "project_ref", projectRef, "error", err)
		return nil, err
	}
	return result, nil
}

func (c *Coordinator) authoritativeUpdate(ctx context.Context, recordID string, fields recordstore.Fields) error {
	if c.records == nil {
		err := errors.New("record store client not configured")
		c.logger.Warn("mirror: authoritative update skipped", "error", err)
		return err
	}
	start := c.now()
	err := c.records.Update(ctx, recordID, fields)
	telemetry.RecordAuthoritativeCall("update", err == nil, c.now().Sub(start))
	if err != nil {
		c.logger.Warn("mirror: authoritative update failed", "record", recordID, "error", err)
	}
	return err
}

func (c *Coordinator) authoritativeDelete(ctx context.Context, recordID string) error {
	if c.records == nil {
		err := errors.New("record store client not configured")
		c.logger.Warn("mirror: authoritative delete skipped", "error", err)
		return err
	}
	start := c.now()
	err := c.records.Delete(ctx, recordID)
	telemetry.RecordAuthoritativeCall("delete", err == nil, c.now().Sub(start))
	if err != nil {
		c.logger.Warn("mirror: authoritative delete failed", "record", recordID, "error", err)
	}
	return err
}

// mirrorContext detaches the replica write from the caller's cancellation
// once the authoritative outcome is known, while still bounding it.
func (c *Coordinator) mirrorContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), replicaMirrorTimeout)
}
