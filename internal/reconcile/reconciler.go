// File path: internal/reconcile/reconciler.go

// Package reconcile promotes placeholder replica rows once the
// authoritative store accepts them. The sweep keys off the placeholder
// prefix alone, so it is idempotent and safe to retry indefinitely: a row
// that failed to promote is simply found again by the next pass, and a
// confirmed row is never scanned at all.
package reconcile

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/jcarrick/logbook/internal/common/telemetry"
	"github.com/jcarrick/logbook/internal/directory"
	"github.com/jcarrick/logbook/internal/mirror"
	"github.com/jcarrick/logbook/internal/recordstore"
	"github.com/jcarrick/logbook/internal/replica"
)

// Store is the slice of the replica store the reconciler needs.
type Store interface {
	ListPendingEntries(ctx context.Context, prefix string, limit int) ([]replica.Entry, error)
	CountPendingEntries(ctx context.Context, prefix string) (int, error)
	PromoteEntry(ctx context.Context, placeholderID, authoritativeID, authoritativeProjectID string) error
}

// SweepStats summarises a single reconciliation pass.
type SweepStats struct {
	At       time.Time `json:"at"`
	Scanned  int       `json:"scanned"`
	Promoted int       `json:"promoted"`
	Skipped  int       `json:"skipped"`
	Failed   int       `json:"failed"`
}

// Status reports reconciler progress for the sync endpoints.
type Status struct {
	Running       bool        `json:"running"`
	Pending       int         `json:"pending"`
	TotalPromoted int         `json:"total_promoted"`
	LastSweep     *SweepStats `json:"last_sweep,omitempty"`
}

// Reconciler scans for placeholder rows and promotes them.
type Reconciler struct {
	store     Store
	records   recordstore.Client
	directory directory.Directory
	logger    *slog.Logger
	cfg       Config

	mu            sync.RWMutex
	running       bool
	lastSweep     *SweepStats
	totalPromoted int
}

// New constructs a Reconciler.
func New(store Store, records recordstore.Client, dir directory.Directory, logger *slog.Logger, cfg Config) (*Reconciler, error) {
	if store == nil {
		return nil, errors.New("reconcile: replica store required")
	}
	if dir == nil {
		return nil, errors.New("reconcile: directory required")
	}
	if logger == nil {
		return nil, errors.New("reconcile: logger required")
	}
	cfg = applyDefaults(cfg)
	return &Reconciler{
		store:     store,
		records:   records,
		directory: dir,
		logger:    logger,
		cfg:       cfg,
	}, nil
}

// Sweep performs one reconciliation pass. Rows that cannot be promoted are
// left untouched for the next sweep.
func (r *Reconciler) Sweep(ctx context.Context) (SweepStats, error) {
	stats := SweepStats{At: time.Now().UTC()}
	if r == nil {
		return stats, errors.New("reconciler not initialised")
	}
	ctx, done := telemetry.StartSpan(ctx, "reconcile.sweep")
	defer func() { done("promoted", stats.Promoted, "failed", stats.Failed) }()
	entries, err := r.store.ListPendingEntries(ctx, mirror.PlaceholderPrefix, r.cfg.BatchSize)
	if err != nil {
		return stats, err
	}
	stats.Scanned = len(entries)
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		// Defensive: listing is prefix-bound already, but promotion of a
		// confirmed row must stay a no-op.
		if !mirror.IsPlaceholderID(entry.RecordID) {
			stats.Skipped++
			continue
		}
		switch r.promote(ctx, entry) {
		case promoted:
			stats.Promoted++
		case skipped:
			stats.Skipped++
		case failed:
			stats.Failed++
		}
	}
	r.mu.Lock()
	statsCopy := stats
	r.lastSweep = &statsCopy
	r.totalPromoted += stats.Promoted
	r.mu.Unlock()
	telemetry.RecordReconcileSweep(stats.Promoted, stats.Failed)
	if stats.Scanned > 0 {
		r.logger.Info("reconcile: sweep complete",
			"scanned", stats.Scanned, "promoted", stats.Promoted,
			"skipped", stats.Skipped, "failed", stats.Failed)
	}
	return stats, nil
}

type promoteOutcome int

const (
	promoted promoteOutcome = iota
	skipped
	failed
)

func (r *Reconciler) promote(ctx context.Context, entry replica.Entry) promoteOutcome {
	project, err := r.directory.ResolveProject(ctx, entry.LocalProjectID)
	if err != nil {
		if errors.Is(err, directory.ErrProjectNotFound) {
			r.logger.Warn("reconcile: pending row references unknown project",
				"record", entry.RecordID, "project", entry.LocalProjectID)
			return skipped
		}
		r.logger.Warn("reconcile: project lookup failed",
			"record", entry.RecordID, "error", err)
		return failed
	}
	if project.AuthoritativeID == nil {
		// The project itself has not been provisioned upstream yet; the
		// row stays pending until it is.
		return skipped
	}
	if r.records == nil {
		return skipped
	}

	result, err := r.records.Create(ctx, *project.AuthoritativeID, recordstore.Fields{
		Category: entry.Category,
		Content:  entry.Content,
		Tags:     recordstore.TagList(mirror.ParseTagString(entry.Tags)),
	})
	if err != nil {
		r.logger.Warn("reconcile: authoritative create failed",
			"record", entry.RecordID, "error", err)
		return failed
	}
	authoritativeProjectID := ""
	if project.AuthoritativeID != nil {
		authoritativeProjectID = *project.AuthoritativeID
	}
	if err := r.store.PromoteEntry(ctx, entry.RecordID, result.ID, authoritativeProjectID); err != nil {
		// The authoritative row now exists but the rename failed; the
		// next sweep would create a duplicate upstream. Surface loudly.
		r.logger.Error("reconcile: promote failed after authoritative create",
			"record", entry.RecordID, "authoritative_id", result.ID, "error", err)
		return failed
	}
	r.logger.Info("reconcile: entry promoted",
		"record", entry.RecordID, "authoritative_id", result.ID)
	return promoted
}

// Run executes sweeps on the configured interval until the context is
// cancelled. A failed cycle is retried with linear backoff up to
// MaxRetries before waiting for the next tick.
func (r *Reconciler) Run(ctx context.Context) {
	if r == nil {
		return
	}
	r.setRunning(true)
	defer r.setRunning(false)
	r.logger.Info("reconcile: background loop started",
		"interval", r.cfg.Interval, "timeout", r.cfg.Timeout)
	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("reconcile: background loop stopped")
			return
		case <-ticker.C:
			r.runCycle(ctx)
		}
	}
}

func (r *Reconciler) runCycle(ctx context.Context) {
	for attempt := 0; attempt <= r.cfg.MaxRetries; attempt++ {
		cycleCtx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
		_, err := r.Sweep(cycleCtx)
		cancel()
		if err == nil {
			return
		}
		if ctx.Err() != nil {
			return
		}
		r.logger.Warn("reconcile: cycle failed", "attempt", attempt+1, "error", err)
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Duration(attempt+1) * r.cfg.RetryBackoff):
		}
	}
}

// Status reports current reconciler state, including the replica's pending
// row count.
func (r *Reconciler) Status(ctx context.Context) (Status, error) {
	if r == nil {
		return Status{}, errors.New("reconciler not initialised")
	}
	pending, err := r.store.CountPendingEntries(ctx, mirror.PlaceholderPrefix)
	if err != nil {
		return Status{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	status := Status{
		Running:       r.running,
		Pending:       pending,
		TotalPromoted: r.totalPromoted,
	}
	if r.lastSweep != nil {
		sweepCopy := *r.lastSweep
		status.LastSweep = &sweepCopy
	}
	return status, nil
}

func (r *Reconciler) setRunning(running bool) {
	r.mu.Lock()
	r.running = running
	r.mu.Unlock()
}
