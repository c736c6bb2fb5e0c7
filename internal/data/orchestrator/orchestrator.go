// File path: internal/data/orchestrator/orchestrator.go
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/jcarrick/logbook/internal/common"
	"github.com/jcarrick/logbook/internal/directory"
	"github.com/jcarrick/logbook/internal/mirror"
	"github.com/jcarrick/logbook/internal/reconcile"
	"github.com/jcarrick/logbook/internal/recordstore"
	"github.com/jcarrick/logbook/internal/replica"
)

type closer interface {
	Close() error
}

// Orchestrator wires together the stores, the dual-write coordinator, and
// the reconciler that back the logbook server, and exposes convenience
// accessors for the API layer.
type Orchestrator struct {
	cfg Config

	store       *replica.Store
	directory   directory.Directory
	records     recordstore.Client
	coordinator *mirror.Coordinator
	reconciler  *reconcile.Reconciler

	syncDisabled bool
	syncCancel   context.CancelFunc

	closers []closer
}

// New constructs an orchestrator from the provided configuration and
// optional overrides.
func New(ctx context.Context, cfg Config, opts ...Option) (*Orchestrator, error) {
	cfg = applyDefaults(cfg)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	settings := options{}
	for _, opt := range opts {
		if opt != nil {
			opt(&settings)
		}
	}
	logger := common.Logger()

	store, err := replica.Open(cfg.ReplicaPath)
	if err != nil {
		return nil, fmt.Errorf("init replica store: %w", err)
	}
	dir := directory.New(store)

	var records recordstore.Client
	switch {
	case settings.records != nil:
		records = settings.records
	case shouldEnableRecordStore():
		client, err := recordstore.NewFromEnv(ctx)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("init record store client: %w", err)
		}
		records = client
	default:
		logger.Warn("orchestrator: no record store configured, all writes will be replica-only")
	}

	coordinator, err := mirror.New(dir, records, store, logger)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("init coordinator: %w", err)
	}
	reconciler, err := reconcile.New(store, records, dir, logger, reconcile.Config{
		Interval:     cfg.SyncInterval,
		Timeout:      cfg.SyncTimeout,
		MaxRetries:   cfg.MaxSyncRetries,
		RetryBackoff: cfg.RetryBackoff,
		BatchSize:    cfg.SyncBatchSize,
	})
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("init reconciler: %w", err)
	}

	orch := &Orchestrator{
		cfg:          cfg,
		store:        store,
		directory:    dir,
		records:      records,
		coordinator:  coordinator,
		reconciler:   reconciler,
		syncDisabled: settings.disableSync,
	}
	orch.closers = append(orch.closers, store)
	if c, ok := records.(closer); ok && c != nil {
		orch.closers = append(orch.closers, c)
	}
	return orch, nil
}

// StartSync launches the background reconciliation loop unless it was
// disabled via options.
func (o *Orchestrator) StartSync(ctx context.Context) {
	if o == nil || o.syncDisabled {
		return
	}
	syncCtx, cancel := context.WithCancel(ctx)
	o.syncCancel = cancel
	go o.reconciler.Run(syncCtx)
}

// Replica exposes the replica store.
func (o *Orchestrator) Replica() *replica.Store {
	if o == nil {
		return nil
	}
	return o.store
}

// Directory exposes the project directory lookup.
func (o *Orchestrator) Directory() directory.Directory {
	if o == nil {
		return nil
	}
	return o.directory
}

// Records exposes the authoritative record store client, which may be nil
// when none is configured.
func (o *Orchestrator) Records() recordstore.Client {
	if o == nil {
		return nil
	}
	return o.records
}

// Coordinator exposes the dual-write coordinator.
func (o *Orchestrator) Coordinator() *mirror.Coordinator {
	if o == nil {
		return nil
	}
	return o.coordinator
}

// Reconciler exposes the reconciliation sweeper.
func (o *Orchestrator) Reconciler() *reconcile.Reconciler {
	if o == nil {
		return nil
	}
	return o.reconciler
}

// Close stops the sync loop and releases any resources associated with the
// orchestrator.
func (o *Orchestrator) Close() error {
	if o == nil {
		return nil
	}
	if o.syncCancel != nil {
		o.syncCancel()
	}
	var err error
	for i := len(o.closers) - 1; i >= 0; i-- {
		c := o.closers[i]
		if c == nil {
			continue
		}
		if cerr := c.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}
	return err
}

func shouldEnableRecordStore() bool {
	keys := []string{
		"RECORDSTORE_CONFIG_FILE",
		"RECORDSTORE_HOST",
		"RECORDSTORE_PORT",
		"RECORDSTORE_SCHEME",
		"RECORDSTORE_API_KEY",
		"RECORDSTORE_TIMEOUT",
		"RECORDSTORE_HTTP_MAX_IDLE_CONNS",
		"RECORDSTORE_HTTP_MAX_IDLE_PER_HOST",
		"RECORDSTORE_HTTP_MAX_CONNS_PER_HOST",
		"RECORDSTORE_HTTP_IDLE_CONN_TIMEOUT",
	}
	for _, key := range keys {
		if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
			return true
		}
	}
	return false
}
