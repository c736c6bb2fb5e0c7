// File path: internal/data/orchestrator/options.go
package orchestrator

import (
	"github.com/jcarrick/logbook/internal/recordstore"
)

type Option func(*options)

type options struct {
	disableSync bool
	records     recordstore.Client
}

// WithSyncDisabled prevents the orchestrator from starting the background
// reconciliation loop. Primarily used in tests.
func WithSyncDisabled() Option {
	return func(o *options) {
		o.disableSync = true
	}
}

// WithRecordStore injects a record store client implementation.
func WithRecordStore(client recordstore.Client) Option {
	return func(o *options) {
		o.records = client
	}
}
