// File path: internal/common/telemetry/telemetry.go
package telemetry

import (
	"context"
	"expvar"
	"strings"
	"sync"
	"time"

	"github.com/jcarrick/logbook/internal/common"
)

type spanKey struct{}

type span struct {
	name  string
	start time.Time
}

var (
	initOnce sync.Once

	mirrorWritesTotal    *expvar.Map
	mirrorReplicaMisses  *expvar.Int
	mirrorWriteLatencyMS *expvar.Int

	authoritativeCallTotal     *expvar.Map
	authoritativeCallLatencyMS *expvar.Int

	reconcileSweepsTotal     *expvar.Int
	reconcilePromotionsTotal *expvar.Int
	reconcileFailuresTotal   *expvar.Int
)

func ensureInit() {
	initOnce.Do(func() {
		mirrorWritesTotal = expvar.NewMap("logbook_mirror_writes_total")
		mirrorReplicaMisses = expvar.NewInt("logbook_mirror_replica_misses_total")
		mirrorWriteLatencyMS = expvar.NewInt("logbook_mirror_write_latency_ms")

		authoritativeCallTotal = expvar.NewMap("logbook_authoritative_calls_total")
		authoritativeCallLatencyMS = expvar.NewInt("logbook_authoritative_call_latency_ms")

		reconcileSweepsTotal = expvar.NewInt("logbook_reconcile_sweeps_total")
		reconcilePromotionsTotal = expvar.NewInt("logbook_reconcile_promotions_total")
		reconcileFailuresTotal = expvar.NewInt("logbook_reconcile_failures_total")
	})
}

// StartSpan begins a debug trace span and returns a completion callback.
func StartSpan(ctx context.Context, name string) (context.Context, func(attrs ...interface{})) {
	ensureInit()
	sp := &span{name: name, start: time.Now()}
	ctx = context.WithValue(ctx, spanKey{}, sp)
	logger := common.Logger()
	logger.Debug("trace: start", "span", name)
	return ctx, func(attrs ...interface{}) {
		duration := time.Since(sp.start)
		logger.Debug("trace: end", append([]interface{}{"span", name, "dur", duration}, attrs...)...)
	}
}

// RecordMirrorWrite counts a completed coordinator write by its result source
// ("authoritative+replica" or "replica-only").
func RecordMirrorWrite(source string, duration time.Duration) {
	ensureInit()
	key := strings.TrimSpace(strings.ToLower(source))
	if key == "" {
		key = "unknown"
	}
	mirrorWritesTotal.Add(key, 1)
	if duration > 0 {
		mirrorWriteLatencyMS.Add(duration.Milliseconds())
	}
}

// RecordReplicaMiss counts a replica write that failed after the
// authoritative store had already accepted the record.
func RecordReplicaMiss() {
	ensureInit()
	mirrorReplicaMisses.Add(1)
}

// RecordAuthoritativeCall counts an attempt against the authoritative record
// store by operation ("create", "update", "delete") and outcome.
func RecordAuthoritativeCall(op string, ok bool, duration time.Duration) {
	ensureInit()
	key := strings.TrimSpace(strings.ToLower(op))
	if key == "" {
		key = "unknown"
	}
	if ok {
		key += "_ok"
	} else {
		key += "_err"
	}
	authoritativeCallTotal.Add(key, 1)
	if duration > 0 {
		authoritativeCallLatencyMS.Add(duration.Milliseconds())
	}
}

// RecordReconcileSweep counts one reconciliation pass and its outcomes.
func RecordReconcileSweep(promoted, failed int) {
	ensureInit()
	reconcileSweepsTotal.Add(1)
	if promoted > 0 {
		reconcilePromotionsTotal.Add(int64(promoted))
	}
	if failed > 0 {
		reconcileFailuresTotal.Add(int64(failed))
	}
}
