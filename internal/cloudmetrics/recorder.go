package cloudmetrics

import (
	"strings"
	"sync"
)

// Recorder captures the aggregate counters a hosted deployment reports to
// the control plane. The default recorder drops everything; Register swaps
// in a real one when cloud reporting is enabled.
type Recorder interface {
	RecordAward(sourceTag string)
	RecordReconcileAction(action string)
	RecordEngineError(operation string)
	UpdateActiveTenants(count int)
}

type recorder struct {
	metrics *metrics
}

type noopRecorder struct{}

func (noopRecorder) RecordAward(string)           {}
func (noopRecorder) RecordReconcileAction(string) {}
func (noopRecorder) RecordEngineError(string)     {}
func (noopRecorder) UpdateActiveTenants(int)      {}

var (
	activeRecorder Recorder = noopRecorder{}
	recorderMu     sync.RWMutex
)

func setRecorder(rec Recorder) {
	if rec == nil {
		return
	}
	recorderMu.Lock()
	activeRecorder = rec
	recorderMu.Unlock()
}

// RecordAward counts one ledger grant by source tag.
func RecordAward(sourceTag string) {
	recorderMu.RLock()
	rec := activeRecorder
	recorderMu.RUnlock()
	rec.RecordAward(sourceTag)
}

// RecordReconcileAction counts one badge grant or revoke.
func RecordReconcileAction(action string) {
	recorderMu.RLock()
	rec := activeRecorder
	recorderMu.RUnlock()
	rec.RecordReconcileAction(action)
}

// RecordEngineError counts one request that failed server-side.
func RecordEngineError(operation string) {
	recorderMu.RLock()
	rec := activeRecorder
	recorderMu.RUnlock()
	rec.RecordEngineError(operation)
}

// UpdateActiveTenants reports how many tenants have a configured ladder.
func UpdateActiveTenants(count int) {
	recorderMu.RLock()
	rec := activeRecorder
	recorderMu.RUnlock()
	rec.UpdateActiveTenants(count)
}

func (r *recorder) RecordAward(sourceTag string) {
	if r == nil || r.metrics == nil {
		return
	}
	r.metrics.awards.WithLabelValues(normalizeLabel(sourceTag)).Inc()
}

func (r *recorder) RecordReconcileAction(action string) {
	if r == nil || r.metrics == nil {
		return
	}
	r.metrics.reconcileActions.WithLabelValues(normalizeLabel(action)).Inc()
}

func (r *recorder) RecordEngineError(operation string) {
	if r == nil || r.metrics == nil {
		return
	}
	r.metrics.engineErrors.WithLabelValues(normalizeLabel(operation)).Inc()
}

func (r *recorder) UpdateActiveTenants(count int) {
	if r == nil || r.metrics == nil {
		return
	}
	if count < 0 {
		count = 0
	}
	r.metrics.activeTenants.Set(float64(count))
}

func normalizeLabel(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "unknown"
	}
	return value
}
