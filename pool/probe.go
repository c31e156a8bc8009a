package pool

import (
	"log/slog"
	"time"
)

// livenessProbe decides whether a candidate connection is usable right
// now. It never mutates pool state directly — Acquire decides what to do
// with the verdict.
type livenessProbe struct {
	enabled       bool
	query         string
	idleThreshold time.Duration // negative disables idle-gating entirely
	logger        *slog.Logger
}

// check runs the liveness decision: already-closed, then disabled,
// then idle-threshold gating, then an actual ping query. A false result
// means the candidate should be discarded (badConnectionCount incremented)
// by the caller; check has already closed the physical connection
// best-effort when the probe query itself failed.
func (p *livenessProbe) check(h *connectionHandle) bool {
	closed, err := h.physical.IsClosed()
	if err != nil || closed {
		return false
	}

	if !p.enabled {
		return true
	}

	if p.idleThreshold >= 0 && time.Since(h.lastUsedAt) <= p.idleThreshold {
		return true
	}

	stmt, err := h.physical.CreateStatement()
	if err != nil {
		p.logger.Debug("liveness probe: could not create statement", "conn_id", h.connID, "err", err)
		p.closeBestEffort(h)
		return false
	}
	defer func() { _ = stmt.Close() }()

	if err := stmt.Execute(p.query); err != nil {
		p.logger.Debug("liveness probe query failed", "conn_id", h.connID, "err", err)
		p.closeBestEffort(h)
		return false
	}

	if autoCommit, err := h.physical.AutoCommit(); err == nil && !autoCommit {
		if err := h.physical.Rollback(); err != nil {
			p.logger.Debug("liveness probe: rollback after ping failed", "conn_id", h.connID, "err", err)
		}
	}

	return true
}

func (p *livenessProbe) closeBestEffort(h *connectionHandle) {
	if err := h.physical.Close(); err != nil {
		p.logger.Debug("liveness probe: close after failed probe errored", "conn_id", h.connID, "err", err)
	}
}
