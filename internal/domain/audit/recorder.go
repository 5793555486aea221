package audit

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/lims/lims/internal/platform/auth"
)

// Mode decides what happens when an audit write fails.
type Mode string

const (
	// ModeBestEffort logs and counts the failure and keeps the business change.
	ModeBestEffort Mode = "best_effort"
	// ModeTransactional returns the failure so the caller's transaction rolls back.
	ModeTransactional Mode = "transactional"
)

// Recorder appends one entry per state-changing operation.
type Recorder struct {
	repo     Repository
	mode     Mode
	logger   zerolog.Logger
	failures prometheus.Counter
}

// NewRecorder builds a recorder. failures may be nil.
func NewRecorder(repo Repository, mode Mode, logger zerolog.Logger, failures prometheus.Counter) *Recorder {
	if mode == "" {
		mode = ModeBestEffort
	}
	return &Recorder{repo: repo, mode: mode, logger: logger, failures: failures}
}

func (r *Recorder) Mode() Mode { return r.mode }

// Record writes an entry attributed to actor. In best-effort mode it never
// returns an error.
func (r *Recorder) Record(ctx context.Context, actor auth.Actor, action, module string, details Details) error {
	e := &Entry{
		UserID:        actor.UserID,
		UserName:      actor.Name,
		UserRole:      actor.Role,
		Action:        action,
		Module:        module,
		Details:       details,
		SourceAddress: actor.SourceAddress,
	}
	if e.Details == nil {
		e.Details = Details{}
	}

	err := r.repo.Append(ctx, e)
	if err == nil {
		return nil
	}
	if r.failures != nil {
		r.failures.Inc()
	}
	r.logger.Error().Err(err).
		Str("action", action).
		Str("module", module).
		Str("user_id", actor.UserID).
		Str("mode", string(r.mode)).
		Msg("audit write failed")
	if r.mode == ModeTransactional {
		return fmt.Errorf("record audit entry: %w", err)
	}
	return nil
}
