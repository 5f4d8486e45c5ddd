package retention

import (
	"context"
	"log/slog"
	"time"

	"mercator-hq/tripwire/pkg/eventlog"
)

// Config contains retention settings.
type Config struct {
	// RetentionDays removes events older than this many days. Zero disables
	// age-based pruning.
	RetentionDays int

	// MaxEvents caps the total event count; oldest events are trimmed first.
	// Zero disables count-based pruning.
	MaxEvents int

	// PruneSchedule is a cron expression for scheduled pruning (e.g.
	// "0 3 * * *" for daily at 3 AM). Empty disables the scheduler.
	PruneSchedule string
}

// Pruner removes events past the retention policy.
type Pruner struct {
	storage eventlog.Storage
	config  *Config
	logger  *slog.Logger
}

// NewPruner creates a pruner over the given storage.
func NewPruner(storage eventlog.Storage, config *Config) *Pruner {
	if config == nil {
		config = &Config{}
	}
	return &Pruner{
		storage: storage,
		config:  config,
		logger:  slog.Default().With("component", "eventlog.retention"),
	}
}

// Prune runs one pruning cycle: age-based first, then count-based. It
// returns the total number of deleted events.
func (p *Pruner) Prune(ctx context.Context) (int, error) {
	total := 0

	if p.config.RetentionDays > 0 {
		cutoff := time.Now().AddDate(0, 0, -p.config.RetentionDays)
		deleted, err := p.storage.DeleteBefore(ctx, cutoff)
		if err != nil {
			return total, err
		}
		total += deleted
		if deleted > 0 {
			p.logger.Info("pruned events by age",
				"deleted", deleted,
				"cutoff", cutoff,
			)
		}
	}

	if p.config.MaxEvents > 0 {
		deleted, err := p.storage.TrimTo(ctx, p.config.MaxEvents)
		if err != nil {
			return total, err
		}
		total += deleted
		if deleted > 0 {
			p.logger.Info("pruned events by count",
				"deleted", deleted,
				"max_events", p.config.MaxEvents,
			)
		}
	}

	return total, nil
}
