package workers

import (
	"context"
	"log/slog"
	"time"
)

// RankingPipeline is anything that can run one collect+publish cycle.
type RankingPipeline interface {
	Update(ctx context.Context) error
}

// RankingUpdate runs the ranking pipeline on a fixed interval, with one
// immediate cycle at startup so a fresh deployment shows a scoreboard
// without waiting a full period.
type RankingUpdate struct {
	log      *slog.Logger
	pipeline RankingPipeline
	interval time.Duration
}

func NewRankingUpdate(log *slog.Logger, pipeline RankingPipeline, interval time.Duration) *RankingUpdate {
	return &RankingUpdate{log: log, pipeline: pipeline, interval: interval}
}

func (w *RankingUpdate) Run(ctx context.Context) error {
	if err := w.pipeline.Update(ctx); err != nil {
		w.log.Warn("initial ranking cycle failed", "error", err)
	}
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := w.pipeline.Update(ctx); err != nil {
				w.log.Warn("ranking cycle failed", "error", err)
			}
		}
	}
}
