package service

import (
	"context"
	"time"

	"ai-docfill-be/internal/pkg/logger"
	"ai-docfill-be/internal/repository/contract"
)

// IJanitorService removes artifacts older than the session TTL whose session
// is gone: files behind expired redis keys and files left by an earlier run.
// The memory store also cleans up through its eviction hook.
type IJanitorService interface {
	Run(ctx context.Context)
	Sweep(ctx context.Context) (int, error)
}

type janitorService struct {
	artifacts contract.ArtifactRepository
	sessions  contract.SessionRepository
	ttl       time.Duration
	interval  time.Duration
	logger    logger.ILogger
}

func NewJanitorService(
	artifacts contract.ArtifactRepository,
	sessions contract.SessionRepository,
	ttl, interval time.Duration,
	log logger.ILogger,
) IJanitorService {
	return &janitorService{
		artifacts: artifacts,
		sessions:  sessions,
		ttl:       ttl,
		interval:  interval,
		logger:    log,
	}
}

// Run sweeps every interval until ctx is done.
func (j *janitorService) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := j.Sweep(ctx); err != nil {
				j.logger.Error("JANITOR", "Artifact sweep failed", map[string]interface{}{
					"error": err.Error(),
				})
			}
		}
	}
}

func (j *janitorService) Sweep(ctx context.Context) (int, error) {
	keep := func(fileID string) bool {
		_, found, err := j.sessions.Get(ctx, fileID)
		// Keep on lookup errors; the next sweep retries.
		return found || err != nil
	}

	removed, err := j.artifacts.Sweep(time.Now().Add(-j.ttl), keep)
	if removed > 0 {
		j.logger.Info("JANITOR", "Removed expired artifacts", map[string]interface{}{
			"removed": removed,
		})
	}
	return removed, err
}
