package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/pushbridge/pushbridge/logger"
	"github.com/pushbridge/pushbridge/types"
)

type HealthService struct {
	pool      *WorkerPool
	queueSize int
	version   string
	startedAt time.Time
	log       *zap.SugaredLogger
}

func NewHealthService(pool *WorkerPool, queueSize int, version string) *HealthService {
	return &HealthService{
		pool:      pool,
		queueSize: queueSize,
		version:   version,
		startedAt: time.Now(),
		log:       logger.GetLogger(),
	}
}

func (h *HealthService) CheckHealth(ctx context.Context) types.HealthCheck {
	components := make(map[string]types.HealthComponent)
	overallStatus := types.HealthStatusUp

	poolStatus := h.checkWorkerPool()
	components["worker_pool"] = poolStatus
	if poolStatus.Status == types.HealthStatusDown {
		overallStatus = types.HealthStatusDown
	} else if poolStatus.Status == types.HealthStatusDegraded {
		overallStatus = types.HealthStatusDegraded
	}

	return types.HealthCheck{
		Status:     overallStatus,
		Components: components,
		Version:    h.version,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Uptime:     time.Since(h.startedAt).Round(time.Second).String(),
	}
}

func (h *HealthService) checkWorkerPool() types.HealthComponent {
	if h.pool == nil {
		// Async delivery falls back to the exchange goroutine; not fatal.
		return types.HealthComponent{
			Status:  types.HealthStatusDegraded,
			Details: "Worker pool not configured",
		}
	}

	if !h.pool.IsRunning() {
		h.log.Errorw("Worker pool health check failed", "running", false)
		return types.HealthComponent{
			Status:  types.HealthStatusDown,
			Details: "Worker pool is not running",
		}
	}

	depth := h.pool.QueueDepth()
	if h.queueSize > 0 && float64(depth)/float64(h.queueSize) > 0.8 {
		return types.HealthComponent{
			Status:  types.HealthStatusDegraded,
			Details: fmt.Sprintf("Queue near capacity (%d/%d)", depth, h.queueSize),
		}
	}

	return types.HealthComponent{
		Status: types.HealthStatusUp,
	}
}
