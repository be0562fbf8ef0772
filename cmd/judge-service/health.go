package main

import (
	"context"
	"sync"
	"time"

	pkgerrors "codejudge/pkg/errors"
	"codejudge/pkg/utils/logger"
	"codejudge/pkg/utils/response"

	"github.com/gin-gonic/gin"
	"github.com/zeromicro/go-zero/core/mr"
	"go.uber.org/zap"
)

const healthTimeout = 2 * time.Second

type pinger interface {
	Ping(ctx context.Context) error
}

// dependency is a backing service probed by /healthz.
type dependency struct {
	name string
	conn pinger
}

// healthCheck pings every dependency concurrently. Any failure answers 503 with the per-dependency status.
func healthCheck(deps ...dependency) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
		defer cancel()

		var mu sync.Mutex
		status := make(map[string]string, len(deps))
		healthy := true
		probes := make([]func() error, 0, len(deps))
		for _, d := range deps {
			d := d
			probes = append(probes, func() error {
				state := "ok"
				if err := d.conn.Ping(ctx); err != nil {
					logger.Warn(ctx, "health probe failed", zap.String("dependency", d.name), zap.Error(err))
					state = err.Error()
				}
				mu.Lock()
				defer mu.Unlock()
				status[d.name] = state
				healthy = healthy && state == "ok"
				return nil
			})
		}
		_ = mr.Finish(probes...)

		if !healthy {
			response.Error(c, pkgerrors.New(pkgerrors.ServiceUnavailable).WithDetail("dependencies", status))
			return
		}
		response.Success(c, gin.H{"status": "ok", "dependencies": status})
	}
}
