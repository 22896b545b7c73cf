package controller

import (
	"context"
	"course_hub_backend/internal/util"
	"course_hub_backend/pkg/logger"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// HealthCheck pings one backing dependency.
type HealthCheck func(ctx context.Context) error

type HealthController struct {
	checks  map[string]HealthCheck
	timeout time.Duration
}

func NewHealthController(checks map[string]HealthCheck) *HealthController {
	return &HealthController{checks: checks, timeout: 3 * time.Second}
}

// @Summary 健康检查
// @Description 检查数据库与缓存连接状态
// @Tags 系统
// @Produce json
// @Success 200 {object} util.Response
// @Failure 503 {object} util.Response
// @Router /api/health [get]
func (c *HealthController) HealthCheck(ctx *gin.Context) {
	checkCtx, cancel := context.WithTimeout(ctx.Request.Context(), c.timeout)
	defer cancel()

	var mu sync.Mutex
	components := make(gin.H, len(c.checks))

	// 每个依赖独立探测，单个失败不取消其余探测; Wait 返回第一个失败
	var g errgroup.Group
	for name, check := range c.checks {
		name, check := name, check
		g.Go(func() error {
			err := check(checkCtx)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				components[name] = "down"
				return fmt.Errorf("%s: %w", name, err)
			}
			components[name] = "up"
			return nil
		})
	}
	err := g.Wait()
	healthy := err == nil
	if !healthy {
		logger.Log.Warn("health check failed", zap.Error(err))
	}

	if !healthy {
		ctx.JSON(http.StatusServiceUnavailable, util.Response{
			Code:    http.StatusServiceUnavailable,
			Message: "degraded",
			Data:    gin.H{"status": "degraded", "components": components},
		})
		return
	}

	util.Success(ctx, gin.H{
		"status":     "ok",
		"components": components,
	})
}
