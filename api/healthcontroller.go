package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const healthTimeout = 3 * time.Second

type pinger interface {
	Ping(ctx context.Context) error
}

// RegisterHealthRoutes registers health check endpoints.
// The metagraph is reported but does not make the service unhealthy.
func RegisterHealthRoutes(r *gin.Engine, store pinger, mg NodeInfoClient) {
	r.GET("/api/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
		defer cancel()

		status, code := "ok", http.StatusOK
		mongo := "ok"
		if err := store.Ping(ctx); err != nil {
			_ = c.Error(err)
			mongo = "unavailable"
			status, code = "degraded", http.StatusServiceUnavailable
		}

		metagraph := "disabled"
		if mg != nil {
			metagraph = "ok"
			if _, err := mg.NodeInfo(ctx); err != nil {
				metagraph = "unavailable"
			}
		}

		c.JSON(code, gin.H{"status": status, "mongo": mongo, "metagraph": metagraph})
	})
}

// RegisterMetagraphRoutes exposes the metagraph node information
func RegisterMetagraphRoutes(r *gin.Engine, mg NodeInfoClient) {
	r.GET("/metagraph/info", func(c *gin.Context) {
		info, err := mg.NodeInfo(c.Request.Context())
		if err != nil {
			_ = c.Error(err)
			abortWithDetail(c, http.StatusBadGateway, "Failed to reach metagraph")
			return
		}
		c.JSON(http.StatusOK, info)
	})
}
