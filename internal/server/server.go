// Package server assembles the HTTP router: shared middleware, the system
// endpoints and the routes of every module.
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mantonx/abrstream/internal/logger"
	"github.com/mantonx/abrstream/internal/middleware"
	"github.com/mantonx/abrstream/internal/modules/transcodingmodule/api"
	"gorm.io/gorm"
)

// Module is a self-contained feature that owns its schema and routes
type Module interface {
	ID() string
	Name() string
	Migrate(db *gorm.DB) error
	Init(ctx context.Context) error
	RegisterRoutes(router *gin.Engine)
}

// SetupRouter migrates and initializes modules, then builds the router.
// metricsHandler may be nil to leave /metrics unregistered.
func SetupRouter(ctx context.Context, db *gorm.DB, modules []Module, metricsHandler http.Handler) (*gin.Engine, error) {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.ErrorLogger())

	// CORS middleware so browser players can fetch manifests and chunks
	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Range")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	api.RegisterSystemRoutes(r, metricsHandler)

	for _, m := range modules {
		if db != nil {
			if err := m.Migrate(db); err != nil {
				return nil, fmt.Errorf("failed to migrate module %s: %w", m.ID(), err)
			}
		}
		if err := m.Init(ctx); err != nil {
			return nil, fmt.Errorf("failed to initialize module %s: %w", m.ID(), err)
		}
		m.RegisterRoutes(r)
		logger.Info("Module loaded", "id", m.ID(), "name", m.Name())
	}

	return r, nil
}
