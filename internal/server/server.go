package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/polarsource/polar-sub007/internal/config"
	"github.com/polarsource/polar-sub007/internal/events"
	"github.com/polarsource/polar-sub007/internal/observability/logger"
	"github.com/polarsource/polar-sub007/internal/observability/metrics"
	"github.com/polarsource/polar-sub007/internal/seat"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Server receives checkout webhooks and republishes them on the in-process
// bus, feeding the push channel of every running reconciliation session. It
// also exposes the seat invitation endpoint for seat-based checkouts.
type Server struct {
	log     *zap.Logger
	bus     events.Bus
	seats   *seat.Submitter
	genID   *snowflake.Node
	secret  string
	limiter *rateLimiter
}

func NewServer(cfg config.Config, bus events.Bus, seats *seat.Submitter, genID *snowflake.Node, log *zap.Logger) *Server {
	return &Server{
		log:     log.Named("server"),
		bus:     bus,
		seats:   seats,
		genID:   genID,
		secret:  cfg.WebhookSecret,
		limiter: newRateLimiter(120, time.Minute),
	}
}

// Router assembles the gin engine.
func (s *Server) Router(httpMetrics *metrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.GinMiddleware(logger.MiddlewareConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(metrics.GinMiddleware(httpMetrics))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.POST("/v1/webhooks/checkout", s.rateLimited, s.HandleWebhook)
	r.POST("/v1/checkouts/:id/seats", s.rateLimited, s.HandleSubmitSeats)
	return r
}

func (s *Server) rateLimited(c *gin.Context) {
	if !s.limiter.Allow(c.ClientIP()) {
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate_limited"})
		return
	}
	c.Next()
}

// Module runs the webhook receiver for the fx app lifetime.
var Module = fx.Options(
	fx.Provide(NewServer),
	fx.Invoke(Run),
)

// Run starts the HTTP listener under the fx lifecycle.
func Run(lc fx.Lifecycle, s *Server, cfg config.Config, httpMetrics *metrics.HTTPMetrics, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: s.Router(httpMetrics),
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("http server exited", zap.Error(err))
				}
			}()
			log.Info("webhook receiver listening", zap.String("addr", cfg.ListenAddr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}
