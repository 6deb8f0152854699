package http

import (
	"context"

	"github.com/dkeye/tandem/internal/adapters/signal"
	"github.com/dkeye/tandem/internal/app/orch"
	"github.com/dkeye/tandem/internal/config"
	"github.com/gin-gonic/gin"
	"github.com/pion/webrtc/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

func SetupRouter(
	ctx context.Context,
	cfg *config.Config,
	orch *orch.Orchestrator,
	gatherer prometheus.Gatherer,
	rtcConf webrtc.Configuration,
) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	h := &handlers{orch: orch, rtc: rtcConf, notifyToken: cfg.NotifyToken}
	ctrl := signal.NewSignalWSController(orch, cfg)

	r.GET("/health", h.health)
	if gatherer != nil && cfg.MetricsPath != "" {
		r.GET(cfg.MetricsPath, gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	api := r.Group("/api")
	api.GET("/ws", func(c *gin.Context) {
		log.Debug().Str("module", "adapters.http").Str("remote", c.ClientIP()).Msg("ws signal endpoint hit")
		ctrl.HandleSignal(ctx, c)
	})
	api.GET("/rtc/config", h.rtcConfig)
	api.GET("/users/:id/online", h.online)
	api.POST("/notify/:id", requireToken(h.notifyToken), h.notify)

	log.Info().Str("module", "adapters.http").Str("metrics", cfg.MetricsPath).Msg("router setup")
	return r
}
