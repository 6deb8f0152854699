package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	router "github.com/dkeye/tandem/internal/adapters/http"
	"github.com/dkeye/tandem/internal/adapters/rtc"
	"github.com/dkeye/tandem/internal/app"
	"github.com/dkeye/tandem/internal/app/orch"
	"github.com/dkeye/tandem/internal/config"
	"github.com/dkeye/tandem/internal/domain"
	"github.com/dkeye/tandem/internal/observability"
)

const gaugeRefreshPeriod = 15 * time.Second

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	rtcConf, err := rtc.ClientConfig(cfg.ICEServers)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid ice_servers")
	}

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(promReg)

	sessions := app.NewSessionStore(cfg.SessionCapacity, cfg.SessionTTL, func(domain.OfferID) {
		metrics.Evictions.Inc()
	})
	o := orch.New(
		app.NewRegistry(),
		sessions,
		app.NewConnections(),
		app.PolicyFromConfig(cfg.SlowConsumer),
		metrics,
	)

	r := router.SetupRouter(ctx, cfg, o, promReg, rtcConf)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("relay server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
			cancel()
		}
	}()

	// Sessions expire in the background, so the gauges are also refreshed on a timer.
	go func() {
		t := time.NewTicker(gaugeRefreshPeriod)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				o.RefreshGauges()
			}
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}
