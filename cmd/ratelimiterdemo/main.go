package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"

	"github.com/hadarzilkha/RateLimiterDemo/internal/config"
	"github.com/hadarzilkha/RateLimiterDemo/internal/obs"
	"github.com/hadarzilkha/RateLimiterDemo/internal/ratelimit"
)

func main() {

	cfgPath := "./config.yaml"
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := obs.SetupLogger(cfg.Observability.LogLevel)
	logger.Info().Msg("Setup logger")

	reg := prometheus.NewRegistry()
	metrics := obs.NewMetrics(reg)

	var metricsSrv *http.Server
	if cfg.Observability.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		metricsSrv = &http.Server{
			Addr:              cfg.Observability.MetricsAddr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.Info().Str("addr", metricsSrv.Addr).Msg("metrics listening")
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error().Err(err).Msg("metrics server error")
			}
		}()
	}

	rules := make([]*ratelimit.Rule, 0, len(cfg.Rules))
	for _, rc := range cfg.Rules {
		r, err := ratelimit.NewRule(rc.Limit, rc.Window())
		if err != nil {
			log.Fatalf("build rule: %v", err)
		}
		logger.Info().Stringer("rule", r).Msg("rule configured")
		rules = append(rules, r)
	}

	action := func(_ context.Context, callID string) error {
		logger.Info().Str("call_id", callID).Msg("action executed")
		return nil
	}

	coord, err := ratelimit.NewCoordinator(action, rules,
		ratelimit.WithWaitHook(func(rule string, wait time.Duration) {
			metrics.ObserveWait(rule, wait)
			logger.Debug().Str("rule", rule).Dur("wait", wait).Msg("rule busy, suspending")
		}),
		ratelimit.WithOutcomeHook(metrics.ObserveOutcome),
	)
	if err != nil {
		log.Fatalf("build coordinator: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	logger.Info().Int("calls", cfg.Demo.Calls).Int("concurrency", cfg.Demo.Concurrency).Msg("firing workload")

	p := pool.New().WithMaxGoroutines(cfg.Demo.Concurrency)
	for i := 0; i < cfg.Demo.Calls; i++ {
		p.Go(func() {
			callID := uuid.NewString()
			if err := coord.Perform(ctx, callID); err != nil {
				logger.Warn().Str("call_id", callID).Err(err).Msg("perform aborted")
			}
		})
	}
	p.Wait()

	report(logger, rules, time.Since(start))

	if metricsSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("metrics shutdown failed")
		}
	}
	logger.Info().Msg("bye")
}

func report(logger zerolog.Logger, rules []*ratelimit.Rule, elapsed time.Duration) {
	for _, r := range rules {
		hist := r.History()
		ev := logger.Info().Stringer("rule", r).Int("recorded", len(hist))
		if len(hist) > 0 {
			ev = ev.Time("first", hist[0]).Time("last", hist[len(hist)-1])
		}
		ev.Msg("rule accounting")
	}
	logger.Info().Dur("elapsed", elapsed).Msg("workload done")
}
