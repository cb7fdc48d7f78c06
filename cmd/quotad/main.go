// Command quotad serves the quota ledger over HTTP.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmitrymomot/quotakit/pkg/config"
	"github.com/dmitrymomot/quotakit/pkg/httpserver"
	"github.com/dmitrymomot/quotakit/pkg/logger"
	"github.com/dmitrymomot/quotakit/pkg/planpolicy"
	"github.com/dmitrymomot/quotakit/pkg/quota"
	"github.com/dmitrymomot/quotakit/pkg/quotaapi"
	"github.com/dmitrymomot/quotakit/pkg/quotametrics"
	"github.com/dmitrymomot/quotakit/pkg/requestid"
)

func main() {
	if err := run(context.Background()); err != nil {
		slog.Error("quotad stopped", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	var app appConfig
	if err := config.Load(&app); err != nil {
		return fmt.Errorf("app config: %w", err)
	}

	log := logger.New(
		logger.WithLevelName(app.LogLevel),
		logger.WithEnvironment(logger.ParseEnvironment(app.Env), app.ServiceName),
		logger.WithContextExtractors(requestid.LoggerExtractor()),
	)
	logger.SetAsDefault(log)

	var qcfg quota.Config
	if err := config.Load(&qcfg); err != nil {
		return fmt.Errorf("quota config: %w", err)
	}
	var hcfg httpserver.Config
	if err := config.Load(&hcfg); err != nil {
		return fmt.Errorf("http config: %w", err)
	}

	policy, err := loadPolicy(ctx, app)
	if err != nil {
		return err
	}

	be, err := openBackend(ctx, app, qcfg, log)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := be.close(closeCtx); err != nil {
			log.Error("failed to close wallet store", logger.Error(err))
		}
	}()

	metrics := quotametrics.New(prometheus.DefaultRegisterer)

	ledger, err := quota.NewFromConfig(qcfg, be.store, policy,
		quota.WithLogger(log),
		quota.WithObserver(metrics),
	)
	if err != nil {
		return err
	}

	r := chi.NewRouter()
	r.Use(requestid.Middleware)
	r.Use(metrics.Middleware)
	r.Get("/health/live", httpserver.LivenessHandler())
	r.Get("/health/ready", httpserver.ReadinessHandler(log, hcfg.ProbeTimeout, be.probes))
	r.Handle("/metrics", promhttp.Handler())
	quotaapi.New(ledger, quotaapi.WithLogger(log)).Routes(r)

	log.Info("quotad starting", slog.String("addr", hcfg.Addr), slog.String("timezone", qcfg.Timezone))
	return httpserver.NewFromConfig(hcfg, httpserver.WithLogger(log)).Run(ctx, r)
}

func loadPolicy(ctx context.Context, app appConfig) (planpolicy.Policy, error) {
	src := planpolicy.NewEnvSource()
	if app.PlanPolicyFile != "" {
		src = planpolicy.NewYAMLSource(app.PlanPolicyFile)
	}
	return planpolicy.New(ctx, src)
}
