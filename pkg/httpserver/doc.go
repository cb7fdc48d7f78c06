// Package httpserver runs the quota API over net/http.
//
// Server wraps http.Server with:
//
//   - Graceful shutdown: Run blocks until its context is cancelled or the
//     process receives SIGINT or SIGTERM, then drains in-flight requests
//     within the shutdown timeout.
//   - Functional options: New takes WithAddr, WithReadTimeout,
//     WithWriteTimeout, WithIdleTimeout, WithShutdownTimeout and WithLogger.
//     NewFromConfig builds the same options from Config, which is read from
//     HTTP_* environment variables.
//   - Health handlers: LivenessHandler always answers 200 while the process
//     is up. ReadinessHandler runs every Probe (one per wallet backend) with
//     a timeout and answers 503 naming the probes that failed.
//
// # Usage
//
//	var cfg httpserver.Config
//	if err := config.Load(&cfg); err != nil {
//		return err
//	}
//
//	r := chi.NewRouter()
//	r.Get("/health/live", httpserver.LivenessHandler())
//	r.Get("/health/ready", httpserver.ReadinessHandler(log, cfg.ProbeTimeout, map[string]httpserver.Probe{
//		"postgres": pg.Healthcheck(pool),
//	}))
//
//	srv := httpserver.NewFromConfig(cfg, httpserver.WithLogger(log))
//	if err := srv.Run(ctx, r); err != nil {
//		return err
//	}
//
// # Errors
//
// Run wraps listen failures with ErrStart and shutdown failures with
// ErrShutdown. Use errors.Is to tell them apart.
package httpserver
