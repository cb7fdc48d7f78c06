// Package logger builds the service's *slog.Logger.
//
// New takes functional options for format, level, output, static attributes
// and context extractors. Extractors run on every record, which is how the
// request id set by requestid.Middleware reaches log lines written deep in
// the ledger. WithEnvironment picks text output at debug level for
// development and JSON at info level for staging and production.
//
// attr.go holds constructors for the attribute keys used across the
// service (user_id, plan, count, op, backend, ...) so every component
// spells them the same way.
//
//	log := logger.New(
//		logger.WithEnvironment(logger.ParseEnvironment(cfg.Env), "quotad"),
//		logger.WithContextExtractors(requestid.LoggerExtractor()),
//	)
package logger
