// Package requestid correlates log lines of one API call.
//
// Middleware assigns every request an id (the client's X-Request-ID when it
// is well formed, otherwise a fresh UUID) and LoggerExtractor feeds it into
// pkg/logger so ledger logs carry request_id.
package requestid
