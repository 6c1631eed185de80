// Package logger builds the service's slog logger.
//
// Records are written as JSON (or text for local runs) to stdout. When a Sentry
// DSN is configured, warnings and errors are also forwarded to Sentry, and
// errors become Sentry issues.
//
// Context extractors add per-call attributes pulled from the context. The
// package ships one for the delivery attempt ID, which the dispatcher stores
// with WithAttemptID so every log line for one send can be correlated:
//
//	log := logger.New(cfg, logger.AttemptIDExtractor())
//	ctx = logger.WithAttemptID(ctx, attemptID)
//	log.InfoContext(ctx, "mail delivered") // carries attempt_id
package logger
