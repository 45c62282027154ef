package ports

import "context"

// Fields are structured key/value pairs attached to a log line.
type Fields = map[string]interface{}

// Logger is the logging surface seen by the service and adapters.
// Calculators in internal/analytics never log.
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...Fields)
	Info(ctx context.Context, msg string, fields ...Fields)
	Warn(ctx context.Context, msg string, fields ...Fields)
	// Error records err under the "error" key alongside msg.
	Error(ctx context.Context, err error, msg string, fields ...Fields)
}
