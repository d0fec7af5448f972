package workspace

import "log/slog"

// LoggingObserver logs every operation lifecycle event with structured
// fields. It is the default subscriber wired in by the server.
type LoggingObserver struct {
	logger *slog.Logger
}

// NewLoggingObserver creates a logging observer on the default logger.
func NewLoggingObserver() *LoggingObserver {
	return &LoggingObserver{logger: slog.Default()}
}

// OnEvent implements the Observer interface.
func (lo *LoggingObserver) OnEvent(event Event) {
	lo.logger.Info("operation_lifecycle",
		"event", event.Type,
		"op_id", event.OpID,
		"op", event.Op,
		"target", event.Target,
		"message", event.Message,
	)
}
