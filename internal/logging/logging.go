package logging

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/hashicorp/go-multierror"
	slogseq "github.com/sokkalf/slog-seq"
)

// fanout duplicates each record to every configured sink. A record is offered
// only to sinks enabled at its level, and one failing sink never stops the
// others from receiving it.
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs error
	for _, h := range f {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	return errs
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make(fanout, len(f))
	for i, h := range f {
		next[i] = h.WithAttrs(attrs)
	}
	return next
}

func (f fanout) WithGroup(name string) slog.Handler {
	next := make(fanout, len(f))
	for i, h := range f {
		next[i] = h.WithGroup(name)
	}
	return next
}

// Options controls where logs go and at what level.
type Options struct {
	Level  slog.Level
	SeqURL string // empty disables the Seq sink
}

// Setup initializes the global logger and returns it with a cleanup function.
// Console output is always on; when a Seq URL is configured records go there
// too.
func Setup(opts Options) (*slog.Logger, func()) {
	handlerOpts := &slog.HandlerOptions{
		Level:     opts.Level,
		AddSource: true,
	}
	consoleHandler := slog.NewTextHandler(os.Stdout, handlerOpts)

	if opts.SeqURL == "" {
		logger := slog.New(consoleHandler)
		slog.SetDefault(logger)
		return logger, func() {}
	}

	_, seqHandler := slogseq.NewLogger(
		opts.SeqURL,
		slogseq.WithBatchSize(1),
		slogseq.WithFlushInterval(500*time.Millisecond),
		slogseq.WithHandlerOptions(handlerOpts),
	)

	// If Seq is not available, use console only
	if seqHandler == nil {
		logger := slog.New(consoleHandler)
		slog.SetDefault(logger)
		return logger, func() {}
	}

	logger := slog.New(fanout{consoleHandler, seqHandler})
	slog.SetDefault(logger)

	return logger, func() { seqHandler.Close() }
}
