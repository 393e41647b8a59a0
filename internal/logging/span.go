package logging

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Span times one database round trip or other unit of work inside a request.
type Span struct {
	name   string
	logger *slog.Logger
	start  time.Time
}

// StartSpan derives a child span from ctx. The returned context carries a logger
// tagged with trace_id, span_id and span_name so nested work logs under the span.
func StartSpan(ctx context.Context, name string, attrs ...any) (context.Context, *Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := FromContext(ctx)

	traceID := TraceIDFromContext(ctx)
	if traceID == "" {
		traceID = uuid.NewString()
		ctx = WithTraceID(ctx, traceID)
		logger = logger.With(slog.String("trace_id", traceID))
	}

	spanID := uuid.NewString()
	logger = logger.With(slog.String("span_id", spanID), slog.String("span_name", name))
	if parent := SpanIDFromContext(ctx); parent != "" {
		logger = logger.With(slog.String("parent_span_id", parent))
	}
	if len(attrs) > 0 {
		logger = logger.With(attrs...)
	}

	ctx = WithLogger(ctx, logger)
	ctx = WithSpanID(ctx, spanID)
	return ctx, &Span{name: name, logger: logger, start: time.Now()}
}

// End logs completion at debug level.
func (s *Span) End() {
	s.EndErr(nil)
}

// EndErr logs completion, at warn level when err is non-nil.
func (s *Span) EndErr(err error) {
	if s == nil {
		return
	}
	elapsed := slog.Duration("duration", time.Since(s.start))
	if err != nil {
		s.logger.Warn("span failed", elapsed, slog.Any("error", err))
		return
	}
	s.logger.Debug("span completed", elapsed)
}
