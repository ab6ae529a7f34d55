package server

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"
)

// JobLogHandler is a slog.Handler that stores records as job log entries.
// Records are also passed to next when it is set.
type JobLogHandler struct {
	Store JobStore
	JobID uuid.UUID

	attrs []slog.Attr
	next  slog.Handler
}

func NewJobLogHandler(store JobStore, jobID uuid.UUID, next slog.Handler) *JobLogHandler {
	return &JobLogHandler{
		Store: store,
		JobID: jobID,
		next:  next,
	}
}

func (h *JobLogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= slog.LevelInfo
}

func (h *JobLogHandler) Handle(ctx context.Context, r slog.Record) error {
	attrs := make(map[string]interface{}, len(h.attrs)+r.NumAttrs())
	for _, a := range h.attrs {
		attrs[a.Key] = attrValue(a.Value)
	}
	r.Attrs(func(a slog.Attr) bool {
		attrs[a.Key] = attrValue(a.Value)
		return true
	})

	metaJSON, err := json.Marshal(attrs)
	if err != nil {
		metaJSON = []byte("{}")
	}

	if h.next != nil && h.next.Enabled(ctx, r.Level) {
		_ = h.next.Handle(ctx, r.Clone())
	}

	// Logs must persist even when the job's context is cancelled.
	return h.Store.AppendLog(context.WithoutCancel(ctx), h.JobID, LogEntry{
		Timestamp: r.Time,
		Level:     r.Level.String(),
		Message:   r.Message,
		Metadata:  metaJSON,
	})
}

// attrValue keeps errors readable in JSON.
func attrValue(v slog.Value) interface{} {
	v = v.Resolve()
	if err, ok := v.Any().(error); ok {
		return err.Error()
	}
	if v.Kind() == slog.KindDuration {
		return v.Duration().String()
	}
	return v.Any()
}

func (h *JobLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	if h.next != nil {
		clone.next = h.next.WithAttrs(attrs)
	}
	return &clone
}

func (h *JobLogHandler) WithGroup(name string) slog.Handler {
	return h
}
