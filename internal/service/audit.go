package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"

	"github.com/playsquare/reviewdesk/internal/port/messagequeue"
)

// AuditTrail consumes every published event subject and writes one structured
// log line per message, giving operators a flat activity feed of event
// lifecycle and review decisions without querying the database.
type AuditTrail struct {
	queue messagequeue.Queue
	log   *slog.Logger
}

// NewAuditTrail creates an AuditTrail over the queue. log may be nil, in
// which case the default logger is used.
func NewAuditTrail(queue messagequeue.Queue, log *slog.Logger) *AuditTrail {
	if log == nil {
		log = slog.Default()
	}
	return &AuditTrail{queue: queue, log: log}
}

// Start subscribes to all event subjects. The returned function cancels the
// subscription.
func (a *AuditTrail) Start(ctx context.Context) (func(), error) {
	return a.queue.Subscribe(ctx, messagequeue.SubjectAllEvents, a.handle)
}

// handle logs one message. A payload that fails to decode is reported as an
// error so the queue redelivers it instead of silently dropping it.
func (a *AuditTrail) handle(subject string, data []byte) error {
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("decode audit payload on %s: %w", subject, err)
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	attrs := make([]any, 0, 2+2*len(keys))
	attrs = append(attrs, "subject", subject)
	for _, k := range keys {
		attrs = append(attrs, k, fields[k])
	}
	a.log.Info("event activity", attrs...)
	return nil
}
