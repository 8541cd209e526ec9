package eventstream

import "context"

// Publisher publishes experiment record events to an event stream backend.
type Publisher interface {
	PublishRecord(ctx context.Context, event *RecordCompletedEvent) error
	Close() error
}
