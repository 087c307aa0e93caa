package activitymap

import (
	"context"
	"encoding/json"
	"io"
	"sync"

	"github.com/goliatone/go-errors"

	auth "github.com/goliatone/go-auth-starter"
)

// WriterSink appends every event as one normalized JSON line to w.
type WriterSink struct {
	mu   sync.Mutex
	enc  *json.Encoder
	opts []Option
}

var _ auth.ActivitySink = (*WriterSink)(nil)

// NewWriterSink returns a sink writing JSON lines to w
func NewWriterSink(w io.Writer, opts ...Option) *WriterSink {
	return &WriterSink{
		enc:  json.NewEncoder(w),
		opts: opts,
	}
}

// Record implements auth.ActivitySink.
func (s *WriterSink) Record(_ context.Context, event auth.ActivityEvent) error {
	record := Normalize(event, s.opts...)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.enc.Encode(record); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to write activity record")
	}
	return nil
}

// Multi fans an event out to every sink. All sinks are called, the first
// error is returned.
func Multi(sinks ...auth.ActivitySink) auth.ActivitySink {
	return auth.ActivitySinkFunc(func(ctx context.Context, event auth.ActivityEvent) error {
		var first error
		for _, sink := range sinks {
			if sink == nil {
				continue
			}
			if err := sink.Record(ctx, event); err != nil && first == nil {
				first = err
			}
		}
		return first
	})
}
