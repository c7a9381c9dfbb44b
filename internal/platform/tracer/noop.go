package tracer

import "context"

// NoopTracer hands out spans that record nothing. Services fall back to it
// when no tracer is configured.
type NoopTracer struct{}

func NewNoop() NoopTracer { return NoopTracer{} }

func (NoopTracer) Start(ctx context.Context, _ string, _ ...Attribute) (context.Context, Span) {
	return ctx, discard{}
}

type discard struct{}

func (discard) End(error) {}
func (discard) SetAttributes(...Attribute) {}
func (discard) AddEvent(string, ...Attribute) {}

var _ Tracer = NoopTracer{}
