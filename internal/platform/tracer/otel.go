package tracer

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentationName is the scope name of every span smartgn emits.
const InstrumentationName = "smartgn"

// OTelTracer opens spans on an OpenTelemetry tracer.
type OTelTracer struct {
	tracer trace.Tracer
}

// OTelOption configures NewOTel.
type OTelOption func(*OTelTracer)

// WithOTelTracer replaces the tracer taken from the global provider.
func WithOTelTracer(t trace.Tracer) OTelOption {
	return func(o *OTelTracer) { o.tracer = t }
}

// NewOTel reads the global provider, so spans are dropped until the process
// installs a real one.
func NewOTel(opts ...OTelOption) *OTelTracer {
	o := &OTelTracer{tracer: otel.Tracer(InstrumentationName)}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *OTelTracer) Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span) {
	ctx, span := o.tracer.Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(keyValues(attrs)...),
	)
	return ctx, otelSpan{span}
}

type otelSpan struct {
	trace.Span
}

func (s otelSpan) End(err error) {
	if err != nil {
		s.Span.RecordError(err)
		s.Span.SetStatus(codes.Error, err.Error())
	}
	s.Span.End()
}

func (s otelSpan) SetAttributes(attrs ...Attribute) {
	s.Span.SetAttributes(keyValues(attrs)...)
}

func (s otelSpan) AddEvent(name string, attrs ...Attribute) {
	s.Span.AddEvent(name, trace.WithAttributes(keyValues(attrs)...))
}

// keyValues converts attributes, skipping value types OpenTelemetry has no
// scalar for.
func keyValues(attrs []Attribute) []attribute.KeyValue {
	var out []attribute.KeyValue
	for _, a := range attrs {
		if kv, ok := a.keyValue(); ok {
			out = append(out, kv)
		}
	}
	return out
}

func (a Attribute) keyValue() (attribute.KeyValue, bool) {
	key := attribute.Key(a.Key)
	switch v := a.Value.(type) {
	case string:
		return key.String(v), true
	case bool:
		return key.Bool(v), true
	case int:
		return key.Int(v), true
	case int64:
		return key.Int64(v), true
	case float64:
		return key.Float64(v), true
	case []string:
		return key.StringSlice(v), true
	default:
		return attribute.KeyValue{}, false
	}
}

var _ Tracer = (*OTelTracer)(nil)
