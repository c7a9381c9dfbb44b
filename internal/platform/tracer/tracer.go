// Package tracer is a small tracing abstraction so services can open spans
// without importing OpenTelemetry directly.
//
// Implementations:
//   - NoopTracer: tests and deployments without a collector
//   - OTelTracer: OpenTelemetry adapter
package tracer

import (
	"context"
	"time"
)

// Span represents an active trace span.
type Span interface {
	// End completes the span. A non-nil err marks the span as failed.
	// End must be called exactly once, typically via defer.
	End(err error)
	SetAttributes(attrs ...Attribute)
	AddEvent(name string, attrs ...Attribute)
}

// Tracer creates spans. Implementations must be safe for concurrent use.
type Tracer interface {
	// Start creates a span and returns a context carrying it.
	//
	//   ctx, span := t.Start(ctx, "requests.verify", tracer.String("request_id", id))
	//   defer func() { span.End(err) }()
	Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span)
}

// Attribute represents a key-value pair attached to spans.
type Attribute struct {
	Key   string
	Value any
}

// String creates a string attribute.
func String(key, value string) Attribute {
	return Attribute{Key: key, Value: value}
}

// Bool creates a boolean attribute.
func Bool(key string, value bool) Attribute {
	return Attribute{Key: key, Value: value}
}

// Int64 creates an int64 attribute.
func Int64(key string, value int64) Attribute {
	return Attribute{Key: key, Value: value}
}

// Float64 creates a float64 attribute.
func Float64(key string, value float64) Attribute {
	return Attribute{Key: key, Value: value}
}

// Duration creates a duration attribute in milliseconds.
func Duration(key string, value time.Duration) Attribute {
	return Attribute{Key: key, Value: value.Milliseconds()}
}

// Attribute keys shared across modules.
const (
	AttrRequestID   = "request.id"
	AttrStatus      = "request.status"
	AttrOfficerID   = "officer.id"
	AttrUserID      = "user.id"
	AttrContentType = "file.content_type"
	AttrFileSize    = "file.size"
	AttrNIC         = "citizen.nic_fp"
)
