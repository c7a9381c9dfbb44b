package main

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartgn/internal/platform/kafka/consumer"
)

func capture() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewJSONHandler(&buf, nil)), &buf
}

func TestPrinterLogsRequestEvents(t *testing.T) {
	log, buf := capture()
	h := newPrinter(log, nil)

	err := h.Handle(context.Background(), &consumer.Message{
		Value: []byte(`{"type":"request.verified","request_id":"r-1","status":"VERIFIED","certificate_url":"/uploads/certificates/c.pdf"}`),
	})

	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"event_type":"request.verified"`)
	assert.Contains(t, buf.String(), `"request_id":"r-1"`)
	assert.Contains(t, buf.String(), `"certificate_url":"/uploads/certificates/c.pdf"`)
}

func TestPrinterFiltersByType(t *testing.T) {
	log, buf := capture()
	h := newPrinter(log, []string{"request.completed"})

	require.NoError(t, h.Handle(context.Background(), &consumer.Message{
		Value: []byte(`{"type":"request.created","request_id":"r-1"}`),
	}))
	assert.Empty(t, buf.String())
}

func TestPrinterFallsBackToHeaderType(t *testing.T) {
	log, buf := capture()
	h := newPrinter(log, []string{"request.declined"})

	require.NoError(t, h.Handle(context.Background(), &consumer.Message{
		Value:   []byte(`{"request_id":"r-2"}`),
		Headers: map[string]string{"event_type": "request.declined"},
	}))
	assert.Contains(t, buf.String(), `"request_id":"r-2"`)
}

func TestPrinterSkipsUndecodableRecords(t *testing.T) {
	log, buf := capture()
	h := newPrinter(log, nil)

	require.NoError(t, h.Handle(context.Background(), &consumer.Message{Value: []byte("not json"), Offset: 7}))
	assert.Contains(t, buf.String(), "undecodable record")
}

func TestSplitBrokers(t *testing.T) {
	assert.Equal(t, []string{"a:9092", "b:9092"}, splitBrokers(" a:9092, ,b:9092 "))
	assert.Nil(t, splitBrokers(""))
}
