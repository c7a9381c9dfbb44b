package producer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequiresBrokers(t *testing.T) {
	_, err := New(Config{}, nil)
	require.ErrorContains(t, err, "brokers not configured")
}

func TestMessageRecord(t *testing.T) {
	msg := &Message{
		Topic: "smartgn.request.events",
		Key:   []byte("k"),
		Value: []byte(`{}`),
		Headers: map[string]string{
			"event_type":     "request.created",
			"aggregate_id":   "abc",
			"aggregate_type": "request",
		},
	}

	rec := msg.Record()

	assert.Equal(t, "smartgn.request.events", rec.Topic)
	require.Len(t, rec.Headers, 3)
	assert.Equal(t, "aggregate_id", rec.Headers[0].Key)
	assert.Equal(t, "aggregate_type", rec.Headers[1].Key)
	assert.Equal(t, "event_type", rec.Headers[2].Key)
	assert.Equal(t, "request.created", string(rec.Headers[2].Value))
}

func TestProduceAfterClose(t *testing.T) {
	p, err := New(Config{Brokers: []string{"127.0.0.1:1"}}, nil)
	require.NoError(t, err)
	require.NoError(t, p.Close())
	require.NoError(t, p.Close())

	assert.ErrorIs(t, p.Produce(context.Background(), &Message{Topic: "t"}), ErrClosed)
	assert.False(t, p.Healthy(context.Background()))
}
