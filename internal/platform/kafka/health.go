package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
)

// Admin performs broker health checks and topic management.
type Admin struct {
	client  *kadm.Client
	timeout time.Duration
}

// NewAdmin wraps an existing franz-go client. The caller keeps ownership of it.
func NewAdmin(client *kgo.Client) *Admin {
	return &Admin{
		client:  kadm.NewClient(client),
		timeout: 5 * time.Second,
	}
}

// Check returns nil when at least one broker answers a metadata request.
func (a *Admin) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	brokers, err := a.client.ListBrokers(ctx)
	if err != nil {
		return fmt.Errorf("kafka brokers unreachable: %w", err)
	}
	if len(brokers) == 0 {
		return errors.New("kafka returned no brokers")
	}
	return nil
}

// EnsureTopic creates topic if it does not exist yet.
func (a *Admin) EnsureTopic(ctx context.Context, topic string, partitions int32, replicationFactor int16) error {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	resp, err := a.client.CreateTopic(ctx, partitions, replicationFactor, nil, topic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", topic, err)
	}
	if resp.Err != nil && !errors.Is(resp.Err, kerr.TopicAlreadyExists) {
		return fmt.Errorf("create topic %s: %w", topic, resp.Err)
	}
	return nil
}
