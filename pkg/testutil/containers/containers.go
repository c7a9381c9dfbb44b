//go:build integration

// Package containers starts the backing services integration suites run
// against. Each service starts on first use and is shared by every suite in
// the test binary; Ryuk reaps it when the process exits.
package containers

import (
	"sync"
	"testing"
)

// lazy starts one container the first time a suite asks for it. A failed
// start is not cached, so the next suite retries.
type lazy[C any] struct {
	mu    sync.Mutex
	value *C
	start func(t *testing.T) *C
}

func (l *lazy[C]) get(t *testing.T) *C {
	t.Helper()
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.value == nil {
		l.value = l.start(t)
	}
	return l.value
}

// Manager hands out the shared containers.
type Manager struct {
	postgres lazy[PostgresContainer]
	redis    lazy[RedisContainer]
	kafka    lazy[KafkaContainer]
}

var manager = &Manager{
	postgres: lazy[PostgresContainer]{start: NewPostgresContainer},
	redis:    lazy[RedisContainer]{start: NewRedisContainer},
	kafka:    lazy[KafkaContainer]{start: NewKafkaContainer},
}

func GetManager() *Manager { return manager }

// GetPostgres returns a migrated Postgres.
func (m *Manager) GetPostgres(t *testing.T) *PostgresContainer { return m.postgres.get(t) }

func (m *Manager) GetRedis(t *testing.T) *RedisContainer { return m.redis.get(t) }

// GetKafka returns a Redpanda broker speaking the Kafka protocol.
func (m *Manager) GetKafka(t *testing.T) *KafkaContainer { return m.kafka.get(t) }
