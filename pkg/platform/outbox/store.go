package outbox

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store defines the outbox persistence operations.
// Implementations must be safe for concurrent use.
type Store interface {
	// Append adds an entry outside of any business transaction.
	Append(ctx context.Context, entry *Entry) error

	// FetchUnprocessed returns up to limit pending entries, oldest first.
	// Postgres uses FOR UPDATE SKIP LOCKED so several workers can share the table.
	FetchUnprocessed(ctx context.Context, limit int) ([]*Entry, error)

	MarkProcessed(ctx context.Context, id uuid.UUID, processedAt time.Time) error

	CountPending(ctx context.Context) (int64, error)

	// DeleteProcessedBefore removes published entries older than before.
	DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
}
