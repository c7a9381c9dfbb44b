// Command eventtail follows the request lifecycle topic and logs each event.
// Operators use it to watch what the outbox relays to Kafka.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"

	"smartgn/internal/platform/kafka/consumer"
	"smartgn/internal/platform/logger"
	"smartgn/internal/requests/models"
)

func main() {
	brokers := flag.String("brokers", envOr("KAFKA_BROKERS", "localhost:9092"), "comma separated Kafka brokers")
	topic := flag.String("topic", envOr("KAFKA_TOPIC", "smartgn.request.events"), "request events topic")
	group := flag.String("group", "smartgn-eventtail", "consumer group id")
	fromLatest := flag.Bool("from-latest", false, "skip events published before start")
	types := flag.StringSlice("type", nil, "only show these event types (repeatable)")
	level := flag.String("log-level", "info", "log level")
	flag.Parse()

	log := logger.New(*level)

	c, err := consumer.New(consumer.Config{
		Brokers:    splitBrokers(*brokers),
		GroupID:    *group,
		Topics:     []string{*topic},
		FromLatest: *fromLatest,
	}, newPrinter(log, *types), log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "create consumer: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("tailing request events", "topic", *topic, "group", *group)
	c.Start(ctx)
	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.Stop(stopCtx); err != nil {
		log.Error("consumer stop failed", "error", err)
		os.Exit(1)
	}
}

// newPrinter logs decoded events. Records that are not request events are
// logged and committed so a bad record never blocks the partition.
func newPrinter(log *slog.Logger, only []string) consumer.HandlerFunc {
	wanted := make(map[string]bool, len(only))
	for _, t := range only {
		wanted[t] = true
	}
	return func(ctx context.Context, msg *consumer.Message) error {
		var ev models.Event
		if err := json.Unmarshal(msg.Value, &ev); err != nil {
			log.WarnContext(ctx, "undecodable record",
				"partition", msg.Partition,
				"offset", msg.Offset,
				"error", err,
			)
			return nil
		}
		if ev.Type == "" {
			ev.Type = msg.Headers["event_type"]
		}
		if len(wanted) > 0 && !wanted[ev.Type] {
			return nil
		}

		attrs := []any{
			"event_type", ev.Type,
			"request_id", ev.RequestID,
			"user_id", ev.UserID,
			"gn_id", ev.OfficerID,
			"request_type", ev.RequestType,
			"status", string(ev.Status),
			"occurred_at", ev.OccurredAt,
			"offset", msg.Offset,
		}
		if ev.VerificationDate != nil {
			attrs = append(attrs, "verification_date", *ev.VerificationDate)
		}
		if ev.CertificateURL != nil {
			attrs = append(attrs, "certificate_url", *ev.CertificateURL)
		}
		log.InfoContext(ctx, "request event", attrs...)
		return nil
	}
}

func splitBrokers(s string) []string {
	var out []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
