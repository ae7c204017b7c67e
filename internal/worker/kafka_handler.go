package worker

import (
	"context"

	"github.com/example/mail-templater/internal/kafka/consumer"
)

// KafkaHandler adapts the worker to the Kafka consumer callback, translating
// consumer records into worker records with their commit hook attached.
func KafkaHandler(w *Worker) consumer.Handler {
	return func(ctx context.Context, rec *consumer.Record) error {
		record := NewRecord(rec.Topic, rec.Partition, rec.Offset, rec.Key, rec.Value, rec.Timestamp, rec.Commit)
		return w.HandleRecord(ctx, record)
	}
}
