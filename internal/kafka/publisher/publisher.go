// Package publisher emits bulk-send reports and DLQ records to Kafka.
package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"

	"github.com/rs/zerolog"

	"github.com/example/mail-templater/internal/models"
)

var errProducerNotInitialised = errors.New("kafka publisher: producer not initialised")

// SyncProducer captures the subset of producer behaviour required by the
// publishers.
type SyncProducer interface {
	PublishSync(topic string, key []byte, headers map[string][]byte, payload []byte) error
}

// ReportPublisher emits send reports to the report topic.
type ReportPublisher struct {
	producer SyncProducer
	topic    string
	logger   zerolog.Logger
}

// NewReportPublisher constructs a ReportPublisher instance.
func NewReportPublisher(prod SyncProducer, topic string, logger zerolog.Logger) *ReportPublisher {
	if prod == nil {
		return nil
	}
	if reflect.ValueOf(logger).IsZero() {
		logger = zerolog.Nop()
	}
	return &ReportPublisher{producer: prod, topic: topic, logger: logger}
}

// PublishReport writes the supplied send report to Kafka synchronously.
func (p *ReportPublisher) PublishReport(_ context.Context, report models.SendReport) error {
	if p == nil || p.producer == nil {
		return errProducerNotInitialised
	}

	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("kafka publisher: marshal send report: %w", err)
	}

	headers := map[string][]byte{"content-type": []byte("application/json")}
	if err := p.producer.PublishSync(p.topic, []byte(report.JobID), headers, payload); err != nil {
		return fmt.Errorf("kafka publisher: publish send report: %w", err)
	}
	return nil
}

// DLQPublisher writes failed jobs to the configured DLQ topic.
type DLQPublisher struct {
	producer SyncProducer
	topic    string
	logger   zerolog.Logger
}

// NewDLQPublisher constructs a DLQPublisher instance.
func NewDLQPublisher(prod SyncProducer, topic string, logger zerolog.Logger) *DLQPublisher {
	if prod == nil {
		return nil
	}
	if reflect.ValueOf(logger).IsZero() {
		logger = zerolog.Nop()
	}
	return &DLQPublisher{producer: prod, topic: topic, logger: logger}
}

// PublishDLQ writes the supplied DLQ record to Kafka synchronously.
func (p *DLQPublisher) PublishDLQ(_ context.Context, record models.DLQRecord) error {
	if p == nil || p.producer == nil {
		return errProducerNotInitialised
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("kafka publisher: marshal dlq record: %w", err)
	}

	headers := map[string][]byte{"content-type": []byte("application/json")}
	if err := p.producer.PublishSync(p.topic, []byte(record.JobID), headers, payload); err != nil {
		return fmt.Errorf("kafka publisher: publish dlq record: %w", err)
	}
	return nil
}
