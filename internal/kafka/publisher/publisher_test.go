package publisher_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/example/mail-templater/internal/kafka/publisher"
	"github.com/example/mail-templater/internal/models"
)

type published struct {
	topic   string
	key     []byte
	headers map[string][]byte
	payload []byte
}

type fakeProducer struct {
	messages []published
	err      error
}

func (f *fakeProducer) PublishSync(topic string, key []byte, headers map[string][]byte, payload []byte) error {
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, published{topic: topic, key: key, headers: headers, payload: payload})
	return nil
}

func TestReportPublisher(t *testing.T) {
	prod := &fakeProducer{}
	pub := publisher.NewReportPublisher(prod, "mail.send.report", zerolog.Nop())
	if pub == nil {
		t.Fatalf("expected publisher instance")
	}

	report := models.SendReport{
		JobID:      "job-1",
		Recipients: 3,
		Succeeded:  2,
		Error:      "one delivery failed",
		Timestamp:  time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	if err := pub.PublishReport(context.Background(), report); err != nil {
		t.Fatalf("unexpected publish error: %v", err)
	}

	if len(prod.messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(prod.messages))
	}
	msg := prod.messages[0]
	if msg.topic != "mail.send.report" {
		t.Fatalf("unexpected topic: %q", msg.topic)
	}
	if string(msg.key) != "job-1" {
		t.Fatalf("expected job id as partition key, got %q", msg.key)
	}
	if string(msg.headers["content-type"]) != "application/json" {
		t.Fatalf("unexpected headers: %v", msg.headers)
	}

	var decoded models.SendReport
	if err := json.Unmarshal(msg.payload, &decoded); err != nil {
		t.Fatalf("payload is not valid json: %v", err)
	}
	if decoded.JobID != report.JobID || decoded.Succeeded != report.Succeeded {
		t.Fatalf("payload round trip mismatch: %+v", decoded)
	}
}

func TestDLQPublisher(t *testing.T) {
	prod := &fakeProducer{}
	pub := publisher.NewDLQPublisher(prod, "mail.send.dlq", zerolog.Nop())
	if pub == nil {
		t.Fatalf("expected publisher instance")
	}

	record := models.DLQRecord{
		JobID:       "job-2",
		FailureType: models.FailureTypeValidation,
		LastError:   "job has no recipients",
		FailedAt:    time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	if err := pub.PublishDLQ(context.Background(), record); err != nil {
		t.Fatalf("unexpected publish error: %v", err)
	}

	if len(prod.messages) != 1 || prod.messages[0].topic != "mail.send.dlq" {
		t.Fatalf("unexpected messages: %+v", prod.messages)
	}
}

func TestPublisherNilProducer(t *testing.T) {
	if pub := publisher.NewReportPublisher(nil, "topic", zerolog.Nop()); pub != nil {
		t.Fatalf("expected nil publisher for nil producer")
	}
	if pub := publisher.NewDLQPublisher(nil, "topic", zerolog.Nop()); pub != nil {
		t.Fatalf("expected nil publisher for nil producer")
	}

	var pub *publisher.ReportPublisher
	if err := pub.PublishReport(context.Background(), models.SendReport{}); err == nil {
		t.Fatalf("expected error from nil publisher")
	}
}
