// Package worker consumes bulk-send jobs, runs them through the mailer and
// publishes reports. Jobs are never redelivered: delivery outcomes are already
// durable in the history store, so a failed job goes to the DLQ instead of
// being retried.
package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/example/mail-templater/internal/mailer"
	"github.com/example/mail-templater/internal/models"
	"github.com/example/mail-templater/internal/util"
)

const defaultJobConcurrency = 4

// Sender is the orchestration surface the worker drives. It returns the
// number of successful deliveries alongside any call-level failure.
type Sender interface {
	SendEmails(ctx context.Context, req *models.SendEmailRequest) (int, error)
}

// ReportPublisher emits a report for every decoded job.
type ReportPublisher interface {
	PublishReport(ctx context.Context, report models.SendReport) error
}

// DLQPublisher captures jobs that could not be processed.
type DLQPublisher interface {
	PublishDLQ(ctx context.Context, record models.DLQRecord) error
}

// Record is one bulk-send job delivered from the request topic. Commit
// acknowledges the record with the source.
type Record struct {
	Topic     string
	Partition int32
	Offset    int64
	Key       []byte
	Value     []byte
	Timestamp time.Time

	commit func(ctx context.Context) error
}

// NewRecord constructs a Record with the supplied commit callback.
func NewRecord(topic string, partition int32, offset int64, key, value []byte, ts time.Time, commit func(ctx context.Context) error) *Record {
	return &Record{
		Topic:     topic,
		Partition: partition,
		Offset:    offset,
		Key:       key,
		Value:     value,
		Timestamp: ts,
		commit:    commit,
	}
}

// Commit acknowledges the record with the underlying source.
func (r *Record) Commit(ctx context.Context) error {
	if r.commit == nil {
		return nil
	}
	return r.commit(ctx)
}

// Config controls worker behaviour.
type Config struct {
	// JobConcurrency bounds how many jobs run at once. Recipients within a
	// job are still processed sequentially by the mailer.
	JobConcurrency int
}

// Dependencies collects the collaborators required by the worker.
type Dependencies struct {
	Mailer  Sender
	Reports ReportPublisher
	DLQ     DLQPublisher
	Logger  zerolog.Logger
	Now     func() time.Time
}

// Worker pulls bulk-send jobs off the request topic and drives the mailer.
type Worker struct {
	mailer  Sender
	reports ReportPublisher
	dlq     DLQPublisher
	logger  zerolog.Logger
	now     func() time.Time

	sem *semaphore.Weighted
	wg  sync.WaitGroup
}

// New constructs a Worker instance.
func New(cfg Config, deps Dependencies) (*Worker, error) {
	if deps.Mailer == nil {
		return nil, errors.New("worker: mailer dependency is required")
	}
	if deps.Reports == nil {
		return nil, errors.New("worker: report publisher dependency is required")
	}
	if deps.DLQ == nil {
		return nil, errors.New("worker: dlq publisher dependency is required")
	}

	log := deps.Logger
	if reflect.ValueOf(log).IsZero() {
		log = zerolog.Nop()
	}
	log = log.With().Str("component", "worker").Logger()

	nowFunc := deps.Now
	if nowFunc == nil {
		nowFunc = time.Now
	}

	concurrency := cfg.JobConcurrency
	if concurrency < 1 {
		concurrency = defaultJobConcurrency
	}

	return &Worker{
		mailer:  deps.Mailer,
		reports: deps.Reports,
		dlq:     deps.DLQ,
		logger:  log,
		now:     nowFunc,
		sem:     semaphore.NewWeighted(int64(concurrency)),
	}, nil
}

// HandleRecord schedules one job for processing. It blocks only while waiting
// for a concurrency slot; the job itself runs on its own goroutine.
func (w *Worker) HandleRecord(ctx context.Context, record *Record) error {
	if record == nil {
		return errors.New("worker: record is required")
	}

	if err := w.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("worker: acquire job slot: %w", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer w.sem.Release(1)
		w.process(ctx, record)
	}()

	return nil
}

// Wait blocks until all in-flight jobs have finished.
func (w *Worker) Wait() {
	w.wg.Wait()
}

func (w *Worker) process(ctx context.Context, record *Record) {
	job, err := w.decodeJob(record.Value)
	if err != nil {
		w.logger.Warn().
			Str("topic", record.Topic).
			Int64("offset", record.Offset).
			Err(err).
			Msg("rejecting malformed bulk-send job")
		w.reject(ctx, record, jobID(job, record), models.FailureTypeValidation, err)
		return
	}

	log := w.logger.With().Str("job_id", job.JobID).Logger()
	log.Info().
		Int("recipients", len(job.Request.Recipients)).
		Msg("processing bulk-send job")

	succeeded, sendErr := w.mailer.SendEmails(ctx, &job.Request)

	report := models.SendReport{
		JobID:      job.JobID,
		Recipients: len(job.Request.Recipients),
		Succeeded:  succeeded,
		Timestamp:  w.now().UTC(),
	}
	if sendErr != nil {
		report.Error = sendErr.Error()
	}

	if err := w.reports.PublishReport(ctx, report); err != nil {
		log.Error().Err(err).Msg("failed to publish send report")
	}

	if sendErr != nil {
		log.Warn().
			Int("succeeded", succeeded).
			Err(sendErr).
			Msg("bulk-send job terminated with an error")
		w.reject(ctx, record, job.JobID, failureType(sendErr), sendErr)
		return
	}

	log.Info().Int("succeeded", succeeded).Msg("bulk-send job completed")
	w.commit(ctx, record, job.JobID)
}

// decodeJob parses and validates the job payload. Unknown fields are rejected
// so producer drift surfaces in the DLQ rather than being silently dropped.
func (w *Worker) decodeJob(payload []byte) (*models.BulkSendJob, error) {
	if len(payload) == 0 {
		return nil, errors.New("worker: empty job payload")
	}

	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.DisallowUnknownFields()

	var job models.BulkSendJob
	if err := dec.Decode(&job); err != nil {
		return nil, fmt.Errorf("worker: decode job: %w", err)
	}

	if _, err := util.ParseUUIDv4(job.JobID); err != nil {
		return &job, fmt.Errorf("worker: job id: %w", err)
	}
	if len(job.Request.Recipients) == 0 {
		return &job, errors.New("worker: job has no recipients")
	}
	for i := range job.Request.Recipients {
		normalized, err := util.NormalizeEmail(job.Request.Recipients[i].Email)
		if err != nil {
			return &job, fmt.Errorf("worker: recipient %d: %w", i, err)
		}
		job.Request.Recipients[i].Email = normalized
	}

	return &job, nil
}

// reject publishes a DLQ record for the failed job and commits the source
// record so it is not redelivered.
func (w *Worker) reject(ctx context.Context, record *Record, id, failure string, cause error) {
	dlqRecord := models.DLQRecord{
		JobID:       id,
		FailureType: failure,
		RawPayload:  record.Value,
		FailedAt:    w.now().UTC(),
	}
	if cause != nil {
		dlqRecord.LastError = cause.Error()
	}

	if err := w.dlq.PublishDLQ(ctx, dlqRecord); err != nil {
		w.logger.Error().
			Str("job_id", id).
			Err(err).
			Msg("failed to publish dlq record")
	}

	w.commit(ctx, record, id)
}

func (w *Worker) commit(ctx context.Context, record *Record, id string) {
	if err := record.Commit(ctx); err != nil {
		w.logger.Error().
			Str("job_id", id).
			Err(err).
			Msg("failed to commit job record")
	}
}

// failureType maps a call-level mailer error onto the DLQ taxonomy.
func failureType(err error) string {
	switch {
	case mailer.IsBadRequest(err):
		return models.FailureTypeValidation
	case errors.Is(err, mailer.ErrAuthenticationFailed):
		return models.FailureTypeAuth
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return models.FailureTypeRuntime
	default:
		return models.FailureTypeUnknown
	}
}

// jobID recovers the best available identifier for a job that failed to
// decode, falling back to the record key.
func jobID(job *models.BulkSendJob, record *Record) string {
	if job != nil && job.JobID != "" {
		return job.JobID
	}
	if len(record.Key) > 0 {
		return string(record.Key)
	}
	return ""
}
