package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/example/mail-templater/internal/config"
	"github.com/example/mail-templater/internal/kafka/consumer"
	"github.com/example/mail-templater/internal/kafka/producer"
	kafkapublisher "github.com/example/mail-templater/internal/kafka/publisher"
	"github.com/example/mail-templater/internal/logger"
	"github.com/example/mail-templater/internal/mailer"
	"github.com/example/mail-templater/internal/relay"
	"github.com/example/mail-templater/internal/store"
	"github.com/example/mail-templater/internal/worker"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fail("config load", err)
	}

	baseLogger, err := logger.New(cfg.App.Env, cfg.App.LogLevel)
	if err != nil {
		fail("logger init", err)
	}
	log := baseLogger.With().Str("service", "send-worker").Logger()

	db, err := store.Open(cfg.Storage.Path, logger.Component(log, "store"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open storage")
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close storage")
		}
	}()

	templates := store.NewTemplateRepository(db)
	history := store.NewHistoryRepository(db)

	relayProvider, err := relay.NewGomailProvider(cfg.Relay, logger.Component(log, "relay"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialise relay provider")
	}

	svc, err := mailer.NewService(mailer.Config{
		PlaceholderPrefix:   cfg.Templates.PlaceholderPrefix,
		PlaceholderSuffix:   cfg.Templates.PlaceholderSuffix,
		MessageMaxLength:    cfg.Templates.MessageMaxLength,
		ConfirmationBaseURL: cfg.Confirmation.BaseURL,
	}, mailer.Dependencies{
		Templates: templates,
		History:   history,
		Relay:     relayProvider,
		Logger:    log,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialise mailer service")
	}

	prod, err := producer.New(cfg.Kafka.Brokers, logger.Component(log, "kafka-producer"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create kafka producer")
	}
	defer func() {
		if err := prod.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close kafka producer")
		}
	}()

	cons, err := consumer.New(cfg.Kafka.Brokers, cfg.Kafka.ConsumerGroup, logger.Component(log, "kafka-consumer"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create kafka consumer")
	}
	defer func() {
		if err := cons.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close kafka consumer")
		}
	}()

	reportPublisher := kafkapublisher.NewReportPublisher(prod, cfg.Kafka.ReportTopic, logger.Component(log, "report-publisher"))
	if reportPublisher == nil {
		log.Fatal().Msg("failed to create report publisher")
	}
	dlqPublisher := kafkapublisher.NewDLQPublisher(prod, cfg.Kafka.DLQTopic, logger.Component(log, "dlq-publisher"))
	if dlqPublisher == nil {
		log.Fatal().Msg("failed to create dlq publisher")
	}

	jobWorker, err := worker.New(worker.Config{
		JobConcurrency: cfg.Worker.JobConcurrency,
	}, worker.Dependencies{
		Mailer:  svc,
		Reports: reportPublisher,
		DLQ:     dlqPublisher,
		Logger:  log,
		Now:     time.Now,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialise worker")
	}

	errCh := make(chan error, 1)
	go func() {
		if err := cons.Consume(ctx, cfg.Kafka.RequestTopic, worker.KafkaHandler(jobWorker)); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- err
		}
		close(errCh)
	}()

	log.Info().
		Str("request_topic", cfg.Kafka.RequestTopic).
		Str("default_relay", svc.DefaultRelayServer().Name).
		Msg("send worker started")

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("consumer terminated with error")
		}
	}

	jobWorker.Wait()
}

func fail(stage string, err error) {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	logger.Fatal().Err(err).Str("stage", stage).Msg("send worker init failed")
}
