// Worker consumes domain events from Kafka and writes each one as a structured log line.
// Set KAFKA_BROKERS, TELEMETRY_KAFKA_TOPIC and KAFKA_GROUP_ID.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"saas-control-plane/backend/internal/config"
	"saas-control-plane/backend/internal/logger"
	"saas-control-plane/backend/internal/telemetry/consumer"
)

func main() {
	cfg, err := config.Load()
	log := logger.SetupDefault(os.Stdout, "info")
	if err != nil {
		log.Error("config", "error", err)
		os.Exit(1)
	}
	log = logger.SetupDefault(os.Stdout, cfg.LogLevel)

	brokers := cfg.KafkaBrokersList()
	if len(brokers) == 0 {
		log.Error("worker: KAFKA_BROKERS is required")
		os.Exit(1)
	}

	reader := consumer.NewReader(brokers, cfg.TelemetryKafkaTopic, cfg.KafkaGroupID)
	defer reader.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("worker consuming", "topic", cfg.TelemetryKafkaTopic, "group", cfg.KafkaGroupID)
	if err := consumer.Run(ctx, reader, consumer.LogHandler(log), log); err != nil {
		log.Error("worker stopped", "error", err)
		return
	}
	log.Info("worker stopped")
}
