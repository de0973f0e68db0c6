package app

import (
	"context"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/retail/internal/domain"
	"github.com/vladislavdragonenkov/retail/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/retail/internal/metrics"
	"github.com/vladislavdragonenkov/retail/internal/service/inventory"
	"github.com/vladislavdragonenkov/retail/internal/service/outbox"
)

func splitBrokers(brokers string) []string {
	var list []string
	for _, broker := range strings.Split(brokers, ",") {
		if broker = strings.TrimSpace(broker); broker != "" {
			list = append(list, broker)
		}
	}
	return list
}

// initKafkaProducer создаёт producer, если brokers не пустой.
// Пустой brokers возвращает nil, nil.
func initKafkaProducer(brokers string, logger *log.Entry) (*kafka.Producer, error) {
	brokerList := splitBrokers(brokers)
	if len(brokerList) == 0 {
		return nil, nil
	}

	producer, err := kafka.NewProducer(brokerList, logger.WithField("component", "kafka-producer"))
	if err != nil {
		logger.WithError(err).Warn("failed to create kafka producer, continuing without kafka")
		return nil, err
	}

	logger.WithField("brokers", brokerList).Info("kafka producer initialized")
	return producer, nil
}

func closeKafkaProducer(producer *kafka.Producer, logger *log.Entry) {
	if producer == nil {
		return
	}
	if err := producer.Close(); err != nil {
		logger.WithError(err).Warn("failed to close kafka producer")
		return
	}
	logger.Info("kafka producer closed")
}

// startOutboxWorker запускает публикацию outbox в Kafka. Без producer события
// копятся в outbox до следующего запуска с Kafka.
func startOutboxWorker(
	ctx context.Context,
	cfg Config,
	repo domain.OutboxRepository,
	producer *kafka.Producer,
	logger *log.Entry,
) (context.CancelFunc, <-chan struct{}) {
	if producer == nil {
		logger.Info("kafka is not configured, outbox worker disabled")
		return nil, nil
	}

	worker := outbox.NewWorker(
		repo,
		kafka.NewOutboxPublisher(producer, kafka.TopicOrderEvents),
		outbox.WithLogger(logger.WithField("component", "outbox-worker")),
		outbox.WithMetrics(metrics.NewOutboxMetrics()),
		outbox.WithDLQPublisher(kafka.NewOutboxPublisher(producer, kafka.TopicDeadLetterQueue)),
		outbox.WithPollInterval(cfg.OutboxPollInterval),
		outbox.WithBatchSize(cfg.OutboxBatchSize),
		outbox.WithMaxAttempts(cfg.OutboxMaxAttempts),
		outbox.WithRetryBaseDelay(cfg.OutboxRetryDelay),
	)

	workerCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		worker.Run(workerCtx)
	}()
	logger.WithField("topic", kafka.TopicOrderEvents).Info("outbox worker started")
	return cancel, done
}

func shutdownOutboxWorker(cancel context.CancelFunc, done <-chan struct{}, logger *log.Entry) {
	if cancel == nil {
		return
	}
	cancel()
	if done != nil {
		<-done
	}
	logger.Info("outbox worker stopped")
}

// startRestockConsumer подписывает склад на команды пополнения.
// Ошибка подключения не останавливает сервис.
func startRestockConsumer(
	ctx context.Context,
	cfg Config,
	manager *inventory.Manager,
	producer *kafka.Producer,
	logger *log.Entry,
) *kafka.Consumer {
	brokers := splitBrokers(cfg.KafkaBrokers)
	if len(brokers) == 0 || cfg.KafkaRestockGroup == "" {
		return nil
	}

	consumerLogger := logger.WithField("component", "restock-consumer")
	opts := []kafka.ConsumerOption{kafka.WithConsumerLogger(consumerLogger)}
	if producer != nil {
		opts = append(opts, kafka.WithDLQ(producer))
	}

	consumer, err := kafka.NewConsumer(
		brokers,
		cfg.KafkaRestockGroup,
		[]string{kafka.TopicRestock},
		kafka.NewRestockHandler(manager, consumerLogger),
		opts...,
	)
	if err != nil {
		logger.WithError(err).Warn("failed to create restock consumer, continuing without it")
		return nil
	}
	if err := consumer.Start(ctx); err != nil {
		logger.WithError(err).Warn("failed to start restock consumer")
		_ = consumer.Stop()
		return nil
	}
	return consumer
}

func stopRestockConsumer(consumer *kafka.Consumer, logger *log.Entry) {
	if consumer == nil {
		return
	}
	if err := consumer.Stop(); err != nil {
		logger.WithError(err).Warn("failed to stop restock consumer")
	}
}
