package app

import (
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/cafepos/internal/messaging/kafka"
)

// initKafkaProducer возвращает nil, nil, если brokers пустой.
func initKafkaProducer(brokers string, logger *log.Entry) (*kafka.Producer, error) {
	list := kafka.SplitBrokers(brokers)
	if len(list) == 0 {
		return nil, nil
	}

	producer, err := kafka.NewProducer(list, logger.WithField("component", "kafka-producer"))
	if err != nil {
		logger.WithError(err).WithField("brokers", list).Warn("kafka producer unavailable, using local sales projection")
		return nil, err
	}
	logger.WithField("brokers", list).Info("kafka producer ready")
	return producer, nil
}

// initSalesConsumer подписывает handler на топик заказов.
func initSalesConsumer(cfg Config, handler kafka.MessageHandler, dlq *kafka.Producer, logger *log.Entry) (*kafka.Consumer, error) {
	return kafka.NewConsumer(
		kafka.SplitBrokers(cfg.KafkaBrokers),
		cfg.KafkaConsumerGroup,
		[]string{cfg.KafkaOrderTopic},
		handler,
		kafka.ConsumerOptions{
			DLQProducer: dlq,
			MaxRetries:  cfg.OutboxMaxAttempts,
			RetryDelay:  cfg.OutboxRetryDelay,
			Logger:      logger.WithField("component", "kafka-consumer"),
		},
	)
}

func closeKafka(producer *kafka.Producer, logger *log.Entry) {
	if producer == nil {
		return
	}
	if err := producer.Close(); err != nil {
		logger.WithError(err).Warn("kafka producer close failed")
		return
	}
	logger.Debug("kafka producer closed")
}
