// Command dlq-reprocess возвращает события из cafe.dlq в рабочий топик.
// По умолчанию работает в режиме dry-run и только печатает кандидатов.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/IBM/sarama"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/cafepos/internal/domain"
	"github.com/vladislavdragonenkov/cafepos/internal/messaging/kafka"
)

const (
	clientID = "cafepos-dlq-reprocess"

	envBrokers = "CAFE_KAFKA_BROKERS"
)

type options struct {
	brokers     []string
	sourceTopic string
	targetTopic string
	eventType   string
	limit       int
	execute     bool
	fromNewest  bool
	idleTimeout time.Duration
}

func (o options) mode() string {
	if o.execute {
		return "execute"
	}
	return "dry-run"
}

func parseOptions(args []string, getenv func(string) string) (options, error) {
	var (
		opts    options
		brokers string
	)

	fs := flag.NewFlagSet("dlq-reprocess", flag.ContinueOnError)
	fs.StringVar(&brokers, "brokers", "", "comma-separated Kafka brokers (default $"+envBrokers+")")
	fs.StringVar(&opts.sourceTopic, "source-topic", kafka.TopicDeadLetterQueue, "DLQ topic to scan")
	fs.StringVar(&opts.targetTopic, "target-topic", kafka.TopicOrderEvents, "topic for outbox dead letters")
	fs.StringVar(&opts.eventType, "event-type", domain.EventTypeOrderPaid, "replay only this event type, empty for any")
	fs.IntVar(&opts.limit, "limit", 100, "max number of DLQ messages to scan")
	fs.BoolVar(&opts.execute, "execute", false, "publish replayed messages instead of a dry run")
	fs.BoolVar(&opts.fromNewest, "from-newest", false, "scan the newest messages of each partition")
	fs.DurationVar(&opts.idleTimeout, "idle-timeout", 2*time.Second, "stop reading a partition after this much silence")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	if strings.TrimSpace(brokers) == "" && getenv != nil {
		brokers = getenv(envBrokers)
	}
	opts.brokers = kafka.SplitBrokers(brokers)
	opts.sourceTopic = strings.TrimSpace(opts.sourceTopic)
	opts.targetTopic = strings.TrimSpace(opts.targetTopic)
	opts.eventType = strings.TrimSpace(opts.eventType)

	var errs []error
	if len(opts.brokers) == 0 {
		errs = append(errs, errors.New("kafka brokers are required (-brokers or "+envBrokers+")"))
	}
	if opts.sourceTopic == "" {
		errs = append(errs, errors.New("source-topic is required"))
	}
	if opts.targetTopic == "" {
		errs = append(errs, errors.New("target-topic is required"))
	}
	if opts.limit <= 0 {
		errs = append(errs, errors.New("limit must be > 0"))
	}
	if opts.idleTimeout <= 0 {
		errs = append(errs, errors.New("idle-timeout must be > 0"))
	}
	if err := errors.Join(errs...); err != nil {
		return options{}, err
	}
	return opts, nil
}

// kafkaDeps — соединения, нужные одному прогону. producer есть только в execute.
type kafkaDeps struct {
	offsets  offsetClient
	consumer partitionConsumerSource
	producer replayProducer
}

func (d kafkaDeps) Close() {
	if d.producer != nil {
		_ = d.producer.Close()
	}
	if d.consumer != nil {
		_ = d.consumer.Close()
	}
	if d.offsets != nil {
		_ = d.offsets.Close()
	}
}

// dialKafka подменяется в тестах.
var dialKafka = func(opts options) (kafkaDeps, error) {
	cfg := sarama.NewConfig()
	cfg.ClientID = clientID
	cfg.Consumer.Return.Errors = true

	client, err := sarama.NewClient(opts.brokers, cfg)
	if err != nil {
		return kafkaDeps{}, fmt.Errorf("connect to kafka: %w", err)
	}
	consumer, err := sarama.NewConsumerFromClient(client)
	if err != nil {
		_ = client.Close()
		return kafkaDeps{}, fmt.Errorf("create kafka consumer: %w", err)
	}
	deps := kafkaDeps{offsets: client, consumer: saramaConsumer{consumer}}
	if !opts.execute {
		return deps, nil
	}

	producer, err := sarama.NewSyncProducer(opts.brokers, kafka.ProducerConfig(clientID))
	if err != nil {
		deps.Close()
		return kafkaDeps{}, fmt.Errorf("create kafka producer: %w", err)
	}
	deps.producer = producer
	return deps, nil
}

func run(ctx context.Context, opts options) error {
	logger := log.WithFields(log.Fields{
		"source_topic": opts.sourceTopic,
		"event_type":   opts.eventType,
		"mode":         opts.mode(),
	})

	deps, err := dialKafka(opts)
	if err != nil {
		return err
	}
	defer deps.Close()

	r, err := newReplayer(opts, deps, logger)
	if err != nil {
		return err
	}

	logger.WithField("limit", opts.limit).Info("starting dlq replay")
	stats, err := r.Run(ctx)
	logger.WithFields(log.Fields{
		"processed": stats.processed,
		"replayed":  stats.replayed,
		"skipped":   stats.skipped,
	}).Info("dlq replay finished")
	return err
}

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	_ = godotenv.Load()

	opts, err := parseOptions(os.Args[1:], os.Getenv)
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fail("%v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts); err != nil {
		fail("dlq replay failed: %v", err)
	}
}

func fail(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, "dlq-reprocess: "+format+"\n", args...)
	os.Exit(1)
}
