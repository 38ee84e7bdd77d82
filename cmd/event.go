package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/frahmantamala/ran-loyalty/internal/core/events"
	"github.com/frahmantamala/ran-loyalty/pkg/logger"
)

var eventCmd = &cobra.Command{
	Use:   "event",
	Short: "Event management commands",
	Long:  `Publish test events and follow the Kafka event topic`,
}

var publishEventCmd = &cobra.Command{
	Use:   "publish [event-type]",
	Short: "Publish a test event",
	Long:  `Publish a test event on the bus; it is forwarded to Kafka when kafka is enabled`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		publishTestEvent(args[0])
	},
}

var tailEventCmd = &cobra.Command{
	Use:   "tail",
	Short: "Print events from the Kafka topic",
	Long:  `Consume every partition of the configured topic and log each event envelope`,
	Run: func(cmd *cobra.Command, args []string) {
		tailEvents()
	},
}

var (
	eventData         string
	tailFromBeginning bool
)

func publishTestEvent(eventType string) {
	config := mustLoadConfig()
	lg := logger.LoggerWrapper()

	eventBus := events.NewEventBus(lg)

	eventBus.Subscribe(eventType, func(ctx context.Context, event events.Event) error {
		lg.Info("test handler received event",
			"event_id", event.EventID(),
			"event_type", event.EventType(),
			"payload", event.Payload())
		return nil
	})

	if config.Kafka.Enabled {
		producer, err := events.NewKafkaProducer(config.Kafka.KafkaBrokers())
		if err != nil {
			lg.Error("failed to connect to kafka", "error", err)
			os.Exit(1)
		}
		forwarder := events.NewKafkaForwarder(producer, config.Kafka.Topic, lg)
		defer forwarder.Close()
		forwarder.Register(eventBus)
	}

	testEvent := events.BaseEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Data: map[string]interface{}{
			"message": eventData,
			"source":  "cli-command",
		},
	}

	lg.Info("publishing test event", "event_type", eventType, "event_id", testEvent.ID)

	if err := eventBus.PublishSync(context.Background(), testEvent); err != nil {
		lg.Error("failed to publish event", "error", err)
		os.Exit(1)
	}

	lg.Info("test event published successfully")
}

func tailEvents() {
	config := mustLoadConfig()
	lg := logger.LoggerWrapper()

	if !config.Kafka.Enabled {
		fmt.Fprintln(os.Stderr, "kafka is disabled in the configuration")
		os.Exit(1)
	}

	consumer, err := sarama.NewConsumer(config.Kafka.KafkaBrokers(), sarama.NewConfig())
	if err != nil {
		lg.Error("failed to create kafka consumer", "error", err)
		os.Exit(1)
	}
	defer consumer.Close()

	partitions, err := consumer.Partitions(config.Kafka.Topic)
	if err != nil {
		lg.Error("failed to list partitions", "topic", config.Kafka.Topic, "error", err)
		os.Exit(1)
	}

	offset := sarama.OffsetNewest
	if tailFromBeginning {
		offset = sarama.OffsetOldest
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var wg sync.WaitGroup
	for _, partition := range partitions {
		pc, err := consumer.ConsumePartition(config.Kafka.Topic, partition, offset)
		if err != nil {
			lg.Error("failed to consume partition", "partition", partition, "error", err)
			os.Exit(1)
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer pc.Close()
			for {
				select {
				case <-ctx.Done():
					return
				case msg, ok := <-pc.Messages():
					if !ok {
						return
					}
					env, err := events.DecodeEnvelope(msg.Value)
					if err != nil {
						lg.Warn("skipping message", "partition", msg.Partition, "offset", msg.Offset, "error", err)
						continue
					}
					lg.Info("event",
						"event_type", env.Type,
						"event_id", env.ID,
						"occurred_at", env.OccurredAt,
						"partition", msg.Partition,
						"offset", msg.Offset,
						"data", env.Data)
				}
			}
		}()
	}

	lg.Info("tailing events. Press Ctrl+C to stop.", "topic", config.Kafka.Topic, "partitions", len(partitions))
	wg.Wait()
}

func init() {
	publishEventCmd.Flags().StringVar(&eventData, "data", "test message", "Event data message")
	tailEventCmd.Flags().BoolVar(&tailFromBeginning, "from-beginning", false, "Start from the oldest retained offset")

	eventCmd.AddCommand(publishEventCmd)
	eventCmd.AddCommand(tailEventCmd)

	rootCmd.AddCommand(eventCmd)
}
