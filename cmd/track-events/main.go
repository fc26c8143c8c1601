package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/BearBump/ParcelBox/config"
	"github.com/BearBump/ParcelBox/internal/broker/kafka"
	"github.com/BearBump/ParcelBox/internal/broker/messages"
	"github.com/pkg/errors"
)

func main() {
	cfg, err := config.LoadConfig(os.Getenv("configPath"))
	if err != nil {
		panic(fmt.Sprintf("ошибка парсинга конфига, %v", err))
	}
	if cfg.Kafka.Host == "" {
		panic("kafka.host is required for track-events")
	}

	topic := cfg.Kafka.TransitionsTopicName
	if topic == "" {
		topic = messages.TopicWorkflowTransitions
	}
	group := cfg.Kafka.TransitionsConsumerGroup
	if group == "" {
		group = "track-events"
	}

	brokers := []string{fmt.Sprintf("%s:%d", cfg.Kafka.Host, cfg.Kafka.Port)}
	consumer := kafka.NewConsumer(brokers, topic, group)
	defer func() { _ = consumer.Close() }()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := runTrackEvents(ctx, trackEventsOpts{topic: topic, consumerGroup: group}, consumer); err != nil && !errors.Is(err, context.Canceled) {
		panic(err)
	}
}
