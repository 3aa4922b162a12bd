package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/D-Tasker207/gazpacho-backend/pkg/dto"
	"github.com/D-Tasker207/gazpacho-backend/pkg/kafka"
	"github.com/google/uuid"
)

// EventPublisher defines the interface for publishing recipe events
type EventPublisher interface {
	// PublishRecipeDeleted announces that a recipe left the catalog
	PublishRecipeDeleted(ctx context.Context, recipeID int64) error

	// Close closes the event publisher
	Close() error
}

// MessageProducer is the part of a kafka producer the publisher needs
type MessageProducer interface {
	Produce(ctx context.Context, msg *kafka.Message) error
	Close()
}

// EventPublisherConfig contains configuration for the event publisher
type EventPublisherConfig struct {
	Brokers     []string
	Topic       string
	ServiceName string
	ClientID    string
}

// KafkaEventPublisher implements EventPublisher using Kafka
type KafkaEventPublisher struct {
	producer    MessageProducer
	topic       string
	serviceName string
}

// NewKafkaEventPublisher creates a new Kafka event publisher
func NewKafkaEventPublisher(ctx context.Context, cfg *EventPublisherConfig) (*KafkaEventPublisher, error) {
	if cfg == nil {
		return nil, fmt.Errorf("event publisher config is required")
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are required")
	}

	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "recipe-service-producer"
	}

	producer, err := kafka.NewProducer(ctx, &kafka.ProducerConfig{
		Brokers:       cfg.Brokers,
		ClientID:      clientID,
		MaxRetries:    3,
		RetryInterval: 2 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	return NewKafkaEventPublisherWithProducer(producer, cfg.Topic, cfg.ServiceName), nil
}

// NewKafkaEventPublisherWithProducer builds a publisher on an existing producer
func NewKafkaEventPublisherWithProducer(producer MessageProducer, topic, serviceName string) *KafkaEventPublisher {
	if topic == "" {
		topic = "recipe-events"
	}
	if serviceName == "" {
		serviceName = "recipe-service"
	}
	return &KafkaEventPublisher{producer: producer, topic: topic, serviceName: serviceName}
}

// PublishRecipeDeleted publishes a recipe.deleted event keyed by recipe id
func (p *KafkaEventPublisher) PublishRecipeDeleted(ctx context.Context, recipeID int64) error {
	event := dto.RecipeEvent{
		EventType:  dto.RecipeEventDeleted,
		RecipeID:   recipeID,
		OccurredAt: time.Now().UTC(),
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := &kafka.Message{
		Topic: p.topic,
		Key:   strconv.FormatInt(recipeID, 10),
		Value: value,
		Headers: map[string]string{
			"event_type":   string(event.EventType),
			"event_id":     uuid.New().String(),
			"source":       p.serviceName,
			"content_type": "application/json",
		},
	}

	if err := p.producer.Produce(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", event.EventType, err)
	}
	return nil
}

// Close closes the event publisher
func (p *KafkaEventPublisher) Close() error {
	if p.producer != nil {
		p.producer.Close()
	}
	return nil
}

// NoOpEventPublisher is used when Kafka is disabled or unreachable
type NoOpEventPublisher struct{}

// NewNoOpEventPublisher creates a new no-op event publisher
func NewNoOpEventPublisher() *NoOpEventPublisher {
	return &NoOpEventPublisher{}
}

// PublishRecipeDeleted is a no-op
func (p *NoOpEventPublisher) PublishRecipeDeleted(ctx context.Context, recipeID int64) error {
	return nil
}

// Close is a no-op
func (p *NoOpEventPublisher) Close() error {
	return nil
}
