package retry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// DLQSuffix is appended to a topic name to form its dead letter topic
const DLQSuffix = ".dlq"

// DeadLetter is an event that could not be processed
type DeadLetter struct {
	OriginalTopic string          `json:"original_topic"`
	Key           string          `json:"key,omitempty"`
	Payload       json.RawMessage `json:"payload"`
	Error         string          `json:"error"`
	Attempts      int             `json:"attempts"`
	Source        string          `json:"source"`
	FailedAt      time.Time       `json:"failed_at"`
}

// JSONProducer is the producer surface needed to publish dead letters
type JSONProducer interface {
	ProduceJSON(ctx context.Context, topic, key string, v interface{}, headers map[string]string) error
}

// DLQPublisher moves failed events aside
type DLQPublisher interface {
	PublishToDLQ(ctx context.Context, letter *DeadLetter) error
}

// KafkaDLQPublisher writes dead letters to <topic>.dlq
type KafkaDLQPublisher struct {
	producer JSONProducer
}

// NewKafkaDLQPublisher creates a Kafka backed DLQPublisher
func NewKafkaDLQPublisher(producer JSONProducer) *KafkaDLQPublisher {
	return &KafkaDLQPublisher{producer: producer}
}

// PublishToDLQ publishes letter to the dead letter topic of its original topic
func (p *KafkaDLQPublisher) PublishToDLQ(ctx context.Context, letter *DeadLetter) error {
	headers := map[string]string{
		"original_topic": letter.OriginalTopic,
		"attempts":       strconv.Itoa(letter.Attempts),
		"source":         letter.Source,
	}
	return p.producer.ProduceJSON(ctx, letter.OriginalTopic+DLQSuffix, letter.Key, letter, headers)
}

// DLQHandler retries an event handler and dead-letters it once retries run out
type DLQHandler struct {
	retrier   *Retrier
	publisher DLQPublisher
	source    string
}

// NewDLQHandler creates a DLQHandler. A nil publisher only drops failed events.
func NewDLQHandler(cfg *Config, publisher DLQPublisher, source string) *DLQHandler {
	return &DLQHandler{retrier: New(cfg), publisher: publisher, source: source}
}

// Process runs op with retries. When op keeps failing the event is published
// to the DLQ and the processing error is returned so the caller can log it.
// A nil return means the event may be committed.
func (h *DLQHandler) Process(ctx context.Context, topic, key string, payload []byte, op Operation) error {
	attempts := 0
	err := h.retrier.Do(ctx, func(ctx context.Context) error {
		attempts++
		return op(ctx)
	}, nil)
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	if h.publisher != nil {
		letter := &DeadLetter{
			OriginalTopic: topic,
			Key:           key,
			Payload:       json.RawMessage(payload),
			Error:         err.Error(),
			Attempts:      attempts,
			Source:        h.source,
			FailedAt:      time.Now().UTC(),
		}
		if !json.Valid(payload) {
			letter.Payload, _ = json.Marshal(string(payload))
		}
		if pubErr := h.publisher.PublishToDLQ(ctx, letter); pubErr != nil {
			return fmt.Errorf("failed to publish to DLQ: %w (processing error: %v)", pubErr, err)
		}
	}
	return &DeadLetteredError{Err: err}
}

// DeadLetteredError reports an event that was moved to the DLQ
type DeadLetteredError struct {
	Err error
}

func (e *DeadLetteredError) Error() string { return "dead-lettered: " + e.Err.Error() }
func (e *DeadLetteredError) Unwrap() error { return e.Err }
