package retry

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockProducer struct {
	mock.Mock
}

func (m *mockProducer) ProduceJSON(ctx context.Context, topic, key string, v interface{}, headers map[string]string) error {
	args := m.Called(ctx, topic, key, v, headers)
	return args.Error(0)
}

type recordingPublisher struct {
	letters []*DeadLetter
	err     error
}

func (p *recordingPublisher) PublishToDLQ(ctx context.Context, letter *DeadLetter) error {
	p.letters = append(p.letters, letter)
	return p.err
}

func TestKafkaDLQPublisher_PublishToDLQ(t *testing.T) {
	producer := new(mockProducer)
	letter := &DeadLetter{OriginalTopic: "recipe-events", Key: "7", Attempts: 3, Source: "user-service"}

	producer.On("ProduceJSON", mock.Anything, "recipe-events.dlq", "7", letter,
		map[string]string{"original_topic": "recipe-events", "attempts": "3", "source": "user-service"},
	).Return(nil)

	require.NoError(t, NewKafkaDLQPublisher(producer).PublishToDLQ(context.Background(), letter))
	producer.AssertExpectations(t)
}

func TestDLQHandler_SuccessDoesNotPublish(t *testing.T) {
	pub := &recordingPublisher{}
	h := NewDLQHandler(fastConfig(2), pub, "user-service")

	err := h.Process(context.Background(), "recipe-events", "7", []byte(`{}`), func(ctx context.Context) error {
		return nil
	})

	assert.NoError(t, err)
	assert.Empty(t, pub.letters)
}

func TestDLQHandler_PublishesAfterRetries(t *testing.T) {
	pub := &recordingPublisher{}
	h := NewDLQHandler(fastConfig(2), pub, "user-service")
	cause := errors.New("database unavailable")

	err := h.Process(context.Background(), "recipe-events", "7", []byte(`{"recipe_id":7}`), func(ctx context.Context) error {
		return cause
	})

	var dead *DeadLetteredError
	require.ErrorAs(t, err, &dead)
	assert.ErrorIs(t, err, cause)
	require.Len(t, pub.letters, 1)
	assert.Equal(t, 3, pub.letters[0].Attempts)
	assert.Equal(t, "user-service", pub.letters[0].Source)
	assert.JSONEq(t, `{"recipe_id":7}`, string(pub.letters[0].Payload))
}

func TestDLQHandler_InvalidPayloadIsQuoted(t *testing.T) {
	pub := &recordingPublisher{}
	h := NewDLQHandler(fastConfig(0), pub, "user-service")

	_ = h.Process(context.Background(), "recipe-events", "", []byte("not json"), func(ctx context.Context) error {
		return Permanent(errors.New("bad event"))
	})

	require.Len(t, pub.letters, 1)
	var s string
	require.NoError(t, json.Unmarshal(pub.letters[0].Payload, &s))
	assert.Equal(t, "not json", s)
	assert.Equal(t, 1, pub.letters[0].Attempts)
}

func TestDLQHandler_PublishFailure(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	h := NewDLQHandler(fastConfig(0), pub, "user-service")

	err := h.Process(context.Background(), "recipe-events", "7", []byte(`{}`), func(ctx context.Context) error {
		return errors.New("boom")
	})

	var dead *DeadLetteredError
	assert.False(t, errors.As(err, &dead))
	assert.ErrorContains(t, err, "failed to publish to DLQ")
}

func TestDLQHandler_CanceledContextSkipsDLQ(t *testing.T) {
	pub := &recordingPublisher{}
	h := NewDLQHandler(fastConfig(3), pub, "user-service")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := h.Process(ctx, "recipe-events", "7", []byte(`{}`), func(ctx context.Context) error {
		return nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, pub.letters)
}
