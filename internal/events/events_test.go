package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"truthlens/internal/models"
)

type MockMessageWriter struct {
	mock.Mock
}

func (m *MockMessageWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	args := m.Called(ctx, msgs)
	return args.Error(0)
}

func (m *MockMessageWriter) Close() error {
	return m.Called().Error(0)
}

type MockMessageReader struct {
	mock.Mock
}

func (m *MockMessageReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	args := m.Called(ctx)
	return args.Get(0).(kafka.Message), args.Error(1)
}

func (m *MockMessageReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	args := m.Called(ctx, msgs)
	return args.Error(0)
}

func (m *MockMessageReader) Close() error {
	return m.Called().Error(0)
}

func sampleEvent(id string) AnalysisCompleted {
	return AnalysisCompleted{
		HistoryID:     id,
		Query:         "https://news.example.com/story",
		Kind:          models.QueryKindURL,
		Result:        &models.AnalysisResult{Verdict: models.VerdictMisleading, CredibilityScore: 64},
		CompletedAt:   time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC),
		CorrelationID: "corr-" + id,
	}
}

func TestKafkaPublisher_PublishAnalysisCompleted(t *testing.T) {
	writer := new(MockMessageWriter)
	publisher := &KafkaPublisher{writer: writer, topic: "truthlens.analysis.completed"}

	var written []kafka.Message
	writer.On("WriteMessages", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		written = args.Get(1).([]kafka.Message)
	}).Return(nil)

	require.NoError(t, publisher.PublishAnalysisCompleted(context.Background(), sampleEvent("h1")))

	require.Len(t, written, 1)
	assert.Equal(t, []byte("h1"), written[0].Key)
	assert.Equal(t, correlationHeader, written[0].Headers[0].Key)
	assert.Equal(t, []byte("corr-h1"), written[0].Headers[0].Value)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(written[0].Value, &decoded))
	assert.Equal(t, "h1", decoded["history_id"])
	assert.Equal(t, "url", decoded["kind"])
	writer.AssertExpectations(t)
}

func TestKafkaPublisher_WriteFailure(t *testing.T) {
	writer := new(MockMessageWriter)
	publisher := &KafkaPublisher{writer: writer, topic: "topic"}
	writer.On("WriteMessages", mock.Anything, mock.Anything).Return(errors.New("broker down"))

	err := publisher.PublishAnalysisCompleted(context.Background(), sampleEvent("h1"))
	assert.ErrorContains(t, err, "broker down")
	assert.ErrorContains(t, err, "topic")
}

func TestKafkaPublisher_RejectsIncompleteEvent(t *testing.T) {
	writer := new(MockMessageWriter)
	publisher := &KafkaPublisher{writer: writer, topic: "topic"}

	event := sampleEvent("h1")
	event.Result = nil
	err := publisher.PublishAnalysisCompleted(context.Background(), event)

	assert.ErrorIs(t, err, ErrMalformedEvent)
	writer.AssertNotCalled(t, "WriteMessages", mock.Anything, mock.Anything)
}

func TestNewPublisher(t *testing.T) {
	assert.IsType(t, NoopPublisher{}, NewPublisher(Config{Topic: "t"}))

	publisher := NewPublisher(Config{BootstrapServers: []string{"localhost:9092"}, Topic: "t"})
	require.IsType(t, &KafkaPublisher{}, publisher)
	assert.NoError(t, publisher.Close())
}

func TestNoopPublisher(t *testing.T) {
	var publisher Publisher = NoopPublisher{}
	assert.NoError(t, publisher.PublishAnalysisCompleted(context.Background(), sampleEvent("h1")))
	assert.NoError(t, publisher.Close())
}

func TestDecode_CorrelationFromHeader(t *testing.T) {
	event := sampleEvent("h2")
	event.CorrelationID = ""
	value, err := json.Marshal(event)
	require.NoError(t, err)

	decoded, err := decode(kafka.Message{
		Value:   value,
		Headers: []kafka.Header{{Key: correlationHeader, Value: []byte("from-header")}},
	})
	require.NoError(t, err)
	assert.Equal(t, "from-header", decoded.CorrelationID)
	assert.Equal(t, models.VerdictMisleading, decoded.Result.Verdict)
}

func TestDecode_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{"not json", "{{{"},
		{"missing history id", `{"result":{"verdict":"real"}}`},
		{"missing result", `{"history_id":"h1"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decode(kafka.Message{Value: []byte(tt.value)})
			assert.ErrorIs(t, err, ErrMalformedEvent)
		})
	}
}

func TestConsumer_Run(t *testing.T) {
	reader := new(MockMessageReader)
	consumer := &Consumer{reader: reader}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	good, err := encode(sampleEvent("good"))
	require.NoError(t, err)
	good.Offset = 1
	malformed := kafka.Message{Value: []byte("nope"), Offset: 2}
	failing, err := encode(sampleEvent("failing"))
	require.NoError(t, err)
	failing.Offset = 3

	reader.On("FetchMessage", mock.Anything).Return(good, nil).Once()
	reader.On("FetchMessage", mock.Anything).Return(malformed, nil).Once()
	reader.On("FetchMessage", mock.Anything).Return(failing, nil).Once()
	reader.On("FetchMessage", mock.Anything).Run(func(args mock.Arguments) {
		cancel()
	}).Return(kafka.Message{}, context.Canceled).Once()
	reader.On("CommitMessages", mock.Anything, []kafka.Message{good}).Return(nil).Once()
	reader.On("CommitMessages", mock.Anything, []kafka.Message{malformed}).Return(nil).Once()

	var handled []string
	err = consumer.Run(ctx, func(ctx context.Context, event AnalysisCompleted) error {
		handled = append(handled, event.HistoryID)
		if event.HistoryID == "failing" {
			return errors.New("database unavailable")
		}
		return nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"good", "failing"}, handled)
	reader.AssertExpectations(t)
	reader.AssertNumberOfCalls(t, "CommitMessages", 2)
}

func TestConsumer_FetchError(t *testing.T) {
	reader := new(MockMessageReader)
	consumer := &Consumer{reader: reader}
	reader.On("FetchMessage", mock.Anything).Return(kafka.Message{}, errors.New("connection reset")).Once()

	err := consumer.Run(context.Background(), func(ctx context.Context, event AnalysisCompleted) error {
		t.Fatal("handler should not run")
		return nil
	})
	assert.ErrorContains(t, err, "connection reset")
}
