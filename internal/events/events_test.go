package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/goccy/go-json"

	"eatdecider/backend/internal/domain"
)

func TestKafkaPublisherSendsKeyedJSON(t *testing.T) {
	producer := mocks.NewSyncProducer(t, NewProducerConfig())
	event := domain.FeedbackEvent{
		ID:        "fb-1",
		ItemID:    "BASE::1",
		Cuisine:   "Thai",
		Outcome:   domain.OutcomeOrdered,
		CreatedAt: time.Date(2026, 5, 1, 19, 30, 0, 0, time.UTC),
	}

	producer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		if msg.Topic != "eatdecider.feedback" {
			return errors.New("wrong topic " + msg.Topic)
		}
		key, _ := msg.Key.Encode()
		if string(key) != "BASE::1" {
			return errors.New("wrong key " + string(key))
		}
		value, _ := msg.Value.Encode()
		var decoded domain.FeedbackEvent
		if err := json.Unmarshal(value, &decoded); err != nil {
			return err
		}
		if decoded.ID != "fb-1" || decoded.Outcome != domain.OutcomeOrdered {
			return errors.New("unexpected payload " + string(value))
		}
		return nil
	})

	pub := NewKafkaPublisherWithProducer(producer, "eatdecider.feedback")
	if err := pub.PublishFeedback(context.Background(), event); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := pub.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestKafkaPublisherWrapsSendErrors(t *testing.T) {
	producer := mocks.NewSyncProducer(t, NewProducerConfig())
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	pub := NewKafkaPublisherWithProducer(producer, "eatdecider.feedback")
	err := pub.PublishFeedback(context.Background(), domain.FeedbackEvent{ID: "fb-2", ItemID: "x"})
	if !errors.Is(err, sarama.ErrOutOfBrokers) {
		t.Fatalf("expected wrapped ErrOutOfBrokers, got %v", err)
	}
	_ = pub.Close()
}

func TestNoopPublisher(t *testing.T) {
	var p FeedbackPublisher = NoopPublisher{}
	if err := p.PublishFeedback(context.Background(), domain.FeedbackEvent{}); err != nil {
		t.Fatalf("noop publish: %v", err)
	}
}
