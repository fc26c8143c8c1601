package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/BearBump/ParcelBox/internal/broker/messages"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type writerMock struct {
	mock.Mock
}

func (m *writerMock) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	args := m.Called(ctx, msgs)
	return args.Error(0)
}

type ProducerSuite struct {
	suite.Suite
	wm *writerMock
	p  *Producer
}

func (s *ProducerSuite) SetupTest() {
	s.wm = &writerMock{}
	s.p = newProducerWithWriter(s.wm)
}

func (s *ProducerSuite) TestNewProducer_Close() {
	p := NewProducer([]string{"localhost:0"})
	s.Require().NotNil(p)
	s.Require().NoError(p.Close())
}

func (s *ProducerSuite) TestPublish_TransitionKeyedByAttempt() {
	tr := messages.WorkflowTransition{
		AttemptID:      "att-1",
		Workflow:       "registration",
		TrackingNumber: "1Z999AA10123456784",
		From:           "Idle",
		To:             "Checking",
		At:             time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	value, err := json.Marshal(tr)
	s.Require().NoError(err)

	s.wm.
		On("WriteMessages", mock.Anything, mock.MatchedBy(func(msgs []kafka.Message) bool {
			if len(msgs) != 1 {
				return false
			}
			var got messages.WorkflowTransition
			if json.Unmarshal(msgs[0].Value, &got) != nil {
				return false
			}
			return msgs[0].Topic == messages.TopicWorkflowTransitions &&
				string(msgs[0].Key) == "att-1" &&
				got.To == "Checking"
		})).
		Return(nil).
		Once()

	s.Require().NoError(s.p.Publish(context.Background(), messages.TopicWorkflowTransitions, []byte(tr.AttemptID), value))
	s.wm.AssertExpectations(s.T())
}

func (s *ProducerSuite) TestPublish_ErrorWrapped() {
	want := errors.New("boom")
	s.wm.On("WriteMessages", mock.Anything, mock.Anything).Return(want).Once()

	err := s.p.Publish(context.Background(), messages.TopicWorkflowTransitions, []byte("k"), []byte("{}"))
	s.Require().Error(err)
	s.Require().ErrorIs(err, want)
	s.Require().Contains(err.Error(), "kafka publish")
	s.wm.AssertExpectations(s.T())
}

func TestProducerSuite(t *testing.T) {
	suite.Run(t, new(ProducerSuite))
}
