//go:build integration

package kafka_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	audit "trustid/pkg/platform/audit"
	"trustid/pkg/platform/audit/store/kafka"
	"trustid/pkg/testutil/containers"
)

type KafkaSinkSuite struct {
	suite.Suite
	redpanda *containers.RedpandaContainer
	sink     *kafka.Sink
	topic    string
}

func TestKafkaSinkSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(KafkaSinkSuite))
}

func (s *KafkaSinkSuite) SetupSuite() {
	ctx := context.Background()
	s.redpanda = containers.NewRedpandaContainer(s.T())
	s.topic = "trustid.audit.test"

	sink, err := kafka.New(ctx, []string{s.redpanda.SeedBroker}, s.topic)
	s.Require().NoError(err)
	s.Require().NoError(sink.EnsureTopic(ctx, 1, 1))
	s.Require().NoError(sink.EnsureTopic(ctx, 1, 1), "existing topic is not an error")
	s.sink = sink
}

func (s *KafkaSinkSuite) TearDownSuite() {
	ctx := context.Background()
	_ = s.sink.Close(ctx)
	_ = s.redpanda.Container.Terminate(ctx)
}

func (s *KafkaSinkSuite) TestAppendProducesKeyedRecord() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	event := audit.NewEvent(audit.EventCaseCompleted, "u1")
	event.CaseID = "KYC-20261015-abcd1234"
	event.Stage = "completed"
	s.Require().NoError(s.sink.Append(ctx, event))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(s.redpanda.SeedBroker),
		kgo.ConsumeTopics(s.topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	s.Require().NoError(err)
	defer consumer.Close()

	fetches := consumer.PollFetches(ctx)
	s.Require().Empty(fetches.Errors())

	var got []audit.Event
	fetches.EachRecord(func(r *kgo.Record) {
		s.Equal("u1", string(r.Key))
		var e audit.Event
		s.Require().NoError(json.Unmarshal(r.Value, &e))
		got = append(got, e)
	})
	s.Require().NotEmpty(got)
	s.Equal(event.CaseID, got[0].CaseID)
	s.Equal(audit.CategoryCompliance, got[0].Category)
}
