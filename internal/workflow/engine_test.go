package workflow

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"trustid/internal/domain"
	"trustid/internal/platform/metrics"
	"trustid/pkg/platform/audit"
	"trustid/pkg/platform/audit/publisher"
	auditmemory "trustid/pkg/platform/audit/store/memory"
	dErrors "trustid/pkg/domain-errors"
)

var (
	alice = domain.Identity{ID: "u1", DisplayName: "A", Email: "a@b.com", Role: domain.RoleCustomer}
	bob   = domain.Identity{ID: "u2", DisplayName: "B", Email: "b@b.com", Role: domain.RoleCustomer}
	ops   = domain.Identity{ID: "e1", DisplayName: "Ops", Email: "ops@bank.com", Role: domain.RoleEmployee}
)

type EngineSuite struct {
	suite.Suite
	ctx     context.Context
	clock   *clock.Mock
	audit   *auditmemory.InMemoryStore
	metrics *metrics.Metrics
	engine  *Engine
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineSuite))
}

func (s *EngineSuite) SetupTest() {
	s.ctx = context.Background()
	s.clock = clock.NewMock()
	s.clock.Set(time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC))
	s.audit = auditmemory.NewInMemoryStore()
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.engine = s.newEngine()
}

func (s *EngineSuite) newEngine(opts ...Option) *Engine {
	base := []Option{
		WithClock(s.clock),
		WithAuditor(publisher.NewPublisher(s.audit)),
		WithMetrics(s.metrics),
	}
	return NewEngine(append(base, opts...)...)
}

func (s *EngineSuite) next(ch <-chan domain.CaseSnapshot) domain.CaseSnapshot {
	s.T().Helper()
	select {
	case snap, ok := <-ch:
		s.Require().True(ok, "stream closed early")
		return snap
	case <-time.After(2 * time.Second):
		s.FailNow("timed out waiting for snapshot")
		return domain.CaseSnapshot{}
	}
}

func (s *EngineSuite) requireClosed(ch <-chan domain.CaseSnapshot) {
	s.T().Helper()
	select {
	case snap, ok := <-ch:
		s.Require().False(ok, "unexpected snapshot %+v", snap)
	case <-time.After(2 * time.Second):
		s.FailNow("stream not closed")
	}
}

func (s *EngineSuite) requireQuiet(ch <-chan domain.CaseSnapshot) {
	s.T().Helper()
	select {
	case snap, ok := <-ch:
		s.Failf("unexpected stream activity", "snapshot=%+v open=%v", snap, ok)
	case <-time.After(20 * time.Millisecond):
	}
}

func (s *EngineSuite) TestStartRegeneratesCollidingCaseID() {
	ids := []string{"KYC-20260314-AAAAAAAA", "KYC-20260314-AAAAAAAA", "KYC-20260314-BBBBBBBB"}
	s.engine.newID = func(time.Time) string {
		id := ids[0]
		ids = ids[1:]
		return id
	}

	first, err := s.engine.Start(s.ctx, alice, CaseInput{DocumentKind: DocumentPassport})
	s.Require().NoError(err)
	second, err := s.engine.Start(s.ctx, bob, CaseInput{DocumentKind: DocumentPassport})
	s.Require().NoError(err)

	s.Equal(CaseHandle("KYC-20260314-AAAAAAAA"), first)
	s.Equal(CaseHandle("KYC-20260314-BBBBBBBB"), second)
	s.Empty(ids)

	c, err := s.engine.Get(first)
	s.Require().NoError(err)
	s.Equal(alice.ID, c.SubjectID)
	c, err = s.engine.Get(second)
	s.Require().NoError(err)
	s.Equal(bob.ID, c.SubjectID)
}

func (s *EngineSuite) TestHappyPath() {
	handle, err := s.engine.Start(s.ctx, alice, CaseInput{DocumentKind: DocumentPassport})
	s.Require().NoError(err)
	s.Regexp(regexp.MustCompile(`^KYC-20260314-[0-9A-F]{8}$`), string(handle))

	ch, err := s.engine.Observe(handle)
	s.Require().NoError(err)

	first := s.next(ch)
	s.Equal(domain.StageUploading, first.Stage)
	s.Equal(10, first.ProgressPercent)

	s.clock.Add(DefaultUploadingDwell - time.Millisecond)
	s.requireQuiet(ch)
	s.clock.Add(time.Millisecond)
	s.Equal(domain.CaseSnapshot{CaseID: string(handle), Stage: domain.StageAnalyzing, ProgressPercent: 40, At: s.clock.Now()}, s.next(ch))

	s.clock.Add(DefaultAnalyzingDwell)
	s.Equal(domain.StageVerifying, s.next(ch).Stage)

	s.clock.Add(DefaultVerifyingDwell)
	last := s.next(ch)
	s.Equal(domain.StageCompleted, last.Stage)
	s.Equal(100, last.ProgressPercent)
	s.requireClosed(ch)

	c, err := s.engine.Get(handle)
	s.Require().NoError(err)
	s.Equal(domain.StageCompleted, c.Stage)
	s.Equal(9*time.Second, c.UpdatedAt.Sub(c.StartedAt))
	_, active := s.engine.Active(alice.ID)
	s.False(active)

	s.Eventually(func() bool {
		events, _ := s.audit.ListBySubject(s.ctx, alice.ID)
		return len(events) == 5
	}, time.Second, 5*time.Millisecond)
	events, err := s.audit.ListBySubject(s.ctx, alice.ID)
	s.Require().NoError(err)
	var actions []string
	for _, ev := range events {
		actions = append(actions, ev.Action)
		s.Equal(string(handle), ev.CaseID)
	}
	s.ElementsMatch([]string{
		string(audit.EventCaseStarted),
		string(audit.EventCaseStageChanged),
		string(audit.EventCaseStageChanged),
		string(audit.EventCaseStageChanged),
		string(audit.EventCaseCompleted),
	}, actions)

	s.Equal(1.0, testutil.ToFloat64(s.metrics.CasesStarted))
	s.Equal(1.0, testutil.ToFloat64(s.metrics.CasesFinished.WithLabelValues("completed")))
}

func (s *EngineSuite) TestObserveReplaysHistory() {
	handle, err := s.engine.Start(s.ctx, alice, CaseInput{})
	s.Require().NoError(err)
	live, err := s.engine.Observe(handle)
	s.Require().NoError(err)
	s.next(live)

	s.clock.Add(DefaultUploadingDwell)
	s.next(live)

	late, err := s.engine.Observe(handle)
	s.Require().NoError(err)
	s.Equal(domain.StageUploading, s.next(late).Stage)
	s.Equal(domain.StageAnalyzing, s.next(late).Stage)

	s.clock.Add(DefaultAnalyzingDwell)
	s.clock.Add(DefaultVerifyingDwell)
	for _, ch := range []<-chan domain.CaseSnapshot{live, late} {
		s.Equal(domain.StageVerifying, s.next(ch).Stage)
		s.Equal(domain.StageCompleted, s.next(ch).Stage)
		s.requireClosed(ch)
	}

	s.Run("after terminal the full sequence is replayed then closed", func() {
		ch, err := s.engine.Observe(handle)
		s.Require().NoError(err)
		var progress []int
		for snap := range ch {
			progress = append(progress, snap.ProgressPercent)
		}
		s.Equal([]int{10, 40, 75, 100}, progress)
	})
}

func (s *EngineSuite) TestStartRejections() {
	s.Run("non-customer", func() {
		_, err := s.engine.Start(s.ctx, ops, CaseInput{})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})

	s.Run("unauthenticated principal", func() {
		_, err := s.engine.Start(s.ctx, domain.Identity{}, CaseInput{})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})

	s.Run("invalid input", func() {
		_, err := s.engine.Start(s.ctx, alice, CaseInput{DocumentKind: "selfie"})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
		_, err = s.engine.Start(s.ctx, alice, CaseInput{DocumentBytes: MaxDocumentBytes + 1})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("already active leaves the case unaltered", func() {
		handle, err := s.engine.Start(s.ctx, alice, CaseInput{})
		s.Require().NoError(err)
		before, err := s.engine.Get(handle)
		s.Require().NoError(err)

		_, err = s.engine.Start(s.ctx, alice, CaseInput{})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))

		after, err := s.engine.Get(handle)
		s.Require().NoError(err)
		s.Equal(before, after)
		active, ok := s.engine.Active(alice.ID)
		s.True(ok)
		s.Equal(string(handle), active.CaseID)
	})
}

func (s *EngineSuite) TestCancel() {
	handle, err := s.engine.Start(s.ctx, alice, CaseInput{})
	s.Require().NoError(err)
	ch, err := s.engine.Observe(handle)
	s.Require().NoError(err)
	s.next(ch)
	s.clock.Add(DefaultUploadingDwell)
	s.next(ch)

	s.Require().NoError(s.engine.Cancel(s.ctx, handle))
	failed := s.next(ch)
	s.Equal(domain.StageFailed, failed.Stage)
	s.Equal(40, failed.ProgressPercent)
	s.Equal(ReasonCancelled, failed.Reason)
	s.requireClosed(ch)

	s.Run("stale timer does nothing", func() {
		s.clock.Add(time.Minute)
		c, err := s.engine.Get(handle)
		s.Require().NoError(err)
		s.Equal(domain.StageFailed, c.Stage)
	})

	s.Run("cancelling a finished case is a no-op", func() {
		s.NoError(s.engine.Cancel(s.ctx, handle))
	})

	s.Run("unknown case", func() {
		err := s.engine.Cancel(s.ctx, "KYC-00000000-DEADBEEF")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("a failed case can be restarted", func() {
		fresh, err := s.engine.Start(s.ctx, alice, CaseInput{})
		s.Require().NoError(err)
		s.NotEqual(handle, fresh)
		_, err = s.engine.Observe(handle)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *EngineSuite) TestStageCheckFailure() {
	screening := errors.New("sanctions list match")
	engine := s.newEngine(WithStageCheck(func(_ context.Context, c domain.VerificationCase, _ CaseInput) error {
		if c.Stage == domain.StageVerifying {
			return screening
		}
		return nil
	}))

	handle, err := engine.Start(s.ctx, alice, CaseInput{})
	s.Require().NoError(err)
	ch, err := engine.Observe(handle)
	s.Require().NoError(err)
	s.next(ch)
	s.clock.Add(DefaultUploadingDwell)
	s.next(ch)
	s.clock.Add(DefaultAnalyzingDwell)
	s.next(ch)
	s.clock.Add(DefaultVerifyingDwell)

	failed := s.next(ch)
	s.Equal(domain.StageFailed, failed.Stage)
	s.Equal(75, failed.ProgressPercent)
	s.Equal("sanctions list match", failed.Reason)
	s.requireClosed(ch)

	s.Eventually(func() bool {
		events, _ := s.audit.ListBySubject(s.ctx, alice.ID)
		for _, ev := range events {
			if ev.Action == string(audit.EventCaseFailed) && ev.Reason == "sanctions list match" {
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)
}

func (s *EngineSuite) TestSubjectsProgressIndependently() {
	first, err := s.engine.Start(s.ctx, alice, CaseInput{})
	s.Require().NoError(err)
	firstCh, err := s.engine.Observe(first)
	s.Require().NoError(err)
	s.next(firstCh)

	s.clock.Add(time.Second)
	second, err := s.engine.Start(s.ctx, bob, CaseInput{})
	s.Require().NoError(err)
	secondCh, err := s.engine.Observe(second)
	s.Require().NoError(err)
	s.next(secondCh)

	s.clock.Add(time.Second)
	s.Equal(domain.StageAnalyzing, s.next(firstCh).Stage)
	s.requireQuiet(secondCh)

	s.Require().NoError(s.engine.Cancel(s.ctx, first))
	s.Equal(domain.StageFailed, s.next(firstCh).Stage)

	s.clock.Add(time.Second)
	s.Equal(domain.StageAnalyzing, s.next(secondCh).Stage)
}

func (s *EngineSuite) TestStop() {
	handle, err := s.engine.Start(s.ctx, alice, CaseInput{})
	s.Require().NoError(err)
	ch, err := s.engine.Observe(handle)
	s.Require().NoError(err)
	s.next(ch)

	s.engine.Stop()
	failed := s.next(ch)
	s.Equal(ReasonStopped, failed.Reason)
	s.requireClosed(ch)

	_, err = s.engine.Start(s.ctx, bob, CaseInput{})
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
}

func TestEngine_RealClock(t *testing.T) {
	engine := NewEngine(WithDwells(Dwells{
		Uploading: 5 * time.Millisecond,
		Analyzing: 5 * time.Millisecond,
		Verifying: 5 * time.Millisecond,
	}))
	handle, err := engine.Start(context.Background(), alice, CaseInput{})
	require.NoError(t, err)
	ch, err := engine.Observe(handle)
	require.NoError(t, err)

	var stages []domain.Stage
	var progress []int
	timeout := time.After(2 * time.Second)
	for done := false; !done; {
		select {
		case snap, ok := <-ch:
			if !ok {
				done = true
				break
			}
			stages = append(stages, snap.Stage)
			progress = append(progress, snap.ProgressPercent)
		case <-timeout:
			t.Fatal("case did not finish")
		}
	}
	require.Equal(t, []domain.Stage{domain.StageUploading, domain.StageAnalyzing, domain.StageVerifying, domain.StageCompleted}, stages)
	require.Equal(t, []int{10, 40, 75, 100}, progress)
}

func TestPlan(t *testing.T) {
	plan := NewEngine(WithDwells(Dwells{Analyzing: time.Second, Verifying: -1})).Plan()
	require.Len(t, plan, 3)
	require.Equal(t, DefaultUploadingDwell, plan[0].Dwell)
	require.Equal(t, time.Second, plan[1].Dwell)
	require.Equal(t, DefaultVerifyingDwell, plan[2].Dwell)
	for i := 1; i < len(plan); i++ {
		require.True(t, plan[i-1].Stage.Before(plan[i].Stage))
		require.Less(t, plan[i-1].Progress, plan[i].Progress)
	}
}
