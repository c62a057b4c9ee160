// Package workflow runs verification cases through the fixed KYC pipeline.
// Stage transitions are deferred actions on a clock, never polled.
package workflow

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"trustid/internal/domain"
	"trustid/internal/platform/metrics"
	"trustid/pkg/platform/audit"
	dErrors "trustid/pkg/domain-errors"
	"trustid/pkg/requestcontext"
)

// CaseHandle references a case for observation or cancellation.
type CaseHandle string

// Failure reasons set by the engine itself.
const (
	ReasonCancelled = "cancelled"
	ReasonStopped   = "engine stopped"
)

// StageCheck runs when a live stage's dwell elapses. A non-nil error fails the
// case with the error text as reason. There are no retries.
type StageCheck func(ctx context.Context, c domain.VerificationCase, input CaseInput) error

// PassAll is the default check.
func PassAll(context.Context, domain.VerificationCase, CaseInput) error { return nil }

// Engine owns every case it starts. All mutations hold mu; audit events are
// emitted after it is released.
type Engine struct {
	clock   clock.Clock
	plan    []StagePlan
	check   StageCheck
	auditor audit.Emitter
	metrics *metrics.Metrics
	logger  *zap.Logger
	newID   func(time.Time) string

	mu        sync.Mutex
	cases     map[CaseHandle]*caseRun
	bySubject map[string]CaseHandle
	stopped   bool
}

type caseRun struct {
	c         domain.VerificationCase
	input     CaseInput
	requestID string
	step      int
	gen       uint64
	timer     *clock.Timer
	history   []domain.CaseSnapshot
	observers []chan domain.CaseSnapshot
}

type Option func(*Engine)

func WithClock(c clock.Clock) Option {
	return func(e *Engine) {
		if c != nil {
			e.clock = c
		}
	}
}

func WithDwells(d Dwells) Option {
	return func(e *Engine) {
		e.plan = buildPlan(d)
	}
}

func WithStageCheck(check StageCheck) Option {
	return func(e *Engine) {
		if check != nil {
			e.check = check
		}
	}
}

func WithAuditor(a audit.Emitter) Option {
	return func(e *Engine) {
		if a != nil {
			e.auditor = a
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		clock:     clock.New(),
		plan:      buildPlan(Dwells{}),
		check:     PassAll,
		auditor:   audit.Discard,
		logger:    zap.NewNop(),
		newID:     newCaseID,
		cases:     make(map[CaseHandle]*caseRun),
		bySubject: make(map[string]CaseHandle),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Plan returns a copy of the live stage table.
func (e *Engine) Plan() []StagePlan {
	return append([]StagePlan(nil), e.plan...)
}

// Start opens a case for principal and moves it straight into the first live
// stage. It fails with invalid_state unless principal is a customer with no
// active case. A finished case for the same subject is replaced.
func (e *Engine) Start(ctx context.Context, principal domain.Identity, input CaseInput) (CaseHandle, error) {
	if principal.Role != domain.RoleCustomer {
		return "", dErrors.New(dErrors.CodeInvalidState, "only customers can start a verification case")
	}
	subjectID := strings.TrimSpace(principal.ID)
	if subjectID == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "subject id is required")
	}
	if err := input.Validate(); err != nil {
		return "", err
	}

	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return "", dErrors.New(dErrors.CodeInvalidState, "verification engine is stopped")
	}
	if prev, ok := e.bySubject[subjectID]; ok {
		if run := e.cases[prev]; run != nil && !run.c.Stage.Terminal() {
			e.mu.Unlock()
			return "", dErrors.New(dErrors.CodeInvalidState,
				fmt.Sprintf("subject already has active case %s", prev))
		}
		delete(e.cases, prev)
	}

	now := e.clock.Now()
	handle := CaseHandle(e.newID(now))
	for e.cases[handle] != nil {
		handle = CaseHandle(e.newID(now))
	}
	run := &caseRun{
		c: domain.VerificationCase{
			CaseID:    string(handle),
			SubjectID: subjectID,
			Stage:     domain.StageIdle,
			StartedAt: now,
			UpdatedAt: now,
		},
		input:     input,
		requestID: requestcontext.RequestID(ctx),
	}
	e.cases[handle] = run
	e.bySubject[subjectID] = handle
	e.metrics.IncrementCasesStarted()

	started := audit.NewEvent(audit.EventCaseStarted, subjectID)
	started.CaseID = string(handle)
	started.Timestamp = now.UTC()
	events := append([]audit.Event{started}, e.enter(handle, run, 0)...)
	e.mu.Unlock()

	e.logger.Info("verification case started",
		zap.String("case_id", string(handle)),
		zap.String("subject_id", subjectID),
		zap.String("document_kind", string(input.DocumentKind)),
	)
	e.emit(run.requestID, events)
	return handle, nil
}

// enter moves run into the live stage at step, arms its dwell timer and only
// then publishes the snapshot. Caller holds mu.
func (e *Engine) enter(handle CaseHandle, run *caseRun, step int) []audit.Event {
	p := e.plan[step]
	run.step = step
	run.gen++
	gen := run.gen
	run.timer = e.clock.AfterFunc(p.Dwell, func() {
		e.onDwellElapsed(handle, gen)
	})
	return e.transition(run, p.Stage, p.Progress, "")
}

// transition records the new stage and fans the snapshot out. Caller holds mu.
func (e *Engine) transition(run *caseRun, stage domain.Stage, progress int, reason string) []audit.Event {
	now := e.clock.Now()
	run.c.Stage = stage
	run.c.ProgressPercent = progress
	run.c.FailureReason = reason
	run.c.UpdatedAt = now

	snap := run.c.Snapshot()
	run.history = append(run.history, snap)
	for _, ch := range run.observers {
		ch <- snap
	}

	terminal := stage.Terminal()
	e.metrics.ObserveTransition(string(stage), terminal)

	action := audit.EventCaseStageChanged
	if terminal {
		for _, ch := range run.observers {
			close(ch)
		}
		run.observers = nil
		if run.timer != nil {
			run.timer.Stop()
			run.timer = nil
		}
		run.gen++
		action = audit.EventCaseCompleted
		if stage == domain.StageFailed {
			action = audit.EventCaseFailed
		}
	}

	ev := audit.NewEvent(action, run.c.SubjectID)
	ev.CaseID = run.c.CaseID
	ev.Stage = string(stage)
	ev.Reason = reason
	ev.Timestamp = now.UTC()
	return []audit.Event{ev}
}

// fail moves a live case to Failed keeping its last progress floor. Caller
// holds mu.
func (e *Engine) fail(run *caseRun, reason string) []audit.Event {
	return e.transition(run, domain.StageFailed, run.c.ProgressPercent, reason)
}

func (e *Engine) onDwellElapsed(handle CaseHandle, gen uint64) {
	e.mu.Lock()
	run, ok := e.current(handle, gen)
	if !ok {
		e.mu.Unlock()
		return
	}
	snapshot := run.c
	input := run.input
	ctx := requestcontext.WithRequestID(context.Background(), run.requestID)
	e.mu.Unlock()

	checkErr := e.check(ctx, snapshot, input)

	e.mu.Lock()
	// A cancel or stop may have landed while the check ran.
	if run, ok = e.current(handle, gen); !ok {
		e.mu.Unlock()
		return
	}
	var events []audit.Event
	switch next := run.step + 1; {
	case checkErr != nil:
		events = e.fail(run, checkErr.Error())
	case next < len(e.plan):
		events = e.enter(handle, run, next)
	default:
		events = e.transition(run, domain.StageCompleted, CompletedProgress, "")
	}
	stage := run.c.Stage
	e.mu.Unlock()

	if checkErr != nil {
		e.logger.Warn("verification stage check failed",
			zap.String("case_id", string(handle)),
			zap.String("stage", string(snapshot.Stage)),
			zap.Error(checkErr),
		)
	} else {
		e.logger.Debug("verification case advanced",
			zap.String("case_id", string(handle)),
			zap.String("stage", string(stage)),
		)
	}
	e.emit(run.requestID, events)
}

// current returns the run for handle if the timer generation gen still owns
// it. Caller holds mu.
func (e *Engine) current(handle CaseHandle, gen uint64) (*caseRun, bool) {
	run, ok := e.cases[handle]
	if !ok || run.gen != gen || run.c.Stage.Terminal() {
		return nil, false
	}
	return run, true
}

// Observe returns a finite stream of the case's snapshots: everything already
// emitted, in order, then live ones. The channel is closed right after the
// terminal snapshot. Sends never block the engine.
func (e *Engine) Observe(handle CaseHandle) (<-chan domain.CaseSnapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	run, ok := e.cases[handle]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, fmt.Sprintf("case %s not found", handle))
	}
	ch := make(chan domain.CaseSnapshot, maxSnapshots(e.plan))
	for _, snap := range run.history {
		ch <- snap
	}
	if run.c.Stage.Terminal() {
		close(ch)
		return ch, nil
	}
	run.observers = append(run.observers, ch)
	return ch, nil
}

// Cancel fails a live case immediately and disarms its timer. Cancelling a
// finished case is a no-op.
func (e *Engine) Cancel(ctx context.Context, handle CaseHandle) error {
	e.mu.Lock()
	run, ok := e.cases[handle]
	if !ok {
		e.mu.Unlock()
		return dErrors.New(dErrors.CodeNotFound, fmt.Sprintf("case %s not found", handle))
	}
	if run.c.Stage.Terminal() {
		e.mu.Unlock()
		return nil
	}
	events := e.fail(run, ReasonCancelled)
	e.mu.Unlock()

	e.logger.Info("verification case cancelled", zap.String("case_id", string(handle)))
	requestID := requestcontext.RequestID(ctx)
	if requestID == "" {
		requestID = run.requestID
	}
	e.emit(requestID, events)
	return nil
}

// Get returns a copy of the case.
func (e *Engine) Get(handle CaseHandle) (domain.VerificationCase, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	run, ok := e.cases[handle]
	if !ok {
		return domain.VerificationCase{}, dErrors.New(dErrors.CodeNotFound, fmt.Sprintf("case %s not found", handle))
	}
	return run.c, nil
}

// Latest returns the subject's most recent case, finished or not.
func (e *Engine) Latest(subjectID string) (domain.VerificationCase, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	run, ok := e.cases[e.bySubject[subjectID]]
	if !ok {
		return domain.VerificationCase{}, false
	}
	return run.c, true
}

// Active returns the subject's non-terminal case, if any.
func (e *Engine) Active(subjectID string) (domain.VerificationCase, bool) {
	c, ok := e.Latest(subjectID)
	if !ok || c.Stage.Terminal() {
		return domain.VerificationCase{}, false
	}
	return c, true
}

// Stop fails every live case and refuses new ones, so no observer is left
// waiting on a stream that cannot finish.
func (e *Engine) Stop() {
	e.mu.Lock()
	e.stopped = true
	var events []audit.Event
	for _, run := range e.cases {
		if !run.c.Stage.Terminal() {
			events = append(events, e.fail(run, ReasonStopped)...)
		}
	}
	e.mu.Unlock()
	e.emit("", events)
}

func (e *Engine) emit(requestID string, events []audit.Event) {
	ctx := requestcontext.WithRequestID(context.Background(), requestID)
	for _, ev := range events {
		if err := e.auditor.Emit(ctx, ev); err != nil {
			e.logger.Warn("audit emit failed",
				zap.String("action", ev.Action),
				zap.String("case_id", ev.CaseID),
				zap.Error(err),
			)
		}
	}
}

// newCaseID formats KYC-YYYYMMDD-XXXXXXXX.
func newCaseID(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("KYC-%s-%s", now.Format("20060102"), suffix)
}
