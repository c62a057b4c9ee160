package domain

import "time"

// Stage is one step of the verification pipeline.
type Stage string

const (
	StageIdle      Stage = "idle"
	StageUploading Stage = "uploading"
	StageAnalyzing Stage = "analyzing"
	StageVerifying Stage = "verifying"
	StageCompleted Stage = "completed"
	StageFailed    Stage = "failed"
)

// stageOrder fixes the forward order. Failed sorts after every live stage so the
// monotonic check holds for any live -> failed transition.
var stageOrder = map[Stage]int{
	StageIdle:      0,
	StageUploading: 1,
	StageAnalyzing: 2,
	StageVerifying: 3,
	StageCompleted: 4,
	StageFailed:    5,
}

// Index returns the stage position in the pipeline, -1 for unknown stages.
func (s Stage) Index() int {
	if i, ok := stageOrder[s]; ok {
		return i
	}
	return -1
}

// Terminal reports whether no further transition may leave s.
func (s Stage) Terminal() bool {
	return s == StageCompleted || s == StageFailed
}

// Before reports whether s precedes other in pipeline order.
func (s Stage) Before(other Stage) bool {
	return s.Index() < other.Index()
}

// VerificationCase is one subject's progression through the KYC pipeline.
type VerificationCase struct {
	CaseID          string    `json:"case_id"`
	SubjectID       string    `json:"subject_id"`
	Stage           Stage     `json:"stage"`
	ProgressPercent int       `json:"progress_percent"`
	FailureReason   string    `json:"failure_reason,omitempty"`
	StartedAt       time.Time `json:"started_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Snapshot is the observer view of a case at one transition.
func (c VerificationCase) Snapshot() CaseSnapshot {
	return CaseSnapshot{
		CaseID:          c.CaseID,
		Stage:           c.Stage,
		ProgressPercent: c.ProgressPercent,
		Reason:          c.FailureReason,
		At:              c.UpdatedAt,
	}
}

// CaseSnapshot is a single pushed progress update.
type CaseSnapshot struct {
	CaseID          string    `json:"case_id"`
	Stage           Stage     `json:"stage"`
	ProgressPercent int       `json:"progress_percent"`
	Reason          string    `json:"reason,omitempty"`
	At              time.Time `json:"at"`
}
