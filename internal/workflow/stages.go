package workflow

import (
	"time"

	"trustid/internal/domain"
)

// StagePlan is one live stage of the pipeline: the progress floor reported on
// entry and how long the stage stays active before its check runs.
type StagePlan struct {
	Stage       domain.Stage
	Progress    int
	Dwell       time.Duration
	Title       string
	Description string
}

const CompletedProgress = 100

// Default dwell periods per live stage.
const (
	DefaultUploadingDwell = 2 * time.Second
	DefaultAnalyzingDwell = 3 * time.Second
	DefaultVerifyingDwell = 4 * time.Second
)

// Dwells overrides the dwell of each live stage. Non-positive values keep the
// default.
type Dwells struct {
	Uploading time.Duration
	Analyzing time.Duration
	Verifying time.Duration
}

func buildPlan(d Dwells) []StagePlan {
	return []StagePlan{
		{
			Stage:       domain.StageUploading,
			Progress:    10,
			Dwell:       orDefault(d.Uploading, DefaultUploadingDwell),
			Title:       "Document Upload",
			Description: "Securely submit your identity documents",
		},
		{
			Stage:       domain.StageAnalyzing,
			Progress:    40,
			Dwell:       orDefault(d.Analyzing, DefaultAnalyzingDwell),
			Title:       "AI Analysis",
			Description: "Extracting data and cross-checking records",
		},
		{
			Stage:       domain.StageVerifying,
			Progress:    75,
			Dwell:       orDefault(d.Verifying, DefaultVerifyingDwell),
			Title:       "Due Diligence",
			Description: "Sanctions and adverse media screening",
		},
	}
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

// maxSnapshots is every live stage plus one terminal snapshot.
func maxSnapshots(plan []StagePlan) int {
	return len(plan) + 1
}
