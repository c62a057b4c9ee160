package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnv(t *testing.T) {
	t.Run("applies defaults", func(t *testing.T) {
		t.Setenv("TRUSTID_API_URL", "")
		t.Setenv("TRUSTID_SESSION_BACKEND", "")
		t.Setenv("KAFKA_BROKERS", "")

		cfg := FromEnv()

		assert.Equal(t, "http://localhost:8000", cfg.APIBaseURL)
		assert.Equal(t, "file", cfg.Session.Backend)
		assert.Equal(t, 2*time.Second, cfg.Workflow.UploadingDwell)
		assert.Equal(t, 3*time.Second, cfg.Workflow.AnalyzingDwell)
		assert.Equal(t, 4*time.Second, cfg.Workflow.VerifyingDwell)
		assert.Empty(t, cfg.Kafka.Brokers)
	})

	t.Run("reads overrides", func(t *testing.T) {
		t.Setenv("TRUSTID_API_URL", "https://verify.example.com/")
		t.Setenv("TRUSTID_SESSION_BACKEND", "Redis")
		t.Setenv("TRUSTID_STAGE_DWELL_ANALYZING", "250ms")
		t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")

		cfg := FromEnv()

		assert.Equal(t, "https://verify.example.com", cfg.APIBaseURL)
		assert.Equal(t, "redis", cfg.Session.Backend)
		assert.Equal(t, 250*time.Millisecond, cfg.Workflow.AnalyzingDwell)
		assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	})

	t.Run("ignores malformed durations", func(t *testing.T) {
		t.Setenv("TRUSTID_STAGE_DWELL_VERIFYING", "soon")
		t.Setenv("TRUSTID_BREAKER_FAILURES", "many")

		cfg := FromEnv()

		assert.Equal(t, 4*time.Second, cfg.Workflow.VerifyingDwell)
		assert.Equal(t, 5, cfg.Breaker.FailureThreshold)
	})
}
