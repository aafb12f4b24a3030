package cli

import (
	"errors"
	"testing"
	"time"

	"wellness-check-service/internal/config"
	"wellness-check-service/internal/domain"
	"wellness-check-service/internal/wellness"
)

func TestWellnessSettingsDefaults(t *testing.T) {
	settings, err := wellnessSettings(config.Wellness{})
	if err != nil {
		t.Fatalf("settings: %v", err)
	}
	if settings.Timings != wellness.DefaultTimings() {
		t.Fatalf("unexpected timings %+v", settings.Timings)
	}
	if settings.FailureWindow != 30*time.Minute || settings.Policy != wellness.EscalateOnce {
		t.Fatalf("unexpected settings %+v", settings)
	}
	if settings.Pools == nil {
		t.Fatalf("expected built-in word pools")
	}
}

func TestWellnessSettingsFromConfig(t *testing.T) {
	settings, err := wellnessSettings(config.Wellness{
		Study:            "4s",
		Response:         "3s",
		FailureWindow:    "1h",
		FailureThreshold: 3,
		EscalationPolicy: "every",
	})
	if err != nil {
		t.Fatalf("settings: %v", err)
	}
	if settings.Timings.Study != 4*time.Second || settings.Timings.GetReady != 5*time.Second || settings.Timings.Response != 3*time.Second {
		t.Fatalf("unexpected timings %+v", settings.Timings)
	}
	if settings.FailureWindow != time.Hour || settings.FailureThreshold != 3 || settings.Policy != wellness.EscalateEvery {
		t.Fatalf("unexpected settings %+v", settings)
	}
}

func TestWellnessSettingsRejectsBadValues(t *testing.T) {
	if _, err := wellnessSettings(config.Wellness{EscalationPolicy: "sometimes"}); err == nil {
		t.Fatalf("expected unknown policy to fail")
	}
	if _, err := wellnessSettings(config.Wellness{Study: "500ms"}); !errors.Is(err, domain.ErrInvalidTimings) {
		t.Fatalf("expected ErrInvalidTimings, got %v", err)
	}
	if _, err := wellnessSettings(config.Wellness{WordSets: [][]string{{"a", "b"}}}); !errors.Is(err, domain.ErrInvalidWordPool) {
		t.Fatalf("expected ErrInvalidWordPool, got %v", err)
	}
}
