package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestContextFieldsCarryPhaseAndEpisode(t *testing.T) {
	ctx := WithEpisode(WithPhase(context.Background(), "subtitle"), "ep01")
	fields := ContextFields(ctx)
	got := map[string]string{}
	for _, f := range fields {
		got[f.Key] = f.Value.String()
	}
	if got[FieldPhase] != "subtitle" || got[FieldEpisode] != "ep01" {
		t.Errorf("fields = %v", got)
	}
}

func TestWithContextAugmentsLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	ctx := WithEpisode(WithPhase(context.Background(), "mix"), "ep02")

	WithContext(ctx, logger).Info("placing segments")

	line := buf.String()
	if !strings.Contains(line, `"phase":"mix"`) || !strings.Contains(line, `"episode":"ep02"`) {
		t.Errorf("log line missing context fields: %s", line)
	}
}

func TestWithContextEmptyContextReturnsLogger(t *testing.T) {
	logger := NewNop()
	if got := WithContext(context.Background(), logger); got != logger {
		t.Error("expected the original logger back for an empty context")
	}
}
