package probes

import (
	"context"
	"errors"
	"testing"
	"time"

	"rhythmdb/internal/logging"
)

func newTestRunner(run func(ctx context.Context, name string, args ...string) ([]byte, error)) *Runner {
	r := NewRunner("python3", "/opt/probe.py", 3, 10, 15*time.Second, logging.NewNop())
	r.runCommand = run
	return r
}

func TestRunAggregatesHintsAndScores(t *testing.T) {
	calls := 0
	runner := newTestRunner(func(ctx context.Context, name string, args ...string) ([]byte, error) {
		calls++
		return []byte(`{"clap_top":[{"label":"Drum Kit","score":0.42},{"label":"Whisper","score":0.01}],"ast_labels":["Electric guitar"]}`), nil
	})

	result := runner.Run(context.Background(), "/music/a.mp3", 180)
	if result.Status != StatusOK {
		t.Fatalf("status = %q", result.Status)
	}
	if calls != 3 {
		t.Fatalf("expected 3 window probes, got %d", calls)
	}
	if len(result.Windows) != 3 {
		t.Fatalf("expected 3 window results, got %d", len(result.Windows))
	}
	if !result.Hints["drum kit"] {
		t.Error("expected drum kit hint above threshold")
	}
	if result.Hints["whisper"] {
		t.Error("whisper below threshold must not hint")
	}
	if !result.Hints["electric guitar"] {
		t.Error("expected ast label hint")
	}
	if got := result.Scores["drum kit"]; got < 0.41 || got > 0.43 {
		t.Errorf("mean score = %v", got)
	}
	if !result.HasHint("drum") {
		t.Error("HasHint(drum) should match drum kit")
	}
	if result.HasHint("saxophone") {
		t.Error("HasHint(saxophone) unexpectedly true")
	}
}

func TestRunIsolatesWindowFailures(t *testing.T) {
	calls := 0
	runner := newTestRunner(func(ctx context.Context, name string, args ...string) ([]byte, error) {
		calls++
		if calls == 2 {
			return nil, errors.New("exit status 1")
		}
		return []byte(`{"clap_top":[{"label":"Piano","score":0.5}],"ast_labels":[]}`), nil
	})

	result := runner.Run(context.Background(), "/music/a.mp3", 180)
	if result.Status != StatusOK {
		t.Fatalf("status = %q", result.Status)
	}
	if len(result.Windows) != 2 {
		t.Fatalf("expected 2 surviving windows, got %d", len(result.Windows))
	}
}

func TestRunAllWindowsFailedYieldsSkipped(t *testing.T) {
	runner := newTestRunner(func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return nil, errors.New("boom")
	})

	result := runner.Run(context.Background(), "/music/a.mp3", 180)
	if result.Status != StatusSkipped {
		t.Fatalf("status = %q", result.Status)
	}
	if len(result.Hints) != 0 {
		t.Fatalf("expected empty hints, got %v", result.Hints)
	}
}

func TestRunDisabledWithoutScript(t *testing.T) {
	r := NewRunner("python3", "", 3, 10, time.Second, logging.NewNop())
	if r.Enabled() {
		t.Fatal("runner without script must be disabled")
	}
	result := r.Run(context.Background(), "/music/a.mp3", 180)
	if result.Status != StatusSkipped {
		t.Fatalf("status = %q", result.Status)
	}
}

func TestRunToleratesLeadingChatter(t *testing.T) {
	runner := newTestRunner(func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return []byte("Loading model...\n{\"clap_top\":[{\"label\":\"Organ\",\"score\":0.3}],\"ast_labels\":[]}"), nil
	})
	result := runner.Run(context.Background(), "/music/a.mp3", 60)
	if result.Status != StatusOK || !result.Hints["organ"] {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestWindowStarts(t *testing.T) {
	starts := windowStarts(180, 3, 10)
	if len(starts) != 3 {
		t.Fatalf("expected 3 starts, got %v", starts)
	}
	if starts[0] >= starts[1] || starts[1] >= starts[2] {
		t.Fatalf("starts must ascend: %v", starts)
	}
	if starts[2] > 170 {
		t.Fatalf("last window must fit inside track: %v", starts)
	}

	if got := windowStarts(8, 3, 10); len(got) != 1 || got[0] != 0 {
		t.Fatalf("short track should collapse to one window: %v", got)
	}
}

func TestHintLabelsSorted(t *testing.T) {
	r := Result{Hints: map[string]bool{"piano": true, "brass": true, "drums": false}}
	labels := r.HintLabels()
	if len(labels) != 2 || labels[0] != "brass" || labels[1] != "piano" {
		t.Fatalf("labels = %v", labels)
	}
}
