package ensemble

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"reflect"
	"strings"
	"testing"
	"time"

	"rhythmdb/internal/logging"
	"rhythmdb/internal/services"
)

func newTestRunner(run func(ctx context.Context, extraEnv []string, name string, args ...string) ([]byte, error)) *Runner {
	r := NewRunner("python3", "/opt/classify.py", time.Minute, false, logging.NewNop())
	r.runCommand = run
	return r
}

func argValue(args []string, flag string) string {
	for i, a := range args {
		if a == flag && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

func TestClassifyReadsOutputFile(t *testing.T) {
	doc := `{
		"instruments": ["Piano", "Drum Kit (acoustic)"],
		"scores": {"piano": 0.8},
		"decision_trace": {"per_model": {"panns": {"mean_probs": {"piano": 0.5}, "pos_ratio": {"piano": 0.9}}}},
		"used_demucs": false
	}`
	var gotArgs []string
	runner := newTestRunner(func(ctx context.Context, extraEnv []string, name string, args ...string) ([]byte, error) {
		gotArgs = args
		out := argValue(args, "--json-out")
		if out == "" {
			t.Fatal("missing --json-out argument")
		}
		if err := os.WriteFile(out, []byte(doc), 0o644); err != nil {
			t.Fatalf("write classifier doc: %v", err)
		}
		return []byte("model load chatter\n"), nil
	})

	res, err := runner.Classify(context.Background(), "/music/a.mp3", nil)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if !reflect.DeepEqual(res.Instruments, []string{"Piano", "Drum Kit (acoustic)"}) {
		t.Errorf("instruments = %v", res.Instruments)
	}
	if res.Mode != ModeMixOnly {
		t.Errorf("mode = %q, want %q", res.Mode, ModeMixOnly)
	}
	if argValue(gotArgs, "--audio") != "/music/a.mp3" {
		t.Errorf("audio arg = %q", argValue(gotArgs, "--audio"))
	}
	if argValue(gotArgs, "--demucs") != "0" {
		t.Errorf("demucs arg = %q", argValue(gotArgs, "--demucs"))
	}
	trace := res.Trace()
	if got := trace.PerModel["panns"].MeanProbs["piano"]; got != 0.5 {
		t.Errorf("trace mean = %v", got)
	}
}

func TestClassifyFallsBackToStdout(t *testing.T) {
	runner := newTestRunner(func(ctx context.Context, extraEnv []string, name string, args ...string) ([]byte, error) {
		return []byte("loading weights...\n{\"instruments\":[\"Organ\"],\"used_demucs\":true}"), nil
	})

	res, err := runner.Classify(context.Background(), "/music/b.wav", nil)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if !reflect.DeepEqual(res.Instruments, []string{"Organ"}) {
		t.Errorf("instruments = %v", res.Instruments)
	}
	if res.Mode != ModeStems {
		t.Errorf("mode = %q, want %q", res.Mode, ModeStems)
	}
}

func TestClassifyExportsHints(t *testing.T) {
	var gotEnv []string
	runner := newTestRunner(func(ctx context.Context, extraEnv []string, name string, args ...string) ([]byte, error) {
		gotEnv = extraEnv
		return []byte(`{"instruments":[]}`), nil
	})

	if _, err := runner.Classify(context.Background(), "/music/c.aif", []string{"Piano", "Strings"}); err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if len(gotEnv) != 1 || !strings.HasPrefix(gotEnv[0], hintsEnvVar+"=") {
		t.Fatalf("env = %v", gotEnv)
	}
	var payload struct {
		SuggestedInstruments []string `json:"suggestedInstruments"`
	}
	if err := json.Unmarshal([]byte(strings.TrimPrefix(gotEnv[0], hintsEnvVar+"=")), &payload); err != nil {
		t.Fatalf("decode hints payload: %v", err)
	}
	if !reflect.DeepEqual(payload.SuggestedInstruments, []string{"Piano", "Strings"}) {
		t.Errorf("hints = %v", payload.SuggestedInstruments)
	}
}

func TestClassifyRunFailure(t *testing.T) {
	runner := newTestRunner(func(ctx context.Context, extraEnv []string, name string, args ...string) ([]byte, error) {
		return nil, errors.New("exit status 2")
	})

	_, err := runner.Classify(context.Background(), "/music/d.mp3", nil)
	if !errors.Is(err, services.ErrEnsemble) {
		t.Fatalf("expected ErrEnsemble, got %v", err)
	}
}

func TestClassifyDisabled(t *testing.T) {
	runner := NewRunner("python3", "  ", time.Minute, false, logging.NewNop())
	if runner.Enabled() {
		t.Fatal("blank script must disable the runner")
	}
	if _, err := runner.Classify(context.Background(), "/music/e.mp3", nil); !errors.Is(err, services.ErrEnsemble) {
		t.Fatalf("expected ErrEnsemble, got %v", err)
	}
}

func TestMixOnlyRescuePannsPosBonus(t *testing.T) {
	// Combined mean 0.001 is under the 0.006 floor, so only the PANNs
	// pos-ratio bonus can admit the candidate.
	trace := ParseTrace(json.RawMessage(`{
		"per_model": {
			"panns":  {"mean_probs": {"electric_guitar": 0.001}, "pos_ratio": {"electric_guitar": 0.07}},
			"yamnet": {"mean_probs": {"electric_guitar": 0.0},   "pos_ratio": {"electric_guitar": 0.0}}
		}
	}`))
	got := trace.MixOnlyRescue()
	want := []string{"Electric Guitar"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("MixOnlyRescue = %v, want %v", got, want)
	}
}

func TestMixOnlyRescueRankingAndCap(t *testing.T) {
	stats := map[string]map[string]float64{
		"mean": {
			"piano":           0.030,
			"organ":           0.020,
			"drum_kit":        0.010,
			"bass_guitar":     0.008,
			"electric_guitar": 0.007,
			"strings":         0.001, // below combined floor, no pos bonus
		},
		"pos": {
			"piano":           0.30,
			"organ":           0.20,
			"drum_kit":        0.10,
			"bass_guitar":     0.05,
			"electric_guitar": 0.03,
			"strings":         0.01,
		},
	}
	doc := map[string]any{
		"per_model": map[string]any{
			"panns":  map[string]any{"mean_probs": stats["mean"], "pos_ratio": stats["pos"]},
			"yamnet": map[string]any{"mean_probs": map[string]float64{}, "pos_ratio": map[string]float64{}},
		},
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal trace: %v", err)
	}
	got := ParseTrace(raw).MixOnlyRescue()
	want := []string{"Piano", "Organ", "Drum Kit (acoustic)", "Bass Guitar"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("MixOnlyRescue = %v, want %v", got, want)
	}
}

func TestMixOnlyRescueEmptyTrace(t *testing.T) {
	if got := (DecisionTrace{}).MixOnlyRescue(); got != nil {
		t.Fatalf("MixOnlyRescue on empty trace = %v", got)
	}
}

func TestBoosterAdditionsTolerantShapes(t *testing.T) {
	trace := ParseTrace(json.RawMessage(`{
		"boosts": {
			"mix_only_core_v2":      {"added": ["Bass Guitar", "Drum Kit (acoustic)"]},
			"rna_hints":             {"added": "Organ"},
			"mix_only_strings_v1":   {"added": true},
			"mix_only_woodwinds_v1": {"added": ["bass guitar"]}
		}
	}`))
	got := trace.BoosterAdditions()
	want := []string{"Bass Guitar", "Drum Kit (acoustic)", "Organ"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("BoosterAdditions = %v, want %v", got, want)
	}
}

func TestParseTraceMalformed(t *testing.T) {
	trace := ParseTrace(json.RawMessage(`{"per_model": "oops"`))
	if len(trace.PerModel) != 0 || len(trace.Boosts) != 0 {
		t.Fatalf("expected zero trace, got %+v", trace)
	}
}
