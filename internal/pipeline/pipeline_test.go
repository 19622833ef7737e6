package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"rhythmdb/internal/analysis"
	"rhythmdb/internal/config"
	"rhythmdb/internal/creative"
	"rhythmdb/internal/library"
	"rhythmdb/internal/logging"
	"rhythmdb/internal/services"
	"rhythmdb/internal/testsupport"
	"rhythmdb/internal/trackkey"
)

func newPipeline(t *testing.T, opts ...testsupport.ConfigOption) (*Pipeline, *config.Config, *library.Store) {
	t.Helper()
	opts = append([]testsupport.ConfigOption{testsupport.WithStubbedTools()}, opts...)
	cfg := testsupport.NewConfig(t, opts...)
	store := testsupport.NewStore(t, cfg)
	return New(cfg, store, logging.NewNop()), cfg, store
}

// containerJSON is a plausible ffprobe document for a 241.345 s stereo MP3
// carrying an embedded TBPM tag.
const containerJSON = `{
  "streams": [
    {"index": 0, "codec_name": "mp3", "codec_type": "audio",
     "duration": "241.345", "bit_rate": "192000",
     "sample_rate": "44100", "channels": 2}
  ],
  "format": {"filename": "clip.mp3", "nb_streams": 1,
    "duration": "241.345", "size": "5791234", "bit_rate": "192000",
    "format_name": "mp3", "tags": {"TBPM": "148"}}
}`

func stubFFprobeJSON(t *testing.T, cfg *config.Config, doc string) {
	t.Helper()
	dir := filepath.Dir(cfg.Tools.FFprobe)
	body := "cat <<'JSON'\n" + doc + "\nJSON"
	cfg.Tools.FFprobe = testsupport.StubTool(t, dir, "ffprobe", body)
}

func TestTechnicalComposesRecord(t *testing.T) {
	p, cfg, _ := newPipeline(t)
	stubFFprobeJSON(t, cfg, containerJSON)

	dir := t.TempDir()
	path := filepath.Join(dir, "Clip.mp3")
	testsupport.WriteFile(t, path, 64)
	testsupport.WriteWAV(t, filepath.Join(dir, "Clip.wav"), 0.1)

	rec, err := p.Technical(context.Background(), path)
	if err != nil {
		t.Fatalf("Technical failed: %v", err)
	}

	if rec.Key != trackkey.Key(path) || rec.File != "Clip.mp3" {
		t.Errorf("identity = %q / %q", rec.Key, rec.File)
	}
	if rec.Technical.DurationSec != 241.345 {
		t.Errorf("DurationSec = %v, want 241.345", rec.Technical.DurationSec)
	}
	if rec.Technical.SampleRateHz != 44100 || rec.Technical.Channels != 2 {
		t.Errorf("stream = %d Hz / %d ch", rec.Technical.SampleRateHz, rec.Technical.Channels)
	}
	if rec.Technical.BitRate != 192000 || rec.Technical.Codec != "mp3" {
		t.Errorf("container = %d bps / %q", rec.Technical.BitRate, rec.Technical.Codec)
	}
	if !rec.Technical.HasWAVVersion {
		t.Error("HasWAVVersion = false with a .wav sibling present")
	}

	// The ffmpeg stub fails, so both tempo strategies come up empty and the
	// embedded TBPM takes over.
	if rec.BPM() != 148 || rec.Technical.BPMSource != "id3" {
		t.Errorf("tempo = %d via %q, want 148 via id3", rec.BPM(), rec.Technical.BPMSource)
	}
	if rec.Technical.EstimatedBPM != nil {
		t.Errorf("EstimatedBPM = %v, want nil with no strategy result", *rec.Technical.EstimatedBPM)
	}
	if rec.Technical.BPMAltHalf == nil || *rec.Technical.BPMAltHalf != 74 {
		t.Errorf("BPMAltHalf = %v, want 74", rec.Technical.BPMAltHalf)
	}
	if rec.Technical.BPMAltDouble != nil {
		t.Errorf("BPMAltDouble = %v, want nil above 200", *rec.Technical.BPMAltDouble)
	}
	if len(rec.ProbeHints) != 0 {
		t.Errorf("ProbeHints = %v with probing disabled", rec.ProbeHints)
	}
}

func TestTechnicalProbeFailureIsFatal(t *testing.T) {
	p, _, _ := newPipeline(t)

	path := filepath.Join(t.TempDir(), "broken.mp3")
	testsupport.WriteFile(t, path, 16)

	_, err := p.Technical(context.Background(), path)
	if !errors.Is(err, services.ErrProbeFailed) {
		t.Fatalf("err = %v, want probe failure", err)
	}
	if !services.Fatal(err) {
		t.Error("probe failure must be fatal for the track")
	}
}

func TestTechnicalRejectsSilentContainer(t *testing.T) {
	p, cfg, _ := newPipeline(t)
	stubFFprobeJSON(t, cfg, `{"streams": [], "format": {"duration": "10"}}`)

	path := filepath.Join(t.TempDir(), "video.mp3")
	testsupport.WriteFile(t, path, 16)

	_, err := p.Technical(context.Background(), path)
	if !errors.Is(err, services.ErrProbeFailed) {
		t.Fatalf("err = %v, want probe failure for a container with no audio stream", err)
	}
}

func TestCreativeDegradesOffline(t *testing.T) {
	p, _, _ := newPipeline(t)

	rec := analysis.NewRecord("/music/clip.mp3")
	facts, status, err := p.Creative(context.Background(), rec)
	if err != nil {
		t.Fatalf("Creative errored: %v", err)
	}
	if status != creative.StatusOffline {
		t.Errorf("status = %q, want offline", status)
	}
	if got, want := facts.Vocals, []string{"No Vocals"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Vocals = %v, want defaults", got)
	}
}

func TestCreativeReportsInterruption(t *testing.T) {
	p, _, _ := newPipeline(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, status, err := p.Creative(ctx, analysis.NewRecord("/music/clip.mp3"))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want cancellation", err)
	}
	if status != "" {
		t.Errorf("status = %q, want empty so the interrupted marker applies", status)
	}
}

func TestInstrumentationDisabledWithoutScript(t *testing.T) {
	p, _, _ := newPipeline(t)

	instr, err := p.Instrumentation(context.Background(), analysis.NewRecord("/music/clip.mp3"), nil)
	if err != nil {
		t.Fatalf("Instrumentation errored: %v", err)
	}
	if len(instr.Instruments) != 0 || instr.Mode != "" {
		t.Errorf("instrumentation = %+v, want empty without a classifier", instr)
	}
}

// classifierStub builds a python3 stub that writes doc to the --json-out
// target, mimicking the real classifier's file handoff.
func classifierStub(t *testing.T, cfg *config.Config, doc string) {
	t.Helper()
	dir := filepath.Dir(cfg.Tools.Python)
	body := `out=""
prev=""
for arg in "$@"; do
  if [ "$prev" = "--json-out" ]; then out="$arg"; fi
  prev="$arg"
done
cat > "$out" <<'JSON'
` + doc + `
JSON`
	cfg.Tools.Python = testsupport.StubTool(t, dir, "python3", body)
	cfg.Ensemble.Script = testsupport.StubTool(t, dir, "classify.py", "exit 0")
}

func TestInstrumentationFinalizesClassifierOutput(t *testing.T) {
	// The script path must be on the config before New wires the runner.
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedTools())
	classifierStub(t, cfg, `{"instruments": ["Drum set", "Electric Guitar", "Trumpet"],
  "scores": {},
  "decision_trace": {"boosts": {"organ_rescue": {"added": ["Organ"]}}},
  "used_demucs": true, "mode": "stems"}`)
	p := New(cfg, testsupport.NewStore(t, cfg), logging.NewNop())

	path := filepath.Join(t.TempDir(), "band.mp3")
	testsupport.WriteFile(t, path, 16)
	rec := analysis.NewRecord(path)

	instr, err := p.Instrumentation(context.Background(), rec, nil)
	if err != nil {
		t.Fatalf("Instrumentation errored: %v", err)
	}

	want := []string{"Brass", "Drum Kit (acoustic)", "Electric Guitar", "Organ"}
	if !reflect.DeepEqual(instr.FinalInstruments, want) {
		t.Errorf("FinalInstruments = %v, want %v", instr.FinalInstruments, want)
	}
	if !reflect.DeepEqual(instr.Instruments, want) {
		t.Errorf("Instruments = %v, want the same finalized list", instr.Instruments)
	}
	if !instr.UsedDemucs || instr.Mode != "stems" {
		t.Errorf("mode = %q demucs=%v, want stems run", instr.Mode, instr.UsedDemucs)
	}
	if len(instr.DecisionTrace) == 0 {
		t.Error("DecisionTrace not retained")
	}
}

func TestInstrumentationMixOnlyRescue(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedTools())
	// Piano misses the combined-mean floor but clears the PANNs positive
	// ratio alone, which is the second rescue branch.
	classifierStub(t, cfg, `{"instruments": [],
  "scores": {},
  "decision_trace": {"per_model": {
    "panns": {"mean_probs": {"piano": 0.005}, "pos_ratio": {"piano": 0.08}},
    "yamnet": {"mean_probs": {}, "pos_ratio": {}}}},
  "used_demucs": false, "mode": "mix-only"}`)
	p := New(cfg, testsupport.NewStore(t, cfg), logging.NewNop())

	path := filepath.Join(t.TempDir(), "quiet.mp3")
	testsupport.WriteFile(t, path, 16)

	instr, err := p.Instrumentation(context.Background(), analysis.NewRecord(path), nil)
	if err != nil {
		t.Fatalf("Instrumentation errored: %v", err)
	}
	if want := []string{"Piano"}; !reflect.DeepEqual(instr.FinalInstruments, want) {
		t.Errorf("FinalInstruments = %v, want rescued %v", instr.FinalInstruments, want)
	}
	if instr.Mode != "mix-only" || instr.UsedDemucs {
		t.Errorf("mode = %q demucs=%v, want mix-only", instr.Mode, instr.UsedDemucs)
	}
}

func TestMergePersistsSidecarAndStore(t *testing.T) {
	p, _, store := newPipeline(t)

	path := filepath.Join(t.TempDir(), "Synthwave.mp3")
	testsupport.WriteFile(t, path, 16)

	rec := analysis.NewRecord(path)
	rec.Technical.DurationSec = 200
	rec.Creative.Genre = []string{"Electronic"}
	rec.CreativeStatus = creative.StatusOK
	rec.Analysis = analysis.Instrumentation{
		Instruments:      []string{"Synth"},
		FinalInstruments: []string{"Synth"},
		UsedDemucs:       false,
		Mode:             "mix-only",
	}
	rec.ProbeHints = []string{"electronic dance music"}

	final, err := p.Merge(context.Background(), rec)
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}

	elec := final.Analysis.ElectronicElements
	if elec == nil || !elec.Detected {
		t.Fatalf("ElectronicElements = %+v, want detected", elec)
	}
	if elec.Confidence != analysis.ConfidenceMedium {
		t.Errorf("Confidence = %q, want medium for one electronic instrument", elec.Confidence)
	}
	if len(elec.Reasons) != 2 {
		t.Errorf("Reasons = %v, want instrument and hint evidence", elec.Reasons)
	}

	sidecar := analysis.SidecarPath(path)
	data, err := os.ReadFile(sidecar)
	if err != nil {
		t.Fatalf("sidecar missing: %v", err)
	}
	var doc analysis.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("sidecar unparseable: %v", err)
	}
	if !reflect.DeepEqual(doc.FinalInstruments, []string{"Synth"}) {
		t.Errorf("sidecar FinalInstruments = %v", doc.FinalInstruments)
	}
	if doc.Ensemble.ElectronicElements == nil || !doc.Ensemble.ElectronicElements.Detected {
		t.Error("sidecar lost the electronic assessment")
	}

	main, err := store.Load()
	if err != nil {
		t.Fatalf("store.Load: %v", err)
	}
	stored, ok := main.Tracks[trackkey.Key(path)]
	if !ok {
		t.Fatalf("store entry missing for %q", trackkey.Key(path))
	}
	if stored.CreatedAt == "" || stored.UpdatedAt == "" {
		t.Error("store entry missing timestamps")
	}
	if final.CreatedAt != stored.CreatedAt {
		t.Error("Merge must return the merged store record")
	}
	if got, want := stored.Creative.Instrument, []string{"Synth"}; !reflect.DeepEqual(got, want) {
		t.Errorf("store creative.instrument = %v, want precedence result %v", got, want)
	}
}

func TestMergeWithoutClassifierLeavesElectronicAbsent(t *testing.T) {
	p, _, store := newPipeline(t)

	path := filepath.Join(t.TempDir(), "plain.mp3")
	testsupport.WriteFile(t, path, 16)

	rec := analysis.NewRecord(path)
	rec.CreativeStatus = creative.StatusOK

	final, err := p.Merge(context.Background(), rec)
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	if final.Analysis.ElectronicElements != nil {
		t.Errorf("ElectronicElements = %+v, want absent without a classifier run", final.Analysis.ElectronicElements)
	}

	main, err := store.Load()
	if err != nil {
		t.Fatalf("store.Load: %v", err)
	}
	if stored := main.Tracks[trackkey.Key(path)]; stored.Analysis.ElectronicElements != nil {
		t.Error("store entry must not carry a fabricated electronic field")
	}
}

func TestMergeRendersWaveform(t *testing.T) {
	p, cfg, _ := newPipeline(t, testsupport.WithWaveforms())
	// The ffmpeg stub writes an empty frame into its output argument.
	cfg.Tools.FFmpeg = testsupport.StubTool(t, filepath.Dir(cfg.Tools.FFmpeg), "ffmpeg",
		`for arg in "$@"; do out="$arg"; done
: > "$out"`)

	path := filepath.Join(t.TempDir(), "Track.mp3")
	testsupport.WriteFile(t, path, 16)

	final, err := p.Merge(context.Background(), analysis.NewRecord(path))
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	if final.WaveformPNG == "" {
		t.Fatal("WaveformPNG not set with waveforms enabled")
	}
	if _, err := os.Stat(final.WaveformPNG); err != nil {
		t.Fatalf("waveform image missing: %v", err)
	}
	base := filepath.Base(final.WaveformPNG)
	if !strings.HasPrefix(base, "track-") || !strings.HasSuffix(base, ".png") {
		t.Errorf("waveform name = %q, want deterministic stem-hash name", base)
	}
}

func TestMergeWaveformFailureIsNonFatal(t *testing.T) {
	p, _, store := newPipeline(t, testsupport.WithWaveforms())

	path := filepath.Join(t.TempDir(), "hiss.mp3")
	testsupport.WriteFile(t, path, 16)

	final, err := p.Merge(context.Background(), analysis.NewRecord(path))
	if err != nil {
		t.Fatalf("Merge failed despite waveform being auxiliary: %v", err)
	}
	if final.WaveformPNG != "" {
		t.Errorf("WaveformPNG = %q after a failed render", final.WaveformPNG)
	}
	main, err := store.Load()
	if err != nil {
		t.Fatalf("store.Load: %v", err)
	}
	if _, ok := main.Tracks[trackkey.Key(path)]; !ok {
		t.Error("record must still persist when the waveform render fails")
	}
}
