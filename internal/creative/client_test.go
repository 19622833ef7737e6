package creative

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"rhythmdb/internal/logging"
)

type fakeOllama struct {
	models    []string
	tagsCalls int
	chatCalls int
	lastChat  chatRequest
	reply     string
	replyWrap func(content string) any
}

func (f *fakeOllama) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/tags", func(w http.ResponseWriter, r *http.Request) {
		f.tagsCalls++
		type model struct {
			Name string `json:"name"`
		}
		models := make([]model, 0, len(f.models))
		for _, name := range f.models {
			models = append(models, model{Name: name})
		}
		if err := json.NewEncoder(w).Encode(map[string]any{"models": models}); err != nil {
			t.Fatalf("encode tags: %v", err)
		}
	})
	mux.HandleFunc("/api/chat", func(w http.ResponseWriter, r *http.Request) {
		f.chatCalls++
		if err := json.NewDecoder(r.Body).Decode(&f.lastChat); err != nil {
			t.Fatalf("decode chat request: %v", err)
		}
		wrap := f.replyWrap
		if wrap == nil {
			wrap = func(content string) any {
				return map[string]any{"message": map[string]string{"role": "assistant", "content": content}}
			}
		}
		if err := json.NewEncoder(w).Encode(wrap(f.reply)); err != nil {
			t.Fatalf("encode chat response: %v", err)
		}
	})
	return mux
}

func newTestClient(t *testing.T, fake *fakeOllama, model string) (*Client, *httptest.Server) {
	server := httptest.NewServer(fake.handler(t))
	t.Cleanup(server.Close)
	client := NewClient(Config{BaseURL: server.URL, Model: model}, logging.NewNop())
	return client, server
}

func TestAnalyzeHappyPath(t *testing.T) {
	fake := &fakeOllama{
		models: []string{"llama3:8b"},
		reply: `{
			"mood": ["energetic", "Happy/Cheerful"],
			"genre": ["rock"],
			"theme": ["Sports"],
			"instrument": ["guitar", "drums", "Bass"],
			"vocals": ["male"],
			"lyricThemes": ["motivation"],
			"narrative": "Driving rock anthem with gang vocals.",
			"confidence": 0.85
		}`,
	}
	client, _ := newTestClient(t, fake, "llama3:8b")

	facts, status := client.Analyze(context.Background(), Request{Title: "Stadium Run", BPM: 142, Hints: []string{"electric guitar"}})
	if status != StatusOK {
		t.Fatalf("status = %q", status)
	}
	if !reflect.DeepEqual(facts.Mood, []string{"Upbeat/Energetic", "Happy/Cheerful"}) {
		t.Errorf("mood = %v", facts.Mood)
	}
	if !reflect.DeepEqual(facts.Genre, []string{"Rock"}) {
		t.Errorf("genre = %v", facts.Genre)
	}
	if !reflect.DeepEqual(facts.SuggestedInstruments, []string{"Electric Guitar", "Drum Kit (acoustic)", "Bass Guitar"}) {
		t.Errorf("instruments = %v", facts.SuggestedInstruments)
	}
	if !reflect.DeepEqual(facts.Vocals, []string{"Male Vocals"}) {
		t.Errorf("vocals = %v", facts.Vocals)
	}
	if !reflect.DeepEqual(facts.LyricThemes, []string{"Motivation/Success"}) {
		t.Errorf("lyricThemes = %v", facts.LyricThemes)
	}
	if facts.Confidence != 0.85 {
		t.Errorf("confidence = %v", facts.Confidence)
	}

	if fake.lastChat.Model != "llama3:8b" {
		t.Errorf("request model = %q", fake.lastChat.Model)
	}
	if fake.lastChat.Stream {
		t.Error("stream must be false")
	}
	if fake.lastChat.Format != "json" {
		t.Errorf("format = %q", fake.lastChat.Format)
	}
	if fake.lastChat.Options.Temperature != largeModelTemperature {
		t.Errorf("temperature = %v for an 8b model", fake.lastChat.Options.Temperature)
	}
	if len(fake.lastChat.Messages) != 2 || fake.lastChat.Messages[0].Role != "system" || fake.lastChat.Messages[1].Role != "user" {
		t.Errorf("messages = %+v", fake.lastChat.Messages)
	}
}

func TestAnalyzeOffline(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client := NewClient(Config{BaseURL: url, Model: "llama3:8b"}, logging.NewNop())
	facts, status := client.Analyze(context.Background(), Request{Title: "Anything"})
	if status != StatusOffline {
		t.Fatalf("status = %q, want %q", status, StatusOffline)
	}
	if !reflect.DeepEqual(facts, Defaults()) {
		t.Errorf("facts = %+v, want defaults", facts)
	}
	if !reflect.DeepEqual(facts.Vocals, []string{"No Vocals"}) {
		t.Errorf("default vocals = %v", facts.Vocals)
	}
}

func TestAnalyzeModelMissing(t *testing.T) {
	fake := &fakeOllama{models: []string{"qwen2.5:14b"}}
	client, _ := newTestClient(t, fake, "llama3:8b")

	facts, status := client.Analyze(context.Background(), Request{Title: "Anything"})
	if status != StatusModelMissing {
		t.Fatalf("status = %q, want %q", status, StatusModelMissing)
	}
	if fake.chatCalls != 0 {
		t.Errorf("chat called %d times despite missing model", fake.chatCalls)
	}
	if !reflect.DeepEqual(facts, Defaults()) {
		t.Errorf("facts = %+v, want defaults", facts)
	}
}

func TestAnalyzeParseError(t *testing.T) {
	fake := &fakeOllama{
		models: []string{"llama3:8b"},
		reply:  "the track is energetic rock with guitars",
	}
	client, _ := newTestClient(t, fake, "llama3:8b")

	facts, status := client.Analyze(context.Background(), Request{Title: "Anything"})
	if status != StatusParseError {
		t.Fatalf("status = %q, want %q", status, StatusParseError)
	}
	if !reflect.DeepEqual(facts, Defaults()) {
		t.Errorf("facts = %+v, want defaults", facts)
	}
}

func TestAnalyzeRepairsDamagedPayload(t *testing.T) {
	fake := &fakeOllama{
		models: []string{"llama3:8b"},
		reply: "```json\n{mood: ['Chill/Mellow'], genre: ['Ambient'], theme: [], " +
			"instrument: ['Piano',], vocals: [], lyricThemes: [], " +
			"narrative: 'Soft piano over washes.', confidence: '60%',}\n```",
	}
	client, _ := newTestClient(t, fake, "llama3:8b")

	facts, status := client.Analyze(context.Background(), Request{Title: "Drift"})
	if status != StatusOK {
		t.Fatalf("status = %q", status)
	}
	if !reflect.DeepEqual(facts.Mood, []string{"Chill/Mellow"}) {
		t.Errorf("mood = %v", facts.Mood)
	}
	if !reflect.DeepEqual(facts.SuggestedInstruments, []string{"Piano"}) {
		t.Errorf("instruments = %v", facts.SuggestedInstruments)
	}
	if !reflect.DeepEqual(facts.Vocals, []string{"No Vocals"}) {
		t.Errorf("vocals = %v", facts.Vocals)
	}
	if facts.Confidence != 0.6 {
		t.Errorf("confidence = %v", facts.Confidence)
	}
}

func TestAnalyzeReadsGenerateSchema(t *testing.T) {
	fake := &fakeOllama{
		models: []string{"llama3:8b"},
		reply:  `{"mood":["Epic/Powerful"],"genre":["Cinematic"],"theme":[],"instrument":[],"vocals":[],"lyricThemes":[],"narrative":"","confidence":0.5}`,
		replyWrap: func(content string) any {
			return map[string]any{"response": content}
		},
	}
	client, _ := newTestClient(t, fake, "llama3:8b")

	facts, status := client.Analyze(context.Background(), Request{Title: "Anything"})
	if status != StatusOK {
		t.Fatalf("status = %q", status)
	}
	if !reflect.DeepEqual(facts.Mood, []string{"Epic/Powerful"}) {
		t.Errorf("mood = %v", facts.Mood)
	}
}

func TestCheckModelCachesSuccess(t *testing.T) {
	fake := &fakeOllama{
		models: []string{"llama3:latest"},
		reply:  `{"mood":[],"genre":[],"theme":[],"instrument":[],"vocals":[],"lyricThemes":[],"narrative":"","confidence":0}`,
	}
	client, _ := newTestClient(t, fake, "llama3")

	client.Analyze(context.Background(), Request{Title: "One"})
	client.Analyze(context.Background(), Request{Title: "Two"})
	if fake.tagsCalls != 1 {
		t.Errorf("tags called %d times, want 1", fake.tagsCalls)
	}
	if fake.chatCalls != 2 {
		t.Errorf("chat called %d times, want 2", fake.chatCalls)
	}
}

func TestModelNamesMatch(t *testing.T) {
	cases := []struct {
		have, want string
		match      bool
	}{
		{"llama3:8b", "llama3:8b", true},
		{"llama3:latest", "llama3", true},
		{"llama3", "llama3:latest", true},
		{"LLAMA3:8B", "llama3:8b", true},
		{"llama3:8b", "llama3:70b", false},
		{"", "llama3", false},
	}
	for _, tc := range cases {
		if got := modelNamesMatch(tc.have, tc.want); got != tc.match {
			t.Errorf("modelNamesMatch(%q, %q) = %v, want %v", tc.have, tc.want, got, tc.match)
		}
	}
}

func TestTemperatureForModel(t *testing.T) {
	cases := []struct {
		model string
		want  float64
	}{
		{"llama3:8b", largeModelTemperature},
		{"qwen2.5:14b", largeModelTemperature},
		{"mixtral:8x7b", largeModelTemperature},
		{"mistral:7b-instruct", largeModelTemperature},
		{"phi3:3.8b", smallModelTemperature},
		{"deepseek-r1:1.5b", smallModelTemperature},
		{"llama3", smallModelTemperature},
	}
	for _, tc := range cases {
		if got := temperatureForModel(tc.model); got != tc.want {
			t.Errorf("temperatureForModel(%q) = %v, want %v", tc.model, got, tc.want)
		}
	}
}
