package decode

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/loqalabs/loqa-transcribe/internal/asrerr"
	"github.com/loqalabs/loqa-transcribe/internal/config"
)

func TestRestore(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"pieces", "▁the▁patient{comma}▁has▁a▁fever{period}</s>", "the patient, has a fever."},
		{"lm words", "#the #patient #has", "the patient has"},
		{"colon", "▁note{colon}▁stable", "note: stable"},
		{"paragraph", "▁hello{new paragraph}▁world", "hello\n\nworld"},
		{"empty", "</s>", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Restore(tc.in); got != tc.want {
				t.Fatalf("Restore(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestLabelsFromVocab(t *testing.T) {
	labels, err := LabelsFromVocab(map[string]int{"<blank>": 0, "▁a": 1, "b": 2})
	if err != nil {
		t.Fatalf("labels: %v", err)
	}
	if len(labels) != 3 || labels[1] != "▁a" {
		t.Fatalf("unexpected labels %v", labels)
	}

	bad := []map[string]int{
		{},
		{"a": 0, "b": 0},
		{"a": 0, "b": 2},
		{"a": -1},
	}
	for _, vocab := range bad {
		if _, err := LabelsFromVocab(vocab); err == nil {
			t.Fatalf("expected error for vocab %v", vocab)
		}
	}
}

func TestLoadLabelsIsConfigurationError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vocab.json")
	if err := os.WriteFile(path, []byte(`{"a": 0, "b": 0}`), 0o644); err != nil {
		t.Fatalf("write vocab: %v", err)
	}
	if _, err := LoadLabels(path); !asrerr.Is(err, asrerr.KindConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestLabelsForLM(t *testing.T) {
	got := Labels{"<blank>", "▁the", "ab", "</s>"}.ForLM()
	want := Labels{"", "▁#the", "▁ab", "</s>"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("label %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func oneHot(width int, ids ...int) Output {
	rows := make([][]float32, len(ids))
	for i, id := range ids {
		rows[i] = make([]float32, width)
		rows[i][id] = 1
	}
	out, _ := NewOutput(rows)
	return out
}

func TestGreedyCollapsesRepeatsAndBlanks(t *testing.T) {
	labels := Labels{"<blank>", "</s>", "▁the", "▁patient"}
	out := oneHot(len(labels), 0, 2, 2, 0, 2, 3, 3, 1)
	got, err := Greedy(labels).Decode(context.Background(), out)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != "▁the▁the▁patient" {
		t.Fatalf("unexpected greedy output %q", got)
	}
}

func TestNewOutputRejectsRaggedRows(t *testing.T) {
	if _, err := NewOutput([][]float32{{1, 0}, {1}}); err == nil {
		t.Fatalf("expected ragged rows to fail")
	}
}

type countingModel struct {
	width int
	calls int
	err   error
}

func (m *countingModel) VocabSize() int { return m.width }

func (m *countingModel) Infer(context.Context, []float32, int) (Output, error) {
	m.calls++
	if m.err != nil {
		return Output{}, m.err
	}
	return oneHot(m.width, 0), nil
}

type fixedLM struct {
	text  string
	count int
}

func (l fixedLM) LabelCount() int { return l.count }

func (l fixedLM) Decode(context.Context, Output) (string, error) { return l.text, nil }

func TestNewFailsFastOnLabelMismatch(t *testing.T) {
	model := &countingModel{width: 5}
	_, err := New(model, Labels{"<blank>", "▁a"}, Config{}, nil)
	if !asrerr.Is(err, asrerr.KindConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if model.calls != 0 {
		t.Fatalf("model must not be invoked at construction")
	}
}

func TestNewTruncatesLongerLabelList(t *testing.T) {
	model := &countingModel{width: 2}
	dec, err := New(model, Labels{"<blank>", "▁a", "▁b"}, Config{}, nil)
	if err != nil {
		t.Fatalf("new decoder: %v", err)
	}
	if len(dec.Labels()) != 2 {
		t.Fatalf("expected labels truncated to 2, got %d", len(dec.Labels()))
	}
}

func TestNewRequiresLMWhenRequested(t *testing.T) {
	_, err := New(&countingModel{width: 1}, Labels{"<blank>"}, Config{UseLanguageModel: true}, nil)
	if !asrerr.Is(err, asrerr.KindConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestNewRejectsLMLabelCountMismatch(t *testing.T) {
	labels := DefaultMockLabels()
	model, err := NewMockModel(labels, DefaultMockWords)
	if err != nil {
		t.Fatalf("mock model: %v", err)
	}
	lm, err := NewExecLM("true", "", labels[:5])
	if err != nil {
		t.Fatalf("exec lm: %v", err)
	}
	_, err = New(model, labels, Config{UseLanguageModel: true}, lm)
	if !asrerr.Is(err, asrerr.KindConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}

	// A matching LM is accepted; greedy decoding never consults the LM.
	if _, err := New(model, labels, Config{UseLanguageModel: true}, NewMockLM(labels)); err != nil {
		t.Fatalf("matching lm rejected: %v", err)
	}
	if _, err := New(model, labels, Config{}, lm); err != nil {
		t.Fatalf("greedy decoder must not check the lm: %v", err)
	}
}

func speech(seconds float64) []float32 {
	n := int(seconds * 16000)
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(0.1 * math.Sin(2*math.Pi*220*float64(i)/16000))
	}
	return out
}

func TestTranscribeSkipsShortChunk(t *testing.T) {
	model := &countingModel{width: 1}
	dec, err := New(model, Labels{"<blank>"}, Config{}, nil)
	if err != nil {
		t.Fatalf("new decoder: %v", err)
	}
	text, err := dec.Transcribe(context.Background(), speech(0.4), 16000)
	if err != nil || text != "" {
		t.Fatalf("expected empty text, got %q (%v)", text, err)
	}
	if model.calls != 0 {
		t.Fatalf("model invoked for a sub-minimum chunk")
	}
}

func TestTranscribeWithMockModel(t *testing.T) {
	labels := DefaultMockLabels()
	model, err := NewMockModel(labels, DefaultMockWords)
	if err != nil {
		t.Fatalf("mock model: %v", err)
	}
	dec, err := New(model, labels, Config{}, nil)
	if err != nil {
		t.Fatalf("new decoder: %v", err)
	}
	if dec.Strategy() != "greedy" {
		t.Fatalf("expected greedy strategy, got %s", dec.Strategy())
	}

	text, err := dec.Transcribe(context.Background(), speech(2), 16000)
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if text != "the patient has a fever." {
		t.Fatalf("unexpected text %q", text)
	}

	quiet, err := dec.Transcribe(context.Background(), make([]float32, 32000), 16000)
	if err != nil || quiet != "" {
		t.Fatalf("expected silence to decode empty, got %q (%v)", quiet, err)
	}
}

func TestMockLMMatchesGreedyText(t *testing.T) {
	labels := DefaultMockLabels()
	model, err := NewMockModel(labels, DefaultMockWords)
	if err != nil {
		t.Fatalf("mock model: %v", err)
	}
	dec, err := New(model, labels, Config{UseLanguageModel: true}, NewMockLM(labels))
	if err != nil {
		t.Fatalf("new decoder: %v", err)
	}
	if dec.Strategy() != "lm" {
		t.Fatalf("expected lm strategy, got %s", dec.Strategy())
	}
	text, err := dec.Transcribe(context.Background(), speech(2), 16000)
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if text != "the patient has a fever." {
		t.Fatalf("unexpected text %q", text)
	}
}

func TestTranscribeSharesRestorationAcrossStrategies(t *testing.T) {
	labels := DefaultMockLabels()
	model, _ := NewMockModel(labels, DefaultMockWords)
	dec, err := New(model, labels, Config{UseLanguageModel: true}, fixedLM{text: "#the #cough{period}", count: len(labels)})
	if err != nil {
		t.Fatalf("new decoder: %v", err)
	}
	if dec.Strategy() != "lm" {
		t.Fatalf("expected lm strategy, got %s", dec.Strategy())
	}
	text, err := dec.Transcribe(context.Background(), speech(1), 16000)
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if text != "the cough." {
		t.Fatalf("unexpected text %q", text)
	}
}

func TestTranscribeWrapsInferenceFailure(t *testing.T) {
	model := &countingModel{width: 1, err: errors.New("boom")}
	dec, _ := New(model, Labels{"<blank>"}, Config{}, nil)
	_, err := dec.Transcribe(context.Background(), speech(1), 16000)
	if !asrerr.Is(err, asrerr.KindDecode) {
		t.Fatalf("expected decode error, got %v", err)
	}
}

func TestMockModelRejectsUnknownWord(t *testing.T) {
	if _, err := NewMockModel(DefaultMockLabels(), []string{"zebra"}); err == nil {
		t.Fatalf("expected unknown word to fail")
	}
}

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "script.sh")
	if err := os.WriteFile(path, []byte(body), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

func TestExecModelAndLM(t *testing.T) {
	model := writeScript(t, `#!/bin/sh
case "$1" in
  --describe) echo '{"vocab_size": 3}' ;;
  *) echo '{"probs": [[0,1,0],[1,0,0],[0,0,1]]}' ;;
esac
`)
	m, err := NewExecModel(context.Background(), "sh "+model, "")
	if err != nil {
		t.Fatalf("exec model: %v", err)
	}
	if m.VocabSize() != 3 {
		t.Fatalf("expected vocab 3, got %d", m.VocabSize())
	}
	labels := Labels{"<blank>", "▁hello", "</s>"}
	dec, err := New(m, labels, Config{}, nil)
	if err != nil {
		t.Fatalf("new decoder: %v", err)
	}
	text, err := dec.Transcribe(context.Background(), speech(1), 16000)
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if text != "hello" {
		t.Fatalf("unexpected text %q", text)
	}

	lmScript := writeScript(t, `#!/bin/sh
cat > /dev/null
echo '{"text": "#hello #world"}'
`)
	lm, err := NewExecLM("sh "+lmScript, "", labels)
	if err != nil {
		t.Fatalf("exec lm: %v", err)
	}
	dec, err = New(m, labels, Config{UseLanguageModel: true}, lm)
	if err != nil {
		t.Fatalf("new lm decoder: %v", err)
	}
	text, err = dec.Transcribe(context.Background(), speech(1), 16000)
	if err != nil {
		t.Fatalf("transcribe with lm: %v", err)
	}
	if text != "hello world" {
		t.Fatalf("unexpected lm text %q", text)
	}
}

func TestExecLMMissingModelFile(t *testing.T) {
	_, err := NewExecLM("decoder", filepath.Join(t.TempDir(), "missing.bin"), Labels{"<blank>"})
	if !asrerr.Is(err, asrerr.KindConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestBuildMockBackend(t *testing.T) {
	dec, err := Build(context.Background(), config.ModelsConfig{Mode: "mock"}, true)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if dec.Strategy() != "lm" || len(dec.Labels()) != len(DefaultMockLabels()) {
		t.Fatalf("unexpected decoder: %s with %d labels", dec.Strategy(), len(dec.Labels()))
	}
}

func TestBuildExecMissingLabelsIsConfigurationError(t *testing.T) {
	cfg := config.ModelsConfig{Mode: "exec", LabelsPath: filepath.Join(t.TempDir(), "missing.json"), AcousticCommand: "true"}
	if _, err := Build(context.Background(), cfg, false); !asrerr.Is(err, asrerr.KindConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
