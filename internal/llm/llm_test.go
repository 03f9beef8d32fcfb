package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/loqalabs/loqa-transcribe/internal/config"
	"github.com/loqalabs/loqa-transcribe/internal/transcript"
)

func TestLoadContextStripsTimestampsAndTrims(t *testing.T) {
	path := filepath.Join(t.TempDir(), "visit.txt")
	body := "[00:00:01] the patient has a fever\n[00:00:05] and a cough\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := LoadContext(path, 0)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got != "the patient has a fever and a cough" {
		t.Fatalf("unexpected context %q", got)
	}
	got, _ = LoadContext(path, 3)
	if got != "and a cough" {
		t.Fatalf("expected last 3 words, got %q", got)
	}
}

func TestLoadContextFromJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "visit.json")
	segs := []transcript.Segment{{Start: 0, End: 2, Text: "no rash"}, {Start: 2, End: 4, Text: "mild cough."}}
	if err := transcript.WriteFile(path, transcript.FormatJSON, segs); err != nil {
		t.Fatalf("write json: %v", err)
	}
	got, err := LoadContext(path, 0)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got != "no rash mild cough." {
		t.Fatalf("unexpected context %q", got)
	}
}

func TestAskWithMock(t *testing.T) {
	gen, err := New(config.LLMConfig{Mode: "mock"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	var streamed bytes.Buffer
	answer, err := Ask(context.Background(), gen, Request{}, "the patient has a fever", " what symptoms? ", &streamed)
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if answer != "[mock answer to what symptoms?]" || streamed.String() != answer {
		t.Fatalf("unexpected answer %q (streamed %q)", answer, streamed.String())
	}
	if _, err := Ask(context.Background(), gen, Request{}, "ctx", "  ", nil); err == nil {
		t.Fatalf("expected empty question to fail")
	}
}

func TestExecGenerator(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "llm.sh")
	// Answers with the byte count of the request it received.
	body := "#!/bin/sh\nn=$(wc -c | tr -d ' ')\nprintf '{\"content\":\"got %s bytes\",\"completion_tokens\":3}' \"$n\"\n"
	if err := os.WriteFile(script, []byte(body), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	gen, err := New(config.LLMConfig{Mode: "exec", Command: "sh " + script})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	var chunks []Chunk
	err = gen.Generate(context.Background(), Request{Prompt: "hello"}, func(c Chunk) error {
		chunks = append(chunks, c)
		return nil
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(chunks) != 1 || !strings.HasPrefix(chunks[0].Content, "got ") || chunks[0].CompletionTokens != 3 {
		t.Fatalf("unexpected chunks %+v", chunks)
	}
}

func TestOllamaGeneratorStreams(t *testing.T) {
	var seen ollamaRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&seen)
		fmt.Fprintln(w, `{"response":"a fever","done":false}`)
		fmt.Fprintln(w, `{"response":" and a cough","done":true,"eval_count":4,"prompt_eval_count":9}`)
	}))
	defer srv.Close()

	gen := NewOllamaGenerator(srv.URL+"/", "")
	answer, err := Ask(context.Background(), gen, RequestFromConfig(config.LLMConfig{MaxTokens: 64}), "ctx", "symptoms?", nil)
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if answer != "a fever and a cough" {
		t.Fatalf("unexpected answer %q", answer)
	}
	if seen.Model != defaultOllamaModel || !seen.Stream || seen.Options.NumPredict != 64 || seen.System == "" {
		t.Fatalf("unexpected request %+v", seen)
	}
	if !strings.HasSuffix(seen.Prompt, "Question: symptoms?") {
		t.Fatalf("unexpected prompt %q", seen.Prompt)
	}
}

func TestNewRejectsUnknownMode(t *testing.T) {
	if _, err := New(config.LLMConfig{Mode: "gpt"}); err == nil {
		t.Fatalf("expected unknown mode error")
	}
}
