package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nadzzz/murmur/internal/tts"
)

func TestSynthesize(t *testing.T) {
	var got speakRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/speak" {
			t.Errorf("request = %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write([]byte("RIFF....WAVE"))
	}))
	defer srv.Close()

	s := New(srv.URL + "/")
	res, err := s.Synthesize(context.Background(), "hello", tts.SynthesizeOpts{Voice: "p226", Speed: 1.25})
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	if string(res.Audio) != "RIFF....WAVE" || res.ContentType != "audio/wav" {
		t.Errorf("result = %q %q", res.Audio, res.ContentType)
	}
	if got.Text != "hello" || got.Voice != "p226" || got.Speed != 1.25 {
		t.Errorf("request body = %+v", got)
	}
}

func TestSynthesizeServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model still loading", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	if _, err := New(srv.URL).Synthesize(context.Background(), "hi", tts.SynthesizeOpts{}); err == nil {
		t.Fatal("expected error for 503")
	}
}
