package translate

import (
	"context"
	"errors"
	"testing"

	"github.com/nadzzz/murmur/internal/capture"
	"github.com/nadzzz/murmur/internal/transcribe"
)

type fakeDevice struct{ fn func([]float32) }

func (d *fakeDevice) Open(_ int, fn func([]float32)) error { d.fn = fn; return nil }
func (d *fakeDevice) Close() error                          { return nil }

type fakeEngine struct {
	calls []bool
}

func (e *fakeEngine) Name() string { return "fake" }
func (e *fakeEngine) WarmUp()      {}
func (e *fakeEngine) Close() error { return nil }

func (e *fakeEngine) Transcribe(_ context.Context, _ []float32, p *transcribe.Params) (string, error) {
	e.calls = append(e.calls, p.Translate)
	if p.Translate {
		return " good morning ", nil
	}
	return " bonjour ", nil
}

func TestTranslateToEnglish(t *testing.T) {
	dev := &fakeDevice{}
	rec := capture.NewRecorder(dev, 16000)
	eng := &fakeEngine{}
	tr := New(rec, eng)

	if err := tr.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	dev.fn([]float32{0.1, 0.2, 0.3})

	res, err := tr.Stop(context.Background(), "English")
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if res.Original != "bonjour" || res.Translated != "good morning" {
		t.Errorf("result = %+v", res)
	}
	if len(eng.calls) != 2 || eng.calls[0] || !eng.calls[1] {
		t.Errorf("transcribe calls (translate flags) = %v", eng.calls)
	}
}

func TestTranslateOtherTargetReturnsOriginal(t *testing.T) {
	dev := &fakeDevice{}
	rec := capture.NewRecorder(dev, 16000)
	eng := &fakeEngine{}
	tr := New(rec, eng)

	_ = tr.Start()
	dev.fn([]float32{0.1})

	res, err := tr.Stop(context.Background(), "de")
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if res.Translated != res.Original || len(eng.calls) != 1 {
		t.Errorf("result = %+v, calls = %v", res, eng.calls)
	}
}

func TestTranslateErrors(t *testing.T) {
	dev := &fakeDevice{}
	rec := capture.NewRecorder(dev, 16000)
	tr := New(rec, &fakeEngine{})

	if _, err := tr.Stop(context.Background(), "en"); !errors.Is(err, ErrNoAudio) {
		t.Errorf("stop without start: got %v, want ErrNoAudio", err)
	}

	_ = rec.StartStream()
	rec.BeginAccumulation("meetings")
	if err := tr.Start(); !errors.Is(err, ErrBusy) {
		t.Errorf("start while meeting records: got %v, want ErrBusy", err)
	}
}
