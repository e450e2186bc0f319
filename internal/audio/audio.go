// Package audio converts between normalized float samples and 16-bit PCM and
// reads and writes mono RIFF/WAVE files.
//
// Meeting recordings are streamed to disk chunk by chunk with Writer and read
// back with ReadFile, so the bytes that were streamed are exactly the bytes
// that get decoded.
package audio

import (
	"fmt"
	"io"
	"math"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	// SampleRate is the rate every capture, transcription and recording uses.
	SampleRate = 16000
	// BitDepth of stored recordings.
	BitDepth = 16

	wavFormatPCM = 1
)

// ToInt16 scales a normalized sample by the maximum signed 16-bit magnitude.
// Values outside [-1, 1] are clamped.
func ToInt16(s float32) int16 {
	v := float64(s) * math.MaxInt16
	switch {
	case v > math.MaxInt16:
		return math.MaxInt16
	case v < math.MinInt16:
		return math.MinInt16
	}
	return int16(v)
}

// FromInt16 is the inverse of ToInt16 up to quantization.
func FromInt16(s int16) float32 {
	return float32(s) / math.MaxInt16
}

// Duration returns the length in seconds of n samples at SampleRate.
func Duration(n int) float64 {
	return float64(n) / SampleRate
}

func intBuffer(samples []float32, sampleRate int) *goaudio.IntBuffer {
	data := make([]int, len(samples))
	for i, s := range samples {
		data[i] = int(ToInt16(s))
	}
	return &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: BitDepth,
	}
}

// Writer streams mono 16 kHz 16-bit PCM samples to a WAV file. The RIFF
// header sizes are patched when Close is called.
type Writer struct {
	f       *os.File
	enc     *wav.Encoder
	samples int
}

// Create opens path for writing and prepares a WAV encoder.
func Create(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create wav: %w", err)
	}
	return newWriter(f), nil
}

func newWriter(f *os.File) *Writer {
	return &Writer{
		f:   f,
		enc: wav.NewEncoder(f, SampleRate, BitDepth, 1, wavFormatPCM),
	}
}

// Write appends normalized samples to the file.
func (w *Writer) Write(samples []float32) error {
	if len(samples) == 0 {
		return nil
	}
	if err := w.enc.Write(intBuffer(samples, SampleRate)); err != nil {
		return fmt.Errorf("write wav samples: %w", err)
	}
	w.samples += len(samples)
	return nil
}

// Samples returns how many samples have been written so far.
func (w *Writer) Samples() int { return w.samples }

// Close finalizes the header and closes the file.
func (w *Writer) Close() error {
	encErr := w.enc.Close()
	fileErr := w.f.Close()
	if encErr != nil {
		return fmt.Errorf("finalize wav: %w", encErr)
	}
	if fileErr != nil {
		return fmt.Errorf("close wav: %w", fileErr)
	}
	return nil
}

// WriteFile writes samples to path as a complete WAV file.
func WriteFile(path string, samples []float32) error {
	w, err := Create(path)
	if err != nil {
		return err
	}
	if err := w.Write(samples); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

// ReadFile decodes a 16-bit WAV file into normalized samples. Multi-channel
// files are returned interleaved.
func ReadFile(path string) ([]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open wav: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// Decode reads a 16-bit WAV stream into normalized samples.
func Decode(r io.ReadSeeker) ([]float32, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("decode wav: not a valid wav file")
	}
	if dec.BitDepth != BitDepth {
		return nil, fmt.Errorf("decode wav: unsupported bit depth %d", dec.BitDepth)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decode wav: %w", err)
	}
	out := make([]float32, len(buf.Data))
	for i, v := range buf.Data {
		out[i] = FromInt16(int16(v))
	}
	return out, nil
}

// Encode renders samples as a complete WAV file in memory, for upload to
// transcription backends. The encoder patches the header in place, so the
// file is staged in the temp directory.
func Encode(samples []float32) ([]byte, error) {
	f, err := os.CreateTemp("", "murmur-*.wav")
	if err != nil {
		return nil, fmt.Errorf("encode wav: %w", err)
	}
	defer os.Remove(f.Name())

	w := newWriter(f)
	if err := w.Write(samples); err != nil {
		_ = w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.Name())
	if err != nil {
		return nil, fmt.Errorf("encode wav: %w", err)
	}
	return data, nil
}
