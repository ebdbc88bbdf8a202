package audio

import (
	"fmt"
	"math"
	"os"

	"github.com/go-audio/wav"
)

// Signal is a mono, fixed-rate sequence of amplitude samples normalized
// to roughly [-1, 1]. It is immutable once produced by LoadWAV.
type Signal struct {
	Samples    []float64
	SampleRate int
}

// Duration returns the signal length in seconds.
func (s Signal) Duration() float64 {
	if s.SampleRate <= 0 {
		return 0
	}
	return float64(len(s.Samples)) / float64(s.SampleRate)
}

// LoadWAV decodes a WAV file into a normalized mono signal. Multi-channel
// input is downmixed by averaging channels. Peak normalization is applied
// because the speech gate thresholds on the signal's own energy
// distribution rather than absolute levels.
func LoadWAV(path string) (Signal, error) {
	f, err := os.Open(path)
	if err != nil {
		return Signal{}, fmt.Errorf("open audio file: %w", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return Signal{}, fmt.Errorf("not a valid wav file: %s", path)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return Signal{}, fmt.Errorf("decode wav: %w", err)
	}
	if buf == nil || buf.Format == nil || len(buf.Data) == 0 {
		return Signal{}, fmt.Errorf("wav file contains no samples: %s", path)
	}

	channels := buf.Format.NumChannels
	if channels <= 0 {
		channels = 1
	}
	scale := float64(int64(1) << (dec.BitDepth - 1))
	if scale <= 0 {
		scale = 1 << 15
	}

	frames := len(buf.Data) / channels
	samples := make([]float64, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for c := 0; c < channels; c++ {
			sum += float64(buf.Data[i*channels+c]) / scale
		}
		samples[i] = sum / float64(channels)
	}

	normalize(samples)

	return Signal{Samples: samples, SampleRate: buf.Format.SampleRate}, nil
}

// normalize scales samples in place so the absolute peak is 1.
func normalize(samples []float64) {
	var peak float64
	for _, s := range samples {
		if a := math.Abs(s); a > peak {
			peak = a
		}
	}
	if peak == 0 {
		return
	}
	for i := range samples {
		samples[i] /= peak
	}
}
