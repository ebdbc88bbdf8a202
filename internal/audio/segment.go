package audio

import (
	"log/slog"
	"math"
	"sort"

	"github.com/minutelabs/minuted/internal/config"
)

// Frame parameters for the short-time energy estimate: 2048-sample frames
// with a 512-sample hop (128 ms frames at 16 kHz, 75% frame overlap).
const (
	frameLength = 2048
	hopLength   = 512
)

// speechPercentile is the percentile of a window's own frame energies used
// as the speech threshold. Thresholding on the window's distribution makes
// the gate self-calibrating across recording levels, at the cost of counting
// roughly the top 70% of frames as speech even in pure noise. This is an
// energy-variance approximation, not a voice-activity detector.
const speechPercentile = 30

// Window is a time-bounded slice of the source signal handed to the
// transcriber as one unit. Windows are never mutated after creation.
type Window struct {
	Samples   []float64
	StartTime float64 // seconds from signal start
	EndTime   float64
}

// Duration returns the window length in seconds.
func (w Window) Duration() float64 {
	return w.EndTime - w.StartTime
}

// Segmenter slices a signal into overlapping analysis windows, dropping
// windows with insufficient estimated speech.
type Segmenter struct {
	cfg    config.AudioConfig
	logger *slog.Logger
}

func NewSegmenter(cfg config.AudioConfig, logger *slog.Logger) *Segmenter {
	return &Segmenter{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "segmenter")),
	}
}

// Segment slides a window of chunk_duration_s across the signal with step
// chunk - overlap, so the last overlap_duration_s seconds of each window
// repeat at the start of the next. The final window is clipped to the
// signal's end; once the remaining signal is shorter than half a window the
// trailing region is dropped rather than emitted as a short window.
//
// A silent or very short signal yields zero windows. That is a valid result,
// not an error; the caller decides what an empty run means.
func (s *Segmenter) Segment(samples []float64) []Window {
	sr := s.cfg.SampleRate
	chunkSamples := int(s.cfg.ChunkDuration * float64(sr))
	overlapSamples := int(s.cfg.OverlapDuration * float64(sr))
	stepSamples := chunkSamples - overlapSamples
	if chunkSamples <= 0 || stepSamples <= 0 {
		return nil
	}

	var windows []Window
	dropped := 0
	start := 0
	for start < len(samples) {
		end := start + chunkSamples
		if end > len(samples) {
			end = len(samples)
		}
		w := Window{
			Samples:   samples[start:end],
			StartTime: float64(start) / float64(sr),
			EndTime:   float64(end) / float64(sr),
		}

		speech := s.speechSeconds(w.Samples)
		if speech >= s.cfg.MinSpeechSeconds {
			windows = append(windows, w)
			s.logger.Debug("window kept",
				slog.Int("index", len(windows)-1),
				slog.Float64("start_s", w.StartTime),
				slog.Float64("end_s", w.EndTime),
				slog.Float64("speech_s", speech))
		} else {
			dropped++
			s.logger.Debug("window dropped, insufficient speech",
				slog.Float64("start_s", w.StartTime),
				slog.Float64("end_s", w.EndTime),
				slog.Float64("speech_s", speech))
		}

		start += stepSamples

		// A trailing region shorter than half a window would produce a
		// near-empty terminal window; drop it instead.
		if len(samples)-start < chunkSamples/2 {
			break
		}
	}

	s.logger.Info("segmentation complete",
		slog.Int("kept", len(windows)),
		slog.Int("dropped", dropped),
		slog.Float64("signal_s", float64(len(samples))/float64(sr)))

	return windows
}

// speechSeconds estimates how many seconds of a window contain speech.
// Frames whose RMS energy exceeds the window's own 30th-percentile energy
// count as speech; the estimate is the speech-frame ratio scaled by the
// window duration.
func (s *Segmenter) speechSeconds(window []float64) float64 {
	energies := frameRMS(window, frameLength, hopLength)
	if len(energies) == 0 {
		return 0
	}

	threshold := percentile(energies, speechPercentile)
	speechFrames := 0
	for _, e := range energies {
		if e > threshold {
			speechFrames++
		}
	}

	ratio := float64(speechFrames) / float64(len(energies))
	duration := float64(len(window)) / float64(s.cfg.SampleRate)
	return ratio * duration
}

// frameRMS computes root-mean-square energy over overlapping frames. The
// final frame is clipped to the window's end rather than padded.
func frameRMS(samples []float64, frame, hop int) []float64 {
	if len(samples) == 0 || frame <= 0 || hop <= 0 {
		return nil
	}
	var energies []float64
	for start := 0; start < len(samples); start += hop {
		end := start + frame
		if end > len(samples) {
			end = len(samples)
		}
		var sum float64
		for _, v := range samples[start:end] {
			sum += v * v
		}
		energies = append(energies, math.Sqrt(sum/float64(end-start)))
	}
	return energies
}

// percentile returns the p-th percentile of values using linear
// interpolation between closest ranks.
func percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	if len(sorted) == 1 {
		return sorted[0]
	}
	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
