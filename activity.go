// Copyright (C) 2025 Thinline Dynamic Solutions
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>

package main

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

// SpeechDetector estimates whether PCM audio contains speech by
// comparing spectral energy in the voice band against total energy. It
// is advisory only: segments are dispatched to the collaborator whether
// or not speech is detected.
type SpeechDetector struct {
	SampleRate int
	WindowSize int
	VoiceBand  struct {
		Min float64 // Hz
		Max float64 // Hz
	}
	MinLevel  float64 // RMS floor below which a window counts as silence
	MinRatio  float64 // voice-band share of energy needed for speech
	MinActive float64 // fraction of active windows needed for speech
}

// NewSpeechDetector creates a detector with defaults tuned for 16kHz
// mono speech.
func NewSpeechDetector(sampleRate int) *SpeechDetector {
	if sampleRate < 1 {
		sampleRate = defaultSampleRate
	}
	detector := &SpeechDetector{
		SampleRate: sampleRate,
		WindowSize: 1024,
		MinLevel:   0.01,
		MinRatio:   0.5,
		MinActive:  0.05,
	}
	// Telephone voice band, well inside Nyquist for 8kHz and up
	detector.VoiceBand.Min = 300
	detector.VoiceBand.Max = 3400
	return detector
}

// Level returns the RMS level of the samples normalized to [0, 1].
func (detector *SpeechDetector) Level(samples []int16) float64 {
	if len(samples) == 0 {
		return 0
	}
	sum := 0.0
	for _, sample := range samples {
		v := float64(sample) / 32768.0
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// HasSpeech reports whether enough windows carry voice-band energy for
// the samples to plausibly contain speech.
func (detector *SpeechDetector) HasSpeech(samples []int16) bool {
	if len(samples) < detector.WindowSize {
		return detector.Level(samples) >= detector.MinLevel
	}

	fft := fourier.NewFFT(detector.WindowSize)
	window := make([]float64, detector.WindowSize)

	binHz := float64(detector.SampleRate) / float64(detector.WindowSize)
	minBin := int(detector.VoiceBand.Min / binHz)
	maxBin := int(detector.VoiceBand.Max / binHz)
	if maxBin > detector.WindowSize/2 {
		maxBin = detector.WindowSize / 2
	}

	windows := 0
	active := 0

	for start := 0; start+detector.WindowSize <= len(samples); start += detector.WindowSize {
		windows++

		rms := 0.0
		for i := 0; i < detector.WindowSize; i++ {
			window[i] = float64(samples[start+i]) / 32768.0
			rms += window[i] * window[i]
		}
		rms = math.Sqrt(rms / float64(detector.WindowSize))
		if rms < detector.MinLevel {
			continue
		}

		coeff := fft.Coefficients(nil, window)

		total := 0.0
		voice := 0.0
		for k := 1; k < detector.WindowSize/2; k++ {
			magnitude := cmplx.Abs(coeff[k]) / float64(detector.WindowSize)
			energy := magnitude * magnitude
			total += energy
			if k >= minBin && k <= maxBin {
				voice += energy
			}
		}

		if total > 0 && voice/total >= detector.MinRatio {
			active++
		}
	}

	if windows == 0 {
		return false
	}
	return float64(active)/float64(windows) >= detector.MinActive
}
