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
	"testing"
)

func sineSamples(frequency float64, sampleRate int, count int, amplitude float64) []int16 {
	samples := make([]int16, count)
	for i := range samples {
		v := amplitude * math.Sin(2*math.Pi*frequency*float64(i)/float64(sampleRate))
		samples[i] = int16(v * 32000)
	}
	return samples
}

func TestSpeechDetectorLevel(t *testing.T) {
	detector := NewSpeechDetector(16000)

	if level := detector.Level(make([]int16, 1600)); level != 0 {
		t.Errorf("expected level 0 for silence, got %g", level)
	}
	if level := detector.Level(nil); level != 0 {
		t.Errorf("expected level 0 for no samples, got %g", level)
	}

	loud := detector.Level(sineSamples(1000, 16000, 1600, 1.0))
	quiet := detector.Level(sineSamples(1000, 16000, 1600, 0.01))
	if loud <= quiet {
		t.Errorf("expected the loud signal above the quiet one, got %g vs %g", loud, quiet)
	}
	if loud > 1 {
		t.Errorf("expected a normalized level, got %g", loud)
	}
}

func TestSpeechDetectorFindsVoiceBandTone(t *testing.T) {
	detector := NewSpeechDetector(16000)

	// A sustained 1kHz tone sits squarely in the voice band.
	samples := sineSamples(1000, 16000, 16000, 0.5)
	if !detector.HasSpeech(samples) {
		t.Error("expected voice-band energy to register as speech")
	}
}

func TestSpeechDetectorIgnoresSilence(t *testing.T) {
	detector := NewSpeechDetector(16000)

	if detector.HasSpeech(make([]int16, 16000)) {
		t.Error("expected silence to register as no speech")
	}
}

func TestSpeechDetectorIgnoresOutOfBandTone(t *testing.T) {
	detector := NewSpeechDetector(16000)

	// 6kHz is far above the voice band at this rate.
	samples := sineSamples(6000, 16000, 16000, 0.5)
	if detector.HasSpeech(samples) {
		t.Error("expected an out-of-band tone to register as no speech")
	}
}

func TestSpeechDetectorShortInputFallsBackToLevel(t *testing.T) {
	detector := NewSpeechDetector(16000)

	if detector.HasSpeech(make([]int16, 100)) {
		t.Error("expected quiet short input to register as no speech")
	}
	if !detector.HasSpeech(sineSamples(1000, 16000, 100, 0.5)) {
		t.Error("expected loud short input to register as speech")
	}
}
