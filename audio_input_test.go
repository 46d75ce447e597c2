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
	"testing"
)

func TestFillPlaybackFrameScalesByGain(t *testing.T) {
	frame := make([]int16, 4)
	fillPlaybackFrame(frame, []int16{100, -200, 300, -400}, 0.5)

	expected := []int16{50, -100, 150, -200}
	for i, sample := range expected {
		if frame[i] != sample {
			t.Errorf("sample %d: expected %d, got %d", i, sample, frame[i])
		}
	}
}

func TestFillPlaybackFrameZeroGainSilences(t *testing.T) {
	frame := []int16{1, 2, 3, 4}
	fillPlaybackFrame(frame, []int16{1000, 2000, 3000, 4000}, 0)

	for i, sample := range frame {
		if sample != 0 {
			t.Errorf("sample %d: expected silence, got %d", i, sample)
		}
	}
}

func TestFillPlaybackFramePadsShortChunk(t *testing.T) {
	frame := []int16{9, 9, 9, 9, 9, 9}
	fillPlaybackFrame(frame, []int16{100, 200}, 1)

	expected := []int16{100, 200, 0, 0, 0, 0}
	for i, sample := range expected {
		if frame[i] != sample {
			t.Errorf("sample %d: expected %d, got %d", i, sample, frame[i])
		}
	}
}

func TestFillPlaybackFrameTruncatesOversizedChunk(t *testing.T) {
	frame := make([]int16, 2)
	fillPlaybackFrame(frame, []int16{10, 20, 30, 40}, 1)

	if frame[0] != 10 || frame[1] != 20 {
		t.Errorf("expected frame [10 20], got %v", frame)
	}
}
