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

import "testing"

func testSource(sampleRate int, totalSamples int) *AudioSource {
	return &AudioSource{
		SampleRate:   sampleRate,
		Channels:     1,
		TotalSamples: totalSamples,
		Samples:      make([]int16, totalSamples),
	}
}

func TestPlanSegmentsSplitsWithShorterTail(t *testing.T) {
	source := testSource(100, 4700) // 47 seconds

	segments, err := PlanSegments(source, 20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(segments) != 3 {
		t.Fatalf("expected 3 segments, got %d", len(segments))
	}

	expected := []Segment{
		{Index: 0, SampleStart: 0, SampleEnd: 2000, StartTime: 0, EndTime: 20},
		{Index: 1, SampleStart: 2000, SampleEnd: 4000, StartTime: 20, EndTime: 40},
		{Index: 2, SampleStart: 4000, SampleEnd: 4700, StartTime: 40, EndTime: 47},
	}
	for i, want := range expected {
		if segments[i] != want {
			t.Errorf("segment %d: expected %+v, got %+v", i, want, segments[i])
		}
	}
}

func TestPlanSegmentsExactMultiple(t *testing.T) {
	source := testSource(100, 4000) // 40 seconds

	segments, err := PlanSegments(source, 20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(segments))
	}
	last := segments[1]
	if last.SampleEnd != 4000 || last.EndTime != 40 {
		t.Errorf("expected last segment to end at sample 4000 / 40s, got %+v", last)
	}
}

func TestPlanSegmentsShorterThanOneSegment(t *testing.T) {
	source := testSource(100, 500) // 5 seconds

	segments, err := PlanSegments(source, 20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(segments) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(segments))
	}
	if segments[0].SampleEnd != 500 || segments[0].EndTime != 5 {
		t.Errorf("expected single segment covering the whole source, got %+v", segments[0])
	}
}

func TestPlanSegmentsEmptySource(t *testing.T) {
	segments, err := PlanSegments(testSource(100, 0), 20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(segments) != 0 {
		t.Errorf("expected empty plan for empty source, got %d segments", len(segments))
	}
}

func TestPlanSegmentsInvalidDuration(t *testing.T) {
	for _, seconds := range []float64{0, -1} {
		if _, err := PlanSegments(testSource(100, 100), seconds); err == nil {
			t.Errorf("expected error for segment duration %g", seconds)
		}
	}
}

func TestPlanSegmentsCoverageIsExact(t *testing.T) {
	source := testSource(16000, 123457)

	segments, err := PlanSegments(source, 7.3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	next := 0
	for i, segment := range segments {
		if segment.Index != i {
			t.Errorf("expected dense indexes, got %d at position %d", segment.Index, i)
		}
		if segment.SampleStart != next {
			t.Errorf("segment %d: gap or overlap, starts at %d expected %d", i, segment.SampleStart, next)
		}
		if segment.SampleEnd <= segment.SampleStart {
			t.Errorf("segment %d: empty range %d..%d", i, segment.SampleStart, segment.SampleEnd)
		}
		if segment.EndTime > source.Duration() {
			t.Errorf("segment %d: end time %g exceeds duration %g", i, segment.EndTime, source.Duration())
		}
		next = segment.SampleEnd
	}
	if next != source.TotalSamples {
		t.Errorf("plan covers %d of %d samples", next, source.TotalSamples)
	}
}
