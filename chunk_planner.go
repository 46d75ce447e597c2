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

import "fmt"

// Segment is a fixed-duration slice of an AudioSource. Indexes are dense
// and contiguous from zero; the sample range is [SampleStart, SampleEnd).
type Segment struct {
	Index       int
	SampleStart int
	SampleEnd   int
	StartTime   float64 // seconds
	EndTime     float64 // seconds, clamped to the source duration
}

// PlanSegments divides a source into segments of segmentSeconds each. The
// segments cover the source exactly once with no gaps or overlaps; the
// last one may be shorter. An empty source yields an empty plan, which is
// not an error.
func PlanSegments(source *AudioSource, segmentSeconds float64) ([]Segment, error) {
	if segmentSeconds <= 0 {
		return nil, fmt.Errorf("segment duration must be positive, got %g", segmentSeconds)
	}

	segments := []Segment{}
	if source.TotalSamples == 0 {
		return segments, nil
	}

	segmentSamples := int(segmentSeconds * float64(source.SampleRate))
	if segmentSamples < 1 {
		segmentSamples = 1
	}

	duration := source.Duration()
	for start, index := 0, 0; start < source.TotalSamples; start, index = start+segmentSamples, index+1 {
		end := start + segmentSamples
		if end > source.TotalSamples {
			end = source.TotalSamples
		}

		endTime := float64(end) / float64(source.SampleRate)
		if endTime > duration {
			endTime = duration
		}

		segments = append(segments, Segment{
			Index:       index,
			SampleStart: start,
			SampleEnd:   end,
			StartTime:   float64(start) / float64(source.SampleRate),
			EndTime:     endTime,
		})
	}

	return segments, nil
}
