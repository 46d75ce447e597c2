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
	"sort"
)

// SegmentResult is a completed segment transcription tagged with its
// origin segment so ordering can be restored after out-of-order
// completion.
type SegmentResult struct {
	Index     int
	StartTime float64
	EndTime   float64
	Text      string
}

// AggregateTranscript merges the segment results known so far into a
// transcript ordered by start time. Start times are fixed at planning
// time, so repeated calls with a growing result set only ever extend the
// transcript; placed segments never move.
func AggregateTranscript(results []SegmentResult) []TranscriptionTurn {
	ordered := make([]SegmentResult, len(results))
	copy(ordered, results)

	sort.SliceStable(ordered, func(a int, b int) bool {
		return ordered[a].StartTime < ordered[b].StartTime
	})

	turns := make([]TranscriptionTurn, len(ordered))
	for i, result := range ordered {
		turns[i] = TranscriptionTurn{
			StartTime: result.StartTime,
			EndTime:   result.EndTime,
			Text:      result.Text,
		}
	}
	return turns
}

// TranscribeProgress maps completed chunk counts to the job progress
// percentage. The leading 5% covers decode, the trailing 5% is reserved
// for finalization, so transcription itself spans 5 through 95.
func TranscribeProgress(done int, total int) int {
	if total < 1 {
		return 5
	}
	return 5 + int(math.Round(90*float64(done)/float64(total)))
}
