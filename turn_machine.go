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
	"strings"
	"sync"
)

// TurnRecorder assembles the streaming collaborator's partial-text and
// turn-boundary events into discrete timestamped turns. At most one turn
// is in progress at a time; finalized turns are immutable and appended in
// strict temporal order.
type TurnRecorder struct {
	mutex       sync.RWMutex
	active      bool
	activeStart float64
	activeText  strings.Builder
	turns       []TranscriptionTurn
}

// NewTurnRecorder creates an empty turn recorder
func NewTurnRecorder() *TurnRecorder {
	return &TurnRecorder{
		turns: []TranscriptionTurn{},
	}
}

// AddPartial appends a text fragment to the turn in progress, opening a
// new turn stamped at now (seconds since session start) if none is
// active. Fragments are strictly appended; the collaborator is trusted to
// emit monotonic increments for one turn.
func (recorder *TurnRecorder) AddPartial(text string, now float64) {
	recorder.mutex.Lock()
	defer recorder.mutex.Unlock()

	if !recorder.active {
		recorder.active = true
		recorder.activeStart = now
		recorder.activeText.Reset()
	}
	recorder.activeText.WriteString(text)
}

// CompleteTurn finalizes the turn in progress with now as its end time.
// A turn whose accumulated text trims to nothing is discarded, not
// emitted. Without an active turn this is a no-op.
func (recorder *TurnRecorder) CompleteTurn(now float64) {
	recorder.mutex.Lock()
	defer recorder.mutex.Unlock()

	if !recorder.active {
		return
	}

	text := strings.TrimSpace(recorder.activeText.String())
	if text != "" {
		recorder.turns = append(recorder.turns, TranscriptionTurn{
			StartTime: recorder.activeStart,
			EndTime:   now,
			Text:      text,
		})
	}

	recorder.active = false
	recorder.activeText.Reset()
}

// Turns returns a copy of the finalized turns in order.
func (recorder *TurnRecorder) Turns() []TranscriptionTurn {
	recorder.mutex.RLock()
	defer recorder.mutex.RUnlock()
	turns := make([]TranscriptionTurn, len(recorder.turns))
	copy(turns, recorder.turns)
	return turns
}

// ActiveTurn returns a snapshot of the in-progress turn, if any. Its end
// time is now so callers can render a live duration.
func (recorder *TurnRecorder) ActiveTurn(now float64) (TranscriptionTurn, bool) {
	recorder.mutex.RLock()
	defer recorder.mutex.RUnlock()

	if !recorder.active {
		return TranscriptionTurn{}, false
	}
	return TranscriptionTurn{
		StartTime: recorder.activeStart,
		EndTime:   now,
		Text:      recorder.activeText.String(),
	}, true
}
