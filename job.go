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
	"encoding/json"
	"sync"
	"time"
)

const (
	JobStateQueued       = "queued"
	JobStateProcessing   = "processing"
	JobStateTranscribing = "transcribing"
	JobStateDone         = "done"
	JobStateError        = "error"
)

// TranscriptionTurn is the unit of output in both batch and live mode: a
// timestamped span of speech. Turns exposed to callers are always sorted
// by StartTime ascending.
type TranscriptionTurn struct {
	StartTime float64 `json:"startTime"`
	EndTime   float64 `json:"endTime"`
	Text      string  `json:"text"`
}

// FileTranscriptionJob tracks one uploaded file through the batch
// pipeline. State moves queued -> processing -> transcribing -> done, or
// to error from any non-terminal state; done and error are terminal and a
// job never re-enters queued.
type FileTranscriptionJob struct {
	Id        string
	Name      string
	Hash      string
	CreatedAt time.Time

	mutex    sync.RWMutex
	state    string
	progress int
	turns    []TranscriptionTurn
	errorMsg string
	audio    []byte // raw file bytes, released after decode
}

func NewFileTranscriptionJob(id string, name string, hash string, audio []byte) *FileTranscriptionJob {
	return &FileTranscriptionJob{
		Id:        id,
		Name:      name,
		Hash:      hash,
		CreatedAt: time.Now(),
		state:     JobStateQueued,
		turns:     []TranscriptionTurn{},
		audio:     audio,
	}
}

func (job *FileTranscriptionJob) State() string {
	job.mutex.RLock()
	defer job.mutex.RUnlock()
	return job.state
}

func (job *FileTranscriptionJob) Progress() int {
	job.mutex.RLock()
	defer job.mutex.RUnlock()
	return job.progress
}

func (job *FileTranscriptionJob) ErrorMessage() string {
	job.mutex.RLock()
	defer job.mutex.RUnlock()
	return job.errorMsg
}

// Turns returns a copy of the current ordered transcript.
func (job *FileTranscriptionJob) Turns() []TranscriptionTurn {
	job.mutex.RLock()
	defer job.mutex.RUnlock()
	turns := make([]TranscriptionTurn, len(job.turns))
	copy(turns, job.turns)
	return turns
}

func (job *FileTranscriptionJob) IsTerminal() bool {
	state := job.State()
	return state == JobStateDone || state == JobStateError
}

// TakeAudio hands off the raw upload bytes to the pipeline and drops the
// job's own reference, so the buffer is not pinned for the job's lifetime.
func (job *FileTranscriptionJob) TakeAudio() []byte {
	job.mutex.Lock()
	defer job.mutex.Unlock()
	audio := job.audio
	job.audio = nil
	return audio
}

func (job *FileTranscriptionJob) setState(state string) {
	job.mutex.Lock()
	defer job.mutex.Unlock()
	job.state = state
}

func (job *FileTranscriptionJob) setProgress(progress int) {
	job.mutex.Lock()
	defer job.mutex.Unlock()
	job.progress = progress
}

func (job *FileTranscriptionJob) setTurns(turns []TranscriptionTurn) {
	job.mutex.Lock()
	defer job.mutex.Unlock()
	job.turns = turns
}

// fail moves the job to its terminal error state. Progress resets to zero
// but any transcript aggregated from earlier waves stays exposed.
func (job *FileTranscriptionJob) fail(message string) {
	job.mutex.Lock()
	defer job.mutex.Unlock()
	job.state = JobStateError
	job.errorMsg = message
	job.progress = 0
	job.audio = nil
}

// complete moves the job to done with the final transcript.
func (job *FileTranscriptionJob) complete(turns []TranscriptionTurn) {
	job.mutex.Lock()
	defer job.mutex.Unlock()
	job.state = JobStateDone
	job.turns = turns
	job.progress = 100
}

// restore rehydrates a persisted job. Used at startup only.
func (job *FileTranscriptionJob) restore(state string, progress int, errorMsg string, turns []TranscriptionTurn) {
	job.mutex.Lock()
	defer job.mutex.Unlock()
	job.state = state
	job.progress = progress
	job.errorMsg = errorMsg
	job.turns = turns
}

func (job *FileTranscriptionJob) MarshalJSON() ([]byte, error) {
	job.mutex.RLock()
	defer job.mutex.RUnlock()

	m := map[string]any{
		"id":        job.Id,
		"name":      job.Name,
		"hash":      job.Hash,
		"createdAt": job.CreatedAt.UnixMilli(),
		"state":     job.state,
		"progress":  job.progress,
		"turns":     job.turns,
	}

	if job.errorMsg != "" {
		m["error"] = job.errorMsg
	}

	return json.Marshal(m)
}
