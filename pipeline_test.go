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
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
)

// scriptedProvider answers each segment by looking at the first sample of
// the WAV payload it receives, so tests can tell segments apart no matter
// how completions interleave.
type scriptedProvider struct {
	mutex      sync.Mutex
	answer     func(segmentId int) (string, error)
	calls      []int
	progresses []int
	job        *FileTranscriptionJob
}

func (provider *scriptedProvider) Transcribe(ctx context.Context, audio []byte, options TranscriptionOptions) (string, error) {
	source, err := DecodeWAV(audio)
	if err != nil {
		return "", fmt.Errorf("bad segment payload: %v", err)
	}
	if len(source.Samples) == 0 {
		return "", fmt.Errorf("empty segment payload")
	}
	segmentId := int(source.Samples[0])

	provider.mutex.Lock()
	provider.calls = append(provider.calls, segmentId)
	if provider.job != nil {
		provider.progresses = append(provider.progresses, provider.job.Progress())
	}
	provider.mutex.Unlock()

	return provider.answer(segmentId)
}

func (provider *scriptedProvider) IsAvailable() bool { return true }

func (provider *scriptedProvider) GetName() string { return "scripted" }

func (provider *scriptedProvider) GetSupportedLanguages() []string { return supportedLanguages }

func (provider *scriptedProvider) callCount() int {
	provider.mutex.Lock()
	defer provider.mutex.Unlock()
	return len(provider.calls)
}

// pipelineTestWAV builds a 47 second mono recording at 100 Hz whose
// first sample of each 20 second segment carries the segment number plus
// one, so a decoded segment identifies itself.
func pipelineTestWAV(t *testing.T) []byte {
	t.Helper()
	samples := make([]int16, 4700)
	samples[0] = 1
	samples[2000] = 2
	samples[4000] = 3
	return EncodeWAV(samples, 100)
}

func newPipelineTestJob(t *testing.T, audio []byte) *FileTranscriptionJob {
	t.Helper()
	return NewFileTranscriptionJob("job-1", "recording.wav", "hash-1", audio)
}

func TestPipelineRunCompletesJob(t *testing.T) {
	provider := &scriptedProvider{
		answer: func(segmentId int) (string, error) {
			return fmt.Sprintf("segment %d text", segmentId), nil
		},
	}
	pipeline := &BatchPipeline{Provider: provider, SegmentSeconds: 20, Concurrency: 10}
	job := newPipelineTestJob(t, pipelineTestWAV(t))

	pipeline.Run(context.Background(), job)

	if job.State() != JobStateDone {
		t.Fatalf("expected done, got %s (%s)", job.State(), job.ErrorMessage())
	}
	if job.Progress() != 100 {
		t.Errorf("expected progress 100, got %d", job.Progress())
	}

	turns := job.Turns()
	if len(turns) != 3 {
		t.Fatalf("expected 3 turns, got %d", len(turns))
	}
	expected := []TranscriptionTurn{
		{StartTime: 0, EndTime: 20, Text: "segment 1 text"},
		{StartTime: 20, EndTime: 40, Text: "segment 2 text"},
		{StartTime: 40, EndTime: 47, Text: "segment 3 text"},
	}
	for i, want := range expected {
		if turns[i] != want {
			t.Errorf("turn %d: expected %+v, got %+v", i, want, turns[i])
		}
	}
}

func TestPipelineRunProgressNeverDecreases(t *testing.T) {
	provider := &scriptedProvider{
		answer: func(segmentId int) (string, error) {
			return "ok", nil
		},
	}
	// One segment per wave so the provider observes every progress step.
	pipeline := &BatchPipeline{Provider: provider, SegmentSeconds: 20, Concurrency: 1}
	job := newPipelineTestJob(t, pipelineTestWAV(t))
	provider.job = job

	pipeline.Run(context.Background(), job)

	if job.State() != JobStateDone {
		t.Fatalf("expected done, got %s", job.State())
	}
	previous := 0
	for _, progress := range provider.progresses {
		if progress < previous {
			t.Fatalf("progress decreased from %d to %d", previous, progress)
		}
		previous = progress
	}
	if provider.progresses[0] != 5 {
		t.Errorf("expected first observed progress 5, got %d", provider.progresses[0])
	}
}

func TestPipelineRunFailsOnProviderError(t *testing.T) {
	provider := &scriptedProvider{
		answer: func(segmentId int) (string, error) {
			if segmentId == 2 {
				return "", fmt.Errorf("collaborator refused")
			}
			return fmt.Sprintf("segment %d text", segmentId), nil
		},
	}
	pipeline := &BatchPipeline{Provider: provider, SegmentSeconds: 20, Concurrency: 1}
	job := newPipelineTestJob(t, pipelineTestWAV(t))

	pipeline.Run(context.Background(), job)

	if job.State() != JobStateError {
		t.Fatalf("expected error state, got %s", job.State())
	}
	if job.Progress() != 0 {
		t.Errorf("expected progress reset to 0, got %d", job.Progress())
	}
	if !strings.Contains(job.ErrorMessage(), "segment 1 failed") {
		t.Errorf("expected the failing segment in the message, got %q", job.ErrorMessage())
	}
	if provider.callCount() != 2 {
		t.Errorf("expected no segment after the failure, got %d calls", provider.callCount())
	}

	// The transcript accumulated before the failure stays exposed.
	turns := job.Turns()
	if len(turns) != 1 || turns[0].Text != "segment 1 text" {
		t.Errorf("expected only the first segment's turn, got %+v", turns)
	}
}

func TestPipelineRunKeepsOnlyPreFailureResultsOfOneWave(t *testing.T) {
	firstDone := make(chan struct{})
	failDone := make(chan struct{})

	provider := &scriptedProvider{
		answer: func(segmentId int) (string, error) {
			switch segmentId {
			case 1:
				defer close(firstDone)
				return "segment 1 text", nil
			case 2:
				<-firstDone
				defer close(failDone)
				return transcriptionErrorMarker + " unintelligible audio", nil
			default:
				<-failDone
				time.Sleep(50 * time.Millisecond)
				return "segment 3 text", nil
			}
		},
	}
	// All three segments in a single wave.
	pipeline := &BatchPipeline{Provider: provider, SegmentSeconds: 20, Concurrency: 10}
	job := newPipelineTestJob(t, pipelineTestWAV(t))

	pipeline.Run(context.Background(), job)

	if job.State() != JobStateError {
		t.Fatalf("expected error state, got %s", job.State())
	}
	if !strings.Contains(job.ErrorMessage(), "unintelligible audio") {
		t.Errorf("expected the collaborator's message, got %q", job.ErrorMessage())
	}

	turns := job.Turns()
	if len(turns) != 1 {
		t.Fatalf("expected exactly the turn completed before the failure, got %+v", turns)
	}
	if turns[0].StartTime != 0 || turns[0].Text != "segment 1 text" {
		t.Errorf("expected the first segment's turn, got %+v", turns[0])
	}
}

func TestPipelineRunFailsOnUndecodableAudio(t *testing.T) {
	provider := &scriptedProvider{
		answer: func(segmentId int) (string, error) { return "", nil },
	}
	pipeline := &BatchPipeline{Provider: provider, SegmentSeconds: 20, Concurrency: 1}
	job := newPipelineTestJob(t, []byte("definitely not a wav file"))

	pipeline.Run(context.Background(), job)

	if job.State() != JobStateError {
		t.Fatalf("expected error state, got %s", job.State())
	}
	if job.Progress() != 0 {
		t.Errorf("expected progress 0, got %d", job.Progress())
	}
	if provider.callCount() != 0 {
		t.Errorf("expected no provider calls, got %d", provider.callCount())
	}
}

func TestPipelineRunKeepsEmptySegmentText(t *testing.T) {
	provider := &scriptedProvider{
		answer: func(segmentId int) (string, error) {
			if segmentId == 2 {
				return "   ", nil // silence
			}
			return fmt.Sprintf("segment %d text", segmentId), nil
		},
	}
	pipeline := &BatchPipeline{Provider: provider, SegmentSeconds: 20, Concurrency: 2}
	job := newPipelineTestJob(t, pipelineTestWAV(t))

	pipeline.Run(context.Background(), job)

	if job.State() != JobStateDone {
		t.Fatalf("expected done, got %s", job.State())
	}
	turns := job.Turns()
	if len(turns) != 3 {
		t.Fatalf("expected a turn per segment, got %d", len(turns))
	}
	if turns[1].Text != "" {
		t.Errorf("expected the silent segment trimmed to empty, got %q", turns[1].Text)
	}
}
