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
	"log"
	"strings"
)

// BatchPipeline drives one FileTranscriptionJob through its state
// machine: decode, plan, transcribe wave by wave, aggregate, finish.
// The scheduler guarantees only one pipeline run is active at a time.
type BatchPipeline struct {
	Provider       TranscriptionProvider
	Database       *Database       // optional; nil skips persistence
	Detector       *SpeechDetector // optional; advisory silence marking
	SegmentSeconds float64
	Concurrency    int
}

// Run executes the full state machine for one job. The job ends in done
// or error; it never re-enters queued.
func (pipeline *BatchPipeline) Run(ctx context.Context, job *FileTranscriptionJob) {
	job.setState(JobStateProcessing)
	pipeline.save(job)

	source, err := DecodeWAV(job.TakeAudio())
	if err != nil {
		pipeline.failJob(job, err)
		return
	}
	job.setProgress(5)

	segments, err := PlanSegments(source, pipeline.SegmentSeconds)
	if err != nil {
		pipeline.failJob(job, err)
		return
	}

	job.setState(JobStateTranscribing)
	pipeline.save(job)

	run := func(index int, segment Segment) (SegmentResult, error) {
		return pipeline.transcribeSegment(ctx, source, segment)
	}

	afterWave := func(results []WaveResult[SegmentResult]) {
		job.setTurns(AggregateTranscript(resultValues(results)))
		job.setProgress(TranscribeProgress(len(results), len(segments)))
		pipeline.save(job)
	}

	results, err := RunWaves(segments, pipeline.Concurrency, run, afterWave)
	if err != nil {
		// Keep whatever earlier waves produced visible next to the error
		job.setTurns(AggregateTranscript(resultValues(results)))
		pipeline.failJob(job, err)
		return
	}

	job.complete(AggregateTranscript(resultValues(results)))
	pipeline.save(job)
}

// transcribeSegment extracts one segment's samples, encodes them as a
// standalone WAV payload and hands it to the collaborator.
func (pipeline *BatchPipeline) transcribeSegment(ctx context.Context, source *AudioSource, segment Segment) (SegmentResult, error) {
	samples := source.ExtractSamples(segment.SampleStart, segment.SampleEnd)
	wav := EncodeWAV(samples, source.SampleRate)

	text, err := pipeline.Provider.Transcribe(ctx, wav, TranscriptionOptions{
		Instruction: batchInstruction,
		AudioMime:   "audio/wav",
		Languages:   pipeline.Provider.GetSupportedLanguages(),
	})
	if err != nil {
		return SegmentResult{}, fmt.Errorf("segment %d failed: %v", segment.Index, err)
	}
	if strings.HasPrefix(text, transcriptionErrorMarker) {
		return SegmentResult{}, fmt.Errorf("segment %d failed: %s", segment.Index, strings.TrimSpace(strings.TrimPrefix(text, transcriptionErrorMarker)))
	}

	text = strings.TrimSpace(text)
	if text == "" && pipeline.Detector != nil && !pipeline.Detector.HasSpeech(samples) {
		logDebug("segment %d [%0.1fs-%0.1fs] appears silent", segment.Index, segment.StartTime, segment.EndTime)
	}

	return SegmentResult{
		Index:     segment.Index,
		StartTime: segment.StartTime,
		EndTime:   segment.EndTime,
		Text:      text,
	}, nil
}

func (pipeline *BatchPipeline) failJob(job *FileTranscriptionJob, err error) {
	log.Printf("ERROR: job %s: %v", job.Id, err)
	job.fail(err.Error())
	pipeline.save(job)
}

func (pipeline *BatchPipeline) save(job *FileTranscriptionJob) {
	if pipeline.Database == nil {
		return
	}
	if err := pipeline.Database.SaveJob(job); err != nil {
		log.Printf("ERROR: failed to persist job %s: %v", job.Id, err)
	}
}

func resultValues(results []WaveResult[SegmentResult]) []SegmentResult {
	values := make([]SegmentResult, len(results))
	for i, result := range results {
		values[i] = result.Value
	}
	return values
}
