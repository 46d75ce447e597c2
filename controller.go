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
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/dhowden/tag"
	"github.com/google/uuid"
	"github.com/gordonklaus/portaudio"
	"lukechampine.com/blake3"
)

// Controller wires the batch and live halves of the server together and
// owns their shared resources.
type Controller struct {
	Config   *Config
	Database *Database
	Queue    *JobQueue
	Provider TranscriptionProvider
	Pipeline *BatchPipeline
	Auth     *Auth
	Api      *Api
	Ingest   *IngestWatcher
	Detector *SpeechDetector

	liveMutex  sync.Mutex
	live       *LiveSession
	audioReady bool
}

func NewController(config *Config) (*Controller, error) {
	controller := &Controller{Config: config}

	if config.newAdminPassword != "" {
		if err := ValidatePassword(config.newAdminPassword); err != nil {
			return nil, err
		}
		hash, err := HashPassword(config.newAdminPassword)
		if err != nil {
			return nil, err
		}
		if err := config.SetAdminPassword(hash); err != nil {
			return nil, err
		}
		log.Printf("admin password updated")
	}

	database, err := NewDatabase(config)
	if err != nil {
		return nil, err
	}
	controller.Database = database

	auth, err := NewAuth(config.AdminPassword)
	if err != nil {
		return nil, err
	}
	controller.Auth = auth

	controller.Provider = NewGeminiTranscription(&GeminiConfig{
		APIKey: config.ApiKey,
		Model:  config.BatchModel,
	})
	if !controller.Provider.IsAvailable() {
		log.Printf("WARN: no transcription API key configured, batch jobs will fail")
	}

	controller.Detector = NewSpeechDetector(config.SampleRate)

	controller.Pipeline = &BatchPipeline{
		Provider:       controller.Provider,
		Database:       database,
		Detector:       controller.Detector,
		SegmentSeconds: config.SegmentSeconds,
		Concurrency:    config.WaveConcurrency,
	}

	controller.Queue = NewJobQueue()
	controller.Api = NewApi(controller)
	controller.Ingest = NewIngestWatcher(controller, config.IngestDir)

	return controller, nil
}

// Start restores persisted jobs, launches the scheduler watcher, the
// ingest watcher and the HTTP surface.
func (controller *Controller) Start() error {
	jobs, err := controller.Database.LoadJobs()
	if err != nil {
		return err
	}
	for _, job := range jobs {
		controller.Queue.Add(job)
	}
	if len(jobs) > 0 {
		log.Printf("restored %d jobs", len(jobs))
	}

	go controller.Queue.Watch(func(job *FileTranscriptionJob) {
		controller.Pipeline.Run(context.Background(), job)
	})

	if err := controller.Ingest.Start(); err != nil {
		log.Printf("ERROR: failed to start ingest watcher: %v", err)
	}

	return controller.Api.Start()
}

func (controller *Controller) Stop() {
	controller.LiveStop()
	controller.Ingest.Stop()
	controller.Queue.Close()
	controller.Api.Stop()

	controller.liveMutex.Lock()
	if controller.audioReady {
		portaudio.Terminate()
		controller.audioReady = false
	}
	controller.liveMutex.Unlock()

	if err := controller.Database.Close(); err != nil {
		log.Printf("ERROR: failed to close database: %v", err)
	}
}

// SubmitFile creates a queued batch job from raw file bytes. Identical
// content hashes to an existing job, which is returned instead of a new
// one.
func (controller *Controller) SubmitFile(name string, data []byte) (*FileTranscriptionJob, bool, error) {
	if err := ValidateUpload(name, len(data)); err != nil {
		return nil, false, err
	}

	hash := hashAudio(data)
	if existing := controller.Queue.FindByHash(hash); existing != nil {
		return existing, false, nil
	}

	if title := readTitleTag(data); title != "" {
		name = title
	}
	if strings.TrimSpace(name) == "" {
		name = "untitled recording"
	}

	job := NewFileTranscriptionJob(uuid.NewString(), name, hash, data)
	if err := controller.Database.SaveJob(job); err != nil {
		return nil, false, err
	}

	controller.Queue.Add(job)
	return job, true, nil
}

// LiveStart begins the single allowed real-time session. Starting while
// a session is listening is an error; the caller must stop it first.
func (controller *Controller) LiveStart() (*LiveSession, error) {
	controller.liveMutex.Lock()
	defer controller.liveMutex.Unlock()

	if controller.live != nil && controller.live.State() == LiveStateListening {
		return nil, fmt.Errorf("a live session is already active")
	}

	if !controller.audioReady {
		if err := portaudio.Initialize(); err != nil {
			return nil, fmt.Errorf("failed to initialize audio: %v", err)
		}
		controller.audioReady = true
	}

	session := NewLiveSession(
		uuid.NewString(),
		NewPortAudioInput(controller.Config.SampleRate, controller.Config.LiveFrameSamples),
		NewMutedOutput(controller.Config.SampleRate),
		OpenLiveChannel(controller.Config.LiveUrl, controller.Config.ApiKey),
		LiveChannelConfig{
			Model:             controller.Config.LiveModel,
			SystemInstruction: liveSystemInstruction,
			SampleRate:        controller.Config.SampleRate,
		},
	)

	if err := session.Start(); err != nil {
		return nil, err
	}

	controller.live = session
	return session, nil
}

// LiveStop stops the current session, if any. Idempotent.
func (controller *Controller) LiveStop() {
	controller.liveMutex.Lock()
	session := controller.live
	controller.liveMutex.Unlock()

	if session != nil {
		session.Stop()
	}
}

// Live returns the current session, which may be closed, or nil.
func (controller *Controller) Live() *LiveSession {
	controller.liveMutex.Lock()
	defer controller.liveMutex.Unlock()
	return controller.live
}

// hashAudio fingerprints upload content for dedupe.
func hashAudio(data []byte) string {
	h := blake3.New(32, nil)
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// readTitleTag pulls a title from embedded audio metadata when the
// format carries one; plain WAV uploads usually do not.
func readTitleTag(data []byte) string {
	metadata, err := tag.ReadFrom(bytes.NewReader(data))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(metadata.Title())
}
