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
	"fmt"
	"log"
	"sync"
	"time"
)

const (
	LiveStateIdle      = "idle"
	LiveStateListening = "listening"
	LiveStateClosed    = "closed"
)

// LiveSession owns one real-time recording session: the microphone
// input, the streaming channel, the muted playback path and the turn
// recorder. A session is single-use; once closed it stays closed.
type LiveSession struct {
	Id       string
	Recorder *TurnRecorder

	input    AudioInput
	output   AudioOutput
	opener   LiveChannelOpener
	config   LiveChannelConfig
	detector *SpeechDetector

	mutex     sync.RWMutex
	state     string
	channel   LiveChannel
	startedAt time.Time
	errorMsg  string
	level     float64
	pumpDone  chan struct{}
}

func NewLiveSession(id string, input AudioInput, output AudioOutput, opener LiveChannelOpener, config LiveChannelConfig) *LiveSession {
	return &LiveSession{
		Id:       id,
		Recorder: NewTurnRecorder(),
		input:    input,
		output:   output,
		opener:   opener,
		config:   config,
		detector: NewSpeechDetector(config.SampleRate),
		state:    LiveStateIdle,
	}
}

// Start opens the streaming channel and begins forwarding captured
// frames fire-and-forget. It fails if the microphone or the channel
// cannot be acquired, and must not be called on a session that already
// started.
func (session *LiveSession) Start() error {
	session.mutex.Lock()
	if session.state != LiveStateIdle {
		state := session.state
		session.mutex.Unlock()
		return fmt.Errorf("cannot start live session in state %s", state)
	}

	channel, err := session.opener(session.config)
	if err != nil {
		session.state = LiveStateClosed
		session.mutex.Unlock()
		return fmt.Errorf("failed to open live channel: %v", err)
	}

	session.channel = channel
	session.startedAt = time.Now()
	session.state = LiveStateListening
	session.pumpDone = make(chan struct{})
	session.mutex.Unlock()

	if err := session.input.Start(session.onFrame); err != nil {
		session.mutex.Lock()
		session.pumpDone = nil
		session.mutex.Unlock()
		session.markClosed()
		session.teardown()
		return fmt.Errorf("failed to acquire audio input: %v", err)
	}

	go session.pump(channel)

	return nil
}

// Stop tears the session down: capture stops, the channel is closed
// best-effort, and any in-progress turn is finalized at now minus the
// session start. Stop waits for the event pump to drain before
// returning, so callers observe a fully settled session. Stopping an
// already stopped session is a no-op.
func (session *LiveSession) Stop() {
	if !session.markClosed() {
		return
	}
	session.teardown()

	session.mutex.RLock()
	pumpDone := session.pumpDone
	session.mutex.RUnlock()
	if pumpDone != nil {
		<-pumpDone
	}
}

// Elapsed returns seconds since the session's start reference time.
func (session *LiveSession) Elapsed() float64 {
	session.mutex.RLock()
	defer session.mutex.RUnlock()
	if session.startedAt.IsZero() {
		return 0
	}
	return time.Since(session.startedAt).Seconds()
}

func (session *LiveSession) State() string {
	session.mutex.RLock()
	defer session.mutex.RUnlock()
	return session.state
}

// ErrorMessage returns the fatal channel error that ended the session,
// if any.
func (session *LiveSession) ErrorMessage() string {
	session.mutex.RLock()
	defer session.mutex.RUnlock()
	return session.errorMsg
}

// InputLevel returns the most recent capture level in [0, 1].
func (session *LiveSession) InputLevel() float64 {
	session.mutex.RLock()
	defer session.mutex.RUnlock()
	return session.level
}

// onFrame forwards one captured frame on the channel without waiting for
// a reply. Send failures are logged; a dead channel surfaces through the
// read side as a channel error.
func (session *LiveSession) onFrame(samples []int16) {
	session.mutex.RLock()
	channel := session.channel
	listening := session.state == LiveStateListening
	session.mutex.RUnlock()

	if !listening || channel == nil {
		return
	}

	level := session.detector.Level(samples)
	session.mutex.Lock()
	session.level = level
	session.mutex.Unlock()

	if err := channel.SendAudio(SamplesToBytes(samples)); err != nil {
		logDebug("live session %s: %v", session.Id, err)
	}
}

// pump consumes the channel's event stream and drives the turn state
// machine. It is the session's single event consumer, so turns are
// produced and finalized in strict temporal sequence.
func (session *LiveSession) pump(channel LiveChannel) {
	defer close(session.pumpDone)

	for event := range channel.Events() {
		switch event.Type {

		case LiveEventPartialText:
			session.Recorder.AddPartial(event.Text, session.Elapsed())

		case LiveEventTurnComplete:
			session.Recorder.CompleteTurn(session.Elapsed())

		case LiveEventAudio:
			// Keep-alive: collaborator audio has to be consumed and
			// played through the muted path, not discarded
			if err := session.output.Play(event.Audio); err != nil {
				logDebug("live session %s: %v", session.Id, err)
			}

		case LiveEventError:
			if !session.markClosed() {
				// Normal stops close the transport under the reader,
				// which reports the severed connection as an error.
				logDebug("live session %s: %v", session.Id, event.Err)
				return
			}
			log.Printf("ERROR: live session %s: %v", session.Id, event.Err)
			session.setError(event.Err)
			session.teardown()
			return

		case LiveEventClosed:
			if session.markClosed() {
				session.teardown()
			}
			return
		}
	}
}

// markClosed flips the session to closed exactly once.
func (session *LiveSession) markClosed() bool {
	session.mutex.Lock()
	defer session.mutex.Unlock()
	if session.state == LiveStateClosed {
		return false
	}
	session.state = LiveStateClosed
	return true
}

func (session *LiveSession) setError(err error) {
	session.mutex.Lock()
	defer session.mutex.Unlock()
	session.errorMsg = err.Error()
}

// teardown releases all session resources and finalizes the in-progress
// turn. Channel-close failures are logged, never surfaced.
func (session *LiveSession) teardown() {
	session.Recorder.CompleteTurn(session.Elapsed())

	if err := session.input.Stop(); err != nil {
		log.Printf("ERROR: failed to stop audio input: %v", err)
	}

	session.mutex.RLock()
	channel := session.channel
	session.mutex.RUnlock()

	if channel != nil {
		if err := channel.Close(); err != nil {
			log.Printf("WARN: failed to close live channel: %v", err)
		}
	}

	if err := session.output.Close(); err != nil {
		log.Printf("WARN: failed to close playback output: %v", err)
	}
}
