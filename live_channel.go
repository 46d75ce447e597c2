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
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
)

type LiveEventType int

const (
	LiveEventPartialText LiveEventType = iota
	LiveEventTurnComplete
	LiveEventAudio
	LiveEventError
	LiveEventClosed
)

// LiveEvent is one inbound event from the streaming collaborator,
// normalized into a typed value the session state machine can consume
// independent of the transport.
type LiveEvent struct {
	Type  LiveEventType
	Text  string  // partial transcript fragment
	Audio []int16 // synthesized audio samples
	Err   error
}

// LiveChannelConfig is the setup sent when opening a streaming channel.
type LiveChannelConfig struct {
	Model             string
	SystemInstruction string
	SampleRate        int
}

// LiveChannel is a bidirectional streaming channel to the live
// transcription collaborator: binary audio frames out, typed events in.
type LiveChannel interface {
	SendAudio(frame []byte) error
	Events() <-chan LiveEvent
	Close() error
}

// LiveChannelOpener abstracts channel construction so sessions can be
// driven by a fake channel in tests.
type LiveChannelOpener func(config LiveChannelConfig) (LiveChannel, error)

// websocketLiveChannel implements LiveChannel over a websocket
// connection speaking the Gemini live wire protocol.
type websocketLiveChannel struct {
	conn      *websocket.Conn
	events    chan LiveEvent
	writeLock sync.Mutex
	closeOnce sync.Once
}

const liveChannelEventBuffer = 64

// OpenLiveChannel dials the collaborator's websocket endpoint and sends
// the setup message: audio response modality, input transcription, and
// the transcript-only system instruction.
func OpenLiveChannel(url string, apiKey string) LiveChannelOpener {
	return func(config LiveChannelConfig) (LiveChannel, error) {
		conn, _, err := websocket.DefaultDialer.Dial(fmt.Sprintf("%s?key=%s", url, apiKey), nil)
		if err != nil {
			return nil, fmt.Errorf("failed to open live channel: %v", err)
		}

		model := config.Model
		if model == "" {
			model = defaultLiveModel
		}

		setup := map[string]any{
			"setup": map[string]any{
				"model": fmt.Sprintf("models/%s", model),
				"generationConfig": map[string]any{
					"responseModalities": []string{"AUDIO"},
				},
				"systemInstruction": map[string]any{
					"parts": []map[string]string{{"text": config.SystemInstruction}},
				},
				"inputAudioTranscription": map[string]any{},
			},
		}
		if err := conn.WriteJSON(setup); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to send live channel setup: %v", err)
		}

		channel := &websocketLiveChannel{
			conn:   conn,
			events: make(chan LiveEvent, liveChannelEventBuffer),
		}
		go channel.readLoop()

		return channel, nil
	}
}

// SendAudio forwards one PCM frame as a binary message, fire-and-forget.
func (channel *websocketLiveChannel) SendAudio(frame []byte) error {
	channel.writeLock.Lock()
	defer channel.writeLock.Unlock()

	if err := channel.conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
		return fmt.Errorf("failed to send audio frame: %v", err)
	}
	return nil
}

func (channel *websocketLiveChannel) Events() <-chan LiveEvent {
	return channel.events
}

func (channel *websocketLiveChannel) Close() error {
	var err error
	channel.closeOnce.Do(func() {
		channel.writeLock.Lock()
		channel.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		channel.writeLock.Unlock()
		err = channel.conn.Close()
	})
	return err
}

// liveServerMessage mirrors the subset of the collaborator's inbound
// frames the session cares about.
type liveServerMessage struct {
	ServerContent *struct {
		InputTranscription *struct {
			Text string `json:"text"`
		} `json:"inputTranscription"`
		ModelTurn *struct {
			Parts []struct {
				InlineData *struct {
					MimeType string `json:"mimeType"`
					Data     string `json:"data"`
				} `json:"inlineData"`
			} `json:"parts"`
		} `json:"modelTurn"`
		TurnComplete bool `json:"turnComplete"`
	} `json:"serverContent"`
}

func (channel *websocketLiveChannel) readLoop() {
	defer close(channel.events)

	for {
		_, data, err := channel.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				channel.events <- LiveEvent{Type: LiveEventClosed}
			} else {
				channel.events <- LiveEvent{Type: LiveEventError, Err: fmt.Errorf("live channel read failed: %v", err)}
			}
			return
		}

		var message liveServerMessage
		if err := json.Unmarshal(data, &message); err != nil {
			logDebug("ignoring unparseable live channel frame: %v", err)
			continue
		}
		if message.ServerContent == nil {
			continue
		}

		content := message.ServerContent

		if content.InputTranscription != nil && content.InputTranscription.Text != "" {
			channel.events <- LiveEvent{Type: LiveEventPartialText, Text: content.InputTranscription.Text}
		}

		if content.ModelTurn != nil {
			for _, part := range content.ModelTurn.Parts {
				if part.InlineData == nil {
					continue
				}
				pcm, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
				if err != nil {
					logDebug("ignoring undecodable inline audio: %v", err)
					continue
				}
				samples, err := BytesToSamples(pcm)
				if err != nil {
					logDebug("ignoring malformed inline audio: %v", err)
					continue
				}
				channel.events <- LiveEvent{Type: LiveEventAudio, Audio: samples}
			}
		}

		if content.TurnComplete {
			channel.events <- LiveEvent{Type: LiveEventTurnComplete}
		}
	}
}
