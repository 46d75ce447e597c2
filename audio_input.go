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

	"github.com/gordonklaus/portaudio"
)

// AudioInput is a microphone-equivalent source of fixed-size mono PCM
// frames.
type AudioInput interface {
	Start(onFrame func(samples []int16)) error
	Stop() error
}

// AudioOutput is a playback sink for collaborator audio.
type AudioOutput interface {
	Play(samples []int16) error
	Close() error
}

const captureBufferFrames = 16

// PortAudioInput captures microphone frames via portaudio. The realtime
// callback only copies into a buffered channel; a separate goroutine
// delivers frames so a slow consumer never blocks the audio callback.
type PortAudioInput struct {
	SampleRate   int
	FrameSamples int

	mutex  sync.Mutex
	stream *portaudio.Stream
	frames chan []int16
	done   chan struct{}
}

func NewPortAudioInput(sampleRate int, frameSamples int) *PortAudioInput {
	return &PortAudioInput{
		SampleRate:   sampleRate,
		FrameSamples: frameSamples,
	}
}

func (input *PortAudioInput) Start(onFrame func(samples []int16)) error {
	input.mutex.Lock()
	defer input.mutex.Unlock()

	if input.stream != nil {
		return fmt.Errorf("audio input already started")
	}

	// portaudio.Initialize is owned by the caller so capture and
	// playback can share one library lifetime
	device, err := portaudio.DefaultInputDevice()
	if err != nil {
		return fmt.Errorf("no default input device: %v", err)
	}

	input.frames = make(chan []int16, captureBufferFrames)
	input.done = make(chan struct{})

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   device,
			Channels: 1,
			Latency:  device.DefaultLowInputLatency,
		},
		SampleRate:      float64(input.SampleRate),
		FramesPerBuffer: input.FrameSamples,
	}

	stream, err := portaudio.OpenStream(params, func(in []int16) {
		if len(in) == 0 {
			return
		}
		frame := make([]int16, len(in))
		copy(frame, in)

		select {
		case input.frames <- frame:
		default:
			// consumer is behind, drop rather than block the callback
			log.Print("audio capture buffer full, dropping frame")
		}
	})
	if err != nil {
		return fmt.Errorf("failed to open capture stream: %v", err)
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		return fmt.Errorf("failed to start capture stream: %v", err)
	}

	input.stream = stream

	go func(frames chan []int16, done chan struct{}) {
		for {
			select {
			case <-done:
				return
			case frame := <-frames:
				onFrame(frame)
			}
		}
	}(input.frames, input.done)

	return nil
}

func (input *PortAudioInput) Stop() error {
	input.mutex.Lock()
	defer input.mutex.Unlock()

	if input.stream == nil {
		return nil
	}

	close(input.done)
	input.stream.Stop()
	err := input.stream.Close()
	input.stream = nil

	if err != nil {
		return fmt.Errorf("failed to close capture stream: %v", err)
	}
	return nil
}

// MutedOutput plays collaborator audio at zero gain. The frames are
// still consumed and written to the device; the channel's liveness on
// some transports depends on the client draining server audio.
type MutedOutput struct {
	SampleRate int
	Gain       float64

	mutex  sync.Mutex
	stream *portaudio.Stream
	buffer []int16
}

func NewMutedOutput(sampleRate int) *MutedOutput {
	return &MutedOutput{
		SampleRate: sampleRate,
		Gain:       0,
	}
}

func (output *MutedOutput) Play(samples []int16) error {
	output.mutex.Lock()
	defer output.mutex.Unlock()

	if len(samples) == 0 {
		return nil
	}

	if output.stream == nil {
		if err := output.open(len(samples)); err != nil {
			return err
		}
	}

	// Collaborator chunks are not a fixed size, the stream is. Fold the
	// samples into frames of the opened size, zero-padding the tail.
	for start := 0; start < len(samples); start += len(output.buffer) {
		end := start + len(output.buffer)
		if end > len(samples) {
			end = len(samples)
		}
		fillPlaybackFrame(output.buffer, samples[start:end], output.Gain)
		if err := output.stream.Write(); err != nil {
			return fmt.Errorf("failed to write playback frame: %v", err)
		}
	}
	return nil
}

func fillPlaybackFrame(frame []int16, samples []int16, gain float64) {
	for i := range frame {
		if i < len(samples) {
			frame[i] = int16(float64(samples[i]) * gain)
		} else {
			frame[i] = 0
		}
	}
}

func (output *MutedOutput) open(frameSamples int) error {
	device, err := portaudio.DefaultOutputDevice()
	if err != nil {
		return fmt.Errorf("no default output device: %v", err)
	}

	output.buffer = make([]int16, frameSamples)

	params := portaudio.StreamParameters{
		Output: portaudio.StreamDeviceParameters{
			Device:   device,
			Channels: 1,
			Latency:  device.DefaultLowOutputLatency,
		},
		SampleRate:      float64(output.SampleRate),
		FramesPerBuffer: frameSamples,
	}

	stream, err := portaudio.OpenStream(params, &output.buffer)
	if err != nil {
		return fmt.Errorf("failed to open playback stream: %v", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return fmt.Errorf("failed to start playback stream: %v", err)
	}

	output.stream = stream
	return nil
}

func (output *MutedOutput) Close() error {
	output.mutex.Lock()
	defer output.mutex.Unlock()

	if output.stream == nil {
		return nil
	}

	output.stream.Stop()
	err := output.stream.Close()
	output.stream = nil

	if err != nil {
		return fmt.Errorf("failed to close playback stream: %v", err)
	}
	return nil
}
