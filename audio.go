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
	"encoding/binary"
	"fmt"
)

// AudioSource is the decoded, immutable representation of an uploaded
// recording. Samples are mono 16-bit PCM; multichannel sources are
// downmixed at decode time.
type AudioSource struct {
	SampleRate   int
	Channels     int // channel count of the original file
	TotalSamples int // mono sample count after downmix
	Samples      []int16
}

// Duration returns the source length in seconds.
func (source *AudioSource) Duration() float64 {
	if source.SampleRate <= 0 {
		return 0
	}
	return float64(source.TotalSamples) / float64(source.SampleRate)
}

// ExtractSamples returns a copy of the sample range [start, end), clamped
// to the source bounds.
func (source *AudioSource) ExtractSamples(start int, end int) []int16 {
	if start < 0 {
		start = 0
	}
	if end > source.TotalSamples {
		end = source.TotalSamples
	}
	if start >= end {
		return []int16{}
	}
	samples := make([]int16, end-start)
	copy(samples, source.Samples[start:end])
	return samples
}

// DecodeWAV parses a RIFF/WAVE file containing 16-bit PCM audio and
// returns its mono AudioSource. Anything else is a decode failure.
func DecodeWAV(data []byte) (*AudioSource, error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, fmt.Errorf("failed to decode audio: not a RIFF/WAVE file")
	}

	var (
		sampleRate    int
		channels      int
		bitsPerSample int
		pcm           []byte
		haveFormat    bool
	)

	// Walk the RIFF chunks, picking up "fmt " and "data"
	offset := 12
	for offset+8 <= len(data) {
		chunkId := string(data[offset : offset+4])
		chunkSize := int(binary.LittleEndian.Uint32(data[offset+4 : offset+8]))
		body := offset + 8

		if chunkSize < 0 || body+chunkSize > len(data) {
			return nil, fmt.Errorf("failed to decode audio: truncated %s chunk", chunkId)
		}

		switch chunkId {
		case "fmt ":
			if chunkSize < 16 {
				return nil, fmt.Errorf("failed to decode audio: malformed fmt chunk")
			}
			format := binary.LittleEndian.Uint16(data[body : body+2])
			if format != 1 {
				return nil, fmt.Errorf("failed to decode audio: unsupported wav format %d (only PCM)", format)
			}
			channels = int(binary.LittleEndian.Uint16(data[body+2 : body+4]))
			sampleRate = int(binary.LittleEndian.Uint32(data[body+4 : body+8]))
			bitsPerSample = int(binary.LittleEndian.Uint16(data[body+14 : body+16]))
			haveFormat = true

		case "data":
			pcm = data[body : body+chunkSize]
		}

		// Chunks are word aligned
		offset = body + chunkSize
		if chunkSize%2 == 1 {
			offset++
		}
	}

	if !haveFormat {
		return nil, fmt.Errorf("failed to decode audio: missing fmt chunk")
	}
	if pcm == nil {
		return nil, fmt.Errorf("failed to decode audio: missing data chunk")
	}
	if bitsPerSample != 16 {
		return nil, fmt.Errorf("failed to decode audio: unsupported bit depth %d (only 16-bit)", bitsPerSample)
	}
	if channels < 1 {
		return nil, fmt.Errorf("failed to decode audio: invalid channel count %d", channels)
	}
	if sampleRate < 1 {
		return nil, fmt.Errorf("failed to decode audio: invalid sample rate %d", sampleRate)
	}

	frameBytes := 2 * channels
	frameCount := len(pcm) / frameBytes

	samples := make([]int16, frameCount)
	for i := 0; i < frameCount; i++ {
		// Downmix by averaging channels
		sum := 0
		for c := 0; c < channels; c++ {
			b := i*frameBytes + c*2
			sum += int(int16(binary.LittleEndian.Uint16(pcm[b : b+2])))
		}
		samples[i] = int16(sum / channels)
	}

	return &AudioSource{
		SampleRate:   sampleRate,
		Channels:     channels,
		TotalSamples: frameCount,
		Samples:      samples,
	}, nil
}

// EncodeWAV builds a mono 16-bit PCM RIFF/WAVE file from raw samples.
func EncodeWAV(samples []int16, sampleRate int) []byte {
	dataSize := len(samples) * 2
	buf := make([]byte, 44+dataSize)

	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(36+dataSize))
	copy(buf[8:12], "WAVE")

	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(buf[22:24], 1) // mono
	binary.LittleEndian.PutUint32(buf[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(sampleRate*2)) // byte rate
	binary.LittleEndian.PutUint16(buf[32:34], 2)                    // block align
	binary.LittleEndian.PutUint16(buf[34:36], 16)                   // bits per sample

	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataSize))

	for i, sample := range samples {
		binary.LittleEndian.PutUint16(buf[44+i*2:46+i*2], uint16(sample))
	}

	return buf
}

// EncodeWAVBase64 is the transport encoding for batch segment payloads.
func EncodeWAVBase64(samples []int16, sampleRate int) string {
	return base64.StdEncoding.EncodeToString(EncodeWAV(samples, sampleRate))
}

// SamplesToBytes converts mono int16 samples to little-endian PCM bytes,
// the frame format sent on the live channel.
func SamplesToBytes(samples []int16) []byte {
	bytes := make([]byte, len(samples)*2)
	for i, v := range samples {
		bytes[i*2] = byte(v)
		bytes[i*2+1] = byte(v >> 8)
	}
	return bytes
}

// BytesToSamples converts little-endian PCM bytes back to int16 samples.
func BytesToSamples(data []byte) ([]int16, error) {
	if len(data)%2 != 0 {
		return nil, fmt.Errorf("pcm data length must be even for 16-bit audio")
	}
	samples := make([]int16, len(data)/2)
	for i := range samples {
		samples[i] = int16(data[i*2]) | int16(data[i*2+1])<<8
	}
	return samples, nil
}
