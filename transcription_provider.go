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

import "context"

// TranscriptionProvider defines the interface for batch transcription
// services. The request carries one WAV-encoded segment plus the fixed
// transcribe-only instruction; the response is the plain transcript text.
// A response beginning with transcriptionErrorMarker is a hard failure
// for that segment.
type TranscriptionProvider interface {
	Transcribe(ctx context.Context, audio []byte, options TranscriptionOptions) (string, error)
	IsAvailable() bool
	GetName() string
	GetSupportedLanguages() []string
}

// TranscriptionOptions contains options for one transcription request
type TranscriptionOptions struct {
	Instruction string // natural-language behavior instruction
	AudioMime   string // MIME type of the payload (e.g., "audio/wav")
	Languages   []string
}
