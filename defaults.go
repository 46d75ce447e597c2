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

const (
	defaultSegmentSeconds   = float64(20)
	defaultWaveConcurrency  = 10
	defaultSampleRate       = 16000
	defaultLiveFrameSamples = 4000 // 0.25s per frame at 16kHz mono
	defaultBatchModel       = "gemini-2.0-flash"
	defaultLiveModel        = "gemini-2.0-flash-live-001"
)

// transcriptionErrorMarker prefixes collaborator responses that must be
// treated as hard segment failures
const transcriptionErrorMarker = "ERROR:"

// batchInstruction is sent along with every audio segment. The model is
// told to transcribe only, with no commentary, so the response body can be
// used verbatim as segment text.
const batchInstruction = "Transcribe the spoken audio in this recording. " +
	"Detect the language automatically (English, Filipino, or a mix of both). " +
	"Return only the transcription text. Do not add commentary, labels, " +
	"speaker names or explanations. If there is no speech, return an empty response."

// liveSystemInstruction configures the streaming collaborator for
// transcript-only output on mixed-language speech.
const liveSystemInstruction = "You are a real-time transcription engine. " +
	"Transcribe the incoming audio exactly as spoken. The speaker may mix " +
	"English and Filipino in the same sentence; keep each word in its original " +
	"language. Apply standard punctuation and capitalization. Output only the " +
	"transcript text, never commentary or answers to the speech content."

// supportedLanguages is the known set the batch collaborator is asked to
// detect among
var supportedLanguages = []string{"en", "fil", "tl"}
