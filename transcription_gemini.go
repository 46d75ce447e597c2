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
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const geminiBaseUrl = "https://generativelanguage.googleapis.com/v1beta/models"

// GeminiTranscription implements TranscriptionProvider against the
// Gemini generateContent endpoint. Each request carries the instruction
// text plus the segment audio inline as base64.
type GeminiTranscription struct {
	available  bool
	apiKey     string
	model      string
	httpClient *http.Client
	warned     bool
}

// GeminiConfig contains configuration for the Gemini provider
type GeminiConfig struct {
	APIKey string
	Model  string
}

// NewGeminiTranscription creates a new Gemini transcription provider
func NewGeminiTranscription(config *GeminiConfig) *GeminiTranscription {
	gemini := &GeminiTranscription{
		apiKey: config.APIKey,
		model:  config.Model,
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
	}

	if gemini.model == "" {
		gemini.model = defaultBatchModel
	}

	// Check availability (basic validation)
	gemini.available = gemini.apiKey != ""

	return gemini
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Transcribe sends one WAV segment to Gemini and returns the plain
// transcript text.
func (gemini *GeminiTranscription) Transcribe(ctx context.Context, audio []byte, options TranscriptionOptions) (string, error) {
	if !gemini.available {
		if !gemini.warned {
			gemini.warned = true
			return "", fmt.Errorf("Gemini not configured. Please provide API key")
		}
		return "", errors.New("Gemini is not available")
	}

	mime := options.AudioMime
	if mime == "" {
		mime = "audio/wav"
	}

	instruction := options.Instruction
	if instruction == "" {
		instruction = batchInstruction
	}

	body := geminiRequest{
		Contents: []geminiContent{{
			Parts: []geminiPart{
				{Text: instruction},
				{InlineData: &geminiInlineData{
					MimeType: mime,
					Data:     base64.StdEncoding.EncodeToString(audio),
				}},
			},
		}},
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal transcription request: %v", err)
	}

	url := fmt.Sprintf("%s/%s:generateContent?key=%s", geminiBaseUrl, gemini.model, gemini.apiKey)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create transcription request: %v", err)
	}
	req.Header.Set("content-type", "application/json")

	resp, err := gemini.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to submit transcription request: %v", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read transcription response: %v", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("Gemini request failed with status %d: %s", resp.StatusCode, string(respBody))
	}

	var result geminiResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("failed to parse transcription response: %v. Response body: %s", err, string(respBody))
	}

	if result.Error != nil {
		return "", fmt.Errorf("Gemini returned error %d: %s", result.Error.Code, result.Error.Message)
	}

	if len(result.Candidates) == 0 {
		return "", fmt.Errorf("Gemini returned no candidates")
	}

	var text strings.Builder
	for _, part := range result.Candidates[0].Content.Parts {
		text.WriteString(part.Text)
	}

	return strings.TrimSpace(text.String()), nil
}

// IsAvailable checks if the Gemini provider is available
func (gemini *GeminiTranscription) IsAvailable() bool {
	return gemini.available
}

// GetName returns the name of this transcription provider
func (gemini *GeminiTranscription) GetName() string {
	return "Gemini"
}

// GetSupportedLanguages returns supported languages
func (gemini *GeminiTranscription) GetSupportedLanguages() []string {
	return supportedLanguages
}
