// Package tts synthesizes survey prompts into playable audio.
package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// ElevenLabsClient synthesizes MP3 audio via the ElevenLabs HTTP API.
type ElevenLabsClient struct {
	HTTPClient *http.Client
	APIKey     string
	VoiceID    string
	ModelID    string
	// BaseURL overrides the API host, used by tests.
	BaseURL string
}

// NewElevenLabsClient builds a client for the given voice.
func NewElevenLabsClient(apiKey, voiceID string) *ElevenLabsClient {
	return &ElevenLabsClient{
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		APIKey:     apiKey,
		VoiceID:    voiceID,
		ModelID:    "eleven_multilingual_v2",
		BaseURL:    "https://api.elevenlabs.io",
	}
}

// Synthesize converts text into a complete MP3 clip. Prompts are a sentence
// or two, so the whole clip is buffered rather than streamed.
func (e *ElevenLabsClient) Synthesize(ctx context.Context, text string) ([]byte, string, error) {
	if e.APIKey == "" || e.VoiceID == "" {
		return nil, "", fmt.Errorf("elevenlabs: api key or voice id missing")
	}
	if text == "" {
		return nil, "", fmt.Errorf("elevenlabs: empty text")
	}

	endpoint := e.BaseURL + "/v1/text-to-speech/" + e.VoiceID
	q := url.Values{}
	q.Set("output_format", "mp3_22050_32")
	endpoint += "?" + q.Encode()

	body := map[string]any{
		"model_id": e.ModelID,
		"text":     text,
		"voice_settings": map[string]any{
			"stability":        0.30,
			"similarity_boost": 0.75,
		},
	}
	buf, _ := json.Marshal(body)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(buf))
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("xi-api-key", e.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("elevenlabs: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return nil, "", fmt.Errorf("elevenlabs: status=%d body=%s", resp.StatusCode, string(b))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("elevenlabs: read body: %w", err)
	}
	if len(audio) == 0 {
		return nil, "", fmt.Errorf("elevenlabs: empty audio")
	}
	return audio, "audio/mpeg", nil
}
