package tts

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	msginterfaces "github.com/deepgram/deepgram-go-sdk/pkg/api/speak/v1/websocket/interfaces"
	clientinterfaces "github.com/deepgram/deepgram-go-sdk/pkg/client/interfaces/v1"
	"github.com/deepgram/deepgram-go-sdk/pkg/client/speak"
)

// DeepgramClient synthesizes audio with Deepgram Aura over the speak
// WebSocket, collecting linear16 frames into a single WAV clip.
type DeepgramClient struct {
	apiKey     string
	model      string
	sampleRate int
}

// NewDeepgramClient builds a client for the given Aura model.
func NewDeepgramClient(apiKey, model string) *DeepgramClient {
	if model == "" {
		model = "aura-2-thalia-en"
	}
	// 8 kHz matches the phone audio path end to end.
	return &DeepgramClient{apiKey: apiKey, model: model, sampleRate: 8000}
}

// Synthesize speaks the text and returns the complete clip as WAV bytes.
func (d *DeepgramClient) Synthesize(ctx context.Context, text string) ([]byte, string, error) {
	if d.apiKey == "" {
		return nil, "", fmt.Errorf("deepgram: API key missing")
	}
	if text == "" {
		return nil, "", fmt.Errorf("deepgram: empty text")
	}

	options := &clientinterfaces.WSSpeakOptions{
		Model:      d.model,
		Encoding:   "linear16",
		SampleRate: d.sampleRate,
	}

	var mu sync.Mutex
	var pcm []byte
	var lastRecv time.Time

	cb := &speakCallback{onBinary: func(data []byte) error {
		if len(data) == 0 {
			return nil
		}
		mu.Lock()
		pcm = append(pcm, data...)
		lastRecv = time.Now()
		mu.Unlock()
		return nil
	}}

	dg, err := speak.NewWSUsingCallback(ctx, d.apiKey, &clientinterfaces.ClientOptions{}, options, cb)
	if err != nil {
		return nil, "", fmt.Errorf("deepgram: create ws client: %w", err)
	}
	defer dg.Stop()

	if ok := dg.Connect(); !ok {
		return nil, "", fmt.Errorf("deepgram: connect failed")
	}
	if err := dg.SpeakWithText(text); err != nil {
		return nil, "", fmt.Errorf("deepgram: speak text: %w", err)
	}
	if err := dg.Flush(); err != nil {
		log.Printf("deepgram: flush error: %v", err)
	}

	// The WS has no explicit end-of-clip signal; stop once audio has gone
	// idle, bounded by a hard deadline.
	idleWindow := 400 * time.Millisecond
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	deadline := time.Now().Add(12 * time.Second)
	for {
		select {
		case <-ctx.Done():
			return nil, "", ctx.Err()
		case <-ticker.C:
			mu.Lock()
			got := len(pcm)
			idle := !lastRecv.IsZero() && time.Since(lastRecv) > idleWindow
			mu.Unlock()
			if got > 0 && idle {
				mu.Lock()
				out := wavFromPCM16(pcm, d.sampleRate)
				mu.Unlock()
				return out, "audio/wav", nil
			}
			if time.Now().After(deadline) {
				if got == 0 {
					return nil, "", fmt.Errorf("deepgram: no audio before deadline")
				}
				mu.Lock()
				out := wavFromPCM16(pcm, d.sampleRate)
				mu.Unlock()
				return out, "audio/wav", nil
			}
		}
	}
}

type speakCallback struct{ onBinary func([]byte) error }

func (s *speakCallback) Open(*msginterfaces.OpenResponse) error         { return nil }
func (s *speakCallback) Metadata(*msginterfaces.MetadataResponse) error { return nil }
func (s *speakCallback) Flush(*msginterfaces.FlushedResponse) error     { return nil }
func (s *speakCallback) Clear(*msginterfaces.ClearedResponse) error     { return nil }
func (s *speakCallback) Close(*msginterfaces.CloseResponse) error       { return nil }
func (s *speakCallback) Warning(*msginterfaces.WarningResponse) error   { return nil }
func (s *speakCallback) Error(*msginterfaces.ErrorResponse) error       { return nil }
func (s *speakCallback) UnhandledEvent([]byte) error                    { return nil }
func (s *speakCallback) Binary(byMsg []byte) error {
	if s.onBinary != nil {
		return s.onBinary(byMsg)
	}
	return nil
}
