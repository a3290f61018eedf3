package twilioweb

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/Pratham-Aggarwal22/NTHSPipeline/internal/metrics"
	"github.com/Pratham-Aggarwal22/NTHSPipeline/internal/survey"
)

// AudioStore publishes audio clips at public URLs Twilio can play.
type AudioStore interface {
	Upload(key, contentType string, data []byte) error
	PublicURL(key string) string
}

// Speaker turns prompt text into a playable URL: synthesize, upload, link.
// Any failure falls back to Twilio's built-in Say voice, so a broken TTS or
// storage backend never silences a call.
type Speaker struct {
	synth survey.Synthesizer
	audio AudioStore
}

// NewSpeaker wires the synthesizer to the audio store. Either may be nil,
// which disables synthesis entirely.
func NewSpeaker(synth survey.Synthesizer, audio AudioStore) *Speaker {
	return &Speaker{synth: synth, audio: audio}
}

// PromptURL returns a public URL for the spoken text, or ok=false when the
// caller should fall back to <Say>.
func (s *Speaker) PromptURL(ctx context.Context, text string) (string, bool) {
	if s == nil || s.synth == nil || s.audio == nil {
		return "", false
	}
	clip, contentType, err := s.synth.Synthesize(ctx, text)
	if err != nil {
		log.Printf("tts synthesis failed, falling back to Say: %v", err)
		metrics.CollaboratorErrors.WithLabelValues("synthesizer").Inc()
		return "", false
	}
	key := fmt.Sprintf("prompt_%d%s", time.Now().UnixNano(), extensionFor(contentType))
	if err := s.audio.Upload(key, contentType, clip); err != nil {
		log.Printf("prompt upload failed, falling back to Say: %v", err)
		metrics.CollaboratorErrors.WithLabelValues("audio_store").Inc()
		return "", false
	}
	return s.audio.PublicURL(key), true
}

func extensionFor(contentType string) string {
	switch {
	case strings.Contains(contentType, "wav"):
		return ".wav"
	default:
		return ".mp3"
	}
}
