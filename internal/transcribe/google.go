// Package transcribe converts recorded answer clips to text using Google
// Cloud Speech-to-Text.
package transcribe

import (
	"context"
	"fmt"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	speechpb "cloud.google.com/go/speech/apiv1/speechpb"
	"google.golang.org/api/option"
)

// Config holds recognition settings for Twilio call recordings.
type Config struct {
	// CredentialsFile is an optional service-account JSON path; when empty
	// the client falls back to application default credentials.
	CredentialsFile string
	LanguageCode    string
	SampleRateHertz int
}

// DefaultConfig matches Twilio's mono 8 kHz WAV recordings.
func DefaultConfig() Config {
	return Config{LanguageCode: "en-US", SampleRateHertz: 8000}
}

// GoogleClient performs batch recognition over a complete recorded clip.
type GoogleClient struct {
	client *speech.Client
	cfg    Config
}

// NewGoogleClient dials the Speech-to-Text API.
func NewGoogleClient(ctx context.Context, cfg Config) (*GoogleClient, error) {
	if cfg.LanguageCode == "" {
		cfg.LanguageCode = "en-US"
	}
	if cfg.SampleRateHertz == 0 {
		cfg.SampleRateHertz = 8000
	}
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("speech client: %w", err)
	}
	return &GoogleClient{client: client, cfg: cfg}, nil
}

// Transcribe recognizes the audio clip and returns the transcript. A clip
// with no recognizable speech returns "" and a nil error; callers treat that
// as the didn't-hear-you case, not a failure.
func (g *GoogleClient) Transcribe(ctx context.Context, audio []byte) (string, error) {
	if len(audio) == 0 {
		return "", nil
	}
	resp, err := g.client.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:                   speechpb.RecognitionConfig_LINEAR16,
			SampleRateHertz:            int32(g.cfg.SampleRateHertz),
			AudioChannelCount:          1,
			LanguageCode:               g.cfg.LanguageCode,
			EnableAutomaticPunctuation: true,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: audio},
		},
	})
	if err != nil {
		return "", fmt.Errorf("recognize: %w", err)
	}
	return transcriptFromResponse(resp), nil
}

// Close releases the underlying gRPC connection.
func (g *GoogleClient) Close() error { return g.client.Close() }

// transcriptFromResponse joins the top alternative of each result.
func transcriptFromResponse(resp *speechpb.RecognizeResponse) string {
	if resp == nil {
		return ""
	}
	var parts []string
	for _, r := range resp.Results {
		if len(r.Alternatives) == 0 {
			continue
		}
		if t := strings.TrimSpace(r.Alternatives[0].Transcript); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}
