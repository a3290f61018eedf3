// Package storage uploads call audio to Supabase Storage.
package storage

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/supabase-community/supabase-go"
)

// Config holds Supabase Storage settings. The bucket must be public so
// Twilio can fetch prompt audio by URL.
type Config struct {
	URL            string
	ServiceRoleKey string
	Bucket         string
}

// Supabase stores synthesized prompts and call recordings in one bucket.
type Supabase struct {
	client  *supabase.Client
	baseURL string
	bucket  string
}

// New creates the storage client.
func New(cfg Config) (*Supabase, error) {
	if cfg.URL == "" || cfg.ServiceRoleKey == "" {
		return nil, fmt.Errorf("supabase: URL and service role key required")
	}
	if cfg.Bucket == "" {
		cfg.Bucket = "voice-survey"
	}
	client, err := supabase.NewClient(cfg.URL, cfg.ServiceRoleKey, &supabase.ClientOptions{})
	if err != nil {
		return nil, fmt.Errorf("supabase: create client: %w", err)
	}
	return &Supabase{
		client:  client,
		baseURL: strings.TrimRight(cfg.URL, "/"),
		bucket:  cfg.Bucket,
	}, nil
}

// Upload writes an object into the bucket. The key's extension determines
// how Twilio plays it back, so callers name clips prompt_*.mp3 or *.wav.
func (s *Supabase) Upload(key, contentType string, data []byte) error {
	_, err := s.client.Storage.UploadFile(s.bucket, key, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("supabase: upload %s: %w", key, err)
	}
	return nil
}

// PublicURL returns the public download URL for an uploaded object.
func (s *Supabase) PublicURL(key string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", s.baseURL, s.bucket, key)
}
