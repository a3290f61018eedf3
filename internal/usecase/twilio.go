// Package usecase wraps the Twilio REST operations the survey needs.
package usecase

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// TwilioService defines the Twilio REST operations used by the HTTP layer.
type TwilioService interface {
	// PlaceCall starts an outbound call to a phone number, pointing the
	// call-connected webhook at voiceURL. Returns the new CallSid.
	PlaceCall(toNumber, voiceURL string) (string, error)
	// StartCallRecording begins a continuous recording of an in-progress call.
	StartCallRecording(callSid, statusCallbackURL string) error
	// FetchRecording downloads a completed recording as WAV bytes.
	FetchRecording(ctx context.Context, recordingURL string) ([]byte, error)
	// BuildAbsoluteURL builds a public absolute URL for webhook callbacks.
	BuildAbsoluteURL(c echo.Context, path string) string
}

type twilioService struct {
	accountSID   string
	authToken    string
	callerNumber string
	client       *twilio.RestClient
	httpClient   *http.Client
}

// NewTwilioService builds the service from account credentials and the
// number outbound calls originate from.
func NewTwilioService(accountSID, authToken, callerNumber string) TwilioService {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &twilioService{
		accountSID:   accountSID,
		authToken:    authToken,
		callerNumber: callerNumber,
		client:       client,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *twilioService) PlaceCall(toNumber, voiceURL string) (string, error) {
	if s.accountSID == "" || s.authToken == "" {
		return "", fmt.Errorf("missing Twilio credentials: TWILIO_ACCOUNT_SID and TWILIO_AUTH_TOKEN required")
	}
	if s.callerNumber == "" {
		return "", fmt.Errorf("missing TWILIO_CALLER_NUMBER: no number to place calls from")
	}

	params := &twilioApi.CreateCallParams{}
	params.SetTo(toNumber)
	params.SetFrom(s.callerNumber)
	params.SetUrl(voiceURL)
	params.SetMethod("POST")

	call, err := s.client.Api.CreateCall(params)
	if err != nil {
		return "", fmt.Errorf("failed to place call to %s: %w", toNumber, err)
	}
	if call.Sid == nil {
		return "", fmt.Errorf("place call to %s: no CallSid in response", toNumber)
	}
	return *call.Sid, nil
}

func (s *twilioService) StartCallRecording(callSid, statusCallbackURL string) error {
	params := &twilioApi.CreateCallRecordingParams{}
	params.SetRecordingStatusCallback(statusCallbackURL)
	params.SetRecordingStatusCallbackMethod("POST")
	params.SetRecordingStatusCallbackEvent([]string{"completed"})
	params.SetRecordingChannels("mono")

	if _, err := s.client.Api.CreateCallRecording(callSid, params); err != nil {
		return fmt.Errorf("failed to start recording: %w", err)
	}
	return nil
}

// FetchRecording downloads the WAV media behind a Twilio RecordingUrl using
// account basic auth.
func (s *twilioService) FetchRecording(ctx context.Context, recordingURL string) ([]byte, error) {
	if s.accountSID == "" || s.authToken == "" {
		return nil, fmt.Errorf("missing Twilio credentials: TWILIO_ACCOUNT_SID and TWILIO_AUTH_TOKEN required to download recording")
	}
	mediaURL := recordingURL
	if !strings.HasSuffix(mediaURL, ".wav") {
		mediaURL += ".wav"
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create recording request: %w", err)
	}
	req.SetBasicAuth(s.accountSID, s.authToken)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download recording: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyPreview, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("download recording failed, status %d: %s", resp.StatusCode, string(bodyPreview))
	}
	return io.ReadAll(resp.Body)
}

// BuildAbsoluteURL builds a public absolute URL for callbacks.
// Priority: BASE_URL env > X-Forwarded-* headers > request Host heuristic.
func (s *twilioService) BuildAbsoluteURL(c echo.Context, path string) string {
	baseURL := os.Getenv("BASE_URL")
	if baseURL == "" {
		proto := c.Request().Header.Get("X-Forwarded-Proto")
		host := c.Request().Header.Get("X-Forwarded-Host")
		if proto != "" && host != "" {
			baseURL = fmt.Sprintf("%s://%s", proto, host)
		}
	}
	if baseURL == "" {
		host := c.Request().Host
		proto := "https"
		if strings.HasPrefix(host, "localhost:") || strings.HasPrefix(host, "127.0.0.1:") {
			proto = "http"
		}
		baseURL = fmt.Sprintf("%s://%s", proto, host)
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return strings.TrimRight(baseURL, "/") + path
}
