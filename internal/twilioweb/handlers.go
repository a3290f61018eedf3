// Package twilioweb is the webhook boundary: it maps Twilio callbacks onto
// the call flow controller and renders the controller's decisions as TwiML.
package twilioweb

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/twilio/twilio-go/twiml"

	mongostore "github.com/Pratham-Aggarwal22/NTHSPipeline/internal/store/mongo"
	"github.com/Pratham-Aggarwal22/NTHSPipeline/internal/survey"
	"github.com/Pratham-Aggarwal22/NTHSPipeline/internal/usecase"
)

const (
	answerPath          = "/twilio/answer"
	recordingStatusPath = "/twilio/recording-status"
	voicePath           = "/twilio/voice"
)

// CallFlow is the controller surface the boundary drives.
type CallFlow interface {
	BeginCall(ctx context.Context, callID string) (survey.Turn, error)
	SubmitAnswer(ctx context.Context, callID, recordingID string, audio []byte) (survey.Turn, error)
}

// ResponseLister serves the operator read path over stored answers.
type ResponseLister interface {
	ListByCall(ctx context.Context, callID string) ([]mongostore.Answer, error)
}

// Handlers holds the boundary's dependencies.
type Handlers struct {
	Flow      CallFlow
	Twilio    usecase.TwilioService
	Speaker   *Speaker
	Audio     AudioStore
	Responses ResponseLister
}

// NewHandlers builds the webhook boundary. Audio and Responses may be nil
// when the corresponding backends are not configured.
func NewHandlers(flow CallFlow, twilioService usecase.TwilioService, speaker *Speaker, audio AudioStore, responses ResponseLister) Handlers {
	return Handlers{Flow: flow, Twilio: twilioService, Speaker: speaker, Audio: audio, Responses: responses}
}

// Register mounts all routes.
func (h Handlers) Register(e *echo.Echo) {
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.POST(voicePath, h.voice)
	e.POST(answerPath, h.answer)
	e.POST(recordingStatusPath, h.recordingStatus)
	e.POST("/calls", h.initiateCall)
	e.GET("/calls/:sid/responses", h.listResponses)
}

// voice handles the call-connected event: create the session and speak the
// greeting plus the first question. It also starts the full-call recording.
func (h Handlers) voice(c echo.Context) error {
	params, ok := c.Get("twilioParams").(map[string]string)
	if !ok {
		return c.String(http.StatusInternalServerError, "Failed to get Twilio parameters")
	}
	callSid := params["CallSid"]
	if callSid == "" {
		return c.String(http.StatusBadRequest, "CallSid required")
	}
	c.Echo().Logger.Infof("Call connected: CallSid=%s From=%s", callSid, params["From"])

	statusCallback := h.Twilio.BuildAbsoluteURL(c, recordingStatusPath)
	go func() {
		if err := h.Twilio.StartCallRecording(callSid, statusCallback); err != nil {
			c.Echo().Logger.Errorf("Failed to start call recording for CallSid=%s: %v", callSid, err)
		}
	}()

	turn, err := h.Flow.BeginCall(c.Request().Context(), callSid)
	if err != nil {
		c.Echo().Logger.Errorf("BeginCall failed for CallSid=%s: %v", callSid, err)
		return c.String(http.StatusBadRequest, "failed to begin call")
	}
	return h.renderTurn(c, turn)
}

// answer handles the answer-recorded event: download the clip, hand it to
// the controller, and render its decision.
func (h Handlers) answer(c echo.Context) error {
	params, ok := c.Get("twilioParams").(map[string]string)
	if !ok {
		return c.String(http.StatusInternalServerError, "Failed to get Twilio parameters")
	}
	callSid := params["CallSid"]
	if callSid == "" {
		return c.String(http.StatusBadRequest, "CallSid required")
	}
	recordingSid := params["RecordingSid"]
	recordingURL := params["RecordingUrl"]

	var audio []byte
	if recordingURL != "" {
		clip, err := h.Twilio.FetchRecording(c.Request().Context(), recordingURL)
		if err != nil {
			// An unfetchable clip flows through as silence, which the
			// controller answers with a re-prompt.
			c.Echo().Logger.Errorf("Failed to fetch recording %s: %v", recordingSid, err)
		} else {
			audio = clip
		}
	}

	turn, err := h.Flow.SubmitAnswer(c.Request().Context(), callSid, recordingSid, audio)
	if err != nil {
		if errors.Is(err, survey.ErrUnknownCall) {
			c.Echo().Logger.Infof("Answer for unknown call %s, hanging up", callSid)
			return h.renderTurn(c, survey.Turn{Say: "This survey has already ended. Goodbye!", Hangup: true})
		}
		c.Echo().Logger.Errorf("SubmitAnswer failed for CallSid=%s: %v", callSid, err)
		return c.String(http.StatusInternalServerError, "failed to process answer")
	}
	return h.renderTurn(c, turn)
}

// recordingStatus uploads the completed full-call recording to storage.
func (h Handlers) recordingStatus(c echo.Context) error {
	params, ok := c.Get("twilioParams").(map[string]string)
	if !ok {
		return c.String(http.StatusInternalServerError, "Failed to get Twilio parameters")
	}
	status := params["RecordingStatus"]
	recordingSid := params["RecordingSid"]
	recordingURL := params["RecordingUrl"]
	c.Echo().Logger.Infof("Recording status: SID=%s Status=%s", recordingSid, status)

	if status == "completed" && recordingURL != "" && h.Audio != nil {
		fileName := fmt.Sprintf("recording_%s_%d.wav", recordingSid, time.Now().Unix())
		logger := c.Echo().Logger
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			clip, err := h.Twilio.FetchRecording(ctx, recordingURL)
			if err != nil {
				logger.Errorf("Failed to download recording %s: %v", recordingSid, err)
				return
			}
			if err := h.Audio.Upload(fileName, "audio/wav", clip); err != nil {
				logger.Errorf("Failed to upload recording %s: %v", recordingSid, err)
				return
			}
			logger.Infof("Recording uploaded: %s", fileName)
		}()
	}
	return c.String(http.StatusOK, "OK")
}

// initiateCall is the operator trigger: start an outbound call that lands on
// the call-connected webhook once answered.
func (h Handlers) initiateCall(c echo.Context) error {
	phoneNumber := c.FormValue("phone_number")
	if phoneNumber == "" {
		var body struct {
			PhoneNumber string `json:"phone_number"`
		}
		if err := c.Bind(&body); err == nil {
			phoneNumber = body.PhoneNumber
		}
	}
	if phoneNumber == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "phone_number required"})
	}

	voiceURL := h.Twilio.BuildAbsoluteURL(c, voicePath)
	callSid, err := h.Twilio.PlaceCall(phoneNumber, voiceURL)
	if err != nil {
		c.Echo().Logger.Errorf("Failed to place call to %s: %v", phoneNumber, err)
		return c.JSON(http.StatusBadGateway, map[string]string{"error": "failed to place call"})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "calling", "call_sid": callSid})
}

// listResponses returns the stored answers for one call.
func (h Handlers) listResponses(c echo.Context) error {
	if h.Responses == nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "response store not configured"})
	}
	callSid := c.Param("sid")
	answers, err := h.Responses.ListByCall(c.Request().Context(), callSid)
	if err != nil {
		c.Echo().Logger.Errorf("Failed to list responses for %s: %v", callSid, err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to list responses"})
	}
	if answers == nil {
		answers = []mongostore.Answer{}
	}
	return c.JSON(http.StatusOK, answers)
}

// renderTurn translates a controller decision into the TwiML reply Twilio
// expects: speak, then either record the next answer or hang up.
func (h Handlers) renderTurn(c echo.Context, turn survey.Turn) error {
	var elements []twiml.Element
	if turn.Say != "" {
		if url, ok := h.Speaker.PromptURL(c.Request().Context(), turn.Say); ok {
			elements = append(elements, &twiml.VoicePlay{Url: url})
		} else {
			elements = append(elements, &twiml.VoiceSay{Message: turn.Say})
		}
	}
	if turn.Record {
		elements = append(elements, &twiml.VoiceRecord{
			Action:    answerPath,
			Method:    "POST",
			MaxLength: "30",
			Timeout:   "5",
			PlayBeep:  "true",
		})
	}
	if turn.Hangup {
		elements = append(elements, &twiml.VoiceHangup{})
	}

	response, err := twiml.Voice(elements)
	if err != nil {
		return c.String(http.StatusInternalServerError, "failed to build TwiML")
	}
	c.Response().Header().Set(echo.HeaderContentType, "application/xml")
	return c.String(http.StatusOK, response)
}
