package middleware

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func signRequest(authToken, fullURL string, params map[string]string) string {
	data := fullURL
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		data += k + params[k]
	}
	mac := hmac.New(sha1.New, []byte(authToken))
	mac.Write([]byte(data))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestValidateTwilioSignature(t *testing.T) {
	params := map[string]string{"CallSid": "CA1", "From": "+15550001111"}
	fullURL := "https://example.com/twilio/voice"
	sig := signRequest("token", fullURL, params)

	if !validateTwilioSignature("token", sig, fullURL, params) {
		t.Fatalf("expected valid signature")
	}
	if validateTwilioSignature("token", "bogus", fullURL, params) {
		t.Fatalf("expected invalid signature")
	}
	if validateTwilioSignature("", sig, fullURL, params) {
		t.Fatalf("empty auth token must fail")
	}
	if validateTwilioSignature("other-token", sig, fullURL, params) {
		t.Fatalf("wrong token must fail")
	}
}

func TestTwilioAuth_PassesValidRequest(t *testing.T) {
	e := echo.New()
	e.Use(TwilioAuth(func() string { return "token" }))
	e.POST("/twilio/voice", func(c echo.Context) error {
		params, ok := c.Get("twilioParams").(map[string]string)
		if !ok || params["CallSid"] != "CA1" {
			t.Errorf("twilioParams missing or wrong: %v", params)
		}
		return c.String(http.StatusOK, "ok")
	})

	form := url.Values{}
	form.Set("CallSid", "CA1")
	req := httptest.NewRequest(http.MethodPost, "/twilio/voice", strings.NewReader(form.Encode()))
	req.Host = "example.com"
	req.Header.Set("X-Twilio-Signature", signRequest("token", "https://example.com/twilio/voice", map[string]string{"CallSid": "CA1"}))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestTwilioAuth_RejectsBadSignature(t *testing.T) {
	e := echo.New()
	e.Use(TwilioAuth(func() string { return "token" }))
	e.POST("/twilio/voice", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	req := httptest.NewRequest(http.MethodPost, "/twilio/voice", strings.NewReader("CallSid=CA1"))
	req.Host = "example.com"
	req.Header.Set("X-Twilio-Signature", "bogus")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestTwilioAuth_SkipsNonWebhookPaths(t *testing.T) {
	e := echo.New()
	e.Use(TwilioAuth(func() string { return "token" }))
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestTwilioAuth_MissingToken(t *testing.T) {
	e := echo.New()
	e.Use(TwilioAuth(func() string { return "" }))
	e.POST("/twilio/voice", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	req := httptest.NewRequest(http.MethodPost, "/twilio/voice", strings.NewReader(""))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}
