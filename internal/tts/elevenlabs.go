package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/glizzus/jukebox/internal/config"
)

var ErrDisabled = errors.New("text to speech is not configured")

// APIError is a non-2xx answer from ElevenLabs.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("elevenlabs returned %d: %s", e.Status, e.Message)
}

var _ error = (*APIError)(nil)

type VoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

var DefaultVoiceSettings = VoiceSettings{Stability: 0.5, SimilarityBoost: 0.8}

type synthesizeRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings VoiceSettings `json:"voice_settings"`
}

// Client calls the ElevenLabs text-to-speech endpoint.
type Client struct {
	cfg        config.ElevenLabsConfig
	httpClient *http.Client
}

func NewClient(cfg *config.ElevenLabsConfig) *Client {
	return &Client{
		cfg:        *cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

func (c *Client) Enabled() bool {
	return c.cfg.Enabled()
}

// Synthesize returns the encoded audio for text in the configured output format.
func (c *Client) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if !c.Enabled() {
		return nil, ErrDisabled
	}

	payload, err := json.Marshal(synthesizeRequest{
		Text:          text,
		ModelID:       c.cfg.ModelID,
		VoiceSettings: DefaultVoiceSettings,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode tts request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1/text-to-speech/%s?output_format=%s",
		strings.TrimRight(c.cfg.BaseURL, "/"),
		url.PathEscape(c.cfg.VoiceID),
		url.QueryEscape(c.cfg.OutputFormat),
	)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build tts request: %w", err)
	}
	req.Header.Set("xi-api-key", c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tts request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{Status: resp.StatusCode, Message: errorMessage(resp.Body, resp.Status)}
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read tts audio: %w", err)
	}
	if len(audio) == 0 {
		return nil, errors.New("elevenlabs returned no audio")
	}
	return audio, nil
}

// errorMessage digs the message out of an ElevenLabs error body, which is
// either {"message": ...} or {"detail": {"message": ...}}.
func errorMessage(body io.Reader, fallback string) string {
	var parsed struct {
		Message string `json:"message"`
		Detail  struct {
			Message string `json:"message"`
		} `json:"detail"`
	}
	if err := json.NewDecoder(body).Decode(&parsed); err != nil {
		return fallback
	}
	switch {
	case parsed.Message != "":
		return parsed.Message
	case parsed.Detail.Message != "":
		return parsed.Detail.Message
	default:
		return fallback
	}
}
