package translate

import (
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

var ErrDisabled = errors.New("translation is not configured")

// APIError is a non-2xx answer from the translate endpoint.
type APIError struct {
	Status int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("translate returned %d", e.Status)
}

var _ error = (*APIError)(nil)

// Result is a finished translation. SourceLanguage is the detected language.
type Result struct {
	Text           string
	SourceLanguage string
	TargetLanguage string
}

type Detection struct {
	Language   string
	Confidence float64
}

// Confident reports whether the backend is reasonably sure of the language.
func (d *Detection) Confident() bool {
	return d.Confidence >= 0.5
}

// Client calls the public Google Translate endpoint.
type Client struct {
	cfg        config.TranslateConfig
	httpClient *http.Client
}

func NewClient(cfg *config.TranslateConfig) *Client {
	return &Client{
		cfg:        *cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

func (c *Client) Translate(ctx context.Context, text, target string) (*Result, error) {
	resp, err := c.query(ctx, text, target)
	if err != nil {
		return nil, err
	}
	return &Result{
		Text:           resp.text,
		SourceLanguage: resp.source,
		TargetLanguage: target,
	}, nil
}

// Detect works out the language of text by translating it to English.
func (c *Client) Detect(ctx context.Context, text string) (*Detection, error) {
	resp, err := c.query(ctx, text, "en")
	if err != nil {
		return nil, err
	}
	return &Detection{Language: resp.source, Confidence: resp.confidence}, nil
}

type response struct {
	text       string
	source     string
	confidence float64
}

func (c *Client) query(ctx context.Context, text, target string) (*response, error) {
	if !c.cfg.Enabled {
		return nil, ErrDisabled
	}

	params := url.Values{
		"client": {"gtx"},
		"sl":     {AutoDetect},
		"tl":     {target},
		"dt":     {"t"},
	}
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/translate_a/single?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(url.Values{"q": {text}}.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to build translate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded;charset=UTF-8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("translate request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{Status: resp.StatusCode}
	}
	return parseResponse(resp.Body)
}

// parseResponse reads the positional array the endpoint answers with:
// translated segments first, the detected source language third and the
// detection confidence seventh.
func parseResponse(body io.Reader) (*response, error) {
	var raw []json.RawMessage
	if err := json.NewDecoder(body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode translate response: %w", err)
	}
	if len(raw) < 3 {
		return nil, fmt.Errorf("unexpected translate response with %d fields", len(raw))
	}

	var segments [][]json.RawMessage
	if err := json.Unmarshal(raw[0], &segments); err != nil {
		return nil, fmt.Errorf("failed to decode translated segments: %w", err)
	}
	var b strings.Builder
	for _, seg := range segments {
		if len(seg) == 0 {
			continue
		}
		var s string
		if err := json.Unmarshal(seg[0], &s); err == nil {
			b.WriteString(s)
		}
	}

	out := &response{text: b.String()}
	if err := json.Unmarshal(raw[2], &out.source); err != nil {
		return nil, fmt.Errorf("failed to decode source language: %w", err)
	}
	out.source = normalizeCode(out.source)
	if len(raw) > 6 {
		_ = json.Unmarshal(raw[6], &out.confidence)
	}
	return out, nil
}
