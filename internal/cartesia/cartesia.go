package cartesia

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultBaseURL = "https://api.cartesia.ai"
	DefaultModel   = "sonic-2"
	APIVersion     = "2024-11-13"
)

// Client synthesizes 8 kHz mu-law speech, the format Twilio plays back.
type Client struct {
	hc      *http.Client
	apiKey  string
	voiceID string
	model   string
	baseURL string
}

func New(apiKey, voiceID, model string) *Client {
	if model == "" {
		model = DefaultModel
	}
	return &Client{
		hc:      &http.Client{Timeout: 30 * time.Second},
		apiKey:  apiKey,
		voiceID: voiceID,
		model:   model,
		baseURL: DefaultBaseURL,
	}
}

func (c *Client) WithBaseURL(u string) *Client {
	c.baseURL = strings.TrimRight(u, "/")
	return c
}

type voice struct {
	Mode string `json:"mode"`
	ID   string `json:"id"`
}

type outputFormat struct {
	Container  string `json:"container"`
	Encoding   string `json:"encoding"`
	SampleRate int    `json:"sample_rate"`
}

type ttsRequest struct {
	ModelID      string       `json:"model_id"`
	Transcript   string       `json:"transcript"`
	Voice        voice        `json:"voice"`
	OutputFormat outputFormat `json:"output_format"`
	Language     string       `json:"language,omitempty"`
}

// Synthesize returns raw mu-law audio for text.
func (c *Client) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if c.apiKey == "" {
		return nil, errors.New("cartesia: api key is required")
	}
	body, err := json.Marshal(ttsRequest{
		ModelID:    c.model,
		Transcript: text,
		Voice:      voice{Mode: "id", ID: c.voiceID},
		OutputFormat: outputFormat{
			Container:  "raw",
			Encoding:   "pcm_mulaw",
			SampleRate: 8000,
		},
		Language: "en",
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/tts/bytes", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", c.apiKey)
	req.Header.Set("Cartesia-Version", APIVersion)

	res, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cartesia: %w", err)
	}
	defer res.Body.Close()

	audio, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("cartesia: read audio: %w", err)
	}
	if res.StatusCode >= 400 {
		return nil, fmt.Errorf("cartesia: tts failed: %s (status=%d)", strings.TrimSpace(string(audio)), res.StatusCode)
	}
	return audio, nil
}
