package soniox

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
)

const (
	DefaultURL   = "wss://stt-rt.soniox.com/transcribe-websocket"
	DefaultModel = "stt-rt-preview"

	endToken = "<end>"
)

// Client opens realtime transcription streams for 8 kHz mu-law telephony
// audio.
type Client struct {
	APIKey string
	Model  string
	URL    string
	Dialer *websocket.Dialer
}

func New(apiKey, model string) *Client {
	if model == "" {
		model = DefaultModel
	}
	return &Client{APIKey: apiKey, Model: model, URL: DefaultURL, Dialer: websocket.DefaultDialer}
}

type config struct {
	APIKey                  string `json:"api_key"`
	Model                   string `json:"model"`
	AudioFormat             string `json:"audio_format"`
	SampleRate              int    `json:"sample_rate"`
	NumChannels             int    `json:"num_channels"`
	EnableEndpointDetection bool   `json:"enable_endpoint_detection"`
}

type token struct {
	Text    string `json:"text"`
	IsFinal bool   `json:"is_final"`
}

type response struct {
	Tokens       []token `json:"tokens"`
	Finished     bool    `json:"finished"`
	ErrorCode    int     `json:"error_code"`
	ErrorMessage string  `json:"error_message"`
}

// Result is one transcription update. Final text is settled and never
// repeated; Interim text may still change.
type Result struct {
	Final     string
	Interim   string
	EndOfTurn bool
}

type Error struct {
	Code    int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("soniox: %s (code=%d)", e.Message, e.Code)
}

type Stream struct {
	ws  *websocket.Conn
	wmu sync.Mutex
}

func (c *Client) Open(ctx context.Context) (*Stream, error) {
	if c.APIKey == "" {
		return nil, errors.New("soniox: api key is required")
	}
	dialer := c.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	ws, resp, err := dialer.DialContext(ctx, c.URL, http.Header{})
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("soniox: dial: %w (status=%d)", err, resp.StatusCode)
		}
		return nil, fmt.Errorf("soniox: dial: %w", err)
	}

	cfg := config{
		APIKey:                  c.APIKey,
		Model:                   c.Model,
		AudioFormat:             "mulaw",
		SampleRate:              8000,
		NumChannels:             1,
		EnableEndpointDetection: true,
	}
	if err := ws.WriteJSON(cfg); err != nil {
		_ = ws.Close()
		return nil, fmt.Errorf("soniox: send config: %w", err)
	}
	return &Stream{ws: ws}, nil
}

func (s *Stream) Send(audio []byte) error {
	if len(audio) == 0 {
		return nil
	}
	s.wmu.Lock()
	defer s.wmu.Unlock()
	return s.ws.WriteMessage(websocket.BinaryMessage, audio)
}

// CloseSend tells the server no more audio follows. Recv keeps returning
// results until io.EOF.
func (s *Stream) CloseSend() error {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	return s.ws.WriteMessage(websocket.TextMessage, []byte{})
}

func (s *Stream) Recv() (Result, error) {
	for {
		var r response
		if err := s.ws.ReadJSON(&r); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return Result{}, io.EOF
			}
			return Result{}, err
		}
		if r.ErrorCode != 0 || r.ErrorMessage != "" {
			return Result{}, &Error{Code: r.ErrorCode, Message: r.ErrorMessage}
		}
		if r.Finished {
			return Result{}, io.EOF
		}
		if len(r.Tokens) == 0 {
			continue
		}

		var res Result
		var final, interim strings.Builder
		for _, t := range r.Tokens {
			if t.Text == endToken {
				res.EndOfTurn = true
				continue
			}
			if t.IsFinal {
				final.WriteString(t.Text)
			} else {
				interim.WriteString(t.Text)
			}
		}
		res.Final = final.String()
		res.Interim = interim.String()
		return res, nil
	}
}

func (s *Stream) Close() error {
	return s.ws.Close()
}
