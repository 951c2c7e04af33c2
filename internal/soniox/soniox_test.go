package soniox

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeServer checks the config frame, collects audio until the empty end
// frame, then plays back the scripted responses.
func fakeServer(t *testing.T, script []string, gotConfig chan<- config, gotAudio chan<- []byte) *Client {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()

		var cfg config
		if err := ws.ReadJSON(&cfg); err != nil {
			return
		}
		gotConfig <- cfg

		var audio []byte
		for {
			_, b, err := ws.ReadMessage()
			if err != nil {
				return
			}
			if len(b) == 0 {
				break
			}
			audio = append(audio, b...)
		}
		gotAudio <- audio

		for _, s := range script {
			if err := ws.WriteMessage(websocket.TextMessage, []byte(s)); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)

	c := New("key-123", "")
	c.URL = "ws" + strings.TrimPrefix(srv.URL, "http")
	return c
}

func TestStream(t *testing.T) {
	cfgCh := make(chan config, 1)
	audioCh := make(chan []byte, 1)
	c := fakeServer(t, []string{
		`{"tokens":[{"text":"Hel","is_final":true},{"text":"lo th","is_final":false}]}`,
		`{"tokens":[]}`,
		`{"tokens":[{"text":"lo there","is_final":true},{"text":"<end>","is_final":true}]}`,
		`{"finished":true}`,
	}, cfgCh, audioCh)

	s, err := c.Open(context.Background())
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Send([]byte{1, 2, 3}))
	require.NoError(t, s.Send(nil))
	require.NoError(t, s.Send([]byte{4}))
	require.NoError(t, s.CloseSend())

	cfg := <-cfgCh
	assert.Equal(t, config{
		APIKey:                  "key-123",
		Model:                   DefaultModel,
		AudioFormat:             "mulaw",
		SampleRate:              8000,
		NumChannels:             1,
		EnableEndpointDetection: true,
	}, cfg)
	assert.Equal(t, []byte{1, 2, 3, 4}, <-audioCh)

	r, err := s.Recv()
	require.NoError(t, err)
	assert.Equal(t, Result{Final: "Hel", Interim: "lo th"}, r)

	r, err = s.Recv()
	require.NoError(t, err)
	assert.Equal(t, Result{Final: "lo there", EndOfTurn: true}, r)

	_, err = s.Recv()
	assert.ErrorIs(t, err, io.EOF)
}

func TestStreamError(t *testing.T) {
	c := fakeServer(t, []string{`{"error_code":401,"error_message":"Invalid API key"}`}, make(chan config, 1), make(chan []byte, 1))

	s, err := c.Open(context.Background())
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.CloseSend())

	_, err = s.Recv()
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 401, apiErr.Code)
}

func TestOpenRequiresKey(t *testing.T) {
	_, err := New("", "").Open(context.Background())
	require.Error(t, err)
}

func TestConfigWireNames(t *testing.T) {
	b, err := json.Marshal(config{APIKey: "k", Model: "m", AudioFormat: "mulaw", SampleRate: 8000, NumChannels: 1, EnableEndpointDetection: true})
	require.NoError(t, err)
	assert.JSONEq(t, `{"api_key":"k","model":"m","audio_format":"mulaw","sample_rate":8000,"num_channels":1,"enable_endpoint_detection":true}`, string(b))
}
