package bot

import (
	"context"
	"fmt"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/example/spoon-voicebot/internal/bookings"
	"github.com/example/spoon-voicebot/internal/errs"
	"github.com/example/spoon-voicebot/internal/mediastream"
	"github.com/example/spoon-voicebot/internal/metrics"
	"github.com/example/spoon-voicebot/internal/prompt"
	"github.com/example/spoon-voicebot/internal/soniox"
	"github.com/example/spoon-voicebot/internal/tools"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// TokenVerifier checks the signed stream token carried in the stream
// parameters against the call it was issued for.
type TokenVerifier interface {
	Verify(token, callSID string) error
}

// Bot answers Twilio media streams with the booking assistant.
type Bot struct {
	Store  bookings.Store
	Model  einomodel.ToolCallingChatModel
	STT    Transcriber
	TTS    Synthesizer
	Hangup mediastream.HangupFunc
	// Tokens is optional; when set every stream must carry a valid token.
	Tokens TokenVerifier
}

// Serve runs one call on an upgraded websocket. It returns when the call ends.
func (b *Bot) Serve(ctx context.Context, ws *websocket.Conn) error {
	conn, err := mediastream.Accept(ws, b.Hangup)
	if err != nil {
		return err
	}
	logger := log.With().
		Str("session_id", conn.SessionID).
		Str("call_sid", conn.Call.CallID).
		Str("stream_sid", conn.Call.StreamID).
		Logger()

	logger.Info().Msg("Auto-detected transport: twilio")
	logger.Info().Msgf("Call metadata - To: %s, From: %s", conn.Call.ToNumber(), conn.Call.FromNumber())

	if b.Tokens != nil {
		if err := b.Tokens.Verify(conn.Call.Body["token"], conn.Call.CallID); err != nil {
			return fmt.Errorf("%w: stream token: %v", errs.ErrUnauthorized, err)
		}
	}

	metrics.CallsTotal.Inc()
	metrics.ActiveCalls.Inc()
	defer metrics.ActiveCalls.Dec()

	sess, err := b.Assemble(conn)
	if err != nil {
		return err
	}
	sess.Log = logger

	runErr := sess.Run(ctx)
	if err := conn.Finish(context.WithoutCancel(ctx)); err != nil {
		logger.Warn().Err(err).Msg("hang up")
	}
	return runErr
}

// Assemble wires the prompt, tools and services into a session for conn.
func (b *Bot) Assemble(conn *mediastream.Conn) (*Session, error) {
	handler := &tools.Handler{Store: b.Store, CallSID: conn.Call.CallID}
	agent, err := NewAgent(b.Model, handler, prompt.System())
	if err != nil {
		return nil, err
	}

	return &Session{
		Transport: conn,
		STT:       b.STT,
		TTS:       b.TTS,
		Agent:     agent,
		Hooks:     b.hooks(),
		Log:       log.Logger,
	}, nil
}

func (b *Bot) hooks() Hooks {
	return Hooks{
		OnConnected: func() {
			log.Info().Msg("Restaurant booking assistant ready - waiting for customer")
		},
		OnDisconnected: func() {
			log.Info().Msg("Call ended")
			n, err := b.Store.Count(context.Background())
			if err != nil {
				log.Error().Err(err).Msg("count bookings")
				return
			}
			log.Info().Msgf("Total bookings created: %d", n)
		},
	}
}

// SonioxTranscriber adapts the Soniox client to the pipeline.
type SonioxTranscriber struct {
	Client *soniox.Client
}

func (t SonioxTranscriber) Open(ctx context.Context) (TranscriptStream, error) {
	s, err := t.Client.Open(ctx)
	if err != nil {
		return nil, err
	}
	return s, nil
}
