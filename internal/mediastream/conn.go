package mediastream

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/example/spoon-voicebot/internal/errs"
	"github.com/example/spoon-voicebot/internal/twilio"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// chunkSize is 200ms of 8 kHz mu-law.
const chunkSize = 1600

const handshakeTimeout = 10 * time.Second

// CallData is the call metadata carried by the stream start message.
type CallData struct {
	StreamID   string
	CallID     string
	AccountSID string
	Format     twilio.MediaFormat
	// Body holds the custom stream parameters from the TwiML document.
	Body map[string]string
}

func (d CallData) ToNumber() string   { return d.Body["to_number"] }
func (d CallData) FromNumber() string { return d.Body["from_number"] }

type EventKind int

const (
	Audio EventKind = iota
	Digit
	MarkDone
	Stop
)

type Event struct {
	Kind  EventKind
	Audio []byte
	Digit string
	Mark  string
}

type HangupFunc func(ctx context.Context, callSID string) error

// Conn is one Twilio media stream.
type Conn struct {
	SessionID string
	Call      CallData

	ws     *websocket.Conn
	hangup HangupFunc

	wmu     sync.Mutex
	mu      sync.Mutex
	stopped bool
}

// Accept reads the handshake from a freshly upgraded socket until the start
// event and returns the stream. hangup may be nil.
func Accept(ws *websocket.Conn, hangup HangupFunc) (*Conn, error) {
	if err := ws.SetReadDeadline(time.Now().Add(handshakeTimeout)); err != nil {
		return nil, err
	}
	defer ws.SetReadDeadline(time.Time{})

	for {
		var msg twilio.StreamMessage
		if err := ws.ReadJSON(&msg); err != nil {
			return nil, fmt.Errorf("read handshake: %w", err)
		}
		switch msg.Event {
		case twilio.EventConnected:
			continue
		case twilio.EventStart:
			data, err := callData(msg)
			if err != nil {
				return nil, err
			}
			c := &Conn{
				SessionID: uuid.NewString(),
				Call:      data,
				ws:        ws,
				hangup:    hangup,
			}
			log.Debug().Str("session_id", c.SessionID).Str("stream_sid", data.StreamID).Msg("media stream started")
			return c, nil
		default:
			return nil, fmt.Errorf("%w: unexpected %q before start", errs.ErrMissingCallData, msg.Event)
		}
	}
}

func callData(msg twilio.StreamMessage) (CallData, error) {
	if msg.Start == nil {
		return CallData{}, fmt.Errorf("%w: start payload", errs.ErrMissingCallData)
	}
	d := CallData{
		StreamID:   msg.Start.StreamSID,
		CallID:     msg.Start.CallSID,
		AccountSID: msg.Start.AccountSID,
		Format:     msg.Start.MediaFormat,
		Body:       msg.Start.CustomParameters,
	}
	if d.StreamID == "" {
		d.StreamID = msg.StreamSID
	}
	if d.Body == nil {
		d.Body = map[string]string{}
	}
	if d.StreamID == "" {
		return CallData{}, fmt.Errorf("%w: stream_id", errs.ErrMissingCallData)
	}
	if d.CallID == "" {
		return CallData{}, fmt.Errorf("%w: call_id", errs.ErrMissingCallData)
	}
	return d, nil
}

// Read returns the next inbound event. After Stop the stream is finished.
func (c *Conn) Read() (Event, error) {
	for {
		var msg twilio.StreamMessage
		if err := c.ws.ReadJSON(&msg); err != nil {
			return Event{}, err
		}
		switch msg.Event {
		case twilio.EventMedia:
			if msg.Media == nil {
				continue
			}
			if msg.Media.Track != "" && msg.Media.Track != "inbound" {
				continue
			}
			b, err := base64.StdEncoding.DecodeString(msg.Media.Payload)
			if err != nil {
				log.Warn().Err(err).Str("session_id", c.SessionID).Str("chunk", msg.Media.Chunk).Msg("dropping undecodable media frame")
				continue
			}
			return Event{Kind: Audio, Audio: b}, nil
		case twilio.EventDTMF:
			if msg.DTMF != nil {
				return Event{Kind: Digit, Digit: msg.DTMF.Digit}, nil
			}
		case twilio.EventMark:
			if msg.Mark != nil {
				return Event{Kind: MarkDone, Mark: msg.Mark.Name}, nil
			}
		case twilio.EventStop:
			c.mu.Lock()
			c.stopped = true
			c.mu.Unlock()
			return Event{Kind: Stop}, nil
		}
	}
}

// SendAudio queues mu-law audio for playback.
func (c *Conn) SendAudio(audio []byte) error {
	for len(audio) > 0 {
		n := min(chunkSize, len(audio))
		msg := twilio.StreamMessage{
			Event:     twilio.EventMedia,
			StreamSID: c.Call.StreamID,
			Media:     &twilio.StreamMedia{Payload: base64.StdEncoding.EncodeToString(audio[:n])},
		}
		if err := c.write(msg); err != nil {
			return err
		}
		audio = audio[n:]
	}
	return nil
}

// Clear drops audio Twilio has buffered but not yet played.
func (c *Conn) Clear() error {
	return c.write(twilio.StreamMessage{Event: twilio.EventClear, StreamSID: c.Call.StreamID})
}

// Mark asks Twilio to echo name back once playback reaches this point.
func (c *Conn) Mark(name string) error {
	return c.write(twilio.StreamMessage{
		Event:     twilio.EventMark,
		StreamSID: c.Call.StreamID,
		Mark:      &twilio.StreamMark{Name: name},
	})
}

func (c *Conn) Stopped() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopped
}

// Finish hangs up the call if Twilio has not ended the stream itself.
func (c *Conn) Finish(ctx context.Context) error {
	if c.Stopped() || c.hangup == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := c.hangup(ctx, c.Call.CallID); err != nil {
		return fmt.Errorf("hang up %s: %w", c.Call.CallID, err)
	}
	return nil
}

func (c *Conn) Close() error {
	return c.ws.Close()
}

func (c *Conn) write(msg twilio.StreamMessage) error {
	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	c.wmu.Lock()
	defer c.wmu.Unlock()
	return c.ws.WriteMessage(websocket.TextMessage, b)
}
