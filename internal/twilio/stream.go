package twilio

// Media Streams wire format. Twilio sends connected, start, media, dtmf,
// mark and stop events; the server may send media, mark and clear.

const (
	EventConnected = "connected"
	EventStart     = "start"
	EventMedia     = "media"
	EventDTMF      = "dtmf"
	EventMark      = "mark"
	EventStop      = "stop"
	EventClear     = "clear"
)

type StreamMessage struct {
	Event          string        `json:"event"`
	SequenceNumber string        `json:"sequenceNumber,omitempty"`
	StreamSID      string        `json:"streamSid,omitempty"`
	Protocol       string        `json:"protocol,omitempty"`
	Version        string        `json:"version,omitempty"`
	Start          *StreamStart  `json:"start,omitempty"`
	Media          *StreamMedia  `json:"media,omitempty"`
	Mark           *StreamMark   `json:"mark,omitempty"`
	Stop           *StreamStop   `json:"stop,omitempty"`
	DTMF           *StreamDigits `json:"dtmf,omitempty"`
}

type StreamStart struct {
	StreamSID        string            `json:"streamSid"`
	AccountSID       string            `json:"accountSid"`
	CallSID          string            `json:"callSid"`
	Tracks           []string          `json:"tracks"`
	MediaFormat      MediaFormat       `json:"mediaFormat"`
	CustomParameters map[string]string `json:"customParameters"`
}

type MediaFormat struct {
	Encoding   string `json:"encoding"`
	SampleRate int    `json:"sampleRate"`
	Channels   int    `json:"channels"`
}

type StreamMedia struct {
	Track     string `json:"track,omitempty"`
	Chunk     string `json:"chunk,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	// base64 mu-law, 8 kHz mono
	Payload string `json:"payload"`
}

type StreamMark struct {
	Name string `json:"name"`
}

type StreamStop struct {
	AccountSID string `json:"accountSid"`
	CallSID    string `json:"callSid"`
}

type StreamDigits struct {
	Track string `json:"track,omitempty"`
	Digit string `json:"digit"`
}
