package bot

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/example/spoon-voicebot/internal/mediastream"
	"github.com/example/spoon-voicebot/internal/soniox"
)

type fakeModel struct {
	mu        sync.Mutex
	responses []*schema.Message
	inputs    [][]*schema.Message
	tools     []*schema.ToolInfo
}

func (f *fakeModel) Generate(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inputs = append(f.inputs, input)
	if len(f.responses) == 0 {
		return nil, errors.New("no fake response left")
	}
	msg := f.responses[0]
	f.responses = f.responses[1:]
	return msg, nil
}

func (f *fakeModel) Stream(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("stream not implemented in fake model")
}

func (f *fakeModel) WithTools(tools []*schema.ToolInfo) (einomodel.ToolCallingChatModel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tools = tools
	return f, nil
}

func toolCall(id, name, args string) *schema.Message {
	return &schema.Message{
		Role: schema.Assistant,
		ToolCalls: []schema.ToolCall{{
			ID:       id,
			Function: schema.FunctionCall{Name: name, Arguments: args},
		}},
	}
}

func text(s string) *schema.Message {
	return &schema.Message{Role: schema.Assistant, Content: s}
}

type fakeTransport struct {
	events    chan mediastream.Event
	closed    chan struct{}
	closeOnce sync.Once

	mu     sync.Mutex
	audio  []string
	marks  []string
	clears int

	marked  chan string
	cleared chan struct{}
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		events:  make(chan mediastream.Event, 16),
		closed:  make(chan struct{}),
		marked:  make(chan string, 16),
		cleared: make(chan struct{}, 16),
	}
}

func (f *fakeTransport) Read() (mediastream.Event, error) {
	select {
	case ev := <-f.events:
		return ev, nil
	case <-f.closed:
		return mediastream.Event{}, io.ErrClosedPipe
	}
}

func (f *fakeTransport) SendAudio(audio []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.audio = append(f.audio, string(audio))
	return nil
}

func (f *fakeTransport) Clear() error {
	f.mu.Lock()
	f.clears++
	f.mu.Unlock()
	f.cleared <- struct{}{}
	return nil
}

func (f *fakeTransport) Mark(name string) error {
	f.mu.Lock()
	f.marks = append(f.marks, name)
	f.mu.Unlock()
	f.marked <- name
	return nil
}

func (f *fakeTransport) Close() error {
	f.closeOnce.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeTransport) sentAudio() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.audio...)
}

type fakeSTT struct {
	stream *fakeStream
}

func (f *fakeSTT) Open(context.Context) (TranscriptStream, error) {
	return f.stream, nil
}

type fakeStream struct {
	results   chan soniox.Result
	closed    chan struct{}
	closeOnce sync.Once

	mu    sync.Mutex
	audio []byte
}

func newFakeStream() *fakeStream {
	return &fakeStream{results: make(chan soniox.Result, 16), closed: make(chan struct{})}
}

func (f *fakeStream) Send(audio []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.audio = append(f.audio, audio...)
	return nil
}

func (f *fakeStream) received() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]byte(nil), f.audio...)
}

func (f *fakeStream) CloseSend() error { return nil }

func (f *fakeStream) Recv() (soniox.Result, error) {
	select {
	case r := <-f.results:
		return r, nil
	case <-f.closed:
		return soniox.Result{}, io.EOF
	}
}

func (f *fakeStream) Close() error {
	f.closeOnce.Do(func() { close(f.closed) })
	return nil
}

// fakeTTS returns the text upper-cased as "audio". Sentences containing
// block wait for cancellation.
type fakeTTS struct {
	block   string
	started chan string
}

func (f *fakeTTS) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if f.started != nil {
		f.started <- text
	}
	if f.block != "" && strings.Contains(text, f.block) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return []byte(strings.ToUpper(text)), nil
}
