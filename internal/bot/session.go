package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"unicode"

	"github.com/example/spoon-voicebot/internal/mediastream"
	"github.com/example/spoon-voicebot/internal/metrics"
	"github.com/example/spoon-voicebot/internal/soniox"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Transport is the caller side of the pipeline.
type Transport interface {
	Read() (mediastream.Event, error)
	SendAudio(audio []byte) error
	Clear() error
	Mark(name string) error
	Close() error
}

type Transcriber interface {
	Open(ctx context.Context) (TranscriptStream, error)
}

type TranscriptStream interface {
	Send(audio []byte) error
	CloseSend() error
	Recv() (soniox.Result, error)
	Close() error
}

type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

type Hooks struct {
	OnConnected    func()
	OnDisconnected func()
}

var errCallEnded = errors.New("call ended")

// Session runs audio in -> STT -> user context -> LLM -> TTS -> audio out ->
// assistant context for a single call until the caller hangs up or ctx ends.
type Session struct {
	Transport Transport
	STT       Transcriber
	TTS       Synthesizer
	Agent     *Agent
	Hooks     Hooks
	Log       zerolog.Logger

	// MinInterruptWords is how many caller words cut the bot off mid reply.
	MinInterruptWords int

	cancel         context.CancelFunc
	disconnectOnce sync.Once

	mu          sync.Mutex
	replyCancel context.CancelFunc
	pendingMark string
	replies     int
}

func (s *Session) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.cancel = cancel
	if s.MinInterruptWords < 1 {
		s.MinInterruptWords = 1
	}

	stt, err := s.STT.Open(ctx)
	if err != nil {
		return fmt.Errorf("open transcriber: %w", err)
	}
	defer stt.Close()

	if s.Hooks.OnConnected != nil {
		s.Hooks.OnConnected()
	}

	turns := make(chan string, 4)
	g, gctx := errgroup.WithContext(ctx)

	// unblock Read and Recv once anything stops the pipeline
	go func() {
		<-gctx.Done()
		_ = s.Transport.Close()
		_ = stt.Close()
	}()

	g.Go(func() error { return s.pumpAudio(gctx, stt) })
	g.Go(func() error { return s.listen(gctx, stt, turns) })
	g.Go(func() error { return s.reply(gctx, turns) })

	err = g.Wait()
	s.disconnected()
	if errors.Is(err, errCallEnded) || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (s *Session) disconnected() {
	s.disconnectOnce.Do(func() {
		if s.Hooks.OnDisconnected != nil {
			s.Hooks.OnDisconnected()
		}
		s.cancel()
	})
}

func (s *Session) pumpAudio(ctx context.Context, stt TranscriptStream) error {
	for {
		ev, err := s.Transport.Read()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.disconnected()
			return errCallEnded
		}
		switch ev.Kind {
		case mediastream.Audio:
			if err := stt.Send(ev.Audio); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("send audio: %w", err)
			}
		case mediastream.Digit:
			s.Log.Debug().Str("digit", ev.Digit).Msg("dtmf")
		case mediastream.MarkDone:
			s.markPlayed(ev.Mark)
		case mediastream.Stop:
			_ = stt.CloseSend()
			s.disconnected()
			return errCallEnded
		}
	}
}

func (s *Session) listen(ctx context.Context, stt TranscriptStream, turns chan<- string) error {
	defer close(turns)

	var buf strings.Builder
	for {
		r, err := stt.Recv()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("transcribe: %w", err)
		}

		buf.WriteString(r.Final)
		if wordCount(r.Final)+wordCount(r.Interim) >= s.MinInterruptWords {
			s.interrupt()
		}
		if !r.EndOfTurn {
			continue
		}

		text := strings.TrimSpace(buf.String())
		buf.Reset()
		if text == "" {
			continue
		}
		s.Log.Info().Str("text", text).Msg("user turn")
		select {
		case turns <- text:
		case <-ctx.Done():
			return nil
		}
	}
}

func (s *Session) reply(ctx context.Context, turns <-chan string) error {
	for text := range turns {
		rctx, rcancel := context.WithCancel(ctx)
		s.mu.Lock()
		s.replyCancel = rcancel
		s.mu.Unlock()

		err := s.respond(rctx, text)

		s.mu.Lock()
		s.replyCancel = nil
		s.mu.Unlock()
		rcancel()

		if ctx.Err() != nil {
			return nil
		}
		if err != nil && !errors.Is(err, context.Canceled) {
			s.Log.Error().Err(err).Msg("reply failed")
		}
	}
	return nil
}

func (s *Session) respond(ctx context.Context, userText string) error {
	text, err := s.Agent.Respond(ctx, userText)
	if err != nil {
		return err
	}
	if text == "" {
		return nil
	}

	var spoken []string
	defer func() { s.Agent.Spoke(strings.Join(spoken, " ")) }()

	for _, sentence := range splitSentences(text) {
		audio, err := s.TTS.Synthesize(ctx, sentence)
		if err != nil {
			return fmt.Errorf("synthesize: %w", err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := s.Transport.SendAudio(audio); err != nil {
			return fmt.Errorf("send audio: %w", err)
		}
		spoken = append(spoken, sentence)
	}

	s.mu.Lock()
	s.replies++
	mark := fmt.Sprintf("reply-%d", s.replies)
	s.pendingMark = mark
	s.mu.Unlock()
	s.Log.Info().Str("text", text).Msg("bot reply")
	return s.Transport.Mark(mark)
}

// interrupt stops the current reply and drops audio Twilio has not played.
func (s *Session) interrupt() {
	s.mu.Lock()
	cancel := s.replyCancel
	speaking := cancel != nil || s.pendingMark != ""
	s.replyCancel = nil
	s.pendingMark = ""
	s.mu.Unlock()

	if !speaking {
		return
	}
	if cancel != nil {
		cancel()
	}
	metrics.Interruptions.Inc()
	s.Log.Debug().Msg("caller interrupted bot")
	if err := s.Transport.Clear(); err != nil {
		s.Log.Warn().Err(err).Msg("clear audio")
	}
}

func (s *Session) markPlayed(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pendingMark == name {
		s.pendingMark = ""
	}
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}

// splitSentences breaks a reply at sentence punctuation so speech can start
// before the whole reply is synthesized.
func splitSentences(text string) []string {
	var out []string
	start := 0
	runes := []rune(text)
	for i, r := range runes {
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		if i+1 < len(runes) && !unicode.IsSpace(runes[i+1]) {
			continue
		}
		if s := strings.TrimSpace(string(runes[start : i+1])); s != "" {
			out = append(out, s)
		}
		start = i + 1
	}
	if s := strings.TrimSpace(string(runes[start:])); s != "" {
		out = append(out, s)
	}
	return out
}
