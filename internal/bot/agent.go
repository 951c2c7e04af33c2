package bot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/example/spoon-voicebot/internal/tools"
	"github.com/rs/zerolog/log"
)

const maxToolRounds = 5

var ErrToolLoop = errors.New("model kept calling tools")

// Agent holds the conversation context for one call and runs the model
// with the booking tools bound.
type Agent struct {
	model einomodel.ToolCallingChatModel
	tools *tools.Handler

	mu      sync.Mutex
	history []*schema.Message
}

func NewAgent(m einomodel.ToolCallingChatModel, h *tools.Handler, systemPrompt string) (*Agent, error) {
	bound, err := m.WithTools(tools.Infos())
	if err != nil {
		return nil, fmt.Errorf("bind tools: %w", err)
	}
	return &Agent{
		model:   bound,
		tools:   h,
		history: []*schema.Message{schema.SystemMessage(systemPrompt)},
	}, nil
}

// Respond adds the user's words to the context and returns the reply text.
// The reply is not part of the context until Spoke records it.
func (a *Agent) Respond(ctx context.Context, userText string) (string, error) {
	a.append(schema.UserMessage(userText))

	for round := 0; round < maxToolRounds; round++ {
		out, err := a.model.Generate(ctx, a.snapshot())
		if err != nil {
			return "", fmt.Errorf("generate: %w", err)
		}
		if len(out.ToolCalls) == 0 {
			return strings.TrimSpace(out.Content), nil
		}

		msgs := []*schema.Message{schema.AssistantMessage(out.Content, out.ToolCalls)}
		for _, tc := range out.ToolCalls {
			msgs = append(msgs, schema.ToolMessage(a.runTool(ctx, tc), tc.ID))
		}
		a.append(msgs...)

		if err := ctx.Err(); err != nil {
			return "", err
		}
	}
	return "", ErrToolLoop
}

func (a *Agent) runTool(ctx context.Context, tc schema.ToolCall) string {
	call, err := tools.Parse(tc.Function.Name, tc.Function.Arguments)
	if err != nil {
		log.Warn().Err(err).Str("tool", tc.Function.Name).Msg("model called an unknown tool")
		return errorJSON(err)
	}
	res, err := a.tools.Handle(context.WithoutCancel(ctx), call)
	if err != nil {
		log.Error().Err(err).Str("tool", call.ToolName()).Msg("tool failed")
		return errorJSON(err)
	}
	return res.JSON()
}

// Spoke records what the caller actually heard of a reply.
func (a *Agent) Spoke(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	a.append(schema.AssistantMessage(text, nil))
}

// Messages returns a copy of the conversation so far.
func (a *Agent) Messages() []*schema.Message {
	return a.snapshot()
}

func (a *Agent) append(msgs ...*schema.Message) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.history = append(a.history, msgs...)
}

func (a *Agent) snapshot() []*schema.Message {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]*schema.Message, len(a.history))
	copy(out, a.history)
	return out
}

func errorJSON(err error) string {
	b, _ := json.Marshal(map[string]string{"error": err.Error()})
	return string(b)
}
