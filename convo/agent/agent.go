// Package agent turns stored conversation history into model prompts and
// drives the tool loop around the LLM client.
package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"convo/agent/tools"
	"convo/history"
	"convo/services/llm"
	"convo/utils/jsonutils"
	"convo/utils/logging"

	"go.uber.org/zap"
)

// maxToolTurns bounds the tool loop for a single user turn.
const maxToolTurns = 5

// ChatModel is the slice of the LLM client the agent needs.
type ChatModel interface {
	Chat(ctx context.Context, messages []llm.Message) (string, error)
	ChatStream(ctx context.Context, messages []llm.Message) (<-chan string, error)
}

// ImageResolver turns stored img:// refs into URLs the model backend can
// actually fetch.
type ImageResolver interface {
	ResolveImage(ctx context.Context, ref string) (string, error)
}

type Agent struct {
	model       ChatModel
	tools       *tools.Registry
	images      ImageResolver
	prompts     prompts
	maxMessages int
}

// New builds an agent over a model, a toolset, an image resolver (nil for
// text-only deployments), and the history window size (how many stored
// turns make it into the prompt).
func New(model ChatModel, reg *tools.Registry, images ImageResolver, maxMessages int) (*Agent, error) {
	if reg == nil {
		reg = tools.DefaultRegistry()
	}
	p, err := loadPrompts(reg.Describe())
	if err != nil {
		return nil, fmt.Errorf("load prompts: %w", err)
	}
	if maxMessages <= 0 {
		maxMessages = 12
	}
	return &Agent{model: model, tools: reg, images: images, prompts: p, maxMessages: maxMessages}, nil
}

type toolCall struct {
	Tool   string                 `json:"tool"`
	Params map[string]interface{} `json:"params"`
}

// Respond produces the assistant reply for the conversation so far. The
// last history record is expected to be the pending user message.
func (a *Agent) Respond(ctx context.Context, msgs []history.Message) (string, error) {
	defer logging.LogDuration(ctx, "agent_respond")()

	prompt := a.promptMessages(ctx, msgs)
	for turn := 0; turn < maxToolTurns; turn++ {
		reply, err := a.model.Chat(ctx, prompt)
		if err != nil {
			return "", err
		}

		call, ok := a.parseToolCall(reply)
		if !ok {
			return reply, nil
		}

		result, err := a.tools.Execute(ctx, call.Tool, call.Params)
		var feedback string
		if err != nil {
			feedback = fmt.Sprintf("Tool %s failed: %v", call.Tool, err)
		} else {
			feedback = fmt.Sprintf("Tool %s returned: %s", call.Tool, jsonutils.ToJSON(result))
		}
		logging.AppLogger.Info("tool executed",
			zap.String("tool", call.Tool),
			zap.Bool("ok", err == nil),
		)
		prompt = append(prompt,
			llm.Message{Role: string(history.RoleAssistant), Content: reply},
			llm.Message{Role: string(history.RoleUser), Content: feedback},
		)
	}
	return "", fmt.Errorf("agent: tool loop exceeded %d turns", maxToolTurns)
}

// RespondStream streams the reply for the conversation so far. The tool
// loop is not available on the streaming path.
func (a *Agent) RespondStream(ctx context.Context, msgs []history.Message) (<-chan string, error) {
	return a.model.ChatStream(ctx, a.promptMessages(ctx, msgs))
}

// promptMessages renders the system prompt plus the most recent window of
// stored turns, resolving image refs into fetchable URLs on the way.
func (a *Agent) promptMessages(ctx context.Context, msgs []history.Message) []llm.Message {
	if len(msgs) > a.maxMessages {
		msgs = msgs[len(msgs)-a.maxMessages:]
	}
	prompt := make([]llm.Message, 0, len(msgs)+1)
	prompt = append(prompt, llm.Message{Role: "system", Content: a.prompts.System})
	for _, m := range msgs {
		lm := llm.Message{Role: string(m.Role), Content: m.Text}
		if m.ImageRef != "" {
			lm.Images = []string{a.resolveImage(ctx, m.ImageRef)}
		}
		prompt = append(prompt, lm)
	}
	return prompt
}

// resolveImage falls back to the raw ref when no resolver is configured or
// resolution fails; the turn still goes through, text intact.
func (a *Agent) resolveImage(ctx context.Context, ref string) string {
	if a.images == nil {
		return ref
	}
	url, err := a.images.ResolveImage(ctx, ref)
	if err != nil {
		logging.ErrorLogger.Error("image resolve failed",
			zap.String("ref", ref),
			zap.Error(err),
		)
		return ref
	}
	return url
}

func (a *Agent) parseToolCall(reply string) (toolCall, bool) {
	var call toolCall
	if err := json.Unmarshal([]byte(jsonutils.ExtractJSON(reply)), &call); err != nil {
		return toolCall{}, false
	}
	if call.Tool == "" || !a.tools.Has(call.Tool) {
		return toolCall{}, false
	}
	return call, true
}
