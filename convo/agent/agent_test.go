package agent

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"convo/history"
	"convo/services/llm"
	"convo/utils/logging"
)

func TestMain(m *testing.M) {
	logging.InitLogger()
	os.Exit(m.Run())
}

// scriptedModel replays canned replies and records the prompts it saw.
type scriptedModel struct {
	replies []string
	calls   [][]llm.Message
}

func (m *scriptedModel) Chat(_ context.Context, messages []llm.Message) (string, error) {
	m.calls = append(m.calls, messages)
	reply := m.replies[0]
	if len(m.replies) > 1 {
		m.replies = m.replies[1:]
	}
	return reply, nil
}

func (m *scriptedModel) ChatStream(ctx context.Context, messages []llm.Message) (<-chan string, error) {
	m.calls = append(m.calls, messages)
	ch := make(chan string, 1)
	ch <- m.replies[0]
	close(ch)
	return ch, nil
}

func TestRespondPlainReply(t *testing.T) {
	model := &scriptedModel{replies: []string{"4"}}
	a, err := New(model, nil, nil, 12)
	if err != nil {
		t.Fatalf("new agent: %v", err)
	}

	reply, err := a.Respond(context.Background(), []history.Message{
		{Role: history.RoleUser, Text: "What is 2+2?"},
	})
	if err != nil {
		t.Fatalf("respond: %v", err)
	}
	if reply != "4" {
		t.Errorf("got %q, want %q", reply, "4")
	}
	if len(model.calls) != 1 {
		t.Fatalf("expected 1 model call, got %d", len(model.calls))
	}
	if model.calls[0][0].Role != "system" {
		t.Errorf("first prompt turn should be the system prompt, got %q", model.calls[0][0].Role)
	}
}

func TestRespondRunsTool(t *testing.T) {
	model := &scriptedModel{replies: []string{
		`{"tool": "add", "params": {"a": 2, "b": 2}}`,
		"2+2 is 4",
	}}
	a, err := New(model, nil, nil, 12)
	if err != nil {
		t.Fatalf("new agent: %v", err)
	}

	reply, err := a.Respond(context.Background(), []history.Message{
		{Role: history.RoleUser, Text: "What is 2+2? Use a tool."},
	})
	if err != nil {
		t.Fatalf("respond: %v", err)
	}
	if reply != "2+2 is 4" {
		t.Errorf("got %q", reply)
	}
	if len(model.calls) != 2 {
		t.Fatalf("expected 2 model calls, got %d", len(model.calls))
	}
	// The second prompt must carry the tool result back to the model.
	last := model.calls[1][len(model.calls[1])-1]
	if last.Role != "user" || !strings.Contains(last.Content, "add") || !strings.Contains(last.Content, "4") {
		t.Errorf("tool feedback turn missing or wrong: %+v", last)
	}
}

func TestRespondToolLoopBounded(t *testing.T) {
	model := &scriptedModel{replies: []string{`{"tool": "add", "params": {"a": 1, "b": 1}}`}}
	a, err := New(model, nil, nil, 12)
	if err != nil {
		t.Fatalf("new agent: %v", err)
	}
	if _, err := a.Respond(context.Background(), []history.Message{
		{Role: history.RoleUser, Text: "loop forever"},
	}); err == nil {
		t.Error("expected error when the model never stops calling tools")
	}
	if len(model.calls) != maxToolTurns {
		t.Errorf("expected %d model calls, got %d", maxToolTurns, len(model.calls))
	}
}

// fakeResolver maps known refs to URLs and fails on everything else.
type fakeResolver struct {
	urls map[string]string
}

func (r *fakeResolver) ResolveImage(_ context.Context, ref string) (string, error) {
	url, ok := r.urls[ref]
	if !ok {
		return "", errors.New("unknown ref")
	}
	return url, nil
}

func TestRespondResolvesImageRefs(t *testing.T) {
	model := &scriptedModel{replies: []string{"a cat"}}
	resolver := &fakeResolver{urls: map[string]string{
		"img://images/abc": "http://storage.local/images/abc?sig=xyz",
	}}
	a, err := New(model, nil, resolver, 12)
	if err != nil {
		t.Fatalf("new agent: %v", err)
	}

	if _, err := a.Respond(context.Background(), []history.Message{
		{Role: history.RoleUser, Text: "what is in this picture?", ImageRef: "img://images/abc"},
	}); err != nil {
		t.Fatalf("respond: %v", err)
	}

	prompt := model.calls[0]
	last := prompt[len(prompt)-1]
	if len(last.Images) != 1 || last.Images[0] != "http://storage.local/images/abc?sig=xyz" {
		t.Errorf("ref not resolved to a fetchable URL: %+v", last)
	}
}

func TestRespondKeepsRefWhenResolutionFails(t *testing.T) {
	model := &scriptedModel{replies: []string{"ok"}}
	a, err := New(model, nil, &fakeResolver{}, 12)
	if err != nil {
		t.Fatalf("new agent: %v", err)
	}

	if _, err := a.Respond(context.Background(), []history.Message{
		{Role: history.RoleUser, Text: "look", ImageRef: "img://missing"},
	}); err != nil {
		t.Fatalf("respond: %v", err)
	}

	// The turn still goes through with the raw ref in place.
	prompt := model.calls[0]
	last := prompt[len(prompt)-1]
	if len(last.Images) != 1 || last.Images[0] != "img://missing" {
		t.Errorf("expected raw ref fallback, got %+v", last)
	}
}

func TestPromptWindowAndImages(t *testing.T) {
	model := &scriptedModel{replies: []string{"ok"}}
	a, err := New(model, nil, nil, 2)
	if err != nil {
		t.Fatalf("new agent: %v", err)
	}

	msgs := []history.Message{
		{Role: history.RoleUser, Text: "old and forgotten"},
		{Role: history.RoleAssistant, Text: "noted"},
		{Role: history.RoleUser, Text: "what is in this picture?", ImageRef: "img://abc"},
	}
	if _, err := a.Respond(context.Background(), msgs); err != nil {
		t.Fatalf("respond: %v", err)
	}

	prompt := model.calls[0]
	// system + 2 windowed turns
	if len(prompt) != 3 {
		t.Fatalf("expected 3 prompt turns, got %d", len(prompt))
	}
	if prompt[1].Content != "noted" {
		t.Errorf("window should drop the oldest turn, got %q first", prompt[1].Content)
	}
	last := prompt[len(prompt)-1]
	if len(last.Images) != 1 || last.Images[0] != "img://abc" {
		t.Errorf("image ref not forwarded: %+v", last)
	}
}
