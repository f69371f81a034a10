package controllers

import (
	"context"
	"errors"
	"testing"

	"convo/agent"
	"convo/config"
	"convo/history"
	"convo/services/llm"
	"convo/utils/logging"
	"convo/utils/types"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type cannedModel struct {
	reply string
}

func (m *cannedModel) Chat(_ context.Context, _ []llm.Message) (string, error) {
	return m.reply, nil
}

func (m *cannedModel) ChatStream(_ context.Context, _ []llm.Message) (<-chan string, error) {
	ch := make(chan string, 1)
	ch <- m.reply
	close(ch)
	return ch, nil
}

func newTestChatController(t *testing.T, cfg config.Config, reply string) *ChatController {
	t.Helper()
	logging.InitLogger()
	ag, err := agent.New(&cannedModel{reply: reply}, nil, nil, cfg.MaxMessages)
	if err != nil {
		t.Fatalf("new agent: %v", err)
	}
	var rdb *redis.Client
	if cfg.HistoryBackend == history.BackendRedis {
		mr := miniredis.RunT(t)
		rdb = redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { rdb.Close() })
	}
	return NewChatController(cfg, ag, rdb)
}

func TestChatPersistsBothTurns(t *testing.T) {
	for _, backend := range []string{history.BackendFile, history.BackendRedis} {
		t.Run(backend, func(t *testing.T) {
			cfg := config.Config{
				HistoryBackend: backend,
				HistoryDir:     t.TempDir(),
				TTLSeconds:     3600,
				MaxMessages:    12,
			}
			ctrl := newTestChatController(t, cfg, "4")
			ctx := context.Background()

			resp, err := ctrl.Chat(ctx, 7, types.ChatRequest{SessionID: "s1", Message: "What is 2+2?"})
			if err != nil {
				t.Fatalf("chat: %v", err)
			}
			if resp.Response != "4" {
				t.Errorf("got reply %q", resp.Response)
			}
			if resp.SessionID != "s1" {
				t.Errorf("got session %q", resp.SessionID)
			}

			msgs, err := ctrl.Messages(ctx, 7, "s1")
			if err != nil {
				t.Fatalf("messages: %v", err)
			}
			if len(msgs) != 2 {
				t.Fatalf("expected 2 stored records, got %d", len(msgs))
			}
			if msgs[0].Role != history.RoleUser || msgs[0].Text != "What is 2+2?" {
				t.Errorf("unexpected user record: %+v", msgs[0])
			}
			if msgs[1].Role != history.RoleAssistant || msgs[1].Text != "4" {
				t.Errorf("unexpected assistant record: %+v", msgs[1])
			}
		})
	}
}

func TestChatGeneratesSessionID(t *testing.T) {
	cfg := config.Config{HistoryBackend: history.BackendFile, HistoryDir: t.TempDir(), MaxMessages: 12}
	ctrl := newTestChatController(t, cfg, "hello")

	resp, err := ctrl.Chat(context.Background(), 7, types.ChatRequest{Message: "hi"})
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if resp.SessionID == "" {
		t.Error("expected a generated session id")
	}
}

func TestChatRejectsEmptyMessage(t *testing.T) {
	cfg := config.Config{HistoryBackend: history.BackendFile, HistoryDir: t.TempDir(), MaxMessages: 12}
	ctrl := newTestChatController(t, cfg, "unused")

	_, err := ctrl.Chat(context.Background(), 7, types.ChatRequest{SessionID: "s1"})
	if !errors.Is(err, history.ErrInvalidMessage) {
		t.Errorf("expected ErrInvalidMessage, got %v", err)
	}
}

func TestClearSession(t *testing.T) {
	cfg := config.Config{HistoryBackend: history.BackendFile, HistoryDir: t.TempDir(), MaxMessages: 12}
	ctrl := newTestChatController(t, cfg, "ok")
	ctx := context.Background()

	if _, err := ctrl.Chat(ctx, 7, types.ChatRequest{SessionID: "s1", Message: "hi"}); err != nil {
		t.Fatalf("chat: %v", err)
	}
	if err := ctrl.ClearSession(ctx, 7, "s1"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	msgs, err := ctrl.Messages(ctx, 7, "s1")
	if err != nil {
		t.Fatalf("messages: %v", err)
	}
	if len(msgs) != 0 {
		t.Errorf("expected empty history after clear, got %d", len(msgs))
	}
}

func TestChatStreamPersistsFullReply(t *testing.T) {
	cfg := config.Config{HistoryBackend: history.BackendFile, HistoryDir: t.TempDir(), MaxMessages: 12}
	ctrl := newTestChatController(t, cfg, "streamed reply")
	ctx := context.Background()

	ch, errCh := ctrl.ChatStream(ctx, 7, types.ChatRequest{SessionID: "s1", Message: "hi"})
	var full string
	for chunk := range ch {
		full += chunk
	}
	if err := <-errCh; err != nil {
		t.Fatalf("stream: %v", err)
	}
	if full != "streamed reply" {
		t.Errorf("got %q", full)
	}

	msgs, err := ctrl.Messages(ctx, 7, "s1")
	if err != nil {
		t.Fatalf("messages: %v", err)
	}
	if len(msgs) != 2 || msgs[1].Text != "streamed reply" {
		t.Errorf("full reply not persisted: %+v", msgs)
	}
}
