package controllers

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"convo/agent"
	"convo/config"
	"convo/history"
	"convo/utils/logging"
	"convo/utils/types"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ChatController drives one conversation turn: append the user message,
// read the history, ask the agent, append the reply.
type ChatController struct {
	cfg   config.Config
	agent *agent.Agent
	rdb   *redis.Client
}

func NewChatController(cfg config.Config, ag *agent.Agent, rdb *redis.Client) *ChatController {
	return &ChatController{cfg: cfg, agent: ag, rdb: rdb}
}

// storeFor binds a history store for the caller's session using the
// configured backend.
func (c *ChatController) storeFor(userID int, sessionID string) (*history.Store, error) {
	return history.Open(
		history.Session{UserID: strconv.Itoa(userID), SessionID: sessionID},
		history.Options{
			Backend: c.cfg.HistoryBackend,
			Dir:     c.cfg.HistoryDir,
			Client:  c.rdb,
			TTL:     time.Duration(c.cfg.TTLSeconds) * time.Second,
		},
	)
}

func (c *ChatController) Chat(ctx context.Context, userID int, req types.ChatRequest) (*types.ChatResponse, error) {
	defer logging.LogDuration(ctx, "chat_turn")()

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.New().String()
	}
	st, err := c.storeFor(userID, sessionID)
	if err != nil {
		return nil, err
	}
	if err := st.AddUserMessage(ctx, req.Message, req.ImageRef); err != nil {
		return nil, err
	}
	msgs, err := st.Messages(ctx)
	if err != nil {
		return nil, err
	}
	reply, err := c.agent.Respond(ctx, msgs)
	if err != nil {
		return nil, err
	}
	if err := st.AddAIMessage(ctx, reply); err != nil {
		return nil, err
	}
	logging.AppLogger.Info("chat turn complete",
		zap.Int("user_id", userID),
		zap.String("session_id", sessionID),
		zap.Int("history_len", len(msgs)+1),
	)
	return &types.ChatResponse{Response: reply, SessionID: sessionID}, nil
}

// ChatStream streams the reply chunk by chunk and persists the full reply
// once the stream ends.
func (c *ChatController) ChatStream(ctx context.Context, userID int, req types.ChatRequest) (chan string, chan error) {
	ch := make(chan string)
	errCh := make(chan error, 1)

	fail := func(err error) (chan string, chan error) {
		errCh <- err
		close(ch)
		close(errCh)
		return ch, errCh
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.New().String()
	}
	st, err := c.storeFor(userID, sessionID)
	if err != nil {
		return fail(err)
	}
	if err := st.AddUserMessage(ctx, req.Message, req.ImageRef); err != nil {
		return fail(err)
	}
	msgs, err := st.Messages(ctx)
	if err != nil {
		return fail(err)
	}
	stream, err := c.agent.RespondStream(ctx, msgs)
	if err != nil {
		return fail(err)
	}

	go func() {
		defer close(ch)
		defer close(errCh)
		var full string
		for chunk := range stream {
			full += chunk
			select {
			case ch <- chunk:
			case <-ctx.Done():
				return
			}
		}
		if full == "" {
			errCh <- fmt.Errorf("empty reply from model")
			return
		}
		saveCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := st.AddAIMessage(saveCtx, full); err != nil {
			errCh <- err
		}
	}()
	return ch, errCh
}

// Messages returns the session's stored records in order.
func (c *ChatController) Messages(ctx context.Context, userID int, sessionID string) ([]history.Message, error) {
	st, err := c.storeFor(userID, sessionID)
	if err != nil {
		return nil, err
	}
	return st.Messages(ctx)
}

// ClearSession wipes the session's history.
func (c *ChatController) ClearSession(ctx context.Context, userID int, sessionID string) error {
	st, err := c.storeFor(userID, sessionID)
	if err != nil {
		return err
	}
	return st.Clear(ctx)
}
