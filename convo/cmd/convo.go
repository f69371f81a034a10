// Command-line chat client: talks to the model through the same agent and
// history store as the HTTP service, using the durable file backend.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"convo/agent"
	"convo/config"
	"convo/history"
	"convo/services/llm"
	"convo/utils/logging"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func main() {
	logging.InitLogger()
	cfg := config.LoadConfig()

	sessionID := fmt.Sprintf("cli-%s", uuid.New().String()[:8])
	st, err := history.Open(
		history.Session{UserID: "cli", SessionID: sessionID},
		history.Options{Backend: history.BackendFile, Dir: cfg.HistoryDir},
	)
	if err != nil {
		fmt.Fprintln(os.Stderr, "history init error:", err)
		os.Exit(1)
	}

	model := llm.NewClient(cfg.LLMURL, cfg.ModelName)
	ag, err := agent.New(model, nil, nil, cfg.MaxMessages)
	if err != nil {
		fmt.Fprintln(os.Stderr, "agent init error:", err)
		os.Exit(1)
	}

	logging.AppLogger.Info("cli session started", zap.String("sessionID", sessionID))
	fmt.Println("Session:", sessionID)
	fmt.Println("Type your message, or 'exit' to quit.")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "exit" || line == "quit" {
			break
		}
		if line == "" {
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		reply, err := runTurn(ctx, st, ag, line)
		cancel()
		if err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			continue
		}
		fmt.Println(reply)
	}
}

func runTurn(ctx context.Context, st *history.Store, ag *agent.Agent, input string) (string, error) {
	if err := st.AddUserMessage(ctx, input, ""); err != nil {
		return "", err
	}
	msgs, err := st.Messages(ctx)
	if err != nil {
		return "", err
	}
	reply, err := ag.Respond(ctx, msgs)
	if err != nil {
		return "", err
	}
	if err := st.AddAIMessage(ctx, reply); err != nil {
		return "", err
	}
	return reply, nil
}
