package llm

import (
	"context"
	"encoding/json"
	"io"

	httputils "convo/utils/http"
	"convo/utils/logging"

	"go.uber.org/zap"
)

// Client talks to an Ollama-compatible chat endpoint.
type Client struct {
	baseURL string
	model   string
}

func NewClient(baseURL, model string) *Client {
	return &Client{baseURL: baseURL, model: model}
}

type ChatRequest struct {
	Model    string      `json:"model"`
	Messages []Message   `json:"messages"`
	Stream   bool        `json:"stream"`
	Options  interface{} `json:"options,omitempty"`
}

// Message is one prompt turn. Images travel as attached refs the backend
// resolves; text-only turns leave Images empty.
type Message struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"`
}

type ChatResponse struct {
	Message Message `json:"message"`
	Done    bool    `json:"done"`
}

// Chat runs one blocking completion over the given prompt turns.
func (c *Client) Chat(ctx context.Context, messages []Message) (string, error) {
	defer logging.LogDuration(ctx, "llm_chat")()
	var resp ChatResponse
	req := ChatRequest{Model: c.model, Messages: messages, Stream: false}
	if err := httputils.PostJSON(ctx, c.baseURL+"/chat", req, &resp); err != nil {
		return "", err
	}
	return resp.Message.Content, nil
}

// ChatStream runs a streaming completion and emits content chunks on the
// returned channel until the model signals done or ctx is cancelled.
func (c *Client) ChatStream(ctx context.Context, messages []Message) (<-chan string, error) {
	defer logging.LogDuration(ctx, "llm_chat_stream")()

	req := ChatRequest{Model: c.model, Messages: messages, Stream: true}
	body, err := httputils.PostStream(ctx, c.baseURL+"/chat", req)
	if err != nil {
		return nil, err
	}

	ch := make(chan string)

	go func() {
		defer func() {
			close(ch)
			body.Close()
		}()

		decoder := json.NewDecoder(body)
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			var chunk ChatResponse
			if err := decoder.Decode(&chunk); err != nil {
				if err != io.EOF {
					logging.ErrorLogger.Error("llm stream decode error", zap.Error(err))
				}
				return
			}
			if chunk.Done {
				return
			}
			select {
			case ch <- chunk.Message.Content:
			case <-ctx.Done():
				return
			}
		}
	}()

	return ch, nil
}
