package routes

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"convo/config"
	"convo/controllers"
	"convo/history"
	"convo/middlewares"
	"convo/utils/types"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
)

// statusForErr maps history-store errors onto HTTP statuses.
func statusForErr(err error) int {
	switch {
	case errors.Is(err, history.ErrInvalidSession), errors.Is(err, history.ErrInvalidMessage):
		return http.StatusBadRequest
	case errors.Is(err, history.ErrBackendUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func AIRoutes(chatCtrl *controllers.ChatController, uploadCtrl *controllers.UploadController, cfg config.Config) chi.Router {
	r := chi.NewRouter()
	r.Group(func(gr chi.Router) {
		gr.Use(middlewares.AuthMiddleware(cfg))

		// POST /ai/chat : one conversation turn
		gr.Post("/chat", func(w http.ResponseWriter, r *http.Request) {
			var req types.ChatRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			userID := r.Context().Value(middlewares.UserIDKey).(int)
			resp, err := chatCtrl.Chat(r.Context(), userID, req)
			if err != nil {
				http.Error(w, err.Error(), statusForErr(err))
				return
			}
			json.NewEncoder(w).Encode(resp)
		})

		// GET /ai/session/{session_id}/messages : stored history in order
		gr.Get("/session/{session_id}/messages", func(w http.ResponseWriter, r *http.Request) {
			userID := r.Context().Value(middlewares.UserIDKey).(int)
			sessionID := chi.URLParam(r, "session_id")
			msgs, err := chatCtrl.Messages(r.Context(), userID, sessionID)
			if err != nil {
				http.Error(w, err.Error(), statusForErr(err))
				return
			}
			json.NewEncoder(w).Encode(msgs)
		})

		// DELETE /ai/session/{session_id} : clear one session
		gr.Delete("/session/{session_id}", func(w http.ResponseWriter, r *http.Request) {
			userID := r.Context().Value(middlewares.UserIDKey).(int)
			sessionID := chi.URLParam(r, "session_id")
			if err := chatCtrl.ClearSession(r.Context(), userID, sessionID); err != nil {
				http.Error(w, err.Error(), statusForErr(err))
				return
			}
			w.WriteHeader(http.StatusNoContent)
		})

		// POST /ai/upload : store a chat image, get back its ref
		gr.Post("/upload", func(w http.ResponseWriter, r *http.Request) {
			file, header, err := r.FormFile("image")
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			defer file.Close()
			resp, err := uploadCtrl.Upload(r.Context(), header.Header.Get("Content-Type"), header.Size, file)
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			json.NewEncoder(w).Encode(resp)
		})
	})

	// GET /ai/ws : streaming chat; the first frame carries the token
	r.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusInternalError, "internal error")

		ctx := r.Context()
		typ, data, err := conn.Read(ctx)
		if err != nil {
			return
		}
		if typ != websocket.MessageText {
			conn.Close(websocket.StatusUnsupportedData, "unsupported data")
			return
		}
		var input struct {
			Token       string            `json:"token"`
			ChatRequest types.ChatRequest `json:"chat_request"`
		}
		if err := json.Unmarshal(data, &input); err != nil {
			conn.Write(ctx, websocket.MessageText, []byte(`{"error":"invalid json"}`))
			return
		}
		userID, err := middlewares.ParseToken(input.Token, cfg.JWTSecret)
		if err != nil {
			conn.Write(ctx, websocket.MessageText, []byte(`{"error":"invalid token"}`))
			conn.Close(websocket.StatusPolicyViolation, "invalid token")
			return
		}

		ch, errCh := chatCtrl.ChatStream(ctx, userID, input.ChatRequest)
		go func() {
			if err := <-errCh; err != nil {
				conn.Write(ctx, websocket.MessageText, []byte(`{"error":"`+err.Error()+`"}`))
				conn.Close(websocket.StatusInternalError, "stream error")
			}
		}()

		for chunk := range ch {
			if err := conn.Write(ctx, websocket.MessageText, []byte(chunk)); err != nil {
				return
			}
		}
		conn.Close(websocket.StatusNormalClosure, "")
	})
	return r
}
