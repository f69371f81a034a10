package types

// ChatRequest is the inbound payload for one conversation turn.
type ChatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
	ImageRef  string `json:"image_ref,omitempty"`
}

type ChatResponse struct {
	Response  string `json:"response"`
	SessionID string `json:"session_id"`
}

type LoginRequest struct {
	Username string `json:"username"`
}

// SearchResult is one hit from the web search tool.
type SearchResult struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// UploadResponse carries the opaque image ref a client attaches to its
// next chat message.
type UploadResponse struct {
	ImageRef string `json:"image_ref"`
}
