package openai

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

// openaiEmbeddingResponse mirrors the OpenAI-compatible API embedding response.
type openaiEmbeddingResponse struct {
	Object string          `json:"object"`
	Data   []embeddingData `json:"data"`
	Model  string          `json:"model"`
	Usage  struct {
		PromptTokens int `json:"prompt_tokens"`
		TotalTokens  int `json:"total_tokens"`
	} `json:"usage"`
}

type embeddingData struct {
	Object    string    `json:"object"`
	Embedding []float32 `json:"embedding"`
	Index     int       `json:"index"`
}

// chatResponse mirrors the minimal chat completion response.
type chatResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
}

type chatChoice struct {
	Index   int `json:"index"`
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	FinishReason string `json:"finish_reason"`
}

func newJSONServer(t *testing.T, status int, body any, inspect func(r *http.Request)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if inspect != nil {
			inspect(r)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func embeddingBody(vec []float32, tokens int) openaiEmbeddingResponse {
	resp := openaiEmbeddingResponse{Object: "list", Model: "test-model"}
	resp.Data = append(resp.Data, embeddingData{Object: "embedding", Embedding: vec})
	resp.Usage.PromptTokens = tokens
	resp.Usage.TotalTokens = tokens
	return resp
}

func chatBody(content string) chatResponse {
	c := chatChoice{FinishReason: "stop"}
	c.Message.Role = "assistant"
	c.Message.Content = content
	return chatResponse{ID: "cmpl-1", Object: "chat.completion", Model: "test-chat", Choices: []chatChoice{c}}
}
