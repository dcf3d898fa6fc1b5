package copilot

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, apiURL string) *Client {
	t.Helper()
	client, err := NewClient(Config{
		Logger:       log.New(io.Discard, "", 0),
		APIURL:       apiURL,
		Model:        "openai/gpt-4o",
		SystemPrompt: "あなたはメンターです",
		MaxTokens:    1000,
		Temperature:  0.7,
		Token:        "ghp_test",
	})
	require.NoError(t, err)
	return client
}

func completionBody(content string) string {
	body, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"role": "assistant", "content": content}},
		},
	})
	return string(body)
}

func TestNewClientRequiresToken(t *testing.T) {
	_, err := NewClient(Config{Logger: log.New(io.Discard, "", 0)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GITHUB_TOKEN")
}

func TestRequestFeedbackStructuredResponse(t *testing.T) {
	var captured chatCompletionRequest
	var authHeader string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, completionBody(`{"praise":"良い視点です","advice":"早寝を"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	result := client.RequestFeedback(context.Background(), "今日の日報です")

	assert.False(t, result.IsError())
	assert.Equal(t, "良い視点です", result["praise"])
	assert.Equal(t, "早寝を", result["advice"])

	// リクエストは設定どおりの生成パラメータと2つのメッセージを運ぶ
	assert.Equal(t, "Bearer ghp_test", authHeader)
	assert.Equal(t, "openai/gpt-4o", captured.Model)
	assert.Equal(t, 1000, captured.MaxTokens)
	assert.InDelta(t, 0.7, captured.Temperature, 0.0001)
	require.Len(t, captured.Messages, 2)
	assert.Equal(t, "system", captured.Messages[0].Role)
	assert.Equal(t, "あなたはメンターです", captured.Messages[0].Content)
	assert.Equal(t, "user", captured.Messages[1].Role)
	assert.Equal(t, "今日の日報です", captured.Messages[1].Content)
}

func TestRequestFeedbackPlainTextFallsBack(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, completionBody("今日もよく頑張りました！明日は早めに休みましょう。"))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	result := client.RequestFeedback(context.Background(), "prompt")

	assert.False(t, result.IsError())
	// 構造化できない応答は本文そのまま feedback_text に入る
	assert.Equal(t, "今日もよく頑張りました！明日は早めに休みましょう。", result["feedback_text"])
}

func TestRequestFeedbackNonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	result := client.RequestFeedback(context.Background(), "prompt")

	assert.True(t, result.IsError())
	assert.Equal(t, "API呼び出しエラー: 429", result["error"])
}

func TestRequestFeedbackTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	server.Close()

	client := newTestClient(t, server.URL)
	result := client.RequestFeedback(context.Background(), "prompt")

	assert.True(t, result.IsError())
}

func TestRequestFeedbackEmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, `{"choices":[]}`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	result := client.RequestFeedback(context.Background(), "prompt")

	assert.True(t, result.IsError())
}
