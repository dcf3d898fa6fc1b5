package copilot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/papaHasuo/daily-report-feedback/api/internal/report/domain"
)

// chat-completion 呼び出しの上限。これを超えたらトランスポート障害と同じ扱い。
const requestTimeout = 30 * time.Second

// Client は GitHub Copilot の chat-completion エンドポイントを呼び出し、
// 応答を FeedbackResult へ正規化するクライアント。
type Client struct {
	httpClient   *http.Client
	logger       *log.Logger
	apiURL       string
	model        string
	systemPrompt string
	maxTokens    int
	temperature  float64
	token        string
}

// Config defines dependencies required by Client.
type Config struct {
	Logger       *log.Logger
	APIURL       string
	Model        string
	SystemPrompt string
	MaxTokens    int
	Temperature  float64
	Token        string
	HTTPClient   *http.Client
}

// NewClient は Bearer トークンを必須として構築する。
// トークン欠落は実行時ではなく構築時(=プロセス起動時)に失敗させる。
func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("GITHUB_TOKEN環境変数が設定されていません")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: requestTimeout}
	}

	return &Client{
		httpClient:   httpClient,
		logger:       cfg.Logger,
		apiURL:       cfg.APIURL,
		model:        cfg.Model,
		systemPrompt: cfg.SystemPrompt,
		maxTokens:    cfg.MaxTokens,
		temperature:  cfg.Temperature,
		token:        cfg.Token,
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// RequestFeedback は合成済みプロンプトを送信し、応答を正規化して返す。
// どんな失敗でも error は返さず、エラーマーカー入りの FeedbackResult に落とす。
// リトライはしない。1リクエストにつき外部呼び出しは1回だけ。
func (c *Client) RequestFeedback(ctx context.Context, prompt string) domain.FeedbackResult {
	payload := chatCompletionRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: c.systemPrompt},
			{Role: "user", Content: prompt},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		c.logger.Printf("GitHub Copilot API リクエスト生成エラー: %v", err)
		return domain.ErrorFeedback(err.Error())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		c.logger.Printf("GitHub Copilot API リクエスト生成エラー: %v", err)
		return domain.ErrorFeedback(err.Error())
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Printf("GitHub Copilot API 呼び出しエラー: %v", err)
		return domain.ErrorFeedback(err.Error())
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Printf("GitHub Copilot API 応答読み取りエラー: %v", err)
		return domain.ErrorFeedback(err.Error())
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Printf("GitHub Copilot API エラー: %d - %s", resp.StatusCode, string(raw))
		return domain.ErrorFeedback(fmt.Sprintf("API呼び出しエラー: %d", resp.StatusCode))
	}

	var completion chatCompletionResponse
	if err := json.Unmarshal(raw, &completion); err != nil {
		c.logger.Printf("GitHub Copilot API 応答解析エラー: %v", err)
		return domain.ErrorFeedback(err.Error())
	}
	if len(completion.Choices) == 0 {
		c.logger.Printf("GitHub Copilot API 応答に choices が含まれていません")
		return domain.ErrorFeedback("API応答にchoicesが含まれていません")
	}

	content := completion.Choices[0].Message.Content

	// 応答本文を JSON オブジェクトとして解釈できれば構造化フィードバック、
	// できなければ本文そのままの feedback_text にフォールバックする。
	var structured map[string]any
	if err := json.Unmarshal([]byte(content), &structured); err != nil || structured == nil {
		return domain.TextFeedback(content)
	}
	return domain.StructuredFeedback(structured)
}
