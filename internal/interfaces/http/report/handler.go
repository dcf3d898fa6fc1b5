package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/papaHasuo/daily-report-feedback/api/internal/interfaces/http/common"
	"github.com/papaHasuo/daily-report-feedback/api/internal/report/application"
	"github.com/papaHasuo/daily-report-feedback/api/internal/report/domain"
)

// Processor は日報1件を処理するアプリケーションサービスのポート。
type Processor interface {
	Process(ctx context.Context, submission domain.Submission) (application.Result, error)
}

// Handler wires the daily-report feedback endpoint to the processing pipeline.
type Handler struct {
	logger    *log.Logger
	processor Processor
}

// Config defines dependencies required by Handler.
type Config struct {
	Logger    *log.Logger
	Processor Processor
}

// NewHandler constructs the report HTTP handler.
func NewHandler(cfg Config) *Handler {
	return &Handler{logger: cfg.Logger, processor: cfg.Processor}
}

// Register mounts the report routes onto the router.
func (h *Handler) Register(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.With(authMiddleware).Post("/daily_report_feedback", h.feedbackHandler())
}

// feedbackHandler は日報を受け付けてフィードバック生成パイプラインを実行する。
// 検証は (1) JSON として解釈できるか (2) data/metadata の存在 (3) 提出者と日付の
// 非空、の順に行い、最初の失敗で副作用なしに 400 を返す。
func (h *Handler) feedbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.logger.Printf("日報フィードバック処理開始")

		body, err := io.ReadAll(r.Body)
		if err != nil {
			common.WriteJSON(h.logger, w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("無効なJSONデータ: %v", err)})
			return
		}
		if len(bytes.TrimSpace(body)) == 0 {
			common.WriteJSON(h.logger, w, http.StatusBadRequest, errorResponse{Error: "JSONデータが必要です"})
			return
		}

		var payload map[string]any
		if err := json.Unmarshal(body, &payload); err != nil {
			common.WriteJSON(h.logger, w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("無効なJSONデータ: %v", err)})
			return
		}
		if payload == nil {
			common.WriteJSON(h.logger, w, http.StatusBadRequest, errorResponse{Error: "JSONデータが必要です"})
			return
		}

		submission, missing := parseSubmission(payload)
		if missing != "" {
			common.WriteJSON(h.logger, w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("必須フィールドが不足: %s", missing)})
			return
		}

		if submission.SubmitterEmail() == "" || submission.SubmissionDate() == "" {
			common.WriteJSON(h.logger, w, http.StatusBadRequest, errorResponse{Error: "送信者メールアドレスまたは送信日付が不足しています"})
			return
		}

		result, err := h.processor.Process(r.Context(), submission)
		if err != nil {
			h.logger.Printf("日報フィードバック処理エラー: %v", err)
			common.WriteJSON(h.logger, w, http.StatusInternalServerError, errorResponse{Error: fmt.Sprintf("処理中にエラーが発生しました: %v", err)})
			return
		}

		common.WriteJSON(h.logger, w, http.StatusOK, feedbackResponse{
			Success:           true,
			DocumentID:        result.DocumentID,
			Feedback:          result.Feedback,
			HasPreviousReport: result.HasPrevious,
			ProcessedAt:       result.ProcessedAt.Format(time.RFC3339),
		})
	}
}

// parseSubmission は data / metadata の存在をこの順で検証し、
// 欠けている最初のキー名を返す。両方あれば Submission に詰め替える。
func parseSubmission(payload map[string]any) (domain.Submission, string) {
	for _, field := range []string{"data", "metadata"} {
		if _, ok := payload[field]; !ok {
			return domain.Submission{}, field
		}
	}
	return domain.Submission{
		Metadata: asObject(payload["metadata"]),
		Data:     asObject(payload["data"]),
	}, ""
}

// asObject はセクションがオブジェクトでない場合に nil へ落とす。
// nil セクションは後段の非空検証で 400 になる。
func asObject(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}
