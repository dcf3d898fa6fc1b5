package report

import "github.com/papaHasuo/daily-report-feedback/api/internal/report/domain"

// feedbackResponse は処理成功時(フィードバック自体の失敗を含む)のレスポンス。
type feedbackResponse struct {
	Success           bool                  `json:"success"`
	DocumentID        string                `json:"document_id"`
	Feedback          domain.FeedbackResult `json:"feedback"`
	HasPreviousReport bool                  `json:"has_previous_report"`
	ProcessedAt       string                `json:"processed_at"`
}

// errorResponse は検証エラー(400)と処理エラー(500)の共通形。
type errorResponse struct {
	Error string `json:"error"`
}
