package application

import (
	"context"

	"github.com/papaHasuo/daily-report-feedback/api/internal/report/domain"
)

// ReportStore は日報ドキュメントコレクションへの参照・挿入ポート。
// 実装は infrastructure/mongo が提供する。
type ReportStore interface {
	// FindPrevious は beforeDate より辞書順で前の日報のうち最新の1件を返す。
	// 該当なしは (nil, nil)。
	FindPrevious(ctx context.Context, submitterEmail, beforeDate string) (*domain.StoredReport, error)
	// InsertResult はフィードバック付き結果ドキュメントを挿入する。
	InsertResult(ctx context.Context, doc domain.ResultDocument) error
}

// FeedbackClient は chat-completion API へのポート。
// 呼び出し失敗は error ではなく FeedbackResult のエラーマーカーとして表現される。
type FeedbackClient interface {
	RequestFeedback(ctx context.Context, prompt string) domain.FeedbackResult
}
