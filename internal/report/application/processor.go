package application

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/papaHasuo/daily-report-feedback/api/internal/report/domain"
)

// Processor は日報1件分の処理パイプラインを統括するアプリケーションサービス。
// 履歴参照 → プロンプト生成 → フィードバック取得 → 永続化 を同期的に実行する。
// 履歴参照とフィードバック取得はベストエフォートで、失敗しても後続ステップを
// 省略しない。永続化の失敗だけが呼び出し元へ伝播する。
type Processor struct {
	logger   *log.Logger
	store    ReportStore
	feedback FeedbackClient
	composer *PromptComposer
	now      func() time.Time
	suffix   func() string
}

// Result は処理完了後にハンドラへ返す集約結果。
type Result struct {
	DocumentID  string
	Feedback    domain.FeedbackResult
	HasPrevious bool
	ProcessedAt time.Time
}

// NewProcessor は依存を束ねた Processor を返す。
func NewProcessor(logger *log.Logger, store ReportStore, feedback FeedbackClient, composer *PromptComposer) *Processor {
	return &Processor{
		logger:   logger,
		store:    store,
		feedback: feedback,
		composer: composer,
		now:      time.Now,
		suffix:   randomSuffix,
	}
}

// Process は検証済みの日報を受け取り、パイプラインを最後まで実行する。
// フィードバックがエラーマーカーでも結果ドキュメントは必ず挿入する。
// 失敗した試行の記録も残すことがこのシステムの要件であるため。
func (p *Processor) Process(ctx context.Context, submission domain.Submission) (Result, error) {
	previous := p.findPrevious(ctx, submission)
	prompt := p.composer.Compose(submission, previous)
	feedback := p.feedback.RequestFeedback(ctx, prompt)

	now := p.now().UTC()
	doc := domain.ResultDocument{
		ID:         p.generateID(submission.SubmitterEmail(), now),
		Type:       domain.TypeDailyReportWithFeedback,
		Timestamp:  now.Format(time.RFC3339),
		AIFeedback: feedback,
	}

	if err := p.store.InsertResult(ctx, doc); err != nil {
		p.logger.Printf("CosmosDB保存エラー: %v", err)
		return Result{}, fmt.Errorf("フィードバック結果の保存に失敗しました: %w", err)
	}
	p.logger.Printf("データ保存成功: %s", doc.ID)

	return Result{
		DocumentID:  doc.ID,
		Feedback:    feedback,
		HasPrevious: previous != nil,
		ProcessedAt: p.now().UTC(),
	}, nil
}

// findPrevious は前回日報を取得する。ストア障害は「前回なし」へ縮退させる。
func (p *Processor) findPrevious(ctx context.Context, submission domain.Submission) *domain.StoredReport {
	previous, err := p.store.FindPrevious(ctx, submission.SubmitterEmail(), submission.SubmissionDate())
	if err != nil {
		p.logger.Printf("前回日報取得エラー: %v", err)
		return nil
	}
	return previous
}

// generateID は report_<email>_<秒精度タイムスタンプ>_<乱数8桁> 形式の ID を生成する。
// タイムスタンプだけでは同一秒内の再投稿で衝突するため、乱数サフィックスを付ける。
func (p *Processor) generateID(email string, now time.Time) string {
	return fmt.Sprintf("report_%s_%s_%s", email, now.Format("20060102_150405"), p.suffix())
}

func randomSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}
