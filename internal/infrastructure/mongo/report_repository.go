package mongo

import (
	"context"
	"errors"

	"github.com/papaHasuo/daily-report-feedback/api/internal/report/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ReportRepository は日報コレクションを扱う実装リポジトリ。
// 履歴参照(FindPrevious)と結果挿入(InsertResult)の2操作のみを提供する。
type ReportRepository struct {
	reports *mongo.Collection
}

// NewReportRepository は日報コレクションを束縛したリポジトリを構築する。
func NewReportRepository(db *mongo.Database, collection string) *ReportRepository {
	return &ReportRepository{reports: db.Collection(collection)}
}

// FindPrevious は submitterEmail の日報のうち、beforeDate より辞書順で前で
// 最新(submissionDate 降順の先頭)の daily_report を1件返す。該当なしは (nil, nil)。
// 日付は辞書順比較なので、呼び出し側はソート可能な文字列形式(ISO-8601)で渡すこと。
func (r *ReportRepository) FindPrevious(ctx context.Context, submitterEmail, beforeDate string) (*domain.StoredReport, error) {
	filter := bson.M{
		"type":                    domain.TypeDailyReport,
		"metadata.submitterEmail": submitterEmail,
		"data.submissionDate":     bson.M{"$lt": beforeDate},
	}
	opts := options.FindOne().SetSort(bson.D{{Key: "data.submissionDate", Value: -1}})

	var doc storedReportDocument
	err := r.reports.FindOne(ctx, filter, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &domain.StoredReport{
		Type:     doc.Type,
		Metadata: doc.Metadata,
		Data:     doc.Data,
	}, nil
}

// InsertResult はフィードバック付き結果ドキュメントを挿入する。
// _id 衝突時はドライバの重複キーエラーをそのまま返す。
func (r *ReportRepository) InsertResult(ctx context.Context, doc domain.ResultDocument) error {
	_, err := r.reports.InsertOne(ctx, resultDocument{
		ID:         doc.ID,
		Type:       doc.Type,
		Timestamp:  doc.Timestamp,
		AIFeedback: doc.AIFeedback,
	})
	return err
}
