package domain

// ドキュメントストア上の2種類のドキュメント形状を区別する type 判別子。
// daily_report は外部の提出システムが保存する日報、
// daily_report_with_feedback は本システムが出力するフィードバック付きレコード。
const (
	TypeDailyReport             = "daily_report"
	TypeDailyReportWithFeedback = "daily_report_with_feedback"
)

// Submission は日報投稿のインバウンドペイロード。
// metadata(提出者情報)と data(日報本体)の2セクションで構成され、
// data は自由形式フィールドを許容するため緩い型のマップで保持する。
type Submission struct {
	Metadata map[string]any
	Data     map[string]any
}

// SubmitterEmail は提出者の識別キーを返す。未設定なら空文字。
func (s Submission) SubmitterEmail() string {
	return stringField(s.Metadata, "submitterEmail", "")
}

// SubmissionDate は提出日(辞書順比較可能な文字列)を返す。未設定なら空文字。
func (s Submission) SubmissionDate() string {
	return stringField(s.Data, "submissionDate", "")
}

// DataField は data セクションの文字列フィールドを取り出す。欠落時は fallback。
func (s Submission) DataField(key, fallback string) string {
	return stringField(s.Data, key, fallback)
}

// StoredReport は過去に永続化された日報ドキュメント。履歴参照にのみ使う。
type StoredReport struct {
	Type     string
	Metadata map[string]any
	Data     map[string]any
}

// DataField は過去日報の data フィールドを取り出す。欠落時は fallback。
func (r StoredReport) DataField(key, fallback string) string {
	return stringField(r.Data, key, fallback)
}

func stringField(m map[string]any, key, fallback string) string {
	if m == nil {
		return fallback
	}
	value, ok := m[key]
	if !ok {
		return fallback
	}
	text, ok := value.(string)
	if !ok || text == "" {
		return fallback
	}
	return text
}
