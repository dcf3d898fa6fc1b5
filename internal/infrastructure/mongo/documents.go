package mongo

// storedReportDocument は外部の提出システムが保存する日報ドキュメントの
// 読み取り用スキーマ。_id の型が提出側の実装に依存するため取り込まない。
type storedReportDocument struct {
	Type     string         `bson:"type"`
	Metadata map[string]any `bson:"metadata"`
	Data     map[string]any `bson:"data"`
}

// resultDocument は本システムが挿入するフィードバック付きレコードのスキーマ。
type resultDocument struct {
	ID         string         `bson:"_id"`
	Type       string         `bson:"type"`
	Timestamp  string         `bson:"timestamp"`
	AIFeedback map[string]any `bson:"ai_feedback"`
}
