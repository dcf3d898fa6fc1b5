package domain

// FeedbackResult は AI フィードバック呼び出しの正規化済み結果。
// 次の3形態のいずれかを取る:
//   - 構造化フィードバック(API が整形された JSON オブジェクトを返した場合)
//   - {"feedback_text": <raw>} フォールバック(構造化解釈に失敗した場合)
//   - {"error": <message>} エラーマーカー(API 呼び出し自体が失敗した場合)
type FeedbackResult map[string]any

// StructuredFeedback は解析済みフィールド群をそのまま結果として包む。
func StructuredFeedback(fields map[string]any) FeedbackResult {
	return FeedbackResult(fields)
}

// TextFeedback は構造化できなかった応答本文を劣化なしで包む。
func TextFeedback(raw string) FeedbackResult {
	return FeedbackResult{"feedback_text": raw}
}

// ErrorFeedback は呼び出し失敗を表すエラーマーカーを生成する。
func ErrorFeedback(message string) FeedbackResult {
	return FeedbackResult{"error": message}
}

// IsError はエラーマーカーかどうかを判定する。
func (f FeedbackResult) IsError() bool {
	_, ok := f["error"]
	return ok
}

// ResultDocument は生成フィードバックを含む永続化レコード。
// 挿入後に変更されることはなく、削除経路も存在しない。
type ResultDocument struct {
	ID         string
	Type       string
	Timestamp  string
	AIFeedback FeedbackResult
}
