package application

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/papaHasuo/daily-report-feedback/api/internal/report/domain"
)

// user_template が参照できるプレースホルダの契約。
// ここにない名前をテンプレートが参照していたら設定エラーとして起動を止める。
var knownPlaceholders = map[string]struct{}{
	"current_date":            {},
	"name":                    {},
	"good_things":             {},
	"reflections":             {},
	"additional_info":         {},
	"previous_report_section": {},
}

var placeholderPattern = regexp.MustCompile(`\{([a-zA-Z_]+)\}`)

// 前回日報の欠落フィールドに埋める値。
const missingFieldLabel = "N/A"

// PromptComposer は設定されたテンプレートから AI へ渡すプロンプトを組み立てる。
type PromptComposer struct {
	template string
}

// NewPromptComposer はテンプレートを検証して返す。
// 契約外プレースホルダの参照は設定側の誤りなので、リクエスト処理時ではなく
// 構築時(=プロセス起動時)に失敗させる。
func NewPromptComposer(template string) (*PromptComposer, error) {
	if strings.TrimSpace(template) == "" {
		return nil, errors.New("prompts.user_template が設定されていません")
	}
	for _, match := range placeholderPattern.FindAllStringSubmatch(template, -1) {
		if _, ok := knownPlaceholders[match[1]]; !ok {
			return nil, fmt.Errorf("prompts.user_template が未定義のプレースホルダ {%s} を参照しています", match[1])
		}
	}
	return &PromptComposer{template: template}, nil
}

// Compose は現在の日報と(あれば)前回の日報からプロンプトを生成する。
// テンプレートで名指ししていない追加フィールドも additional_info として
// data セクション全体の JSON ダンプで渡す。
func (p *PromptComposer) Compose(current domain.Submission, previous *domain.StoredReport) string {
	additional, err := json.MarshalIndent(current.Data, "", "  ")
	if err != nil {
		additional = []byte("{}")
	}

	values := map[string]string{
		"current_date":            current.DataField("submissionDate", ""),
		"name":                    current.DataField("name", ""),
		"good_things":             current.DataField("goodThings", ""),
		"reflections":             current.DataField("reflections", ""),
		"additional_info":         string(additional),
		"previous_report_section": previousReportSection(previous),
	}

	return placeholderPattern.ReplaceAllStringFunc(p.template, func(token string) string {
		return values[token[1:len(token)-1]]
	})
}

// previousReportSection は前回日報の要約ブロックを描画する。前回なしなら空。
func previousReportSection(previous *domain.StoredReport) string {
	if previous == nil {
		return ""
	}

	var b strings.Builder
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "【前回の日報（%s）】\n", previous.DataField("submissionDate", missingFieldLabel))
	fmt.Fprintf(&b, "良かったこと: %s\n", previous.DataField("goodThings", missingFieldLabel))
	fmt.Fprintf(&b, "反省点: %s\n", previous.DataField("reflections", missingFieldLabel))
	return b.String()
}
