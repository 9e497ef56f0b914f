package pipeline

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/Masterminds/sprig/v3"
)

// mailBodyTemplate is the plain-text body of the report mail.
const mailBodyTemplate = `{{ .AsOfDate }} の前日確定版レポートを生成しました。
添付ファイルをご確認ください。

▼ 5行要約
{{ .Summary }}
`

// renderMailBody renders the report mail body.
func renderMailBody(asOfDate, summaryText string) (string, error) {
	tmpl, err := template.New("mail-body").Funcs(sprig.TxtFuncMap()).Parse(mailBodyTemplate)
	if err != nil {
		return "", fmt.Errorf("failed to parse mail body template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, map[string]string{
		"AsOfDate": asOfDate,
		"Summary":  summaryText,
	}); err != nil {
		return "", fmt.Errorf("failed to render mail body: %w", err)
	}

	return buf.String(), nil
}
