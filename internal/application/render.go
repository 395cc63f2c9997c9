package app

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"strings"

	"hazard-vision/internal/domain/entity"
)

const (
	htmlWarning   = `<p class="warning">Warning: Dangerous items detected!</p>`
	htmlNoHazards = `<p>No dangerous items detected.</p>`

	textWarning   = "⚠️ Warning: Dangerous items detected!"
	textNoHazards = "✅ No dangerous items detected."
)

// RenderHTML собирает HTML отчёта; секция опасностей всегда последняя
func RenderHTML(report *entity.Report) string {
	var b strings.Builder
	for _, block := range report.Blocks {
		fmt.Fprintf(&b, "<p><strong>%s:</strong></p>\n<pre>%s</pre>\n",
			html.EscapeString(block.Title), html.EscapeString(dump(block.Output)))
	}

	if !report.HasHazards() {
		b.WriteString(htmlNoHazards)
		return b.String()
	}

	b.WriteString(htmlWarning)
	for _, match := range report.Hazards {
		fmt.Fprintf(&b, "<p><strong>%s detected the following dangerous items:</strong></p><ul>",
			html.EscapeString(match.Model))
		for _, item := range match.Labels {
			fmt.Fprintf(&b, "<li>%s</li>", html.EscapeString(item))
		}
		b.WriteString("</ul>")
	}
	return b.String()
}

// RenderText текстовый отчёт для бота
func RenderText(report *entity.Report) string {
	var b strings.Builder
	for _, block := range report.Blocks {
		fmt.Fprintf(&b, "%s:\n", block.Title)
		switch out := block.Output.(type) {
		case []entity.Prediction:
			for _, p := range out {
				fmt.Fprintf(&b, "• %s — %.2f\n", p.Label, p.Score)
			}
		case []entity.Detection:
			for _, d := range out {
				fmt.Fprintf(&b, "• %s — %.2f [%.0f, %.0f, %.0f×%.0f]\n",
					d.Label, d.Score, d.Box.X, d.Box.Y, d.Box.Width, d.Box.Height)
			}
		case *entity.Pose:
			fmt.Fprintf(&b, "score %.2f, keypoints %d\n", out.Score, len(out.Keypoints))
		default:
			b.WriteString(dump(out))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if !report.HasHazards() {
		b.WriteString(textNoHazards)
		return b.String()
	}

	b.WriteString(textWarning)
	for _, match := range report.Hazards {
		fmt.Fprintf(&b, "\n%s detected the following dangerous items: %s",
			match.Model, strings.Join(match.Labels, ", "))
	}
	return b.String()
}

// dump форматирует вывод модели как JSON с отступами; экранирование делает вызывающий
func dump(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Sprintf("%v", v)
	}
	return strings.TrimSuffix(buf.String(), "\n")
}
