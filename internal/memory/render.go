package memory

import (
	"strings"
	"unicode/utf8"

	"github.com/rcliao/docky/internal/model"
)

const (
	summaryLabel  = "Previous conversation summary: "
	recentHeading = "Recent conversation:"
	questionLabel = "Human: "
	answerLabel   = "Assistant: "
)

// RenderContext renders a summary followed by exchanges in Seq order.
// An empty summary is omitted; an empty state renders as "".
func RenderContext(summary model.Summary, exchanges []model.Exchange, answerPreview int) string {
	var sections []string
	if !summary.Empty() {
		sections = append(sections, summaryLabel+summary.Text)
	}
	if len(exchanges) > 0 {
		var b strings.Builder
		b.WriteString(recentHeading)
		for _, ex := range exchanges {
			b.WriteString("\n")
			b.WriteString(questionLabel)
			b.WriteString(ex.Question)
			b.WriteString("\n")
			b.WriteString(answerLabel)
			b.WriteString(preview(ex.Answer, answerPreview))
			b.WriteString("\n")
		}
		sections = append(sections, strings.TrimSuffix(b.String(), "\n"))
	}
	return strings.Join(sections, "\n\n")
}

func preview(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit]) + "..."
}
