package feed

import (
	"html"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/microcosm-cc/bluemonday"
)

var textPolicy = func() *bluemonday.Policy {
	p := bluemonday.StrictPolicy()
	p.AddSpaceWhenStrippingTag(true)
	return p
}()

// cleanText：去除 HTML 标签与实体，折叠空白
func cleanText(s string) string {
	if s == "" {
		return ""
	}
	return collapseSpace(html.UnescapeString(textPolicy.Sanitize(s)))
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// parseDate：宽松解析发布时间，失败返回 nil；结果统一为 UTC
func parseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	t, err := dateparse.ParseAny(s)
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}
