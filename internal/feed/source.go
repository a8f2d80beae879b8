// 包 feed：从 RSS/Atom 与 HTML 新闻源抓取并标准化文章
package feed

import (
	"errors"
	"fmt"
	"strings"
)

const (
	TypeRSS  = "rss"
	TypeHTML = "html"
)

// Selectors：HTML 源的 CSS 选择器
type Selectors struct {
	ArticleContainer string `yaml:"article_container" json:"article_container"`
	Title            string `yaml:"title" json:"title"`
	Link             string `yaml:"link" json:"link"`
	Summary          string `yaml:"summary" json:"summary"`
}

// 文档注释：新闻源配置
// 背景：来自 YAML 配置文件或内置默认值；Type 缺省为 html。
// 约束：Name 与 URL 必填；html 源必须提供 Selectors（至少 ArticleContainer/Title/Link）。
type SourceConfig struct {
	Name      string     `yaml:"name" json:"name"`
	Type      string     `yaml:"type" json:"type"`
	URL       string     `yaml:"url" json:"url"`
	BaseURL   string     `yaml:"base_url" json:"base_url"`
	Selectors *Selectors `yaml:"selectors" json:"selectors"`
}

var (
	ErrInvalidSource   = errors.New("invalid source")
	ErrMissingSelector = errors.New("html source missing selectors")
	ErrUnsupportedType = errors.New("unsupported source type")
)

// DefaultSources：Google News 新加坡搜索订阅
func DefaultSources() []SourceConfig {
	return []SourceConfig{{
		Name: "Google News (Search: Singapore)",
		Type: TypeRSS,
		URL:  "https://news.google.com/rss/search?q=Singapore&hl=en-SG&gl=SG&ceid=SG:en",
	}}
}

// Kind：规范化后的源类型
func (s SourceConfig) Kind() string {
	t := strings.ToLower(strings.TrimSpace(s.Type))
	if t == "" {
		return TypeHTML
	}
	return t
}

// Validate：检查源配置是否可用
func (s SourceConfig) Validate() error {
	if strings.TrimSpace(s.Name) == "" || strings.TrimSpace(s.URL) == "" {
		return fmt.Errorf("%w: name and url are required", ErrInvalidSource)
	}
	switch s.Kind() {
	case TypeRSS:
		return nil
	case TypeHTML:
		if s.Selectors == nil || s.Selectors.ArticleContainer == "" || s.Selectors.Title == "" || s.Selectors.Link == "" {
			return fmt.Errorf("%w: %s", ErrMissingSelector, s.Name)
		}
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnsupportedType, s.Type)
}
