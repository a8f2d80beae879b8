package feed

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"newsmap/internal/logger"
	"newsmap/internal/model"
)

// 文档注释：按 CSS 选择器从列表页提取文章
// 背景：每个容器元素内分别选择标题、链接与摘要；相对链接按 BaseURL（缺省为源 URL）解析。
// 约束：缺少标题或链接的元素被跳过；选择器语法错误视为源配置错误。
func parseHTMLArticles(body []byte, src SourceConfig) ([]model.Article, error) {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse HTML: %w", err)
	}
	sel := src.Selectors
	container, err := cascadia.Parse(sel.ArticleContainer)
	if err != nil {
		return nil, fmt.Errorf("selector %q: %w", sel.ArticleContainer, err)
	}
	title, err := cascadia.Parse(sel.Title)
	if err != nil {
		return nil, fmt.Errorf("selector %q: %w", sel.Title, err)
	}
	link, err := cascadia.Parse(sel.Link)
	if err != nil {
		return nil, fmt.Errorf("selector %q: %w", sel.Link, err)
	}
	var summary cascadia.Sel
	if sel.Summary != "" {
		if summary, err = cascadia.Parse(sel.Summary); err != nil {
			return nil, fmt.Errorf("selector %q: %w", sel.Summary, err)
		}
	}
	base := src.BaseURL
	if base == "" {
		base = src.URL
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("base url %q: %w", base, err)
	}

	nodes := cascadia.QueryAll(doc, container)
	logger.L().Info("html_containers", "source", src.Name, "selector", sel.ArticleContainer, "count", len(nodes))
	var out []model.Article
	for _, n := range nodes {
		t := nodeText(cascadia.Query(n, title))
		href := attr(cascadia.Query(n, link), "href")
		if t == "" || href == "" {
			logger.L().Debug("html_element_skipped", "source", src.Name, "title", t, "href", href)
			continue
		}
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			continue
		}
		var s string
		if summary != nil {
			s = nodeText(cascadia.Query(n, summary))
		}
		out = append(out, model.Article{
			Title:   t,
			URL:     baseURL.ResolveReference(ref).String(),
			Summary: s,
			Source:  src.Name,
		})
	}
	return out, nil
}

func nodeText(n *html.Node) string {
	if n == nil {
		return ""
	}
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return collapseSpace(b.String())
}

func attr(n *html.Node, key string) string {
	if n == nil {
		return ""
	}
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
