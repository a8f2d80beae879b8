package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"newsmap/internal/gazetteer"
	"newsmap/internal/logger"
	"newsmap/internal/model"
)

// BrowserUserAgent：HTML 列表页请求使用的浏览器标识
const BrowserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

const maxBodyBytes = 8 << 20

// 文档注释：新闻源抓取器
// 背景：逐个处理配置的源；RSS 条目按地名关键词预过滤，HTML 页面按选择器提取。
// 约束：单个源失败只记录日志并贡献零篇文章，不影响其他源；不返回错误。
type Scraper struct {
	client    *http.Client
	matcher   *gazetteer.Matcher
	userAgent string
	timeout   time.Duration
}

// NewScraper：matcher 用于 RSS 关键词过滤；client 为空时使用默认客户端
func NewScraper(m *gazetteer.Matcher, client *http.Client) *Scraper {
	if client == nil {
		client = &http.Client{}
	}
	return &Scraper{client: client, matcher: m, userAgent: BrowserUserAgent, timeout: 15 * time.Second}
}

// Scrape：抓取所有源并按源顺序拼接文章
func (s *Scraper) Scrape(ctx context.Context, sources []SourceConfig) []model.Article {
	logger.L().Info("scrape_start", "sources", len(sources))
	var all []model.Article
	for _, src := range sources {
		if ctx.Err() != nil {
			break
		}
		if err := src.Validate(); err != nil {
			logger.L().Warn("source_skipped", "source", src.Name, "type", src.Type, "err", err)
			continue
		}
		var (
			arts []model.Article
			err  error
		)
		switch src.Kind() {
		case TypeRSS:
			arts, err = s.scrapeRSS(ctx, src)
		case TypeHTML:
			arts, err = s.scrapeHTML(ctx, src)
		}
		if err != nil {
			logger.L().Error("source_failed", "source", src.Name, "url", src.URL, "err", err)
			continue
		}
		logger.L().Info("source_parsed", "source", src.Name, "articles", len(arts))
		all = append(all, arts...)
	}
	logger.L().Info("scrape_done", "articles", len(all))
	return all
}

func (s *Scraper) fetch(ctx context.Context, u string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", s.userAgent)
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("http %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
}

func (s *Scraper) scrapeRSS(ctx context.Context, src SourceConfig) ([]model.Article, error) {
	body, err := s.fetch(ctx, src.URL)
	if err != nil {
		return nil, err
	}
	entries, err := parseFeed(body)
	if err != nil {
		return nil, err
	}
	var out []model.Article
	filtered := 0
	for _, e := range entries {
		if s.matcher != nil && !s.matcher.Contains(e.Title+" "+e.Summary) {
			filtered++
			continue
		}
		if e.Title == "" || e.Link == "" {
			continue
		}
		out = append(out, model.Article{
			Title:         collapseSpace(e.Title),
			URL:           e.Link,
			Summary:       cleanText(e.Summary),
			Source:        src.Name,
			PublishedDate: parseDate(e.Published),
		})
	}
	logger.L().Debug("rss_filtered", "source", src.Name, "entries", len(entries), "kept", len(out), "filtered", filtered)
	return out, nil
}

func (s *Scraper) scrapeHTML(ctx context.Context, src SourceConfig) ([]model.Article, error) {
	body, err := s.fetch(ctx, src.URL)
	if err != nil {
		return nil, err
	}
	return parseHTMLArticles(body, src)
}
