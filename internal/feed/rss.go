package feed

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"
)

// entry：RSS item 或 Atom entry 的统一表示
type entry struct {
	Title     string
	Link      string
	Summary   string
	Published string
}

// 文档注释：解析 RSS 2.0 / Atom 1.0
// 背景：按根元素自动识别格式（<rss>/<rdf:RDF> 为 RSS，<feed> 为 Atom）。
// 约束：只取标题、链接、摘要与发布时间；字段原样保留（去首尾空白），清洗由调用方完成。
func parseFeed(data []byte) ([]entry, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("feed: empty data")
	}
	switch detectFormat(trimmed) {
	case "rss":
		return parseRSS(trimmed)
	case "atom":
		return parseAtom(trimmed)
	}
	return nil, fmt.Errorf("feed: unknown format (expected <rss> or <feed>)")
}

func detectFormat(data []byte) string {
	d := xml.NewDecoder(bytes.NewReader(data))
	d.Strict = false
	for {
		tok, err := d.Token()
		if err != nil {
			return ""
		}
		if se, ok := tok.(xml.StartElement); ok {
			switch strings.ToLower(se.Name.Local) {
			case "rss", "rdf":
				return "rss"
			case "feed":
				return "atom"
			}
			return ""
		}
	}
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description"`
	PubDate     string `xml:"pubDate"`
	Date        string `xml:"date"` // dc:date
}

type rssRoot struct {
	Items    []rssItem `xml:"channel>item"`
	RDFItems []rssItem `xml:"item"`
}

func parseRSS(data []byte) ([]entry, error) {
	var root rssRoot
	d := xml.NewDecoder(bytes.NewReader(data))
	d.Strict = false
	d.Entity = xml.HTMLEntity
	if err := d.Decode(&root); err != nil {
		return nil, fmt.Errorf("feed: parse rss: %w", err)
	}
	items := append(root.Items, root.RDFItems...)
	out := make([]entry, 0, len(items))
	for _, it := range items {
		pub := strings.TrimSpace(it.PubDate)
		if pub == "" {
			pub = strings.TrimSpace(it.Date)
		}
		out = append(out, entry{
			Title:     strings.TrimSpace(it.Title),
			Link:      strings.TrimSpace(it.Link),
			Summary:   strings.TrimSpace(it.Description),
			Published: pub,
		})
	}
	return out, nil
}

type atomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
}

type atomEntry struct {
	Title     string     `xml:"title"`
	Links     []atomLink `xml:"link"`
	Summary   string     `xml:"summary"`
	Content   string     `xml:"content"`
	Published string     `xml:"published"`
	Updated   string     `xml:"updated"`
}

type atomFeed struct {
	Entries []atomEntry `xml:"entry"`
}

func parseAtom(data []byte) ([]entry, error) {
	var root atomFeed
	d := xml.NewDecoder(bytes.NewReader(data))
	d.Strict = false
	d.Entity = xml.HTMLEntity
	if err := d.Decode(&root); err != nil {
		return nil, fmt.Errorf("feed: parse atom: %w", err)
	}
	out := make([]entry, 0, len(root.Entries))
	for _, e := range root.Entries {
		summary := strings.TrimSpace(e.Summary)
		if summary == "" {
			summary = strings.TrimSpace(e.Content)
		}
		pub := strings.TrimSpace(e.Published)
		if pub == "" {
			pub = strings.TrimSpace(e.Updated)
		}
		out = append(out, entry{
			Title:     strings.TrimSpace(e.Title),
			Link:      atomEntryLink(e.Links),
			Summary:   summary,
			Published: pub,
		})
	}
	return out, nil
}

// atomEntryLink：优先 rel="alternate" 或无 rel 的链接，否则取第一个
func atomEntryLink(links []atomLink) string {
	for _, l := range links {
		if l.Rel == "alternate" || l.Rel == "" {
			return strings.TrimSpace(l.Href)
		}
	}
	if len(links) > 0 {
		return strings.TrimSpace(links[0].Href)
	}
	return ""
}
