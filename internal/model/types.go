// 包 model：流水线各阶段共享的记录类型（文章、坐标、聚类），字段固定、可选性显式表达
package model

import (
	"fmt"
	"time"
)

// 文档注释：上游抓取阶段产出的标准化文章
// 背景：由 feed 包从 RSS/HTML 源解析得到；进入核心流水线后只读。
// 约束：URL 为自然主键，用于聚类内去重；PublishedDate 可为空（源未提供或无法解析）。
type Article struct {
	Title         string
	URL           string
	Summary       string
	Source        string
	PublishedDate *time.Time
}

// 点坐标（WGS84），对外元组纬度在前
type Coords struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Key：聚类键，经纬度各保留 5 位小数（约 1 米精度）
func (c Coords) Key() string { return CoordKey(c.Lat, c.Lon) }

// CoordKey：按 "lat,lon" 拼接的 5 位小数坐标键
func CoordKey(lat, lon float64) string { return fmt.Sprintf("%.5f,%.5f", lat, lon) }

// 文档注释：已定位文章
// 背景：至少一个地名提及成功地理编码的文章才会生成；LocationName 为触发成功编码的地名表项。
type LocatedArticle struct {
	Article
	LocationName string
	Coords       Coords
}

// ClusterArticle：聚类内的文章摘要（对外序列化）
type ClusterArticle struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Summary string `json:"summary"`
	Source  string `json:"source"`
}

// 文档注释：坐标聚类（对外返回结构）
// 背景：每次流水线运行重新构建，不持久化；前端按坐标绘制标记并展示文章列表。
// 约束：Constituency 在聚类创建时计算一次，为空时序列化为 null；Articles 按 URL 去重；ArticleCount 恒等于 len(Articles)。
type Cluster struct {
	Latitude     float64          `json:"latitude"`
	Longitude    float64          `json:"longitude"`
	LocationName string           `json:"location_name"`
	Constituency *string          `json:"constituency"`
	ArticleCount int              `json:"article_count"`
	Articles     []ClusterArticle `json:"articles"`
}

// Brief：从文章裁剪出聚类展示字段
func (a Article) Brief() ClusterArticle {
	return ClusterArticle{Title: a.Title, URL: a.URL, Summary: a.Summary, Source: a.Source}
}
