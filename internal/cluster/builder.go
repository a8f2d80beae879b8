// 包 cluster：把文章定位到坐标并按坐标聚类，附带选区名称
package cluster

import (
	"context"
	"log/slog"

	"newsmap/internal/gazetteer"
	"newsmap/internal/logger"
	"newsmap/internal/metrics"
	"newsmap/internal/model"
)

// Resolver：地名 → 坐标（由 geocode.Resolver 实现）
type Resolver interface {
	Resolve(ctx context.Context, name string) (*model.Coords, bool)
}

// Locator：坐标 → 选区名称（由 boundary.Index 实现）
type Locator interface {
	Locate(lat, lon float64) (string, bool)
}

// 文档注释：聚类构建器（显式持有的流水线上下文）
// 背景：阶段一按地名提及定位文章，阶段二按 5 位小数坐标分组并计算选区。
// 约束：顺序执行，不并发调用地理编码服务；单篇文章失败只记录日志并跳过。
type Builder struct {
	matcher  *gazetteer.Matcher
	resolver Resolver
	locator  Locator
	log      *slog.Logger
}

// NewBuilder：locator 可为空，此时所有聚类的选区为 null
func NewBuilder(m *gazetteer.Matcher, r Resolver, l Locator) *Builder {
	return &Builder{matcher: m, resolver: r, locator: l, log: logger.L()}
}

// WithLogger：替换构建器使用的日志器
func (b *Builder) WithLogger(l *slog.Logger) *Builder {
	if l != nil {
		b.log = l
	}
	return b
}

// 文档注释：阶段一，定位文章
// 背景：在标题与摘要拼接文本中查找地名提及，按确定顺序逐个编码，首个成功者胜出。
// 返回：已定位文章，保持输入顺序；无提及或全部无法编码的文章被丢弃。
func (b *Builder) Locate(ctx context.Context, articles []model.Article) []model.LocatedArticle {
	out := make([]model.LocatedArticle, 0, len(articles))
	for i, a := range articles {
		if ctx.Err() != nil {
			b.log.Warn("cluster_locate_cancelled", "remaining", len(articles)-i, "err", ctx.Err())
			break
		}
		la, ok := b.locateOne(ctx, a)
		if !ok {
			continue
		}
		out = append(out, la)
	}
	metrics.ArticlesLocatedTotal.Add(float64(len(out)))
	return out
}

func (b *Builder) locateOne(ctx context.Context, a model.Article) (model.LocatedArticle, bool) {
	mentions := b.matcher.Find(a.Title + " " + a.Summary)
	if len(mentions) == 0 {
		b.log.Debug("article_no_mentions", "url", a.URL)
		return model.LocatedArticle{}, false
	}
	for _, m := range mentions {
		c, ok := b.resolver.Resolve(ctx, m.Name)
		if !ok || c == nil {
			continue
		}
		return model.LocatedArticle{Article: a, LocationName: m.Name, Coords: *c}, true
	}
	b.log.Debug("article_unresolved", "url", a.URL, "mentions", len(mentions))
	return model.LocatedArticle{}, false
}

// 文档注释：阶段二，按坐标分组
// 背景：坐标键为 5 位小数的 "lat,lon"；首次出现时计算一次选区并记录触发文章的地名。
// 约束：同一聚类内 URL 去重；输出按首次出现顺序；ArticleCount 恒等于文章数。
func (b *Builder) Group(located []model.LocatedArticle) []model.Cluster {
	out := make([]model.Cluster, 0)
	byKey := map[string]int{}
	seen := map[string]map[string]struct{}{}
	for _, la := range located {
		key := la.Coords.Key()
		i, ok := byKey[key]
		if !ok {
			out = append(out, model.Cluster{
				Latitude:     la.Coords.Lat,
				Longitude:    la.Coords.Lon,
				LocationName: la.LocationName,
				Constituency: b.constituency(la.Coords),
				Articles:     []model.ClusterArticle{},
			})
			i = len(out) - 1
			byKey[key] = i
			seen[key] = map[string]struct{}{}
		}
		if _, dup := seen[key][la.URL]; dup {
			continue
		}
		seen[key][la.URL] = struct{}{}
		c := &out[i]
		c.Articles = append(c.Articles, la.Brief())
		c.ArticleCount = len(c.Articles)
	}
	return out
}

func (b *Builder) constituency(c model.Coords) *string {
	if b.locator == nil {
		return nil
	}
	name, ok := b.locator.Locate(c.Lat, c.Lon)
	if !ok {
		return nil
	}
	return &name
}

// Build：Group(Locate(articles))；恒返回非 nil 切片
func (b *Builder) Build(ctx context.Context, articles []model.Article) []model.Cluster {
	clusters := b.Group(b.Locate(ctx, articles))
	metrics.ClustersCurrent.Set(float64(len(clusters)))
	b.log.Info("clusters_built", "articles", len(articles), "clusters", len(clusters))
	return clusters
}
