package boundary

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/rtree"

	"newsmap/internal/logger"
	"newsmap/internal/metrics"
)

// 文档注释：选区边界索引
// 背景：一次性加载选区多边形，建立包围盒 R 树；之后对每个坐标做候选筛选与精确命中判定。
// 约束：
// - Load 成功后再次调用为空操作；失败后索引永久不可用，后续 Load 返回首次错误；
// - Locate 在未加载或加载失败时返回未命中，绝不 panic；
// - 多个要素同时包含一点时返回图层顺序中的第一个。
type Index struct {
	nameColumn string

	mu       sync.RWMutex
	loaded   bool
	err      error
	features []Feature
	tree     rtree.RTreeG[int]
}

// NewIndex：nameColumn 为承载选区名称的属性列（如 "Name"）
func NewIndex(nameColumn string) *Index {
	return &Index{nameColumn: nameColumn}
}

// 文档注释：加载边界文件并建立索引
// 参数：source 为 .geojson/.json/.kml/.kmz 文件路径。
// 返回：ErrNotFound、ErrFormat、ErrMissingColumn 或 ErrUnsupportedCRS 的包装错误。
func (ix *Index) Load(source string) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.loaded {
		return nil
	}
	if ix.err != nil {
		return ix.err
	}
	t0 := time.Now()
	layer, err := readLayer(source)
	if err == nil {
		err = ix.checkColumn(layer)
	}
	if err != nil {
		ix.err = err
		logger.L().Error("boundary_load_failed", "source", source, "err", err)
		return err
	}
	for i, f := range layer.Features {
		for _, p := range f.Polys {
			if len(p.Rings) == 0 || len(p.Rings[0]) < 3 {
				continue
			}
			ix.tree.Insert([2]float64{p.BBox[0], p.BBox[1]}, [2]float64{p.BBox[2], p.BBox[3]}, i)
		}
	}
	ix.features = layer.Features
	ix.loaded = true
	logger.L().Info("boundary_loaded", "source", source, "features", len(layer.Features), "column", ix.nameColumn, "duration_ms", time.Since(t0).Milliseconds())
	return nil
}

func (ix *Index) checkColumn(l *Layer) error {
	for _, c := range l.Columns {
		if c == ix.nameColumn {
			return nil
		}
	}
	return fmt.Errorf("%w: %q (available: %s)", ErrMissingColumn, ix.nameColumn, strings.Join(l.Columns, ", "))
}

func readLayer(source string) (*Layer, error) {
	b, err := os.ReadFile(source)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, source)
		}
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	switch strings.ToLower(filepath.Ext(source)) {
	case ".kml":
		return parseKML(bytes.NewReader(b))
	case ".kmz":
		return parseKMZ(b)
	case ".geojson", ".json":
		layer, kind, declared, err := parseGeoJSON(b)
		if err != nil {
			return nil, err
		}
		if !declared {
			logger.L().Warn("boundary_crs_missing", "source", source, "assumed", "EPSG:4326")
		}
		layer.reproject(kind)
		return layer, nil
	}
	return nil, fmt.Errorf("%w: unsupported extension %q", ErrFormat, filepath.Ext(source))
}

// 文档注释：查询坐标所在选区
// 参数：lat/lon 为 WGS84 坐标；内部按 (x=lon, y=lat) 构点。
// 返回：首个精确包含该点的要素名称；无命中或该要素名称为空时返回 ("", false)。
func (ix *Index) Locate(lat, lon float64) (string, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if !ix.loaded {
		metrics.BoundaryLookupsTotal.WithLabelValues("unloaded").Inc()
		return "", false
	}
	pt := Point{Lat: lat, Lon: lon}
	seen := map[int]struct{}{}
	var cands []int
	ix.tree.Search([2]float64{lon, lat}, [2]float64{lon, lat}, func(_, _ [2]float64, i int) bool {
		if _, ok := seen[i]; !ok {
			seen[i] = struct{}{}
			cands = append(cands, i)
		}
		return true
	})
	sort.Ints(cands)
	for _, i := range cands {
		f := ix.features[i]
		if !featureContains(f, pt) {
			continue
		}
		// 首个精确包含者即为结果；其名称为空时返回无结果，不再尝试后续重叠要素
		name := f.Props[ix.nameColumn]
		if name == "" {
			metrics.BoundaryLookupsTotal.WithLabelValues("unnamed").Inc()
			return "", false
		}
		metrics.BoundaryLookupsTotal.WithLabelValues("hit").Inc()
		return name, true
	}
	metrics.BoundaryLookupsTotal.WithLabelValues("miss").Inc()
	return "", false
}

// Loaded：索引是否已成功加载
func (ix *Index) Loaded() bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.loaded
}

// Len：已加载要素数
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.features)
}

// Err：加载失败时记录的错误
func (ix *Index) Err() error {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.err
}
