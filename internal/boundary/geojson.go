package boundary

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tidwall/gjson"
)

// 文档注释：解析 GeoJSON 边界图层
// 背景：支持 FeatureCollection 与单个 Feature；几何为 Polygon / MultiPolygon（含洞）；可选 crs 成员声明坐标系。
// 返回：图层、坐标系与是否显式声明了坐标系。
// 约束：属性值统一转为字符串（null 视为缺失）；非面几何的要素保留属性但不参与空间命中。
func parseGeoJSON(b []byte) (*Layer, crsKind, bool, error) {
	if !gjson.ValidBytes(b) {
		return nil, 0, false, fmt.Errorf("%w: malformed GeoJSON", ErrFormat)
	}
	root := gjson.ParseBytes(b)
	kind, declared := crsWGS84, false
	if name := root.Get("crs.properties.name"); name.Exists() && name.String() != "" {
		k, err := parseCRS(name.String())
		if err != nil {
			return nil, 0, false, err
		}
		kind, declared = k, true
	}

	var feats []gjson.Result
	switch strings.ToLower(root.Get("type").String()) {
	case "featurecollection":
		feats = root.Get("features").Array()
	case "feature":
		feats = []gjson.Result{root}
	default:
		return nil, 0, false, fmt.Errorf("%w: unsupported GeoJSON type %q", ErrFormat, root.Get("type").String())
	}

	cols := map[string]struct{}{}
	layer := &Layer{}
	for _, f := range feats {
		ft := Feature{Props: map[string]string{}}
		f.Get("properties").ForEach(func(k, v gjson.Result) bool {
			cols[k.String()] = struct{}{}
			if v.Type != gjson.Null {
				ft.Props[k.String()] = v.String()
			}
			return true
		})
		ft.Polys = polysFromGeometry(f.Get("geometry"))
		layer.Features = append(layer.Features, ft)
	}
	layer.Columns = sortedKeys(cols)
	return layer, kind, declared, nil
}

func polysFromGeometry(g gjson.Result) []Polygon {
	coords := g.Get("coordinates").Array()
	switch strings.ToLower(g.Get("type").String()) {
	case "polygon":
		return []Polygon{polygonFromRings(coords)}
	case "multipolygon":
		out := make([]Polygon, 0, len(coords))
		for _, part := range coords {
			out = append(out, polygonFromRings(part.Array()))
		}
		return out
	case "geometrycollection":
		var out []Polygon
		for _, sub := range g.Get("geometries").Array() {
			out = append(out, polysFromGeometry(sub)...)
		}
		return out
	}
	return nil
}

func polygonFromRings(rings []gjson.Result) Polygon {
	var poly Polygon
	for _, ring := range rings {
		var rr []Point
		for _, p := range ring.Array() {
			vv := p.Array()
			if len(vv) < 2 {
				continue
			}
			rr = append(rr, Point{Lon: vv[0].Float(), Lat: vv[1].Float()})
		}
		poly.Rings = append(poly.Rings, rr)
	}
	poly.BBox = computeBBox(poly)
	return poly
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
