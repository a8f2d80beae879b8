package boundary

import "errors"

// 文档注释：选区边界图层的最小数据结构
// 背景：统一承载 GeoJSON 与 KML 读入后的要素；几何按 WGS84 经纬度存储，常驻内存供点查询。
// 约束：多面以多个 Polygon 表达；每个 Polygon 的第一环为外环，其后为洞。
type Layer struct {
	// Columns 为图层的属性列（所有要素属性键的并集）
	Columns  []string
	Features []Feature
}

// Feature：单个要素，Props 为属性列的字符串值
type Feature struct {
	Props map[string]string
	Polys []Polygon
}

// Polygon：环集合，第一环是外环，其后为洞
type Polygon struct {
	Rings [][]Point
	BBox  [4]float64 // minLon, minLat, maxLon, maxLat
}

// 点坐标（WGS84）
type Point struct {
	Lat float64
	Lon float64
}

var (
	// ErrMissingColumn：图层中不存在配置的名称列
	ErrMissingColumn = errors.New("boundary name column not found")
	// ErrUnsupportedCRS：图层声明了无法转换的坐标系
	ErrUnsupportedCRS = errors.New("unsupported boundary CRS")
	// ErrNotFound：边界文件不存在
	ErrNotFound = errors.New("boundary file not found")
	// ErrFormat：无法识别或解析的边界文件
	ErrFormat = errors.New("invalid boundary file")
)

func computeBBox(p Polygon) [4]float64 {
	b := [4]float64{180, 90, -180, -90}
	for _, r := range p.Rings {
		for _, pt := range r {
			if pt.Lon < b[0] {
				b[0] = pt.Lon
			}
			if pt.Lat < b[1] {
				b[1] = pt.Lat
			}
			if pt.Lon > b[2] {
				b[2] = pt.Lon
			}
			if pt.Lat > b[3] {
				b[3] = pt.Lat
			}
		}
	}
	return b
}

// transform：对图层内所有顶点应用坐标转换并重算包围盒
func (l *Layer) transform(fn func(x, y float64) (lat, lon float64)) {
	for fi := range l.Features {
		f := &l.Features[fi]
		for pi := range f.Polys {
			p := &f.Polys[pi]
			for _, r := range p.Rings {
				for i, pt := range r {
					lat, lon := fn(pt.Lon, pt.Lat)
					r[i] = Point{Lat: lat, Lon: lon}
				}
			}
			p.BBox = computeBBox(*p)
		}
	}
}
