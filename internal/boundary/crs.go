package boundary

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// crsKind：支持的坐标系
type crsKind int

const (
	crsWGS84 crsKind = iota
	crsWebMercator
	crsSVY21
)

// 文档注释：解析 GeoJSON crs 名称
// 背景：旧版 GeoJSON 以 "EPSG:4326"、"urn:ogc:def:crs:EPSG::3414"、"urn:ogc:def:crs:OGC:1.3:CRS84" 等形式声明坐标系。
// 约束：只识别 WGS84、Web Mercator（3857/900913）与 SVY21（3414）；其余返回 ErrUnsupportedCRS。
func parseCRS(name string) (crsKind, error) {
	s := strings.ToUpper(strings.TrimSpace(name))
	if strings.HasSuffix(s, "CRS84") {
		return crsWGS84, nil
	}
	code := s
	if i := strings.LastIndex(s, ":"); i >= 0 {
		code = s[i+1:]
	}
	n, err := strconv.Atoi(code)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedCRS, name)
	}
	switch n {
	case 4326:
		return crsWGS84, nil
	case 3857, 900913, 3785:
		return crsWebMercator, nil
	case 3414:
		return crsSVY21, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedCRS, name)
}

const earthRadius = 6378137.0

// webMercatorToWGS84：EPSG:3857 米制坐标转经纬度
func webMercatorToWGS84(x, y float64) (lat, lon float64) {
	lon = x / earthRadius * 180 / math.Pi
	lat = (2*math.Atan(math.Exp(y/earthRadius)) - math.Pi/2) * 180 / math.Pi
	return lat, lon
}

// SVY21 横轴墨卡托投影参数（WGS84 椭球）
const (
	svyA      = 6378137.0
	svyF      = 1 / 298.257223563
	svyOLat   = 1.366666
	svyOLon   = 103.833333
	svyONorth = 38744.572
	svyOEast  = 28001.642
	svyK      = 1.0
)

var (
	svyB  = svyA * (1 - svyF)
	svyE2 = 2*svyF - svyF*svyF
	svyE4 = svyE2 * svyE2
	svyE6 = svyE4 * svyE2
	svyA0 = 1 - svyE2/4 - 3*svyE4/64 - 5*svyE6/256
	svyA2 = 3.0 / 8.0 * (svyE2 + svyE4/4 + 15*svyE6/128)
	svyA4 = 15.0 / 256.0 * (svyE4 + 3*svyE6/4)
	svyA6 = 35 * svyE6 / 3072
)

func svyMeridian(latDeg float64) float64 {
	r := latDeg * math.Pi / 180
	return svyA * (svyA0*r - svyA2*math.Sin(2*r) + svyA4*math.Sin(4*r) - svyA6*math.Sin(6*r))
}

// 文档注释：SVY21（EPSG:3414）平面坐标转 WGS84 经纬度
// 背景：新加坡官方数据集常以 SVY21 发布；横轴墨卡托反算采用级数展开。
// 约束：x 为东坐标、y 为北坐标（米）；在新加坡范围内误差远小于 1 米。
func svy21ToWGS84(x, y float64) (lat, lon float64) {
	n := (svyA - svyB) / (svyA + svyB)
	n2, n3, n4 := n*n, n*n*n, n*n*n*n
	g := svyA * (1 - n) * (1 - n2) * (1 + 9*n2/4 + 225*n4/64) * (math.Pi / 180)

	mPrime := svyMeridian(svyOLat) + (y-svyONorth)/svyK
	sigma := mPrime * math.Pi / (180 * g)
	latP := sigma + (3*n/2-27*n3/32)*math.Sin(2*sigma) +
		(21*n2/16-55*n4/32)*math.Sin(4*sigma) +
		(151*n3/96)*math.Sin(6*sigma) +
		(1097*n4/512)*math.Sin(8*sigma)

	sinLat := math.Sin(latP)
	sin2 := sinLat * sinLat
	rho := svyA * (1 - svyE2) / math.Pow(1-svyE2*sin2, 1.5)
	v := svyA / math.Sqrt(1-svyE2*sin2)
	psi := v / rho
	psi2, psi3, psi4 := psi*psi, psi*psi*psi, psi*psi*psi*psi
	t := math.Tan(latP)
	t2, t4, t6 := t*t, t*t*t*t, t*t*t*t*t*t

	e := x - svyOEast
	xx := e / (svyK * v)
	x3, x5, x7 := xx*xx*xx, math.Pow(xx, 5), math.Pow(xx, 7)

	lf := t / (svyK * rho)
	lt1 := lf * (e * xx / 2)
	lt2 := lf * (e * x3 / 24) * (-4*psi2 + 9*psi*(1-t2) + 12*t2)
	lt3 := lf * (e * x5 / 720) * (8*psi4*(11-24*t2) - 12*psi3*(21-71*t2) + 15*psi2*(15-98*t2+15*t4) + 180*psi*(5*t2-3*t4) + 360*t4)
	lt4 := lf * (e * x7 / 40320) * (1385 - 3633*t2 + 4095*t4 + 1575*t6)
	latR := latP - lt1 + lt2 - lt3 + lt4

	sec := 1 / math.Cos(latP)
	lo1 := xx * sec
	lo2 := x3 * sec / 6 * (psi + 2*t2)
	lo3 := x5 * sec / 120 * (-4*psi3*(1-6*t2) + psi2*(9-68*t2) + 72*psi*t2 + 24*t4)
	lo4 := x7 * sec / 5040 * (61 + 662*t2 + 1320*t4 + 720*t6)
	lonR := svyOLon*math.Pi/180 + lo1 - lo2 + lo3 - lo4

	return latR * 180 / math.Pi, lonR * 180 / math.Pi
}

// reproject：按坐标系把图层转换为 WGS84
func (l *Layer) reproject(k crsKind) {
	switch k {
	case crsWebMercator:
		l.transform(webMercatorToWGS84)
	case crsSVY21:
		l.transform(svy21ToWGS84)
	}
}
