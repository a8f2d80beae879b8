package boundary

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"
)

type kmlPlacemark struct {
	Name        string       `xml:"name"`
	Description string       `xml:"description"`
	Extended    kmlExtended  `xml:"ExtendedData"`
	Polygons    []kmlPolygon `xml:"Polygon"`
	Multi       []kmlMulti   `xml:"MultiGeometry"`
}

type kmlExtended struct {
	Data       []kmlData `xml:"Data"`
	SchemaData []struct {
		SimpleData []kmlSimpleData `xml:"SimpleData"`
	} `xml:"SchemaData"`
}

type kmlData struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value"`
}

type kmlSimpleData struct {
	Name  string `xml:"name,attr"`
	Value string `xml:",chardata"`
}

type kmlMulti struct {
	Polygons []kmlPolygon `xml:"Polygon"`
	Multi    []kmlMulti   `xml:"MultiGeometry"`
}

type kmlPolygon struct {
	Outer string   `xml:"outerBoundaryIs>LinearRing>coordinates"`
	Inner []string `xml:"innerBoundaryIs>LinearRing>coordinates"`
}

// 文档注释：解析 KML 边界图层
// 背景：选区边界常以 KML 发布；要素名在 <name>，其余属性在 ExtendedData（Data 或 SchemaData/SimpleData）。
// 约束：属性列固定包含 Name 与 Description；KML 坐标恒为 WGS84 的 "lon,lat[,alt]"。
func parseKML(r io.Reader) (*Layer, error) {
	dec := xml.NewDecoder(r)
	cols := map[string]struct{}{"Name": {}, "Description": {}}
	layer := &Layer{}
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFormat, err)
		}
		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "Placemark" {
			continue
		}
		var pm kmlPlacemark
		if err := dec.DecodeElement(&pm, &se); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFormat, err)
		}
		ft := Feature{Props: map[string]string{
			"Name":        strings.TrimSpace(pm.Name),
			"Description": strings.TrimSpace(pm.Description),
		}}
		for _, d := range pm.Extended.Data {
			cols[d.Name] = struct{}{}
			ft.Props[d.Name] = strings.TrimSpace(d.Value)
		}
		for _, sd := range pm.Extended.SchemaData {
			for _, d := range sd.SimpleData {
				cols[d.Name] = struct{}{}
				ft.Props[d.Name] = strings.TrimSpace(d.Value)
			}
		}
		for _, p := range pm.Polygons {
			ft.Polys = append(ft.Polys, p.polygon())
		}
		for _, m := range pm.Multi {
			ft.Polys = append(ft.Polys, m.polygons()...)
		}
		layer.Features = append(layer.Features, ft)
	}
	if len(layer.Features) == 0 {
		return nil, fmt.Errorf("%w: no placemarks", ErrFormat)
	}
	layer.Columns = sortedKeys(cols)
	return layer, nil
}

func (m kmlMulti) polygons() []Polygon {
	var out []Polygon
	for _, p := range m.Polygons {
		out = append(out, p.polygon())
	}
	for _, sub := range m.Multi {
		out = append(out, sub.polygons()...)
	}
	return out
}

func (p kmlPolygon) polygon() Polygon {
	var poly Polygon
	poly.Rings = append(poly.Rings, parseCoordinates(p.Outer))
	for _, in := range p.Inner {
		poly.Rings = append(poly.Rings, parseCoordinates(in))
	}
	poly.BBox = computeBBox(poly)
	return poly
}

func parseCoordinates(s string) []Point {
	var out []Point
	for _, tuple := range strings.Fields(s) {
		parts := strings.Split(tuple, ",")
		if len(parts) < 2 {
			continue
		}
		lon, err1 := strconv.ParseFloat(parts[0], 64)
		lat, err2 := strconv.ParseFloat(parts[1], 64)
		if err1 != nil || err2 != nil {
			continue
		}
		out = append(out, Point{Lat: lat, Lon: lon})
	}
	return out
}

// parseKMZ：KMZ 为 zip 包，优先读取 doc.kml，否则取第一个 .kml 文件
func parseKMZ(b []byte) (*Layer, error) {
	zr, err := zip.NewReader(bytes.NewReader(b), int64(len(b)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	var pick *zip.File
	for _, f := range zr.File {
		if !strings.EqualFold(path.Ext(f.Name), ".kml") {
			continue
		}
		if strings.EqualFold(path.Base(f.Name), "doc.kml") {
			pick = f
			break
		}
		if pick == nil {
			pick = f
		}
	}
	if pick == nil {
		return nil, fmt.Errorf("%w: no .kml inside archive", ErrFormat)
	}
	rc, err := pick.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	defer rc.Close()
	return parseKML(rc)
}
