package boundary

import (
	"archive/zip"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const squaresGeoJSON = `{
  "type": "FeatureCollection",
  "crs": {"type": "name", "properties": {"name": "urn:ogc:def:crs:OGC:1.3:CRS84"}},
  "features": [
    {"type": "Feature", "properties": {"Name": "CENTRAL", "code": 1},
     "geometry": {"type": "Polygon", "coordinates": [
       [[103.80,1.28],[103.86,1.28],[103.86,1.32],[103.80,1.32],[103.80,1.28]],
       [[103.82,1.29],[103.83,1.29],[103.83,1.30],[103.82,1.30],[103.82,1.29]]
     ]}},
    {"type": "Feature", "properties": {"Name": "EAST", "code": 2},
     "geometry": {"type": "MultiPolygon", "coordinates": [
       [[[103.90,1.30],[103.96,1.30],[103.96,1.36],[103.90,1.36],[103.90,1.30]]],
       [[[104.00,1.40],[104.02,1.40],[104.02,1.42],[104.00,1.42],[104.00,1.40]]]
     ]}},
    {"type": "Feature", "properties": {"Name": "OVERLAP", "code": 3},
     "geometry": {"type": "Polygon", "coordinates": [
       [[103.84,1.30],[103.88,1.30],[103.88,1.34],[103.84,1.34],[103.84,1.30]]
     ]}},
    {"type": "Feature", "properties": {"Name": null, "code": 4},
     "geometry": {"type": "Polygon", "coordinates": [
       [[103.60,1.30],[103.70,1.30],[103.70,1.40],[103.60,1.40],[103.60,1.30]]
     ]}}
  ]
}`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func loadedIndex(t *testing.T) *Index {
	t.Helper()
	ix := NewIndex("Name")
	require.NoError(t, ix.Load(writeFile(t, "eld.geojson", squaresGeoJSON)))
	return ix
}

func TestLocate_GeoJSON(t *testing.T) {
	ix := loadedIndex(t)
	assert.True(t, ix.Loaded())
	assert.Equal(t, 4, ix.Len())

	name, ok := ix.Locate(1.285, 103.81)
	assert.True(t, ok)
	assert.Equal(t, "CENTRAL", name)

	name, ok = ix.Locate(1.41, 104.01)
	assert.True(t, ok)
	assert.Equal(t, "EAST", name)

	_, ok = ix.Locate(1.0, 100.0)
	assert.False(t, ok)
}

func TestLocate_Hole(t *testing.T) {
	ix := loadedIndex(t)

	_, ok := ix.Locate(1.295, 103.825)
	assert.False(t, ok)
}

func TestLocate_AxisOrder(t *testing.T) {
	ix := loadedIndex(t)

	_, ok := ix.Locate(1.285, 103.81)
	assert.True(t, ok)
	_, ok = ix.Locate(103.81, 1.285)
	assert.False(t, ok)
}

func TestLocate_FirstInLayerOrderWins(t *testing.T) {
	ix := loadedIndex(t)

	// CENTRAL 与 OVERLAP 在 [103.84,103.86]x[1.30,1.32] 重叠
	for i := 0; i < 10; i++ {
		name, ok := ix.Locate(1.31, 103.85)
		require.True(t, ok)
		assert.Equal(t, "CENTRAL", name)
	}
}

func TestLocate_NullNameSkipped(t *testing.T) {
	ix := loadedIndex(t)

	_, ok := ix.Locate(1.35, 103.65)
	assert.False(t, ok)
}

const unnamedFirstGeoJSON = `{"type": "FeatureCollection", "features": [
  {"type": "Feature", "properties": {"Name": ""},
   "geometry": {"type": "Polygon", "coordinates": [[[103.80,1.28],[103.86,1.28],[103.86,1.32],[103.80,1.32],[103.80,1.28]]]}},
  {"type": "Feature", "properties": {"Name": "UNDER"},
   "geometry": {"type": "Polygon", "coordinates": [[[103.80,1.28],[103.86,1.28],[103.86,1.32],[103.80,1.32],[103.80,1.28]]]}},
  {"type": "Feature", "properties": {"Name": "BESIDE"},
   "geometry": {"type": "Polygon", "coordinates": [[[103.90,1.28],[103.96,1.28],[103.96,1.32],[103.90,1.32],[103.90,1.28]]]}}
]}`

func TestLocate_UnnamedFirstMatchIsNull(t *testing.T) {
	ix := NewIndex("Name")
	require.NoError(t, ix.Load(writeFile(t, "eld.geojson", unnamedFirstGeoJSON)))

	name, ok := ix.Locate(1.30, 103.83)
	assert.False(t, ok)
	assert.Empty(t, name)

	name, ok = ix.Locate(1.30, 103.93)
	assert.True(t, ok)
	assert.Equal(t, "BESIDE", name)
}

func TestLoad_Idempotent(t *testing.T) {
	ix := loadedIndex(t)
	require.NoError(t, ix.Load("/does/not/matter.geojson"))
	assert.Equal(t, 4, ix.Len())
}

func TestLoad_MissingColumn(t *testing.T) {
	ix := NewIndex("ED_DESC")
	err := ix.Load(writeFile(t, "eld.geojson", squaresGeoJSON))
	require.ErrorIs(t, err, ErrMissingColumn)
	assert.Contains(t, err.Error(), "available: Name, code")
	assert.False(t, ix.Loaded())
}

func TestLoad_BrokenSourceDisablesIndex(t *testing.T) {
	ix := NewIndex("Name")
	err := ix.Load(filepath.Join(t.TempDir(), "missing.kml"))
	require.ErrorIs(t, err, ErrNotFound)

	_, ok := ix.Locate(1.285, 103.81)
	assert.False(t, ok)

	// 失败后不再重试
	err = ix.Load(writeFile(t, "eld.geojson", squaresGeoJSON))
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, ix.Loaded())
	assert.ErrorIs(t, ix.Err(), ErrNotFound)
}

func TestLoad_MalformedAndUnknownFormat(t *testing.T) {
	err := NewIndex("Name").Load(writeFile(t, "bad.geojson", `{"type":`))
	assert.ErrorIs(t, err, ErrFormat)

	err = NewIndex("Name").Load(writeFile(t, "eld.shp", "xx"))
	assert.ErrorIs(t, err, ErrFormat)
}

func TestLocate_NotLoaded(t *testing.T) {
	_, ok := NewIndex("Name").Locate(1.3, 103.8)
	assert.False(t, ok)
}

func TestLoad_UnsupportedCRS(t *testing.T) {
	src := `{"type":"FeatureCollection","crs":{"type":"name","properties":{"name":"EPSG:27700"}},"features":[]}`
	err := NewIndex("Name").Load(writeFile(t, "uk.geojson", src))
	assert.ErrorIs(t, err, ErrUnsupportedCRS)
}

func TestLoad_WebMercator(t *testing.T) {
	// 约 [103.8,103.9]x[1.25,1.35] 的 EPSG:3857 方框
	x0, x1 := 11555101.0, 11566233.0
	y0, y1 := 139163.0, 150300.0
	src := `{"type":"FeatureCollection","crs":{"type":"name","properties":{"name":"urn:ogc:def:crs:EPSG::3857"}},
	"features":[{"type":"Feature","properties":{"Name":"MERC"},"geometry":{"type":"Polygon","coordinates":[[` +
		pt(x0, y0) + "," + pt(x1, y0) + "," + pt(x1, y1) + "," + pt(x0, y1) + "," + pt(x0, y0) + `]]}}]}`
	ix := NewIndex("Name")
	require.NoError(t, ix.Load(writeFile(t, "merc.geojson", src)))

	name, ok := ix.Locate(1.30, 103.85)
	assert.True(t, ok)
	assert.Equal(t, "MERC", name)
}

func pt(x, y float64) string {
	return "[" + strconv.FormatFloat(x, 'f', -1, 64) + "," + strconv.FormatFloat(y, 'f', -1, 64) + "]"
}

func TestSVY21ToWGS84(t *testing.T) {
	lat, lon := svy21ToWGS84(svyOEast, svyONorth)
	assert.InDelta(t, svyOLat, lat, 1e-6)
	assert.InDelta(t, svyOLon, lon, 1e-6)

	lat, lon = svy21ToWGS84(21362.157768534258, 30811.26429645264)
	assert.InDelta(t, 1.2949192688485278, lat, 1e-6)
	assert.InDelta(t, 103.77367436885834, lon, 1e-6)
}

func TestWebMercatorToWGS84(t *testing.T) {
	lat, lon := webMercatorToWGS84(0, 0)
	assert.InDelta(t, 0, lat, 1e-9)
	assert.InDelta(t, 0, lon, 1e-9)

	lat, _ = webMercatorToWGS84(0, earthRadius*math.Log(math.Tan(math.Pi/4+math.Pi/8)))
	assert.InDelta(t, 45, lat, 1e-9)
}

func TestParseCRS(t *testing.T) {
	for _, name := range []string{"EPSG:4326", "urn:ogc:def:crs:EPSG::4326", "urn:ogc:def:crs:OGC:1.3:CRS84"} {
		k, err := parseCRS(name)
		require.NoError(t, err, name)
		assert.Equal(t, crsWGS84, k)
	}
	k, err := parseCRS("urn:ogc:def:crs:EPSG::3414")
	require.NoError(t, err)
	assert.Equal(t, crsSVY21, k)

	_, err = parseCRS("something")
	assert.ErrorIs(t, err, ErrUnsupportedCRS)
}

const sampleKML = `<?xml version="1.0" encoding="UTF-8"?>
<kml xmlns="http://www.opengis.net/kml/2.2">
<Document><Folder>
  <Placemark>
    <name>MARINE PARADE-BRADDELL HEIGHTS</name>
    <description>GRC</description>
    <ExtendedData><SchemaData schemaUrl="#eld">
      <SimpleData name="ED_DESC">MARINE PARADE-BRADDELL HEIGHTS</SimpleData>
    </SchemaData></ExtendedData>
    <MultiGeometry>
      <Polygon>
        <outerBoundaryIs><LinearRing><coordinates>
          103.88,1.29,0 103.94,1.29,0 103.94,1.33,0 103.88,1.33,0 103.88,1.29,0
        </coordinates></LinearRing></outerBoundaryIs>
        <innerBoundaryIs><LinearRing><coordinates>
          103.90,1.30 103.91,1.30 103.91,1.31 103.90,1.31 103.90,1.30
        </coordinates></LinearRing></innerBoundaryIs>
      </Polygon>
      <Polygon>
        <outerBoundaryIs><LinearRing><coordinates>
          103.95,1.20 103.97,1.20 103.97,1.22 103.95,1.22 103.95,1.20
        </coordinates></LinearRing></outerBoundaryIs>
      </Polygon>
    </MultiGeometry>
  </Placemark>
</Folder></Document>
</kml>`

func TestLoad_KML(t *testing.T) {
	ix := NewIndex("Name")
	require.NoError(t, ix.Load(writeFile(t, "doc.kml", sampleKML)))

	name, ok := ix.Locate(1.32, 103.89)
	assert.True(t, ok)
	assert.Equal(t, "MARINE PARADE-BRADDELL HEIGHTS", name)

	_, ok = ix.Locate(1.305, 103.905)
	assert.False(t, ok, "point in inner boundary")

	_, ok = ix.Locate(1.21, 103.96)
	assert.True(t, ok, "second polygon of multigeometry")
}

func TestLoad_KMLExtendedColumn(t *testing.T) {
	ix := NewIndex("ED_DESC")
	require.NoError(t, ix.Load(writeFile(t, "doc.kml", sampleKML)))
	name, ok := ix.Locate(1.32, 103.89)
	assert.True(t, ok)
	assert.Equal(t, "MARINE PARADE-BRADDELL HEIGHTS", name)

	err := NewIndex("Constituency").Load(writeFile(t, "doc.kml", sampleKML))
	require.ErrorIs(t, err, ErrMissingColumn)
	assert.Contains(t, err.Error(), "Description, ED_DESC, Name")
}

func TestLoad_KMZ(t *testing.T) {
	p := filepath.Join(t.TempDir(), "eld.kmz")
	f, err := os.Create(p)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	w, err := zw.Create("doc.kml")
	require.NoError(t, err)
	_, err = w.Write([]byte(sampleKML))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	ix := NewIndex("Name")
	require.NoError(t, ix.Load(p))
	_, ok := ix.Locate(1.32, 103.89)
	assert.True(t, ok)
}
