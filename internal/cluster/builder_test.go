package cluster

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsmap/internal/boundary"
	"newsmap/internal/gazetteer"
	"newsmap/internal/geocode"
	"newsmap/internal/model"
)

type mapResolver struct {
	coords map[string]model.Coords
	calls  []string
}

func (m *mapResolver) Resolve(_ context.Context, name string) (*model.Coords, bool) {
	m.calls = append(m.calls, name)
	c, ok := m.coords[name]
	if !ok {
		return nil, false
	}
	return &c, true
}

type countingLocator struct {
	name  string
	calls int
}

func (l *countingLocator) Locate(lat, lon float64) (string, bool) {
	l.calls++
	if l.name == "" {
		return "", false
	}
	return l.name, true
}

func TestLocate_FirstResolvableMentionWins(t *testing.T) {
	m := gazetteer.New([]string{"Bedok", "Tampines", "Singapore"}, gazetteer.Fallback("Singapore"))
	r := &mapResolver{coords: map[string]model.Coords{
		"Tampines":  {Lat: 1.3496, Lon: 103.9568},
		"Singapore": {Lat: 1.3521, Lon: 103.8198},
	}}
	b := NewBuilder(m, r, nil)

	got := b.Locate(context.Background(), []model.Article{
		{Title: "Singapore: Bedok and Tampines upgrades", URL: "u1"},
	})
	require.Len(t, got, 1)
	assert.Equal(t, "Tampines", got[0].LocationName)
	assert.Equal(t, []string{"Bedok", "Tampines"}, r.calls)
}

func TestLocate_DropsUnlocatable(t *testing.T) {
	m := gazetteer.New([]string{"Bedok"})
	r := &mapResolver{coords: map[string]model.Coords{}}
	b := NewBuilder(m, r, nil)

	got := b.Locate(context.Background(), []model.Article{
		{Title: "Markets rally", URL: "u1"},
		{Title: "Bedok flooding", URL: "u2"},
	})
	assert.Empty(t, got)
	assert.NotNil(t, got)
}

func TestGroup_DedupAndConstituencyOnce(t *testing.T) {
	loc := &countingLocator{name: "MARINE PARADE"}
	b := NewBuilder(gazetteer.New(nil), &mapResolver{}, loc)
	c := model.Coords{Lat: 1.30241, Lon: 103.90732}

	got := b.Group([]model.LocatedArticle{
		{Article: model.Article{Title: "A", URL: "u1"}, LocationName: "Marine Parade", Coords: c},
		{Article: model.Article{Title: "A again", URL: "u1"}, LocationName: "Katong", Coords: c},
		{Article: model.Article{Title: "B", URL: "u2"}, LocationName: "Katong", Coords: model.Coords{Lat: 1.302411, Lon: 103.907321}},
	})
	require.Len(t, got, 1)
	assert.Equal(t, 2, got[0].ArticleCount)
	assert.Len(t, got[0].Articles, 2)
	assert.Equal(t, "A", got[0].Articles[0].Title)
	assert.Equal(t, "Marine Parade", got[0].LocationName)
	require.NotNil(t, got[0].Constituency)
	assert.Equal(t, "MARINE PARADE", *got[0].Constituency)
	assert.Equal(t, 1, loc.calls)
}

func TestGroup_FirstEncounterOrder(t *testing.T) {
	b := NewBuilder(gazetteer.New(nil), &mapResolver{}, &countingLocator{})
	in := []model.LocatedArticle{
		{Article: model.Article{URL: "a"}, LocationName: "Yishun", Coords: model.Coords{Lat: 1.43, Lon: 103.83}},
		{Article: model.Article{URL: "b"}, LocationName: "Bedok", Coords: model.Coords{Lat: 1.32, Lon: 103.93}},
		{Article: model.Article{URL: "c"}, LocationName: "Yishun", Coords: model.Coords{Lat: 1.43, Lon: 103.83}},
	}

	first := b.Group(in)
	require.Len(t, first, 2)
	assert.Equal(t, "Yishun", first[0].LocationName)
	assert.Equal(t, "Bedok", first[1].LocationName)
	assert.Nil(t, first[0].Constituency)

	a, _ := json.Marshal(first)
	again, _ := json.Marshal(b.Group(in))
	assert.JSONEq(t, string(a), string(again))
}

func TestBuild_EmptyInput(t *testing.T) {
	b := NewBuilder(gazetteer.Default(), &mapResolver{}, nil)

	got := b.Build(context.Background(), nil)
	require.NotNil(t, got)
	assert.Empty(t, got)

	raw, err := json.Marshal(got)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(raw))
}

type orchardProvider struct{ calls int }

func (p *orchardProvider) Lookup(_ context.Context, query string) (*model.Coords, error) {
	p.calls++
	if query == "Orchard Road, Singapore" {
		return &model.Coords{Lat: 1.3048, Lon: 103.8318}, nil
	}
	return nil, nil
}

const centralGeoJSON = `{"type":"FeatureCollection","features":[
 {"type":"Feature","properties":{"Name":"TANJONG PAGAR"},
  "geometry":{"type":"Polygon","coordinates":[[[103.80,1.27],[103.86,1.27],[103.86,1.32],[103.80,1.32],[103.80,1.27]]]}}]}`

func TestBuild_OrchardRoadEndToEnd(t *testing.T) {
	p := filepath.Join(t.TempDir(), "eld.geojson")
	require.NoError(t, os.WriteFile(p, []byte(centralGeoJSON), 0o644))
	ix := boundary.NewIndex("Name")
	require.NoError(t, ix.Load(p))

	prov := &orchardProvider{}
	res := geocode.NewResolver(prov, nil, geocode.Options{})
	b := NewBuilder(gazetteer.Default(), res, ix)

	got := b.Build(context.Background(), []model.Article{
		{Title: "New flagship store on Orchard Road", URL: "https://example.sg/a", Source: "ST"},
		{Title: "Orchard Road festive lights switched on", Summary: "Crowds gather.", URL: "https://example.sg/b", Source: "CNA"},
		{Title: "Orchard Road festive lights switched on", URL: "https://example.sg/b", Source: "CNA"},
	})
	require.Len(t, got, 1)
	c := got[0]
	assert.Equal(t, 1.3048, c.Latitude)
	assert.Equal(t, 103.8318, c.Longitude)
	assert.Equal(t, "Orchard Road", c.LocationName)
	assert.Equal(t, 2, c.ArticleCount)
	require.NotNil(t, c.Constituency)
	assert.Equal(t, "TANJONG PAGAR", *c.Constituency)
	assert.Equal(t, 1, prov.calls)
}

func TestBuild_BoundaryUnavailable(t *testing.T) {
	ix := boundary.NewIndex("Name")
	require.Error(t, ix.Load(filepath.Join(t.TempDir(), "missing.geojson")))

	r := &mapResolver{coords: map[string]model.Coords{"Bedok": {Lat: 1.32, Lon: 103.93}}}
	got := NewBuilder(gazetteer.New([]string{"Bedok"}), r, ix).Build(context.Background(), []model.Article{
		{Title: "Bedok market reopens", URL: "u1"},
	})
	require.Len(t, got, 1)
	assert.Nil(t, got[0].Constituency)
}
