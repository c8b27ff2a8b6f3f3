package parser

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maltedev/flipkart-scraper/internal/models"
	"github.com/maltedev/flipkart-scraper/pkg/logger"
)

func newTestParser() *LayoutParser {
	return NewLayoutParser(DefaultTables(), logger.Discard())
}

func doc(t *testing.T, html string) *goquery.Selection {
	t.Helper()
	d, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return d.Selection
}

func TestDefaultTables(t *testing.T) {
	tables := DefaultTables()

	assert.NotEmpty(t, tables.Version)
	assert.Equal(t, "[data-id]", tables.Container.Selectors[0])
	assert.Equal(t, ".KzDlHZ", tables.Title.Selectors[0])
	assert.Equal(t, ModeText, tables.Title.Mode)
	assert.Equal(t, "title", tables.Title.Attr)
	assert.Equal(t, ModeAttr, tables.Image.Mode)
	assert.Equal(t, []string{"src", "data-src", "data-original"}, tables.Image.Attrs)
	assert.Len(t, tables.Readiness.Selectors, 6)
}

func TestParseTablesDropsDuplicates(t *testing.T) {
	yml := `
version: test
readiness: {selectors: [".a"]}
container: {selectors: [".c", ".d", ".c"]}
title: {selectors: [".t"]}
price: {selectors: [".p"]}
image: {mode: attr, attrs: [src], selectors: ["img", "img"]}
`
	tables, err := ParseTables([]byte(yml))
	require.NoError(t, err)
	assert.Equal(t, []string{".c", ".d"}, tables.Container.Selectors)
	assert.Equal(t, []string{"img"}, tables.Image.Selectors)
}

func TestParseTablesRejectsInvalid(t *testing.T) {
	tests := map[string]string{
		"bad yaml":        "container: [",
		"empty cascade":   "readiness: {selectors: []}\ncontainer: {selectors: [a]}\ntitle: {selectors: [a]}\nprice: {selectors: [a]}\nimage: {mode: attr, attrs: [src], selectors: [img]}",
		"bad selector":    "readiness: {selectors: [a]}\ncontainer: {selectors: ['div[']}\ntitle: {selectors: [a]}\nprice: {selectors: [a]}\nimage: {mode: attr, attrs: [src], selectors: [img]}",
		"image text mode": "readiness: {selectors: [a]}\ncontainer: {selectors: [a]}\ntitle: {selectors: [a]}\nprice: {selectors: [a]}\nimage: {selectors: [img]}",
		"unknown mode":    "readiness: {selectors: [a]}\ncontainer: {selectors: [a]}\ntitle: {mode: html, selectors: [a]}\nprice: {selectors: [a]}\nimage: {mode: attr, attrs: [src], selectors: [img]}",
	}

	for name, yml := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseTables([]byte(yml))
			assert.Error(t, err)
		})
	}
}

func TestLoadTables(t *testing.T) {
	path := filepath.Join(t.TempDir(), "selectors.yaml")
	require.NoError(t, os.WriteFile(path, defaultSelectors, 0o644))

	tables, err := LoadTables(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultTables(), tables)

	_, err = LoadTables(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestFindContainersFirstMatchWins(t *testing.T) {
	// Both the first and second selectors match; only the first is used.
	html := `<div>
		<div data-id="1">one</div>
		<div data-id="2">two</div>
		<div class="_75nlfW">three</div>
		<div class="_75nlfW">four</div>
		<div class="_75nlfW">five</div>
	</div>`

	containers, selector := FindContainers(doc(t, html), DefaultTables().Container)
	assert.Equal(t, "[data-id]", selector)
	assert.Equal(t, 2, containers.Length())
}

func TestFindContainersFallsThrough(t *testing.T) {
	html := `<div><div class="CGtC98">a</div><div class="CGtC98">b</div></div>`

	containers, selector := FindContainers(doc(t, html), DefaultTables().Container)
	assert.Equal(t, ".CGtC98", selector)
	assert.Equal(t, 2, containers.Length())
}

func TestFindContainersNoMatch(t *testing.T) {
	containers, selector := FindContainers(doc(t, `<p>nothing</p>`), DefaultTables().Container)
	assert.Equal(t, "", selector)
	assert.Equal(t, 0, containers.Length())
}

func TestExtractField(t *testing.T) {
	title := DefaultTables().Title

	tests := []struct {
		name  string
		html  string
		want  string
		found bool
	}{
		{
			name:  "text of first selector",
			html:  `<div><div class="KzDlHZ">  Phone   A </div><div class="_4rR01T">Other</div></div>`,
			want:  "Phone A",
			found: true,
		},
		{
			name:  "falls back to title attribute",
			html:  `<div><a title="Phone C" href="/p"><img src="x"></a></div>`,
			want:  "Phone C",
			found: true,
		},
		{
			name:  "empty node moves to next entry",
			html:  `<div><div class="KzDlHZ"> </div><div class="IRpwTa">Phone D</div></div>`,
			want:  "Phone D",
			found: true,
		},
		{
			name:  "nothing matches",
			html:  `<div><span>irrelevant</span></div>`,
			want:  "",
			found: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, found := ExtractField(doc(t, tt.html), title)
			assert.Equal(t, tt.found, found)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractFieldAttrMode(t *testing.T) {
	cascade := Cascade{Selectors: []string{"a"}, Mode: ModeAttr, Attrs: []string{"href"}}

	got, found := ExtractField(doc(t, `<div><a href="/p/phone-a">x</a></div>`), cascade)
	assert.True(t, found)
	assert.Equal(t, "/p/phone-a", got)
}

func TestExtractImage(t *testing.T) {
	image := DefaultTables().Image

	tests := []struct {
		name string
		html string
		want string
	}{
		{"absolute src", `<div><img src="https://img/a.jpg"></div>`, "https://img/a.jpg"},
		{"protocol relative", `<div><img src="//img/a.jpg"></div>`, "//img/a.jpg"},
		{"lazy data-src", `<div><img src="data:image/gif;base64,R0l" data-src="https://img/lazy.jpg"></div>`, "https://img/lazy.jpg"},
		{"data-original", `<div><img src="/rel.jpg" data-original="http://img/orig.jpg"></div>`, "http://img/orig.jpg"},
		{"relative only", `<div><img src="/rel.jpg"></div>`, ""},
		{"no image", `<div><span>x</span></div>`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, found := ExtractImage(doc(t, tt.html), image)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want != "", found)
		})
	}
}

func TestParseProductDefaults(t *testing.T) {
	p := newTestParser()

	rec, ok := p.ParseProduct(doc(t, `<div><div class="KzDlHZ">Phone B</div></div>`))
	require.True(t, ok)
	assert.Equal(t, "Phone B", rec.Title)
	assert.Equal(t, models.PriceUnavailable, rec.Price)
	assert.Equal(t, "", rec.ImageURL)

	_, ok = p.ParseProduct(doc(t, `<div><div class="Nx9bqj _4b5DiR">₹1</div></div>`))
	assert.False(t, ok, "a container without a title is dropped")
}

func TestParsePage(t *testing.T) {
	html := `<html><body>
		<div data-id="A1">
			<div class="KzDlHZ">Phone A</div>
			<div class="Nx9bqj _4b5DiR">₹9,999</div>
			<img class="DByuf4" src="https://rukminim2.flixcart.com/a.jpg">
		</div>
		<div data-id="B1">
			<div class="KzDlHZ">Phone B</div>
		</div>
		<div data-id="ad">
			<span>Sponsored</span>
		</div>
		<div data-id="C1">
			<a class="IRpwTa" title="Case C" href="/c"></a>
			<div class="_3tbFF2">₹299</div>
			<img src="data:image/png;base64,xx" data-src="//img/c.jpg">
		</div>
	</body></html>`

	got, err := newTestParser().ParsePage(html)
	require.NoError(t, err)

	want := []models.ProductRecord{
		{Title: "Phone A", Price: "₹9,999", ImageURL: "https://rukminim2.flixcart.com/a.jpg"},
		{Title: "Phone B", Price: "N/A", ImageURL: ""},
		{Title: "Case C", Price: "₹299", ImageURL: "//img/c.jpg"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ParsePage() mismatch (-want +got):\n%s", diff)
	}

	for _, rec := range got {
		assert.NotEmpty(t, rec.Title)
		assert.NotEmpty(t, rec.Price)
		assert.True(t, rec.ImageURL == "" || models.IsImageURL(rec.ImageURL))
	}
}

func TestParsePageUnknownLayout(t *testing.T) {
	got, err := newTestParser().ParsePage(`<html><body><div class="captcha">are you human?</div></body></html>`)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestParsePageEmptyMarkup(t *testing.T) {
	got, err := newTestParser().ParsePage("")
	require.NoError(t, err)
	assert.Empty(t, got)
}
