package parser

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/maltedev/flipkart-scraper/internal/models"
)

// LayoutParser turns search-result markup into product records. It tolerates
// several page layouts by trying each cascade entry in order.
type LayoutParser struct {
	tables Tables
	logger *slog.Logger
}

func NewLayoutParser(tables Tables, logger *slog.Logger) *LayoutParser {
	return &LayoutParser{
		tables: tables,
		logger: logger.With("component", "parser", "selectors_version", tables.Version),
	}
}

// ParsePage returns the records found in markup, in document order. A page
// whose layout matches none of the container selectors yields no records and
// no error.
func (p *LayoutParser) ParsePage(markup string) ([]models.ProductRecord, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	containers, selector := FindContainers(doc.Selection, p.tables.Container)
	if containers.Length() == 0 {
		p.logger.Warn("no product containers found")
		return nil, nil
	}

	p.logger.Debug("found containers", "selector", selector, "count", containers.Length())

	records := make([]models.ProductRecord, 0, containers.Length())
	containers.Each(func(i int, s *goquery.Selection) {
		if rec, ok := p.ParseProduct(s); ok {
			records = append(records, rec)
		}
	})

	return records, nil
}

// ParseProduct extracts one record from a container. It reports false when
// the container has no title or extraction fails.
func (p *LayoutParser) ParseProduct(container *goquery.Selection) (rec models.ProductRecord, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Debug("error parsing product container", "error", r)
			rec, ok = models.ProductRecord{}, false
		}
	}()

	title, found := ExtractField(container, p.tables.Title)
	if !found {
		return models.ProductRecord{}, false
	}

	price, found := ExtractField(container, p.tables.Price)
	if !found {
		price = models.PriceUnavailable
	}

	image, _ := ExtractImage(container, p.tables.Image)

	return models.ProductRecord{
		Title:    title,
		Price:    price,
		ImageURL: image,
	}, true
}

// FindContainers returns the nodes matched by the first cascade selector
// that matches anything, along with that selector. Later selectors are not
// consulted once one matches.
func FindContainers(root *goquery.Selection, cascade Cascade) (*goquery.Selection, string) {
	for _, sel := range cascade.Selectors {
		if found := root.Find(sel); found.Length() > 0 {
			return found, sel
		}
	}
	return root.Slice(0, 0), ""
}

// ExtractField reads a text or attribute value from the first cascade entry
// that yields a non-empty result.
func ExtractField(container *goquery.Selection, cascade Cascade) (string, bool) {
	for _, sel := range cascade.Selectors {
		node := container.Find(sel).First()
		if node.Length() == 0 {
			continue
		}

		switch cascade.Mode {
		case ModeAttr:
			for _, attr := range cascade.Attrs {
				if v := strings.TrimSpace(node.AttrOr(attr, "")); v != "" {
					return v, true
				}
			}
		default:
			if text := cleanText(node.Text()); text != "" {
				return text, true
			}
			if v := strings.TrimSpace(node.AttrOr(cascade.Attr, "")); v != "" {
				return v, true
			}
		}
	}
	return "", false
}

// ExtractImage returns the first attribute value among the cascade's
// attributes that looks like an absolute or protocol-relative URL.
func ExtractImage(container *goquery.Selection, cascade Cascade) (string, bool) {
	for _, sel := range cascade.Selectors {
		node := container.Find(sel).First()
		if node.Length() == 0 {
			continue
		}

		for _, attr := range cascade.Attrs {
			v := strings.TrimSpace(node.AttrOr(attr, ""))
			if v != "" && models.IsImageURL(v) {
				return v, true
			}
		}
	}
	return "", false
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
