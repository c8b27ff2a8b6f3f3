package models

import (
	"fmt"
	"strings"
	"time"
)

// PriceUnavailable is stored when no price could be read from a listing.
const PriceUnavailable = "N/A"

// SearchRequest is the input of a single scrape run.
type SearchRequest struct {
	Keyword   string `json:"keyword"`
	PageCount int    `json:"pages"`
}

func (r SearchRequest) Validate() error {
	if strings.TrimSpace(r.Keyword) == "" {
		return fmt.Errorf("keyword is required")
	}
	if r.PageCount < 1 {
		return fmt.Errorf("page count must be at least 1, got %d", r.PageCount)
	}
	return nil
}

// PageTarget identifies one search-result page of a run.
type PageTarget struct {
	Keyword   string
	PageIndex int
}

// FetchResult carries the rendered markup of one page. Markup is only
// meaningful when HasMarkup is true.
type FetchResult struct {
	URL       string
	Markup    string
	HasMarkup bool
	FetchedAt time.Time
}

func (f FetchResult) OK() bool {
	return f.HasMarkup
}

type ProductRecord struct {
	Title    string `json:"title"`
	Price    string `json:"price"`
	ImageURL string `json:"image_url"`
}

// StoredProduct is a ProductRecord as read back from storage.
type StoredProduct struct {
	ID int64 `json:"id"`
	ProductRecord
	CreatedAt time.Time `json:"created_at"`
}

// IsImageURL reports whether s looks like an absolute or protocol-relative URL.
func IsImageURL(s string) bool {
	return strings.HasPrefix(s, "http") || strings.HasPrefix(s, "//")
}

func (p *ProductRecord) Validate() []string {
	var errors []string

	if strings.TrimSpace(p.Title) == "" {
		errors = append(errors, "Title is required")
	}

	if p.Price == "" {
		errors = append(errors, "Price is required")
	}

	if p.ImageURL != "" && !IsImageURL(p.ImageURL) {
		errors = append(errors, "Invalid image URL")
	}

	return errors
}
