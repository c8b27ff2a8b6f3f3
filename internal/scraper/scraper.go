package scraper

import (
	"errors"

	"github.com/maltedev/flipkart-scraper/internal/models"
)

var (
	ErrInvalidRequest = errors.New("invalid search request")
	ErrNoContent      = errors.New("page produced no content")
)

// Parser turns one page of markup into product records.
type Parser interface {
	ParsePage(markup string) ([]models.ProductRecord, error)
}
