package commands

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maltedev/flipkart-scraper/internal/models"
)

func TestPromptKeyword(t *testing.T) {
	var out bytes.Buffer
	kw, err := promptKeyword(strings.NewReader("  smart phone \n"), &out)
	require.NoError(t, err)
	assert.Equal(t, "smart phone", kw)
	assert.Contains(t, out.String(), "Enter search keyword:")

	kw, err = promptKeyword(strings.NewReader(""), &out)
	require.NoError(t, err)
	assert.Empty(t, kw)
}

func TestKeywordFromArgs(t *testing.T) {
	assert.Equal(t, "", keywordFromArgs(nil))
	assert.Equal(t, "phone", keywordFromArgs([]string{"phone"}))
	assert.Equal(t, "smart phone", keywordFromArgs([]string{"smart", "phone"}))
	assert.Equal(t, "smart phone case", keywordFromArgs([]string{" smart phone ", "case"}))
	assert.Equal(t, "", keywordFromArgs([]string{"  "}))
}

func TestScrapeAcceptsMultiWordKeyword(t *testing.T) {
	assert.NoError(t, scrapeCmd.Args(scrapeCmd, []string{"smart", "phone"}))
}

func TestRenderProducts(t *testing.T) {
	var out bytes.Buffer
	renderProducts(&out, nil)
	assert.Equal(t, "No products found in database.\n", out.String())

	out.Reset()
	long := "https://rukminim2.flixcart.com/image/" + strings.Repeat("x", 120) + ".jpeg"
	renderProducts(&out, []models.StoredProduct{
		{ID: 1, ProductRecord: models.ProductRecord{Title: "Phone A", Price: "₹9,999", ImageURL: long}, CreatedAt: time.Now()},
		{ID: 2, ProductRecord: models.ProductRecord{Title: "Phone B", Price: "N/A"}, CreatedAt: time.Now()},
	})

	s := out.String()
	assert.Contains(t, s, "Showing 2 products")
	assert.Contains(t, s, "Phone A")
	assert.Contains(t, s, "N/A")
	assert.NotContains(t, s, long)
}

func TestTruncate(t *testing.T) {
	tr := truncate(5)
	assert.Equal(t, "abc", tr("abc"))
	assert.Equal(t, "abcde...", tr("abcdefgh"))
}
