package commands

import (
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/maltedev/flipkart-scraper/internal/models"
)

const imageColumnWidth = 80

var showLimit int

func init() {
	showCmd.Flags().IntVarP(&showLimit, "limit", "n", 10, "Number of products to show.")
	rootCmd.AddCommand(showCmd)
}

var showCmd = &cobra.Command{
	Use:   "show [-n <count>]",
	Short: "Shows stored products.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer store.Close()

		products, err := store.List(cmd.Context(), showLimit)
		if err != nil {
			return fmt.Errorf("failed to list products: %w", err)
		}

		renderProducts(cmd.OutOrStdout(), products)
		return nil
	},
}

func renderProducts(out io.Writer, products []models.StoredProduct) {
	if len(products) == 0 {
		fmt.Fprintln(out, "No products found in database.")
		return
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(out)
	t.SetTitle(fmt.Sprintf("Showing %d products", len(products)))
	t.AppendHeader(table.Row{"#", "Title", "Price", "Image", "Added"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Title", WidthMax: 60},
		{Name: "Image", Transformer: truncate(imageColumnWidth)},
	})

	for i, p := range products {
		t.AppendRow(table.Row{i + 1, p.Title, p.Price, p.ImageURL, p.CreatedAt.Local().Format(time.DateTime)})
	}
	t.Render()
}

func truncate(n int) text.Transformer {
	return func(val interface{}) string {
		s := fmt.Sprint(val)
		if len(s) > n {
			return s[:n] + "..."
		}
		return s
	}
}
