package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/maltedev/flipkart-scraper/internal/app"
	"github.com/maltedev/flipkart-scraper/internal/models"
)

var scrapePages int

func init() {
	scrapeCmd.Flags().IntVarP(&scrapePages, "pages", "p", 3, "Number of result pages to scrape.")
	rootCmd.AddCommand(scrapeCmd)
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape [keyword...]",
	Short: "Scrapes search results for a keyword and stores the products.",
	Long: "Scrapes search results for a keyword and stores the products.\n" +
		"Multiple arguments are joined into one keyword, so quoting is optional.\n" +
		"Without a keyword argument the keyword is read from stdin.",
	Args: cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		keyword := keywordFromArgs(args)
		if keyword == "" {
			var err error
			keyword, err = promptKeyword(cmd.InOrStdin(), cmd.OutOrStdout())
			if err != nil {
				return err
			}
			if keyword == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "No keyword provided.")
				return nil
			}
		}

		ctx, cancel := app.SignalContext(cmd.Context(), logger)
		defer cancel()

		a, err := app.New(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		return runScrape(ctx, a, cmd.OutOrStdout(), models.SearchRequest{Keyword: keyword, PageCount: scrapePages})
	},
}

func runScrape(ctx context.Context, a *app.App, out io.Writer, req models.SearchRequest) error {
	before, err := a.Store.Count(ctx)
	if err != nil {
		return fmt.Errorf("failed to count products: %w", err)
	}
	logger.Info("starting scrape", "keyword", req.Keyword, "pages", req.PageCount, "products_in_db", before)

	started := time.Now()
	result, err := a.Orchestrator.Run(ctx, req)
	if errors.Is(err, context.Canceled) {
		fmt.Fprintln(out, "\nScraping interrupted by user.")
		return nil
	}
	if err != nil {
		return err
	}

	after, err := a.Store.Count(context.WithoutCancel(ctx))
	if err != nil {
		return fmt.Errorf("failed to count products: %w", err)
	}

	logger.Info("scrape completed",
		"run_id", result.RunID,
		"pages_attempted", result.PagesAttempted,
		"pages_failed", result.PagesFailed,
		"found", len(result.Records),
		"inserted", result.Inserted,
		"products_in_db", after,
		"duration", time.Since(started).Round(time.Millisecond),
	)
	fmt.Fprintf(out, "Found %d products, saved %d. Total products in database: %d\n",
		len(result.Records), result.Inserted, after)
	return nil
}

func keywordFromArgs(args []string) string {
	return strings.Join(strings.Fields(strings.Join(args, " ")), " ")
}

func promptKeyword(in io.Reader, out io.Writer) (string, error) {
	fmt.Fprintln(out, "Flipkart Product Scraper")
	fmt.Fprintln(out, strings.Repeat("=", 30))
	fmt.Fprint(out, "Enter search keyword: ")

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read keyword: %w", err)
	}
	return strings.TrimSpace(line), nil
}
