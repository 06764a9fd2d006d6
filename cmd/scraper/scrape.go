package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/aluiziolira/books-scrape-api/models"
	"github.com/aluiziolira/books-scrape-api/scraper"
)

func newScrapeCmd(opts *rootOptions) *cobra.Command {
	var flags models.Features

	cmd := &cobra.Command{
		Use:   "scrape <url|shortcut>",
		Short: "Scrape one page and print the result as JSON",
		Example: `  scraper scrape Design --ai
  scraper scrape https://books.toscrape.com/catalogue/a-light-in-the-attic_1000/index.html --security`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts.cfg, opts.logger)
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := a.service.Scrape(cmd.Context(), scraper.Request{URL: args[0], Features: flags})
			if err != nil {
				return fmt.Errorf("%s: %w", scraper.Category(err), err)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}

	cmd.Flags().BoolVar(&flags.AI, "ai", false, "attach keyword sentiment to every book")
	cmd.Flags().BoolVar(&flags.Security, "security", false, "encrypt title and price in the response")
	cmd.Flags().BoolVar(&flags.Speed, "speed", false, "accepted for compatibility; has no effect")
	return cmd
}

func printSites(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tURL")
	for _, site := range scraper.PopularSites() {
		fmt.Fprintf(tw, "%s\t%s\n", site.Name, site.URL)
	}
	return tw.Flush()
}
