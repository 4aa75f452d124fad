package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"tradescout/internal/browser"
	"tradescout/internal/export"
)

var exportName string

var exportCmd = &cobra.Command{
	Use:   "export [url]",
	Short: "Export the largest HTML table of an authenticated page to CSV",
	Long: `Navigates to the given URL (default: target.data_url) with an
authenticated session and writes the page's largest table to a CSV
file under export.output_dir. Downstream tooling interprets the
tabular data; tradescout only flattens the markup.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportName, "name", "export", "base name for the CSV file")
}

func runExport(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	url := cfg.Target.DataURL
	if len(args) == 1 {
		url = args[0]
	}
	if url == "" {
		return errors.New("no URL given and target.data_url not configured")
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	engine, err := browser.Start(ctx, cfg, logger.Named("browser"))
	if err != nil {
		return fmt.Errorf("start browser: %w", err)
	}
	defer engine.Close()

	page := engine.Page()
	store := newStore()

	if err := ensureAuthenticated(ctx, newAuthenticator(page, store)); err != nil {
		return err
	}

	if err := page.Navigate(ctx, url); err != nil {
		return fmt.Errorf("navigate to data page: %w", err)
	}
	if err := page.WaitSettle(ctx); err != nil {
		return fmt.Errorf("settle data page: %w", err)
	}
	if err := store.Touch(); err != nil {
		logger.Warn("session touch failed", zap.Error(err))
	}

	markup, err := page.HTML(ctx)
	if err != nil {
		return fmt.Errorf("read page html: %w", err)
	}

	tables, err := export.ExtractTables(markup)
	if err != nil {
		return fmt.Errorf("extract tables from %s: %w", url, err)
	}

	path, err := export.NewWriter(cfg.Export.OutputDir).WriteCSV(tables, exportName)
	if err != nil {
		return err
	}

	fmt.Printf("exported %d table(s); wrote %s\n", len(tables), path)
	return nil
}
