package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"tradescout/internal/browser"
	"tradescout/internal/nav"
)

var searchCmd = &cobra.Command{
	Use:   "search [nickname]",
	Short: "Search for a user by nickname and open their profile",
	Args:  cobra.ExactArgs(1),
	RunE:  runSearch,
}

func runSearch(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	nickname := args[0]

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

	controller := nav.New(page, store, nav.Options{
		ElementTimeout: cfg.ElementTimeout(),
		RequestDelay:   cfg.RequestDelay(),
	}, logger.Named("nav"))

	if err := controller.OpenSearchSurface(ctx); err != nil {
		return fmt.Errorf("open search surface: %w", err)
	}
	if err := controller.SearchByKey(ctx, nickname); err != nil {
		return fmt.Errorf("search %q: %w", nickname, err)
	}
	if err := controller.OpenResult(ctx, nickname); err != nil {
		return fmt.Errorf("open profile %q: %w", nickname, err)
	}

	fmt.Printf("opened profile for %s: %s\n", nickname, page.CurrentURL())
	return nil
}
