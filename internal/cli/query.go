package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/git-pkgs/cargo-query/fetch"
	"github.com/git-pkgs/cargo-query/internal/index"
	"github.com/git-pkgs/cargo-query/internal/query"
	"github.com/git-pkgs/cargo-query/internal/render"
)

// runQuery resolves every requested package and prints the formatted
// successes to stdout. Per-name failures are logged to stderr and turn
// into a non-zero exit, but never suppress sibling results.
func runQuery(cmd *cobra.Command, args []string, opts *queryOpts) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)

	queries := query.ParseAll(args)

	fetcher := fetch.NewCircuitBreakerFetcher(fetch.NewFetcher(opts.indexURL))
	defer func() { _ = fetcher.Close() }()

	runner := &query.Runner{
		Fetcher:       fetcher,
		IncludeYanked: opts.yanked,
		Concurrency:   opts.concurrency,
	}

	outcomes := runner.Run(ctx, queries)

	var items []render.Item
	failed := 0
	for _, out := range outcomes {
		if out.Err != nil {
			failed++
			switch {
			case errors.Is(out.Err, index.ErrNotFound):
				logger.Warnf("package `%s` not found", out.Query.Raw)
			case errors.Is(out.Err, index.ErrNoMatch):
				logger.Warnf("package `%s`: %v", out.Query.Raw, out.Err)
			default:
				logger.Warnf("package `%s` failed: %v", out.Query.Raw, out.Err)
			}
			continue
		}
		if out.Yanked {
			logger.Warnf("package `%s`: selected version %s is yanked", out.Query.Raw, out.Record.Vers)
		}
		logger.Debugf("package `%s`: selected %s", out.Query.Raw, out.Record.Vers)
		items = append(items, render.Item{Name: out.Query.Name, Record: out.Record})
	}

	if len(items) > 0 {
		text, err := render.Format(items, opts.view(), opts.encoding())
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), text)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d packages failed", failed, len(outcomes))
	}
	return nil
}
