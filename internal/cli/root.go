package cli

import (
	"context"
	"fmt"
	"os"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/git-pkgs/cargo-query/internal/render"
)

var (
	version string // semantic version (e.g., "v1.2.3")
	commit  string // git commit SHA
	date    string // build timestamp
)

// SetVersion sets the version information displayed by --version,
// typically injected via ldflags at build time.
func SetVersion(v, c, d string) {
	version = v
	commit = c
	date = d
}

// queryOpts holds the command-line flags for the root query command.
type queryOpts struct {
	deps        bool   // project dependency names
	features    bool   // project feature names
	jsonOut     bool   // structured output
	pretty      bool   // indent structured output
	addAll      bool   // single-line list for shell substitution
	yanked      bool   // opt yanked versions into selection
	indexURL    string // sparse index root override
	concurrency int    // parallel shard fetches
}

func (o *queryOpts) view() render.View {
	switch {
	case o.deps:
		return render.ViewDeps
	case o.features:
		return render.ViewFeatures
	default:
		return render.ViewRecord
	}
}

func (o *queryOpts) encoding() render.Encoding {
	switch {
	case o.jsonOut && o.pretty:
		return render.EncodingJSONPretty
	case o.jsonOut:
		return render.EncodingJSON
	case o.addAll:
		return render.EncodingList
	default:
		return render.EncodingPlain
	}
}

// Execute runs the cargo-query CLI and returns an error if any command
// fails. Logging goes to stderr; --verbose flips it to debug level.
func Execute(ctx context.Context) error {
	return newRootCmd().ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	var verbose bool
	opts := queryOpts{}

	root := &cobra.Command{
		Use:   "cargo-query <package>[@range]...",
		Short: "Query crate metadata from the crates.io index",
		Long: `cargo-query answers metadata questions about named crates straight from
the crates.io sparse index: which versions exist, and what features and
dependencies a version declares.

Examples:
  cargo-query serde                      # latest version, one line
  cargo-query libc --features           # feature names of the latest libc
  cargo-query serde@^1.0 tokio --deps   # dependency names, one line each
  cargo-query --json --pretty semver    # full index records as JSON
  cargo add $(cargo-query --add-all --deps serde)`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.MinimumNArgs(1),
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := charmlog.InfoLevel
			if verbose {
				level = charmlog.DebugLevel
			}
			ctx := withLogger(cmd.Context(), newLogger(os.Stderr, level))
			cmd.SetContext(ctx)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, args, &opts)
		},
	}

	root.SetVersionTemplate(fmt.Sprintf("cargo-query %s\ncommit: %s\nbuilt: %s\n", version, commit, date))
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")

	root.Flags().BoolVarP(&opts.deps, "deps", "d", false, "show dependency names for each package")
	root.Flags().BoolVarP(&opts.features, "features", "f", false, "show feature names for each package")
	root.Flags().BoolVarP(&opts.jsonOut, "json", "j", false, "print output in json format")
	root.Flags().BoolVarP(&opts.pretty, "pretty", "p", false, "pretty print json output")
	root.Flags().BoolVarP(&opts.addAll, "add-all", "a", false, "print one space-joined line for shell substitution")
	root.Flags().BoolVar(&opts.yanked, "yanked", false, "allow selecting yanked versions")
	root.Flags().StringVar(&opts.indexURL, "index", "", "sparse index root (default https://index.crates.io)")
	root.Flags().IntVar(&opts.concurrency, "concurrency", 8, "parallel shard fetches")
	root.MarkFlagsMutuallyExclusive("deps", "features")
	root.MarkFlagsMutuallyExclusive("json", "add-all")

	root.AddCommand(newInfoCmd())

	return root
}
