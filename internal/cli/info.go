package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/git-pkgs/cargo-query/client"
	"github.com/git-pkgs/cargo-query/internal/api"
	"github.com/git-pkgs/cargo-query/internal/index"
)

// infoOpts holds the flags for the info subcommand.
type infoOpts struct {
	jsonOut bool
	apiURL  string
}

// newInfoCmd creates the info command, which queries the crates.io web
// API for metadata the index does not carry.
func newInfoCmd() *cobra.Command {
	opts := infoOpts{}

	cmd := &cobra.Command{
		Use:   "info <crate>...",
		Short: "Show crate metadata from the crates.io API",
		Long: `Show description, repository, license, downloads, and owners for one
or more crates. Unlike the default query, info talks to the crates.io
web API rather than the sparse index.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInfo(cmd, args, &opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.jsonOut, "json", "j", false, "print output in json format")
	cmd.Flags().StringVar(&opts.apiURL, "api", "", "registry API root (default https://crates.io)")

	return cmd
}

// crateDetails is the JSON shape emitted by `info --json`.
type crateDetails struct {
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	License     string            `json:"license,omitempty"`
	Repository  string            `json:"repository,omitempty"`
	Homepage    string            `json:"homepage,omitempty"`
	MaxVersion  string            `json:"max_version,omitempty"`
	Downloads   int               `json:"downloads"`
	Keywords    []string          `json:"keywords,omitempty"`
	Owners      []string          `json:"owners,omitempty"`
	URLs        map[string]string `json:"urls,omitempty"`
}

func runInfo(cmd *cobra.Command, args []string, opts *infoOpts) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)

	for _, name := range args {
		if err := index.ValidateName(name); err != nil {
			return err
		}
	}

	c := api.New(opts.apiURL, client.DefaultClient())

	var details []crateDetails
	failed := 0
	for _, name := range args {
		crate, err := c.Crate(ctx, name)
		if err != nil {
			failed++
			logger.Warnf("crate `%s`: %v", name, err)
			continue
		}

		d := crateDetails{
			Name:        crate.Name,
			Description: crate.Description,
			License:     crate.License,
			Repository:  crate.Repository,
			Homepage:    crate.Homepage,
			MaxVersion:  crate.MaxVersion,
			Downloads:   crate.Downloads,
			Keywords:    crate.Keywords,
			URLs:        client.BuildURLs(c.URLs(), crate.Name, crate.MaxVersion),
		}

		owners, err := c.Owners(ctx, name)
		if err != nil {
			logger.Debugf("crate `%s`: owners unavailable: %v", name, err)
		}
		for _, o := range owners {
			d.Owners = append(d.Owners, o.Login)
		}

		details = append(details, d)
	}

	if len(details) > 0 {
		if opts.jsonOut {
			encoded, err := json.MarshalIndent(details, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(encoded))
		} else {
			for i, d := range details {
				if i > 0 {
					fmt.Fprintln(cmd.OutOrStdout())
				}
				printCrate(cmd, d)
			}
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d crates failed", failed, len(args))
	}
	return nil
}

func printCrate(cmd *cobra.Command, d crateDetails) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s %s\n", d.Name, d.MaxVersion)
	if d.Description != "" {
		fmt.Fprintf(out, "  %s\n", d.Description)
	}
	if d.License != "" {
		fmt.Fprintf(out, "  license: %s\n", d.License)
	}
	if d.Repository != "" {
		fmt.Fprintf(out, "  repository: %s\n", d.Repository)
	}
	if docs := d.URLs["docs"]; docs != "" {
		fmt.Fprintf(out, "  docs: %s\n", docs)
	}
	fmt.Fprintf(out, "  downloads: %d\n", d.Downloads)
	if len(d.Owners) > 0 {
		fmt.Fprintf(out, "  owners: %s\n", strings.Join(d.Owners, ", "))
	}
}
