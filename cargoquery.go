// Package cargoquery answers metadata questions about named crates from
// the crates.io sparse index: which versions exist, and what features and
// dependencies a version declares.
//
// Basic usage:
//
//	import (
//		"context"
//		"fmt"
//
//		cargoquery "github.com/git-pkgs/cargo-query"
//	)
//
//	outcomes := cargoquery.Resolve(context.Background(), cargoquery.DefaultFetcher(), "serde@^1.0", "libc")
//	for _, out := range outcomes {
//		if out.Err != nil {
//			fmt.Fprintf(os.Stderr, "%s: %v\n", out.Query.Name, out.Err)
//			continue
//		}
//		fmt.Println(out.Record.Name, out.Record.Vers)
//	}
//
// The fetch package performs the only I/O; everything downstream of it is
// a pure function of the shard bytes.
package cargoquery

import (
	"context"

	"github.com/git-pkgs/cargo-query/fetch"
	"github.com/git-pkgs/cargo-query/internal/index"
	"github.com/git-pkgs/cargo-query/internal/query"
	"github.com/git-pkgs/cargo-query/internal/render"
)

// Re-export types from internal/index
type (
	// Record is one published version of a crate.
	Record = index.Record

	// Dependency is one entry of a record's deps array.
	Dependency = index.Dependency

	// Selection is the outcome of picking one version from a shard.
	Selection = index.Selection
)

// Re-export types from internal/query
type (
	// Query is one requested package with an optional version range.
	Query = query.Query

	// Outcome is the per-name result of a batch run.
	Outcome = query.Outcome

	// Runner executes batch queries against an index.
	Runner = query.Runner
)

// Re-export types from internal/render
type (
	// View selects which attribute of a record is projected.
	View = render.View

	// Encoding selects the textual output format.
	Encoding = render.Encoding

	// Item pairs a queried name with its selected record.
	Item = render.Item
)

// Re-export constants
const (
	ViewRecord   = render.ViewRecord
	ViewFeatures = render.ViewFeatures
	ViewDeps     = render.ViewDeps

	EncodingPlain      = render.EncodingPlain
	EncodingList       = render.EncodingList
	EncodingJSON       = render.EncodingJSON
	EncodingJSONPretty = render.EncodingJSONPretty
)

// Re-export errors
var (
	ErrNotFound = index.ErrNotFound
	ErrNoMatch  = index.ErrNoMatch
)

// Error types
type (
	NotFoundError        = index.NotFoundError
	NoMatchError         = index.NoMatchError
	InvalidNameError     = index.InvalidNameError
	InvalidRangeError    = index.InvalidRangeError
	MalformedRecordError = index.MalformedRecordError
)

// ShardPath maps a crate name to its shard path within the sparse index.
func ShardPath(name string) string {
	return index.ShardPath(name)
}

// ValidateName rejects crate names the index cannot address.
func ValidateName(name string) error {
	return index.ValidateName(name)
}

// ParseShard decodes a shard's bytes into version records in file order.
func ParseShard(data []byte) ([]Record, error) {
	return index.ParseShard(data)
}

// ParseQuery turns a package argument ("name[@range]" or
// "pkg:cargo/name[@range]") into a Query.
func ParseQuery(arg string) (*Query, error) {
	return query.Parse(arg)
}

// Format renders selected records into the requested encoding.
func Format(items []Item, view View, enc Encoding) (string, error) {
	return render.Format(items, view, enc)
}

// DefaultFetcher returns a circuit-breaking fetcher for the crates.io
// sparse index.
func DefaultFetcher() fetch.ShardFetcher {
	return fetch.NewCircuitBreakerFetcher(fetch.NewFetcher(""))
}

// Resolve parses args and resolves each independently against the index
// behind fetcher. The returned outcomes keep argument order; every
// per-name failure, bad argument syntax included, is recorded on its
// Outcome rather than aborting the batch.
func Resolve(ctx context.Context, fetcher fetch.ShardFetcher, args ...string) []Outcome {
	r := &Runner{Fetcher: fetcher}
	return r.Run(ctx, query.ParseAll(args))
}
