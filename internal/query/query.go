// Package query parses package query arguments and drives the per-name
// locate/fetch/parse/select pipeline.
package query

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/git-pkgs/purl"
	"golang.org/x/sync/errgroup"

	"github.com/git-pkgs/cargo-query/fetch"
	"github.com/git-pkgs/cargo-query/internal/index"
)

// DefaultConcurrency bounds how many shards are fetched at once.
const DefaultConcurrency = 8

// Query is one requested package, optionally constrained to a version
// range. The zero Range means "latest".
type Query struct {
	Raw   string
	Name  string
	Range *semver.Constraints

	rangeExpr string
	parseErr  error
}

// RangeExpr returns the textual range the query was parsed from, empty
// for latest-version queries.
func (q *Query) RangeExpr() string {
	return q.rangeExpr
}

// Parse turns a command-line package argument into a Query. Two forms are
// accepted: "name[@range]" and "pkg:cargo/name[@range]".
func Parse(arg string) (*Query, error) {
	name, rangeExpr := arg, ""

	if strings.HasPrefix(arg, "pkg:") {
		p, err := purl.Parse(arg)
		if err != nil {
			return nil, fmt.Errorf("parsing purl %q: %w", arg, err)
		}
		if p.Type != "cargo" {
			return nil, fmt.Errorf("unsupported purl type %q, only cargo is queryable", p.Type)
		}
		name, rangeExpr = p.Name, p.Version
	} else if at := strings.Index(arg, "@"); at >= 0 {
		// A trailing "@" with no range is treated as no constraint.
		name, rangeExpr = arg[:at], arg[at+1:]
	}

	if err := index.ValidateName(name); err != nil {
		return nil, err
	}

	q := &Query{Raw: arg, Name: name, rangeExpr: rangeExpr}
	if rangeExpr != "" {
		rng, err := index.ParseRange(rangeExpr)
		if err != nil {
			return nil, err
		}
		q.Range = rng
	}
	return q, nil
}

// ParseAll parses every argument. A bad argument does not abort the
// batch: it yields a query that resolves straight to its parse error,
// so siblings are still fetched and the caller sees one Outcome per
// argument.
func ParseAll(args []string) []*Query {
	queries := make([]*Query, len(args))
	for i, arg := range args {
		q, err := Parse(arg)
		if err != nil {
			q = &Query{Raw: arg, Name: arg, parseErr: err}
		}
		queries[i] = q
	}
	return queries
}

// Outcome is the per-name result of a batch run: a selected record or the
// error that stopped that name. Outcomes keep the request order.
type Outcome struct {
	Query  *Query
	Record *index.Record
	Yanked bool
	Err    error
}

// Runner executes batch queries against an index.
type Runner struct {
	Fetcher fetch.ShardFetcher

	// IncludeYanked opts yanked versions into selection.
	IncludeYanked bool

	// Concurrency bounds parallel shard fetches; DefaultConcurrency
	// when zero.
	Concurrency int
}

// Run resolves every query independently. A failing name never aborts its
// siblings; the caller inspects each Outcome. The returned slice is
// ordered like queries regardless of completion order.
func (r *Runner) Run(ctx context.Context, queries []*Query) []Outcome {
	outcomes := make([]Outcome, len(queries))

	limit := r.Concurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, q := range queries {
		g.Go(func() error {
			outcomes[i] = r.resolve(ctx, q)
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}

func (r *Runner) resolve(ctx context.Context, q *Query) Outcome {
	out := Outcome{Query: q}

	if q.parseErr != nil {
		out.Err = q.parseErr
		return out
	}

	data, err := r.Fetcher.FetchShard(ctx, index.ShardPath(q.Name))
	if err != nil {
		if errors.Is(err, fetch.ErrNotFound) {
			out.Err = &index.NotFoundError{Name: q.Name}
		} else {
			out.Err = fmt.Errorf("fetching shard for %s: %w", q.Name, err)
		}
		return out
	}

	records, err := index.ParseShard(data)
	if err != nil {
		out.Err = fmt.Errorf("shard for %s: %w", q.Name, err)
		return out
	}
	if len(records) == 0 {
		out.Err = &index.NotFoundError{Name: q.Name}
		return out
	}

	sel := index.Select(records, q.Range, r.IncludeYanked)
	if sel.Empty() {
		out.Err = &index.NoMatchError{Name: q.Name, Range: q.rangeExpr}
		return out
	}

	out.Record = sel.Record
	out.Yanked = sel.Yanked
	return out
}
