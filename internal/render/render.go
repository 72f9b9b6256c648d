// Package render projects selected version records into textual output.
package render

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/git-pkgs/cargo-query/internal/index"
)

// View selects which attribute of a record is projected.
type View string

const (
	ViewRecord   View = "record"
	ViewFeatures View = "features"
	ViewDeps     View = "deps"
)

// Encoding selects the textual output format.
type Encoding string

const (
	// EncodingPlain prints one "name:" prefixed line per package.
	EncodingPlain Encoding = "plain"
	// EncodingList prints a single space-joined line across all packages,
	// meant for substitution into another command's argument list, e.g.
	// cargo add $(cargo-query --add-all serde tokio).
	EncodingList Encoding = "list"
	EncodingJSON Encoding = "json"
	// EncodingJSONPretty is EncodingJSON with indented nesting.
	EncodingJSONPretty Encoding = "json-pretty"
)

// Item pairs a queried name with its selected record, in request order.
type Item struct {
	Name   string
	Record *index.Record
}

// FeatureNames flattens a record's feature names, including the secondary
// features2 mapping, into a lexicographically sorted, de-duplicated list.
func FeatureNames(r *index.Record) []string {
	seen := make(map[string]struct{}, len(r.Features)+len(r.Features2))
	for name := range r.Features {
		seen[name] = struct{}{}
	}
	for name := range r.Features2 {
		seen[name] = struct{}{}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DepNames lists dependency names in declaration order. Duplicates are
// kept: a crate may depend on the same name under several target or kind
// combinations, and each occurrence is meaningful.
func DepNames(r *index.Record) []string {
	names := make([]string, len(r.Deps))
	for i, dep := range r.Deps {
		names[i] = dep.Name
	}
	return names
}

// Format renders items into the requested encoding. It never mutates its
// inputs; rendering the same items twice yields byte-identical output.
func Format(items []Item, view View, enc Encoding) (string, error) {
	switch enc {
	case EncodingJSON, EncodingJSONPretty:
		return formatJSON(items, view, enc == EncodingJSONPretty)
	case EncodingList:
		return formatList(items, view), nil
	default:
		return formatPlain(items, view), nil
	}
}

// flatten reduces a record to the identifier list used by the plain and
// list encodings. The record view flattens to name@version, the form
// cargo add accepts.
func flatten(item Item, view View) []string {
	switch view {
	case ViewFeatures:
		return FeatureNames(item.Record)
	case ViewDeps:
		return DepNames(item.Record)
	default:
		return []string{fmt.Sprintf("%s@%s", item.Record.Name, item.Record.Vers)}
	}
}

func formatPlain(items []Item, view View) string {
	var b strings.Builder
	for _, item := range items {
		if view == ViewRecord {
			b.WriteString(recordLine(item))
		} else {
			b.WriteString(item.Name)
			b.WriteByte(':')
			b.WriteString(strings.Join(flatten(item, view), " "))
		}
		b.WriteByte('\n')
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// recordLine condenses a record's scalar fields to key=value pairs.
func recordLine(item Item) string {
	r := item.Record
	var b strings.Builder
	fmt.Fprintf(&b, "%s: vers=%s yanked=%t cksum=%s", item.Name, r.Vers, r.Yanked, r.Cksum)
	if r.Links != nil {
		fmt.Fprintf(&b, " links=%s", *r.Links)
	}
	if r.RustVersion != nil {
		fmt.Fprintf(&b, " rust_version=%s", *r.RustVersion)
	}
	return b.String()
}

func formatList(items []Item, view View) string {
	var all []string
	for _, item := range items {
		all = append(all, flatten(item, view)...)
	}
	return strings.Join(all, " ")
}

// formatJSON emits an array with one element per package. The record view
// emits full records in schema field order. The features and deps views
// project the structured sub-attribute without flattening to identifiers;
// flattening only applies to the plain and list encodings.
func formatJSON(items []Item, view View, pretty bool) (string, error) {
	out := make([]any, len(items))
	for i, item := range items {
		switch view {
		case ViewFeatures:
			out[i] = mergedFeatures(item.Record)
		case ViewDeps:
			deps := item.Record.Deps
			if deps == nil {
				deps = []index.Dependency{}
			}
			out[i] = deps
		default:
			out[i] = item.Record
		}
	}

	var encoded []byte
	var err error
	if pretty {
		encoded, err = json.MarshalIndent(out, "", "  ")
	} else {
		encoded, err = json.Marshal(out)
	}
	if err != nil {
		return "", fmt.Errorf("encoding output: %w", err)
	}
	return string(encoded), nil
}

func mergedFeatures(r *index.Record) map[string][]string {
	merged := make(map[string][]string, len(r.Features)+len(r.Features2))
	for name, exprs := range r.Features {
		merged[name] = exprs
	}
	for name, exprs := range r.Features2 {
		merged[name] = exprs
	}
	return merged
}
