// Package index locates, parses, and selects version records from the
// crates.io sparse index.
package index

import "strings"

// ValidateName rejects names the index cannot address. Crate names are
// checked before any path construction or I/O happens.
func ValidateName(name string) error {
	switch {
	case name == "":
		return &InvalidNameError{Name: name, Reason: "empty"}
	case strings.ContainsAny(name, "/\\"):
		return &InvalidNameError{Name: name, Reason: "contains a path separator"}
	case strings.HasPrefix(name, "."):
		return &InvalidNameError{Name: name, Reason: "starts with a dot"}
	}
	return nil
}

// ShardPath maps a crate name to its shard path within the index.
// The index stores one file per crate, bucketed by name length:
// one- and two-character names live under "1/" and "2/", three-character
// names under "3/<first char>/", and longer names under four characters
// split two-by-two. The whole path is lower-cased, file name included:
// the sparse index serves crate names case-insensitively through their
// lower-case path, so a mixed-case query never reaches the index as-is.
//
// ShardPath never fails. Names must be validated with ValidateName first.
func ShardPath(name string) string {
	name = strings.ToLower(name)
	switch len(name) {
	case 0:
		return ""
	case 1:
		return "1/" + name
	case 2:
		return "2/" + name
	case 3:
		return "3/" + name[:1] + "/" + name
	default:
		return name[:2] + "/" + name[2:4] + "/" + name
	}
}
