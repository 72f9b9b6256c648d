package index

import (
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Selection is the outcome of picking one version record from a shard.
// An empty Selection means no record satisfied the query. Yanked reports
// that the selected record is itself yanked, which in default mode only
// happens when every published version is.
type Selection struct {
	Record *Record
	Yanked bool
}

// Empty reports whether no record was selected.
func (s Selection) Empty() bool {
	return s.Record == nil
}

// ParseRange parses a semver range expression (caret, tilde, exact,
// wildcard, comparison operators, comma-joined conjunctions). A bare
// version is a caret requirement, per cargo convention: "1.2" means "^1.2".
func ParseRange(expr string) (*semver.Constraints, error) {
	trimmed := strings.TrimSpace(expr)
	if _, err := semver.NewVersion(trimmed); err == nil {
		trimmed = "^" + trimmed
	}
	c, err := semver.NewConstraint(trimmed)
	if err != nil {
		return nil, &InvalidRangeError{Range: expr, Err: err}
	}
	return c, nil
}

// Select picks the maximum version among records, by semver precedence.
//
// With a nil rng, yanked records are excluded; if every record is yanked
// the maximum yanked version is returned anyway, flagged via
// Selection.Yanked, so a crate that exists always yields an answer.
// With a range, only satisfying non-yanked records are considered and an
// empty Selection is returned when none does.
//
// includeYanked opts yanked records into selection in either mode.
func Select(records []Record, rng *semver.Constraints, includeYanked bool) Selection {
	best := pick(records, rng, includeYanked)
	if best == nil && rng == nil && !includeYanked {
		best = pick(records, nil, true)
	}
	if best == nil {
		return Selection{}
	}
	return Selection{Record: best, Yanked: best.Yanked}
}

func pick(records []Record, rng *semver.Constraints, includeYanked bool) *Record {
	var best *Record
	for i := range records {
		r := &records[i]
		if r.Yanked && !includeYanked {
			continue
		}
		if rng != nil && !rng.Check(r.Vers) {
			continue
		}
		if best == nil || r.Vers.GreaterThan(best.Vers) {
			best = r
		}
	}
	return best
}
