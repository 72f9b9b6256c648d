package index

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/Masterminds/semver/v3"
)

// maxRecordLine bounds a single shard line. Large crates (features-heavy)
// publish records well over bufio's default 64K token size.
const maxRecordLine = 16 * 1024 * 1024

// Record is one published version of a crate as stored in its index shard.
//
// Optional wire fields keep explicit unset state: nil pointers and nil maps
// mean the field was absent or null upstream. Fields the schema does not
// name are preserved verbatim in Extra so structured output round-trips.
type Record struct {
	Name        string
	Vers        *semver.Version
	Deps        []Dependency
	Cksum       string
	Features    map[string][]string
	Yanked      bool
	Links       *string
	V           int
	Features2   map[string][]string
	RustVersion *string
	Extra       map[string]json.RawMessage
}

// Dependency is one entry of a record's deps array. Field order mirrors the
// index schema and is preserved in structured output.
type Dependency struct {
	Name            string   `json:"name"`
	Req             string   `json:"req"`
	Features        []string `json:"features"`
	Optional        bool     `json:"optional"`
	DefaultFeatures bool     `json:"default_features"`
	Target          *string  `json:"target"`
	Kind            *string  `json:"kind"`
	Registry        *string  `json:"registry,omitempty"`
	Package         *string  `json:"package,omitempty"`
}

// recordFields are the schema keys handled explicitly; anything else found
// on a record line lands in Extra.
var recordFields = map[string]struct{}{
	"name":         {},
	"vers":         {},
	"deps":         {},
	"cksum":        {},
	"features":     {},
	"yanked":       {},
	"links":        {},
	"v":            {},
	"features2":    {},
	"rust_version": {},
}

func (r *Record) UnmarshalJSON(data []byte) error {
	var w struct {
		Name        string              `json:"name"`
		Vers        *semver.Version     `json:"vers"`
		Deps        []Dependency        `json:"deps"`
		Cksum       string              `json:"cksum"`
		Features    map[string][]string `json:"features"`
		Yanked      bool                `json:"yanked"`
		Links       *string             `json:"links"`
		V           *int                `json:"v"`
		Features2   map[string][]string `json:"features2"`
		RustVersion *string             `json:"rust_version"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if w.Name == "" {
		return errors.New("record has no name")
	}
	if w.Vers == nil {
		return errors.New("record has no vers")
	}

	v := 1
	if w.V != nil {
		v = *w.V
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var extra map[string]json.RawMessage
	for key, val := range raw {
		if _, known := recordFields[key]; known {
			continue
		}
		if extra == nil {
			extra = make(map[string]json.RawMessage)
		}
		extra[key] = val
	}

	*r = Record{
		Name:        w.Name,
		Vers:        w.Vers,
		Deps:        w.Deps,
		Cksum:       w.Cksum,
		Features:    w.Features,
		Yanked:      w.Yanked,
		Links:       w.Links,
		V:           v,
		Features2:   w.Features2,
		RustVersion: w.RustVersion,
		Extra:       extra,
	}
	return nil
}

// MarshalJSON emits fields in schema order rather than alphabetically, so
// structured output stays diff-stable against the upstream index.
// rust_version is omitted when unset, matching the index; links and
// features2 are always emitted, null when unset. Extra fields follow the
// schema fields in sorted key order.
func (r Record) MarshalJSON() ([]byte, error) {
	deps := r.Deps
	if deps == nil {
		deps = []Dependency{}
	}
	features := r.Features
	if features == nil {
		features = map[string][]string{}
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	write := func(key string, v any) error {
		if buf.Len() > 1 {
			buf.WriteByte(',')
		}
		fmt.Fprintf(&buf, "%q:", key)
		enc, err := json.Marshal(v)
		if err != nil {
			return err
		}
		buf.Write(enc)
		return nil
	}

	fields := []struct {
		key string
		val any
	}{
		{"name", r.Name},
		{"vers", r.Vers},
		{"deps", deps},
		{"cksum", r.Cksum},
		{"features", features},
		{"yanked", r.Yanked},
		{"links", r.Links},
		{"v", r.V},
		{"features2", r.Features2},
	}
	for _, f := range fields {
		if err := write(f.key, f.val); err != nil {
			return nil, err
		}
	}
	if r.RustVersion != nil {
		if err := write("rust_version", r.RustVersion); err != nil {
			return nil, err
		}
	}

	keys := make([]string, 0, len(r.Extra))
	for key := range r.Extra {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if err := write(key, r.Extra[key]); err != nil {
			return nil, err
		}
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// ParseShard decodes a shard's bytes into version records in file order.
// Blank lines are skipped. A line that fails to decode aborts the whole
// shard with a MalformedRecordError: a corrupted shard must not yield
// partial answers, since selection depends on seeing every version.
func ParseShard(data []byte) ([]Record, error) {
	var records []Record

	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), maxRecordLine)

	line := 0
	for sc.Scan() {
		line++
		text := bytes.TrimSpace(sc.Bytes())
		if len(text) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(text, &rec); err != nil {
			return nil, &MalformedRecordError{Line: line, Err: err}
		}
		if rec.Deps == nil {
			rec.Deps = []Dependency{}
		}
		for i := range rec.Deps {
			if rec.Deps[i].Features == nil {
				rec.Deps[i].Features = []string{}
			}
		}
		records = append(records, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading shard: %w", err)
	}

	return records, nil
}
