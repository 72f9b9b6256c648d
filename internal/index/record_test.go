package index

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"
)

const libcShard = `{"name":"libc","vers":"0.1.11","deps":[],"cksum":"bb2e92eee3eb0387aa47fa53f46b643ed4cfdff3hash0","features":{},"yanked":true}
{"name":"libc","vers":"0.1.12","deps":[],"cksum":"e32a70cf75e5846d53a673923498228bbec6a8624708a9ea5645f075d6276122","features":{},"yanked":false}
{"name":"libc","vers":"0.2.0","deps":[{"name":"rustc-std-workspace-core","req":"^1.0","features":[],"optional":true,"default_features":true,"target":null,"kind":"normal"}],"cksum":"2caddcab74f6ba1de2e1e2b828a9fb9e8d6cd0bbcbc63dff6aea1271c86cd3fd","features":{"default":["std"],"std":[],"use_std":["std"]},"yanked":false,"links":null,"v":2,"features2":null,"rust_version":"1.13.0"}`

func TestParseShard(t *testing.T) {
	records, err := ParseShard([]byte(libcShard))
	if err != nil {
		t.Fatalf("ParseShard failed: %v", err)
	}

	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}

	if records[0].Vers.String() != "0.1.11" {
		t.Errorf("expected first record 0.1.11, got %s", records[0].Vers)
	}
	if !records[0].Yanked {
		t.Error("expected 0.1.11 to be yanked")
	}
	if records[0].V != 1 {
		t.Errorf("expected schema version default 1, got %d", records[0].V)
	}

	last := records[2]
	if last.V != 2 {
		t.Errorf("expected schema version 2, got %d", last.V)
	}
	if last.RustVersion == nil || *last.RustVersion != "1.13.0" {
		t.Errorf("unexpected rust_version: %v", last.RustVersion)
	}
	if last.Links != nil {
		t.Errorf("expected unset links, got %q", *last.Links)
	}
	if len(last.Deps) != 1 {
		t.Fatalf("expected 1 dependency, got %d", len(last.Deps))
	}
	dep := last.Deps[0]
	if dep.Name != "rustc-std-workspace-core" || dep.Req != "^1.0" {
		t.Errorf("unexpected dependency: %+v", dep)
	}
	if !dep.Optional {
		t.Error("expected optional dependency")
	}
	if dep.Kind == nil || *dep.Kind != "normal" {
		t.Errorf("unexpected kind: %v", dep.Kind)
	}
	if dep.Target != nil {
		t.Errorf("expected unset target, got %q", *dep.Target)
	}
}

func TestParseShardBlankLines(t *testing.T) {
	data := "\n" + `{"name":"a","vers":"1.0.0","deps":[],"cksum":"x","features":{},"yanked":false}` + "\n\n"
	records, err := ParseShard([]byte(data))
	if err != nil {
		t.Fatalf("ParseShard failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
}

func TestParseShardMalformedLine(t *testing.T) {
	data := `{"name":"a","vers":"1.0.0","deps":[],"cksum":"x","features":{},"yanked":false}
{"name":"a","vers":"not-a-version","deps":[],"cksum":"y","features":{},"yanked":false}`

	_, err := ParseShard([]byte(data))
	if err == nil {
		t.Fatal("expected error for malformed record")
	}

	var malformed *MalformedRecordError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedRecordError, got %T", err)
	}
	if malformed.Line != 2 {
		t.Errorf("expected line 2, got %d", malformed.Line)
	}
}

func TestParseShardTruncatedJSON(t *testing.T) {
	_, err := ParseShard([]byte(`{"name":"a","vers":`))
	var malformed *MalformedRecordError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedRecordError, got %v", err)
	}
	if malformed.Line != 1 {
		t.Errorf("expected line 1, got %d", malformed.Line)
	}
}

func TestRecordExtraFieldsPreserved(t *testing.T) {
	line := `{"name":"a","vers":"1.0.0","deps":[],"cksum":"x","features":{},"yanked":false,"homepage_hint":"https://example.com","dl_override":42}`

	records, err := ParseShard([]byte(line))
	if err != nil {
		t.Fatalf("ParseShard failed: %v", err)
	}

	rec := records[0]
	if len(rec.Extra) != 2 {
		t.Fatalf("expected 2 extra fields, got %d", len(rec.Extra))
	}
	if string(rec.Extra["dl_override"]) != "42" {
		t.Errorf("unexpected extra value: %s", rec.Extra["dl_override"])
	}

	out, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if !strings.Contains(string(out), `"homepage_hint":"https://example.com"`) {
		t.Errorf("extra field dropped from output: %s", out)
	}
}

func TestRecordFieldOrder(t *testing.T) {
	records, err := ParseShard([]byte(libcShard))
	if err != nil {
		t.Fatalf("ParseShard failed: %v", err)
	}

	out, err := json.Marshal(records[2])
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	// Substring positions would also match keys inside nested objects
	// (a dep's "features" sits before the top-level "cksum"), so walk
	// the decoder tokens and collect only depth-one keys.
	var keys []string
	dec := json.NewDecoder(strings.NewReader(string(out)))
	depth := 0
	expectKey := false
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch v := tok.(type) {
		case json.Delim:
			switch v {
			case '{', '[':
				depth++
				expectKey = v == '{' && depth == 1
			case '}', ']':
				depth--
				expectKey = depth == 1
			}
		case string:
			if depth == 1 && expectKey {
				keys = append(keys, v)
				expectKey = false
			} else if depth == 1 {
				expectKey = true
			}
		default:
			if depth == 1 {
				expectKey = true
			}
		}
	}

	want := []string{"name", "vers", "deps", "cksum", "features", "yanked", "links", "v", "features2", "rust_version"}
	if !reflect.DeepEqual(keys, want) {
		t.Errorf("top-level key order = %v, want %v", keys, want)
	}
}

func TestRecordRoundTrip(t *testing.T) {
	records, err := ParseShard([]byte(libcShard))
	if err != nil {
		t.Fatalf("ParseShard failed: %v", err)
	}

	for _, rec := range records {
		compact, err := json.Marshal(rec)
		if err != nil {
			t.Fatalf("Marshal failed: %v", err)
		}
		reparsed, err := ParseShard(compact)
		if err != nil {
			t.Fatalf("reparse failed: %v", err)
		}
		if len(reparsed) != 1 {
			t.Fatalf("expected 1 record after round trip, got %d", len(reparsed))
		}
		if !reflect.DeepEqual(rec, reparsed[0]) {
			t.Errorf("round trip mismatch:\nbefore %+v\nafter  %+v", rec, reparsed[0])
		}

		// Pretty output is a multi-line object, not a shard line.
		pretty, err := json.MarshalIndent(rec, "", "  ")
		if err != nil {
			t.Fatalf("MarshalIndent failed: %v", err)
		}
		var fromPretty Record
		if err := json.Unmarshal(pretty, &fromPretty); err != nil {
			t.Fatalf("Unmarshal of pretty output failed: %v", err)
		}
		if fromPretty.Vers.String() != rec.Vers.String() || fromPretty.Cksum != rec.Cksum {
			t.Errorf("pretty round trip mismatch for %s", rec.Vers)
		}
	}
}
