package cli

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/git-pkgs/cargo-query/internal/render"
)

func TestQueryOptsView(t *testing.T) {
	tests := []struct {
		name string
		opts queryOpts
		want render.View
	}{
		{"default", queryOpts{}, render.ViewRecord},
		{"deps", queryOpts{deps: true}, render.ViewDeps},
		{"features", queryOpts{features: true}, render.ViewFeatures},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.opts.view(); got != tt.want {
				t.Errorf("view() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestQueryOptsEncoding(t *testing.T) {
	tests := []struct {
		name string
		opts queryOpts
		want render.Encoding
	}{
		{"default", queryOpts{}, render.EncodingPlain},
		{"list", queryOpts{addAll: true}, render.EncodingList},
		{"json", queryOpts{jsonOut: true}, render.EncodingJSON},
		{"json pretty", queryOpts{jsonOut: true, pretty: true}, render.EncodingJSONPretty},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.opts.encoding(); got != tt.want {
				t.Errorf("encoding() = %q, want %q", got, tt.want)
			}
		})
	}
}

const libcShardLine = `{"name":"libc","vers":"0.2.155","deps":[],"cksum":"97b3888a4aecf77e811145cadf6eef5901f4782c53886191b2f693f24761847c","features":{"use_std":["std"],"default":["std"],"std":[]},"yanked":false}`

func newIndexServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/li/bc/libc" {
			w.Write([]byte(libcShardLine + "\n"))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(server.Close)
	return server
}

func runRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return stdout.String(), err
}

func TestRootCommandFeatures(t *testing.T) {
	server := newIndexServer(t)

	out, err := runRoot(t, "--index", server.URL, "-f", "libc")
	if err != nil {
		t.Fatalf("command failed: %v", err)
	}
	if want := "libc:default std use_std\n"; out != want {
		t.Errorf("output = %q, want %q", out, want)
	}
}

func TestRootCommandAddAll(t *testing.T) {
	server := newIndexServer(t)

	out, err := runRoot(t, "--index", server.URL, "-a", "libc")
	if err != nil {
		t.Fatalf("command failed: %v", err)
	}
	if want := "libc@0.2.155\n"; out != want {
		t.Errorf("output = %q, want %q", out, want)
	}
}

func TestRootCommandNotFound(t *testing.T) {
	server := newIndexServer(t)

	_, err := runRoot(t, "--index", server.URL, "no-such-crate")
	if err == nil {
		t.Fatal("expected error for missing crate")
	}
	if !strings.Contains(err.Error(), "1 of 1 packages failed") {
		t.Errorf("error = %v, want failure count", err)
	}
}

func TestRootCommandBadArgumentKeepsSiblingOutput(t *testing.T) {
	server := newIndexServer(t)

	out, err := runRoot(t, "--index", server.URL, "-f", "bad@>>>1", "libc")
	if err == nil {
		t.Fatal("expected non-zero result for the bad argument")
	}
	if !strings.Contains(err.Error(), "1 of 2 packages failed") {
		t.Errorf("error = %v, want failure count", err)
	}
	if want := "libc:default std use_std\n"; out != want {
		t.Errorf("output = %q, want %q", out, want)
	}
}

func TestRootCommandExclusiveFlags(t *testing.T) {
	_, err := runRoot(t, "-d", "-f", "libc")
	if err == nil {
		t.Fatal("expected error for mutually exclusive flags")
	}
}
