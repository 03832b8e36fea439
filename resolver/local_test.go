package resolver

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLocalResolver_RoundTrip(t *testing.T) {
	p := filepath.Join(t.TempDir(), "app.apk")
	if err := os.WriteFile(p, []byte("apk"), 0o600); err != nil {
		t.Fatal(err)
	}

	ref, err := Parse("file:" + p)
	if err != nil {
		t.Fatal(err)
	}
	got, err := NewLocalResolver().Resolve(t.Context(), ref)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.Path != p {
		t.Errorf("Path = %q, want %q", got.Path, p)
	}
	if got.IsDir || got.Temporary {
		t.Errorf("unexpected flags: %+v", got)
	}

	// Cleanup never touches local artifacts.
	if err := got.Cleanup(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(p); err != nil {
		t.Errorf("local file removed by Cleanup: %v", err)
	}
}

func TestLocalResolver_TripleSlash(t *testing.T) {
	dir := t.TempDir()
	ref, err := Parse("file://" + dir)
	if err != nil {
		t.Fatal(err)
	}
	got, err := NewLocalResolver().Resolve(t.Context(), ref)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.Path != dir || !got.IsDir {
		t.Errorf("got %+v, want dir %q", got, dir)
	}
}

func TestLocalResolver_NotFound(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.apk")
	ref, err := Parse("file:" + missing)
	if err != nil {
		t.Fatal(err)
	}
	_, err = NewLocalResolver().Resolve(t.Context(), ref)
	if !errors.Is(err, ErrArtifactNotFound) {
		t.Fatalf("err = %v, want ErrArtifactNotFound", err)
	}
	var rerr *Error
	if !errors.As(err, &rerr) || rerr.Path != missing {
		t.Errorf("error path = %v, want %q", rerr, missing)
	}
	if !strings.Contains(err.Error(), missing) {
		t.Errorf("message %q does not name the path", err.Error())
	}
}

func TestLocalPath(t *testing.T) {
	tests := map[string]string{
		"/tmp/a":            "/tmp/a",
		"///tmp/a":          "/tmp/a",
		"//localhost/tmp/a": "/tmp/a",
		"//server/share/a":  "//server/share/a",
		"relative/a":        "relative/a",
		"//":                "//",
	}
	for in, want := range tests {
		if got := LocalPath(in); got != want {
			t.Errorf("LocalPath(%q) = %q, want %q", in, got, want)
		}
	}
}
