package responder

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileServesPlainContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.html")
	if err := os.WriteFile(path, []byte("<html>hi</html>"), 0o644); err != nil {
		t.Fatal(err)
	}

	f := NewFile(path, true, 1024, nil)
	if !f.StartResponding(nil) {
		t.Fatal("expected StartResponding to succeed")
	}
	if f.GetContentType() != "text/html" {
		t.Fatalf("content type = %q", f.GetContentType())
	}
	if f.GetContentEncoding() != "" {
		t.Fatal("expected no gzip sibling")
	}
	if f.GetContentLength() != len("<html>hi</html>") {
		t.Fatalf("content length = %d", f.GetContentLength())
	}

	var got []byte
	for f.IsActive() {
		chunk := f.GetResponseNext(4)
		got = append(got, chunk...)
	}
	if string(got) != "<html>hi</html>" {
		t.Fatalf("got %q", got)
	}
}

func TestFilePrefersGzipSibling(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.html")
	os.WriteFile(path, []byte("plain"), 0o644)
	os.WriteFile(path+".gz", []byte("gzippedbytes"), 0o644)

	f := NewFile(path, true, 1024, nil)
	f.StartResponding(nil)
	if f.GetContentEncoding() != "gzip" {
		t.Fatal("expected gzip sibling to be served")
	}
	if f.GetContentLength() != len("gzippedbytes") {
		t.Fatalf("content length = %d", f.GetContentLength())
	}
}

func TestFileMissingIsInactive(t *testing.T) {
	f := NewFile("/no/such/file", false, 1024, nil)
	if f.StartResponding(nil) {
		t.Fatal("expected StartResponding to fail for missing file")
	}
	if f.IsActive() {
		t.Fatal("expected inactive")
	}
}
