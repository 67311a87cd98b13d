package bulkload

import (
	"bytes"
	"io"
	"testing"

	"github.com/klauspost/compress/gzip"
)

func TestMaybeGunzip_PlainPassesThrough(t *testing.T) {
	in := bytes.NewBufferString("<http://ex/a> <http://ex/p> <http://ex/b> .\n")
	r, err := MaybeGunzip(in)
	if err != nil {
		t.Fatal(err)
	}
	out, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != "<http://ex/a> <http://ex/p> <http://ex/b> .\n" {
		t.Errorf("unexpected passthrough content: %q", out)
	}
}

func TestMaybeGunzip_DecompressesGzipInput(t *testing.T) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	want := "<http://ex/a> <http://ex/p> <http://ex/b> .\n"
	if _, err := gz.Write([]byte(want)); err != nil {
		t.Fatal(err)
	}
	if err := gz.Close(); err != nil {
		t.Fatal(err)
	}

	r, err := MaybeGunzip(&buf)
	if err != nil {
		t.Fatal(err)
	}
	out, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != want {
		t.Errorf("got %q, want %q", out, want)
	}
}

func TestMaybeGunzip_EmptyInput(t *testing.T) {
	r, err := MaybeGunzip(bytes.NewReader(nil))
	if err != nil {
		t.Fatal(err)
	}
	out, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 0 {
		t.Errorf("expected empty output, got %q", out)
	}
}
