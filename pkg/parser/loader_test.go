package parser

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

func TestReadFile_Plain(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "client.log")
	content := "2024-01-15 10:00:00 [INFO] a.cpp:1 first\r\n2024-01-15 10:00:01 [INFO] a.cpp:1 second\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	f, err := ReadFile(path, Limits{})
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if f.Name != "client.log" {
		t.Errorf("Name = %q, want client.log", f.Name)
	}
	want := "2024-01-15 10:00:00 [INFO] a.cpp:1 first\n2024-01-15 10:00:01 [INFO] a.cpp:1 second"
	if f.Content != want {
		t.Errorf("Content = %q, want %q", f.Content, want)
	}
}

func TestReadFile_Gzip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "client.log.gz")

	out, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	zw := gzip.NewWriter(out)
	if _, err := zw.Write([]byte("line one\nline two")); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := out.Close(); err != nil {
		t.Fatal(err)
	}

	f, err := ReadFile(path, Limits{})
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if f.Content != "line one\nline two" {
		t.Errorf("Content = %q", f.Content)
	}
}

func TestReadFile_Zstd(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "client.log.zst")

	out, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	enc, err := zstd.NewWriter(out)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := enc.Write([]byte("compressed line")); err != nil {
		t.Fatal(err)
	}
	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}
	if err := out.Close(); err != nil {
		t.Fatal(err)
	}

	f, err := ReadFile(path, Limits{})
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if f.Content != "compressed line" {
		t.Errorf("Content = %q", f.Content)
	}
}

func TestReadFile_NotFound(t *testing.T) {
	if _, err := ReadFile("/nonexistent/client.log", Limits{}); err == nil {
		t.Error("ReadFile() expected error for missing file")
	}
}

func TestReadAll_TooLarge(t *testing.T) {
	text := strings.Repeat("0123456789\n", 20)
	_, err := ReadAll(strings.NewReader(text), "x.log", Limits{MaxInputBytes: 50})
	if !errors.Is(err, ErrInputTooLarge) {
		t.Errorf("ReadAll() error = %v, want ErrInputTooLarge", err)
	}
}

func TestReadAll_LineTooLong(t *testing.T) {
	text := strings.Repeat("x", 200)
	_, err := ReadAll(strings.NewReader(text), "x.log", Limits{MaxLineBytes: 100})
	if !errors.Is(err, ErrInputTooLarge) {
		t.Errorf("ReadAll() error = %v, want ErrInputTooLarge", err)
	}
}

func TestLoadFiles_MergesChronologically(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.log")
	b := filepath.Join(dir, "b.log")
	if err := os.WriteFile(a, []byte("2024-02-01 10:00:00 [INFO] a.cpp:1 later"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(b, []byte("2024-01-01 10:00:00 [INFO] b.cpp:1 earlier"), 0644); err != nil {
		t.Fatal(err)
	}

	text, files, err := LoadFiles(context.Background(), []string{a, b}, Limits{})
	if err != nil {
		t.Fatalf("LoadFiles() error = %v", err)
	}
	if len(files) != 2 {
		t.Errorf("files = %d, want 2", len(files))
	}
	if !strings.HasPrefix(text, "// === FILE: b.log (starts 2024-01-01) ===") {
		t.Errorf("merged text starts with %q", strings.SplitN(text, "\n", 2)[0])
	}
}

func TestLoadFiles_MissingFile(t *testing.T) {
	_, _, err := LoadFiles(context.Background(), []string{"/nonexistent/a.log"}, Limits{})
	if err == nil {
		t.Error("LoadFiles() expected error for missing file")
	}
}
