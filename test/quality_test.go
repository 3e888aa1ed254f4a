package test

import (
	"bufio"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"testing"
)

// moduleRoot is the directory above test/.
func moduleRoot() string {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		return "."
	}
	return filepath.Dir(filepath.Dir(filename))
}

// skipDir reports whether a directory is outside the module's own code:
// hidden, vendor and testdata directories, and underscore-prefixed
// reference trees that the go tool ignores too.
func skipDir(name string) bool {
	return strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") || name == "vendor" || name == "testdata"
}

// moduleTestFiles lists every _test.go file in the module except this one.
func moduleTestFiles(t *testing.T) []string {
	t.Helper()
	root := moduleRoot()
	var files []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && skipDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(path, "_test.go") && filepath.Base(path) != "quality_test.go" {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Failed to walk %s: %v", root, err)
	}
	if len(files) == 0 {
		t.Fatal("No test files found - something is wrong with test discovery")
	}
	return files
}

// TestNoSkippedTests ensures no test skips itself. A test that cannot run
// should fail with t.Fatalf instead.
func TestNoSkippedTests(t *testing.T) {
	forbidden := []string{"t.Skip(", "t.SkipNow(", "t.Skipf(", "testing.Short()"}

	var violations []string
	for _, path := range moduleTestFiles(t) {
		f, err := os.Open(path)
		if err != nil {
			t.Fatalf("Failed to open %s: %v", path, err)
		}
		scanner := bufio.NewScanner(f)
		lineNum := 0
		for scanner.Scan() {
			lineNum++
			line := scanner.Text()
			if strings.HasPrefix(strings.TrimSpace(line), "//") {
				continue
			}
			for _, pattern := range forbidden {
				if strings.Contains(line, pattern) {
					violations = append(violations, path+":"+strconv.Itoa(lineNum)+": "+pattern)
				}
			}
		}
		err = scanner.Err()
		f.Close()
		if err != nil {
			t.Fatalf("Error scanning %s: %v", path, err)
		}
	}

	for _, v := range violations {
		t.Errorf("skipped test: %s", v)
	}
}

// TestNoEmptyTests ensures every Test function has a body.
func TestNoEmptyTests(t *testing.T) {
	fset := token.NewFileSet()
	count := 0
	for _, path := range moduleTestFiles(t) {
		file, err := parser.ParseFile(fset, path, nil, parser.SkipObjectResolution)
		if err != nil {
			t.Fatalf("Failed to parse %s: %v", path, err)
		}
		for _, decl := range file.Decls {
			fn, ok := decl.(*ast.FuncDecl)
			if !ok || fn.Recv != nil || !strings.HasPrefix(fn.Name.Name, "Test") {
				continue
			}
			count++
			if fn.Body == nil || len(fn.Body.List) == 0 {
				t.Errorf("%s: %s has an empty body", fset.Position(fn.Pos()), fn.Name.Name)
			}
		}
	}
	if count == 0 {
		t.Error("no Test functions found")
	}
	t.Logf("Checked %d test functions", count)
}
