package imports_test

import (
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const modulePath = "github.com/leeforge/thumbnailer"

// fileImports maps every non-example .go file under root to its imports.
func fileImports(t *testing.T, root string) map[string][]string {
	t.Helper()
	fset := token.NewFileSet()
	out := make(map[string][]string)

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), "_") || strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) != ".go" {
			return nil
		}
		f, err := parser.ParseFile(fset, path, nil, parser.ImportsOnly)
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(root, path)
		for _, spec := range f.Imports {
			p, _ := strconv.Unquote(spec.Path.Value)
			out[filepath.ToSlash(rel)] = append(out[filepath.ToSlash(rel)], p)
		}
		return nil
	})
	require.NoError(t, err)
	return out
}

func TestNoFrameworkImports(t *testing.T) {
	for file, imports := range fileImports(t, filepath.Clean("../..")) {
		for _, p := range imports {
			assert.False(t, strings.HasPrefix(p, "github.com/leeforge/framework"), "%s imports %s", file, p)
		}
	}
}

// The media packages are the pipeline core and must stay usable without
// the HTTP surface or its infrastructure.
func TestMediaCoreLayering(t *testing.T) {
	forbidden := []string{
		"net/http",
		modulePath + "/server",
		modulePath + "/http/",
		modulePath + "/cache",
		modulePath + "/config",
		modulePath + "/metrics",
	}
	core := []string{"media/raster/", "media/format/", "media/processor/"}

	for file, imports := range fileImports(t, filepath.Clean("../..")) {
		inCore := false
		for _, prefix := range core {
			if strings.HasPrefix(file, prefix) && !strings.HasSuffix(file, "_test.go") {
				inCore = true
			}
		}
		if !inCore {
			continue
		}
		for _, p := range imports {
			for _, bad := range forbidden {
				assert.False(t, p == strings.TrimSuffix(bad, "/") || strings.HasPrefix(p, bad), "%s imports %s", file, p)
			}
		}
	}
}
