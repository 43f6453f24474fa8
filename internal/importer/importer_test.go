package importer

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OmidArdestani/RTMC-Framework-sub001/internal/ast"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func declNames(prog *ast.Program) []string {
	var out []string
	for _, d := range prog.Decls {
		switch v := d.(type) {
		case *ast.FuncDecl:
			out = append(out, v.Name)
		case *ast.VarDecl:
			out = append(out, v.Name)
		}
	}
	return out
}

func TestLoadHoistsImportedDeclsBeforeOwn(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "util.rtmc", `int helper() { return 1; }`)
	root := writeFile(t, dir, "main.rtmc", `
		import "util.rtmc";
		int mainFn() { return helper(); }
	`)

	d := NewDriver()
	prog := d.Load(root)
	require.False(t, d.Errors.HasErrors())
	assert.Equal(t, []string{"helper", "mainFn"}, declNames(prog))
}

func TestLoadDiamondImportIsNotDuplicated(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.rtmc", `int shared() { return 1; }`)
	writeFile(t, dir, "left.rtmc", `import "base.rtmc";`)
	writeFile(t, dir, "right.rtmc", `import "base.rtmc";`)
	root := writeFile(t, dir, "main.rtmc", `
		import "left.rtmc";
		import "right.rtmc";
	`)

	d := NewDriver()
	prog := d.Load(root)
	require.False(t, d.Errors.HasErrors())
	count := 0
	for _, name := range declNames(prog) {
		if name == "shared" {
			count++
		}
	}
	assert.Equal(t, 1, count, "shared() must appear exactly once despite being imported via two paths")
}

func TestLoadImportCycleDoesNotInfiniteLoop(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.rtmc", `import "b.rtmc"; int fa() { return 1; }`)
	root := writeFile(t, dir, "b.rtmc", `import "a.rtmc"; int fb() { return 2; }`)

	d := NewDriver()
	done := make(chan *ast.Program, 1)
	go func() { done <- d.Load(root) }()
	select {
	case prog := <-done:
		require.False(t, d.Errors.HasErrors())
		names := declNames(prog)
		assert.Contains(t, names, "fb")
	case <-time.After(2 * time.Second):
		t.Fatal("import cycle caused Load to hang")
	}
}

func TestLoadMissingImportRecordsDiagnostic(t *testing.T) {
	dir := t.TempDir()
	root := writeFile(t, dir, "main.rtmc", `import "missing.rtmc";`)

	d := NewDriver()
	d.Load(root)
	assert.True(t, d.Errors.HasErrors())
}
