package project

import (
	"bytes"
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bython-lang/bython/internal/cache"
	"github.com/bython-lang/bython/internal/cli"
	"github.com/bython-lang/bython/internal/diagnostics"
	"github.com/bython-lang/bython/internal/format"
	"github.com/bython-lang/bython/internal/vfs"
)

func writeFiles(t *testing.T, fsys vfs.FileSystem, files map[string]string) {
	t.Helper()
	for name, data := range files {
		if err := fsys.WriteFile(name, []byte(data), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
}

func readFile(t *testing.T, fsys vfs.FileSystem, name string) string {
	t.Helper()
	data, err := fsys.ReadFile(name)
	if err != nil {
		t.Fatalf("read %s: %v", name, err)
	}
	return string(data)
}

func TestChangeFileName(t *testing.T) {
	tests := []struct {
		name, ext string
		expected  string
	}{
		{"main.by", "", "main.py"},
		{"main.py", "", "main.by"},
		{"dir/mod.by", ".py", "dir/mod.py"},
		{"notes.txt", ".py", "notes.py"},
		{"Makefile", ".by", "Makefile.by"},
	}

	for i, tt := range tests {
		if got := ChangeFileName(tt.name, tt.ext); got != tt.expected {
			t.Fatalf("tests[%d] - name wrong. expected=%q, got=%q", i, tt.expected, got)
		}
	}

	if got := OutputName("a.py", ToBraces); got != "a.by" {
		t.Fatalf("reverse output name wrong: %q", got)
	}
}

func TestTranslateSource(t *testing.T) {
	tests := []struct {
		dir      Direction
		input    string
		expected string
	}{
		{ToIndented, "def f() {\n    return 1\n}\n", "def f() :\n    return 1\n"},
		{ToIndented, "x = 1", "x = 1\n"},
		{ToIndented, "if a {\r\n    b\r\n}\r\n", "if a :\r\n    b\r\n"},
		{ToBraces, "if x:\n    y\n", "if x {\n    y\n}\n"},
		{ToIndented, "", ""},
	}

	for i, tt := range tests {
		tr := NewTranslator(Options{FS: vfs.NewMem(), Direction: tt.dir})
		out, diags, err := tr.TranslateSource("t", []byte(tt.input))
		if err != nil {
			t.Fatalf("tests[%d] - unexpected error: %v", i, err)
		}
		if len(diags) != 0 {
			t.Fatalf("tests[%d] - unexpected diagnostics: %v", i, diags)
		}
		if string(out) != tt.expected {
			t.Fatalf("tests[%d] - output wrong. expected=%q, got=%q", i, tt.expected, out)
		}
	}
}

func TestTranslateSourceUnclosedWarning(t *testing.T) {
	tr := NewTranslator(Options{FS: vfs.NewMem()})
	out, diags, err := tr.TranslateSource("t.by", []byte("if a {\n    b\n"))
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != "if a :\n    b\n" {
		t.Fatalf("output wrong: %q", out)
	}
	if len(diags) != 1 || diags[0].Code != diagnostics.CodeUnbalancedBraces || diags[0].Level != diagnostics.DiagnosticWarning {
		t.Fatalf("expected one unbalanced-brace warning, got %v", diags)
	}

	cfg := cli.DefaultProjectConfig()
	cfg.Strict = true
	tr = NewTranslator(Options{FS: vfs.NewMem(), Config: cfg})
	if _, _, err := tr.TranslateSource("t.by", []byte("if a {\n    b\n")); err == nil {
		t.Fatal("strict mode should reject unclosed blocks")
	}
}

func TestTranslateSourceError(t *testing.T) {
	tr := NewTranslator(Options{FS: vfs.NewMem()})
	src := []byte("x = 1\n}\n")
	_, _, err := tr.TranslateSource("bad.by", src)

	var fe *FileError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FileError, got %T", err)
	}
	if fe.Path != "bad.by" || string(fe.Source) != string(src) {
		t.Fatalf("file error carries wrong context: %+v", fe)
	}
	var ub *diagnostics.UnbalancedBracesError
	if !errors.As(err, &ub) {
		t.Fatalf("expected UnbalancedBracesError inside, got %v", err)
	}
	if ub.Span.Start.Line != 2 {
		t.Fatalf("error line wrong. expected=2, got=%d", ub.Span.Start.Line)
	}
}

func TestTranslateSourceCache(t *testing.T) {
	c := cache.NewLRU(8)
	tr := NewTranslator(Options{FS: vfs.NewMem(), Cache: c})

	for i := 0; i < 3; i++ {
		out, _, err := tr.TranslateSource("a.by", []byte("if a {\n    b\n}\n"))
		if err != nil {
			t.Fatal(err)
		}
		if string(out) != "if a :\n    b\n" {
			t.Fatalf("run %d - output wrong: %q", i, out)
		}
	}

	st := c.Stats()
	if st.Misses != 1 || st.Hits != 2 {
		t.Fatalf("cache stats wrong. expected 1 miss 2 hits, got %+v", st)
	}

	// Same source, other direction: a separate entry.
	rev := NewTranslator(Options{FS: vfs.NewMem(), Cache: c, Direction: ToBraces})
	if _, _, err := rev.TranslateSource("a.by", []byte("if a {\n    b\n}\n")); err != nil {
		t.Fatal(err)
	}
	if st := c.Stats(); st.Misses != 2 || c.Len() != 2 {
		t.Fatalf("direction not part of the cache key: %+v", st)
	}
}

func TestTranslateFile(t *testing.T) {
	fsys := vfs.NewMem()
	writeFiles(t, fsys, map[string]string{"a.by": "if a {\n    b\n}\n"})
	tr := NewTranslator(Options{FS: fsys})
	ctx := context.Background()

	wrote, err := tr.TranslateFile(ctx, "a.by", "out/a.py")
	if err != nil {
		t.Fatal(err)
	}
	if !wrote {
		t.Fatal("first translation should write the output")
	}
	if got := readFile(t, fsys, "out/a.py"); got != "if a :\n    b\n" {
		t.Fatalf("output wrong: %q", got)
	}

	wrote, err = tr.TranslateFile(ctx, "a.by", "out/a.py")
	if err != nil {
		t.Fatal(err)
	}
	if wrote {
		t.Fatal("unchanged output should not be rewritten")
	}
	if stale, err := tr.NeedsUpdate("a.by", "out/a.py"); err != nil || stale {
		t.Fatalf("NeedsUpdate = %v, %v; expected false", stale, err)
	}

	if _, err := tr.TranslateFile(ctx, "missing.by", "out/m.py"); err == nil {
		t.Fatal("expected error for a missing source")
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := tr.TranslateFile(cancelled, "a.by", "out/a.py"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func sampleTree() map[string]string {
	return map[string]string{
		"src/main.by":          "import util\nfrom pkg.helpers import x\nimport os\nprint(util.f(), x)\n",
		"src/util.by":          "def f() {\n    return 1\n}\n",
		"src/pkg/helpers.by":   "x = 1\n",
		"src/pkg/unused.by":    "y = 2\n",
		"src/README.md":        "hello\n",
		"src/.bython/stale.py": "old\n",
	}
}

func TestTranslateTree(t *testing.T) {
	fsys := vfs.NewMem()
	writeFiles(t, fsys, sampleTree())

	cfg := cli.DefaultProjectConfig()
	cfg.Jobs = 2
	tr := NewTranslator(Options{FS: fsys, Config: cfg})

	sum, err := tr.TranslateTree(context.Background(), "src", "src/.bython")
	if err != nil {
		t.Fatal(err)
	}
	if sum.Translated != 4 || sum.Copied != 1 || sum.Unchanged != 0 {
		t.Fatalf("summary wrong: %s", sum)
	}

	expected := map[string]string{
		"src/.bython/util.py":        "def f() :\n    return 1\n",
		"src/.bython/pkg/helpers.py": "x = 1\n",
		"src/.bython/pkg/unused.py":  "y = 2\n",
		"src/.bython/README.md":      "hello\n",
		"src/.bython/stale.py":       "old\n",
	}
	for name, want := range expected {
		if got := readFile(t, fsys, name); got != want {
			t.Fatalf("%s wrong. expected=%q, got=%q", name, want, got)
		}
	}
	if _, err := fsys.Stat("src/.bython/.bython"); err == nil {
		t.Fatal("output directory was translated into itself")
	}

	sum, err = tr.TranslateTree(context.Background(), "src", "src/.bython")
	if err != nil {
		t.Fatal(err)
	}
	if sum.Translated != 0 || sum.Unchanged != 4 {
		t.Fatalf("second run summary wrong: %s", sum)
	}
}

func TestPlan(t *testing.T) {
	fsys := vfs.NewMem()
	writeFiles(t, fsys, sampleTree())
	tr := NewTranslator(Options{FS: fsys})

	jobs, err := tr.Plan("src", "src/.bython")
	if err != nil {
		t.Fatal(err)
	}
	expected := []Job{
		{Src: "src/README.md", Dst: "src/.bython/README.md", Copy: true},
		{Src: "src/main.by", Dst: "src/.bython/main.py"},
		{Src: "src/pkg/helpers.by", Dst: "src/.bython/pkg/helpers.py"},
		{Src: "src/pkg/unused.by", Dst: "src/.bython/pkg/unused.py"},
		{Src: "src/util.by", Dst: "src/.bython/util.py"},
	}
	if !reflect.DeepEqual(jobs, expected) {
		t.Fatalf("plan wrong.\nexpected=%+v\ngot=     %+v", expected, jobs)
	}
}

func TestTranslateTreeError(t *testing.T) {
	fsys := vfs.NewMem()
	writeFiles(t, fsys, map[string]string{
		"src/ok.by":  "x = 1\n",
		"src/bad.by": "}\n",
	})
	tr := NewTranslator(Options{FS: fsys})

	_, err := tr.TranslateTree(context.Background(), "src", "out")
	var fe *FileError
	if !errors.As(err, &fe) || fe.Path != "src/bad.by" {
		t.Fatalf("expected FileError for src/bad.by, got %v", err)
	}
}

func TestTranslateTreeReverse(t *testing.T) {
	fsys := vfs.NewMem()
	writeFiles(t, fsys, map[string]string{"py/a.py": "if x:\n    y\n"})
	tr := NewTranslator(Options{FS: fsys, Direction: ToBraces})

	if _, err := tr.TranslateTree(context.Background(), "py", "by"); err != nil {
		t.Fatal(err)
	}
	if got := readFile(t, fsys, "by/a.by"); got != "if x {\n    y\n}\n" {
		t.Fatalf("reverse output wrong: %q", got)
	}
}

func TestResolveImports(t *testing.T) {
	fsys := vfs.NewMem()
	writeFiles(t, fsys, sampleTree())
	writeFiles(t, fsys, map[string]string{
		"src/a.by": "import b\n",
		"src/b.by": "import a\nimport util\n",
	})

	tests := []struct {
		entry    string
		expected []string
	}{
		{"src/main.by", []string{"src/main.by", "src/util.by", "src/pkg/helpers.by"}},
		{"src/a.by", []string{"src/a.by", "src/b.by", "src/util.by"}},
		{"src/util.by", []string{"src/util.by"}},
	}

	for i, tt := range tests {
		got, err := ResolveImports(fsys, "src", tt.entry)
		if err != nil {
			t.Fatalf("tests[%d] - unexpected error: %v", i, err)
		}
		if !reflect.DeepEqual(got, tt.expected) {
			t.Fatalf("tests[%d] - files wrong. expected=%v, got=%v", i, tt.expected, got)
		}
	}

	if _, err := ResolveImports(fsys, "src", "src/nope.by"); err == nil {
		t.Fatal("expected error for a missing entry point")
	}
}

func TestTranslateProgram(t *testing.T) {
	fsys := vfs.NewMem()
	writeFiles(t, fsys, sampleTree())
	tr := NewTranslator(Options{FS: fsys})

	sum, err := tr.TranslateProgram(context.Background(), "src/main.by", "build")
	if err != nil {
		t.Fatal(err)
	}
	if sum.Translated != 3 {
		t.Fatalf("summary wrong: %s", sum)
	}
	for _, name := range []string{"build/main.py", "build/util.py", "build/pkg/helpers.py"} {
		if _, err := fsys.Stat(name); err != nil {
			t.Fatalf("expected %s: %v", name, err)
		}
	}
	if _, err := fsys.Stat("build/pkg/unused.py"); err == nil {
		t.Fatal("module that is never imported was translated")
	}
}

func TestWatch(t *testing.T) {
	fsys := vfs.NewMem()
	writeFiles(t, fsys, map[string]string{"src/keep.by": "x = 1\n"})

	pw := vfs.NewPollingWatcher(fsys, 5*time.Millisecond)
	if err := pw.Add("src"); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	pw.Start(ctx)
	defer pw.Close()

	built := make(chan string, 16)
	c := cache.NewLRU(0)
	w := NewWatcher(NewTranslator(Options{FS: fsys, Cache: c}))
	w.OnBuild = func(src string, err error) {
		if err != nil {
			t.Errorf("build of %s failed: %v", src, err)
		}
		built <- src
	}

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, pw, "src", "out") }()

	wait := func(want string) {
		t.Helper()
		for {
			select {
			case got := <-built:
				if got == want {
					return
				}
			case <-ctx.Done():
				t.Fatalf("timed out waiting for %s", want)
			}
		}
	}

	writeFiles(t, fsys, map[string]string{"src/a.by": "if a {\n    b\n}\n"})
	wait("src/a.by")
	if got := readFile(t, fsys, "out/a.py"); got != "if a :\n    b\n" {
		t.Fatalf("watched output wrong: %q", got)
	}

	if err := fsys.RemoveAll("src/a.by"); err != nil {
		t.Fatal(err)
	}
	wait("src/a.by")
	if _, err := fsys.Stat("out/a.py"); err == nil {
		t.Fatal("output of a removed source was kept")
	}
	if c.Len() != 0 {
		t.Fatalf("cache still holds %d entries for the removed source", c.Len())
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run returned %v", err)
	}
}

// gatedFS blocks the first read of one file until release is closed.
type gatedFS struct {
	vfs.FileSystem
	name    string
	reading chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *gatedFS) ReadFile(name string) ([]byte, error) {
	data, err := g.FileSystem.ReadFile(name)
	if name == g.name {
		g.once.Do(func() {
			close(g.reading)
			<-g.release
		})
	}
	return data, err
}

type chanWatcher struct {
	events chan vfs.Event
	errs   chan error
}

func (w *chanWatcher) Events() <-chan vfs.Event { return w.events }
func (w *chanWatcher) Errors() <-chan error     { return w.errs }
func (w *chanWatcher) Add(string) error         { return nil }
func (w *chanWatcher) Remove(string) error      { return nil }
func (w *chanWatcher) Close() error             { return nil }

func TestWatchWriteDuringRebuild(t *testing.T) {
	mem := vfs.NewMem()
	writeFiles(t, mem, map[string]string{"src/a.by": "x = 1\n"})
	fsys := &gatedFS{
		FileSystem: mem,
		name:       "src/a.by",
		reading:    make(chan struct{}),
		release:    make(chan struct{}),
	}
	w := &chanWatcher{events: make(chan vfs.Event), errs: make(chan error)}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	built := make(chan error, 16)
	wt := NewWatcher(NewTranslator(Options{FS: fsys}))
	wt.OnBuild = func(src string, err error) { built <- err }

	done := make(chan error, 1)
	go func() { done <- wt.Run(ctx, w, "src", "out") }()

	w.events <- vfs.Event{Path: "src/a.by", Op: vfs.OpWrite}
	select {
	case <-fsys.reading:
	case <-ctx.Done():
		t.Fatal("first rebuild never read the source")
	}

	writeFiles(t, mem, map[string]string{"src/a.by": "x = 2\n"})
	w.events <- vfs.Event{Path: "src/a.by", Op: vfs.OpWrite}
	// The loop is sequential: once this is accepted the write above was handled.
	w.events <- vfs.Event{Path: "elsewhere/b.by", Op: vfs.OpWrite}
	close(fsys.release)

	select {
	case err := <-built:
		if err != nil {
			t.Fatal(err)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for the rebuild")
	}
	if got := readFile(t, mem, "out/a.py"); got != "x = 2\n" {
		t.Fatalf("output after the last write wrong. expected=%q, got=%q", "x = 2\n", got)
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run returned %v", err)
	}
}

func TestTranslatorForget(t *testing.T) {
	c := cache.NewLRU(8)
	tr := NewTranslator(Options{FS: vfs.NewMem(), Cache: c})

	if _, _, err := tr.TranslateSource("a.by", []byte("x = 1\n")); err != nil {
		t.Fatal(err)
	}
	if c.Len() != 1 {
		t.Fatalf("expected one cached entry, got %d", c.Len())
	}
	tr.Forget("a.by")
	tr.Forget("never-seen.by")
	if c.Len() != 0 {
		t.Fatalf("Forget left %d entries", c.Len())
	}
}

func TestReport(t *testing.T) {
	tr := NewTranslator(Options{FS: vfs.NewMem()})
	_, _, err := tr.TranslateSource("bad.by", []byte("x = 1\r\n}\r\n"))
	if err == nil {
		t.Fatal("expected an error")
	}

	var buf bytes.Buffer
	if err := Report(&buf, diagnostics.NewRenderer(false), err); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "bad.by:2:1: error[B001]:") {
		t.Fatalf("report header wrong: %q", out)
	}
	if !strings.Contains(out, "   2 | }\n") || strings.Contains(out, "\r") {
		t.Fatalf("report excerpt wrong: %q", out)
	}

	buf.Reset()
	if err := Report(&buf, diagnostics.NewRenderer(false), errors.New("read failed")); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "error: read failed\n" {
		t.Fatalf("plain report wrong: %q", buf.String())
	}
}

func TestReportWarnings(t *testing.T) {
	tr := NewTranslator(Options{FS: vfs.NewMem()})
	src := []byte("if a {\n    b\n")
	_, diags, err := tr.TranslateSource("w.by", src)
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := ReportWarnings(&buf, diagnostics.NewRenderer(false), "w.by", src, diags); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(buf.String(), "w.by:1:6: warning[B001]:") {
		t.Fatalf("warning header wrong: %q", buf.String())
	}
}

func TestDiff(t *testing.T) {
	fsys := vfs.NewMem()
	writeFiles(t, fsys, map[string]string{
		"py/a.py":    "if x:\n    y\n",
		"py/same.py": "x = 1\n",
	})
	tr := NewTranslator(Options{FS: fsys, Direction: ToBraces})

	jobs, err := tr.Plan("py", "by")
	if err != nil {
		t.Fatal(err)
	}
	if len(jobs) != 2 {
		t.Fatalf("expected two jobs, got %+v", jobs)
	}

	opts := format.DefaultDiffOptions()
	opts.ShowNumbers = false
	diff, err := tr.Diff(jobs[0], opts)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"--- py/a.py\n", "+++ by/a.by\n", "-if x:\n", "+if x {\n", "+}\n"} {
		if !strings.Contains(diff, want) {
			t.Fatalf("diff missing %q:\n%s", want, diff)
		}
	}

	if diff, err := tr.Diff(jobs[1], opts); err != nil || diff != "" {
		t.Fatalf("unchanged file should diff empty, got %q, %v", diff, err)
	}

	if _, err := tr.Diff(Job{Src: "py/missing.py", Dst: "by/missing.by"}, opts); err == nil {
		t.Fatal("expected error for a missing source")
	}

	if _, err := fsys.Stat("by"); err == nil {
		t.Fatal("Diff must not write output")
	}
}
