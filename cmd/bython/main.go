package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/bython-lang/bython/internal/cache"
	"github.com/bython-lang/bython/internal/cli"
	"github.com/bython-lang/bython/internal/diagnostics"
	"github.com/bython-lang/bython/internal/format"
	"github.com/bython-lang/bython/internal/project"
	"github.com/bython-lang/bython/internal/vfs"
)

// bython translates brace-delimited .by sources to .py and runs them.
//
// A single .by file is translated together with the modules it imports and
// its translation becomes the entry point. A directory is translated as a
// tree; non-source files are copied. Unless -c is given, the entry point is
// then run with -python and the output directory removed afterwards (keep
// it with -k).
//
// Flags:
//
//	-c       translate only, do not run.
//	-k       keep the output directory after running.
//	-o       output directory (default from bython.json, else .bython).
//	-e       entry point inside the output directory (default main.py).
//	-t       prepend the true/false/null compatibility header.
//	-header  header style: none, full, legacy.
//	-strict  reject blocks left open at end of input.
//	-l       list sources whose translation is missing or out of date.
//	-diff    show the difference between source and translation.
//	-mode    diff mode: unified (default), context, side-by-side.
//	-stdin   translate stdin to stdout.
//	-watch   keep translating changed files until interrupted.
//	-poll    watch by polling at this interval instead of OS events.
//	-j       concurrent translations.
//	-init    write the effective configuration to bython.json and exit.
func main() {
	var (
		compileOnly bool
		keep        bool
		outDir      string
		entryPoint  string
		trueFalse   bool
		header      string
		strict      bool
		listOnly    bool
		showDiff    bool
		diffMode    string
		fromStdin   bool
		watch       bool
		poll        time.Duration
		initConfig  bool
		jobs        int
		configPath  string
		target      string
		python      string
		verbose     bool
		debug       bool
		showVersion bool
		jsonOutput  bool
	)
	flag.BoolVar(&compileOnly, "c", false, "translate to Python only, do not run")
	flag.BoolVar(&keep, "k", false, "keep generated Python files after running")
	flag.StringVar(&outDir, "o", "", "output directory")
	flag.StringVar(&entryPoint, "e", "", "entry point inside the output directory")
	flag.BoolVar(&trueFalse, "t", false, "add support for lowercase true/false and null")
	flag.StringVar(&header, "header", "", "compatibility header: none, full, legacy")
	flag.BoolVar(&strict, "strict", false, "reject blocks left open at end of input")
	flag.BoolVar(&listOnly, "l", false, "list sources whose translation is missing or stale")
	flag.BoolVar(&showDiff, "diff", false, "show diff between source and translation")
	flag.StringVar(&diffMode, "mode", "unified", "diff mode: unified, context, side-by-side")
	flag.BoolVar(&fromStdin, "stdin", false, "read from stdin and write the translation to stdout")
	flag.BoolVar(&watch, "watch", false, "retranslate files as they change")
	flag.DurationVar(&poll, "poll", 0, "with -watch, poll for changes at this interval (e.g. 500ms)")
	flag.BoolVar(&initConfig, "init", false, "write the effective configuration to "+cli.ConfigFileName+" and exit")
	flag.IntVar(&jobs, "j", 0, "number of concurrent translations (0 = GOMAXPROCS)")
	flag.StringVar(&configPath, "config", "", "project configuration file (default <input>/"+cli.ConfigFileName+")")
	flag.StringVar(&target, "target", "", "host language version, e.g. 3.12")
	flag.StringVar(&python, "python", "python3", "interpreter used to run the entry point")
	flag.BoolVar(&verbose, "v", false, "print progress")
	flag.BoolVar(&debug, "debug", false, "print debug output")
	flag.BoolVar(&showVersion, "version", false, "print version and exit")
	flag.BoolVar(&jsonOutput, "json", false, "print version as JSON")
	flag.Parse()

	if showVersion {
		if err := cli.PrintVersion(os.Stdout, "bython", jsonOutput); err != nil {
			cli.ExitWithError("%v", err)
		}
		return
	}

	logger := cli.NewLogger(verbose, debug)
	renderer := diagnostics.NewRenderer(cli.UseColor(os.Stderr))
	fsys := vfs.NewOS()

	input := flag.Arg(0)
	if !fromStdin && input == "" {
		fmt.Fprintln(os.Stderr, "usage: bython [flags] <file.by|dir>")
		flag.PrintDefaults()
		os.Exit(2)
	}

	if configPath == "" && input != "" {
		dir := input
		if info, err := fsys.Stat(input); err == nil && !info.IsDir() {
			dir = filepath.Dir(input)
		}
		configPath = filepath.Join(dir, cli.ConfigFileName)
	}
	config, err := cli.LoadProjectConfig(fsys, configPath)
	if err != nil {
		cli.ExitWithError("%v", err)
	}

	if trueFalse {
		config.Header = "full"
	}
	if header != "" {
		config.Header = header
	}
	if strict {
		config.Strict = true
	}
	if jobs > 0 {
		config.Jobs = jobs
	}
	if outDir != "" {
		config.Output = outDir
	}
	if entryPoint != "" {
		config.EntryPoint = entryPoint
	}
	if target != "" {
		config.Target = target
	}
	if err := config.Validate(); err != nil {
		cli.ExitWithError("%v", err)
	}

	if initConfig {
		if err := config.SaveProjectConfig(fsys, configPath); err != nil {
			cli.ExitWithError("%v", err)
		}
		logger.Info("wrote %s", configPath)
		return
	}

	mode, err := format.ParseDiffMode(diffMode)
	if err != nil {
		cli.ExitWithError("%v", err)
	}
	diffOpts := format.DefaultDiffOptions()
	diffOpts.Mode = mode

	tr := project.NewTranslator(project.Options{
		FS:        fsys,
		Config:    config,
		Direction: project.ToIndented,
		Logger:    logger,
		Cache:     cache.NewLRU(0),
	})

	if fromStdin {
		in, err := io.ReadAll(os.Stdin)
		if err != nil {
			cli.ExitWithError("%v", err)
		}
		out, diags, err := tr.TranslateSource("<stdin>", in)
		if err != nil {
			_ = project.Report(os.Stderr, renderer, err)
			os.Exit(1)
		}
		_ = project.ReportWarnings(os.Stderr, renderer, "<stdin>", in, diags)
		if showDiff {
			fmt.Print(format.TranslationDiff("stdin", "stdout", string(in), string(out), diffOpts))
			return
		}
		if _, err := os.Stdout.Write(out); err != nil {
			cli.ExitWithError("%v", err)
		}
		return
	}

	info, err := fsys.Stat(input)
	if err != nil {
		cli.ExitWithError("input path %q is not a valid file or directory", input)
	}
	if !info.IsDir() && filepath.Ext(input) != project.ExtBraces {
		cli.ExitWithError("input file %q is not a %s file", input, project.ExtBraces)
	}

	if listOnly || showDiff {
		list, err := plan(tr, input, info.IsDir(), config)
		if err != nil {
			cli.ExitWithError("%v", err)
		}
		exitCode := 0
		for _, j := range list {
			if j.Copy {
				continue
			}
			if listOnly {
				stale, err := tr.NeedsUpdate(j.Src, j.Dst)
				if err != nil {
					_ = project.Report(os.Stderr, renderer, err)
					exitCode = 1
					continue
				}
				if stale {
					fmt.Fprintln(os.Stdout, j.Src)
				}
				continue
			}
			diff, err := tr.Diff(j, diffOpts)
			if err != nil {
				_ = project.Report(os.Stderr, renderer, err)
				exitCode = 1
				continue
			}
			fmt.Print(diff)
		}
		os.Exit(exitCode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var sum *project.Summary
	if info.IsDir() {
		sum, err = tr.TranslateTree(ctx, input, config.Output)
	} else {
		sum, err = tr.TranslateProgram(ctx, input, config.Output)
	}
	if err != nil {
		_ = project.Report(os.Stderr, renderer, err)
		os.Exit(1)
	}
	logger.Info("%s", sum)

	if watch {
		if !info.IsDir() {
			cli.ExitWithError("-watch needs a directory")
		}
		if err := watchTree(ctx, tr, renderer, poll, input, config.Output); err != nil {
			cli.ExitWithError("%v", err)
		}
		return
	}

	if compileOnly {
		return
	}

	code := runEntry(ctx, python, filepath.Join(config.Output, config.EntryPoint), logger)
	if !keep {
		logger.Info("removing %s", config.Output)
		if err := fsys.RemoveAll(config.Output); err != nil {
			logger.Warn("cleanup: %v", err)
		}
	}
	os.Exit(code)
}

func plan(tr *project.Translator, input string, dir bool, config *cli.ProjectConfig) ([]project.Job, error) {
	if dir {
		return tr.Plan(input, config.Output)
	}
	return []project.Job{{Src: input, Dst: filepath.Join(config.Output, config.EntryPoint)}}, nil
}

func watchTree(ctx context.Context, tr *project.Translator, renderer *diagnostics.Renderer, poll time.Duration, in, out string) error {
	logger := tr.Logger()

	var w vfs.Watcher
	if poll <= 0 {
		fw, err := vfs.NewFSWatcher()
		if err == nil {
			err = fw.AddTree(in)
		}
		if err == nil {
			w = fw
		} else {
			if fw != nil {
				fw.Close()
			}
			logger.Warn("file notifications unavailable (%v), polling instead", err)
		}
	}
	if w == nil {
		pw := vfs.NewPollingWatcher(tr.FS(), poll)
		if err := pw.Add(in); err != nil {
			return err
		}
		pw.Start(ctx)
		w = pw
	}
	defer w.Close()

	logger.Info("watching %s (Ctrl-C to stop)", in)
	watcher := project.NewWatcher(tr)
	watcher.OnBuild = func(src string, err error) {
		var fe *project.FileError
		if errors.As(err, &fe) {
			_ = project.Report(os.Stderr, renderer, err)
		}
	}
	return watcher.Run(ctx, w, in, out)
}

func runEntry(ctx context.Context, python, entry string, logger *cli.Logger) int {
	if _, err := os.Stat(entry); err != nil {
		logger.Error("entry point %q not found", entry)
		return 1
	}
	logger.Info("running %s", entry)

	cmd := exec.CommandContext(ctx, python, entry)
	cmd.Stdin, cmd.Stdout, cmd.Stderr = os.Stdin, os.Stdout, os.Stderr
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode()
		}
		logger.Error("%v", err)
		return 1
	}
	return 0
}
