package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/bython-lang/bython/internal/cli"
	"github.com/bython-lang/bython/internal/diagnostics"
	"github.com/bython-lang/bython/internal/format"
	"github.com/bython-lang/bython/internal/project"
	"github.com/bython-lang/bython/internal/vfs"
)

// py2by translates Python to brace-delimited .by source, adding braces at
// every significant indentation change.
//
// Flags:
//
//	-o      output file (default: input with .by extension); with a
//	        directory input, the output directory.
//	-stdin  read from stdin, write the translation to stdout.
//	-diff   show the difference instead of writing.
//	-mode   diff mode: unified (default), context, side-by-side.
func main() {
	var (
		output      string
		fromStdin   bool
		showDiff    bool
		diffMode    string
		noLiterals  bool
		verbose     bool
		showVersion bool
		jsonOutput  bool
	)
	flag.StringVar(&output, "o", "", "name of the output file or directory")
	flag.BoolVar(&fromStdin, "stdin", false, "read from stdin instead of a file")
	flag.BoolVar(&showDiff, "diff", false, "show diff output instead of writing")
	flag.StringVar(&diffMode, "mode", "unified", "diff mode: unified, context, side-by-side")
	flag.BoolVar(&noLiterals, "keep-literals", false, "do not rewrite dictionary literals as dict()")
	flag.BoolVar(&verbose, "v", false, "print progress")
	flag.BoolVar(&showVersion, "version", false, "print version and exit")
	flag.BoolVar(&jsonOutput, "json", false, "print version as JSON")
	flag.Parse()

	if showVersion {
		if err := cli.PrintVersion(os.Stdout, "py2by", jsonOutput); err != nil {
			cli.ExitWithError("%v", err)
		}
		return
	}

	mode, err := format.ParseDiffMode(diffMode)
	if err != nil {
		cli.ExitWithError("%v", err)
	}
	diffOpts := format.DefaultDiffOptions()
	diffOpts.Mode = mode

	config := cli.DefaultProjectConfig()
	config.KeepLiterals = noLiterals

	fsys := vfs.NewOS()
	renderer := diagnostics.NewRenderer(cli.UseColor(os.Stderr))
	tr := project.NewTranslator(project.Options{
		FS:        fsys,
		Config:    config,
		Direction: project.ToBraces,
		Logger:    cli.NewLogger(verbose, false),
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

	input := flag.Arg(0)
	if input == "" {
		fmt.Fprintln(os.Stderr, "usage: py2by [flags] <file.py|dir>")
		flag.PrintDefaults()
		os.Exit(2)
	}
	info, err := fsys.Stat(input)
	if err != nil {
		cli.ExitWithError("no file named %s", input)
	}

	var jobs []project.Job
	if info.IsDir() {
		if output == "" {
			output = input + "-by"
		}
		if jobs, err = tr.Plan(input, output); err != nil {
			cli.ExitWithError("%v", err)
		}
	} else {
		if output == "" {
			output = project.OutputName(input, project.ToBraces)
		}
		jobs = []project.Job{{Src: input, Dst: output}}
	}

	if showDiff {
		exitCode := 0
		for _, j := range jobs {
			if j.Copy {
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

	if info.IsDir() {
		sum, err := tr.TranslateTree(context.Background(), input, output)
		if err != nil {
			_ = project.Report(os.Stderr, renderer, err)
			os.Exit(1)
		}
		tr.Logger().Info("%s", sum)
		return
	}

	if _, err := tr.TranslateFile(context.Background(), input, output); err != nil {
		_ = project.Report(os.Stderr, renderer, err)
		os.Exit(1)
	}
}
