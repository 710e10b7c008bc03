package main

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"

	"github.com/xplshn/ttc/pkg/cli"
	"github.com/xplshn/ttc/pkg/compiler"
	"github.com/xplshn/ttc/pkg/config"
	"github.com/xplshn/ttc/pkg/util"
)

func main() {
	app := cli.NewApp("ttc")
	app.Synopsis = "[options] <input.c>"
	app.Description = "A tiny compiler for a small subset of C. It lowers 'int main(void) { return <exp>; }' through three-address code to x86-64 assembly."
	app.Authors = []string{"xplshn"}
	app.Repository = "<https://github.com/xplshn/ttc>"

	var (
		outFile    string
		target     string
		std        string
		configFile string
		dump       string
		binary     string
		quiet      bool
		pedantic   bool
		wall       bool
	)

	fs := app.FlagSet
	fs.String(&outFile, "output", "o", "", "Place the assembly into <file> ('-' for stdout). Default: main.asm", "file")
	fs.String(&target, "target", "t", "", "Set the backend and target (x86_64-linux, x86_64-darwin, qbe[:<target>]).", "target")
	fs.String(&std, "std", "", "", "Specify the language standard (c89, c99, c11, c17). Default: c17", "std")
	fs.String(&configFile, "config", "", "", "Read settings from a YAML project file.", "file")
	fs.String(&dump, "dump", "d", "", "Print an intermediate form (ast, tac, asm, ir) and exit.", "stage")
	fs.String(&binary, "binary", "b", "", "Also assemble and link the output into <file> with 'cc'.", "file")
	fs.Bool(&quiet, "quiet", "q", false, "Do not print progress messages.")
	fs.Bool(&pedantic, "pedantic", "", false, "Issue all warnings demanded by the selected -std.")
	fs.Bool(&wall, "Wall", "", false, "Enable all warnings except pedantic ones.")

	cfg := config.NewConfig()
	warningFlags, featureFlags := cfg.SetupFlagGroups(fs)

	app.Action = func(inputFiles []string) error {
		err := run(cfg, inputFiles, options{
			outFile: outFile, target: target, std: std, configFile: configFile,
			dump: dump, binary: binary, quiet: quiet, pedantic: pedantic, wall: wall,
		}, func() { cfg.ApplyFlagGroups(warningFlags, featureFlags) })
		if err != nil {
			util.Report(os.Stderr, err)
		}
		return err
	}

	if err := app.Run(os.Args[1:]); err != nil {
		if util.IsInternal(err) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

type options struct {
	outFile, target, std, configFile, dump, binary string
	quiet, pedantic, wall                          bool
}

func run(cfg *config.Config, inputFiles []string, opts options, applyGroups func()) error {
	target := opts.target
	if opts.configFile != "" {
		fileTarget, err := cfg.LoadFile(opts.configFile)
		if err != nil {
			return err
		}
		if target == "" {
			target = fileTarget
		}
	}

	// Pedantic changes what -std selects, so it goes first.
	if opts.pedantic {
		cfg.SetWarning(config.WarnPedantic, true)
	}
	if opts.std != "" || opts.pedantic {
		std := opts.std
		if std == "" {
			std = cfg.StdName
		}
		if err := cfg.ApplyStd(std); err != nil {
			return err
		}
	}
	if opts.wall {
		if err := cfg.ApplyFlag("-Wall"); err != nil {
			return err
		}
	}
	applyGroups()

	if err := cfg.SetTarget(runtime.GOOS, runtime.GOARCH, target); err != nil {
		return err
	}
	if opts.outFile != "" {
		cfg.OutputFile = opts.outFile
	}

	switch len(inputFiles) {
	case 0:
		return errors.New("no input file")
	case 1:
	default:
		return fmt.Errorf("expected one input file, got %d", len(inputFiles))
	}
	path := inputFiles[0]

	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("could not read file '%s': %w", path, err)
	}

	toStdout := cfg.OutputFile == "-" || opts.dump != ""
	progress := func(stage string) {
		if !opts.quiet && !toStdout {
			fmt.Println(stage)
		}
	}

	res, err := compiler.CompileWith(cfg, path, []rune(string(content)), compiler.Options{Progress: progress})
	if err != nil {
		return err
	}

	if opts.dump != "" {
		return dumpStage(res, opts.dump)
	}

	if cfg.OutputFile == "-" {
		_, err = os.Stdout.Write(res.Output)
		return err
	}
	if err := os.WriteFile(cfg.OutputFile, res.Output, 0o644); err != nil {
		return fmt.Errorf("could not write '%s': %w", cfg.OutputFile, err)
	}

	if opts.binary != "" {
		progress(fmt.Sprintf("Linking to create '%s'...", opts.binary))
		if err := assembleAndLink(opts.binary, res.Output); err != nil {
			return fmt.Errorf("assembler/linker failed: %w", err)
		}
	}

	if !opts.quiet {
		fmt.Printf("Successfully compiled: %s\n", cfg.OutputFile)
	}
	return nil
}

func dumpStage(res *compiler.Result, stage string) error {
	switch stage {
	case "ast":
		fmt.Print(res.AST)
	case "tac":
		fmt.Print(res.TAC)
	case "asm":
		if res.Asm == nil {
			return errors.New("--dump=asm needs the x86_64 backend")
		}
		fmt.Print(res.Asm)
	case "ir":
		fmt.Print(res.IR)
	default:
		return fmt.Errorf("unknown dump stage '%s'. Supported: ast, tac, asm, ir", stage)
	}
	return nil
}

func assembleAndLink(outFile string, asmText []byte) error {
	asmFile, err := os.CreateTemp("", "ttc-main-*.s")
	if err != nil {
		return fmt.Errorf("failed to create temp file for asm: %w", err)
	}
	defer os.Remove(asmFile.Name())
	if _, err := asmFile.Write(asmText); err != nil {
		asmFile.Close()
		return fmt.Errorf("failed to write temp file for asm: %w", err)
	}
	asmFile.Close()

	cmd := exec.Command("cc", "-o", outFile, asmFile.Name())
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("cc command failed: %w\nOutput:\n%s", err, string(output))
	}
	return nil
}
