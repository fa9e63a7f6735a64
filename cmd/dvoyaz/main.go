// Command dvoyaz is the bilingual expression language's CLI: a batch
// runner, a bytecode compiler/disassembler, the optional LLVM native
// side path, and a REPL (the default with no subcommand).
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dvoyaz-lang/dvoyaz/internal/config"
	"github.com/dvoyaz-lang/dvoyaz/internal/native"
	"github.com/dvoyaz-lang/dvoyaz/pkg/bytecode"
	"github.com/dvoyaz-lang/dvoyaz/pkg/compiler"
	"github.com/dvoyaz-lang/dvoyaz/pkg/parser"
	"github.com/dvoyaz-lang/dvoyaz/pkg/vm"
)

var (
	version      = "0.1.0"
	configPath   string
	log          zerolog.Logger
	activeConfig = config.Default()
)

func main() {
	root := &cobra.Command{
		Use:     "dvoyaz",
		Short:   "dvoyaz - a bilingual expression language",
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runREPL()
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "dvoyaz.yaml", "path to an optional YAML config file")

	root.AddCommand(runCmd(), compileCmd(), disassembleCmd(), nativeCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func loadConfig() config.Config {
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "warning: config:", err)
		cfg = config.Default()
	}
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log = zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()
	activeConfig = cfg
	return cfg
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <file>",
		Short: "run a .dvz source file or a .dvc bytecode file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loadConfig()
			return runFile(args[0])
		},
	}
}

func runFile(filename string) error {
	if filepath.Ext(filename) == ".dvc" {
		f, err := os.Open(filename)
		if err != nil {
			return fmt.Errorf("open %s: %w", filename, err)
		}
		defer f.Close()
		mod, err := bytecode.Decode(f)
		if err != nil {
			return fmt.Errorf("decode %s: %w", filename, err)
		}
		return execute(mod)
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("read %s: %w", filename, err)
	}
	mod, err := compileSource(string(data))
	if err != nil {
		return err
	}
	return execute(mod)
}

func compileSource(src string) (*bytecode.Module, error) {
	p, err := parser.New(src)
	if err != nil {
		return nil, fmt.Errorf("lex: %w", err)
	}
	prog, err := p.Parse()
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	mod, err := compiler.New().Compile(prog)
	if err != nil {
		return nil, fmt.Errorf("compile: %w", err)
	}
	return mod, nil
}

func execute(mod *bytecode.Module) error {
	machine := vm.New()
	applyLimits(machine)
	log.Debug().Int("functions", len(mod.Functions)).Msg("running module")
	_, err := machine.Run(mod)
	return err
}

// applyLimits overrides a freshly constructed VM's resource ceilings
// with the active config's values (0 leaves New's default in place).
func applyLimits(machine *vm.VM) {
	if activeConfig.MaxStack != 0 {
		machine.MaxStack = activeConfig.MaxStack
	}
	if activeConfig.MaxFrames != 0 {
		machine.MaxFrames = activeConfig.MaxFrames
	}
	if activeConfig.MaxCallArgs != 0 {
		machine.MaxCallArgs = activeConfig.MaxCallArgs
	}
}

func compileCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "compile <file...>",
		Short: "compile one or more .dvz files to .dvc bytecode, concurrently",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loadConfig()
			// Independent compile(source) -> module calls share no VM
			// state, so multiple input files compile in parallel.
			var g errgroup.Group
			for _, in := range args {
				in := in
				g.Go(func() error { return compileFile(in, out) })
			}
			return g.Wait()
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "output path (single-file compiles only; default replaces .dvz with .dvc)")
	return cmd
}

func compileFile(inputFile, outputFile string) error {
	if outputFile == "" {
		if ext := filepath.Ext(inputFile); ext == ".dvz" {
			outputFile = strings.TrimSuffix(inputFile, ext) + ".dvc"
		} else {
			outputFile = inputFile + ".dvc"
		}
	}
	data, err := os.ReadFile(inputFile)
	if err != nil {
		return fmt.Errorf("read %s: %w", inputFile, err)
	}
	mod, err := compileSource(string(data))
	if err != nil {
		return fmt.Errorf("%s: %w", inputFile, err)
	}
	f, err := os.Create(outputFile)
	if err != nil {
		return fmt.Errorf("create %s: %w", outputFile, err)
	}
	defer f.Close()
	if err := bytecode.Encode(mod, f); err != nil {
		return fmt.Errorf("encode %s: %w", outputFile, err)
	}
	fmt.Printf("%s -> %s\n", inputFile, outputFile)
	return nil
}

func disassembleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "disassemble <file.dvc>",
		Short: "print a human-readable disassembly of a compiled bytecode file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			mod, err := bytecode.Decode(f)
			if err != nil {
				return err
			}
			disassemble(mod)
			return nil
		},
	}
}

func disassemble(mod *bytecode.Module) {
	fmt.Println("globals:", mod.Globals)
	for i, in := range mod.MainCode {
		fmt.Printf("  %4d: %s %d\n", i, in.Op, in.Operand)
	}
	for _, fn := range mod.Functions {
		fmt.Printf("\nfunc %s/%d:\n", fn.Name, fn.Arity)
		for i, in := range fn.Code {
			fmt.Printf("  %4d: %s %d\n", i, in.Op, in.Operand)
		}
	}
}

func nativeCmd() *cobra.Command {
	var irOut, binOut string
	cmd := &cobra.Command{
		Use:   "native <file.dvz>",
		Short: "lower a restricted subset of a source file to native code via LLVM (out of scope, best-effort)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			p, err := parser.New(string(data))
			if err != nil {
				return err
			}
			prog, err := p.Parse()
			if err != nil {
				return err
			}
			if irOut == "" {
				irOut = strings.TrimSuffix(args[0], filepath.Ext(args[0])) + ".ll"
			}
			if binOut == "" {
				binOut = strings.TrimSuffix(args[0], filepath.Ext(args[0]))
			}
			return native.Emit(prog, irOut, binOut)
		},
	}
	cmd.Flags().StringVar(&irOut, "ir-out", "", "path to write textual LLVM IR (default: input with .ll extension)")
	cmd.Flags().StringVar(&binOut, "out", "", "path to write the native binary (default: input without extension)")
	return cmd
}

func runREPL() error {
	cfg := loadConfig()
	fmt.Printf("dvoyaz %s - type an expression, or :quit to exit\n", version)

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	// Each line is its own independent compile+run: a Compiler is built
	// for a single Compile call, and a Run call reinitializes globals
	// from the module's own table, so no state survives between lines.
	for {
		input, err := line.Prompt("dvoyaz> ")
		if err != nil {
			// io.EOF on Ctrl-D, liner.ErrPromptAborted on Ctrl-C.
			fmt.Println()
			return nil
		}
		trimmed := strings.TrimSpace(input)
		if trimmed == "" {
			continue
		}
		line.AppendHistory(input)
		if trimmed == ":quit" || trimmed == ":exit" {
			return nil
		}

		mod, err := compileSource(input)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			continue
		}
		if cfg.EchoBytecode {
			disassemble(mod)
		}
		machine := vm.New()
		applyLimits(machine)
		result, err := machine.Run(mod)
		if err != nil {
			fmt.Fprintln(os.Stderr, "runtime error:", err)
			continue
		}
		fmt.Println(result.String())
	}
}
