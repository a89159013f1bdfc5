/*
Dslc compiles a source file through the full tokenize-to-binary pipeline and
writes the resulting executable to disk. With no source file given on a
terminal, it drops into an interactive read-compile-print loop instead.

Usage:

	dslc [flags] [SOURCE_FILE]

The flags are:

	-v, --version
		Give the current version of the compiler and then exit.

	-o, --output PATH
		Write the executable to PATH. Defaults to "a.out".

	-t, --target TRIPLE
		One of linux-x64, windows-x64, macos-x64. Defaults to linux-x64.

	-O, --opt LEVEL
		Optimization tier, 0-3. Defaults to 0.

	--unroll FACTOR
		Loop-unrolling trip count cap used by tier 2's LoopUnrolling pass.

	--profile PATH
		Load a YAML profile record to drive tier 3's profile-guided passes.

	--debug
		Emit source-location debug info into the artifact.

	--config PATH
		Load a TOML configuration file over the defaults before applying
		flags; flags explicitly set on the command line still win.

	--cache-dir PATH
		Cache compiled artifacts under PATH, keyed on source and config.

	-i, --interactive
		Force the read-compile-print loop even when a source file is given
		or stdin isn't a terminal.
*/
package main

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/pflag"

	"github.com/dekarrin/dslc"
	"github.com/dekarrin/dslc/internal/dslconfig"
	"github.com/dekarrin/dslc/internal/dslreport"
	"github.com/dekarrin/dslc/internal/version"
)

const (
	ExitSuccess = iota
	ExitCompileError
	ExitInitError
)

var (
	returnCode      = ExitSuccess
	flagVersion     = pflag.BoolP("version", "v", false, "Give the current version of the compiler and then exit")
	flagOutput      = pflag.StringP("output", "o", "", "Write the executable to PATH")
	flagTarget      = pflag.StringP("target", "t", "", "One of linux-x64, windows-x64, macos-x64")
	flagOptLevel    = pflag.IntP("opt", "O", -1, "Optimization tier, 0-3")
	flagUnroll      = pflag.Int("unroll", -1, "Loop-unrolling trip count cap")
	flagProfile     = pflag.String("profile", "", "Load a YAML profile record for profile-guided passes")
	flagDebug       = pflag.Bool("debug", false, "Set the debug-info flag of the configuration (part of the cache key; the artifact carries no debug info)")
	flagConfig      = pflag.String("config", "", "Load a TOML configuration file before applying flags")
	flagCacheDir    = pflag.String("cache-dir", "", "Cache compiled artifacts under PATH")
	flagInteractive = pflag.BoolP("interactive", "i", false, "Force the read-compile-print loop")
)

func main() {
	defer func() {
		if panicErr := recover(); panicErr != nil {
			panic(fmt.Sprintf("unrecoverable panic occurred: %v", panicErr))
		} else {
			os.Exit(returnCode)
		}
	}()

	pflag.Parse()

	if *flagVersion {
		fmt.Printf("%s\n", version.Current)
		return
	}

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err)
		returnCode = ExitInitError
		return
	}

	args := pflag.Args()
	interactive := *flagInteractive || (len(args) == 0 && isatty.IsTerminal(os.Stdin.Fd()))

	if interactive {
		if err := runREPL(cfg); err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: %s\n", err)
			returnCode = ExitCompileError
		}
		return
	}

	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "expected exactly one source file\nDo -h for help.")
		returnCode = ExitInitError
		return
	}

	source, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err)
		returnCode = ExitInitError
		return
	}

	p, err := dslc.New(cfg, *flagCacheDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err)
		returnCode = ExitInitError
		return
	}

	result, err := p.Compile(source)
	printDiagnostics(result)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err)
		returnCode = ExitCompileError
		return
	}
}

// loadConfig builds a Config from --config (if given) with every
// explicitly-set flag applied on top, so a flag always wins over the file
// and the file always wins over NewConfig's defaults.
func loadConfig() (dslconfig.Config, error) {
	cfg := dslconfig.NewConfig()
	if *flagConfig != "" {
		loaded, err := dslconfig.Load(*flagConfig)
		if err != nil {
			return dslconfig.Config{}, err
		}
		cfg = loaded
	}

	if pflag.Lookup("output").Changed {
		cfg.OutputPath = *flagOutput
	}
	if pflag.Lookup("target").Changed {
		cfg.Target = dslconfig.Target(*flagTarget)
	}
	if pflag.Lookup("opt").Changed {
		cfg.OptimizationLevel = *flagOptLevel
	}
	if pflag.Lookup("unroll").Changed {
		cfg.UnrollFactor = *flagUnroll
	}
	if pflag.Lookup("profile").Changed {
		cfg.ProfilePath = *flagProfile
	}
	if pflag.Lookup("debug").Changed {
		cfg.EmitDebugInfo = *flagDebug
	}

	if cfg.OutputPath == "" {
		cfg.OutputPath = "a.out"
	}

	if err := cfg.Validate(); err != nil {
		return dslconfig.Config{}, err
	}
	return cfg, nil
}

func printDiagnostics(result dslc.Result) {
	if len(result.Diagnostics.Entries) > 0 {
		fmt.Fprintln(os.Stderr, dslreport.Diagnostics(result.Diagnostics))
	}

	var artifactBytes int64
	if result.Artifact != nil {
		artifactBytes = int64(len(result.Artifact.Code) + len(result.Artifact.Data))
	}
	fmt.Fprintln(os.Stderr, dslreport.Summary(result.Diagnostics, artifactBytes))
}
