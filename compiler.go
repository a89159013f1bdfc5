// Package dslc is a compiler for a small imperative language: tokenizer,
// context-aware preprocessor, recursive-descent parser, typed SSA mid-IR,
// tiered optimizer, x86-64 code generator, and platform binary emitter.
//
// Pipeline ties these stages together the way internal/ictiobus's Frontend
// chains lexical, syntactic, and semantic analysis into one Analyze call:
// each stage's output feeds the next, and the first hard error short
// circuits the rest.
package dslc

import (
	"fmt"

	"github.com/dekarrin/dslc/internal/dsl/ast"
	"github.com/dekarrin/dslc/internal/dsl/binary"
	"github.com/dekarrin/dslc/internal/dsl/codegen"
	"github.com/dekarrin/dslc/internal/dsl/diag"
	"github.com/dekarrin/dslc/internal/dsl/ir"
	"github.com/dekarrin/dslc/internal/dsl/lower"
	"github.com/dekarrin/dslc/internal/dsl/optimize"
	"github.com/dekarrin/dslc/internal/dsl/parse"
	"github.com/dekarrin/dslc/internal/dsl/preprocess"
	"github.com/dekarrin/dslc/internal/dsl/token"
	"github.com/dekarrin/dslc/internal/dslcache"
	"github.com/dekarrin/dslc/internal/dslconfig"
)

// Pipeline runs the full tokenize-to-binary compilation for one
// configuration. It holds no per-compilation state of its own; Compile
// builds a fresh diag.Reporter and ir.Module for every call, so one
// Pipeline value is safe to reuse across translation units.
type Pipeline struct {
	Config dslconfig.Config
	Cache  *dslcache.Cache // nil disables caching
}

// New returns a Pipeline for cfg. If cacheDir is non-empty, Compile stores
// each successful build's output there keyed on source text and cfg; pass
// "" to store nothing. Compile never reads the cache back, so every call
// compiles from scratch either way.
func New(cfg dslconfig.Config, cacheDir string) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	p := &Pipeline{Config: cfg}
	if cacheDir != "" {
		c, err := dslcache.Open(cacheDir)
		if err != nil {
			return nil, err
		}
		p.Cache = c
	}
	return p, nil
}

// Result is everything a completed Compile call produced: the diagnostics
// gathered across every stage and, on success, the module's optimized IR
// and the code generator's artifact before it was wrapped in a container.
type Result struct {
	Diagnostics diag.Summary
	Module      *ir.Module
	Artifact    *codegen.Artifact
}

// Compile runs source through every stage and writes the final executable
// to p.Config.OutputPath. It returns the collected diagnostics even on
// failure, so a caller can render them regardless of whether compilation
// ultimately succeeded.
func (p *Pipeline) Compile(source []byte) (Result, error) {
	reporter := diag.NewReporter(string(source))

	toks, lexErrs := token.Scan(source)
	for _, e := range lexErrs {
		reporter.Error(e.Message, "", e.Line, e.Column)
	}
	if reporter.Summarize().HasErrors() {
		return Result{Diagnostics: reporter.Summarize()}, fmt.Errorf("lexical analysis failed")
	}

	pre := preprocess.Run(toks)

	tree, perr := parse.New(pre.Tokens).ParseProgram()
	if perr != nil {
		reporter.Fatal(perr.Error(), "", perr.Line, 0)
		return Result{Diagnostics: reporter.Summarize()}, fmt.Errorf("parse failed: %w", perr)
	}

	mod := lower.Lower(tree, reporter)
	if reporter.Summarize().HasErrors() {
		return Result{Diagnostics: reporter.Summarize()}, fmt.Errorf("lowering failed")
	}

	var profile *optimize.Profile
	if p.Config.ProfilePath != "" {
		prof, err := optimize.LoadProfile(p.Config.ProfilePath)
		if err != nil {
			return Result{Diagnostics: reporter.Summarize()}, err
		}
		profile = prof
	}

	pipeline := optimize.NewPipeline(p.Config.OptimizationLevel, optimize.Options{
		UnrollFactor: p.Config.UnrollFactor,
		Profile:      profile,
	})
	pipeline.RunToFixpoint(mod, 8)

	target := codegen.ParseTarget(string(p.Config.Target))

	art, err := codegen.Generate(mod, target)
	if err != nil {
		reporter.Fatal(err.Error(), "", 0, 0)
		return Result{Diagnostics: reporter.Summarize(), Module: mod}, fmt.Errorf("code generation failed: %w", err)
	}

	if err := binary.Write(art, target, p.Config.OutputPath); err != nil {
		return Result{Diagnostics: reporter.Summarize(), Module: mod, Artifact: art}, err
	}

	if p.Cache != nil {
		entry := dslcache.Entry{Code: art.Code, Data: art.Data, EntryPoint: art.EntryPoint}
		for _, r := range art.DataRelocs {
			entry.RelocCodeOffsets = append(entry.RelocCodeOffsets, r.CodeOffset)
			entry.RelocDataOffsets = append(entry.RelocDataOffsets, r.DataOffset)
		}
		key := dslcache.NewKey(source, p.Config)
		if err := p.Cache.Put(key, entry); err != nil {
			return Result{Diagnostics: reporter.Summarize(), Module: mod, Artifact: art}, err
		}
	}

	return Result{Diagnostics: reporter.Summarize(), Module: mod, Artifact: art}, nil
}

// ParseOnly runs just the lexical, preprocessing, and syntactic stages,
// returning the resulting AST without lowering or code generation — used
// by tooling that only needs a syntax tree (for example the REPL's :run
// command).
func (p *Pipeline) ParseOnly(source []byte) (*ast.Tree, diag.Summary, error) {
	reporter := diag.NewReporter(string(source))

	toks, lexErrs := token.Scan(source)
	for _, e := range lexErrs {
		reporter.Error(e.Message, "", e.Line, e.Column)
	}
	if reporter.Summarize().HasErrors() {
		return nil, reporter.Summarize(), fmt.Errorf("lexical analysis failed")
	}

	pre := preprocess.Run(toks)
	tree, perr := parse.New(pre.Tokens).ParseProgram()
	if perr != nil {
		reporter.Fatal(perr.Error(), "", perr.Line, 0)
		return nil, reporter.Summarize(), perr
	}
	return tree, reporter.Summarize(), nil
}
