// Package fslint reports direct filesystem calls in dirsync packages that are
// expected to go through an afero.Fs, so that every mirror operation can run
// against an in-memory filesystem in tests.
package fslint

import (
	"fmt"
	"go/ast"
	"go/token"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"golang.org/x/tools/go/analysis"
)

// Config represents the fslint configuration.
type Config struct {
	ScanDirs        []string            `toml:"scan_dirs"`
	AllowedPackages []string            `toml:"allowed_packages"`
	AllowedFiles    []string            `toml:"allowed_files"`
	SkipTests       bool                `toml:"skip_tests"`
	ForbiddenCalls  map[string][]string `toml:"forbidden_calls"`
}

// Analyzer is the fslint analyzer for standalone use; its config file is
// set with the -config flag.
var Analyzer = newAnalyzer("")

// newAnalyzer returns an analyzer reading its config from configPath, which
// the -config flag can override.
func newAnalyzer(configPath string) *analysis.Analyzer {
	a := &analysis.Analyzer{
		Name: "fslint",
		Doc:  "reports filesystem calls that bypass afero in packages listed in the fslint config",
	}
	a.Flags.StringVar(&configPath, "config", configPath, "path to fslint config file (required)")
	a.Run = func(pass *analysis.Pass) (any, error) {
		cfg, err := loadConfig(configPath)
		if err != nil {
			return nil, err
		}
		check(pass, cfg)
		return nil, nil
	}
	return a
}

func loadConfig(file string) (*Config, error) {
	if file == "" {
		return nil, fmt.Errorf("config file path is required (use -config flag)")
	}

	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &cfg, nil
}

func check(pass *analysis.Pass, cfg *Config) {
	pkgPath := pass.Pkg.Path()
	if !shouldScanPackage(pkgPath, cfg.ScanDirs) || isAllowedPackage(pkgPath, cfg.AllowedPackages) {
		return
	}

	forbidden := cfg.forbiddenSet()
	for _, file := range pass.Files {
		filename := pass.Fset.Position(file.Pos()).Filename
		if cfg.skipFile(filename) {
			continue
		}
		for _, call := range forbiddenCalls(file, forbidden) {
			pass.Reportf(call.pos, "%s.%s bypasses afero; route it through env.Fs", call.alias, call.name)
		}
	}
}

// forbiddenSet indexes ForbiddenCalls by import path and function name.
func (c *Config) forbiddenSet() map[string]map[string]bool {
	set := make(map[string]map[string]bool, len(c.ForbiddenCalls))
	for pkg, funcs := range c.ForbiddenCalls {
		set[pkg] = make(map[string]bool, len(funcs))
		for _, fn := range funcs {
			set[pkg][fn] = true
		}
	}
	return set
}

// skipFile reports whether a file is exempt, either as a test file or by
// matching one of AllowedFiles as a slash-separated path suffix.
func (c *Config) skipFile(filename string) bool {
	if c.SkipTests && strings.HasSuffix(filename, "_test.go") {
		return true
	}
	slashed := filepath.ToSlash(filename)
	for _, allowed := range c.AllowedFiles {
		if slashed == allowed || strings.HasSuffix(slashed, "/"+allowed) {
			return true
		}
	}
	return false
}

type callSite struct {
	pos   token.Pos
	alias string
	name  string
}

// forbiddenCalls returns the package-qualified calls in file that appear in
// forbidden.
func forbiddenCalls(file *ast.File, forbidden map[string]map[string]bool) []callSite {
	imports := buildImportMap(file)

	var found []callSite
	ast.Inspect(file, func(n ast.Node) bool {
		call, ok := n.(*ast.CallExpr)
		if !ok {
			return true
		}
		sel, ok := call.Fun.(*ast.SelectorExpr)
		if !ok {
			return true
		}
		ident, ok := sel.X.(*ast.Ident)
		if !ok {
			return true
		}
		importPath, ok := imports[ident.Name]
		if !ok {
			return true
		}
		if forbidden[importPath][sel.Sel.Name] {
			found = append(found, callSite{pos: call.Pos(), alias: ident.Name, name: sel.Sel.Name})
		}
		return true
	})
	return found
}

// shouldScanPackage checks if the package path should be scanned based on scan_dirs config.
func shouldScanPackage(pkgPath string, scanDirs []string) bool {
	for _, dir := range scanDirs {
		if strings.Contains(pkgPath, "/"+dir) || strings.HasPrefix(pkgPath, dir) {
			return true
		}
	}
	return false
}

// isAllowedPackage checks if pkgPath matches any allowed package or is a subpackage of it.
func isAllowedPackage(pkgPath string, allowedPackages []string) bool {
	for _, allowed := range allowedPackages {
		if matchesPackagePath(pkgPath, allowed) {
			return true
		}
	}
	return false
}

// matchesPackagePath checks if pkgPath matches the pattern or is a subpackage of it.
// Pattern examples: "internal/journal", "internal/state".
func matchesPackagePath(pkgPath, pattern string) bool {
	return strings.HasSuffix(pkgPath, "/"+pattern) ||
		strings.Contains(pkgPath, "/"+pattern+"/") ||
		pkgPath == pattern ||
		strings.HasPrefix(pkgPath, pattern+"/")
}

// buildImportMap maps each import's local name to its path. Blank and dot
// imports are skipped since calls through them cannot be attributed.
func buildImportMap(file *ast.File) map[string]string {
	imports := make(map[string]string)
	for _, imp := range file.Imports {
		importPath := strings.Trim(imp.Path.Value, `"`)
		name := path.Base(importPath)
		if imp.Name != nil {
			name = imp.Name.Name
		}
		if name == "_" || name == "." {
			continue
		}
		imports[name] = importPath
	}
	return imports
}
