// Package pkgutil loads Go packages and builds their SSA form for constraint
// extraction.
package pkgutil

import (
	"errors"
	"fmt"
	"os"

	"github.com/BarrensZeppelin/andersen/internal/slices"
	"golang.org/x/tools/go/packages"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"
)

// Should be equivalent to packages.LoadAllSyntax (which is deprecated)
const LoadMode = packages.NeedSyntax | packages.NeedTypesInfo | packages.NeedTypes |
	packages.NeedTypesSizes | packages.NeedImports | packages.NeedName |
	packages.NeedFiles | packages.NeedCompiledGoFiles | packages.NeedDeps

var ErrLoad = errors.New("errors encountered while loading packages")

func LoadPackagesFromSource(source string) ([]*packages.Package, error) {
	// We use the Overlay mechanism to allow the tool to load a non-existent file.
	config := &packages.Config{
		Mode:  LoadMode,
		Tests: false,
		Dir:   "",
		Env:   append(os.Environ(), "GO111MODULE=off", "GOPATH=/fake"),
		Overlay: map[string][]byte{
			"/fake/testpackage/main.go": []byte(source),
		},
	}

	return LoadPackagesWithConfig(config, "/fake/testpackage/main.go")
}

func LoadPackagesWithConfig(config *packages.Config, queries ...string) ([]*packages.Package, error) {
	pkgs, err := packages.Load(config, queries...)
	switch {
	case err != nil:
		return nil, fmt.Errorf("loading %v: %w", queries, err)
	case packages.PrintErrors(pkgs) > 0:
		return pkgs, ErrLoad
	default:
		return pkgs, nil
	}
}

// BuildSSA creates and builds the SSA program for the given packages and
// returns it together with the SSA packages of the main packages among them.
func BuildSSA(pkgs []*packages.Package, mode ssa.BuilderMode) (*ssa.Program, []*ssa.Package) {
	prog, spkgs := ssautil.AllPackages(pkgs, mode)
	prog.Build()

	// Packages with errors have no SSA form.
	built := slices.Filter(spkgs, func(p *ssa.Package) bool { return p != nil })
	return prog, ssautil.MainPackages(built)
}
