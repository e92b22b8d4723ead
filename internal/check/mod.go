package main

// This package provides custom checks for "go vet":
//   - commentLen verifies that no comments exceed the "MaxLen" length.
//   - xerrorsWrap verifies that xerrors.Errorf only uses %w as the trailing
//     ": %w", the only form that wraps the error.
//
// It can be used like the following:
// `go build && go vet -vettool=./check ./...`
// The comment check ignores generated files and "//go:generate" comments.

import (
	"go/ast"
	"go/constant"
	"go/types"
	"strings"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/unitchecker"
)

// MaxLen is the maximum length of a comment
var MaxLen = 80

const xerrorsPath = "golang.org/x/xerrors"

var commentAnalyzer = &analysis.Analyzer{
	Name: "commentLen",
	Doc:  "checks the lengths of comments",
	Run:  runComment,
}

var wrapAnalyzer = &analysis.Analyzer{
	Name: "xerrorsWrap",
	Doc:  "checks that xerrors.Errorf wraps with a trailing \": %w\"",
	Run:  runWrap,
}

func main() {
	unitchecker.Main(
		commentAnalyzer,
		wrapAnalyzer,
	)
}

// runComment parses all the comments in ast.File
func runComment(pass *analysis.Pass) (interface{}, error) {
fileLoop:
	for _, file := range pass.Files {
		isFirst := true
		for _, cg := range file.Comments {
			for _, c := range cg.List {
				if isFirst && strings.HasPrefix(c.Text, "// Code generated") {
					continue fileLoop
				}
				// in case of /* */ comment there might be multiple lines
				lines := strings.Split(c.Text, "\n")
				for _, line := range lines {
					if strings.HasPrefix(line, "//go:generate") {
						continue
					}
					if len(line) > MaxLen {
						pass.Reportf(c.Pos(), "Comment too long: %s (%d)",
							line, len(line))
					}
				}
				isFirst = false
			}
		}
	}
	return nil, nil
}

// runWrap inspects the format of every call to xerrors.Errorf that can be
// evaluated at compile time.
func runWrap(pass *analysis.Pass) (interface{}, error) {
	for _, file := range pass.Files {
		ast.Inspect(file, func(node ast.Node) bool {
			call, ok := node.(*ast.CallExpr)
			if !ok || len(call.Args) == 0 || !isErrorf(pass, call) {
				return true
			}

			tv, ok := pass.TypesInfo.Types[call.Args[0]]
			if !ok || tv.Value == nil || tv.Value.Kind() != constant.String {
				return true
			}

			format := constant.StringVal(tv.Value)

			count := strings.Count(format, "%w")
			if count == 0 {
				return true
			}

			if count > 1 || !strings.HasSuffix(format, ": %w") {
				pass.Reportf(call.Pos(), "xerrors only wraps a trailing \": %%w\": %q", format)
			}

			return true
		})
	}
	return nil, nil
}

func isErrorf(pass *analysis.Pass, call *ast.CallExpr) bool {
	sel, ok := call.Fun.(*ast.SelectorExpr)
	if !ok {
		return false
	}

	fn, ok := pass.TypesInfo.Uses[sel.Sel].(*types.Func)
	if !ok || fn.Pkg() == nil {
		return false
	}

	return fn.Pkg().Path() == xerrorsPath && fn.Name() == "Errorf"
}
