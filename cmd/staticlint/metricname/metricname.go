// Package metricname определяет анализатор, проверяющий префиксы имен
// в вызовах устаревших сервисов метрик.
//
// Префикс имени выбирает тип метрики, но распознается только операцией,
// для которой он предназначен. Increment("timer.x") создаст обычный счетчик
// с именем "timer.x", а Submit("meter.x", v) - gauge "meter.x".
package metricname

import (
	"go/ast"
	"go/constant"
	"go/types"
	"strings"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/passes/inspect"
	"golang.org/x/tools/go/ast/inspector"
)

var Analyzer = &analysis.Analyzer{
	Name:     "metricname",
	Doc:      "проверка префиксов имен метрик, которые операция не распознает",
	Requires: []*analysis.Analyzer{inspect.Analyzer},
	Run:      run,
}

// Префиксы, которые не действуют для операции
var ignoredPrefixes = map[string][]string{
	"Increment": {"histogram.", "timer."},
	"Decrement": {"histogram.", "timer."},
	"Submit":    {"meter.", "status."},
}

func run(pass *analysis.Pass) (interface{}, error) {
	inspector := pass.ResultOf[inspect.Analyzer].(*inspector.Inspector)

	nodeFilter := []ast.Node{
		(*ast.CallExpr)(nil),
	}

	inspector.Preorder(nodeFilter, func(node ast.Node) {
		call := node.(*ast.CallExpr)
		if len(call.Args) == 0 {
			return
		}

		sel, ok := call.Fun.(*ast.SelectorExpr)
		if !ok {
			return
		}

		prefixes, ok := ignoredPrefixes[sel.Sel.Name]
		if !ok || !isStringMethod(pass, sel) {
			return
		}

		tv, ok := pass.TypesInfo.Types[call.Args[0]]
		if !ok || tv.Value == nil || tv.Value.Kind() != constant.String {
			return
		}
		name := constant.StringVal(tv.Value)

		for _, prefix := range prefixes {
			if strings.HasPrefix(name, prefix) {
				pass.Reportf(call.Args[0].Pos(), "префикс %q не действует для %s: метрика %q будет записана как есть",
					prefix, sel.Sel.Name, name)
				return
			}
		}
	})

	return nil, nil
}

// isStringMethod проверяет, что вызывается метод, первый параметр которого - строка
func isStringMethod(pass *analysis.Pass, sel *ast.SelectorExpr) bool {
	selection, ok := pass.TypesInfo.Selections[sel]
	if !ok || selection.Kind() != types.MethodVal {
		return false
	}

	sig, ok := selection.Type().(*types.Signature)
	if !ok || sig.Params().Len() == 0 {
		return false
	}

	basic, ok := sig.Params().At(0).Type().Underlying().(*types.Basic)
	return ok && basic.Kind() == types.String
}
