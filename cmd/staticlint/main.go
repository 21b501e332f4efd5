// Staticlint - набор анализаторов для metric-bridge.
//
// Запуск:
//
//	go run ./cmd/staticlint ./...
//
// Проверки из golang.org/x/tools подобраны под код моста: атомарные ячейки
// и мьютексы (atomic, copylock), контексты и фоновые горутины (lostcancel,
// defers, testinggoroutine, sigchanyzer), HTTP и JSON (httpresponse,
// unmarshal, structtag) и общие ошибки (printf, nilness, unusedresult и др.).
//
// Сторонние анализаторы:
//   - errcheck: необработанные ошибки
//   - bodyclose: незакрытые тела HTTP-ответов в клиенте агента
//
// Собственный анализатор metricname находит вызовы Increment, Decrement
// и Submit с префиксом имени, который операция не распознает,
// например Increment("timer.x") или Submit("meter.x", v).
package main

import (
	"github.com/kisielk/errcheck/errcheck"
	"github.com/timakin/bodyclose/passes/bodyclose"
	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/multichecker"
	"golang.org/x/tools/go/analysis/passes/assign"
	"golang.org/x/tools/go/analysis/passes/atomic"
	"golang.org/x/tools/go/analysis/passes/bools"
	"golang.org/x/tools/go/analysis/passes/composite"
	"golang.org/x/tools/go/analysis/passes/copylock"
	"golang.org/x/tools/go/analysis/passes/defers"
	"golang.org/x/tools/go/analysis/passes/errorsas"
	"golang.org/x/tools/go/analysis/passes/httpresponse"
	"golang.org/x/tools/go/analysis/passes/lostcancel"
	"golang.org/x/tools/go/analysis/passes/nilfunc"
	"golang.org/x/tools/go/analysis/passes/nilness"
	"golang.org/x/tools/go/analysis/passes/printf"
	"golang.org/x/tools/go/analysis/passes/sigchanyzer"
	"golang.org/x/tools/go/analysis/passes/stdmethods"
	"golang.org/x/tools/go/analysis/passes/structtag"
	"golang.org/x/tools/go/analysis/passes/testinggoroutine"
	"golang.org/x/tools/go/analysis/passes/tests"
	"golang.org/x/tools/go/analysis/passes/timeformat"
	"golang.org/x/tools/go/analysis/passes/unmarshal"
	"golang.org/x/tools/go/analysis/passes/unreachable"
	"golang.org/x/tools/go/analysis/passes/unusedresult"

	"github.com/25x8/metric-bridge/cmd/staticlint/metricname"
)

// analyzers возвращает все проверки staticlint
func analyzers() []*analysis.Analyzer {
	return []*analysis.Analyzer{
		// Конкурентность и контексты
		atomic.Analyzer,
		copylock.Analyzer,
		lostcancel.Analyzer,
		defers.Analyzer,
		testinggoroutine.Analyzer,
		sigchanyzer.Analyzer,

		// HTTP, JSON и теги
		httpresponse.Analyzer,
		unmarshal.Analyzer,
		structtag.Analyzer,

		// Общие ошибки
		assign.Analyzer,
		bools.Analyzer,
		composite.Analyzer,
		errorsas.Analyzer,
		nilfunc.Analyzer,
		nilness.Analyzer,
		printf.Analyzer,
		stdmethods.Analyzer,
		tests.Analyzer,
		timeformat.Analyzer,
		unreachable.Analyzer,
		unusedresult.Analyzer,

		errcheck.Analyzer,
		bodyclose.Analyzer,

		metricname.Analyzer,
	}
}

func main() {
	multichecker.Main(analyzers()...)
}
