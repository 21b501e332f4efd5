package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/tools/go/analysis"
)

func TestAnalyzers(t *testing.T) {
	list := analyzers()

	names := make(map[string]bool, len(list))
	for _, a := range list {
		require.NoError(t, analysis.Validate([]*analysis.Analyzer{a}), a.Name)
		assert.False(t, names[a.Name], "duplicate analyzer %s", a.Name)
		names[a.Name] = true
	}

	for _, name := range []string{"metricname", "errcheck", "bodyclose", "copylock", "lostcancel"} {
		assert.True(t, names[name], "analyzer %s is not registered", name)
	}
}
