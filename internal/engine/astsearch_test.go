package engine

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractMetaSymbol(t *testing.T) {
	vars := astGrepMetaVars{Single: map[string]struct {
		Text string `json:"text"`
	}{
		"NAME": {Text: "handleRequest"},
		"VAR":  {Text: "x"},
	}}
	assert.Equal(t, "handleRequest", extractMetaSymbol(vars))

	delete(vars.Single, "NAME")
	assert.Equal(t, "x", extractMetaSymbol(vars))

	assert.Equal(t, "", extractMetaSymbol(astGrepMetaVars{}))
}

func TestASTGrepOutputParsing(t *testing.T) {
	raw := `[{
		"text": "fn main() {}",
		"file": "src/main.rs",
		"range": {
			"byteOffset": {"start": 10, "end": 22},
			"start": {"line": 2, "column": 0},
			"end": {"line": 2, "column": 12}
		},
		"metaVariables": {"single": {"NAME": {"text": "main"}}}
	}]`

	var matches []astGrepMatch
	require.NoError(t, json.Unmarshal([]byte(raw), &matches))
	require.Len(t, matches, 1)

	m := matches[0]
	assert.Equal(t, "src/main.rs", m.File)
	assert.Equal(t, 10, m.Range.ByteOffset.Start)
	assert.Equal(t, 22, m.Range.ByteOffset.End)
	assert.Equal(t, 2, m.Range.Start.Line)
	assert.Equal(t, "main", extractMetaSymbol(m.MetaVariables))
}
