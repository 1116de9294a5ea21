package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (map[string]any, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--catalog", "../../data/catalog.yaml", "--seed", "7"}, args...))
	if err := cmd.Execute(); err != nil {
		return nil, err
	}
	var body map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &body), out.String())
	return body, nil
}

func TestSearchCommand(t *testing.T) {
	body, err := run(t, "search", "BTS")
	require.NoError(t, err)
	assert.Equal(t, "BTS", body["query"])
	assert.Equal(t, true, body["matched"])

	data, ok := body["data"].(map[string]any)
	require.True(t, ok)
	assert.NotEmpty(t, data["artists"])
	assert.Contains(t, body, "stats")
}

func TestCategoryCommand(t *testing.T) {
	body, err := run(t, "category", "artists", "BTS")
	require.NoError(t, err)
	assert.Equal(t, "artists", body["category"])
	assert.NotEmpty(t, body["items"])

	related, ok := body["related"].(map[string]any)
	require.True(t, ok)
	assert.NotContains(t, related, "artists")

	_, err = run(t, "category", "gadgets", "BTS")
	assert.ErrorContains(t, err, "unknown category")
}

func TestSuggestCommand(t *testing.T) {
	body, err := run(t, "suggest", "--limit", "3")
	require.NoError(t, err)
	sugg, ok := body["suggestions"].([]any)
	require.True(t, ok)
	assert.LessOrEqual(t, len(sugg), 3)
}

func TestCatalogCommand(t *testing.T) {
	body, err := run(t, "catalog")
	require.NoError(t, err)
	assert.Greater(t, body["entries"], float64(0))
	assert.NotEmpty(t, body["keys"])
}

func TestMissingCatalog(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--catalog", "does-not-exist.yaml", "catalog"})
	assert.Error(t, cmd.Execute())
}
