package sphinxconf

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/core-tools/hsu-searchd/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
# main catalogue
source catalogue
{
    type      = mysql
    sql_query = SELECT id, title \
                FROM products
}

index catalogue
{
    source = catalogue
    path   = /var/lib/sphinx/catalogue
}

index catalogue_delta : catalogue
{
    path = /var/lib/sphinx/catalogue_delta
}

indexer {
    mem_limit = 128M
}

searchd
{
    listen   = 9312
    listen   = 9306:mysql41
    pid_file = /var/run/sphinx/searchd.pid
}
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sphinx.conf")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestParse_Sections(t *testing.T) {
	config, err := Parse(strings.NewReader(sampleConfig))
	require.NoError(t, err)
	require.Len(t, config.Sections, 5)

	searchd, ok := config.Find("searchd", "")
	require.True(t, ok)
	pidFile, ok := searchd.Get("pid_file")
	assert.True(t, ok)
	assert.Equal(t, "/var/run/sphinx/searchd.pid", pidFile)
	assert.Equal(t, []string{"9312", "9306:mysql41"}, searchd.GetAll("listen"))

	indexer, ok := config.Find("indexer", "")
	require.True(t, ok)
	assert.Equal(t, map[string]string{"mem_limit": "128M"}, indexer.Settings())
}

func TestParse_ContinuationLines(t *testing.T) {
	config, err := Parse(strings.NewReader(sampleConfig))
	require.NoError(t, err)

	source, ok := config.Find("source", "catalogue")
	require.True(t, ok)
	query, _ := source.Get("sql_query")
	assert.Equal(t, "SELECT id, title FROM products", query)
}

func TestParse_Inheritance(t *testing.T) {
	config, err := Parse(strings.NewReader(sampleConfig))
	require.NoError(t, err)

	delta, ok := config.Find("index", "catalogue_delta")
	require.True(t, ok)
	assert.Equal(t, "catalogue", delta.Parent)

	source, _ := delta.Get("source")
	assert.Equal(t, "catalogue", source)
	path, _ := delta.Get("path")
	assert.Equal(t, "/var/lib/sphinx/catalogue_delta", path)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unclosed", "searchd\n{\n pid_file = /tmp/x.pid\n"},
		{"stray_close", "}\n"},
		{"brace_without_header", "{\n}\n"},
		{"no_equals", "searchd\n{\n pid_file /tmp/x.pid\n}\n"},
		{"missing_parent", "index a : b\n{\n}\n"},
		{"header_without_body", "searchd\nindexer\n{\n}\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.content))
			assert.Error(t, err)
		})
	}
}

func TestFileLookup_Section(t *testing.T) {
	path := writeConfig(t, sampleConfig)
	lookup := NewFileLookup()

	settings, err := lookup.Section(path, "searchd")
	require.NoError(t, err)
	assert.Equal(t, "/var/run/sphinx/searchd.pid", settings["pid_file"])
	assert.Equal(t, "9306:mysql41", settings["listen"])

	settings, err = lookup.Section(path, "index catalogue")
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/sphinx/catalogue", settings["path"])

	settings, err = lookup.Section(path, "common")
	require.NoError(t, err)
	assert.Empty(t, settings)
}

func TestFileLookup_ConfigErrors(t *testing.T) {
	lookup := NewFileLookup()

	_, err := lookup.Section(filepath.Join(t.TempDir(), "missing.conf"), "searchd")
	assert.True(t, errors.IsConfigError(err))

	_, err = lookup.Section(writeConfig(t, "searchd\n{\n"), "searchd")
	assert.True(t, errors.IsConfigError(err))
	assert.Contains(t, err.Error(), "sphinx.conf")
}
