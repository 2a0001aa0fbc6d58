package pathfilter_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/smackdown/pkg/pathfilter"
)

func TestDefaultPatterns(t *testing.T) {
	t.Parallel()

	filter, err := pathfilter.New(pathfilter.Options{})
	require.NoError(t, err)

	tests := []struct {
		path     string
		excluded bool
	}{
		{path: "Rakefile", excluded: true},
		{path: "README.md", excluded: true},
		{path: "test/test_foo.rb", excluded: true},
		{path: "spec/foo_spec.rb", excluded: true},
		{path: "features/login.feature", excluded: true},
		{path: "autotest/discover.rb", excluded: true},
		{path: "config/routes.rb", excluded: true},
		{path: "db/migrate/001_init.rb", excluded: true},
		{path: "script/console", excluded: true},
		{path: "scripts/deploy.sh", excluded: true},
		{path: "vendor/bundle/gems/x.rb", excluded: true},
		{path: "vendored/thing.rb", excluded: true},
		{path: "lib/foo.rb", excluded: false},
		{path: "app/models/user.rb", excluded: false},
		{path: "lib/test/helper.rb", excluded: false},
		{path: "app/config/settings.rb", excluded: false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.excluded, filter.Excluded(tt.path), tt.path)
	}
}

func TestPatternsArePrefixAnchored(t *testing.T) {
	t.Parallel()

	excluded, err := pathfilter.Excluded("lib/generated/api.rb", []string{`generated/`})
	require.NoError(t, err)
	assert.False(t, excluded, "a pattern must match from the start of the path")

	excluded, err = pathfilter.Excluded("lib/generated/api.rb", []string{`lib/gen`})
	require.NoError(t, err)
	assert.True(t, excluded, "a prefix match is enough, no full match required")

	excluded, err = pathfilter.Excluded("lib/generated/api.rb", []string{`.*generated`})
	require.NoError(t, err)
	assert.True(t, excluded)
}

func TestCustomPatternsReplaceDefaults(t *testing.T) {
	t.Parallel()

	filter, err := pathfilter.New(pathfilter.Options{Patterns: []string{`lib/legacy/`}})
	require.NoError(t, err)

	assert.True(t, filter.Excluded("lib/legacy/old.rb"))
	assert.False(t, filter.Excluded("test/test_foo.rb"), "defaults must not be merged in")
	assert.False(t, filter.Excluded("Rakefile"))
}

func TestEmptyPatternsExcludeNothing(t *testing.T) {
	t.Parallel()

	filter, err := pathfilter.New(pathfilter.Options{Patterns: []string{}})
	require.NoError(t, err)

	assert.False(t, filter.Excluded("Rakefile"))
	assert.False(t, filter.Excluded("vendor/x.rb"))
}

func TestInvalidPattern(t *testing.T) {
	t.Parallel()

	_, err := pathfilter.New(pathfilter.Options{Patterns: []string{`lib/(`}})
	require.ErrorIs(t, err, pathfilter.ErrInvalidPattern)
}

func TestSkipVendored(t *testing.T) {
	t.Parallel()

	filter, err := pathfilter.New(pathfilter.Options{Patterns: []string{}, SkipVendored: true})
	require.NoError(t, err)

	assert.True(t, filter.Excluded("src/node_modules/left-pad/index.js"))
	assert.False(t, filter.Excluded("src/app/main.go"))
}

func TestIgnoreFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	ignorePath := filepath.Join(dir, ".smackdownignore")
	require.NoError(t, os.WriteFile(ignorePath, []byte("*.pb.go\nlib/generated/\n"), 0o600))

	filter, err := pathfilter.New(pathfilter.Options{Patterns: []string{}, IgnoreFile: ignorePath})
	require.NoError(t, err)

	assert.True(t, filter.Excluded("api/service.pb.go"))
	assert.True(t, filter.Excluded("lib/generated/client.rb"))
	assert.False(t, filter.Excluded("lib/client.rb"))
}

func TestIgnoreFileMissing(t *testing.T) {
	t.Parallel()

	_, err := pathfilter.New(pathfilter.Options{IgnoreFile: filepath.Join(t.TempDir(), "missing")})
	require.Error(t, err)
}
