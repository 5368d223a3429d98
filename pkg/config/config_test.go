package config_test

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walteh/tagmatch/pkg/config"
	"github.com/walteh/tagmatch/pkg/dialect"
	"github.com/walteh/tagmatch/pkg/tagmatch"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		file        string
		content     string
		expectError bool
		validate    func(t *testing.T, cfg *config.Config)
	}{
		{
			name: "yaml",
			file: "/proj/.tagmatch.yaml",
			content: `
dialects:
  - name: xaml
    patterns: ["**/*.axaml", "views/*.xml"]
mismatch_policy: suppress
match_closing_tags: false
log_level: debug
`,
			validate: func(t *testing.T, cfg *config.Config) {
				require.Len(t, cfg.Dialects, 1)
				assert.Equal(t, "xaml", cfg.Dialects[0].Name)
				assert.Equal(t, tagmatch.PolicySuppress, cfg.Policy())
				assert.False(t, cfg.ClosingTags())
				assert.Equal(t, "debug", cfg.Level().String())
				assert.Equal(t, config.Default().Include, cfg.Include)
			},
		},
		{
			name: "hcl",
			file: "/proj/.tagmatch.hcl",
			content: `
dialect "xaml" {
  patterns = ["**/*.axaml"]
}
include = ["src/**/*.xml"]
`,
			validate: func(t *testing.T, cfg *config.Config) {
				require.Len(t, cfg.Dialects, 1)
				assert.Equal(t, []string{"**/*.axaml"}, cfg.Dialects[0].Patterns)
				assert.Equal(t, []string{"src/**/*.xml"}, cfg.Include)
				assert.Equal(t, tagmatch.PolicyReport, cfg.Policy())
				assert.True(t, cfg.ClosingTags())
			},
		},
		{
			name:    "empty yaml keeps defaults",
			file:    "/proj/.tagmatch.yml",
			content: ``,
			validate: func(t *testing.T, cfg *config.Config) {
				assert.Equal(t, config.Default(), cfg)
			},
		},
		{
			name:        "unknown yaml field",
			file:        "/proj/.tagmatch.yaml",
			content:     "colour: blue\n",
			expectError: true,
		},
		{
			name:        "bad hcl",
			file:        "/proj/.tagmatch.hcl",
			content:     `dialect "xaml" {`,
			expectError: true,
		},
		{
			name: "invalid values are all reported",
			file: "/proj/.tagmatch.yaml",
			content: `
dialects:
  - name: html
    patterns: []
mismatch_policy: ignore
`,
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			require.NoError(t, afero.WriteFile(fs, tt.file, []byte(tt.content), 0o644))

			cfg, err := config.Load(fs, tt.file)
			if tt.expectError {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.validate != nil {
				tt.validate(t, cfg)
			}
		})
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := &config.Config{
		Dialects:       []*config.DialectRule{{Name: "html"}},
		MismatchPolicy: "ignore",
		LogLevel:       "loud",
		Include:        []string{"[unclosed"},
	}
	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{"unknown dialect", "no patterns", "unknown mismatch policy", "log_level", "include"} {
		assert.Contains(t, err.Error(), want)
	}
	assert.ErrorIs(t, err, config.ErrInvalid)
}

func TestFind(t *testing.T) {
	fs := afero.NewMemMapFs()

	cfg, path, err := config.Find(fs, "/proj")
	require.NoError(t, err)
	assert.Empty(t, path)
	assert.Equal(t, config.Default(), cfg)

	require.NoError(t, afero.WriteFile(fs, "/proj/.tagmatch.hcl", []byte(`mismatch_policy = "suppress"`), 0o644))
	cfg, path, err = config.Find(fs, "/proj")
	require.NoError(t, err)
	assert.Equal(t, "/proj/.tagmatch.hcl", path)
	assert.Equal(t, tagmatch.PolicySuppress, cfg.Policy())
}

func TestDialectFor(t *testing.T) {
	cfg := &config.Config{
		Dialects: []*config.DialectRule{
			{Name: "xaml", Patterns: []string{"views/**/*.xml"}},
		},
	}

	tests := []struct {
		path string
		want dialect.Dialect
	}{
		{path: "views/main.xml", want: dialect.XAML},
		{path: "/home/me/proj/views/a/b.xml", want: dialect.XAML},
		{path: "data/main.xml", want: dialect.XML},
		{path: "App.xaml", want: dialect.XAML},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want.Name(), cfg.DialectFor(tt.path).Name())
		})
	}
}

func TestIncludes(t *testing.T) {
	cfg := config.Default()
	assert.True(t, cfg.Includes("a/b/c.xml"))
	assert.True(t, cfg.Includes("App.xaml"))
	assert.False(t, cfg.Includes("main.go"))

	assert.True(t, (&config.Config{}).Includes("anything"))
}

func TestLocatorOptions(t *testing.T) {
	off := false
	cfg := &config.Config{MismatchPolicy: "suppress", MatchClosingTags: &off}
	assert.Len(t, cfg.LocatorOptions(), 2)
	assert.Equal(t, tagmatch.PolicySuppress, cfg.Policy())
	assert.False(t, cfg.ClosingTags())
}
