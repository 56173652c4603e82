package runtime

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joat-cli/joat/internal/settings"
	"github.com/joat-cli/joat/pkg/auth"
	errUtils "github.com/joat-cli/joat/pkg/errors"
	"github.com/joat-cli/joat/pkg/paths"
)

const apiConfig = `
name: api
version: "1.0"
about: Test API
base_endpoint: %s/
headers:
  X-Team: '{{ .vars.team }}'
vars:
  team: core
oauth:
  client_id: id
  auth_url: https://auth.example.com/authorize
  token_url: https://auth.example.com/token
  header_key: Authorization
subcommands:
  - item:
      path: 'items/{{ .args.ID }}'
      args:
        - ID:
            required: true
  - listed:
      path: items
      response_template: list
  - run:
      script: 'echo "ran {{ .args.WHAT }}"; exit {{ get .args "code" | default "0" }}'
      args:
        - WHAT:
            required: true
        - code:
            short: c
            takes_value: true
`

type stubTokens struct{}

func (stubTokens) Token(context.Context, auth.Credentials) (string, error) {
	return "Bearer stub", nil
}

type fixture struct {
	workDir string
	home    string
	seen    *http.Request
	server  *httptest.Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{workDir: t.TempDir(), home: t.TempDir()}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.seen = r.Clone(context.Background())
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"items":[{"id":1},{"id":2}]}`)
	}))
	t.Cleanup(f.server.Close)

	require.NoError(t, os.WriteFile(filepath.Join(f.workDir, "api.yml"), []byte(fmt.Sprintf(apiConfig, f.server.URL)), 0o644))
	return f
}

func (f *fixture) runtime(t *testing.T, app string, out io.Writer) *Runtime {
	t.Helper()
	rt, err := NewRuntime(&RuntimeConfig{
		App:         app,
		ToolVersion: "0.4.0",
		WorkDir:     f.workDir,
		Settings:    &settings.Settings{Home: f.home, LogLevel: "warn", Shell: "sh"},
		Environ:     []string{"PATH=" + os.Getenv("PATH")},
		Tokens:      stubTokens{},
		Stdout:      out,
		Stderr:      io.Discard,
	})
	require.NoError(t, err)
	return rt
}

func TestRuntime_Request(t *testing.T) {
	f := newFixture(t)
	var out bytes.Buffer
	rt := f.runtime(t, "api", &out)

	require.NoError(t, rt.Execute(context.Background(), []string{"item", "7", "-R"}))
	require.NotNil(t, f.seen)
	assert.Equal(t, "/items/7", f.seen.URL.Path)
	assert.Equal(t, "core", f.seen.Header.Get("X-Team"))
	assert.Equal(t, "Bearer stub", f.seen.Header.Get("Authorization"))
	assert.Equal(t, `{"items":[{"id":1},{"id":2}]}`, out.String())
}

func TestRuntime_NamedTemplates(t *testing.T) {
	f := newFixture(t)
	dir := filepath.Join(f.workDir, "templates")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "list.tmpl"),
		[]byte(`{{ range .response.items }}{{ .id }};{{ end }}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "count.tmpl"),
		[]byte(`{{ expr "len(response.items)" . }} items for {{ .vars.team }}`), 0o644))

	var out bytes.Buffer
	rt := f.runtime(t, "api", &out)
	require.NoError(t, rt.Execute(context.Background(), []string{"listed"}))
	assert.Equal(t, "1;2;", out.String())

	out.Reset()
	require.NoError(t, rt.Execute(context.Background(), []string{"listed", "--template", "count"}))
	assert.Equal(t, "2 items for core", out.String())

	out.Reset()
	require.NoError(t, rt.Execute(context.Background(), []string{"item", "1", "-t", "json", "-q"}))
	assert.Empty(t, out.String())
}

func TestRuntime_Script(t *testing.T) {
	f := newFixture(t)
	var out bytes.Buffer
	rt := f.runtime(t, "api", &out)

	require.NoError(t, rt.Execute(context.Background(), []string{"run", "tests"}))
	assert.Equal(t, "ran tests\n", out.String())

	err := rt.Execute(context.Background(), []string{"run", "tests", "-c", "4"})
	assert.True(t, errUtils.IsSilent(err))
	assert.Equal(t, 4, errUtils.GetExitCode(err))
}

func TestRuntime_ScriptHasNoTemplateFlag(t *testing.T) {
	f := newFixture(t)
	rt := f.runtime(t, "api", io.Discard)

	err := rt.Execute(context.Background(), []string{"run", "x", "--template", "list"})
	assert.Error(t, err)
}

func TestRuntime_AutoComplete(t *testing.T) {
	f := newFixture(t)
	var out bytes.Buffer
	rt := f.runtime(t, "api", &out)

	require.NoError(t, rt.Execute(context.Background(), []string{"auto_complete", "Fish"}))
	assert.Contains(t, out.String(), "fish completion for api")

	err := rt.Execute(context.Background(), []string{"auto_complete", "cmd"})
	assert.True(t, errors.Is(err, errUtils.ErrUnknownShell), "got %v", err)
}

func TestRuntime_AutoCompleteUsesInvokedName(t *testing.T) {
	f := newFixture(t)
	config := "name: petstore\nversion: \"1.0\"\nsubcommands:\n  - ls:\n      path: pets\n"
	require.NoError(t, os.WriteFile(filepath.Join(f.workDir, "pets.yml"), []byte(config), 0o644))

	tests := []struct {
		shell string
		want  string
	}{
		{shell: "bash", want: "__start_pets pets"},
		{shell: "fish", want: "complete -c pets"},
		{shell: "elvish", want: "arg-completer[pets]"},
	}

	for _, tt := range tests {
		t.Run(tt.shell, func(t *testing.T) {
			var out bytes.Buffer
			rt := f.runtime(t, "pets", &out)
			require.NoError(t, rt.Execute(context.Background(), []string{"auto_complete", tt.shell}))
			assert.Contains(t, out.String(), tt.want)
			assert.NotContains(t, out.String(), "petstore")
		})
	}
}

func TestRuntime_NoSubcommand(t *testing.T) {
	f := newFixture(t)
	var out bytes.Buffer
	rt := f.runtime(t, "api", &out)

	err := rt.Execute(context.Background(), nil)
	assert.True(t, errors.Is(err, errUtils.ErrNoSubcommand), "got %v", err)
	assert.Contains(t, out.String(), "item")
	assert.Equal(t, errUtils.UsageExitCode, errUtils.GetExitCode(err))
}

func TestRuntime_Version(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, "1.0 (joat 0.4.0)", f.runtime(t, "api", io.Discard).Tree().Version)
}

func TestRuntime_NoConfig(t *testing.T) {
	_, err := NewRuntime(&RuntimeConfig{
		App:      "missing",
		WorkDir:  t.TempDir(),
		Settings: &settings.Settings{Home: t.TempDir()},
		Environ:  []string{},
	})
	assert.True(t, errors.Is(err, errUtils.ErrNoConfig), "got %v", err)
}

func TestRuntime_JoatInit(t *testing.T) {
	f := newFixture(t)
	var out bytes.Buffer
	rt := f.runtime(t, paths.ToolName, &out)

	// the bundled configuration is written on first use
	assert.FileExists(t, paths.ConfigFile(f.home, paths.ToolName))

	require.NoError(t, rt.Execute(context.Background(), []string{"init", "petstore"}))
	assert.FileExists(t, filepath.Join(f.workDir, "petstore.yml"))

	err := rt.Execute(context.Background(), []string{"init", "petstore"})
	assert.True(t, errors.Is(err, errUtils.ErrFileExists), "got %v", err)
}

func TestNewRuntime_RequiresApp(t *testing.T) {
	_, err := NewRuntime(nil)
	assert.Error(t, err)
	_, err = NewRuntime(&RuntimeConfig{})
	assert.Error(t, err)
}
