package template

import (
	"bytes"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	gotemplate "text/template"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
	"go.uber.org/zap"

	errUtils "github.com/joat-cli/joat/pkg/errors"
	"github.com/joat-cli/joat/pkg/paths"
)

// Extensions tried, in order, when a template name is not found as given.
var Extensions = []string{".tmpl", ".j2", ".tpl"}

// SearchRoots returns the directories named templates are loaded from,
// highest precedence first:
//
//   - `<workDir>/templates`
//   - `<baseDir>/templates`, the directory the subcommand was declared in
//   - `.<app>.joat/templates` in the working directory and each of its parents
//   - `~/.<app>.joat/templates`
//   - `~/.joat.joat/templates`
func SearchRoots(app, baseDir, workDir, homeDir string) []string {
	var roots []string
	if workDir != "" {
		roots = append(roots, filepath.Join(workDir, "templates"))
	}
	if baseDir != "" {
		roots = append(roots, filepath.Join(baseDir, "templates"))
	}
	if workDir != "" {
		for dir := range paths.Ancestors(workDir) {
			roots = append(roots, paths.TemplatesDir(dir, app))
		}
	}
	if homeDir != "" {
		roots = append(roots,
			paths.TemplatesDir(homeDir, app),
			paths.TemplatesDir(homeDir, paths.ToolName),
		)
	}

	return lo.Uniq(roots)
}

// Registry renders named templates found under a list of search roots.
// Every file under a root is a template named by its slash separated path
// relative to the root. A name found in several roots resolves to the
// highest precedence one; templates may include each other by name.
type Registry struct {
	roots  []string
	logger *zap.Logger
	set    *gotemplate.Template
}

// NewRegistry creates a registry over roots, highest precedence first.
// Templates are loaded on first use.
func NewRegistry(roots []string, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{roots: roots, logger: logger}
}

// Render executes the template called name with data.
func (r *Registry) Render(name string, data any) (string, error) {
	if r.set == nil {
		set, err := r.load()
		if err != nil {
			return "", err
		}
		r.set = set
	}

	t := r.lookup(name)
	if t == nil {
		return "", errors.Wrapf(errUtils.ErrTemplateNotFound, "template %q not found in %s", name, strings.Join(r.roots, ", "))
	}

	var res bytes.Buffer
	if err := t.Execute(&res, data); err != nil {
		return "", errors.Wrapf(errUtils.ErrTemplate, "rendering template %q: %v", name, err)
	}
	return res.String(), nil
}

func (r *Registry) lookup(name string) *gotemplate.Template {
	name = filepath.ToSlash(name)
	if t := r.set.Lookup(name); t != nil {
		return t
	}
	for _, ext := range Extensions {
		if t := r.set.Lookup(name + ext); t != nil {
			return t
		}
	}
	return nil
}

// load parses every root, lowest precedence first, so that definitions from
// higher precedence roots replace earlier ones.
func (r *Registry) load() (*gotemplate.Template, error) {
	set := gotemplate.New("").Funcs(FuncMap()).Option(missingKeyOption)

	for _, root := range slices.Backward(r.roots) {
		info, err := os.Stat(root)
		if err != nil || !info.IsDir() {
			continue
		}

		fsys := os.DirFS(root)
		matches, err := doublestar.Glob(fsys, "**/*", doublestar.WithFilesOnly())
		if err != nil {
			return nil, errors.Wrapf(err, "listing templates in %s", root)
		}

		for _, match := range matches {
			if err := parseFile(set, fsys, match); err != nil {
				return nil, errors.Wrapf(errUtils.ErrTemplate, "%s: %v", filepath.Join(root, match), err)
			}
		}
		r.logger.Debug("loaded templates", zap.String("root", root), zap.Int("count", len(matches)))
	}

	return set, nil
}

func parseFile(set *gotemplate.Template, fsys fs.FS, name string) error {
	content, err := fs.ReadFile(fsys, name)
	if err != nil {
		return err
	}
	_, err = set.New(name).Parse(string(content))
	return err
}
