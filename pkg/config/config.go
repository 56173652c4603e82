package config

import (
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	errUtils "github.com/joat-cli/joat/pkg/errors"
	"github.com/joat-cli/joat/pkg/paths"
)

// scmdConfigBasePathKey is stamped on every subcommand of a layer.
const scmdConfigBasePathKey = "scmd_config_base_path"

// Layer is one parsed configuration file and the directory it belongs to.
type Layer struct {
	Doc     map[string]any
	BaseDir string
}

// Loader discovers configuration layers for one application name.
type Loader struct {
	app     string
	workDir string
	homeDir string
	logger  *zap.Logger
}

// NewLoader creates a loader for app that searches from workDir, falling back
// to homeDir.
func NewLoader(app, workDir, homeDir string, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{
		app:     app,
		workDir: workDir,
		homeDir: homeDir,
		logger:  logger,
	}
}

// Load discovers, merges and decodes the configuration. The result is not
// augmented yet.
func (l *Loader) Load() (*CommandTree, error) {
	layers, err := l.LoadLayers()
	if err != nil {
		return nil, err
	}

	doc, err := MergeLayers(layers)
	if err != nil {
		return nil, err
	}

	return Decode(doc)
}

// LoadLayers returns every layer found, most specific first.
//
// The working directory's ancestors are searched first; the home directory's
// ancestors only when that yields nothing. The default tool identity gets its
// bundled configuration written on first use.
func (l *Loader) LoadLayers() ([]Layer, error) {
	layers, err := l.layersFrom(l.workDir)
	if err != nil {
		return nil, err
	}
	if len(layers) > 0 {
		return layers, nil
	}

	layers, err = l.layersFrom(l.homeDir)
	if err != nil {
		return nil, err
	}
	if len(layers) > 0 {
		return layers, nil
	}

	if l.app != paths.ToolName {
		return nil, errors.Wrapf(errUtils.ErrNoConfig, "no %s.yml found from %s or %s", l.app, l.workDir, l.homeDir)
	}

	path, err := WriteDefaultConfig(l.homeDir)
	if err != nil {
		return nil, err
	}
	l.logger.Info("created default configuration", zap.String("path", path))

	layers, err = l.layersFrom(l.homeDir)
	if err != nil {
		return nil, err
	}
	if len(layers) == 0 {
		return nil, errors.Wrapf(errUtils.ErrNoConfig, "default configuration not found at %s", path)
	}
	return layers, nil
}

func (l *Loader) layersFrom(start string) ([]Layer, error) {
	if start == "" {
		return nil, nil
	}

	var layers []Layer
	for dir := range paths.Ancestors(start) {
		l.logger.Debug("searching config file", zap.String("dir", dir))
		layer, ok, err := l.layerIn(dir)
		if err != nil {
			return nil, err
		}
		if ok {
			l.logger.Debug("loaded config layer", zap.String("base", layer.BaseDir))
			layers = append(layers, layer)
		}
	}
	return layers, nil
}

// layerIn loads at most one file from dir, preferring `.<app>.joat/<app>.yml`
// over the development file `<app>.yml`.
func (l *Loader) layerIn(dir string) (Layer, bool, error) {
	candidates := []struct {
		file string
		base string
	}{
		{paths.ConfigFile(dir, l.app), paths.AppDir(dir, l.app)},
		{paths.DevConfigFile(dir, l.app), dir},
	}

	for _, c := range candidates {
		info, err := os.Stat(c.file)
		if err != nil || info.IsDir() {
			continue
		}
		layer, err := ReadLayer(c.file, c.base)
		if err != nil {
			return Layer{}, false, err
		}
		return layer, true, nil
	}
	return Layer{}, false, nil
}

// ReadLayer parses one configuration file and tags every subcommand with
// base, the directory relative template lookups start from.
func ReadLayer(file, base string) (Layer, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return Layer{}, errors.Wrapf(err, "reading %s", file)
	}
	return ParseLayer(data, base, file)
}

// ParseLayer parses YAML data as a layer. name is used in diagnostics only.
func ParseLayer(data []byte, base, name string) (Layer, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Layer{}, errors.Wrapf(errUtils.ErrInvalidConfig, "failed to parse %s: %v", name, err)
	}

	doc, ok := raw.(map[string]any)
	if !ok {
		return Layer{}, errors.Wrapf(errUtils.ErrInvalidConfig, "%s: top level must be a mapping", name)
	}

	if err := stampBasePath(doc, filepath.Clean(base)); err != nil {
		return Layer{}, errors.Wrapf(err, "%s", name)
	}

	return Layer{Doc: doc, BaseDir: filepath.Clean(base)}, nil
}

func stampBasePath(doc map[string]any, base string) error {
	list, err := subcommandList(doc[subcommandsKey])
	if err != nil {
		return err
	}

	for i, scmd := range list {
		name, err := subcommandName(scmd)
		if err != nil {
			return err
		}
		entry := scmd.(map[string]any)

		options, ok := entry[name].(map[string]any)
		if entry[name] != nil && !ok {
			return errors.Wrapf(errUtils.ErrInvalidConfig, "subcommand %q must be a mapping", name)
		}
		if options == nil {
			options = make(map[string]any)
		}
		options[scmdConfigBasePathKey] = base
		list[i] = map[string]any{name: options}
	}
	return nil
}
