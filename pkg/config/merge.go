package config

import (
	"github.com/cockroachdb/errors"

	errUtils "github.com/joat-cli/joat/pkg/errors"
)

const subcommandsKey = "subcommands"

// MergeLayers folds layers, most specific first, into one document. The
// accumulator is always the overrider and each next layer the overridden side.
func MergeLayers(layers []Layer) (map[string]any, error) {
	var merged any
	for i, layer := range layers {
		if i == 0 {
			merged = layer.Doc
			continue
		}
		result, err := Merge(merged, layer.Doc)
		if err != nil {
			return nil, errors.Wrapf(err, "merging %s", layer.BaseDir)
		}
		merged = result
	}

	doc, ok := merged.(map[string]any)
	if !ok {
		return nil, errors.Wrap(errUtils.ErrInvalidConfig, "configuration is not a mapping")
	}
	return doc, nil
}

// Merge combines two documents with override-wins semantics.
//
// Top-level keys are overridden shallowly: the overrider's value replaces the
// overridden one wholesale, keys only present in overridden survive. The
// subcommands list is merged by subcommand name instead. Non-mapping values
// cannot be merged and the overrider is returned as is.
func Merge(overrider, overridden any) (any, error) {
	r, rok := overrider.(map[string]any)
	n, nok := overridden.(map[string]any)
	if !rok || !nok {
		return overrider, nil
	}

	result := make(map[string]any, len(r)+len(n))
	for k, v := range n {
		result[k] = v
	}
	for k, v := range r {
		result[k] = v
	}

	_, rHas := r[subcommandsKey]
	_, nHas := n[subcommandsKey]
	if rHas || nHas {
		scmds, err := mergeSubcommands(r[subcommandsKey], n[subcommandsKey])
		if err != nil {
			return nil, err
		}
		result[subcommandsKey] = scmds
	}

	return result, nil
}

// mergeSubcommands returns every overrider subcommand in order, followed by
// the overridden subcommands whose names the overrider does not declare.
func mergeSubcommands(overrider, overridden any) ([]any, error) {
	rList, err := subcommandList(overrider)
	if err != nil {
		return nil, err
	}
	nList, err := subcommandList(overridden)
	if err != nil {
		return nil, err
	}

	result := make([]any, 0, len(rList)+len(nList))
	seen := make(map[string]bool, len(rList))
	for _, scmd := range rList {
		name, err := subcommandName(scmd)
		if err != nil {
			return nil, err
		}
		seen[name] = true
		result = append(result, scmd)
	}
	for _, scmd := range nList {
		name, err := subcommandName(scmd)
		if err != nil {
			return nil, err
		}
		if !seen[name] {
			result = append(result, scmd)
		}
	}

	return result, nil
}

func subcommandList(v any) ([]any, error) {
	if v == nil {
		return nil, nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil, errors.Wrapf(errUtils.ErrInvalidConfig, "subcommands should be a list, got %T", v)
	}
	return list, nil
}

// subcommandName returns the single top-level key identifying a subcommand.
func subcommandName(v any) (string, error) {
	m, ok := v.(map[string]any)
	if !ok || len(m) != 1 {
		return "", errors.Wrapf(errUtils.ErrInvalidConfig, "invalid subcommand %v: expected a single-key mapping", v)
	}
	for name := range m {
		return name, nil
	}
	return "", nil
}
