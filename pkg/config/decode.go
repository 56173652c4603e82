package config

import (
	"github.com/cockroachdb/errors"
	"github.com/go-viper/mapstructure/v2"

	errUtils "github.com/joat-cli/joat/pkg/errors"
)

type rawTree struct {
	Name              string            `mapstructure:"name"`
	Version           string            `mapstructure:"version"`
	About             string            `mapstructure:"about"`
	Author            string            `mapstructure:"author"`
	BaseEndpoint      string            `mapstructure:"base_endpoint"`
	Headers           map[string]any    `mapstructure:"headers"`
	QueryParams       map[string]any    `mapstructure:"query_params"`
	OAuth             *OAuth            `mapstructure:"oauth"`
	Vars              map[string]string `mapstructure:"vars"`
	MaxRecursionCount *int              `mapstructure:"max_recursion_count"`
	Subcommands       []any             `mapstructure:"subcommands"`
}

type rawSubcommand struct {
	About            string         `mapstructure:"about"`
	Path             string         `mapstructure:"path"`
	Method           string         `mapstructure:"method"`
	Body             map[string]any `mapstructure:"body"`
	Form             map[string]any `mapstructure:"form"`
	QueryParams      map[string]any `mapstructure:"query_params"`
	Script           string         `mapstructure:"script"`
	ResponseTemplate string         `mapstructure:"response_template"`
	// Template is the older spelling of response_template.
	Template       string `mapstructure:"template"`
	Builtin        bool   `mapstructure:"builtin"`
	Args           []any  `mapstructure:"args"`
	ConfigBasePath string `mapstructure:"scmd_config_base_path"`
}

// Decode converts a merged document into a validated CommandTree.
func Decode(doc map[string]any) (*CommandTree, error) {
	var raw rawTree
	if err := decodeInto(doc, &raw); err != nil {
		return nil, errors.Wrapf(errUtils.ErrInvalidConfig, "decoding configuration: %v", err)
	}

	tree := &CommandTree{
		Name:              raw.Name,
		Version:           raw.Version,
		About:             raw.About,
		Author:            raw.Author,
		BaseEndpoint:      raw.BaseEndpoint,
		Headers:           raw.Headers,
		QueryParams:       raw.QueryParams,
		OAuth:             raw.OAuth,
		Vars:              raw.Vars,
		MaxRecursionCount: DefaultMaxRecursionCount,
	}
	if raw.MaxRecursionCount != nil {
		tree.MaxRecursionCount = *raw.MaxRecursionCount
	}

	for _, entry := range raw.Subcommands {
		scmd, err := decodeSubcommand(entry)
		if err != nil {
			return nil, err
		}
		tree.Subcommands = append(tree.Subcommands, scmd)
	}

	if err := NewValidator().Validate(tree); err != nil {
		return nil, errors.Wrapf(errUtils.ErrInvalidConfig, "%v", err)
	}

	return tree, nil
}

func decodeSubcommand(entry any) (*Subcommand, error) {
	name, err := subcommandName(entry)
	if err != nil {
		return nil, err
	}

	var raw rawSubcommand
	if err := decodeInto(entry.(map[string]any)[name], &raw); err != nil {
		return nil, errors.Wrapf(errUtils.ErrInvalidConfig, "subcommand %q: %v", name, err)
	}

	scmd := &Subcommand{
		Name:             name,
		About:            raw.About,
		ResponseTemplate: raw.ResponseTemplate,
		ConfigBasePath:   raw.ConfigBasePath,
	}
	if scmd.ResponseTemplate == "" {
		scmd.ResponseTemplate = raw.Template
	}

	for _, a := range raw.Args {
		arg, err := decodeArg(a)
		if err != nil {
			return nil, errors.Wrapf(err, "subcommand %q", name)
		}
		scmd.Args = append(scmd.Args, arg)
	}

	switch {
	case raw.Builtin:
		scmd.Action = &BuiltinAction{}
	case raw.Script != "":
		scmd.Action = &ScriptAction{Script: raw.Script}
	default:
		method := raw.Method
		if method == "" {
			method = DefaultMethod
		}
		scmd.Action = &RequestAction{
			Path:        raw.Path,
			Method:      method,
			Body:        raw.Body,
			Form:        raw.Form,
			QueryParams: raw.QueryParams,
		}
	}

	return scmd, nil
}

func decodeArg(entry any) (ArgSpec, error) {
	m, ok := entry.(map[string]any)
	if !ok || len(m) != 1 {
		return ArgSpec{}, errors.Wrapf(errUtils.ErrInvalidConfig, "invalid argument %v: expected a single-key mapping", entry)
	}

	var arg ArgSpec
	for name, options := range m {
		if err := decodeInto(options, &arg); err != nil {
			return ArgSpec{}, errors.Wrapf(errUtils.ErrInvalidConfig, "argument %q: %v", name, err)
		}
		arg.Name = name
	}
	return arg, nil
}

func decodeInto(input, result any) error {
	if input == nil {
		return nil
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           result,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(input)
}
