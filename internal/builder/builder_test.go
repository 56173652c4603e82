package builder

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/joat-cli/joat/pkg/config"
	errUtils "github.com/joat-cli/joat/pkg/errors"
	"github.com/joat-cli/joat/pkg/scope"
)

func sampleTree() *config.CommandTree {
	return &config.CommandTree{
		Name:    "api",
		Version: "1.0 (joat 0.4.0)",
		About:   "Talks to the API",
		Author:  "Ops",
		Subcommands: []*config.Subcommand{
			{
				Name:  "get",
				About: "Fetch an item",
				Args: []config.ArgSpec{
					{Name: "ID", Required: true, Help: "Item id"},
					{Name: "fields", Short: "f", TakesValue: true, Multiple: true},
					{Name: "verbose", Short: "v"},
					{Name: "format", Long: "output-format", TakesValue: true, DefaultValue: "short"},
					{Name: "quiet", Short: "q", Long: "quiet"},
				},
				Action: &config.RequestAction{Path: "/items/{{ .args.ID }}"},
			},
			{
				Name: "tag",
				Args: []config.ArgSpec{
					{Name: "ITEM", Required: true},
					{Name: "TAGS", Multiple: true},
				},
				Action: &config.ScriptAction{Script: "echo"},
			},
		},
	}
}

// run builds the sample tree and executes it with argv, returning the
// subcommand that ran and its args namespace.
func run(t *testing.T, argv ...string) (string, map[string]any, error) {
	t.Helper()
	var ranName string
	var ranArgs map[string]any

	b := NewBuilder(sampleTree(), &BuilderConfig{
		Run: func(_ *cobra.Command, scmd *config.Subcommand, args *Args) error {
			ranName = scmd.Name
			ranArgs = scope.ArgValues(scmd.Args, args)
			return nil
		},
	})

	rootCmd, err := b.Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(argv)

	err = rootCmd.Execute()
	return ranName, ranArgs, err
}

func TestBuilder_RootName(t *testing.T) {
	rootCmd, err := NewBuilder(sampleTree(), &BuilderConfig{Name: "pets"}).Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if rootCmd.Name() != "pets" {
		t.Errorf("Expected root command name 'pets', got '%s'", rootCmd.Name())
	}
}

func TestBuilder_Build(t *testing.T) {
	rootCmd, err := NewBuilder(sampleTree(), nil).Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if rootCmd.Use != "api" {
		t.Errorf("Expected root command name 'api', got '%s'", rootCmd.Use)
	}
	if !strings.Contains(rootCmd.Long, "Author: Ops") {
		t.Errorf("Expected author in long help, got %q", rootCmd.Long)
	}

	get := FindSubcommand(rootCmd, "get")
	if get == nil {
		t.Fatal("Expected 'get' subcommand not found")
	}
	if get.Use != "get <ID>" {
		t.Errorf("Expected use 'get <ID>', got %q", get.Use)
	}
	if f := get.Flags().Lookup("fields"); f == nil || f.Shorthand != "f" {
		t.Errorf("Expected --fields/-f flag, got %v", f)
	}
	if f := get.Flags().Lookup("output-format"); f == nil || f.DefValue != "short" {
		t.Errorf("Expected --output-format defaulting to short, got %v", f)
	}

	tag := FindSubcommand(rootCmd, "tag")
	if tag == nil || tag.Use != "tag <ITEM> [TAGS...]" {
		t.Errorf("Unexpected tag command %v", tag)
	}

	if FindSubcommand(rootCmd, "missing") != nil {
		t.Error("Expected no command for an undeclared subcommand")
	}
}

func TestBuilder_ArgValues(t *testing.T) {
	tests := []struct {
		name     string
		argv     []string
		expected map[string]any
	}{
		{
			name:     "positional and defaults",
			argv:     []string{"get", "42"},
			expected: map[string]any{"ID": "42", "format": "short"},
		},
		{
			name: "flags",
			argv: []string{"get", "42", "-v", "--output-format", "long", "-f", "a", "-f", "b", "-q"},
			expected: map[string]any{
				"ID":      "42",
				"verbose": true,
				"format":  "long",
				"fields":  []any{"a", "b"},
				"quiet":   true,
			},
		},
		{
			name:     "single multiple value",
			argv:     []string{"get", "42", "--fields", "a"},
			expected: map[string]any{"ID": "42", "format": "short", "fields": "a"},
		},
		{
			name:     "trailing multiple positional",
			argv:     []string{"tag", "item", "x", "y"},
			expected: map[string]any{"ITEM": "item", "TAGS": []any{"x", "y"}},
		},
		{
			name:     "optional positional absent",
			argv:     []string{"tag", "item"},
			expected: map[string]any{"ITEM": "item"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, got, err := run(t, tt.argv...)
			if err != nil {
				t.Fatalf("Execute() error = %v", err)
			}
			if len(got) != len(tt.expected) {
				t.Fatalf("Expected %v, got %v", tt.expected, got)
			}
			for k, want := range tt.expected {
				if !equalValue(got[k], want) {
					t.Errorf("args.%s = %#v, want %#v", k, got[k], want)
				}
			}
		})
	}
}

func TestBuilder_UsageErrors(t *testing.T) {
	tests := []struct {
		name string
		argv []string
	}{
		{name: "missing positional", argv: []string{"get"}},
		{name: "too many positionals", argv: []string{"get", "1", "2"}},
		{name: "unknown flag", argv: []string{"get", "1", "--nope"}},
		{name: "unknown subcommand", argv: []string{"nope"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ran, _, err := run(t, tt.argv...)
			if err == nil {
				t.Fatal("Expected an error")
			}
			if ran != "" {
				t.Errorf("Expected nothing to run, %s ran", ran)
			}
			if code := errUtils.GetExitCode(err); code != errUtils.UsageExitCode {
				t.Errorf("GetExitCode() = %d, want %d", code, errUtils.UsageExitCode)
			}
		})
	}
}

func TestBuilder_NoSubcommand(t *testing.T) {
	_, _, err := run(t)
	if !errors.Is(err, errUtils.ErrNoSubcommand) {
		t.Errorf("Expected ErrNoSubcommand, got %v", err)
	}
	if code := errUtils.GetExitCode(err); code != errUtils.UsageExitCode {
		t.Errorf("GetExitCode() = %d, want %d", code, errUtils.UsageExitCode)
	}
}

func TestBuilder_DuplicateFlag(t *testing.T) {
	tree := &config.CommandTree{
		Name: "api",
		Subcommands: []*config.Subcommand{{
			Name: "x",
			Args: []config.ArgSpec{
				{Name: "a", Long: "same"},
				{Name: "b", Long: "same"},
			},
		}},
	}
	if _, err := NewBuilder(tree, nil).Build(); err == nil {
		t.Error("Expected an error for a duplicate flag")
	}
}

func equalValue(got, want any) bool {
	gl, gok := got.([]any)
	wl, wok := want.([]any)
	if gok != wok {
		return false
	}
	if !gok {
		return got == want
	}
	if len(gl) != len(wl) {
		return false
	}
	for i := range gl {
		if gl[i] != wl[i] {
			return false
		}
	}
	return true
}
