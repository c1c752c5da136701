package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"curvelaboratory/promptgateway/pkg/cli"
	"curvelaboratory/promptgateway/pkg/config"
)

var validateFlags struct {
	format string
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a gateway configuration",
	Long: `Load a configuration file, apply defaults and environment overrides,
and check it without starting the gateway.

The summary lists every prompt target with how it is served: a function
call to a developer API, the default target, or a plain LLM route.

Examples:
  # Validate the default config file
  curve validate

  # Validate a specific file and print a JSON summary
  curve validate --config /etc/curve/config.yaml --format json`,
	RunE: validateConfig,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVar(&validateFlags.format, "format", "text", "output format: text, json")
}

// targetSummary describes one prompt target in the validate output.
type targetSummary struct {
	Name       string   `json:"name"`
	Kind       string   `json:"kind"`
	Endpoint   string   `json:"endpoint,omitempty"`
	Parameters []string `json:"parameters,omitempty"`
}

type configSummary struct {
	Valid      bool            `json:"valid"`
	Listen     string          `json:"listen_address"`
	Precedence string          `json:"precedence"`
	Guard      bool            `json:"jailbreak_guard"`
	Targets    []targetSummary `json:"prompt_targets"`
}

func validateConfig(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(validateFlags.format)
	if err != nil {
		return err
	}
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return cli.NewConfigError(cfgFile, err.Error())
	}
	return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), summarize(cfg))
}

func summarize(cfg *config.Config) configSummary {
	s := configSummary{
		Valid:      true,
		Listen:     cfg.Listener.ListenAddress,
		Precedence: cfg.Routing.Precedence,
		Guard:      cfg.JailbreakGuardEnabled(),
	}
	for _, t := range cfg.PromptTargets {
		ts := targetSummary{Name: t.Name, Kind: "llm"}
		switch {
		case t.Default:
			ts.Kind = "default"
		case len(t.Parameters) > 0 || t.Endpoint != nil:
			ts.Kind = "function"
		}
		if t.Endpoint != nil {
			ts.Endpoint = fmt.Sprintf("%s %s%s", t.Endpoint.Method, t.Endpoint.Name, t.Endpoint.Path)
		}
		for _, p := range t.Parameters {
			ts.Parameters = append(ts.Parameters, p.Name)
		}
		s.Targets = append(s.Targets, ts)
	}
	return s
}

// String renders the summary for the text output format.
func (s configSummary) String() string {
	var sb strings.Builder
	sb.WriteString("✓ Configuration valid\n")
	fmt.Fprintf(&sb, "  Listen address: %s\n", s.Listen)
	fmt.Fprintf(&sb, "  Routing precedence: %s\n", s.Precedence)
	fmt.Fprintf(&sb, "  Jailbreak guard: %v\n", s.Guard)
	fmt.Fprintf(&sb, "  Prompt targets: %d", len(s.Targets))
	for _, t := range s.Targets {
		fmt.Fprintf(&sb, "\n    - %s (%s)", t.Name, t.Kind)
		if t.Endpoint != "" {
			sb.WriteString(" -> " + t.Endpoint)
		}
	}
	return sb.String()
}
