package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"plugind/pkg/types"
)

// buildRootCmdWith constructs the cobra command tree bound to opts.
func buildRootCmdWith(opts *Options) *cobra.Command {
	root := &cobra.Command{
		Use:           "plugind",
		Short:         "Plugin registry and event dispatcher",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&opts.ConfigPath, "config", "c", "", "Config file (.yaml, .json, .toml)")
	pf.StringVar(&opts.Addr, "addr", "", "HTTP listen address (defaults PLUGIND_ADDR or :8080)")
	pf.StringSliceVar(&opts.Roots, "root", nil, "Discovery root, repeatable (file path or catalog:<group>)")
	pf.IntVar(&opts.Concurrency, "concurrency", 0, "Plugins invoked in parallel per dispatch (default 1)")
	pf.StringVar(&opts.LogLevel, "log-level", "", "Log level: debug|info|warn|error")
	pf.StringVar(&opts.LogFormat, "log-format", "", "Log format: json|console")
	pf.StringVar(&opts.Server, "server", "", "Base URL of a running plugind for list and dispatch")

	serveCmd := &cobra.Command{
		Use:     "serve",
		Short:   "Discover plugins and serve the HTTP API",
		Example: "  plugind serve --root ~/plugins --root catalog:plugins",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := buildConfig(opts)
			if err != nil {
				return err
			}
			return fnServe(cmd.Context(), cfg)
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List discovered plugins",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Server != "" {
				resp, err := newRemote(opts.Server).plugins(cmd.Context())
				if err != nil {
					return err
				}
				return printPlugins(cmd.OutOrStdout(), resp.Plugins, nil)
			}
			cfg, err := buildConfig(opts)
			if err != nil {
				return err
			}
			reg, err := newRegistry(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer reg.Close()
			return printPlugins(cmd.OutOrStdout(), reg.Plugins(), reg.DiscoveryErrors())
		},
	}

	var payload string
	var extra []string
	dispatchCmd := &cobra.Command{
		Use:     "dispatch <event-type> <field>",
		Short:   "Dispatch one event and print per-plugin results",
		Example: "  plugind dispatch New_Project reference --payload '{\"reference\":\"P-1\"}'",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := dispatchRequest(args[0], args[1], payload, extra)
			if err != nil {
				return err
			}
			if opts.Server != "" {
				resp, err := newRemote(opts.Server).dispatch(cmd.Context(), req)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), resp)
			}
			cfg, err := buildConfig(opts)
			if err != nil {
				return err
			}
			reg, err := newRegistry(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer reg.Close()
			return printJSON(cmd.OutOrStdout(), reg.DispatchRequest(cmd.Context(), req))
		},
	}
	dispatchCmd.Flags().StringVarP(&payload, "payload", "p", "{}", "Event payload as a JSON object")
	dispatchCmd.Flags().StringSliceVar(&extra, "extra", nil, "Extra positional values passed to plugins")

	root.AddCommand(serveCmd, listCmd, dispatchCmd)

	// completion command
	completionCmd := &cobra.Command{Use: "completion", Short: "Generate the autocompletion script for the specified shell"}
	completionCmd.AddCommand(&cobra.Command{Use: "bash", Short: "Bash completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenBashCompletion(cmd.OutOrStdout()) }})
	completionCmd.AddCommand(&cobra.Command{Use: "zsh", Short: "Zsh completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenZshCompletion(cmd.OutOrStdout()) }})
	completionCmd.AddCommand(&cobra.Command{Use: "fish", Short: "Fish completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenFishCompletion(cmd.OutOrStdout(), true) }})
	completionCmd.AddCommand(&cobra.Command{Use: "powershell", Short: "PowerShell completion", RunE: func(cmd *cobra.Command, args []string) error {
		return root.GenPowerShellCompletionWithDesc(cmd.OutOrStdout())
	}})
	root.AddCommand(completionCmd)

	return root
}

func dispatchRequest(eventType, field, payload string, extra []string) (types.DispatchRequest, error) {
	req := types.DispatchRequest{EventType: eventType, Field: field}
	if payload != "" {
		if err := json.Unmarshal([]byte(payload), &req.Payload); err != nil {
			return req, fmt.Errorf("--payload must be a JSON object: %w", err)
		}
	}
	for _, e := range extra {
		req.Extra = append(req.Extra, e)
	}
	return req, nil
}
