package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jmerrifield20/neosconnect/pkg/connector"
)

var workspaceCmd = &cobra.Command{
	Use:   "workspace",
	Short: "Inspect the user workspace",
}

var (
	publishTarget  string
	dataSourceURI  string
	dataSourceArgs []string
)

func init() {
	workspaceCmd.AddCommand(workspaceInfoCmd)

	publishCmd.Flags().StringVar(&publishTarget, "target", "", "target workspace (default the base workspace)")
	dataSourceCmd.Flags().StringVar(&dataSourceURI, "uri", "", "data source URI replacing the default route")
	dataSourceCmd.Flags().StringArrayVar(&dataSourceArgs, "param", nil, "data source argument as key=value (repeatable)")
}

var workspaceInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show the workspace state and its unpublished nodes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		info, err := c.GetWorkspaceInfo(cmd.Context())
		if err != nil {
			return fmt.Errorf("workspace info: %w", err)
		}
		return render(cmd.OutOrStdout(), info, func(p *printer) {
			p.line("Workspace:\t%s", info.Name)
			p.line("Base:\t%s", info.BaseWorkspace)
			p.line("Status:\t%s", info.Status)
			p.line("Read-only:\t%t", info.ReadOnly)
			p.line("Unpublished:\t%d", len(info.PublishableNodes))
			for _, n := range info.PublishableNodes {
				p.line("  %s", n.ContextPath)
			}
		})
	},
}

// ── publish / discard ────────────────────────────────────────────────────

// pendingNodes returns args, or every publishable node of the workspace when
// args is empty.
func pendingNodes(cmd *cobra.Command, c *connector.Client, args []string) ([]string, *connector.WorkspaceInfo, error) {
	info, err := c.GetWorkspaceInfo(cmd.Context())
	if err != nil {
		return nil, nil, fmt.Errorf("workspace info: %w", err)
	}
	if len(args) > 0 {
		return args, info, nil
	}
	paths := make([]string, 0, len(info.PublishableNodes))
	for _, n := range info.PublishableNodes {
		paths = append(paths, n.ContextPath)
	}
	return paths, info, nil
}

func printFeedback(paths []string, res *connector.FeedbackResponse, verb string) func(p *printer) {
	return func(p *printer) {
		p.line("✓ %s %d node(s)", verb, len(paths))
		for _, f := range res.Feedbacks {
			if f.Description != "" {
				p.line("  %s: %s", f.Type, f.Description)
			} else {
				p.line("  %s", f.Type)
			}
		}
	}
}

var publishCmd = &cobra.Command{
	Use:   "publish [contextPath] ...",
	Short: "Publish nodes, all pending ones when none are given",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		paths, info, err := pendingNodes(cmd, c, args)
		if err != nil {
			return err
		}
		if len(paths) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "Nothing to publish.")
			return nil
		}

		target := publishTarget
		if target == "" {
			target = info.BaseWorkspace
		}
		if target == "" {
			target = "live"
		}
		res, err := c.Publish(cmd.Context(), paths, target)
		if err != nil {
			return fmt.Errorf("publish: %w", err)
		}
		return render(cmd.OutOrStdout(), res, printFeedback(paths, res, "Published"))
	},
}

var discardCmd = &cobra.Command{
	Use:   "discard [contextPath] ...",
	Short: "Discard changes of nodes, all pending ones when none are given",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		paths, _, err := pendingNodes(cmd, c, args)
		if err != nil {
			return err
		}
		if len(paths) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "Nothing to discard.")
			return nil
		}
		res, err := c.Discard(cmd.Context(), paths)
		if err != nil {
			return fmt.Errorf("discard: %w", err)
		}
		return render(cmd.OutOrStdout(), res, printFeedback(paths, res, "Discarded"))
	},
}

// ── data source ──────────────────────────────────────────────────────────

var dataSourceCmd = &cobra.Command{
	Use:   "data-source <identifier>",
	Short: "Fetch a data source as used by select box editors",
	Long: `data-source prints the raw answer of a data source:

  neosctl data-source node-types --param prefix=Neos.Demo`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		params := make(map[string]any, len(dataSourceArgs))
		for _, kv := range dataSourceArgs {
			k, v, ok := strings.Cut(kv, "=")
			if !ok || k == "" {
				return fmt.Errorf("invalid --param %q, want key=value", kv)
			}
			params[k] = v
		}
		c, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		raw, err := c.DataSource(cmd.Context(), args[0], dataSourceURI, params)
		if err != nil {
			return fmt.Errorf("data source %s: %w", args[0], err)
		}
		return renderRaw(cmd.OutOrStdout(), raw)
	},
}

var resourceCmd = &cobra.Command{
	Use:   "resource <uri>",
	Short: "Fetch a JSON resource such as the node type schema",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		raw, err := c.GetJSONResource(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("resource %s: %w", args[0], err)
		}
		return renderRaw(cmd.OutOrStdout(), raw)
	},
}
