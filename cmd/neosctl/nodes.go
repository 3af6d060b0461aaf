package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jmerrifield20/neosconnect/pkg/connector"
)

var nodesCmd = &cobra.Command{
	Use:   "nodes",
	Short: "Search, look up and translate document nodes",
}

var (
	nodeWorkspace  string
	nodeDimensions []string
	nodeTypes      []string
	nodeContext    string
)

func init() {
	nodesCmd.PersistentFlags().StringVar(&nodeWorkspace, "workspace", "", "workspace name (e.g. user-admin)")
	nodesCmd.PersistentFlags().StringSliceVar(&nodeDimensions, "dimension", nil, "dimension values, e.g. language=en_US (repeatable)")

	nodesSearchCmd.Flags().StringSliceVar(&nodeTypes, "node-type", nil, "restrict to node types (repeatable)")
	nodesSearchCmd.Flags().StringVar(&nodeContext, "context-node", "", "context path of the node to search around")

	adoptCmd.Flags().StringSliceVar(&adoptFrom, "from", nil, "source dimension values, e.g. language=en_US")
	adoptCmd.Flags().BoolVar(&adoptCopy, "copy-content", false, "copy the content of the source variant")
	_ = adoptCmd.MarkFlagRequired("from")

	nodesCmd.AddCommand(nodesSearchCmd)
	nodesCmd.AddCommand(nodesGetCmd)
	nodesCmd.AddCommand(adoptCmd)
}

// ── nodes search ─────────────────────────────────────────────────────────

var nodesSearchCmd = &cobra.Command{
	Use:   "search [term]",
	Short: "Search nodes by label",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dims, err := parseDimensions(nodeDimensions)
		if err != nil {
			return err
		}
		c, err := connect(cmd.Context())
		if err != nil {
			return err
		}

		q := connector.NodeSearchQuery{
			NodeTypes:     nodeTypes,
			WorkspaceName: nodeWorkspace,
			Dimensions:    dims,
			ContextNode:   nodeContext,
		}
		if len(args) == 1 {
			q.SearchTerm = args[0]
		}
		nodes, err := c.SearchNodes(cmd.Context(), q)
		if err != nil {
			return fmt.Errorf("search nodes: %w", err)
		}

		return render(cmd.OutOrStdout(), nodes, func(p *printer) {
			p.row("IDENTIFIER", "LABEL", "TYPE", "URI")
			for _, n := range nodes {
				p.row(n.Identifier, n.Label, n.NodeType, n.URI)
			}
		})
	},
}

// ── nodes get ────────────────────────────────────────────────────────────

// lookupRow holds the outcome of a single node lookup.
type lookupRow struct {
	Identifier string                  `json:"identifier"`
	Found      *connector.NodeFound    `json:"found,omitempty"`
	NotFound   *connector.NodeNotFound `json:"notFound,omitempty"`
}

var nodesGetCmd = &cobra.Command{
	Use:   "get <identifier> [identifier] ...",
	Short: "Look nodes up in a workspace and dimension combination",
	Long: `get resolves node identifiers concurrently and prints them in argument
order. A node that is missing in the requested dimensions is reported with
whether it exists in other dimensions and how many of its ancestors are
missing:

  neosctl nodes get --workspace user-admin --dimension language=de <id> <id>`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dims, err := parseDimensions(nodeDimensions)
		if err != nil {
			return err
		}
		c, err := connect(cmd.Context())
		if err != nil {
			return err
		}

		params := map[string]any{}
		if nodeWorkspace != "" {
			params["workspaceName"] = nodeWorkspace
		}
		if len(dims) > 0 {
			params["dimensions"] = map[string][]string(dims)
		}

		rows := make([]lookupRow, len(args))
		g, ctx := errgroup.WithContext(cmd.Context())
		g.SetLimit(4)
		for i, id := range args {
			i, id := i, id // per-iteration copy (go 1.21 loop semantics)
			g.Go(func() error {
				lookup, err := c.GetSingleNode(ctx, id, params)
				if err != nil {
					return fmt.Errorf("node %s: %w", id, err)
				}
				rows[i] = lookupRowOf(id, lookup)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		return render(cmd.OutOrStdout(), rows, printLookups(rows))
	},
}

func lookupRowOf(id string, lookup connector.NodeLookup) lookupRow {
	row := lookupRow{Identifier: id}
	switch n := lookup.(type) {
	case connector.NodeFound:
		row.Found = &n
	case connector.NodeNotFound:
		row.NotFound = &n
	}
	return row
}

func printLookups(rows []lookupRow) func(p *printer) {
	return func(p *printer) {
		p.row("IDENTIFIER", "STATUS", "CONTEXT PATH", "DETAIL")
		for _, r := range rows {
			switch {
			case r.Found != nil:
				p.row(r.Identifier, "found", r.Found.ContextPath, r.Found.FrontendURI)
			case r.NotFound != nil:
				detail := fmt.Sprintf("%d missing ancestors", r.NotFound.NumberOfMissingAncestors)
				if r.NotFound.ExistsInOtherDimensions {
					detail += ", exists in other dimensions"
				}
				p.row(r.Identifier, "missing", "", detail)
			}
		}
	}
}

// ── nodes adopt ──────────────────────────────────────────────────────────

var (
	adoptFrom []string
	adoptCopy bool
)

var adoptCmd = &cobra.Command{
	Use:   "adopt <identifier>",
	Short: "Create the variant of a node in other dimensions",
	Long: `adopt creates a node variant in the dimensions given by --dimension,
starting from the variant in --from:

  neosctl nodes adopt --workspace user-admin --from language=en_US --dimension language=de --copy-content <id>`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(nodeDimensions) == 0 {
			return fmt.Errorf("--dimension is required")
		}
		target, err := parseDimensions(nodeDimensions)
		if err != nil {
			return err
		}
		source, err := parseDimensions(adoptFrom)
		if err != nil {
			return err
		}
		c, err := connect(cmd.Context())
		if err != nil {
			return err
		}

		lookup, err := c.AdoptNodeToOtherDimension(cmd.Context(), connector.AdoptRequest{
			Identifier:       args[0],
			TargetDimensions: target,
			SourceDimensions: source,
			WorkspaceName:    nodeWorkspace,
			CopyContent:      adoptCopy,
		})
		if err != nil {
			return fmt.Errorf("adopt node: %w", err)
		}
		rows := []lookupRow{lookupRowOf(args[0], lookup)}
		return render(cmd.OutOrStdout(), rows[0], printLookups(rows))
	},
}
