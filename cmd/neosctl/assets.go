package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmerrifield20/neosconnect/pkg/connector"
)

var assetsCmd = &cobra.Command{
	Use:   "assets",
	Short: "Search and inspect local assets",
}

var assetProxiesCmd = &cobra.Command{
	Use:     "asset-proxies",
	Aliases: []string{"proxies"},
	Short:   "Search, inspect and import assets of an asset source",
}

var (
	proxySource  string
	proxyExclude []string
)

func init() {
	assetsCmd.AddCommand(assetsSearchCmd)
	assetsCmd.AddCommand(assetsShowCmd)

	proxiesSearchCmd.Flags().StringVar(&proxySource, "source", "", "asset source identifier (backend default when empty)")
	proxiesSearchCmd.Flags().StringSliceVar(&proxyExclude, "exclude", nil, "asset proxy identifiers to leave out (repeatable)")

	assetProxiesCmd.AddCommand(proxiesSearchCmd)
	assetProxiesCmd.AddCommand(proxiesShowCmd)
	assetProxiesCmd.AddCommand(proxiesImportCmd)
}

func printAssets(assets []connector.AssetRecord) func(p *printer) {
	return func(p *printer) {
		p.row("IDENTIFIER", "LABEL", "PREVIEW")
		for _, a := range assets {
			p.row(a.Identifier, a.Label, a.Preview)
		}
	}
}

func printProxies(proxies []connector.AssetProxyRecord) func(p *printer) {
	return func(p *printer) {
		p.row("SOURCE", "PROXY", "LABEL", "LOCAL ASSET")
		for _, px := range proxies {
			local := "-"
			if px.LocalAssetIdentifier != nil {
				local = *px.LocalAssetIdentifier
			}
			p.row(px.AssetSourceLabel, px.AssetProxyIdentifier, px.Label, local)
		}
	}
}

// ── assets ───────────────────────────────────────────────────────────────

var assetsSearchCmd = &cobra.Command{
	Use:   "search [term]",
	Short: "Search local assets",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		var term string
		if len(args) == 1 {
			term = args[0]
		}
		assets, err := c.AssetSearch(cmd.Context(), term)
		if err != nil {
			return fmt.Errorf("search assets: %w", err)
		}
		return render(cmd.OutOrStdout(), assets, printAssets(assets))
	},
}

var assetsShowCmd = &cobra.Command{
	Use:   "show <identifier>",
	Short: "Show one local asset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		asset, err := c.AssetDetail(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("show asset: %w", err)
		}
		return render(cmd.OutOrStdout(), asset, printAssets([]connector.AssetRecord{*asset}))
	},
}

// ── asset proxies ────────────────────────────────────────────────────────

var proxiesSearchCmd = &cobra.Command{
	Use:   "search [term]",
	Short: "Search the assets of an asset source",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		var term string
		if len(args) == 1 {
			term = args[0]
		}
		proxies, err := c.AssetProxySearch(cmd.Context(), term, proxySource, proxyExclude...)
		if err != nil {
			return fmt.Errorf("search asset proxies: %w", err)
		}
		return render(cmd.OutOrStdout(), proxies, printProxies(proxies))
	},
}

var proxiesShowCmd = &cobra.Command{
	Use:   "show <source> <identifier>",
	Short: "Show one asset of an asset source",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		proxy, err := c.AssetProxyDetail(cmd.Context(), args[0], args[1])
		if err != nil {
			return fmt.Errorf("show asset proxy: %w", err)
		}
		return render(cmd.OutOrStdout(), proxy, printProxies([]connector.AssetProxyRecord{*proxy}))
	},
}

var proxiesImportCmd = &cobra.Command{
	Use:   "import <source> <identifier>",
	Short: "Import an asset of an asset source as a local asset",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		localID, err := c.AssetProxyImport(cmd.Context(), args[0], args[1])
		if err != nil {
			return fmt.Errorf("import asset proxy: %w", err)
		}
		out := map[string]string{
			"assetSourceIdentifier": args[0],
			"assetProxyIdentifier":  args[1],
			"localAssetIdentifier":  localID,
		}
		return render(cmd.OutOrStdout(), out, func(p *printer) {
			p.line("✓ Imported %s/%s as %s", args[0], args[1], localID)
		})
	},
}
