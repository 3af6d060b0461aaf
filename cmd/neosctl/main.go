package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/jmerrifield20/neosconnect/internal/config"
	"github.com/jmerrifield20/neosconnect/pkg/connector"
)

// version is overridden via -ldflags "-X main.version=...".
var version = "dev"

var (
	cfgFile      string
	outputFormat string
	verbose      bool

	cfg    *config.Config
	logger *zap.Logger
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "neosctl",
	Short: "Command-line client for the Neos content editing backend",
	Long: `neosctl talks to the backend of the Neos content editing interface.

Settings come from neosconnect.yaml (working directory or ~/.neosconnect),
NEOSCONNECT_* environment variables and flags, in increasing precedence.
When a username is configured every command logs in first, since the
anti-forgery token is bound to the session:

  neosctl --base-url http://localhost:8081 --username admin --password password nodes search about`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		switch outputFormat {
		case formatText, formatJSON, formatYAML:
		default:
			return fmt.Errorf("unknown --format %q (want text, json or yaml)", outputFormat)
		}

		var err error
		if logger, err = newLogger(verbose); err != nil {
			return err
		}
		cfg, err = config.Load(cfgFile, cmd.Flags())
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default ./neosconnect.yaml or ~/.neosconnect/neosconnect.yaml)")
	pf.String("base-url", "", "Neos base URL (default http://localhost:8081)")
	pf.String("username", "", "backend username; enables login before each command")
	pf.String("password", "", "backend password")
	pf.String("token", "", "anti-forgery token of an existing session")
	pf.Duration("timeout", 0, "request timeout (default 10s)")
	pf.StringVar(&outputFormat, "format", formatText, "output format: text, json or yaml")
	pf.BoolVarP(&verbose, "verbose", "v", false, "log every request")

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(nodesCmd)
	rootCmd.AddCommand(assetsCmd)
	rootCmd.AddCommand(assetProxiesCmd)
	rootCmd.AddCommand(workspaceCmd)
	rootCmd.AddCommand(publishCmd)
	rootCmd.AddCommand(discardCmd)
	rootCmd.AddCommand(dataSourceCmd)
	rootCmd.AddCommand(resourceCmd)
	rootCmd.AddCommand(versionCmd)
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	zc.Encoding = "console"
	return zc.Build()
}

// connect builds a client and logs in when credentials are configured.
func connect(ctx context.Context) (*connector.Client, error) {
	c, err := cfg.NewClient(logger)
	if err != nil {
		return nil, err
	}
	if cfg.Username == "" {
		return c, nil
	}
	if _, ok := c.Login(ctx, cfg.Username, cfg.Password); !ok {
		return nil, fmt.Errorf("login refused for %q", cfg.Username)
	}
	return c, nil
}

// parseDimensions turns ["language=en_US,de", "country=us"] into dimensions.
func parseDimensions(pairs []string) (connector.Dimensions, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	dims := connector.Dimensions{}
	for _, p := range pairs {
		name, values, ok := strings.Cut(p, "=")
		if !ok || name == "" || values == "" {
			return nil, fmt.Errorf("invalid dimension %q, want name=value[,value]", p)
		}
		dims[name] = append(dims[name], strings.Split(values, ",")...)
	}
	return dims, nil
}

// ── login ────────────────────────────────────────────────────────────────

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Check the configured credentials and print the session token",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Username == "" {
			return fmt.Errorf("no username configured")
		}
		c, err := cfg.NewClient(logger)
		if err != nil {
			return err
		}
		token, ok := c.Login(cmd.Context(), cfg.Username, cfg.Password)
		if !ok {
			return fmt.Errorf("login refused for %q", cfg.Username)
		}
		return render(cmd.OutOrStdout(), map[string]string{"username": cfg.Username, "csrfToken": token}, func(p *printer) {
			p.line("✓ Logged in as %s", cfg.Username)
			p.line("  CSRF token: %s", token)
		})
	},
}

// ── version ──────────────────────────────────────────────────────────────

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the neosctl version",
	// No config or login needed.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "neosctl %s\n", version)
	},
}
