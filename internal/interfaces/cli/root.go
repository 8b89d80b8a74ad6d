// Package cli implements mdrctl, the command line front end of the syntax
// repository.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mariusconjeaud/openstudybuilder-solution-lite-sub000/internal/config"
	"github.com/mariusconjeaud/openstudybuilder-solution-lite-sub000/internal/infrastructure/monitoring/logging"
	"github.com/mariusconjeaud/openstudybuilder-solution-lite-sub000/pkg/errors"
)

// Build-time variables injected via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Output formats.
const (
	OutputJSON  = "json"
	OutputYAML  = "yaml"
	OutputTable = "table"
)

type cliContextKey struct{}

// RootOptions holds global CLI flags.
type RootOptions struct {
	ConfigPath   string
	LogLevel     string
	OutputFormat string
	Timeout      time.Duration
	MetricsAddr  string
}

// CLIContext carries initialized dependencies through the command tree. The
// graph connection is opened on first use so commands that never touch the
// database do not need one.
type CLIContext struct {
	Config       *config.Config
	Logger       logging.Logger
	OutputFormat string
	Timeout      time.Duration

	connector Connector
	once      sync.Once
	runtime   *Runtime
	err       error
}

// Runtime returns the connected runtime, connecting on the first call.
func (c *CLIContext) Runtime(ctx context.Context) (*Runtime, error) {
	c.once.Do(func() {
		c.runtime, c.err = c.connector(ctx, c.Config, c.Logger)
	})
	return c.runtime, c.err
}

func (c *CLIContext) close() {
	if c.runtime != nil {
		c.runtime.Close(c.Logger)
	}
}

// RootOption customizes NewRootCommand.
type RootOption func(*rootSettings)

type rootSettings struct {
	connector Connector
	loader    func(path string) (*config.Config, error)
}

// WithConnector replaces the function that opens the graph connection.
func WithConnector(c Connector) RootOption {
	return func(s *rootSettings) { s.connector = c }
}

// WithConfigLoader replaces config.LoadOptional.
func WithConfigLoader(load func(path string) (*config.Config, error)) RootOption {
	return func(s *rootSettings) { s.loader = load }
}

// NewRootCommand creates the root cobra command with all global flags and subcommands.
func NewRootCommand(opts ...RootOption) *cobra.Command {
	settings := rootSettings{connector: Connect, loader: config.LoadOptional}
	for _, o := range opts {
		o(&settings)
	}
	ro := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "mdrctl",
		Short: "Query and patch syntax templates, pre-instances and instances",
		Long: "mdrctl reads the versioned syntax entities (objectives, endpoints, criteria,\n" +
			"footnotes and activity instructions) from the metadata repository graph and\n" +
			"patches their optional relationships.",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildDate),
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return persistentPreRun(cmd, ro, settings)
		},
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if cc, err := GetCLIContext(cmd); err == nil {
				cc.close()
			}
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&ro.ConfigPath, "config", "c", "", "config file path (MDR_* environment variables only when empty)")
	pf.StringVar(&ro.LogLevel, "log-level", "", "log level override (debug, info, warn, error)")
	pf.StringVarP(&ro.OutputFormat, "output", "o", OutputJSON, "output format (json, yaml, table)")
	pf.DurationVar(&ro.Timeout, "timeout", 30*time.Second, "per-command timeout")
	pf.StringVar(&ro.MetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while the command runs")

	cmd.AddCommand(
		newKindsCmd(),
		newGetCmd(),
		newHistoryCmd(),
		newListCmd(),
		newHeadersCmd(),
		newParameterTermsCmd(),
		newTemplateTypeCmd(),
		newPatchCmd(),
	)
	return cmd
}

func persistentPreRun(cmd *cobra.Command, ro *RootOptions, s rootSettings) error {
	format := strings.ToLower(ro.OutputFormat)
	switch format {
	case OutputJSON, OutputYAML, OutputTable:
	default:
		return errors.InvalidParam(fmt.Sprintf("unknown output format %q; expected json|yaml|table", ro.OutputFormat))
	}

	cfg, err := s.loader(ro.ConfigPath)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeConfigInvalid, "config initialization failed")
	}
	if ro.LogLevel != "" {
		cfg.Log.Level = ro.LogLevel
	}
	if ro.MetricsAddr != "" {
		cfg.Metrics.Enabled = true
		cfg.Metrics.Addr = ro.MetricsAddr
	}

	logger, err := initLogger(cfg)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeConfigInvalid, "logger initialization failed")
	}

	cliCtx := &CLIContext{
		Config:       cfg,
		Logger:       logger,
		OutputFormat: format,
		Timeout:      ro.Timeout,
		connector:    s.connector,
	}
	cmd.SetContext(context.WithValue(cmd.Context(), cliContextKey{}, cliCtx))
	return nil
}

// initLogger writes to stderr so stdout carries only command output.
func initLogger(cfg *config.Config) (logging.Logger, error) {
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	format := cfg.Log.Format
	if format == "" {
		format = "console"
	}
	return logging.NewLogger(logging.LogConfig{
		Level:            level,
		Format:           format,
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	})
}

// GetCLIContext extracts CLIContext from a cobra command's context.
func GetCLIContext(cmd *cobra.Command) (*CLIContext, error) {
	ctx := cmd.Context()
	if ctx == nil {
		return nil, errors.Internal("command context is nil")
	}
	cliCtx, ok := ctx.Value(cliContextKey{}).(*CLIContext)
	if !ok || cliCtx == nil {
		return nil, errors.Internal("CLIContext not found in command context")
	}
	return cliCtx, nil
}

// commandContext bounds one command by the --timeout flag.
func commandContext(cmd *cobra.Command, cc *CLIContext) (context.Context, context.CancelFunc) {
	if cc.Timeout <= 0 {
		return context.WithCancel(cmd.Context())
	}
	return context.WithTimeout(cmd.Context(), cc.Timeout)
}

// Execute runs the CLI and reports a failure on stderr.
func Execute() error {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		PrintError(rootCmd, err)
		return err
	}
	return nil
}

// tableData is implemented by results that know how to render as rows.
type tableData interface {
	TableHeaders() []string
	TableRows() [][]string
}

// PrintResult outputs data in the format chosen by --output. Table output
// falls back to YAML for values without a tabular form.
func PrintResult(cmd *cobra.Command, data any) error {
	format := OutputJSON
	if cc, err := GetCLIContext(cmd); err == nil {
		format = cc.OutputFormat
	}

	switch format {
	case OutputYAML:
		return printYAML(cmd, data)
	case OutputTable:
		if td, ok := data.(tableData); ok {
			_, err := fmt.Fprint(cmd.OutOrStdout(), FormatTable(td.TableHeaders(), td.TableRows()))
			return err
		}
		return printYAML(cmd, data)
	default:
		return printJSON(cmd, data)
	}
}

func printJSON(cmd *cobra.Command, data any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

func printYAML(cmd *cobra.Command, data any) error {
	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	if err := enc.Encode(data); err != nil {
		return err
	}
	return enc.Close()
}

// PrintError writes a formatted error message to stderr.
func PrintError(cmd *cobra.Command, err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Error: %s\n", err.Error())
}

// PrintSuccess writes a formatted success message to stdout.
func PrintSuccess(cmd *cobra.Command, msg string) {
	fmt.Fprintf(cmd.OutOrStdout(), "OK: %s\n", msg)
}

// FormatTable renders headers and rows as aligned columns.
func FormatTable(headers []string, rows [][]string) string {
	if len(headers) == 0 {
		return ""
	}
	var sb strings.Builder
	w := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', 0)

	fmt.Fprintln(w, strings.Join(headers, "\t"))
	sep := make([]string, len(headers))
	for i, h := range headers {
		sep[i] = strings.Repeat("-", len(h))
	}
	fmt.Fprintln(w, strings.Join(sep, "\t"))

	for _, row := range rows {
		cells := make([]string, len(headers))
		copy(cells, row)
		fmt.Fprintln(w, strings.Join(cells, "\t"))
	}
	_ = w.Flush()
	return sb.String()
}
