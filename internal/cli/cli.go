// Package cli implements the friendlypipe command-line interface.
package cli

import (
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/friendlypipe/pkg/buildinfo"
	"github.com/matzehuels/friendlypipe/pkg/config"
)

const appName = "friendlypipe"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
	Config *config.Config

	configPath string
	verbose    bool
}

// New creates a new CLI instance with a default logger and the built-in
// configuration. The config file is read once a command runs.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		Config: config.Default(),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "Inspect and render FriendlyPipe bundles in node-graph workflows",
		Long: `friendlypipe loads node-graph workflow files, resolves every FriendlyPipe
bundle through reroutes and nested subgraphs, and reports the slot layout
each FriendlyPipeOut and FriendlyPipeEdit node ends up with.`,
		Version:           buildinfo.Resolved(),
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.setup,
	}
	root.SetVersionTemplate(buildinfo.Template())

	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default "+config.Path()+")")

	root.AddCommand(c.inspectCommand())
	root.AddCommand(c.resolveCommand())
	root.AddCommand(c.validateCommand())
	root.AddCommand(c.runCommand())
	root.AddCommand(c.saveCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.browseCommand())
	root.AddCommand(c.watchCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// setup loads the config file and applies the log level. --verbose wins
// over the config's debug key.
func (c *CLI) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	c.Config = cfg
	for _, k := range cfg.Undecoded {
		c.Logger.Warn("unknown config key", "key", k)
	}

	if c.verbose || cfg.Debug {
		c.SetLogLevel(LogDebug)
	}
	cmd.SetContext(withLogger(cmd.Context(), c.Logger))
	return nil
}
