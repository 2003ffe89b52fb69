package cmd

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/xlttj/portpanel/pkg/config"
)

// options are shared by every subcommand.
type options struct {
	configFile string
	viper      *viper.Viper
}

var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	opts := &options{viper: config.NewViper()}

	root := &cobra.Command{
		Use:     "portpanel",
		Short:   "Control a local web server and TCP port forwards",
		Long:    rootLong,
		Example: rootExample,
		// SilenceUsage is set to true to prevent printing usage message on errors
		// handled by us (e.g. a failed service action)
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPanel(cmd, opts)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configFile, "config", "", "extra config file (default is $HOME/.config/portpanel/config.yaml)")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	flags.String("log-file", "", "log file path")
	flags.String("journal", "", "journal database path")
	_ = opts.viper.BindPFlag(config.ConfigLogLevel, flags.Lookup("log-level"))
	_ = opts.viper.BindPFlag(config.ConfigLogFile, flags.Lookup("log-file"))
	_ = opts.viper.BindPFlag(config.ConfigJournalPath, flags.Lookup("journal"))

	root.AddCommand(newServiceCmd(opts))
	root.AddCommand(newHistoryCmd(opts))
	root.AddCommand(newPruneCmd(opts))
	root.AddCommand(newPageCmd(opts))
	root.AddCommand(newVersionCmd())
	return root
}

// SetVersion sets the version for the root command
func SetVersion(v string) {
	rootCmd.Version = v
}

// Execute runs the root command. This is called by main.main().
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "portpanel version %s\n" .Version}}`)

	if err := rootCmd.Execute(); err != nil {
		// Cobra prints the error, we just exit non-zero
		os.Exit(1)
	}
}
