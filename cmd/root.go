package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/agentic-research/procmirror/internal/config"
	"github.com/agentic-research/procmirror/internal/localtree"
	"github.com/agentic-research/procmirror/internal/mirror"
	"github.com/agentic-research/procmirror/internal/remote"
)

var (
	cfgFile     string
	fixturePath string
	verbose     bool

	// cfg is resolved before any subcommand runs.
	cfg *config.Config
	log = logrus.StandardLogger()
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./procmirror.yaml, then $HOME/.procmirror/procmirror.yaml)")
	rootCmd.PersistentFlags().StringVar(&fixturePath, "fixture", "", "read the namespace from a JSON fixture instead of the controller")
	rootCmd.PersistentFlags().String("mirror-dir", "", "local mirror directory (overrides mirror_dir)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}

var rootCmd = &cobra.Command{
	Use:   "procmirror",
	Short: "Mirror the automation console's processes to a folder tree and back",
	Long: `procmirror copies the console's folders and processes into a local directory
tree (one directory per folder, one file per process) and rebuilds the
console from such a tree.

  procmirror export             Replace the mirror with the console's current state
  procmirror import             Back up the console, empty it, replay the mirror
  procmirror verify             Compare the mirror with the last export
  procmirror backups            List data file backups
  procmirror restore <backup>   Put a backup back in place`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadConfig(cmd)
	},
}

// loadConfig resolves cfg from defaults, config file, environment and
// flags, then configures logging.
func loadConfig(cmd *cobra.Command) error {
	v := viper.New()
	if f := cmd.Flags().Lookup("mirror-dir"); f != nil {
		if err := v.BindPFlag(config.KeyMirrorDir, f); err != nil {
			return err
		}
	}
	used, err := config.ReadIn(v, cfgFile)
	if err != nil {
		return err
	}
	c, err := config.Load(v)
	if err != nil {
		return err
	}
	cfg = c

	log.SetOutput(cmd.ErrOrStderr())
	if err := cfg.Log.Apply(log); err != nil {
		return err
	}
	if verbose {
		log.SetLevel(logrus.DebugLevel)
	}
	if used != "" {
		log.WithField("file", used).Debug("config loaded")
	}
	return nil
}

// newClient returns the fixture namespace when --fixture is set, the
// controller otherwise.
func newClient() (remote.NamespaceClient, error) {
	if fixturePath == "" {
		return remote.NewController(cfg.Controller, log), nil
	}
	f, err := os.Open(fixturePath)
	if err != nil {
		return nil, fmt.Errorf("open fixture: %w", err)
	}
	defer func() { _ = f.Close() }()

	fs, err := localtree.OSFilesystem()
	if err != nil {
		return nil, err
	}
	ns, err := remote.LoadFixture(fs, f)
	if err != nil {
		return nil, err
	}
	log.WithField("fixture", fixturePath).Info("using fixture namespace")
	return ns, nil
}

func newMirror(client remote.NamespaceClient) *mirror.Mirror {
	m := mirror.New(client)
	m.Extension = cfg.Extension
	m.RemoteRoot = cfg.RemoteRoot
	m.Ignore = cfg.Ignore
	m.Log = log
	return m
}

// Execute runs the root command. Interrupts cancel the running operation.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
