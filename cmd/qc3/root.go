package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wudi/queconverter/cms"
	"github.com/wudi/queconverter/config"
	"github.com/wudi/queconverter/observability"
)

// app carries the state shared by all subcommands of one invocation.
type app struct {
	verbose   bool
	dryRun    bool
	configDir string
	logLevel  string

	cfg    *config.Config
	logger observability.Logger
	mgr    *cms.Manager
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "qc3",
		Short:         "qc3 converts colors and images between color spaces",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.close()
		},
	}

	flags := root.PersistentFlags()
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")
	flags.BoolVar(&a.dryRun, "dry-run", false, "run without writing any file")
	flags.StringVar(&a.configDir, "config-dir", "", "configuration directory (default: ~/.config/qc3)")
	flags.StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error); overrides log_level")

	root.AddCommand(
		newConvertCmd(a),
		newColorCmd(a),
		newDisplayCmd(a),
		newPaletteCmd(a),
		newConfigureCmd(a),
		newShowConfigCmd(a),
		newPartsCmd(a),
		newProfilesCmd(a),
	)
	return root
}

// setup loads the preferences and builds the logger. The color manager is
// created on first use.
func (a *app) setup(cmd *cobra.Command) error {
	dir := a.configDir
	if dir == "" {
		var err error
		if dir, err = config.DefaultDir(); err != nil {
			return err
		}
	}
	cfg, err := config.Load(dir)
	if err != nil {
		return err
	}
	a.cfg = cfg

	level := cfg.LogLevel()
	if a.logLevel != "" {
		level = a.logLevel
	}
	if a.verbose {
		level = "debug"
	}
	a.logger = observability.NewCharmLogger(cmd.ErrOrStderr(), level)
	return nil
}

// manager returns the color manager configured from the preferences. The
// built-in profiles are written to the profiles directory on first run.
func (a *app) manager() (*cms.Manager, error) {
	if a.mgr != nil {
		return a.mgr, nil
	}
	m, err := cms.New(cms.WithLogger(a.logger))
	if err != nil {
		return nil, err
	}
	if !a.dryRun {
		written, err := a.cfg.InstallBuiltinProfiles(m)
		if err != nil {
			m.Close()
			return nil, err
		}
		for _, path := range written {
			a.logger.Info("installed built-in profile", observability.String("path", path))
		}
	}
	if err := a.cfg.Apply(m); err != nil {
		m.Close()
		return nil, fmt.Errorf("apply preferences: %w", err)
	}
	a.mgr = m
	return m, nil
}

func (a *app) close() {
	if a.mgr == nil {
		return
	}
	st := a.mgr.Stats()
	a.logger.Debug("color manager closed",
		observability.Int("transforms", st.Entries),
		observability.Int("proofs", st.ProofEntries),
		observability.Int64("hits", st.Hits),
		observability.Int64("misses", st.Misses))
	a.mgr.Close()
	a.mgr = nil
}
