package main

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wudi/queconverter/cmm"
	"github.com/wudi/queconverter/config"
	"github.com/wudi/queconverter/observability"
)

func newConfigureCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "configure key=value[,key=value...]",
		Short: "Change preferences",
		Example: `  qc3 configure 'cms_use=yes'
  qc3 configure 'cms_use=yes,log_level=DEBUG'`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.cfg.Set(strings.Join(args, ",")); err != nil {
				return err
			}
			if _, err := a.cfg.Policy(); err != nil {
				return err
			}
			if a.dryRun {
				a.logger.Info("dry run, preferences not saved")
				return nil
			}
			if err := a.cfg.Save(); err != nil {
				return err
			}
			a.logger.Info("preferences saved", observability.String("path", a.cfg.Path()))
			return nil
		},
	}
}

func newShowConfigCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show-config",
		Short: "Print the preferences",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.cfg.Show(cmd.OutOrStdout())
		},
	}
}

func newPartsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "parts",
		Short: "Show the components qc3 is built from",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "qc3 %s components:\n\n", version)
			showPart(cmd, "Go", runtime.Version())
			showPart(cmd, "CMM", cmm.Version)
			showPart(cmd, "Config", a.cfg.Path())
			showPart(cmd, "Preferences", fmt.Sprint(len(config.Keys())))
		},
	}
}

func showPart(cmd *cobra.Command, name, value string) {
	const alignment = 25
	dots := alignment - len(name)
	if dots < 1 {
		dots = 1
	}
	fmt.Fprintf(cmd.OutOrStdout(), "    %s%s[ %s ]\n", name, strings.Repeat(".", dots), value)
}
