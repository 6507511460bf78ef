package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/wudi/queconverter/cms"
	"github.com/wudi/queconverter/observability"
)

func newProfilesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profiles",
		Short: "Inspect and install color profiles",
	}
	cmd.AddCommand(newProfilesListCmd(a), newProfilesSaveCmd(a))
	return cmd
}

func newProfilesListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the profile in use for each color space",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.manager()
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "SPACE\tPROFILE\tFINGERPRINT")
			for _, space := range cms.ProfileSpaces {
				sum, ok := m.ProfileFingerprint(space)
				if !ok {
					fmt.Fprintf(w, "%v\t-\t-\n", space)
					continue
				}
				fmt.Fprintf(w, "%v\t%s\t%s\n", space, m.ProfileName(space), sum[:16])
			}
			return w.Flush()
		},
	}
}

func newProfilesSaveCmd(a *app) *cobra.Command {
	var dir string
	var overwrite bool
	cmd := &cobra.Command{
		Use:   "save",
		Short: "Write the built-in profiles to disk",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if dir == "" {
				dir = a.cfg.ProfilesDir()
			}
			if a.dryRun {
				a.logger.Info("dry run, profiles not written", observability.String("dir", dir))
				return nil
			}
			m, err := a.manager()
			if err != nil {
				return err
			}
			written, err := m.SaveBuiltinProfiles(dir, overwrite)
			if err != nil {
				return err
			}
			for _, path := range written {
				fmt.Fprintln(cmd.OutOrStdout(), path)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "target directory (default: the profiles directory)")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "replace existing files")
	return cmd
}
