package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/wudi/queconverter/cms"
)

func newPaletteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "palette FILE.cxf",
		Short: "List the spot colors of a CxF palette",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := cms.LoadSpotPalette(args[0])
			if err != nil {
				return err
			}
			m, err := a.manager()
			if err != nil {
				return err
			}
			if err := p.Resolve(m); err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tRGB\tCMYK")
			for _, c := range p.Colors {
				rgb, err := m.ToRGB(c)
				if err != nil {
					return fmt.Errorf("%s: %w", c.Name, err)
				}
				cmyk, err := m.CMYK255(c)
				if err != nil {
					return fmt.Errorf("%s: %w", c.Name, err)
				}
				hex, err := cms.RGBToHex(rgb.Values)
				if err != nil {
					return fmt.Errorf("%s: %w", c.Name, err)
				}
				fmt.Fprintf(w, "%s\t%s\t%v\n", c.Name, hex, cmyk)
			}
			return w.Flush()
		},
	}
}
