package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cast"
	"github.com/spf13/cobra"

	"github.com/wudi/queconverter/cmm"
	"github.com/wudi/queconverter/cms"
)

func newColorCmd(a *app) *cobra.Command {
	var from, to string
	cmd := &cobra.Command{
		Use:   "color [flags] VALUES|#hex",
		Short: "Convert a single color",
		Long: `Convert a single color between color spaces. Values are normalized to
0..1 and may be separated by spaces or commas. A #rrggbb argument is an RGB
color.`,
		Example: `  qc3 color --to CMYK '#ff8000'
  qc3 color --from CMYK --to RGB 0 0.5 1 0`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := parseColor(from, args)
			if err != nil {
				return err
			}
			target, err := cmm.ParseColorSpace(to)
			if err != nil {
				return err
			}
			m, err := a.manager()
			if err != nil {
				return err
			}
			out, err := m.ToSpace(c, target)
			if err != nil {
				return err
			}
			printColor(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "RGB", "color space of the input values")
	cmd.Flags().StringVar(&to, "to", "RGB", "color space to convert to")
	return cmd
}

func newDisplayCmd(a *app) *cobra.Command {
	var from string
	cmd := &cobra.Command{
		Use:   "display [flags] VALUES|#hex",
		Short: "Show the on-screen RGB of a color",
		Long: `Print the RGB a color is displayed with, honoring the proofing and
display profile preferences.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := parseColor(from, args)
			if err != nil {
				return err
			}
			m, err := a.manager()
			if err != nil {
				return err
			}
			rgb, err := m.DisplayColor(c)
			if err != nil {
				return err
			}
			printColor(cmd.OutOrStdout(), cms.NewColor(cmm.RGB, rgb...))
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "RGB", "color space of the input values")
	return cmd
}

// parseColor reads a color in space from command line arguments.
func parseColor(space string, args []string) (cms.Color, error) {
	joined := strings.TrimSpace(strings.Join(args, " "))
	if strings.HasPrefix(joined, "#") {
		rgb, err := cms.HexToRGB(joined)
		if err != nil {
			return cms.Color{}, err
		}
		return cms.NewColor(cmm.RGB, rgb...), nil
	}

	s, err := cmm.ParseColorSpace(space)
	if err != nil {
		return cms.Color{}, err
	}
	fields := strings.FieldsFunc(joined, func(r rune) bool { return r == ',' || r == ' ' })
	values := make([]float64, len(fields))
	for i, f := range fields {
		if values[i], err = cast.ToFloat64E(f); err != nil {
			return cms.Color{}, fmt.Errorf("bad color value %q", f)
		}
	}
	c := cms.NewColor(s, values...)
	if err := c.Validate(); err != nil {
		return cms.Color{}, err
	}
	return c, nil
}

func printColor(w io.Writer, c cms.Color) {
	parts := make([]string, len(c.Values))
	for i, v := range c.Values {
		parts[i] = fmt.Sprintf("%.4f", v)
	}
	fmt.Fprintf(w, "%v %s", c.Space, strings.Join(parts, " "))
	if c.Space == cmm.RGB {
		if hex, err := cms.RGBToHex(c.Values); err == nil {
			fmt.Fprintf(w, " %s", hex)
		}
	}
	fmt.Fprintln(w)
}
