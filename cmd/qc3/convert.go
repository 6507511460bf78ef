package main

import (
	"fmt"
	"image"
	"os"

	"github.com/spf13/cobra"

	"github.com/wudi/queconverter/bitmap"
	"github.com/wudi/queconverter/cmm"
	"github.com/wudi/queconverter/observability"
)

type convertOptions struct {
	mode     string
	space    string
	embedded string
	display  bool
	proof    bool
}

func newConvertCmd(a *app) *cobra.Command {
	var opts convertOptions
	cmd := &cobra.Command{
		Use:   "convert [flags] INPUT OUTPUT",
		Short: "Convert an image to another mode",
		Long: `Convert the pixels of an image to another image mode. The output format
follows the extension of OUTPUT. Without --mode the input mode is kept.`,
		Example: `  qc3 convert --mode CMYK photo.png photo.tiff
  qc3 convert --profile-embedded scanner.icc --mode RGB scan.tiff scan.png
  qc3 convert --display proof.png screen.png`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.convert(cmd, args[0], args[1], opts)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.mode, "mode", "", "output image mode (1, L, RGB, RGBA, CMYK, LAB)")
	f.StringVar(&opts.space, "space", "", "color space of the output pixels, e.g. Display")
	f.StringVar(&opts.embedded, "profile-embedded", "", "ICC profile the input pixels are encoded in")
	f.BoolVar(&opts.display, "display", false, "render the image as it is shown on screen")
	f.BoolVar(&opts.proof, "proof", false, "simulate the CMYK output on screen")
	cmd.MarkFlagsMutuallyExclusive("display", "proof", "mode")
	return cmd
}

func (a *app) convert(cmd *cobra.Command, in, out string, opts convertOptions) error {
	ctx := cmd.Context()
	if _, err := bitmap.FormatFromPath(out); err != nil {
		return err
	}
	img, format, err := bitmap.Open(in)
	if err != nil {
		return fmt.Errorf("open %s: %w", in, err)
	}
	a.logger.Info("converting",
		observability.String("input", in),
		observability.String("format", string(format)),
		observability.String("mode", bitmap.ModeOf(img).String()))

	m, err := a.manager()
	if err != nil {
		return err
	}
	if opts.embedded != "" {
		profile, err := os.ReadFile(opts.embedded)
		if err != nil {
			return fmt.Errorf("read embedded profile: %w", err)
		}
		if img, err = m.AdjustEmbeddedProfile(ctx, img, profile); err != nil {
			return err
		}
	}

	var result image.Image
	switch {
	case opts.display:
		result, err = m.DisplayImage(ctx, img)
	case opts.proof:
		result, err = m.ProofBitmap(ctx, img)
	default:
		mode := bitmap.ModeOf(img)
		if opts.mode != "" {
			if mode, err = bitmap.ParseMode(opts.mode); err != nil {
				return err
			}
		}
		if opts.space == "" {
			result, err = m.TransformBitmap(ctx, img, mode)
			break
		}
		space, perr := cmm.ParseColorSpace(opts.space)
		if perr != nil {
			return perr
		}
		result, err = m.TransformBitmapSpace(ctx, img, mode, space)
	}
	if err != nil {
		return err
	}

	if a.dryRun {
		a.logger.Info("dry run, output not written", observability.String("output", out))
		return nil
	}
	if err := bitmap.Save(out, result); err != nil {
		return err
	}
	a.logger.Info("written",
		observability.String("output", out),
		observability.String("mode", bitmap.ModeOf(result).String()))
	return nil
}
