package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/normanking/cortexface/internal/avatar"
	"github.com/normanking/cortexface/internal/canvas"
	"github.com/normanking/cortexface/internal/raster"
)

func newSnapshotCmd(configPath *string) *cobra.Command {
	var (
		out    string
		frames int
		width  int
		height int
		mouth  float64
	)

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Render frames headless and save the last one as PNG",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, cfg, logger, err := setup(*configPath)
			if err != nil {
				return err
			}
			defer logger.Close()

			flags := cmd.Flags()
			if !flags.Changed("out") {
				out = cfg.Snapshot.Out
			}
			if !flags.Changed("frames") {
				frames = cfg.Snapshot.Frames
			}
			if !flags.Changed("width") {
				width = cfg.Snapshot.Width
			}
			if !flags.Changed("height") {
				height = cfg.Snapshot.Height
			}
			if frames <= 0 || width <= 0 || height <= 0 {
				return fmt.Errorf("snapshot needs positive frames and size, got %d frames at %dx%d", frames, width, height)
			}

			face, err := avatar.New(cfg, logger.Component("avatar"))
			if err != nil {
				return err
			}

			surface := raster.NewSurface(width, height)
			defer surface.Close()
			face.OnResize(surface.Size())
			if flags.Changed("mouth") {
				face.SetMouthOpen(mouth)
			}

			var dl *canvas.DisplayList
			for i := 0; i < frames; i++ {
				elapsed := cfg.Avatar.FrameInterval
				if i == 0 {
					elapsed = 0
				}
				dl = face.Frame(elapsed)
			}

			if err := surface.Present(dl); err != nil {
				return err
			}
			if err := surface.SavePNG(out); err != nil {
				return fmt.Errorf("save %s: %w", out, err)
			}

			simulated := time.Duration(frames-1) * cfg.Avatar.FrameInterval
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%dx%d, %d frames, %v simulated)\n", out, width, height, frames, simulated)
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "face.png", "output PNG path")
	cmd.Flags().IntVarP(&frames, "frames", "n", 1, "frames to simulate before capturing")
	cmd.Flags().IntVar(&width, "width", 320, "image width")
	cmd.Flags().IntVar(&height, "height", 240, "image height")
	cmd.Flags().Float64Var(&mouth, "mouth", 0, "mouth opening to apply, 0 to 1")
	return cmd
}
