package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/qrscan/internal/dedup"
	"github.com/MeKo-Tech/qrscan/internal/detect"
	"github.com/MeKo-Tech/qrscan/internal/media"
	"github.com/MeKo-Tech/qrscan/internal/prefs"
	"github.com/MeKo-Tech/qrscan/internal/scan"
)

// videoCmd represents the video command.
var videoCmd = &cobra.Command{
	Use:   "video [device]",
	Short: "Continuously scan a frame source until a code is found",
	Long: `Poll a frame source and scan every frame until a code is detected
or the command is interrupted.

A device is a configured media.devices entry (by id), an animated GIF, a
directory of frame images, or a single image. Without an argument the last
used device, then the configured camera index, is used.

Examples:
  qrscan video --list
  qrscan video frames/
  qrscan video capture.gif --keep-going --timeout 30s`,
	Args: cobra.MaximumNArgs(1),
	RunE: runVideo,
}

func runVideo(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	devices := media.Devices(cfg.Media.Devices)
	if list, _ := cmd.Flags().GetBool("list"); list {
		for i, d := range devices {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\t%s\t%s\n", i, d.ID, d.Kind, d.Name)
		}
		return nil
	}

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	opts := a.opts
	if cmd.Flags().Changed("keep-going") {
		keep, _ := cmd.Flags().GetBool("keep-going")
		opts.StopOnDetect = !keep
	}
	if cmd.Flags().Changed("interval") {
		opts.Interval, _ = cmd.Flags().GetDuration("interval")
	}
	a.opts = opts

	runner, err := a.runner(ctx)
	if err != nil {
		return err
	}
	defer runner.Close()

	stopNotices := runner.Notifier().Subscribe(func(n scan.Notice) {
		if n.Message != "" {
			_, _ = fmt.Fprintln(cmd.ErrOrStderr(), n.Message)
		}
	})
	defer stopNotices()
	printed := dedup.New(dedup.PerSession)
	stopDetections := runner.Scanner().Subscribe(func(d detect.Detection) {
		if printed.Observe(d.Payload) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Type: %s\n%s\n", d.Symbol, d.Payload)
		}
	})
	defer stopDetections()

	dev, err := pickDevice(ctx, a, devices, args)
	if err != nil {
		return reportAcquisition(runner, err)
	}

	runner.Notifier().Notify(scan.PreparingMessage, false)
	session, err := runner.OpenVideo(ctx, dev)
	if err != nil {
		return err
	}
	if err := a.prefs.Set(ctx, map[string]any{prefs.KeyCamera: dev.ID}); err != nil {
		slog.Warn("Failed to remember camera", "error", err)
	}

	timeout, _ := cmd.Flags().GetDuration("timeout")
	var deadline <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		deadline = t.C
	}

	select {
	case <-session.Done():
	case <-ctx.Done():
		session.Stop()
	case <-deadline:
		session.Stop()
		return fmt.Errorf("no code found within %s", timeout)
	}
	return nil
}

// pickDevice resolves the device argument, the remembered camera or the
// configured camera index, in that order. An argument that names no
// configured device is opened as a path.
func pickDevice(ctx context.Context, a *app, devices []media.Device, args []string) (media.Device, error) {
	if len(args) == 1 {
		for _, d := range devices {
			if d.ID == args[0] {
				return d, nil
			}
		}
		return media.Device{ID: args[0], Name: args[0], Path: args[0]}, nil
	}
	remembered, err := prefs.GetOr(ctx, a.prefs, prefs.KeyCamera, "")
	if err != nil {
		slog.Debug("Failed to read remembered camera", "error", err)
	}
	return media.Select(devices, remembered, a.cfg.Media.Camera)
}

func reportAcquisition(runner *scan.Runner, err error) error {
	var ae *media.AcquisitionError
	if errors.As(err, &ae) && ae.Message != "" {
		runner.Notifier().Notify(ae.Message, true)
	}
	return err
}

func init() {
	rootCmd.AddCommand(videoCmd)
	videoCmd.Flags().Bool("list", false, "list configured devices and exit")
	videoCmd.Flags().Bool("keep-going", false, "keep scanning after the first detection")
	videoCmd.Flags().Duration("interval", 200*time.Millisecond, "polling interval")
	videoCmd.Flags().Duration("timeout", 0, "give up after this long (0 waits until interrupted)")
}
