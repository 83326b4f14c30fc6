package cmd

import (
	"context"
	"fmt"
	"slices"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/qrscan/internal/prefs"
)

// settable lists the preferences that can be changed from the command line.
var settable = []string{prefs.KeyMax, prefs.KeySave, prefs.KeyAutoStart, prefs.KeyCamera}

var prefsCmd = &cobra.Command{
	Use:   "prefs",
	Short: "Show and change stored preferences",
	Long: `Preferences live in the configured backend (history.backend: memory,
file or redis) next to the history list.

Keys:
  max         maximum number of history entries
  save        whether detections are saved to the history
  auto-start  start the camera when qrscan runs without a command
  camera      id of the last used device

Examples:
  qrscan prefs show
  qrscan prefs set max 50
  qrscan prefs reset auto-start`,
}

var prefsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print every settable preference",
	Args:  cobra.NoArgs,
	RunE: withPrefs(func(cmd *cobra.Command, _ []string, store prefs.Store) error {
		ctx := cmd.Context()
		cfg := GetConfig()
		maxEntries, err := prefs.GetOr(ctx, store, prefs.KeyMax, cfg.History.Max)
		if err != nil {
			return err
		}
		save, err := prefs.GetOr(ctx, store, prefs.KeySave, cfg.History.Save)
		if err != nil {
			return err
		}
		auto, err := prefs.GetOr(ctx, store, prefs.KeyAutoStart, cfg.Scan.AutoStart)
		if err != nil {
			return err
		}
		camera, err := prefs.GetOr(ctx, store, prefs.KeyCamera, "")
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		_, _ = fmt.Fprintf(out, "%s: %d\n", prefs.KeyMax, maxEntries)
		_, _ = fmt.Fprintf(out, "%s: %t\n", prefs.KeySave, save)
		_, _ = fmt.Fprintf(out, "%s: %t\n", prefs.KeyAutoStart, auto)
		_, _ = fmt.Fprintf(out, "%s: %s\n", prefs.KeyCamera, camera)
		return nil
	}),
}

var prefsSetCmd = &cobra.Command{
	Use:   "set key value",
	Short: "Store a preference",
	Args:  cobra.ExactArgs(2),
	RunE: withPrefs(func(cmd *cobra.Command, args []string, store prefs.Store) error {
		key, raw := args[0], args[1]
		value, err := parsePref(key, raw)
		if err != nil {
			return err
		}
		return store.Set(cmd.Context(), map[string]any{key: value})
	}),
}

var prefsResetCmd = &cobra.Command{
	Use:   "reset keys...",
	Short: "Remove stored preferences so configured defaults apply",
	Args:  cobra.MinimumNArgs(1),
	RunE: withPrefs(func(cmd *cobra.Command, args []string, store prefs.Store) error {
		for _, k := range args {
			if !slices.Contains(settable, k) {
				return fmt.Errorf("unknown preference %q", k)
			}
		}
		return store.Remove(cmd.Context(), args...)
	}),
}

func parsePref(key, raw string) (any, error) {
	switch key {
	case prefs.KeyMax:
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("%s must be a positive integer", key)
		}
		return n, nil
	case prefs.KeySave, prefs.KeyAutoStart:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("%s must be true or false", key)
		}
		return b, nil
	case prefs.KeyCamera:
		return raw, nil
	default:
		return nil, fmt.Errorf("unknown preference %q", key)
	}
}

func withPrefs(fn func(*cobra.Command, []string, prefs.Store) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if cmd.Context() == nil {
			cmd.SetContext(context.Background())
		}
		store, err := prefs.Open(cmd.Context(), GetConfig().ToPrefsOptions())
		if err != nil {
			return err
		}
		defer closeStore(store)
		return fn(cmd, args, store)
	}
}

func init() {
	rootCmd.AddCommand(prefsCmd)
	prefsCmd.AddCommand(prefsShowCmd, prefsSetCmd, prefsResetCmd)
}
