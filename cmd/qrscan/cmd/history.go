package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/MeKo-Tech/qrscan/internal/history"
)

// historyCmd groups the history subcommands.
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show and manage decoded payloads",
	Long: `The history keeps decoded payloads, newest first. Each entry has a
stable id derived from its payload.

Examples:
  qrscan history list
  qrscan history copy q-99162322
  qrscan history delete q-99162322 q-1200
  qrscan history clear`,
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List history entries",
	Args:  cobra.NoArgs,
	RunE: withHistory(func(cmd *cobra.Command, _ []string, h *history.Store) error {
		format, _ := cmd.Flags().GetString("format")
		entries := h.List()
		out := cmd.OutOrStdout()

		type item struct {
			ID     string   `json:"id" yaml:"id"`
			Data   string   `json:"data" yaml:"data"`
			Symbol string   `json:"symbol" yaml:"symbol"`
			Links  []string `json:"links,omitempty" yaml:"links,omitempty"`
		}
		items := make([]item, len(entries))
		for i, e := range entries {
			items[i] = item{ID: e.ID(), Data: e.Data, Symbol: e.Symbol, Links: history.Links(e.Data)}
		}

		switch format {
		case "json":
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(items)
		case "yaml":
			return yaml.NewEncoder(out).Encode(items)
		case "", "text":
			if len(items) == 0 {
				_, _ = fmt.Fprintln(out, "History is empty")
				return nil
			}
			for _, it := range items {
				_, _ = fmt.Fprintf(out, "%s\t%s\t%s\n", it.ID, it.Symbol, it.Data)
			}
			return nil
		default:
			return fmt.Errorf("unsupported output format %q", format)
		}
	}),
}

var historyCopyCmd = &cobra.Command{
	Use:   "copy [ids...]",
	Short: "Print the payloads of the given entries (all when none given)",
	RunE: withHistory(func(cmd *cobra.Command, args []string, h *history.Store) error {
		out := h.Copy(args...)
		if out == "" {
			return nil
		}
		_, err := fmt.Fprintln(cmd.OutOrStdout(), out)
		return err
	}),
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete ids...",
	Short: "Delete entries by id",
	Args:  cobra.MinimumNArgs(1),
	RunE: withHistory(func(cmd *cobra.Command, args []string, h *history.Store) error {
		removed, err := h.Delete(cmd.Context(), args...)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d entries\n", removed)
		return nil
	}),
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every entry",
	Args:  cobra.NoArgs,
	RunE: withHistory(func(cmd *cobra.Command, _ []string, h *history.Store) error {
		if err := h.Clear(cmd.Context()); err != nil {
			return err
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "History cleared")
		return nil
	}),
}

// withHistory opens the configured history before running fn.
func withHistory(fn func(*cobra.Command, []string, *history.Store) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if cmd.Context() == nil {
			cmd.SetContext(context.Background())
		}
		a, err := newApp(cmd.Context(), GetConfig())
		if err != nil {
			return err
		}
		defer a.close()
		return fn(cmd, args, a.history)
	}
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyListCmd, historyCopyCmd, historyDeleteCmd, historyClearCmd)
	historyListCmd.Flags().StringP("format", "f", "text", "output format (text, json, yaml)")
}
