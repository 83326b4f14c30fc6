package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/MeKo-Tech/qrscan/internal/config"
	"github.com/MeKo-Tech/qrscan/internal/prefs"
	"github.com/MeKo-Tech/qrscan/internal/version"
)

var (
	// Global configuration loader.
	configLoader *config.Loader
	// Global configuration.
	globalConfig *config.Config
	// Configuration file path.
	cfgFile string
	// Rotating log file, if one is configured.
	logFile *lumberjack.Logger
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "qrscan",
	Short: "Scan QR codes and barcodes in images, PDFs and video",
	Long: `qrscan decodes QR codes and barcodes from still images, frame sequences
and PDF documents, keeps a history of decoded payloads and serves the same
scanner over HTTP and WebSocket.

This tool provides:
- QR Code, EAN, UPC, Code 39/128, ITF and PDF417 decoding
- Still images from files, URLs or stdin
- Frame sequences (animated GIF, frame directories) with continuous scanning
- Detection overlays and a persistent history
- Both CLI and server modes

Examples:
  qrscan image code.png
  qrscan video --device frames/
  qrscan pdf invoice.pdf --format json
  qrscan serve --port 8080`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		v, _ := cmd.PersistentFlags().GetBool("version")
		if v {
			ver, commit, date := version.Info()
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "qrscan version %s\n", ver)
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Commit: %s\n", commit)
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Date: %s\n", date)
			return nil
		}
		if autoStart(cmd.Context()) {
			return runVideo(cmd, nil)
		}
		return cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	closeLogFile()
	if err != nil {
		os.Exit(1)
	}
}

// GetRootCommand returns the root command for testing purposes.
// This allows tests to execute commands without calling os.Exit().
func GetRootCommand() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is search in ., $HOME, $HOME/.config/qrscan, /etc/qrscan)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output (equivalent to --log-level=debug)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-file", "", "also write logs to this file, rotated by size")
	rootCmd.PersistentFlags().Bool("version", false, "print version information and exit")

	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log_file", rootCmd.PersistentFlags().Lookup("log-file"))

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if err := initConfig(); err != nil {
			return err
		}
		setupLogging(globalConfig, cmd.ErrOrStderr())
		return nil
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() error {
	configLoader = config.NewLoader()

	var err error
	if cfgFile != "" {
		globalConfig, err = configLoader.LoadWithFile(cfgFile)
	} else {
		globalConfig, err = configLoader.Load()
	}
	if err != nil {
		return fmt.Errorf("error loading configuration: %w", err)
	}
	return nil
}

func setupLogging(cfg *config.Config, stderr io.Writer) {
	var logLevel slog.Level
	if cfg.Verbose {
		logLevel = slog.LevelDebug
	} else {
		switch cfg.LogLevel {
		case "debug":
			logLevel = slog.LevelDebug
		case "warn":
			logLevel = slog.LevelWarn
		case "error":
			logLevel = slog.LevelError
		default:
			logLevel = slog.LevelInfo
		}
	}

	var out io.Writer = stderr
	closeLogFile()
	if cfg.LogFile != "" {
		logFile = &lumberjack.Logger{
			Filename:   cfg.LogFile,
			LocalTime:  true,
			Compress:   true,
			MaxSize:    10,
			MaxAge:     7,
			MaxBackups: 3,
		}
		out = io.MultiWriter(stderr, logFile)
	}

	logger := slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)
}

func closeLogFile() {
	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}
}

// GetConfig returns the global configuration.
func GetConfig() *config.Config {
	if globalConfig == nil {
		if err := initConfig(); err != nil {
			fmt.Fprintln(os.Stderr, err)
			d := config.DefaultConfig()
			return &d
		}
	}
	return globalConfig
}

// autoStart reports whether the stored auto-start preference (or the
// scan.auto_start setting when none is stored) asks for the camera to start
// when qrscan runs without a command.
func autoStart(ctx context.Context) bool {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := GetConfig()
	store, err := prefs.Open(ctx, cfg.ToPrefsOptions())
	if err != nil {
		return cfg.Scan.AutoStart
	}
	defer closeStore(store)
	on, err := prefs.GetOr(ctx, store, prefs.KeyAutoStart, cfg.Scan.AutoStart)
	return err == nil && on
}

func closeStore(s prefs.Store) {
	if c, ok := s.(io.Closer); ok {
		_ = c.Close()
	}
}
