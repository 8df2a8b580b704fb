// Package cli implements the docky CLI commands.
package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rcliao/docky/internal/config"
)

var (
	configPath string
	dbPath     string
	formatFlag string
	logLevel   string
	logFormat  string

	cfg    *config.Config
	logger = zap.NewNop()
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "docky",
	Short: "Ask questions about a PDF with conversation memory",
	Long: "Ingest a PDF into a local SQLite collection and ask questions about it. " +
		"Recent turns are kept verbatim; older ones are folded into a running summary.",
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: ./docky.yaml or ~/.config/docky/docky.yaml)")
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Database path (default: $DOCKY_DB_PATH or ~/.docky/docky.db)")
	RootCmd.PersistentFlags().StringVarP(&formatFlag, "format", "f", "json", "Output format: json or text")
	RootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	RootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format: console or json")
}

func setup(cmd *cobra.Command, args []string) error {
	c, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if dbPath != "" {
		c.DBPath = dbPath
	}
	if logLevel != "" {
		c.Log.Level = logLevel
	}
	if logFormat != "" {
		c.Log.Format = logFormat
	}
	if err := c.Validate(); err != nil {
		return err
	}
	if formatFlag != "json" && formatFlag != "text" {
		return fmt.Errorf("unknown format %q (use json or text)", formatFlag)
	}

	l, err := initLogger(c.Log)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	cfg, logger = c, l
	return nil
}

// initLogger builds a zap logger writing to stderr so stdout stays clean for
// command output.
func initLogger(lc config.LogConfig) (*zap.Logger, error) {
	var zc zap.Config
	if lc.Format == "json" {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
		zc.DisableStacktrace = true
	}

	level, err := zap.ParseAtomicLevel(lc.Level)
	if err != nil {
		level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	zc.Level = level
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}

	return zc.Build()
}

func textOutput() bool { return formatFlag == "text" }

func printJSON(v interface{}) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
}

func exitErr(msg string, err error) {
	logger.Sync()
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
