package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"chat-hub/internal/config"
	"chat-hub/internal/logging"
)

var version = "dev"

type flagValues struct {
	port           string
	historyCap     int
	historyReplay  int
	typingTimeout  time.Duration
	offlineGrace   time.Duration
	allowedOrigins string
	amqpURL        string
	dbDSN          string
	debugRoutes    bool
}

func newRootCmd() *cobra.Command {
	var flags flagValues

	serve := func(cmd *cobra.Command, _ []string) error {
		cfg, logger := bootstrap(os.Stdout)
		cfg = applyFlags(cmd, cfg, flags)
		return runServer(cmd.Context(), cfg, logger)
	}

	root := &cobra.Command{
		Use:           "chat-hub",
		Short:         "Real-time presence and broadcast chat hub",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serve,
	}
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the websocket hub and HTTP endpoints",
		RunE:  serve,
	}
	for _, c := range []*cobra.Command{root, serveCmd} {
		f := c.Flags()
		f.StringVar(&flags.port, "port", "", "HTTP listen port (PORT)")
		f.IntVar(&flags.historyCap, "history-cap", 0, "messages kept in memory (HISTORY_CAP)")
		f.IntVar(&flags.historyReplay, "history-replay", 0, "messages replayed on join (HISTORY_REPLAY)")
		f.DurationVar(&flags.typingTimeout, "typing-timeout", 0, "typing state lifetime (TYPING_TIMEOUT)")
		f.DurationVar(&flags.offlineGrace, "offline-grace", 0, "how long offline users are kept (OFFLINE_GRACE)")
		f.StringVar(&flags.allowedOrigins, "allowed-origins", "", "comma separated websocket origins (ALLOWED_ORIGINS)")
		f.StringVar(&flags.amqpURL, "amqp-url", "", "RabbitMQ URL (AMQP_URL)")
		f.StringVar(&flags.dbDSN, "db-dsn", "", "Postgres DSN for the message archive (DB_DSN)")
		f.BoolVar(&flags.debugRoutes, "debug-routes", false, "enable /debug routes (DEBUG_ROUTES)")
	}
	root.AddCommand(serveCmd, &cobra.Command{
		Use:   "version",
		Short: "Print the chat-hub version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "chat-hub %s\n", version)
		},
	})
	return root
}

// bootstrap loads .env (or envFiles) first so LOG_FORMAT and LOG_LEVEL set
// there reach the logger, then reads the config from the environment.
func bootstrap(w io.Writer, envFiles ...string) (config.Config, *slog.Logger) {
	envErr := config.LoadDotEnv(envFiles...)
	logger := logging.NewWithWriter(w, os.Getenv("LOG_FORMAT"), os.Getenv("LOG_LEVEL"))
	if envErr != nil {
		logger.Debug("no .env file found, relying on environment variables")
	}
	return config.FromEnv(os.LookupEnv), logger
}

// applyFlags overlays flags set on the command line onto cfg.
func applyFlags(cmd *cobra.Command, cfg config.Config, flags flagValues) config.Config {
	set := cmd.Flags().Changed
	if set("port") {
		cfg.Port = flags.port
	}
	if set("history-cap") {
		cfg.HistoryCap = flags.historyCap
	}
	if set("history-replay") {
		cfg.HistoryReplay = flags.historyReplay
	}
	if set("typing-timeout") {
		cfg.TypingTimeout = flags.typingTimeout
	}
	if set("offline-grace") {
		cfg.OfflineGrace = flags.offlineGrace
	}
	if set("allowed-origins") {
		cfg.AllowedOrigins = config.ParseOrigins(flags.allowedOrigins)
	}
	if set("amqp-url") {
		cfg.AMQPURL = flags.amqpURL
	}
	if set("db-dsn") {
		cfg.DBDSN = flags.dbDSN
	}
	if set("debug-routes") {
		cfg.DebugRoutes = flags.debugRoutes
	}
	return cfg.Sanitize()
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "chat-hub:", err)
		os.Exit(1)
	}
}
