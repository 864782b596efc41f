package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"firestige.xyz/losenet/internal/app"
	"firestige.xyz/losenet/internal/config"
	"firestige.xyz/losenet/internal/core/decoder"
	"firestige.xyz/losenet/internal/link"
	_ "firestige.xyz/losenet/internal/link/afpacket"
	_ "firestige.xyz/losenet/internal/link/pcapfile"
	"firestige.xyz/losenet/internal/log"
	"firestige.xyz/losenet/internal/metrics"
	"firestige.xyz/losenet/internal/responder"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Answer ARP, UDP and TCP on the configured link",
	Long: `Run the responder in foreground.

serve will:
  1. Load configuration from --config and LOSENET_* environment variables
  2. Initialize logging and, if enabled, the metrics endpoint
  3. Open the configured link (afpacket or pcapfile)
  4. Answer frames until the link is exhausted, an application asks to stop,
     or SIGINT/SIGTERM is received`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configFile)
		if err != nil {
			return err
		}
		log.Init(&cfg.Log)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return runServe(ctx, cfg, cmd.OutOrStdout())
	},
}

// runServe opens the link, starts metrics and runs the responder until it returns.
func runServe(ctx context.Context, cfg *config.Config, out io.Writer) (err error) {
	opts, err := responderOptions(cfg)
	if err != nil {
		return err
	}

	l, err := link.Open(cfg.Link.Type, cfg.Link.Options)
	if err != nil {
		return fmt.Errorf("failed to open link: %w", err)
	}
	defer func() {
		if cerr := l.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close link: %w", cerr)
		}
	}()

	if cfg.Metrics.Enabled {
		srv := metrics.NewServer(cfg.Metrics.Listen, cfg.Metrics.Path)
		if err := srv.Start(ctx); err != nil {
			return err
		}
		defer func() {
			if serr := srv.Stop(context.Background()); serr != nil {
				log.GetLogger().WithError(serr).Warn("metrics server stop failed")
			}
		}()
	}

	stack := cfg.Stack()
	fmt.Fprintf(out, "Answering for %s (%s) on %s link\n", stack.IP, stack.MAC, cfg.Link.Type)

	r := responder.New(stack, l, opts...)
	if err := r.Run(ctx); err != nil {
		return fmt.Errorf("responder failed: %w", err)
	}

	fmt.Fprintln(out, "✓ Responder stopped")
	return nil
}

// responderOptions maps configuration onto responder options.
func responderOptions(cfg *config.Config) ([]responder.Option, error) {
	isn := responder.FixedISN(cfg.TCP.ISN)
	if cfg.TCP.RandomISN {
		isn = responder.RandomISN()
	}

	opts := []responder.Option{
		responder.WithDecoder(decoder.NewStandardDecoder(decoder.Config{
			VerifyChecksums: cfg.Decoder.VerifyChecksums,
		})),
		responder.WithWindow(cfg.TCP.Window),
		responder.WithISN(isn),
		responder.WithLimiter(responder.NewLimiter(responder.LimiterConfig{
			MaxPerIP: cfg.RateLimit.MaxPerIP,
			Window:   cfg.RateLimit.Window,
		})),
		responder.WithLinkName(cfg.Link.Type),
	}

	switch cfg.App.UDP {
	case config.UDPAppPing:
		opts = append(opts, responder.WithUDPHandler(app.Ping{}))
	case config.UDPAppEcho:
		opts = append(opts, responder.WithUDPHandler(app.Echo{}))
	}

	if cfg.App.HTTP.Enabled {
		h, err := app.LoadHTTP(cfg.App.HTTP.Page)
		if err != nil {
			return nil, err
		}
		opts = append(opts, responder.WithTCPHandler(h))
	}

	return opts, nil
}
