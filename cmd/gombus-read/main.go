package main

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/d21d3q/gombus/internal/config"
	"github.com/d21d3q/gombus/internal/manifest"
	"github.com/d21d3q/gombus/pkg/gombus"
)

var (
	rootCmd = &cobra.Command{
		Use:   "gombus-read",
		Short: "Read wired M-Bus meters",
		Long:  "gombus-read talks to M-Bus metering devices over a serial port or a TCP gateway using the gombus library.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load(configFile)
			if err != nil {
				return err
			}
			cfg = loaded
			if url == "" {
				url = cfg.URL
			}
			if url == "" {
				return fmt.Errorf("no connection URL: pass --url or set it in the config file")
			}
			level, err := logrus.ParseLevel(cfg.Log.Level)
			if err != nil {
				return fmt.Errorf("invalid log level %q: %w", cfg.Log.Level, err)
			}
			logrus.SetLevel(level)
			return nil
		},
	}

	readCmd = &cobra.Command{
		Use:   "read",
		Short: "Reset a slave and read all of its records",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(ctx context.Context, client *gombus.Client) error {
				result, err := client.ReadRecords(ctx, address)
				if err != nil {
					return err
				}
				fmt.Println(result.String())
				return nil
			})
		},
	}

	resetCmd = &cobra.Command{
		Use:   "reset",
		Short: "Send a link reset (SND_NKE) to a slave",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(ctx context.Context, client *gombus.Client) error {
				if err := client.Reset(ctx, address); err != nil {
					return err
				}
				logrus.WithField("address", address).Info("slave acknowledged reset")
				return nil
			})
		},
	}

	scanCmd = &cobra.Command{
		Use:   "scan",
		Short: "Probe primary addresses for responding slaves",
		RunE: func(cmd *cobra.Command, args []string) error {
			var labels *manifest.Manifest
			if manifestFile != "" {
				m, err := manifest.Load(manifestFile)
				if err != nil {
					return err
				}
				labels = m
			}
			return withClient(func(ctx context.Context, client *gombus.Client) error {
				found := 0
				for addr := scanFirst; addr <= scanLast; addr++ {
					if err := ctx.Err(); err != nil {
						return err
					}
					if err := client.Reset(ctx, addr); err != nil {
						logrus.WithField("address", addr).Debug("no response")
						continue
					}
					found++
					entry := logrus.WithField("address", addr)
					if labels != nil {
						if label, ok := labels.Label(addr); ok {
							entry = entry.WithField("label", label)
						}
					}
					entry.Info("slave responded")
				}
				logrus.WithField("found", found).Info("scan finished")
				return nil
			})
		},
	}

	cfg *config.Config

	configFile   string
	url          string
	address      int
	manifestFile string
	scanFirst    int
	scanLast     int
	timeout      time.Duration
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "configuration file (default: /etc/gombus, ~/.gombus, .)")
	rootCmd.PersistentFlags().StringVar(&url, "url", "", "connection URL: serial device path or socket://host:port")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "overall operation timeout")

	readCmd.Flags().IntVarP(&address, "address", "a", 0, "primary address of the slave (1..250)")
	readCmd.MarkFlagRequired("address")
	resetCmd.Flags().IntVarP(&address, "address", "a", 0, "primary address of the slave (1..250)")
	resetCmd.MarkFlagRequired("address")
	scanCmd.Flags().IntVar(&scanFirst, "first", 1, "first address to probe")
	scanCmd.Flags().IntVar(&scanLast, "last", 250, "last address to probe")
	scanCmd.Flags().StringVar(&manifestFile, "manifest", "", "bus manifest labelling known addresses")

	rootCmd.AddCommand(readCmd, resetCmd, scanCmd)
}

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		logrus.Fatal(err)
	}
}

func withClient(fn func(context.Context, *gombus.Client) error) error {
	client, err := gombus.Dial(url,
		gombus.WithBaudRate(cfg.Serial.BaudRate),
		gombus.WithParity(cfg.Serial.Parity),
		gombus.WithTransmissionMultiplier(cfg.Serial.Multiplier),
		gombus.WithMaxRetries(cfg.Retry.MaxRetries),
		gombus.WithRetryDelay(cfg.Retry.RetryDelay),
		gombus.WithBaseTimeout(cfg.Retry.BaseTimeout),
		gombus.WithLogger(logrus.StandardLogger()),
	)
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return fn(ctx, client)
}
