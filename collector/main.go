// Command collector records buttons on a serial-attached receiver and
// publishes them to an rfsniffer server.
package main

import (
	"context"
	"os"
	"os/signal"
	"time"

	"github.com/charmbracelet/log"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/derktes/rfsniffer/capture"
	"github.com/derktes/rfsniffer/collector/collector"
	"github.com/derktes/rfsniffer/condense"
	"github.com/derktes/rfsniffer/pulse"
)

func main() {
	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true})
	var (
		port, server string
		baud, proto  int
		repeats      int
		timeout      float64
	)
	cmd := &cobra.Command{
		Use:          "collector [flags] <name...>",
		Short:        "Record buttons from a serial receiver and publish them",
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := collector.OpenSerial(collector.Config{Port: port, Baud: baud, Logger: logger})
			if err != nil {
				return err
			}
			defer in.Close()
			pub, err := collector.NewPublisher(server, logger)
			if err != nil {
				return err
			}
			logger.Info("buttons will be published", "server", server)
			c := capture.New(capture.Config{
				IdleTimeout: time.Duration(timeout * float64(time.Second)),
				Logger:      logger,
			})
			for _, name := range args {
				logger.Info("Press " + name)
				train, err := c.Capture(cmd.Context(), in)
				if err != nil {
					return err
				}
				if len(train) < 2 {
					return errors.Errorf("no signal received for %q", name)
				}
				logger.Info("recorded", "button", name, "transitions", len(train))
				if proto > 0 {
					if train, err = condense.ForProtocol(train, proto, repeats); err != nil {
						return err
					}
				}
				if err := publish(cmd.Context(), pub, name, proto, train); err != nil {
					return err
				}
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&port, "serial", "", "serial port in the form /dev/xxx")
	f.IntVar(&baud, "baud", collector.DefaultBaud, "baud rate of the serial port")
	f.StringVar(&server, "server", "http://localhost:8080", "base URL of the rfsniffer server")
	f.IntVar(&proto, "protocol", 0, "condense against this protocol before publishing (0 keeps the raw capture)")
	f.IntVar(&repeats, "repeat", condense.DefaultRepeats, "units to keep when condensing")
	f.Float64Var(&timeout, "timeout", capture.DefaultIdleTimeout.Seconds(), "seconds to wait for each button (older releases defaulted to 0.1)")
	cmd.MarkFlagRequired("serial")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := cmd.ExecuteContext(ctx); err != nil {
		logger.Error(err)
		stop()
		os.Exit(1)
	}
}

func publish(ctx context.Context, pub *collector.Publisher, name string, proto int, train pulse.Train) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return pub.Publish(ctx, name, proto, train)
}
