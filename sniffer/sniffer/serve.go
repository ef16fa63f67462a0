package sniffer

import (
	"context"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/derktes/rfsniffer/gpio"
	"github.com/derktes/rfsniffer/pulse"
	"github.com/derktes/rfsniffer/server/server"
	"github.com/derktes/rfsniffer/store"
)

func newServeCommand(o *options) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the button store over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var transmit server.TransmitFunc
			out, release, err := o.openOutput()
			switch {
			case errors.Is(err, gpio.ErrHardwareUnavailable):
				o.logger.Warn("no transmitter, play requests will be refused", "err", err)
			case err != nil:
				return err
			default:
				defer release()
				r := o.replayer()
				transmit = func(ctx context.Context, t pulse.Train) error {
					return r.Replay(ctx, t, out)
				}
			}
			return o.withStore(cmd.Context(), func(st *store.Store) error {
				return server.New(server.Config{
					Addr:     addr,
					Store:    st,
					Transmit: transmit,
					Logger:   o.logger,
				}).Serve(cmd.Context())
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", server.DefaultAddr, "address to listen on")
	return cmd
}
