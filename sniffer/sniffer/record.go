package sniffer

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/derktes/rfsniffer/capture"
	"github.com/derktes/rfsniffer/collector/collector"
	"github.com/derktes/rfsniffer/condense"
	"github.com/derktes/rfsniffer/pulse"
	"github.com/derktes/rfsniffer/store"
)

func newRecordCommand(o *options) *cobra.Command {
	var (
		timeout   float64
		proto     int
		repeats   int
		overwrite bool
		publish   string
	)
	cmd := &cobra.Command{
		Use:   "record <name>",
		Short: "Record an RF signal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			if name == "" {
				return store.ErrEmptyName
			}
			var pub *collector.Publisher
			if publish != "" {
				var err error
				if pub, err = collector.NewPublisher(publish, o.logger); err != nil {
					return err
				}
			}
			return o.withStore(cmd.Context(), func(st *store.Store) error {
				if !overwrite {
					taken, err := st.Contains(cmd.Context(), name)
					if err != nil {
						return err
					}
					if taken {
						return errors.Wrapf(store.ErrDuplicateName, "%q (use --overwrite to re-record)", name)
					}
				}
				train, err := o.record(cmd.Context(), name, time.Duration(timeout*float64(time.Second)))
				if err != nil {
					return err
				}
				if proto > 0 {
					if train, err = condense.ForProtocol(train, proto, repeats); err != nil {
						return err
					}
					o.logger.Info("condensed", "button", name, "protocol", proto, "transitions", len(train))
				}
				b := store.Button{Name: name, Train: train, Protocol: proto}
				if overwrite {
					err = st.Set(cmd.Context(), b)
				} else {
					err = st.Create(cmd.Context(), b)
				}
				if err != nil || pub == nil {
					return err
				}
				return pub.Publish(cmd.Context(), name, proto, train)
			})
		},
	}
	f := cmd.Flags()
	f.Float64Var(&timeout, "timeout", capture.DefaultIdleTimeout.Seconds(), "stop recording after this many seconds (older releases defaulted to 0.1)")
	f.IntVar(&proto, "protocol", 0, "condense against this protocol before storing (0 stores the raw capture)")
	f.IntVar(&repeats, "repeat", condense.DefaultRepeats, "units to keep when condensing")
	f.BoolVar(&overwrite, "overwrite", false, "replace a button already stored under the name")
	f.StringVar(&publish, "publish", "", "also publish the button to the rfsniffer server at this URL")
	return cmd
}

func (o *options) record(ctx context.Context, name string, timeout time.Duration) (pulse.Train, error) {
	in, release, err := o.openInput()
	if err != nil {
		return nil, err
	}
	defer release()

	c := capture.New(capture.Config{IdleTimeout: timeout, Logger: o.logger})
	o.logger.Info("Press " + name)
	train, err := c.Capture(ctx, in)
	if err != nil {
		return nil, err
	}
	o.logger.Info("recorded", "button", name, "transitions", len(train))
	if len(train) < 2 {
		return nil, errors.Wrapf(ErrNoSignal, "%q", name)
	}
	return train, nil
}
