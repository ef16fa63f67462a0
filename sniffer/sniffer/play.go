package sniffer

import (
	"github.com/spf13/cobra"

	"github.com/derktes/rfsniffer/pulse"
	"github.com/derktes/rfsniffer/store"
)

func newPlayCommand(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "play <name...>",
		Short: "Send previously recorded RF signals",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// every name is looked up before the transmitter is touched
			trains := make([]pulse.Train, len(args))
			err := o.withStore(cmd.Context(), func(st *store.Store) error {
				for i, name := range args {
					t, err := st.Get(cmd.Context(), name)
					if err != nil {
						return err
					}
					trains[i] = t
				}
				return nil
			})
			if err != nil {
				return err
			}

			out, release, err := o.openOutput()
			if err != nil {
				return err
			}
			defer release()
			r := o.replayer()
			for i, t := range trains {
				if err := r.Replay(cmd.Context(), t, out); err != nil {
					return err
				}
				o.logger.Info("played", "button", args[i], "transitions", len(t))
			}
			return nil
		},
	}
}
