package sniffer

import (
	"fmt"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/derktes/rfsniffer/condense"
	"github.com/derktes/rfsniffer/protocol"
	"github.com/derktes/rfsniffer/pulse"
	"github.com/derktes/rfsniffer/store"
)

type bandFlags struct {
	proto   int
	legacy  bool
	syncMin int64
	syncMax int64
}

// band picks the sync band: explicit bounds, then the legacy band, then the
// given protocol, then whichever catalog protocol t matches best.
func (f bandFlags) band(t pulse.Train) (protocol.Band, int, error) {
	switch {
	case f.syncMin != 0 || f.syncMax != 0:
		b := protocol.Band{MinMicros: f.syncMin, MaxMicros: f.syncMax}
		if !b.Valid() {
			return protocol.Band{}, 0, errors.Errorf("invalid sync band %v", b)
		}
		return b, f.proto, nil
	case f.legacy:
		return protocol.LegacyBand, f.proto, nil
	case f.proto != 0:
		b, err := protocol.SyncBandFor(f.proto)
		return b, f.proto, err
	}
	index, ok := protocol.Detect(t, protocol.DefaultSyncTolerance)
	if !ok {
		return protocol.Band{}, 0, errors.Wrap(condense.ErrNoSyncFound, "no catalog protocol matches")
	}
	b, err := protocol.SyncBandFor(index)
	return b, index, err
}

func newCondenseCommand(o *options) *cobra.Command {
	var (
		bf      bandFlags
		repeats int
		into    string
	)
	cmd := &cobra.Command{
		Use:   "condense <name>",
		Short: "Reduce a raw capture to one repeat unit and store it as <name>.short",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			dst := into
			if dst == "" {
				dst = name + ".short"
			}
			return o.withStore(cmd.Context(), func(st *store.Store) error {
				raw, err := st.Get(cmd.Context(), name)
				if err != nil {
					return err
				}
				band, index, err := bf.band(raw)
				if err != nil {
					return err
				}
				unit, err := condense.Unit(raw, band)
				if err != nil {
					return errors.WithMessagef(err, "button %q", name)
				}
				o.logger.Info("bits in signal (including sync)", "bits", float64(len(unit))/2, "band", band, "protocol", index)
				if repeats < 1 {
					repeats = condense.DefaultRepeats
				}
				return st.Set(cmd.Context(), store.Button{Name: dst, Train: unit.Repeat(repeats), Protocol: index})
			})
		},
	}
	f := cmd.Flags()
	f.IntVar(&bf.proto, "protocol", 0, "catalog protocol whose sync band to use (0 detects it)")
	f.BoolVar(&bf.legacy, "legacy-band", false, fmt.Sprintf("use the fixed %v sync band", protocol.LegacyBand))
	f.Int64Var(&bf.syncMin, "sync-min", 0, "lower sync band bound in microseconds (exclusive)")
	f.Int64Var(&bf.syncMax, "sync-max", 0, "upper sync band bound in microseconds (exclusive)")
	f.IntVar(&repeats, "repeat", condense.DefaultRepeats, "units to keep")
	f.StringVar(&into, "into", "", "destination button (default <name>.short)")
	return cmd
}

func newProtocolsCommand(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "protocols",
		Short: "List the protocol catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "index\tpulse\tsync\tzero\tone\tsync band")
			for _, i := range protocol.Indices() {
				p, _ := protocol.Lookup(i)
				fmt.Fprintf(w, "%d\t%dus\t%d/%d\t%d/%d\t%d/%d\t%v\n", i, p.PulseLength,
					p.SyncHigh, p.SyncLow, p.ZeroHigh, p.ZeroLow, p.OneHigh, p.OneLow,
					p.SyncBand(protocol.DefaultSyncTolerance))
			}
			return w.Flush()
		},
	}
}
