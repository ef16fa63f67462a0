package sniffer

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/derktes/rfsniffer/protocol"
	"github.com/derktes/rfsniffer/pulse"
	"github.com/derktes/rfsniffer/store"
)

func newDumpCommand(o *options) *cobra.Command {
	var (
		format string
		decode bool
	)
	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Dump the recorded RF signals (timings with --verbose)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "text" && format != "csv" {
				return errors.Errorf("unknown format %q (want text or csv)", format)
			}
			return o.withStore(cmd.Context(), func(st *store.Store) error {
				names, err := st.Keys(cmd.Context())
				if err != nil {
					return err
				}
				buttons := make([]store.Button, 0, len(names))
				for _, name := range names {
					b, err := st.Lookup(cmd.Context(), name)
					if err != nil {
						return err
					}
					buttons = append(buttons, b)
				}
				if format == "csv" {
					return dumpCSV(cmd.OutOrStdout(), buttons)
				}
				dumpText(cmd.OutOrStdout(), buttons, o.verbose, decode)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&format, "format", "text", "output format: text or csv")
	cmd.Flags().BoolVar(&decode, "decode", false, "classify each button against the protocol catalog")
	return cmd
}

func dumpText(w io.Writer, buttons []store.Button, verbose, decode bool) {
	for _, b := range buttons {
		fmt.Fprintln(w, b.Name)
		if verbose {
			fmt.Fprintln(w, "timings:")
			for _, s := range b.Train {
				fmt.Fprintf(w, "%.0f,", s.Duration*1e6)
			}
			fmt.Fprintln(w, "\nhigh/low:")
			for _, s := range b.Train {
				fmt.Fprintf(w, "%d,", pulse.LevelBit(s.Level))
			}
			fmt.Fprint(w, "\n\n")
		}
		if decode {
			dumpDecoded(w, b)
		}
	}
}

func dumpDecoded(w io.Writer, b store.Button) {
	index := b.Protocol
	if index == 0 {
		var ok bool
		if index, ok = protocol.Detect(b.Train, protocol.DefaultSyncTolerance); !ok {
			fmt.Fprintln(w, "protocol: unknown")
			return
		}
	}
	p, err := protocol.Lookup(index)
	if err != nil {
		fmt.Fprintf(w, "protocol: %v\n", err)
		return
	}
	fmt.Fprintf(w, "protocol: %d (%s)\n", index, p)
	fmt.Fprintf(w, "symbols: %s\n", protocol.Symbols(protocol.Decode(b.Train, p, protocol.DefaultSymbolTolerance)))
}

func dumpCSV(w io.Writer, buttons []store.Button) error {
	out := csv.NewWriter(w)
	if err := out.Write([]string{"button", "index", "micros", "level"}); err != nil {
		return err
	}
	for _, b := range buttons {
		for i, s := range b.Train {
			record := []string{
				b.Name,
				strconv.Itoa(i),
				strconv.FormatInt(s.Micros(), 10),
				strconv.Itoa(pulse.LevelBit(s.Level)),
			}
			if err := out.Write(record); err != nil {
				return err
			}
		}
	}
	out.Flush()
	return out.Error()
}
