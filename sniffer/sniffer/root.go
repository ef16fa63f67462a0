// Package sniffer is the rfsniffer command tree.
package sniffer

import (
	"context"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/derktes/rfsniffer/clock"
	"github.com/derktes/rfsniffer/collector/collector"
	"github.com/derktes/rfsniffer/gpio"
	"github.com/derktes/rfsniffer/replay"
	"github.com/derktes/rfsniffer/store"
)

// ErrNoSignal means a capture ended with fewer than two samples.
var ErrNoSignal = errors.New("no signal captured")

// DBEnv overrides the default store path.
const DBEnv = "RFSNIFFER_DB"

type options struct {
	db        string
	numbering string
	chip      string
	rxpin     int
	txpin     int
	serial    string
	baud      int
	sim       bool
	verbose   bool

	logger *log.Logger

	// hardware replaces the chip the flags select; simClock times replay
	// when running with --sim.
	hardware gpio.Chip
	simClock *clock.Sim
}

// NewRootCommand builds the rfsniffer command tree.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&options{})
}

func newRootCommand(o *options) *cobra.Command {
	root := &cobra.Command{
		Use:           "rfsniffer",
		Short:         "Record and replay 433MHz remote control buttons",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			o.logger = log.NewWithOptions(cmd.ErrOrStderr(), log.Options{ReportTimestamp: true})
			if o.verbose {
				o.logger.SetLevel(log.DebugLevel)
			}
			_, err := gpio.ParseNumbering(o.numbering)
			return err
		},
	}

	defaultDB := os.Getenv(DBEnv)
	if defaultDB == "" {
		defaultDB = store.DefaultPath()
	}
	f := root.PersistentFlags()
	f.StringVarP(&o.db, "db", "b", defaultDB, "button store file (env "+DBEnv+")")
	f.StringVar(&o.numbering, "numbering", "board", "pin numbering: board or bcm")
	f.IntVar(&o.rxpin, "rxpin", 0, "pin the RF receiver is attached to (board 13, bcm 27 when unset)")
	f.IntVar(&o.txpin, "txpin", 0, "pin the RF transmitter is attached to (board 11, bcm 17 when unset)")
	f.StringVar(&o.chip, "chip", gpio.DefaultChip, "gpio character device")
	f.StringVar(&o.serial, "serial", "", "read receiver edges from a serial port instead of a gpio pin")
	f.IntVar(&o.baud, "baud", collector.DefaultBaud, "baud rate of --serial")
	f.BoolVar(&o.sim, "sim", false, "use a virtual chip instead of hardware")
	f.BoolVarP(&o.verbose, "verbose", "v", false, "verbose output")

	root.AddCommand(
		newRecordCommand(o),
		newPlayCommand(o),
		newDumpCommand(o),
		newCopyCommand(o),
		newRenameCommand(o),
		newDeleteCommand(o),
		newCondenseCommand(o),
		newProtocolsCommand(o),
		newServeCommand(o),
	)
	return root
}

func (o *options) gpioConfig() gpio.Config {
	n, _ := gpio.ParseNumbering(o.numbering)
	return gpio.Config{Chip: o.chip, Numbering: n}
}

func (o *options) pins() (rx, tx int) {
	rx, tx = o.gpioConfig().DefaultPins()
	if o.rxpin != 0 {
		rx = o.rxpin
	}
	if o.txpin != 0 {
		tx = o.txpin
	}
	return rx, tx
}

// openChip returns the chip to use and a func releasing every pin taken
// from it.
func (o *options) openChip() (gpio.Chip, func(), error) {
	if o.hardware != nil {
		return o.hardware, func() {}, nil
	}
	if o.sim {
		o.logger.Debug("using virtual chip")
		chip := gpio.NewVirtual(o.simulatedClock())
		return chip, func() { chip.Close() }, nil
	}
	chip, err := gpio.Open(o.gpioConfig())
	if err != nil {
		return nil, nil, err
	}
	return chip, func() {
		if err := chip.Close(); err != nil {
			o.logger.Warn("release pins", "err", err)
		}
	}, nil
}

func (o *options) simulatedClock() *clock.Sim {
	if o.simClock == nil {
		o.simClock = clock.NewSim(time.Now())
	}
	return o.simClock
}

// openInput returns the receiver: the serial edge source when --serial is
// set, the rx pin otherwise.
func (o *options) openInput() (gpio.Input, func(), error) {
	if o.serial != "" {
		in, err := collector.OpenSerial(collector.Config{Port: o.serial, Baud: o.baud, Logger: o.logger})
		if err != nil {
			return nil, nil, err
		}
		return in, func() { in.Close() }, nil
	}
	chip, release, err := o.openChip()
	if err != nil {
		return nil, nil, err
	}
	rx, _ := o.pins()
	in, err := chip.Input(rx, gpio.PullDown)
	if err != nil {
		release()
		return nil, nil, err
	}
	return in, release, nil
}

// openOutput returns the transmitter pin, driven low.
func (o *options) openOutput() (gpio.Output, func(), error) {
	chip, release, err := o.openChip()
	if err != nil {
		return nil, nil, err
	}
	_, tx := o.pins()
	out, err := chip.Output(tx, false)
	if err != nil {
		release()
		return nil, nil, err
	}
	return out, release, nil
}

func (o *options) replayer() *replay.Replayer {
	var w replay.Waiter = replay.Spin{}
	if o.sim || o.hardware != nil {
		w = replay.Simulated{Clock: o.simulatedClock()}
	}
	return replay.New(replay.Config{Waiter: w, Logger: o.logger})
}

func (o *options) withStore(ctx context.Context, fn func(*store.Store) error) error {
	return store.With(ctx, o.db, fn)
}
