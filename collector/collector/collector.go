// Package collector reads receiver edges forwarded over a serial line by a
// microcontroller and publishes recorded buttons to a remote server.
package collector

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/pkg/errors"
	"github.com/tarm/serial"

	"github.com/derktes/rfsniffer/gpio"
)

// DefaultBaud is the rate the edge forwarding firmware runs at.
const DefaultBaud = 115200

type Config struct {
	Port   string
	Baud   int
	Logger *log.Logger
}

// edgeLine is one edge as the firmware prints it. Micros is the board's
// micros() counter, which wraps at 2^32.
type edgeLine struct {
	Level  *int    `json:"level"`
	Micros *uint32 `json:"micros"`
}

// SerialInput is a gpio.Input fed by JSON edge lines. Edge stamps come from
// the board's clock.
type SerialInput struct {
	port   io.ReadCloser
	logger *log.Logger
	edges  chan gpio.Edge
	done   chan struct{}
	once   sync.Once

	mu    sync.Mutex
	level bool
	err   error
}

// OpenSerial opens the serial port and starts decoding edge lines.
func OpenSerial(cfg Config) (*SerialInput, error) {
	if cfg.Port == "" {
		return nil, errors.New("serial port not specified")
	}
	if cfg.Baud <= 0 {
		cfg.Baud = DefaultBaud
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	if _, err := os.Stat(cfg.Port); err != nil {
		return nil, errors.Wrap(err, "check serial port")
	}
	port, err := serial.OpenPort(&serial.Config{Name: cfg.Port, Baud: cfg.Baud})
	if err != nil {
		return nil, errors.Wrapf(err, "open serial port %s", cfg.Port)
	}
	cfg.Logger.Info("opened serial port", "port", cfg.Port, "baud", cfg.Baud)
	return newInput(port, cfg.Logger), nil
}

func newInput(port io.ReadCloser, logger *log.Logger) *SerialInput {
	in := &SerialInput{
		port:   port,
		logger: logger,
		edges:  make(chan gpio.Edge, 4096),
		done:   make(chan struct{}),
	}
	go in.read()
	return in
}

func (in *SerialInput) read() {
	defer close(in.edges)
	var (
		started bool
		prev    uint32
		elapsed time.Duration
	)
	scanner := bufio.NewScanner(in.port)
	for scanner.Scan() {
		var line edgeLine
		if err := json.Unmarshal(scanner.Bytes(), &line); err != nil || line.Level == nil || line.Micros == nil {
			in.logger.Warn("skipping malformed edge line", "line", scanner.Text())
			continue
		}
		if started {
			elapsed += time.Duration(*line.Micros-prev) * time.Microsecond
		}
		started, prev = true, *line.Micros
		e := gpio.Edge{Level: *line.Level != 0, Stamp: elapsed, Stamped: true}

		in.mu.Lock()
		in.level = e.Level
		in.mu.Unlock()

		select {
		case in.edges <- e:
		case <-in.done:
			return
		}
	}
	in.mu.Lock()
	in.err = scanner.Err()
	in.mu.Unlock()
}

// Read returns the level of the last edge received.
func (in *SerialInput) Read() (bool, error) {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.level, nil
}

func (in *SerialInput) WaitForEdge(ctx context.Context, timeout time.Duration) (gpio.Edge, bool, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case e, ok := <-in.edges:
		if !ok {
			return gpio.Edge{}, false, in.streamErr()
		}
		return e, true, nil
	case <-timer.C:
		return gpio.Edge{}, false, nil
	case <-ctx.Done():
		return gpio.Edge{}, false, ctx.Err()
	}
}

func (in *SerialInput) streamErr() error {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.err != nil {
		return errors.Wrap(in.err, "serial stream")
	}
	return errors.Wrap(gpio.ErrClosed, "serial stream ended")
}

func (in *SerialInput) Close() error {
	var err error
	in.once.Do(func() {
		close(in.done)
		err = in.port.Close()
	})
	return err
}
