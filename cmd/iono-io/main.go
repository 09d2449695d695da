// Command iono-io filters the I/O board's channels and publishes committed
// changes to MQTT. Output channels can be driven over MQTT set topics.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/pkg/errors"

	"github.com/sweeney/iono/internal/analog"
	"github.com/sweeney/iono/internal/board"
	"github.com/sweeney/iono/internal/gpio"
	"github.com/sweeney/iono/internal/logic"
	"github.com/sweeney/iono/internal/mqtt"
	"github.com/sweeney/iono/internal/status"
	"github.com/sweeney/iono/internal/web"
)

type options struct {
	poll       time.Duration
	filter     logic.FilterConfig
	modes      string
	configPath string
	driver     string
	chip       string
	broker     string
	heartbeat  time.Duration
	httpAddr   string
	printState bool
}

func main() {
	def := logic.DefaultFilterConfig()
	var o options
	flag.DurationVar(&o.poll, "poll", 10*time.Millisecond, "Sweep interval")
	flag.DurationVar(&o.filter.DigitalStable, "digital-stable", def.DigitalStable, "Digital debounce window")
	flag.DurationVar(&o.filter.AnalogStable, "analog-stable", def.AnalogStable, "Analog debounce window")
	flag.IntVar(&o.filter.MinVarMV, "min-var-mv", def.MinVarMV, "Voltage hysteresis threshold (mV)")
	flag.IntVar(&o.filter.MinVarUA, "min-var-ua", def.MinVarUA, "Current hysteresis threshold (µA)")
	flag.StringVar(&o.modes, "modes", "digital,digital,digital,digital", "Modes of inputs 1-4 (digital, voltage, current)")
	flag.StringVar(&o.configPath, "config", "", "YAML board file (overrides -modes)")
	flag.StringVar(&o.driver, "driver", gpio.DriverCdev, "Hardware driver: cdev, periph, rpio or mock")
	flag.StringVar(&o.chip, "chip", gpio.DefaultChip, "GPIO chip for the cdev driver")
	flag.StringVar(&o.broker, "broker", "tcp://192.168.1.200:1883", "MQTT broker address")
	flag.DurationVar(&o.heartbeat, "heartbeat", 15*time.Minute, "Heartbeat interval (0 to disable)")
	flag.StringVar(&o.httpAddr, "http", ":80", "HTTP status address (empty to disable)")
	flag.BoolVar(&o.printState, "print-state", false, "Print filtered channel values and exit")
	logLevel := flag.String("log-level", "info", "Log level: debug, info, warn, error")

	flag.Parse()

	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "iono-io",
	})
	lvl, err := log.ParseLevel(*logLevel)
	if err != nil {
		logger.Fatal("bad log level", "level", *logLevel, "err", err)
	}
	logger.SetLevel(lvl)

	if err := run(o, logger); err != nil {
		logger.Fatal("fatal", "err", err)
	}
}

func boardConfig(o options) (board.Config, error) {
	if o.configPath != "" {
		return board.LoadConfig(o.configPath)
	}
	cfg := board.DefaultConfig()
	modes, err := board.ParseModes(o.modes)
	if err != nil {
		return cfg, err
	}
	cfg.Modes = modes
	return cfg, nil
}

func openAnalog(driver string) (analog.Driver, error) {
	if driver == gpio.DriverMock {
		return analog.NewFakeDriver(), nil
	}
	d, err := analog.NewPeriphDriver(analog.DefaultPeriphOpts)
	if err != nil {
		return nil, err
	}
	return d, nil
}

func openBoard(o options) (*board.Board, error) {
	cfg, err := boardConfig(o)
	if err != nil {
		return nil, err
	}
	lines, err := gpio.Open(o.driver, o.chip)
	if err != nil {
		return nil, errors.Wrap(err, "init gpio")
	}
	conv, err := openAnalog(o.driver)
	if err != nil {
		lines.Close()
		return nil, errors.Wrap(err, "init analog")
	}
	b, err := board.New(cfg, lines, conv)
	if err != nil {
		lines.Close()
		conv.Close()
		return nil, errors.Wrap(err, "assemble board")
	}
	return b, nil
}

func run(o options, logger *log.Logger) error {
	b, err := openBoard(o)
	if err != nil {
		return err
	}
	defer b.Close()

	engine, err := logic.NewEngine(b.Registry(), o.filter, logic.MonotonicClock())
	if err != nil {
		return err
	}

	if o.printState {
		if _, err := engine.Process(); err != nil {
			return errors.Wrap(err, "read board")
		}
		printState(os.Stdout, engine)
		return nil
	}

	publisher, err := mqtt.NewRealPublisher(mqtt.Options{Broker: o.broker}, logger.WithPrefix("mqtt"))
	if err != nil {
		return err
	}
	defer publisher.Close()

	// Tracker exists before STARTUP so the snapshot is available.
	tracker := status.NewTracker(time.Now(), status.Config{
		PollMs:          o.poll.Milliseconds(),
		DigitalStableMs: o.filter.DigitalStable.Milliseconds(),
		AnalogStableMs:  o.filter.AnalogStable.Milliseconds(),
		MinVarMV:        o.filter.MinVarMV,
		MinVarUA:        o.filter.MinVarUA,
		HeartbeatMs:     o.heartbeat.Milliseconds(),
		Driver:          o.driver,
		Broker:          o.broker,
		HTTPAddr:        o.httpAddr,
	})
	tracker.SetMQTTConnected(publisher.IsConnected())

	snap := tracker.Snapshot()
	startup := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startup); err != nil {
		logger.Error("failed to publish startup event", "err", err)
	} else {
		logger.Info("published startup event")
	}

	if o.httpAddr != "" {
		srv := web.New(o.httpAddr, tracker, logger.WithPrefix("http"))
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("http server error", "err", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		logger.Info("http status server listening", "addr", o.httpAddr)
	}

	logger.Info("started",
		"poll", o.poll,
		"digital_stable", o.filter.DigitalStable,
		"analog_stable", o.filter.AnalogStable,
		"min_var_mv", o.filter.MinVarMV,
		"min_var_ua", o.filter.MinVarUA,
		"channels", b.Registry().Len(),
		"broker", o.broker,
		"heartbeat", o.heartbeat)

	ticker := time.NewTicker(o.poll)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	l := &loop{
		engine:     engine,
		board:      b,
		publisher:  publisher,
		mqttStatus: publisher,
		tracker:    tracker,
		heartbeat:  o.heartbeat,
		now:        time.Now,
		logger:     logger,
	}
	return l.run(ticker.C, publisher, sigCh)
}

func printState(w io.Writer, engine *logic.Engine) {
	for _, ch := range engine.Channels() {
		v, ok := engine.Value(ch.ID)
		if !ok {
			fmt.Fprintf(w, "%s: UNKNOWN\n", ch.ID)
			continue
		}
		fmt.Fprintf(w, "%s: %d\n", ch.ID, v)
	}
}

// loop is the polling loop. Sweeps and output writes all run on the
// goroutine that calls run, so the engine is never sampled concurrently.
type loop struct {
	engine     *logic.Engine
	board      *board.Board
	publisher  mqtt.Publisher
	mqttStatus mqtt.ConnectionStatus
	tracker    *status.Tracker
	heartbeat  time.Duration
	now        func() time.Time
	logger     *log.Logger
}

func (l *loop) run(tick <-chan time.Time, src mqtt.CommandSource, sig <-chan os.Signal) error {
	hb := logic.NewHeartbeat(l.now())
	commands := src.Commands()

	for {
		select {
		case s := <-sig:
			l.shutdown(s)
			return nil

		case cmd := <-commands:
			l.apply(cmd)

		case <-tick:
			l.sweep(hb)
		}
	}
}

// apply drives an output. The committed value follows on a later sweep.
func (l *loop) apply(cmd mqtt.Command) {
	if err := l.board.Write(cmd.Channel, cmd.Value); err != nil {
		l.logger.Warn("command rejected", "channel", cmd.Channel, "value", cmd.Value, "err", err)
		return
	}
	l.logger.Debug("command applied", "channel", cmd.Channel, "value", cmd.Value)
}

func (l *loop) sweep(hb *logic.Heartbeat) {
	t := l.now()
	changed, err := l.engine.Process()
	if err != nil {
		// The sweep left no state behind; the next tick retries it.
		l.logger.Warn("sweep failed", "err", err)
		if l.tracker != nil {
			l.tracker.SetError(err)
		}
		return
	}

	for _, event := range l.engine.Events(changed, t) {
		l.logger.Info("commit", "channel", event.Channel, "kind", event.Kind, "value", event.Value)
		if err := l.publisher.Publish(event); err != nil {
			l.logger.Error("publish error", "channel", event.Channel, "err", err)
		}
	}

	if l.tracker != nil {
		l.tracker.Update(status.ChannelsFrom(l.engine), l.engine.Ready())
		if l.mqttStatus != nil {
			l.tracker.SetMQTTConnected(l.mqttStatus.IsConnected())
		}
	}

	if !l.engine.Ready() {
		return
	}

	hbData := hb.Check(t, l.heartbeat, l.engine.Counts())
	if hbData == nil {
		return
	}
	total := 0
	for _, n := range hbData.Counts {
		total += n
	}
	l.logger.Info("heartbeat", "uptime", hbData.Uptime, "commits", total)

	event := mqtt.SystemEvent{
		Timestamp: hbData.Timestamp,
		Event:     "HEARTBEAT",
	}
	if l.tracker != nil {
		event.RawPayload = status.FormatStatusEvent(l.tracker.Snapshot(), "HEARTBEAT", "")
	}
	if err := l.publisher.PublishSystem(event); err != nil {
		l.logger.Error("heartbeat publish error", "err", err)
	}
}

func (l *loop) shutdown(s os.Signal) {
	l.logger.Info("shutting down", "signal", s)

	reason := "UNKNOWN"
	switch s {
	case syscall.SIGINT:
		reason = "SIGINT"
	case syscall.SIGTERM:
		reason = "SIGTERM"
	}
	event := mqtt.SystemEvent{
		Timestamp: l.now(),
		Event:     "SHUTDOWN",
		Reason:    reason,
		Retained:  true,
	}
	if l.tracker != nil {
		if l.mqttStatus != nil {
			l.tracker.SetMQTTConnected(l.mqttStatus.IsConnected())
		}
		event.RawPayload = status.FormatStatusEvent(l.tracker.Snapshot(), "SHUTDOWN", reason)
	}
	if err := l.publisher.PublishSystem(event); err != nil {
		l.logger.Error("failed to publish shutdown event", "err", err)
	} else {
		l.logger.Info("published shutdown event")
	}
}
