// Package haptic provides the main API for running a vibrator daemon on top
// of a Linux force-feedback (FF) capable input device.
package haptic

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sys/unix"

	"github.com/ehrlich-b/go-haptic/internal/constants"
	"github.com/ehrlich-b/go-haptic/internal/dispatch"
	"github.com/ehrlich-b/go-haptic/internal/ffdev"
	"github.com/ehrlich-b/go-haptic/internal/interfaces"
	"github.com/ehrlich-b/go-haptic/internal/logging"
	"github.com/ehrlich-b/go-haptic/internal/persist"
	"github.com/ehrlich-b/go-haptic/internal/playback"
	"github.com/ehrlich-b/go-haptic/internal/transport"
)

// Device represents a running vibrator daemon instance: one open FF device,
// one playback engine, one dispatcher, and the sockets serving it.
type Device struct {
	DevicePath string

	adapter  *ffdev.Adapter
	engine   *playback.Engine
	server   *transport.Server
	store    *persist.Store
	metrics  *Metrics
	observer interfaces.Observer

	ctx    context.Context
	cancel context.CancelFunc

	started bool
}

// Params configures CreateAndServe.
type Params struct {
	// DevicePath is the FF character device to open (default
	// constants.DefaultDevicePath).
	DevicePath string

	// LocalSocketPath is the local UNIX-domain socket to listen on (default
	// constants.DefaultLocalSocketPath).
	LocalSocketPath string

	// RPMSGSocketPath is the cross-core socket to listen on (default
	// constants.DefaultRpmsgSocketPath). Set RPMSGDomain to a real AF_RPMSG
	// value if the target kernel defines one; it defaults to unix.AF_UNIX
	// otherwise (see DESIGN.md).
	RPMSGSocketPath string
	RPMSGDomain     int

	// StatePath is the file backing persisted intensity/calibration (default
	// constants.DefaultStatePath).
	StatePath string
}

// DefaultParams returns the daemon's default configuration.
func DefaultParams() Params {
	return Params{
		DevicePath:      constants.DefaultDevicePath,
		LocalSocketPath: constants.DefaultLocalSocketPath,
		RPMSGSocketPath: constants.DefaultRpmsgSocketPath,
		StatePath:       constants.DefaultStatePath,
	}
}

// Options holds cross-cutting collaborators, mirroring the teacher's
// Options struct (context, logger, observer).
type Options struct {
	Context  context.Context
	Logger   interfaces.Logger
	Observer interfaces.Observer
}

// CreateAndServe opens the FF device, probes its capabilities (returning a
// NoDevice error if neither FF_CONSTANT nor FF_PERIODIC is advertised,
// spec.md §7), loads any persisted intensity, and starts the dual-socket
// acceptor. It returns once both sockets are listening; Serve keeps running
// in background goroutines until StopAndDelete is called.
func CreateAndServe(ctx context.Context, params Params, options *Options) (*Device, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if options == nil {
		options = &Options{}
	}
	if options.Context != nil {
		ctx = options.Context
	}
	logger := options.Logger
	if logger == nil {
		logger = logging.Default()
	}

	metrics := NewMetrics()
	var observer interfaces.Observer = metrics
	if options.Observer != nil {
		observer = options.Observer
		metrics = nil
	}

	dev, err := ffdev.Open(params.DevicePath, logger)
	if err != nil {
		return nil, NewNoDevice("CreateAndServe", err.Error())
	}

	adapter := ffdev.NewAdapter(dev, logger, observer)
	caps, err := adapter.Probe()
	if err != nil {
		dev.Close()
		return nil, WrapDeviceError("Probe", err)
	}
	if caps&(ffdev.CapConstant|ffdev.CapPeriodic) == 0 {
		dev.Close()
		return nil, NewNoDevice("CreateAndServe", "device advertises neither FF_CONSTANT nor FF_PERIODIC")
	}

	store, err := persist.Open(params.StatePath, logger)
	if err != nil {
		dev.Close()
		return nil, fmt.Errorf("haptic: open state: %w", err)
	}
	intensity, found, err := store.LoadIntensity()
	if err != nil {
		dev.Close()
		return nil, fmt.Errorf("haptic: load intensity: %w", err)
	}
	if found {
		adapter.SetIntensity(intensity)
	}
	// Absence leaves the adapter at its NewAdapter-time default (Medium) —
	// spec.md §9's resolved Open Question picks Medium as the read-fallback
	// for new installations.

	engine := playback.NewEngine(adapter, logger, observer)
	dispatcher := dispatch.New(adapter, engine, store, logger, observer)

	server := transport.NewServer(dispatcher, logger)
	if err := server.AddLocal(params.LocalSocketPath); err != nil {
		dev.Close()
		return nil, fmt.Errorf("haptic: listen local socket: %w", err)
	}
	rpmsgDomain := params.RPMSGDomain
	if rpmsgDomain == 0 {
		rpmsgDomain = unix.AF_UNIX
	}
	if err := server.AddRPMSG(params.RPMSGSocketPath, rpmsgDomain); err != nil {
		server.Close()
		dev.Close()
		return nil, fmt.Errorf("haptic: listen rpmsg socket: %w", err)
	}

	d := &Device{
		DevicePath: params.DevicePath,
		adapter:    adapter,
		engine:     engine,
		server:     server,
		store:      store,
		metrics:    metrics,
		observer:   observer,
		started:    true,
	}
	d.ctx, d.cancel = context.WithCancel(ctx)

	go server.Serve()
	go func() {
		<-d.ctx.Done()
		server.Close()
	}()

	logger.Printf("haptic: serving %s on %s and %s", params.DevicePath, params.LocalSocketPath, params.RPMSGSocketPath)
	return d, nil
}

// DeviceState mirrors the teacher's DeviceState enum.
type DeviceState string

const (
	DeviceStateCreated DeviceState = "created"
	DeviceStateRunning DeviceState = "running"
	DeviceStateStopped DeviceState = "stopped"
)

// State reports the device's lifecycle state.
func (d *Device) State() DeviceState {
	if d == nil {
		return DeviceStateStopped
	}
	if !d.started {
		return DeviceStateCreated
	}
	select {
	case <-d.ctx.Done():
		return DeviceStateStopped
	default:
		return DeviceStateRunning
	}
}

// Info summarizes the daemon's current status.
type Info struct {
	DevicePath   string      `json:"device_path"`
	State        DeviceState `json:"state"`
	Activity     string      `json:"activity"`
	Intensity    uint8       `json:"intensity"`
	Capabilities int32       `json:"capabilities"`
}

// Info returns a snapshot of the daemon's status.
func (d *Device) Info() Info {
	if d == nil {
		return Info{}
	}
	return Info{
		DevicePath:   d.DevicePath,
		State:        d.State(),
		Activity:     activityName(d.engine.Activity()),
		Intensity:    d.adapter.Intensity(),
		Capabilities: d.adapter.Capabilities(),
	}
}

func activityName(a playback.Activity) string {
	switch a {
	case playback.ActivityWaveform:
		return "waveform"
	case playback.ActivityInterval:
		return "interval"
	default:
		return "none"
	}
}

// Metrics returns the daemon's metrics collector, or nil if a custom
// Observer was supplied at creation (in which case it is not a *Metrics).
func (d *Device) Metrics() *Metrics {
	if d == nil {
		return nil
	}
	return d.metrics
}

// MetricsSnapshot returns a point-in-time snapshot of the daemon's metrics.
func (d *Device) MetricsSnapshot() MetricsSnapshot {
	if d == nil || d.metrics == nil {
		return MetricsSnapshot{}
	}
	return d.metrics.Snapshot()
}

// StopAndDelete stops playback, turns the motor off, closes both sockets
// and the FF device. This is the daemon's graceful shutdown path (SIGINT/
// SIGTERM in cmd/vibratord).
func StopAndDelete(ctx context.Context, d *Device) error {
	if d == nil {
		return NewInvalidArgument("StopAndDelete", "nil device")
	}
	if d.cancel != nil {
		d.cancel()
	}
	time.Sleep(10 * time.Millisecond)

	d.engine.Stop()
	if err := d.adapter.Off(); err != nil {
		return WrapDeviceError("Off", err)
	}
	if err := d.adapter.Close(); err != nil {
		return fmt.Errorf("haptic: close device: %w", err)
	}
	d.started = false
	return nil
}
