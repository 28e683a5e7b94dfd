// Package smc implements the driver core for the SMSC LAN91C111 single chip
// Ethernet controller: the packet MMU allocator, the transmit and receive
// paths, the reset/enable/shutdown lifecycle and PHY bring-up over the
// bit-banged MII management interface.
//
// The chip is reached through a regbank.Window. On hardware that is a memory
// mapped register window (see regbank.MapWindow); in tests it is the
// register-level simulator in package hwsim.
package smc

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/soypat/lan91c"
	"github.com/soypat/lan91c/ethernet"
	"github.com/soypat/lan91c/internal"
	"github.com/soypat/lan91c/phy"
	"github.com/soypat/lan91c/regbank"
)

//go:generate stringer -type=State -linecomment -output=stringers.go

// State is the lifecycle state of a Device. It is informational: calls are
// not rejected based on it.
type State uint8

const (
	StateUnreset    State = iota // unreset
	StateReset                   // reset
	StateConfigured              // configured
	StateEnabled                 // enabled
	StateDisabled                // disabled
	StatePowerDown               // power-down
)

// Stats counts driver events since the Device was created.
type Stats struct {
	TxFrames         uint64
	TxBytes          uint64
	RxFrames         uint64
	RxBytes          uint64
	RxErrors         uint64 // Frames discarded for error status.
	RxEmptyPolls     uint64 // Receive calls that found the FIFO empty.
	RxOverruns       uint64
	AllocAttempts    uint64 // Allocation status poll attempts.
	AllocExhausted   uint64
	AllocFailed      uint64
	MMUWaits         uint64 // Polls of the MMU busy flag that found it set.
	TxTooLarge       uint64
	TxTimeouts       uint64
	TxErrors         uint64 // Transmit error interrupts serviced.
	PhyResetTimeouts uint64
	AutonegTimeouts  uint64
	RemoteFaults     uint64
}

// Device is a LAN91C111 controller. Its methods are safe for concurrent use;
// a mutex stands in for disabling interrupts around register sequences.
type Device struct {
	mu    sync.Mutex
	regs  regbank.File
	cfg   Config
	clk   lan91c.Clock
	level slog.LevelVar
	log   logger

	port miiPort
	mii  phy.MIIBitBang
	phy  phy.Device
	link phy.LinkMode

	state       State
	stats       Stats
	addr        [6]byte
	override    [6]byte
	hasOverride bool
	rev         uint16
	memSize     int

	txbuf [regbank.MemoryUnit]byte
	rxbuf [regbank.MemoryUnit]byte
}

// New returns a Device on the register window w. The chip is not accessed
// beyond reading the bank selection; call Open or Probe to bring it up.
func New(w regbank.Window, cfg Config) (*Device, error) {
	err := cfg.validate()
	if err != nil {
		return nil, err
	}
	d := &Device{cfg: cfg.withDefaults()}
	d.clk = d.cfg.Clock
	d.level.Set(internal.LevelTrace)
	if d.cfg.Logger != nil {
		d.log.log = slog.New(levelHandler{Handler: d.cfg.Logger.Handler(), level: &d.level})
	}
	if d.cfg.HardwareAddr != "" {
		d.override, _ = ethernet.ParseAddr(d.cfg.HardwareAddr)
		d.hasOverride = true
	}
	err = d.regs.Init(w)
	if err != nil {
		return nil, err
	}
	d.port.regs = &d.regs
	d.mii.Configure(&d.port, d.clk, d.cfg.MIIHalfPeriod.duration(), d.log.log)
	err = d.phy.ConfigureAs22(&d.mii, d.cfg.PHYAddr)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// SetLogLevel sets the minimum level of records the device logs. Use
// internal trace level (slog.LevelDebug-2) for frame and MII dumps.
func (d *Device) SetLogLevel(l slog.Level) { d.level.Set(l) }

// State returns the last lifecycle transition performed.
func (d *Device) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Stats returns a copy of the driver counters.
func (d *Device) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats
}

// HardwareAddr returns the individual address programmed by Open.
func (d *Device) HardwareAddr() [6]byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.addr
}

// Link returns the link mode found by the last PHY configuration.
func (d *Device) Link() phy.LinkMode {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.link
}

// Chip returns the chip name and revision register read by Probe.
func (d *Device) Chip() (name string, rev uint16) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return regbank.ChipName(d.rev), d.rev
}

// MemorySize returns the packet memory size in bytes read by Probe.
func (d *Device) MemorySize() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.memSize
}

// BaseAddr returns the configured register window base address.
func (d *Device) BaseAddr() uint32 { return d.cfg.BaseAddr }

// IRQ returns the configured interrupt line.
func (d *Device) IRQ() int { return d.cfg.IRQ }

func (dur Duration) duration() time.Duration { return time.Duration(dur) }

// levelHandler filters records below a runtime adjustable level before
// passing them to the wrapped handler.
type levelHandler struct {
	slog.Handler
	level slog.Leveler
}

func (h levelHandler) Enabled(ctx context.Context, l slog.Level) bool {
	return l >= h.level.Level() && h.Handler.Enabled(ctx, l)
}

func (h levelHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return levelHandler{Handler: h.Handler.WithAttrs(attrs), level: h.level}
}

func (h levelHandler) WithGroup(name string) slog.Handler {
	return levelHandler{Handler: h.Handler.WithGroup(name), level: h.level}
}

type logger struct {
	log *slog.Logger
}

func (l logger) error(msg string, attrs ...slog.Attr) {
	internal.LogAttrs(l.log, slog.LevelError, msg, attrs...)
}
func (l logger) info(msg string, attrs ...slog.Attr) {
	internal.LogAttrs(l.log, slog.LevelInfo, msg, attrs...)
}
func (l logger) warn(msg string, attrs ...slog.Attr) {
	internal.LogAttrs(l.log, slog.LevelWarn, msg, attrs...)
}
func (l logger) debug(msg string, attrs ...slog.Attr) {
	internal.LogAttrs(l.log, slog.LevelDebug, msg, attrs...)
}
func (l logger) trace(msg string, attrs ...slog.Attr) {
	internal.LogAttrs(l.log, internal.LevelTrace, msg, attrs...)
}

func (l logger) traceEnabled() bool {
	return internal.LogEnabled(l.log, internal.LevelTrace)
}

// traceFrame logs the Ethernet header of frame at trace level.
func (l logger) traceFrame(msg string, frame []byte, attrs ...slog.Attr) {
	if !l.traceEnabled() {
		return
	}
	efrm, err := ethernet.NewFrame(frame)
	if err != nil {
		l.trace(msg, append(attrs, slog.Int("len", len(frame)))...)
		return
	}
	l.trace(msg, append(attrs,
		slog.Int("len", len(frame)),
		internal.SlogAddr6("dst", efrm.DestinationHardwareAddr()),
		internal.SlogAddr6("src", efrm.SourceHardwareAddr()),
		internal.SlogHex16("type", uint16(efrm.EtherTypeOrSize())),
	)...)
}
