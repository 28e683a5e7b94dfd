package smc

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/ghodss/yaml"

	"github.com/soypat/lan91c"
	"github.com/soypat/lan91c/ethernet"
	"github.com/soypat/lan91c/phy"
)

// Defaults applied by Config for zero valued fields.
const (
	DefaultBaseAddr           = 0x0c000300
	DefaultTxTimeout          = 30 * time.Second
	DefaultAllocAttempts      = 5
	DefaultAllocSpin          = 16
	DefaultMMUPoll            = 10 * time.Microsecond
	DefaultPHYPollInterval    = 500 * time.Millisecond
	DefaultPHYResetAttempts   = 6
	DefaultPHYAutonegAttempts = 20
	DefaultResetSettle        = 10 * time.Millisecond
)

// Duration is a time.Duration that reads and writes as a Go duration string
// ("30ms") in configuration files. Plain numbers are taken as nanoseconds.
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch v := v.(type) {
	case float64:
		*d = Duration(v)
	case string:
		dur, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		*d = Duration(dur)
	default:
		return fmt.Errorf("invalid duration %s", b)
	}
	return nil
}

// Config configures a Device. Fields tagged for serialization can be loaded
// from YAML with ParseConfig; zero values select the documented defaults.
type Config struct {
	// BaseAddr is the bus address of the register window. Probe checks it
	// against the chip's base address register.
	BaseAddr uint32 `json:"baseAddr,omitempty"`
	// IRQ is the platform interrupt line. The driver core does not use it
	// except to report it.
	IRQ int `json:"irq,omitempty"`
	// HardwareAddr overrides every other source of the individual address.
	HardwareAddr string `json:"hardwareAddr,omitempty"`
	// DisableFallbackAddr stops Probe from programming the fallback address
	// into a chip with a blank individual address.
	DisableFallbackAddr bool `json:"disableFallbackAddr,omitempty"`

	// TxTimeout bounds the wait for the transmit queue to drain. It must exceed
	// the worst case collision backoff of a half duplex 10 Mbit/s link, about
	// 370ms for a full size frame.
	TxTimeout Duration `json:"txTimeout,omitempty"`
	// AllocAttempts is the number of times the allocation status is polled
	// AllocSpin times before a transmit gives up.
	AllocAttempts int `json:"allocAttempts,omitempty"`
	AllocSpin     int `json:"allocSpin,omitempty"`
	// MMUPoll is the delay between polls of the MMU busy flag.
	MMUPoll Duration `json:"mmuPoll,omitempty"`
	// ResetSettle is the delay after soft reset before registers are written.
	ResetSettle Duration `json:"resetSettle,omitempty"`
	// Use32Bit moves frame data with 32 bit data register accesses.
	Use32Bit bool `json:"use32Bit,omitempty"`
	// PowerDown clears the EPH power enable bit on Shutdown.
	PowerDown bool `json:"powerDown,omitempty"`

	// PHYAddr is the management address of the PHY. Ignored with DetectPHY.
	PHYAddr uint8 `json:"phyAddr,omitempty"`
	// DetectPHY scans all management addresses for a PHY on Open.
	DetectPHY bool `json:"detectPHY,omitempty"`
	// ForceLink disables autonegotiation and forces a link mode such as
	// "100M-F". Empty or "auto" negotiates.
	ForceLink string `json:"forceLink,omitempty"`
	// MIIHalfPeriod is the time the management clock is held at each level.
	MIIHalfPeriod Duration `json:"miiHalfPeriod,omitempty"`
	// PHYPollInterval is the delay between PHY reset and autonegotiation polls.
	PHYPollInterval    Duration `json:"phyPollInterval,omitempty"`
	PHYResetAttempts   int      `json:"phyResetAttempts,omitempty"`
	PHYAutonegAttempts int      `json:"phyAutonegAttempts,omitempty"`

	// Clock is the time source for every hardware wait. Nil selects
	// lan91c.SystemClock.
	Clock lan91c.Clock `json:"-"`
	// Logger receives driver logs. Nil disables logging.
	Logger *slog.Logger `json:"-"`
	// Store holds the persisted individual address. May be nil.
	Store AddrStore `json:"-"`
	// Sink receives every frame delivered by the receive path. The slice is
	// reused after Sink returns.
	Sink func(frame []byte) `json:"-"`
}

// ParseConfig parses a YAML or JSON configuration document.
func ParseConfig(data []byte) (Config, error) {
	var cfg Config
	err := yaml.Unmarshal(data, &cfg)
	if err != nil {
		return cfg, fmt.Errorf("%w: %v", lan91c.ErrInvalidConfig, err)
	}
	return cfg, cfg.validate()
}

// YAML returns the serializable fields of cfg as a YAML document.
func (cfg Config) YAML() ([]byte, error) {
	return yaml.Marshal(cfg)
}

func (cfg Config) withDefaults() Config {
	if cfg.BaseAddr == 0 {
		cfg.BaseAddr = DefaultBaseAddr
	}
	if cfg.TxTimeout <= 0 {
		cfg.TxTimeout = Duration(DefaultTxTimeout)
	}
	if cfg.AllocAttempts <= 0 {
		cfg.AllocAttempts = DefaultAllocAttempts
	}
	if cfg.AllocSpin <= 0 {
		cfg.AllocSpin = DefaultAllocSpin
	}
	if cfg.MMUPoll <= 0 {
		cfg.MMUPoll = Duration(DefaultMMUPoll)
	}
	if cfg.ResetSettle <= 0 {
		cfg.ResetSettle = Duration(DefaultResetSettle)
	}
	if cfg.MIIHalfPeriod <= 0 {
		cfg.MIIHalfPeriod = Duration(phy.DefaultHalfPeriod)
	}
	if cfg.PHYPollInterval <= 0 {
		cfg.PHYPollInterval = Duration(DefaultPHYPollInterval)
	}
	if cfg.PHYResetAttempts <= 0 {
		cfg.PHYResetAttempts = DefaultPHYResetAttempts
	}
	if cfg.PHYAutonegAttempts <= 0 {
		cfg.PHYAutonegAttempts = DefaultPHYAutonegAttempts
	}
	if cfg.Clock == nil {
		cfg.Clock = lan91c.SystemClock()
	}
	return cfg
}

func (cfg Config) validate() error {
	if cfg.PHYAddr > 31 {
		return fmt.Errorf("%w: PHY address %d", lan91c.ErrInvalidConfig, cfg.PHYAddr)
	}
	if _, ok := phy.ParseLinkMode(cfg.ForceLink); !ok {
		return fmt.Errorf("%w: link mode %q", lan91c.ErrInvalidConfig, cfg.ForceLink)
	}
	if cfg.HardwareAddr != "" {
		addr, err := ethernet.ParseAddr(cfg.HardwareAddr)
		if err != nil || ethernet.IsZeroAddr(addr) || ethernet.IsMulticastAddr(addr) {
			return fmt.Errorf("%w: %q", lan91c.ErrBadHardwareAddr, cfg.HardwareAddr)
		}
	}
	if cfg.AllocAttempts < 0 || cfg.AllocSpin < 0 || cfg.PHYResetAttempts < 0 || cfg.PHYAutonegAttempts < 0 {
		return fmt.Errorf("%w: negative retry budget", lan91c.ErrInvalidConfig)
	}
	return nil
}
