package smc

import (
	"errors"
	"testing"
	"time"

	"github.com/soypat/lan91c"
)

func TestParseConfig(t *testing.T) {
	doc := []byte(`
baseAddr: 0x0c000300
irq: 41
hardwareAddr: "02:00:00:00:00:01"
txTimeout: 50ms
mmuPoll: 2000
allocAttempts: 8
use32Bit: true
forceLink: 100M-F
phyPollInterval: 1s
`)
	cfg, err := ParseConfig(doc)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.BaseAddr != 0x0c000300 || cfg.IRQ != 41 || !cfg.Use32Bit || cfg.AllocAttempts != 8 {
		t.Errorf("%+v", cfg)
	}
	if time.Duration(cfg.TxTimeout) != 50*time.Millisecond || time.Duration(cfg.MMUPoll) != 2*time.Microsecond {
		t.Errorf("durations %s %s", time.Duration(cfg.TxTimeout), time.Duration(cfg.MMUPoll))
	}
	full := cfg.withDefaults()
	if full.AllocSpin != DefaultAllocSpin || time.Duration(full.PHYPollInterval) != time.Second || full.Clock == nil {
		t.Errorf("defaults %+v", full)
	}
	if got := time.Duration(Config{}.withDefaults().TxTimeout); got != 30*time.Second {
		t.Errorf("default transmit timeout %s", got)
	}

	out, err := cfg.YAML()
	if err != nil {
		t.Fatal(err)
	}
	again, err := ParseConfig(out)
	if err != nil || again.TxTimeout != cfg.TxTimeout || again.HardwareAddr != cfg.HardwareAddr {
		t.Errorf("reparse: %v %+v", err, again)
	}
}

func TestParseConfigInvalid(t *testing.T) {
	tests := []struct {
		doc  string
		want error
	}{
		{doc: "forceLink: 1G-F", want: lan91c.ErrInvalidConfig},
		{doc: "phyAddr: 32", want: lan91c.ErrInvalidConfig},
		{doc: "allocAttempts: -1", want: lan91c.ErrInvalidConfig},
		{doc: "txTimeout: soon", want: lan91c.ErrInvalidConfig},
		{doc: `hardwareAddr: "00:11:22"`, want: lan91c.ErrBadHardwareAddr},
		{doc: `hardwareAddr: "00:00:00:00:00:00"`, want: lan91c.ErrBadHardwareAddr},
		{doc: `hardwareAddr: "01:00:5e:00:00:01"`, want: lan91c.ErrBadHardwareAddr},
		{doc: `hardwareAddr: "ff:ff:ff:ff:ff:ff"`, want: lan91c.ErrBadHardwareAddr},
	}
	for _, tt := range tests {
		_, err := ParseConfig([]byte(tt.doc))
		if !errors.Is(err, tt.want) {
			t.Errorf("%q: got %v, want %v", tt.doc, err, tt.want)
		}
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	_, err := New(nil, Config{ForceLink: "fast"})
	if !errors.Is(err, lan91c.ErrInvalidConfig) {
		t.Errorf("got %v", err)
	}
	_, err = New(nil, Config{HardwareAddr: "33:33:00:00:00:01"})
	if !errors.Is(err, lan91c.ErrBadHardwareAddr) {
		t.Errorf("multicast override accepted: %v", err)
	}
}
