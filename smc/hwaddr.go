package smc

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/soypat/lan91c"
	"github.com/soypat/lan91c/ethernet"
	"github.com/soypat/lan91c/internal"
	"github.com/soypat/lan91c/regbank"
)

// AddrStore persists the board's individual address as text, like a boot
// loader environment variable.
type AddrStore interface {
	// LoadHardwareAddr returns the stored address. ok is false when no
	// address has been stored.
	LoadHardwareAddr() (addr string, ok bool, err error)
	StoreHardwareAddr(addr string) error
}

// MemStore is an in-memory AddrStore.
type MemStore struct {
	mu   sync.Mutex
	addr string
	set  bool
}

var _ AddrStore = (*MemStore)(nil)

// NewMemStore returns a store holding addr, or an empty store if addr is "".
func NewMemStore(addr string) *MemStore {
	return &MemStore{addr: addr, set: addr != ""}
}

func (s *MemStore) LoadHardwareAddr() (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr, s.set, nil
}

func (s *MemStore) StoreHardwareAddr(addr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addr, s.set = addr, true
	return nil
}

// FormatAddr returns addr as six colon separated upper case hex octets.
func FormatAddr(addr [6]byte) string {
	const hexdigits = "0123456789ABCDEF"
	buf := make([]byte, 0, 17)
	for i, b := range addr {
		if i != 0 {
			buf = append(buf, ':')
		}
		buf = append(buf, hexdigits[b>>4], hexdigits[b&0xf])
	}
	return string(buf)
}

// SetHardwareAddr sets an address that takes precedence over the stored and
// on-chip ones. An enabled device is reprogrammed immediately.
func (d *Device) SetHardwareAddr(addr [6]byte) error {
	if ethernet.IsZeroAddr(addr) || ethernet.IsMulticastAddr(addr) {
		return lan91c.ErrBadHardwareAddr
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.override = addr
	d.hasOverride = true
	if d.state == StateEnabled || d.state == StateConfigured {
		d.programAddr(addr)
	}
	return nil
}

// resolveAddr picks the individual address by precedence: explicit override,
// then the store, then the chip's current address. A chip address read back
// when nothing is stored is written to the store.
func (d *Device) resolveAddr() (addr [6]byte, err error) {
	chip := d.chipAddr()
	chipValid := !ethernet.IsZeroAddr(chip)
	if d.hasOverride {
		d.log.debug("smc:addr", slog.String("source", "override"), internal.SlogAddr6("addr", &d.override))
		return d.override, nil
	}
	if d.cfg.Store != nil {
		s, ok, err := d.cfg.Store.LoadHardwareAddr()
		if err != nil {
			return addr, fmt.Errorf("smc: loading hardware address: %w", err)
		}
		if ok {
			addr, err = ethernet.ParseAddr(s)
			if err != nil {
				d.log.error("smc:addr-malformed", slog.String("stored", s))
				return addr, fmt.Errorf("%w: stored %q", lan91c.ErrBadHardwareAddr, s)
			}
			if chipValid && addr != chip {
				d.log.warn("smc:addr-mismatch", internal.SlogAddr6("chip", &chip), internal.SlogAddr6("stored", &addr))
			}
			d.log.debug("smc:addr", slog.String("source", "store"), internal.SlogAddr6("addr", &addr))
			return addr, nil
		}
	}
	if !chipValid {
		d.log.error("smc:addr-missing")
		return addr, lan91c.ErrMACAddressMissing
	}
	if d.cfg.Store != nil {
		err = d.cfg.Store.StoreHardwareAddr(FormatAddr(chip))
		if err != nil {
			d.log.warn("smc:addr-store", slog.String("err", err.Error()))
		}
	}
	d.log.debug("smc:addr", slog.String("source", "chip"), internal.SlogAddr6("addr", &chip))
	return chip, nil
}

// chipAddr reads the individual address registers. Bank 1 is left selected.
func (d *Device) chipAddr() (addr [6]byte) {
	d.regs.Select(regbank.Bank1)
	for i := 0; i < 6; i += 2 {
		w := d.regs.Read16(regbank.ADDR0 + uint8(i))
		addr[i], addr[i+1] = byte(w), byte(w>>8)
	}
	return addr
}

// blankAddr reports whether every address word reads as all zeros or all
// ones, as on a chip without a configured EEPROM.
func (d *Device) blankAddr() bool {
	d.regs.Select(regbank.Bank1)
	for i := uint8(0); i < 6; i += 2 {
		w := d.regs.Read16(regbank.ADDR0 + i)
		if w != 0 && w != 0xffff {
			return false
		}
	}
	return true
}

func (d *Device) programAddr(addr [6]byte) {
	saved := d.regs.Selected()
	d.regs.Select(regbank.Bank1)
	for i := 0; i < 6; i += 2 {
		d.regs.Write16(regbank.ADDR0+uint8(i), uint16(addr[i])|uint16(addr[i+1])<<8)
	}
	d.regs.Select(saved)
	d.addr = addr
}
