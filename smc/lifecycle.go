package smc

import (
	"log/slog"

	"github.com/soypat/lan91c"
	"github.com/soypat/lan91c/internal"
	"github.com/soypat/lan91c/regbank"
)

// FallbackAddr is programmed by Probe into a chip whose individual address
// registers are blank.
var FallbackAddr = [6]byte{0x00, 0xcf, 0x52, 0x49, 0xc3, 0x01}

const signatureMask = 0xff00

// Open brings the device up: probe, reset, PHY configuration, address
// selection and enable. PHY failures are logged and leave the link degraded
// without failing Open. Any other failure after a successful probe shuts the
// chip down before returning.
func (d *Device) Open() (err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	err = d.probe()
	if err != nil {
		return err
	}
	d.reset()
	err = d.configurePHY()
	if err != nil {
		d.log.warn("smc:phy-degraded", slog.String("err", err.Error()))
	}
	addr, err := d.resolveAddr()
	if err != nil {
		d.shutdown()
		return err
	}
	d.programAddr(addr)
	d.state = StateConfigured
	d.enable()
	d.log.info("smc:open", internal.SlogAddr6("addr", &d.addr), slog.String("link", d.link.String()))
	return nil
}

// Close masks interrupts and disables the transmitter and receiver.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.shutdown()
	return nil
}

// Probe verifies the bank select signature, the base address register and
// the chip revision, programs FallbackAddr into a blank chip and reads the
// packet memory size. It fails with lan91c.ErrHardwareNotDetected.
func (d *Device) Probe() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.probe()
}

func (d *Device) probe() error {
	bsr := d.regs.ReadBSR()
	if bsr&signatureMask != regbank.BSRSignature {
		d.log.error("smc:probe-signature", internal.SlogHex16("bsr", bsr))
		return lan91c.ErrHardwareNotDetected
	}
	// The signature must survive a bank write.
	d.regs.Select(regbank.Bank0)
	bsr = d.regs.ReadBSR()
	if bsr&signatureMask != regbank.BSRSignature {
		d.log.error("smc:probe-signature", internal.SlogHex16("bsr", bsr))
		return lan91c.ErrHardwareNotDetected
	}
	d.regs.Select(regbank.Bank1)
	base := d.regs.Read16(regbank.BASE)
	if d.cfg.BaseAddr&0xfff != uint32(base>>3&0x3e0) {
		d.log.error("smc:probe-base", internal.SlogHex16("base", base), slog.Uint64("want", uint64(d.cfg.BaseAddr)))
		return lan91c.ErrHardwareNotDetected
	}
	d.regs.Select(regbank.Bank3)
	rev := d.regs.Read16(regbank.REV)
	name := regbank.ChipName(rev)
	if name == "" {
		d.log.error("smc:probe-revision", internal.SlogHex16("rev", rev))
		return lan91c.ErrHardwareNotDetected
	}
	d.rev = rev
	if d.blankAddr() && !d.cfg.DisableFallbackAddr {
		d.programAddr(FallbackAddr)
		d.log.warn("smc:probe-blank-addr", internal.SlogAddr6("fallback", &FallbackAddr))
	}
	d.regs.Select(regbank.Bank0)
	mir := d.regs.Read16(regbank.MIR)
	d.memSize = int(mir&0xff) * regbank.MemoryUnit
	d.regs.Select(regbank.Bank2)
	d.log.info("smc:probe", slog.String("chip", name), internal.SlogHex16("rev", rev),
		slog.Int("memory", d.memSize), slog.Uint64("base", uint64(d.cfg.BaseAddr)), slog.Int("irq", d.cfg.IRQ))
	return nil
}

// Reset soft resets the chip into a known state with interrupts masked, the
// transmitter and receiver disabled, auto-release on and packet memory empty.
func (d *Device) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.reset()
}

func (d *Device) reset() {
	d.regs.Select(regbank.Bank0)
	d.regs.Write16(regbank.RCR, regbank.RCRSoftRst)
	// CONFIG survives soft reset; its default keeps the EPH powered.
	d.regs.Select(regbank.Bank1)
	d.regs.Write16(regbank.CONFIG, regbank.ConfigDefault)
	d.regs.Select(regbank.Bank0)
	d.clk.Delay(d.cfg.ResetSettle.duration())
	d.regs.Write16(regbank.RCR, regbank.RCRClear)
	d.regs.Write16(regbank.TCR, regbank.TCRClear)
	d.regs.Select(regbank.Bank1)
	d.regs.Set16(regbank.CTL, regbank.CTLAutoRelease)
	d.regs.Select(regbank.Bank2)
	d.waitMMU()
	d.regs.Write16(regbank.MMUCR, regbank.MMUReset)
	d.waitMMU()
	d.regs.Write16(regbank.INTREG, 0)
	d.state = StateReset
	d.log.debug("smc:reset")
}

// Enable turns on the transmitter and receiver with their default settings
// and unmasks the driver's interrupt sources.
func (d *Device) Enable() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.enable()
}

func (d *Device) enable() {
	d.regs.Select(regbank.Bank0)
	d.regs.Write16(regbank.TCR, regbank.TCRDefault)
	d.regs.Write16(regbank.RCR, regbank.RCRDefault)
	d.regs.Select(regbank.Bank2)
	d.regs.Write16(regbank.INTREG, regbank.IntDriverMask<<8)
	d.state = StateEnabled
	d.log.debug("smc:enable")
}

// Shutdown masks interrupts and disables the transmitter and receiver. With
// Config.PowerDown the EPH is also powered down.
func (d *Device) Shutdown() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.shutdown()
}

func (d *Device) shutdown() {
	d.regs.Select(regbank.Bank2)
	d.regs.Write16(regbank.INTREG, 0)
	d.regs.Select(regbank.Bank0)
	d.regs.Write16(regbank.RCR, regbank.RCRClear)
	d.regs.Write16(regbank.TCR, regbank.TCRClear)
	d.state = StateDisabled
	if d.cfg.PowerDown {
		d.regs.Select(regbank.Bank1)
		d.regs.Clear16(regbank.CONFIG, regbank.ConfigEPHPowerEn)
		d.state = StatePowerDown
	}
	d.log.debug("smc:shutdown", slog.String("state", d.state.String()))
}
