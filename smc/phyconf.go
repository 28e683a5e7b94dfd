package smc

import (
	"errors"
	"log/slog"

	"github.com/soypat/lan91c"
	"github.com/soypat/lan91c/internal"
	"github.com/soypat/lan91c/phy"
	"github.com/soypat/lan91c/regbank"
)

// ConfigurePHY resets the PHY and brings the link up, either by
// autonegotiating every mode the PHY is capable of or by forcing
// Config.ForceLink. The errors lan91c.ErrPhyResetTimeout,
// lan91c.ErrPhyAutonegTimeout and lan91c.ErrPhyRemoteFault leave the link
// degraded; the device remains usable.
func (d *Device) ConfigurePHY() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.configurePHY()
}

// ReadPHY reads a PHY register over the management interface.
func (d *Device) ReadPHY(reg uint8) (uint16, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.mii.Read(d.phy.PHYAddr(), 0, uint16(reg))
}

// WritePHY writes a PHY register over the management interface.
func (d *Device) WritePHY(reg uint8, value uint16) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.mii.Write(d.phy.PHYAddr(), 0, uint16(reg), value)
}

func (d *Device) configurePHY() error {
	d.link = phy.LinkDown
	if d.cfg.DetectPHY {
		addr, model, err := phy.Detect(&d.mii)
		if err != nil {
			d.log.error("smc:phy-detect", slog.String("err", err.Error()))
			return err
		}
		err = d.phy.ConfigureAs22(&d.mii, addr)
		if err != nil {
			return err
		}
		d.log.info("smc:phy-detect", slog.Uint64("addr", uint64(addr)), slog.String("model", model.String()))
	}
	interval := d.cfg.PHYPollInterval.duration()
	polls, err := d.phy.ResetPHY(d.clk, internal.Retry{Attempts: d.cfg.PHYResetAttempts, Interval: interval})
	if err != nil {
		if errors.Is(err, lan91c.ErrPhyResetTimeout) {
			d.stats.PhyResetTimeouts++
		}
		d.log.warn("smc:phy-reset", slog.Int("polls", polls), slog.String("err", err.Error()))
		return err
	}
	err = d.phy.MaskInterrupts(phy.IntMaskDefault)
	if err != nil {
		return err
	}
	mode, _ := phy.ParseLinkMode(d.cfg.ForceLink)
	if mode != phy.LinkDown {
		err = d.phy.SetupForced(mode)
		if err != nil {
			return err
		}
		d.writeRPC(rpcForced(mode))
		d.link = mode
		d.log.info("smc:phy-forced", slog.String("link", mode.String()))
		return nil
	}
	d.writeRPC(regbank.RPCDefault)

	caps, err := d.phy.BasicStatus()
	if err != nil {
		return err
	}
	err = d.phy.SetAdvertisement(phy.AdvertisementFor(caps))
	if err != nil {
		return err
	}
	ad, err := d.phy.Advertisement()
	if err != nil {
		return err
	}
	d.log.debug("smc:phy-advertise", internal.SlogHex16("caps", uint16(caps)), internal.SlogHex16("ad", uint16(ad)))
	err = d.phy.RestartAutoNeg()
	if err != nil {
		return err
	}
	status, polls, err := d.phy.AwaitAutoNeg(d.clk, internal.Retry{Attempts: d.cfg.PHYAutonegAttempts, Interval: interval})
	switch {
	case errors.Is(err, lan91c.ErrPhyAutonegTimeout):
		d.stats.AutonegTimeouts++
		d.log.warn("smc:phy-autoneg-timeout", slog.Int("polls", polls), internal.SlogHex16("status", uint16(status)))
	case err != nil:
		return err
	case status.RemoteFault():
		d.stats.RemoteFaults++
		d.log.warn("smc:phy-remote-fault", internal.SlogHex16("status", uint16(status)))
		err = lan91c.ErrPhyRemoteFault
	default:
		d.link, err = d.phy.NegotiatedLink()
		d.log.info("smc:phy-link", slog.String("link", d.link.String()), slog.Int("polls", polls))
	}
	d.writeRPC(regbank.RPCDefault)
	return err
}

// rpcForced returns the receive/PHY control value for a forced link mode.
func rpcForced(mode phy.LinkMode) uint16 {
	rpc := uint16(regbank.RPCDefault) &^ (regbank.RPCAutoNeg | regbank.RPCSpeed | regbank.RPCDuplex)
	if mode.SpeedMbps() == 100 {
		rpc |= regbank.RPCSpeed
	}
	if mode.IsFullDuplex() {
		rpc |= regbank.RPCDuplex
	}
	return rpc
}

func (d *Device) writeRPC(rpc uint16) {
	saved := d.regs.Selected()
	d.regs.Select(regbank.Bank0)
	d.regs.Write16(regbank.RPC, rpc)
	d.regs.Select(saved)
}
