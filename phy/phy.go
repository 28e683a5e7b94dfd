// Package phy provides Ethernet PHY management via MDIO.
// It supports IEEE 802.3 Clause 22 register access for configuring and
// monitoring physical layer transceivers, and a software clocked management
// station for controllers that expose the MII pins through a register.
package phy

// Add more stringers in linecomment mode by adding them to type flag (comma separated).
//go:generate stringer -type=LinkMode -linecomment -output=phy_stringers.go

import (
	"errors"

	"github.com/soypat/lan91c"
	"github.com/soypat/lan91c/internal"
)

// Model identifies a known PHY by its identifier registers.
type Model uint8

const (
	ModelUnknown  Model = iota
	ModelLAN83C183      // LAN83C183, internal PHY of the LAN91C111.
	ModelLAN83C180
)

func (m Model) String() string {
	switch m {
	case ModelLAN83C183:
		return "LAN83C183 (LAN91C111 Internal)"
	case ModelLAN83C180:
		return "LAN83C180"
	}
	return "unknown"
}

// ModelFromID identifies a PHY from its ID1 and ID2 registers. The revision
// nibble of ID2 is ignored.
func ModelFromID(id1, id2 uint16) Model {
	switch {
	case id1 == 0x0016 && id2&0xfff0 == 0xf840:
		return ModelLAN83C183
	case id1 == 0x0282 && id2&0xfff0 == 0x1c50:
		return ModelLAN83C180
	}
	return ModelUnknown
}

func validID(id1, id2 uint16) bool {
	return id1 != 0 && id1 != 0xffff && id2 != 0 && id2 != 0xffff &&
		id1 != 0x8000 && id2 != 0x8000
}

// Detect scans the 32 Clause 22 addresses for a PHY with valid identifier
// registers and returns the first found.
func Detect(mdio MDIOBus) (addr uint8, model Model, err error) {
	const maxAddr = 31
	for addr = 0; addr <= maxAddr; addr++ {
		id1, err1 := mdio.Read(addr, 0, regPhyId1)
		id2, err2 := mdio.Read(addr, 0, regPhyId2)
		if err1 != nil || err2 != nil {
			continue
		}
		if validID(id1, id2) {
			return addr, ModelFromID(id1, id2), nil
		}
	}
	return 0, ModelUnknown, lan91c.ErrPhyNotFound
}

var errInvalidPhyAddr = errors.New("phy: address out of range")

type Device struct {
	mdio    MDIOBus
	phyaddr uint8
}

// ConfigureAs22 resets all state of device to be used as a Clause22 device. Does not do a software reset.
func (phy *Device) ConfigureAs22(mdio MDIOBus, phyAddr uint8) error {
	if phyAddr > 31 {
		return errInvalidPhyAddr
	} else if mdio == nil {
		return lan91c.ErrInvalidConfig
	}
	phy.mdio = mdio
	phy.phyaddr = phyAddr
	return nil
}

// PHYAddr returns the PHY address on the MDIO bus (0-31).
func (phy *Device) PHYAddr() uint8 {
	return phy.phyaddr
}

// BasicControl reads the Basic Mode Control Register (BMCR, register 0).
func (phy *Device) BasicControl() (BMCR, error) {
	ctl, err := phy.rread(AddrBMCR)
	return BMCR(ctl), err
}

// SetBasicControl writes the Basic Mode Control Register.
func (phy *Device) SetBasicControl(ctl BMCR) error {
	return phy.rwrite(AddrBMCR, uint16(ctl))
}

// BasicStatus reads the Basic Mode Status Register (BMSR, register 1).
func (phy *Device) BasicStatus() (BMSR, error) {
	stat, err := phy.rread(AddrBMSR)
	return BMSR(stat), err
}

// ID1 reads the PHY Identifier 1 register (register 2), containing bits 3-18 of the OUI.
func (phy *Device) ID1() (uint16, error) {
	return phy.rread(regPhyId1)
}

// ID2 reads the PHY Identifier 2 register (register 3), containing bits 19-24 of the OUI and model/revision.
func (phy *Device) ID2() (uint16, error) {
	return phy.rread(regPhyId2)
}

// ResetPHY writes the reset bit, clearing all other control bits, and polls
// the control register under policy until the bit self-clears. The policy's
// Interval follows every poll that still sees the reset bit set, so a PHY
// that never completes costs Attempts reads and Attempts intervals.
// No register is written after the reset command.
func (phy *Device) ResetPHY(clk lan91c.Clock, policy internal.Retry) (polls int, err error) {
	err = phy.rwrite(AddrBMCR, uint16(BMCRReset))
	if err != nil {
		return 0, err
	}
	var ioerr error
	polls, ok := policy.Poll(clk, func() bool {
		ctl, err := phy.BasicControl()
		if err != nil {
			ioerr = err
			return false
		}
		return ctl&BMCRReset == 0
	})
	if ok {
		return polls, nil
	} else if ioerr != nil {
		return polls, ioerr
	}
	return polls, lan91c.ErrPhyResetTimeout
}

// MaskInterrupts writes the vendor interrupt mask register.
func (phy *Device) MaskInterrupts(mask IntMask) error {
	return phy.rwrite(RegIntMask, uint16(mask))
}

// InterruptStatus reads and thereby clears the vendor interrupt status register.
func (phy *Device) InterruptStatus() (IntMask, error) {
	v, err := phy.rread(RegIntStat)
	return IntMask(v), err
}

// SetupForced disables auto-negotiation and forces a specific link mode.
//
// Inspired by drivers/net/phy/phy_device.c
func (phy *Device) SetupForced(mode LinkMode) error {
	var ctl BMCR
	switch mode.SpeedMbps() {
	case 100:
		ctl |= BMCRSpeed100
	case 10:
		// No speed bits = 10Mbps
	default:
		return lan91c.ErrInvalidConfig
	}
	if mode.IsFullDuplex() {
		ctl |= BMCRFullDuplex
	}
	// Note: BMCRANEnable is NOT set, disabling auto-negotiation
	return phy.rwrite(AddrBMCR, uint16(ctl))
}

// Advertisement reads the current Auto-Negotiation Advertisement Register.
func (phy *Device) Advertisement() (ANAR, error) {
	val, err := phy.rread(AddrANAR)
	return ANAR(val), err
}

// SetAdvertisement writes to the Auto-Negotiation Advertisement Register.
// Does NOT restart auto-negotiation; call RestartAutoNeg() after if needed.
func (phy *Device) SetAdvertisement(ad ANAR) error {
	return phy.rwrite(AddrANAR, uint16(ad))
}

// LinkPartnerAdvertisement reads what the link partner is advertising (ANLPAR).
func (phy *Device) LinkPartnerAdvertisement() (ANAR, error) {
	val, err := phy.rread(AddrANLPAR)
	return ANAR(val), err
}

// RestartAutoNeg writes the control register with only the enable and
// restart autonegotiation bits set.
func (phy *Device) RestartAutoNeg() error {
	return phy.rwrite(AddrBMCR, uint16(BMCRANEnable|BMCRANRestart))
}

// AwaitAutoNeg polls the status register under policy until autonegotiation
// is acknowledged. A remote fault seen while waiting restarts negotiation
// within the same poll. The last status read is returned; if negotiation
// never completes the error is lan91c.ErrPhyAutonegTimeout.
func (phy *Device) AwaitAutoNeg(clk lan91c.Clock, policy internal.Retry) (status BMSR, polls int, err error) {
	var ioerr error
	polls, ok := policy.Poll(clk, func() bool {
		status, ioerr = phy.BasicStatus()
		if ioerr != nil {
			return false
		}
		if status.AutoNegotiationComplete() {
			return true
		}
		if status.RemoteFault() {
			ioerr = phy.rwrite(AddrBMCR, uint16(BMCRRestartFault))
		}
		return false
	})
	if ok {
		return status, polls, nil
	} else if ioerr != nil {
		return status, polls, ioerr
	}
	return status, polls, lan91c.ErrPhyAutonegTimeout
}

// IsLinkUp returns true if link is established.
func (phy *Device) IsLinkUp() (bool, error) {
	status, err := phy.BasicStatus()
	if err != nil {
		return false, err
	}
	return status.LinkUp(), nil
}

// NegotiatedLink returns the auto-negotiated link mode using standard MII registers.
// Returns LinkMode based on ANAR (our advertisement) AND ANLPAR (link partner ability).
// Priority order per IEEE 802.3 Annex 28B.3.
func (phy *Device) NegotiatedLink() (LinkMode, error) {
	status, err := phy.BasicStatus()
	if err != nil {
		return LinkDown, err
	}
	if !status.AutoNegotiationComplete() {
		return LinkDown, errors.New("auto-negotiation not complete")
	}
	anar, err := phy.Advertisement()
	if err != nil {
		return LinkDown, err
	}
	anlpar, err := phy.LinkPartnerAdvertisement()
	if err != nil {
		return LinkDown, err
	}
	// Common capabilities = what both sides support
	common := anar & anlpar
	return common.LinkMode(), nil
}

func (phy *Device) rread(regaddr uint16) (uint16, error) {
	return phy.mdio.Read(phy.phyaddr, 0, regaddr)
}

func (phy *Device) rwrite(regaddr, value uint16) error {
	return phy.mdio.Write(phy.phyaddr, 0, regaddr, value)
}
