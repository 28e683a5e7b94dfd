package phy

// MDIOBus is a HAL for MDIO bus access.
// devAddr selects Clause 45 framing when non-zero; implementations that only
// speak Clause 22 return an error for it.
//
// Register address range: Clause 22 uses 0-31, Clause 45 uses 0-65535.
type MDIOBus interface {
	// Read reads a 16-bit register from the PHY.
	Read(phyAddr, devAddr uint8, regAddr uint16) (value uint16, err error)
	// Write writes a 16-bit value to a PHY register.
	Write(phyAddr, devAddr uint8, regAddr, value uint16) error
}
