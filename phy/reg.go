package phy

// See https://github.com/PieVo/mdio-tool/blob/master/mii.h

// Registers 0..15 as defined by 802.3 and the vendor registers of the SMSC
// LAN83C183 PHY embedded in the LAN91C111.
const (
	// First two registers are BMCR and BMSR. See below.

	regPhyId1 = 0x02
	regPhyId2 = 0x03

	RegConfig1 = 0x10 // LAN83C183 configuration 1.
	RegConfig2 = 0x11 // LAN83C183 configuration 2.
	RegIntStat = 0x12 // LAN83C183 status output, interrupt source.
	RegIntMask = 0x13 // LAN83C183 interrupt mask. Set bits are masked.
)

// BMCR represents the Basic Mode Control Register at address 0x00.
// Reference: IEEE 802.3 Clause 22.2.4.1
type BMCR uint16

const (
	AddrBMCR = 0x00 // Address of Basic Mode Control Register.

	BMCRCollision  BMCR = 0x0080 // Collision test
	BMCRFullDuplex BMCR = 0x0100 // Full duplex mode
	BMCRANRestart  BMCR = 0x0200 // Restart auto-negotiation
	BMCRIsolate    BMCR = 0x0400 // Isolate PHY from MII
	BMCRPowerDown  BMCR = 0x0800 // Power down PHY
	BMCRANEnable   BMCR = 0x1000 // Enable auto-negotiation
	BMCRSpeed100   BMCR = 0x2000 // Select 100Mbps
	BMCRLoopback   BMCR = 0x4000 // Enable TXD loopback
	BMCRReset      BMCR = 0x8000 // Software reset (self-clearing)

	// BMCRRestartFault is written to recover from a remote fault: restart
	// autonegotiation with 100Mbps full duplex as the parallel detect default.
	BMCRRestartFault = BMCRANEnable | BMCRANRestart | BMCRSpeed100 | BMCRFullDuplex
)

// BMSR represents the Basic Mode Status Register at address 0x01.
// Reference: IEEE 802.3 Clause 22.2.4.2
type BMSR uint16

const (
	AddrBMSR = 0x01 // Address of Basic Mode Status Register.

	BMSRExtCap      BMSR = 0x0001 // Extended register capability
	BMSRJabber      BMSR = 0x0002 // Jabber detected
	BMSRLinkStatus  BMSR = 0x0004 // Link status (1=up)
	BMSRANCap       BMSR = 0x0008 // Auto-negotiation capable
	BMSRRemoteFault BMSR = 0x0010 // Remote fault detected
	BMSRANComplete  BMSR = 0x0020 // Auto-negotiation complete
	BMSR10Half      BMSR = 0x0800 // 10Mbps half-duplex capable
	BMSR10Full      BMSR = 0x1000 // 10Mbps full-duplex capable
	BMSR100Half     BMSR = 0x2000 // 100Mbps half-duplex capable
	BMSR100Full     BMSR = 0x4000 // 100Mbps full-duplex capable
	BMSR100Base4    BMSR = 0x8000 // 100BASE-T4 capable
)

// LinkUp returns true if the latched link status bit is set.
func (s BMSR) LinkUp() bool { return s&BMSRLinkStatus != 0 }

// AutoNegotiationComplete returns true if autonegotiation has been acknowledged.
func (s BMSR) AutoNegotiationComplete() bool { return s&BMSRANComplete != 0 }

// RemoteFault returns true if the link partner signalled a remote fault.
func (s BMSR) RemoteFault() bool { return s&BMSRRemoteFault != 0 }

// ANAR represents the Auto-Negotiation Advertisement Register value at address 0x04.
// ANLPAR (Link Partner Ability Register at 0x05) shares the same bit layout.
// Reference: IEEE 802.3 Clause 28.2.4.1
type ANAR uint16

const (
	AddrANAR   = 0x04 // Address of Auto-Negotiation Advertisement Register.
	AddrANLPAR = 0x05 // Address of Auto-Negotiation Link Partner Advertisement Register.

	ANARSelector8023 ANAR = 0x0001 // IEEE 802.3 selector value (CSMA/CD)
	ANAR10Half       ANAR = 0x0020 // 10BASE-T half-duplex
	ANAR10Full       ANAR = 0x0040 // 10BASE-T full-duplex
	ANAR100Half      ANAR = 0x0080 // 100BASE-TX half-duplex
	ANAR100Full      ANAR = 0x0100 // 100BASE-TX full-duplex
	ANAR100BaseT4    ANAR = 0x0200 // 100BASE-T4
	ANARRemoteFault  ANAR = 0x2000 // Remote fault
	ANARAck          ANAR = 0x4000 // Acknowledge (ANLPAR only)
	ANARNextPage     ANAR = 0x8000 // Next page capable
)

// AdvertisementFor maps the capability bits of a status register onto the
// advertisement register, always advertising CSMA/CD.
func AdvertisementFor(caps BMSR) ANAR {
	a := ANARSelector8023
	if caps&BMSR100Base4 != 0 {
		a |= ANAR100BaseT4
	}
	if caps&BMSR100Full != 0 {
		a |= ANAR100Full
	}
	if caps&BMSR100Half != 0 {
		a |= ANAR100Half
	}
	if caps&BMSR10Full != 0 {
		a |= ANAR10Full
	}
	if caps&BMSR10Half != 0 {
		a |= ANAR10Half
	}
	return a
}

func (l LinkMode) ANAR() (a ANAR) {
	switch l {
	case Link10HDX:
		a = ANAR10Half
	case Link10FDX:
		a = ANAR10Full
	case Link100HDX:
		a = ANAR100Half
	case Link100FDX:
		a = ANAR100Full
	case Link100T4:
		a = ANAR100BaseT4
	}
	return a
}

// LinkMode returns the highest priority LinkMode from the ANAR speed bits.
// Priority order per IEEE 802.3 Annex 28B.3.
// Returns LinkDown if no speed bits are set.
func (a ANAR) LinkMode() LinkMode {
	switch {
	case a&ANAR100Full != 0:
		return Link100FDX
	case a&ANAR100BaseT4 != 0:
		return Link100T4
	case a&ANAR100Half != 0:
		return Link100HDX
	case a&ANAR10Full != 0:
		return Link10FDX
	case a&ANAR10Half != 0:
		return Link10HDX
	default:
		return LinkDown
	}
}

// IntMask holds LAN83C183 interrupt source bits as found in RegIntStat and
// RegIntMask.
type IntMask uint16

const (
	IntDplxDet  IntMask = 0x0040 // Duplex detect.
	IntSpdDet   IntMask = 0x0080 // Speed detect.
	IntJab      IntMask = 0x0100 // Jabber.
	IntRPol     IntMask = 0x0200 // Reverse polarity.
	IntESD      IntMask = 0x0400 // End of stream delimiter error.
	IntSSD      IntMask = 0x0800 // Start of stream delimiter error.
	IntCWrd     IntMask = 0x1000 // Invalid 4B5B code word.
	IntLossSync IntMask = 0x2000 // Descrambler lost sync.
	IntLnkFail  IntMask = 0x4000 // Link failure.
	IntInt      IntMask = 0x8000 // Interrupt pending.

	// IntMaskDefault masks every event source except link failure.
	IntMaskDefault = IntLossSync | IntCWrd | IntSSD | IntESD | IntRPol | IntJab | IntSpdDet | IntDplxDet
)

// LinkMode represents the negotiated/force-set Ethernet link speed and duplex mode.
//
// Naming convention:
//   - H/HDX: Half-duplex (one direction at a time)
//   - F/FDX: Full-duplex (simultaneous bidirectional)
//   - T4: 100BASE-T4 (100Mbps over 4 twisted pairs, legacy)
type LinkMode uint8

const (
	LinkDown   LinkMode = iota // down
	Link10HDX                  // 10M-H
	Link10FDX                  // 10M-F
	Link100HDX                 // 100M-H
	Link100FDX                 // 100M-F
	Link100T4                  // 100M-T4
)

// SpeedMbps returns the link speed in megabits per second.
func (lm LinkMode) SpeedMbps() int {
	switch lm {
	case Link10HDX, Link10FDX:
		return 10
	case Link100HDX, Link100FDX, Link100T4:
		return 100
	default:
		return 0
	}
}

// IsFullDuplex returns true if the link mode is full duplex.
func (lm LinkMode) IsFullDuplex() bool {
	return lm == Link10FDX || lm == Link100FDX
}

// ParseLinkMode parses the String form of a LinkMode. The empty string and
// "auto" parse as LinkDown, meaning autonegotiated.
func ParseLinkMode(s string) (LinkMode, bool) {
	if s == "" || s == "auto" {
		return LinkDown, true
	}
	for lm := Link10HDX; lm <= Link100T4; lm++ {
		if lm.String() == s {
			return lm, true
		}
	}
	return LinkDown, false
}
