package ethernet

import (
	"strconv"
)

const (
	sizeHeaderNoVLAN = 14
)

// AppendAddr appends the text representation of the hardware address to the destination buffer.
func AppendAddr(dst []byte, hwAddr [6]byte) []byte {
	for i, b := range hwAddr {
		if i != 0 {
			dst = append(dst, ':')
		}
		if b < 16 {
			dst = append(dst, '0')
		}
		dst = strconv.AppendUint(dst, uint64(b), 16)
	}
	return dst
}

// BroadcastAddr returns the all 0xff's broadcast hardware/MAC/EUI/OUI address.
func BroadcastAddr() [6]byte {
	return [6]byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}
}

//go:generate stringer -type=Type -linecomment -output stringers.go .

// Type is the EtherType or size field of an Ethernet header.
type Type uint16

// IsSize returns true if the EtherType is actually the size of the payload
// and should NOT be interpreted as an EtherType.
func (et Type) IsSize() bool { return et <= 1500 }

// Ethernet type flags
const (
	TypeIPv4      Type = 0x0800 // IPv4
	TypeARP       Type = 0x0806 // ARP
	TypeWakeOnLAN Type = 0x0842 // wake on LAN
	TypeIPv6      Type = 0x86DD // IPv6
	TypeVLAN      Type = 0x8100 // VLAN
	TypeLLDP      Type = 0x88CC // LLDP
	// minEthPayload is the minimum payload size for an Ethernet frame, assuming
	// that no 802.1Q VLAN tags are present.
	minEthPayload = 46
	// MinFrameSize is the minimum frame size without FCS: header plus minimum payload.
	MinFrameSize = sizeHeaderNoVLAN + minEthPayload
	// MaxFrameSize is the maximum untagged frame size without FCS.
	MaxFrameSize = sizeHeaderNoVLAN + 1500
	// SizeFCS is the length of the frame check sequence trailer.
	SizeFCS = 4
)

// VLANTag holds priority (PCP) Drop indicator (DEI) and VLAN ID bits of the VLAN tag field.
type VLANTag uint16

// VLANIdentifier 12 bit field which specifies which VLAN the frame belongs to. Values of 0 and 4095 are reserved.
func (vt VLANTag) VLANIdentifier() uint16 { return uint16(vt) >> 4 }
