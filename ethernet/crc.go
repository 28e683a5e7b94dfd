package ethernet

import (
	"encoding/binary"
	"hash/crc32"
)

// fcsResidue is the CRC of any frame followed by its correct FCS.
const fcsResidue = 0x2144df1c

// CRC32 returns the IEEE 802.3 CRC of data, which runs from the destination
// address through the end of the payload.
func CRC32(data []byte) uint32 {
	return crc32.ChecksumIEEE(data)
}

// AppendFCS appends the frame check sequence of frame to dst in wire order,
// least significant byte first.
func AppendFCS(dst, frame []byte) []byte {
	return binary.LittleEndian.AppendUint32(dst, CRC32(frame))
}

// ValidFCS reports whether the last four bytes of frame are its FCS.
func ValidFCS(frame []byte) bool {
	return len(frame) >= 4 && CRC32(frame) == fcsResidue
}
