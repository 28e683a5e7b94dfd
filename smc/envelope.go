package smc

import (
	"encoding/binary"
	"errors"

	"github.com/soypat/lan91c"
	"github.com/soypat/lan91c/ethernet"
	"github.com/soypat/lan91c/regbank"
)

const (
	// MinFrameLength is the length short frames are zero padded to before
	// transmission. It excludes the FCS.
	MinFrameLength = ethernet.MinFrameSize
	// MaxPages is the largest packet the MMU allocates, in 256 byte pages.
	MaxPages = 7
	// envelopeOverhead is the status word, byte count word and control word
	// framing every packet in chip memory.
	envelopeOverhead = 6
)

var errShortEnvelope = errors.New("smc: packet envelope truncated")

// Pages returns the number of 256 byte pages the MMU must allocate for a
// frame of n bytes. The chip counts pages beyond the first, so a result of 0
// is one page. Frames needing more than MaxPages fail with
// lan91c.ErrFrameTooLarge.
func Pages(n int) (uint8, error) {
	n = max(n, MinFrameLength)
	pages := (n&^1 + envelopeOverhead) >> 8
	if pages > MaxPages {
		return 0, lan91c.ErrFrameTooLarge
	}
	return uint8(pages), nil
}

// AppendEnvelope appends the packet memory image of frame to dst: a zero
// status word, the byte count, the frame zero padded to MinFrameLength and the
// control word. An odd length frame carries its last byte in the control word
// with the odd flag set. The byte count is the padded length plus the
// envelope overhead.
func AppendEnvelope(dst, frame []byte) ([]byte, error) {
	if _, err := Pages(len(frame)); err != nil {
		return dst, err
	}
	padded := max(len(frame), MinFrameLength)
	even := padded &^ 1
	dst = binary.LittleEndian.AppendUint16(dst, 0)
	dst = binary.LittleEndian.AppendUint16(dst, uint16(padded+envelopeOverhead))
	dst = append(dst, frame[:min(len(frame), even)]...)
	for i := len(frame); i < even; i++ {
		dst = append(dst, 0)
	}
	if padded&1 != 0 {
		// Only reachable when len(frame) == padded.
		return append(dst, frame[even], regbank.CtlOdd), nil
	}
	return append(dst, 0, 0), nil
}

// DecodeEnvelope parses a packet memory image and returns the frame it holds
// and the status word. The returned frame aliases raw.
func DecodeEnvelope(raw []byte) (frame []byte, status uint16, err error) {
	if len(raw) < envelopeOverhead {
		return nil, 0, errShortEnvelope
	}
	status = binary.LittleEndian.Uint16(raw[0:2])
	count := int(binary.LittleEndian.Uint16(raw[2:4])&regbank.LengthMask) &^ 1
	if count < envelopeOverhead || count > len(raw) {
		return nil, status, errShortEnvelope
	}
	end := count - 2
	if raw[count-1]&regbank.CtlOdd != 0 {
		end++
	}
	return raw[4:end], status, nil
}
