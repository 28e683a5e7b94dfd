// Package regbank implements access to the banked register window of the
// LAN91C111. A File tracks the currently selected bank and offers the
// 8, 16 and 32 bit accessors plus block transfers against the data register.
package regbank

import (
	"errors"
	"fmt"
)

// Window is the raw I/O window of the controller. Offsets are relative to the
// window base and are always below WindowSize. Implementations must perform
// exactly one bus access per call; registers such as DATA have side effects
// on every access.
type Window interface {
	Read8(off uint8) uint8
	Read16(off uint8) uint16
	Read32(off uint8) uint32
	Write8(off uint8, v uint8)
	Write16(off uint8, v uint16)
	Write32(off uint8, v uint32)
}

// File is a banked view over a Window. The zero value is not usable; call Init.
// File is not safe for concurrent use: the bank selection is shared state.
type File struct {
	w    Window
	bank Bank
}

var errNilWindow = errors.New("regbank: nil window")

// Init binds f to w and reads back the current bank selection from BSR.
func (f *File) Init(w Window) error {
	if w == nil {
		return errNilWindow
	}
	f.w = w
	f.bank = Bank(w.Read16(BSR) & bsrMask)
	return nil
}

// Window returns the underlying window.
func (f *File) Window() Window { return f.w }

// Select switches the window to bank b.
func (f *File) Select(b Bank) {
	if b >= numBanks {
		panic(fmt.Sprintf("regbank: bad bank %d", b))
	}
	f.w.Write16(BSR, uint16(b))
	f.bank = b
}

// Selected returns the bank last selected through f.
func (f *File) Selected() Bank { return f.bank }

// ReadBSR reads the bank select register directly. Its high byte is the
// constant chip signature.
func (f *File) ReadBSR() uint16 { return f.w.Read16(BSR) }

func (f *File) Read8(off uint8) uint8       { return f.w.Read8(off) }
func (f *File) Read16(off uint8) uint16     { return f.w.Read16(off) }
func (f *File) Read32(off uint8) uint32     { return f.w.Read32(off) }
func (f *File) Write8(off uint8, v uint8)   { f.w.Write8(off, v) }
func (f *File) Write16(off uint8, v uint16) { f.w.Write16(off, v) }
func (f *File) Write32(off uint8, v uint32) { f.w.Write32(off, v) }

// Set16 ORs bits into a 16 bit register in the selected bank.
func (f *File) Set16(off uint8, bits uint16) {
	f.w.Write16(off, f.w.Read16(off)|bits)
}

// Clear16 clears bits in a 16 bit register in the selected bank.
func (f *File) Clear16(off uint8, bits uint16) {
	f.w.Write16(off, f.w.Read16(off)&^bits)
}

// ReadBlock fills dst from the data register using 16 bit accesses,
// least significant byte first. An odd trailing byte is taken from the low
// byte of one extra word read.
func (f *File) ReadBlock(dst []byte) {
	n := len(dst) &^ 1
	for i := 0; i < n; i += 2 {
		v := f.w.Read16(DATA)
		dst[i] = byte(v)
		dst[i+1] = byte(v >> 8)
	}
	if len(dst)&1 != 0 {
		dst[n] = byte(f.w.Read16(DATA))
	}
}

// WriteBlock writes the even length prefix of src to the data register using
// 16 bit accesses and returns the number of bytes written. Odd trailing bytes
// belong to the frame's control word and are the caller's responsibility.
func (f *File) WriteBlock(src []byte) int {
	n := len(src) &^ 1
	for i := 0; i < n; i += 2 {
		f.w.Write16(DATA, uint16(src[i])|uint16(src[i+1])<<8)
	}
	return n
}

// ReadBlock32 is the 32 bit bus variant of ReadBlock. Remaining bytes after
// the last full dword are read with 16 bit accesses.
func (f *File) ReadBlock32(dst []byte) {
	n := len(dst) &^ 3
	for i := 0; i < n; i += 4 {
		v := f.w.Read32(DATA)
		dst[i] = byte(v)
		dst[i+1] = byte(v >> 8)
		dst[i+2] = byte(v >> 16)
		dst[i+3] = byte(v >> 24)
	}
	f.ReadBlock(dst[n:])
}

// WriteBlock32 is the 32 bit bus variant of WriteBlock.
func (f *File) WriteBlock32(src []byte) int {
	n := len(src) &^ 3
	for i := 0; i < n; i += 4 {
		f.w.Write32(DATA, uint32(src[i])|uint32(src[i+1])<<8|uint32(src[i+2])<<16|uint32(src[i+3])<<24)
	}
	return n + f.WriteBlock(src[n:])
}

// Snapshot holds the registers an interrupt-context operation must leave as
// it found them: bank selection, packet number and pointer.
type Snapshot struct {
	f    *File
	bank Bank
	pnr  uint8
	ptr  uint16
}

// Save records the bank selection and the bank 2 packet number and pointer
// registers. Bank 2 stays selected on return.
func (f *File) Save() Snapshot {
	s := Snapshot{f: f, bank: f.bank}
	f.Select(Bank2)
	s.pnr = f.w.Read8(PNR)
	s.ptr = f.w.Read16(PTR)
	return s
}

// Restore writes back the registers recorded by Save. The packet number is
// written first since the pointer addresses the selected packet.
func (s Snapshot) Restore() {
	s.f.Select(Bank2)
	s.f.w.Write8(PNR, s.pnr)
	s.f.w.Write16(PTR, s.ptr)
	s.f.Select(s.bank)
}

// Bank returns the bank selected when the snapshot was taken.
func (s Snapshot) Bank() Bank { return s.bank }

// PNR returns the saved packet number.
func (s Snapshot) PNR() uint8 { return s.pnr }

// PTR returns the saved pointer register.
func (s Snapshot) PTR() uint16 { return s.ptr }
