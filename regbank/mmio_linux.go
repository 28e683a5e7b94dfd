//go:build linux && !baremetal

package regbank

import (
	"errors"
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

// DevMem is the physical memory device MapWindow maps by default.
const DevMem = "/dev/mem"

// MMIO is a Window backed by a memory mapping of the controller's register
// window, typically obtained from /dev/mem on a board with the chip on a
// memory mapped bus.
type MMIO struct {
	mem []byte
	off int
}

var _ Window = (*MMIO)(nil)

// MapWindow maps the register window located at physical address base of the
// memory device at path. If path is empty DevMem is used.
func MapWindow(path string, base int64) (*MMIO, error) {
	if path == "" {
		path = DevMem
	}
	if base < 0 {
		return nil, errors.New("regbank: negative base address")
	}
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_SYNC|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, &os.PathError{Op: "open", Path: path, Err: err}
	}
	defer unix.Close(fd)
	pagesize := int64(unix.Getpagesize())
	pageBase := base &^ (pagesize - 1)
	off := int(base - pageBase)
	length := int(pagesize)
	if off+WindowSize > length {
		length += int(pagesize)
	}
	mem, err := unix.Mmap(fd, pageBase, length, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("regbank: mmap %s at %#x: %w", path, pageBase, err)
	}
	return &MMIO{mem: mem, off: off}, nil
}

// Close unmaps the window. The MMIO must not be used afterwards.
func (m *MMIO) Close() error {
	if m.mem == nil {
		return nil
	}
	err := unix.Munmap(m.mem)
	m.mem = nil
	return err
}

func (m *MMIO) addr(off uint8) unsafe.Pointer {
	if int(off) >= WindowSize {
		panic("regbank: offset outside window")
	}
	return unsafe.Pointer(&m.mem[m.off+int(off)])
}

func (m *MMIO) Read8(off uint8) uint8       { return *(*uint8)(m.addr(off)) }
func (m *MMIO) Read16(off uint8) uint16     { return *(*uint16)(m.addr(off)) }
func (m *MMIO) Read32(off uint8) uint32     { return *(*uint32)(m.addr(off)) }
func (m *MMIO) Write8(off uint8, v uint8)   { *(*uint8)(m.addr(off)) = v }
func (m *MMIO) Write16(off uint8, v uint16) { *(*uint16)(m.addr(off)) = v }
func (m *MMIO) Write32(off uint8, v uint32) { *(*uint32)(m.addr(off)) = v }
