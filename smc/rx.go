package smc

import (
	"fmt"
	"log/slog"

	"github.com/soypat/lan91c"
	"github.com/soypat/lan91c/internal"
	"github.com/soypat/lan91c/regbank"
)

// rxHeader is the status word and byte count preceding received data.
const rxHeader = 4

// Receive takes one frame from the receive FIFO. An empty FIFO returns 0 and a
// nil error. A frame received with error status is discarded and reported as
// lan91c.ErrReceiveError. Otherwise the frame is passed to the configured
// Sink and its length returned.
//
// The delivered length is the chip's byte count minus the status and count
// words, so it includes the trailing control word. The packet is released
// back to the MMU exactly once for every non-empty poll.
func (d *Device) Receive() (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.receive()
}

// Poll drains up to limit frames from the receive FIFO and returns the number
// delivered. Discarded frames do not stop the drain; err reports the last one.
func (d *Device) Poll(limit int) (delivered int, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.poll(limit)
}

func (d *Device) poll(limit int) (delivered int, err error) {
	for i := 0; i < limit; i++ {
		n, rerr := d.receive()
		if rerr != nil {
			err = rerr
			continue
		} else if n == 0 {
			break
		}
		delivered++
	}
	return delivered, err
}

func (d *Device) receive() (int, error) {
	snap := d.regs.Save()
	defer snap.Restore()
	fifo := d.regs.Read16(regbank.FIFO)
	if fifo&regbank.FIFORxEmpty != 0 {
		d.stats.RxEmptyPolls++
		return 0, nil
	}
	d.regs.Write16(regbank.PTR, regbank.PTRRcv|regbank.PTRAutoInc|regbank.PTRRead)
	status := d.regs.Read16(regbank.DATA)
	count := d.regs.Read16(regbank.DATA) & regbank.LengthMask
	n := int(count) - rxHeader
	discard := status&regbank.RSErrors != 0 || n < 0
	if !discard {
		buf := d.rxbuf[:n]
		if d.cfg.Use32Bit {
			d.regs.ReadBlock32(buf)
		} else {
			d.regs.ReadBlock(buf)
		}
	}
	d.release()
	if discard {
		d.stats.RxErrors++
		d.log.warn("smc:rx-discard", internal.SlogHex16("status", status), slog.Int("count", int(count)))
		return 0, fmt.Errorf("%w: status %#04x", lan91c.ErrReceiveError, status)
	}
	frame := d.rxbuf[:n]
	d.stats.RxFrames++
	d.stats.RxBytes += uint64(n)
	d.log.traceFrame("smc:rx", frame, internal.SlogHex16("status", status))
	if d.cfg.Sink != nil {
		d.cfg.Sink(frame)
	}
	return n, nil
}
