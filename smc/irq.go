package smc

import (
	"log/slog"

	"github.com/soypat/lan91c/internal"
	"github.com/soypat/lan91c/regbank"
)

// rxBudget bounds the frames drained by one interrupt service call.
const rxBudget = 8

// ServiceInterrupt handles the pending unmasked interrupt sources and is
// meant to be called from the platform's interrupt handler context. It takes
// the device lock, so it must not be called while a Sink is running.
//
// A failed transmission is reaped: its status is logged, the transmitter is
// re-enabled and the packet freed. Receive overruns are acknowledged and
// counted, and pending frames are delivered to the Sink. The returned error
// reports the last discarded receive frame, if any.
func (d *Device) ServiceInterrupt() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	snap := d.regs.Save()
	defer snap.Restore()

	word := d.regs.Read16(regbank.INTREG)
	pending := uint8(word) & uint8(word>>8)
	if pending == 0 {
		return nil
	}
	d.log.trace("smc:irq", slog.Uint64("pending", uint64(pending)))
	// EPH clears once reapTx re-enables the transmitter.
	if pending&(regbank.IntTx|regbank.IntEPH) != 0 {
		d.reapTx()
	}
	if pending&regbank.IntTxEmpty != 0 {
		d.regs.Write8(regbank.INT, regbank.IntTxEmpty)
		d.disableInterrupts(regbank.IntTxEmpty)
	}
	if pending&regbank.IntRxOvrn != 0 {
		d.stats.RxOverruns++
		d.regs.Write8(regbank.INT, regbank.IntRxOvrn)
		d.log.warn("smc:rx-overrun")
	}
	var err error
	if pending&regbank.IntRcv != 0 {
		_, err = d.poll(rxBudget)
	}
	return err
}

// reapTx handles the packet at the head of the transmit completion FIFO after
// a transmit error: the transmitter disables itself and keeps the packet.
func (d *Device) reapTx() {
	fifo := d.regs.Read16(regbank.FIFO)
	if fifo&regbank.FIFOTxEmpty != 0 {
		return
	}
	pn := uint8(fifo) & regbank.TxFIFONumMask
	d.regs.Write8(regbank.PNR, pn)
	d.regs.Write16(regbank.PTR, regbank.PTRAutoInc|regbank.PTRRead)
	status := d.regs.Read16(regbank.DATA)
	d.stats.TxErrors++
	attrs := []slog.Attr{slog.Uint64("pn", uint64(pn)), internal.SlogHex16("status", status)}
	switch {
	case status&regbank.TSLostCarr != 0:
		d.log.error("smc:tx-lost-carrier", attrs...)
	case status&regbank.TSLateCol != 0:
		d.log.error("smc:tx-late-collision", attrs...)
	case status&regbank.TSSuccess != 0:
		d.log.info("smc:tx-int-on-success", attrs...)
	default:
		d.log.error("smc:tx-error", attrs...)
	}
	d.regs.Select(regbank.Bank0)
	d.regs.Set16(regbank.TCR, regbank.TCREnable)
	d.regs.Select(regbank.Bank2)
	d.free(pn)
}
