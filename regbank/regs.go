package regbank

// Register map of the LAN91C111 I/O window. The window is 16 bytes wide and
// multiplexes four banks of registers; BSR is visible from every bank.
// Reference: SMSC LAN91C111 datasheet, section 8.

// Bank selects one of the register pages mapped onto the I/O window.
type Bank uint8

const (
	Bank0 Bank = iota // TCR, EPH status, RCR, counter, MIR, RPC.
	Bank1             // configuration, base, individual address, general purpose, control.
	Bank2             // MMU command, packet number, FIFOs, pointer, data, interrupts.
	Bank3             // multicast table, management, revision, early receive.

	numBanks = 4
)

// WindowSize is the number of byte addresses spanned by the I/O window.
const WindowSize = 16

// Bank select register, present in all banks.
const (
	BSR = 0x0e
	// BSRSignature is the constant high byte of BSR used to detect the chip.
	BSRSignature = 0x3300
	bsrMask      = 0x0007
)

// Bank 0 registers.
const (
	TCR = 0x00 // Transmit control.
	EPH = 0x02 // EPH status, holds status of last transmitted frame.
	RCR = 0x04 // Receive control.
	ECR = 0x06 // Counter.
	MIR = 0x08 // Memory information. Low byte: size, high byte: free; in 2K units.
	RPC = 0x0a // Receive/PHY control.
)

// Bank 1 registers.
const (
	CONFIG = 0x00 // Configuration; not affected by soft reset.
	BASE   = 0x02 // Base address.
	ADDR0  = 0x04 // Individual address, bytes 0..5 at ADDR0..ADDR0+5.
	GP     = 0x0a // General purpose.
	CTL    = 0x0c // Control.
)

// Bank 2 registers.
const (
	MMUCR  = 0x00 // MMU command.
	PNR    = 0x02 // Packet number (byte).
	ARR    = 0x03 // Allocation result (byte).
	FIFO   = 0x04 // Low byte: TX completion FIFO, high byte: RX FIFO.
	PTR    = 0x06 // Pointer.
	DATA   = 0x08 // Data, 0x08..0x0b.
	INT    = 0x0c // Interrupt status (read) / acknowledge (write), byte.
	IMASK  = 0x0d // Interrupt mask, byte.
	INTREG = INT  // Word access: low byte status/ack, high byte mask.
)

// Bank 3 registers.
const (
	MCAST = 0x00 // Multicast table, 8 bytes.
	MGMT  = 0x08 // Management interface.
	REV   = 0x0a // Revision.
	ERCV  = 0x0c // Early receive.
)

// TCR bits.
const (
	TCREnable   = 0x0001
	TCRLoop     = 0x0002
	TCRForceCol = 0x0004
	TCRPadEn    = 0x0080
	TCRNoCRC    = 0x0100
	TCRMonCSN   = 0x0400
	TCRFullDup  = 0x0800
	TCRStopSQET = 0x1000
	TCREPHLoop  = 0x2000
	TCRSwFullDp = 0x8000

	TCRClear   = 0x0000
	TCRDefault = TCREnable
)

// RCR bits.
const (
	RCRRxAbort  = 0x0001
	RCRPromisc  = 0x0002
	RCRAllMulti = 0x0004
	RCRRxEn     = 0x0100
	RCRStripCRC = 0x0200
	RCRAbortEn  = 0x2000
	RCRFiltCar  = 0x4000
	RCRSoftRst  = 0x8000

	RCRClear   = 0x0000
	RCRDefault = RCRRxEn | RCRStripCRC
)

// RPC bits and LED selectors.
const (
	RPCSpeed    = 0x2000
	RPCDuplex   = 0x1000
	RPCAutoNeg  = 0x0800
	rpcLSXAShft = 5
	rpcLSXBShft = 2

	RPCLED100_10 = 0x00 // LED on for 100 or 10 Mbps link.
	RPCLEDRes    = 0x01
	RPCLED10     = 0x02
	RPCLEDFD     = 0x03
	RPCLEDTxRx   = 0x04
	RPCLED100    = 0x05
	RPCLEDTx     = 0x06
	RPCLEDRx     = 0x07

	RPCDefault = RPCAutoNeg | RPCLED100<<rpcLSXAShft | RPCLEDFD<<rpcLSXBShft | RPCSpeed | RPCDuplex
)

// CONFIG bits.
const (
	ConfigExtPHY     = 0x0200
	ConfigGPCntrl    = 0x0400
	ConfigNoWait     = 0x1000
	ConfigEPHPowerEn = 0x8000

	ConfigDefault = ConfigEPHPowerEn
)

// CTL bits.
const (
	CTLStore       = 0x0001
	CTLReload      = 0x0002
	CTLEEPROMSel   = 0x0004
	CTLTEEnable    = 0x0020
	CTLCREnable    = 0x0040
	CTLLEEnable    = 0x0080
	CTLAutoRelease = 0x0800
	CTLRcvBad      = 0x4000

	CTLPowerOn = 0x1210
)

// MMU commands, written to MMUCR. MMUBusy is read back while a command runs.
const (
	MMUBusy      = 0x0001
	MMUNop       = 0x0000
	MMUAlloc     = 0x0020 // OR with page count 0..7.
	MMUReset     = 0x0040
	MMURemove    = 0x0060 // Remove packet at top of RX FIFO.
	MMURelease   = 0x0080 // Remove and release packet at top of RX FIFO.
	MMUFreePkt   = 0x00a0 // Release packet in PNR.
	MMUEnqueue   = 0x00c0 // Enqueue packet in PNR for transmission.
	MMUResetTxFi = 0x00e0

	mmuCommandMask = 0x00e0
	MMUPagesMask   = 0x0007
)

// MMUCommand returns the command portion of a value written to MMUCR.
func MMUCommand(v uint16) uint16 { return v & mmuCommandMask }

// ARR/FIFO bits.
const (
	ARRFailed     = 0x80
	FIFOTxEmpty   = 0x0080
	FIFORxEmpty   = 0x8000
	PacketNumMask = 0x3f
	TxFIFONumMask = 0x7f
)

// PTR bits.
const (
	PTRRcv     = 0x8000
	PTRAutoInc = 0x4000
	PTRRead    = 0x2000
	PTREarlyTx = 0x1000
	PTROffMask = 0x07ff
)

// Interrupt status and mask bits.
const (
	IntRcv     = 0x01
	IntTx      = 0x02
	IntTxEmpty = 0x04
	IntAlloc   = 0x08
	IntRxOvrn  = 0x10
	IntEPH     = 0x20
	IntERcv    = 0x40
	IntMD      = 0x80

	// IntDriverMask is the set the driver unmasks when enabled.
	IntDriverMask = IntEPH | IntRxOvrn | IntRcv
)

// Management register bits.
const (
	MgmtMDO       = 0x0001
	MgmtMDI       = 0x0002
	MgmtMCLK      = 0x0004
	MgmtMDOE      = 0x0008
	MgmtMskCRS100 = 0x4000

	MgmtLines = MgmtMDO | MgmtMDI | MgmtMCLK | MgmtMDOE
)

// Receive frame status word bits.
const (
	RSMulticast = 0x0001
	RSTooShort  = 0x0400
	RSTooLong   = 0x0800
	RSOddFrame  = 0x1000
	RSBadCRC    = 0x2000
	RSBroadcast = 0x4000
	RSAlignErr  = 0x8000

	RSErrors = RSAlignErr | RSBadCRC | RSTooLong | RSTooShort
)

// Transmit status word bits, also found in the EPH status register.
const (
	TSSuccess  = 0x0001
	TSSnglCol  = 0x0002
	TSMulCol   = 0x0004
	TSLtxMult  = 0x0008
	TS16Col    = 0x0010
	TSSQET     = 0x0020
	TSLtxBrd   = 0x0040
	TSTxDefr   = 0x0080
	TSLateCol  = 0x0200
	TSLostCarr = 0x0400
	TSExcDef   = 0x0800
	TSCtrRol   = 0x1000
	TSLinkOK   = 0x4000
	TSTxUnrn   = 0x8000
)

// Frame control byte bits, high byte of the last word of a packet.
const (
	CtlOdd = 0x20
	CtlCRC = 0x10
)

// PageSize is the MMU allocation granule in bytes as used for the page
// count of an allocation request.
const PageSize = 256

// MemoryUnit is the MIR multiplier: bytes of packet memory per MIR count.
const MemoryUnit = 2048

// LengthMask masks the byte count word of a packet.
const LengthMask = 0x07ff

// ChipName returns the chip family named by the revision register's chip id
// field, or the empty string if the id is unknown.
func ChipName(rev uint16) string {
	switch (rev >> 4) & 0xf {
	case 3:
		return "SMC91C90/91C92"
	case 4:
		return "SMC91C94"
	case 5:
		return "SMC91C95"
	case 6:
		return "SMC91C96"
	case 7:
		return "SMC91C100"
	case 8:
		return "SMC91C100FD"
	case 9:
		return "SMC91C11xFD"
	}
	return ""
}
