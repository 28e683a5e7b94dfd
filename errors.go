package lan91c

import "strconv"

type errGeneric uint8

// Errors reported by the driver core. Allocation and timeout errors are
// transient: the caller may retry the operation later.
const (
	_                      errGeneric = iota // non-initialized err
	ErrHardwareNotDetected                   // hardware not detected
	ErrAllocationExhausted                   // packet allocation exhausted
	ErrAllocationFailed                      // packet allocation failed
	ErrFrameTooLarge                         // frame too large
	ErrTransmitAllocation                    // transmit allocation failed
	ErrTransmitTimeout                       // transmit timeout
	ErrReceiveError                          // receive error, frame discarded
	ErrPhyResetTimeout                       // PHY reset timeout
	ErrPhyAutonegTimeout                     // PHY autonegotiation timeout
	ErrPhyRemoteFault                        // PHY remote fault
	ErrPhyNotFound                           // PHY not found
	ErrMACAddressMissing                     // hardware address missing
	ErrBadHardwareAddr                       // malformed hardware address
	ErrInvalidConfig                         // invalid configuration
)

func (err errGeneric) Error() string {
	return err.String()
}

func (err errGeneric) String() string {
	switch err {
	case ErrHardwareNotDetected:
		return "hardware not detected"
	case ErrAllocationExhausted:
		return "packet allocation exhausted"
	case ErrAllocationFailed:
		return "packet allocation failed"
	case ErrFrameTooLarge:
		return "frame too large"
	case ErrTransmitAllocation:
		return "transmit allocation failed"
	case ErrTransmitTimeout:
		return "transmit timeout"
	case ErrReceiveError:
		return "receive error, frame discarded"
	case ErrPhyResetTimeout:
		return "PHY reset timeout"
	case ErrPhyAutonegTimeout:
		return "PHY autonegotiation timeout"
	case ErrPhyRemoteFault:
		return "PHY remote fault"
	case ErrPhyNotFound:
		return "PHY not found"
	case ErrMACAddressMissing:
		return "hardware address missing"
	case ErrBadHardwareAddr:
		return "malformed hardware address"
	case ErrInvalidConfig:
		return "invalid configuration"
	}
	return "errGeneric(" + strconv.Itoa(int(err)) + ")"
}

