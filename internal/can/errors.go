package can

import (
	"errors"
	"fmt"
)

// Decode errors. Each one ends the frame being collected.
var (
	ErrInvalidSOF          = errors.New("can: invalid start of frame")
	ErrExpectedSRR         = errors.New("can: expected recessive SRR")
	ErrInvalidR1           = errors.New("can: invalid r1")
	ErrInvalidR0           = errors.New("can: invalid r0")
	ErrInvalidDLC          = errors.New("can: invalid DLC")
	ErrInvalidCRCDelimiter = errors.New("can: invalid CRC delimiter")
	ErrInvalidACKDelimiter = errors.New("can: invalid ACK delimiter")
	ErrChecksumMismatch    = errors.New("can: checksum mismatch")
	ErrInvalidEOF          = errors.New("can: invalid end of frame")
	ErrInvalidIFS          = errors.New("can: unexpected interframe space")

	// ErrStuffBit is only reported by a strict Decoder.
	ErrStuffBit = errors.New("can: stuff bit error")
)

// Encode errors.
var (
	ErrPayloadTooLarge    = errors.New("can: payload larger than 8 bytes")
	ErrIdentifierTooLarge = errors.New("can: identifier above 0x1FFFFFF")
)

// DLCError reports a data length code above 8.
type DLCError struct {
	DLC uint8
}

func (e *DLCError) Error() string {
	return fmt.Sprintf("can: invalid DLC %d", e.DLC)
}

func (e *DLCError) Is(target error) bool {
	return target == ErrInvalidDLC
}

// ChecksumError reports a CRC field that does not match the frame.
type ChecksumError struct {
	Expected uint16 // CRC field as received
	Computed uint16 // CRC of the received SOF through payload bits
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("can: checksum mismatch: expected %04X, computed %04X", e.Expected, e.Computed)
}

func (e *ChecksumError) Is(target error) bool {
	return target == ErrChecksumMismatch
}
