package domain

import "errors"

// Error kinds shared by every layer. Callers match them with errors.Is;
// producers wrap them with fmt.Errorf("...: %w", ...) to add context.
var (
	// ErrInvalidFormat - a MAC string could not be decoded
	ErrInvalidFormat = errors.New("invalid MAC address format")
	// ErrInvalidArgument - a value is outside its domain (MAC wider than 48 bits, empty name, inverted range)
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrMalformedRecord - a registry row could not be turned into an assignment
	ErrMalformedRecord = errors.New("malformed registry record")
	// ErrUnknownReference - a presence write names a device or timestamp that does not exist
	ErrUnknownReference = errors.New("unknown reference")
	// ErrStorageUnavailable - the persistence layer failed; the operation was rolled back
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrDeviceNotFound - no device matches a MAC or name lookup
	ErrDeviceNotFound = errors.New("device not found")
)
