package ticket

import "errors"

var (
	// ErrInvalidArgument indicates a nil buffer or a buffer shorter than MinSize.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrTruncatedBuffer indicates the buffer ends before the fixed-layout prefix does.
	ErrTruncatedBuffer = errors.New("truncated ticket buffer")
	// ErrTruncatedRead indicates the stream yielded fewer bytes than declared.
	ErrTruncatedRead = errors.New("truncated ticket read")
	// ErrUnrecognizedSignatureType indicates an unknown signature-type tag.
	ErrUnrecognizedSignatureType = errors.New("unrecognized signature type")
	// ErrSizeMismatch indicates the declared ticket size differs from the computed one.
	ErrSizeMismatch = errors.New("ticket size mismatch")
)
