// Package ticket parses and fakesigns legacy console tickets.
//
// A ticket is a signature block followed by a fixed-layout common block.
// The signature block starts with a big-endian signature-type tag that
// selects one of four block families; all other fields sit at fixed
// offsets, so every accessor is a bounds-checked slice of the caller's
// buffer. Nothing in this package allocates a copy of the ticket.
package ticket

import (
	"errors"
	"fmt"
	"io"
	"math/bits"
)

// Classify identifies the signature block family of buf and returns the
// size of the fixed-layout prefix (signature block plus common block).
//
// It reads only the first four bytes and never looks past len(buf).
func Classify(buf []byte) (Kind, int, error) {
	if buf == nil {
		return 0, 0, fmt.Errorf("%w: nil ticket buffer", ErrInvalidArgument)
	}
	if len(buf) < MinSize {
		return 0, 0, fmt.Errorf("%w: ticket buffer is 0x%X bytes, need at least 0x%X",
			ErrInvalidArgument, len(buf), MinSize)
	}

	kind, err := KindOf(readSignatureType(buf))
	if err != nil {
		return 0, 0, err
	}

	size := kind.BlockSize() + CommonBlockSize
	if size > len(buf) {
		return 0, 0, fmt.Errorf("%w: end offset 0x%X exceeds buffer size 0x%X",
			ErrTruncatedBuffer, size, len(buf))
	}
	return kind, size, nil
}

// LocateCommonBlock returns a view of the common block, which starts right
// after the signature block.
func LocateCommonBlock(buf []byte) (CommonBlock, error) {
	kind, _, err := Classify(buf)
	if err != nil {
		return nil, err
	}
	cb := commonBlockAt(buf, kind.BlockSize())
	if cb == nil {
		return nil, fmt.Errorf("%w: common block out of range", ErrTruncatedBuffer)
	}
	return cb, nil
}

// Load reads exactly size bytes from r and checks that they form a ticket
// of exactly that size. On any failure it returns a nil buffer.
func Load(r io.Reader, size int) ([]byte, error) {
	if r == nil || size < MinSize {
		return nil, fmt.Errorf("%w: ticket size 0x%X", ErrInvalidArgument, size)
	}

	buf := make([]byte, size)
	if _, err := io.ReadFull(r, buf); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: want 0x%X bytes: %w", ErrTruncatedRead, size, err)
		}
		return nil, fmt.Errorf("read ticket: %w", err)
	}

	_, detected, err := Classify(buf)
	if err != nil {
		return nil, err
	}
	if detected != size {
		return nil, fmt.Errorf("%w: declared 0x%X, computed 0x%X", ErrSizeMismatch, size, detected)
	}
	return buf, nil
}

// Ticket is a decoded, read-only summary of a ticket buffer.
type Ticket struct {
	SignatureType  SignatureType
	Kind           Kind
	Size           int
	Issuer         string
	FormatVersion  uint8
	TitleKey       [titleKeySize]byte
	TicketID       uint64
	ConsoleID      uint32
	TitleID        uint64
	TitleVersion   uint16
	CommonKeyIndex uint8
	ExportAllowed  bool
	// PermittedTitlesMask and PermitMask restrict which titles the ticket
	// may launch; both are zero on retail tickets.
	PermittedTitlesMask uint32
	PermitMask          uint32
	// ContentAccess is the content access bitfield, one bit per content
	// index, most significant bit first.
	ContentAccess [accessPermsSize]byte
	Limits        [limitCount]Limit
	Fakesigned    bool
}

// ContentAccessible reports whether content index i is permitted.
func (t *Ticket) ContentAccessible(i int) bool {
	if i < 0 || i >= accessPermsSize*8 {
		return false
	}
	return t.ContentAccess[i/8]&(0x80>>(i%8)) != 0
}

// AccessibleContents counts the content indexes the ticket permits.
func (t *Ticket) AccessibleContents() int {
	var n int
	for _, b := range t.ContentAccess {
		n += bits.OnesCount8(b)
	}
	return n
}

// Category returns the title category of the ticket's title ID.
func (t *Ticket) Category() Category {
	return CategoryOf(t.TitleID)
}

// Exportable reports whether the title category may be exported.
func (t *Ticket) Exportable() bool {
	return t.Category().Exportable()
}

// Parse classifies buf and decodes its common block fields.
func Parse(buf []byte) (*Ticket, error) {
	kind, size, err := Classify(buf)
	if err != nil {
		return nil, err
	}
	cb := commonBlockAt(buf, kind.BlockSize())

	t := &Ticket{
		SignatureType:  readSignatureType(buf),
		Kind:           kind,
		Size:           size,
		Issuer:         cb.Issuer(),
		FormatVersion:  cb.FormatVersion(),
		TicketID:       cb.TicketID(),
		ConsoleID:      cb.ConsoleID(),
		TitleID:        cb.TitleID(),
		TitleVersion:   cb.TitleVersion(),
		CommonKeyIndex: cb.CommonKeyIndex(),
		ExportAllowed:  cb.TitleExportAllowed(),
		Limits:         cb.Limits(),
		Fakesigned:     isFakesigned(buf, kind, cb),

		PermittedTitlesMask: cb.PermittedTitlesMask(),
		PermitMask:          cb.PermitMask(),
	}
	copy(t.TitleKey[:], cb.TitleKey())
	copy(t.ContentAccess[:], cb.ContentAccessPermissions())
	return t, nil
}
