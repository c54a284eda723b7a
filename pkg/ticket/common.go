package ticket

import (
	"bytes"
	"crypto/sha1" //nolint:gosec // the legacy format hashes with SHA-1
	"encoding/binary"
)

// CommonBlockSize is the size of the fixed-layout record that follows the signature block.
const CommonBlockSize = 0x164

// MinSize is the smallest legal ticket: an HMAC-160 signature block plus the common block.
const MinSize = 0x40 + CommonBlockSize

// Common block field offsets and lengths.
const (
	issuerOffset         = 0x00
	issuerSize           = 0x40
	ecdhOffset           = 0x40
	ecdhSize             = 0x3C
	formatVersionOffset  = 0x7C
	titleKeyOffset       = 0x7F
	titleKeySize         = 0x10
	ticketIDOffset       = 0x90
	consoleIDOffset      = 0x98
	titleIDOffset        = 0x9C
	paddingOffset        = 0xA4
	titleVersionOffset   = 0xA6
	permittedMaskOffset  = 0xA8
	permitMaskOffset     = 0xAC
	exportAllowedOffset  = 0xB0
	commonKeyIndexOffset = 0xB1
	accessPermsOffset    = 0xE2
	accessPermsSize      = 0x40
	limitsOffset         = 0x124
	limitCount           = 8
	limitEntrySize       = 8
)

// DigestSize is the length of the SHA-1 digest over the common block.
const DigestSize = sha1.Size

// CommonBlock is a view over the common block bytes of a ticket buffer.
// Writes through a CommonBlock land in the underlying ticket buffer.
type CommonBlock []byte

// commonBlockAt returns the view at off, or nil if it does not fit in buf.
// The capacity is clamped so appends can never spill into the rest of buf.
func commonBlockAt(buf []byte, off int) CommonBlock {
	end := off + CommonBlockSize
	if off < 0 || end > len(buf) {
		return nil
	}
	return CommonBlock(buf[off:end:end])
}

// Issuer returns the NUL-trimmed issuer string.
func (c CommonBlock) Issuer() string {
	field := c[issuerOffset : issuerOffset+issuerSize]
	if i := bytes.IndexByte(field, 0); i >= 0 {
		field = field[:i]
	}
	return string(field)
}

// ECDHData returns the ECDH device-binding field.
func (c CommonBlock) ECDHData() []byte {
	return c[ecdhOffset : ecdhOffset+ecdhSize]
}

// FormatVersion returns the ticket format version.
func (c CommonBlock) FormatVersion() uint8 {
	return c[formatVersionOffset]
}

// TitleKey returns the encrypted title key.
func (c CommonBlock) TitleKey() []byte {
	return c[titleKeyOffset : titleKeyOffset+titleKeySize]
}

// TicketID returns the ticket identifier.
func (c CommonBlock) TicketID() uint64 {
	return binary.BigEndian.Uint64(c[ticketIDOffset:])
}

// ConsoleID returns the console the ticket is bound to; zero means unbound.
func (c CommonBlock) ConsoleID() uint32 {
	return binary.BigEndian.Uint32(c[consoleIDOffset:])
}

// SetConsoleID sets the console identifier.
func (c CommonBlock) SetConsoleID(id uint32) {
	binary.BigEndian.PutUint32(c[consoleIDOffset:], id)
}

// TitleID returns the 64-bit title identifier.
func (c CommonBlock) TitleID() uint64 {
	return binary.BigEndian.Uint64(c[titleIDOffset:])
}

// Padding returns the reserved 16-bit field used as the fakesign nonce.
func (c CommonBlock) Padding() uint16 {
	return binary.BigEndian.Uint16(c[paddingOffset:])
}

// SetPadding writes the nonce field.
func (c CommonBlock) SetPadding(v uint16) {
	binary.BigEndian.PutUint16(c[paddingOffset:], v)
}

// TitleVersion returns the title version.
func (c CommonBlock) TitleVersion() uint16 {
	return binary.BigEndian.Uint16(c[titleVersionOffset:])
}

// PermittedTitlesMask returns the permitted titles mask.
func (c CommonBlock) PermittedTitlesMask() uint32 {
	return binary.BigEndian.Uint32(c[permittedMaskOffset:])
}

// PermitMask returns the permit mask.
func (c CommonBlock) PermitMask() uint32 {
	return binary.BigEndian.Uint32(c[permitMaskOffset:])
}

// TitleExportAllowed reports the export flag byte.
func (c CommonBlock) TitleExportAllowed() bool {
	return c[exportAllowedOffset] != 0
}

// CommonKeyIndex returns the index of the common key the title key is encrypted with.
func (c CommonBlock) CommonKeyIndex() uint8 {
	return c[commonKeyIndexOffset]
}

// ContentAccessPermissions returns the content access bitfield.
func (c CommonBlock) ContentAccessPermissions() []byte {
	return c[accessPermsOffset : accessPermsOffset+accessPermsSize]
}

// Limit is a play limit entry.
type Limit struct {
	Type  uint32
	Value uint32
}

// Limits returns the eight limit entries.
func (c CommonBlock) Limits() [limitCount]Limit {
	var out [limitCount]Limit
	for i := range out {
		off := limitsOffset + i*limitEntrySize
		out[i] = Limit{
			Type:  binary.BigEndian.Uint32(c[off:]),
			Value: binary.BigEndian.Uint32(c[off+4:]),
		}
	}
	return out
}

// Digest returns the SHA-1 digest of the whole common block as it currently stands.
func (c CommonBlock) Digest() [DigestSize]byte {
	return sha1.Sum(c) //nolint:gosec
}

// wipeDeviceBinding zeroes the ECDH data and console ID.
func (c CommonBlock) wipeDeviceBinding() {
	clear(c.ECDHData())
	c.SetConsoleID(0)
}
