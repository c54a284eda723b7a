// Package wad reads and writes installable WAD packages.
//
// An installable WAD is a 0x20-byte header followed by the certificate
// chain, ticket, TMD, encrypted content data and footer, each starting on
// a 0x40-byte boundary. All header fields are big-endian.
package wad

import (
	"encoding/binary"
	"fmt"
)

// Type is the 16-bit package type tag.
type Type uint16

const (
	TypeNormal Type = 0x4973 // "Is"
	TypeBoot2  Type = 0x6962 // "ib"
	TypeBackup Type = 0x426B // "Bk"
)

func (t Type) String() string {
	switch t {
	case TypeNormal:
		return "Is"
	case TypeBoot2:
		return "ib"
	case TypeBackup:
		return "Bk"
	default:
		return fmt.Sprintf("0x%04X", uint16(t))
	}
}

// Header sizes, which double as the first header field.
const (
	InstallableHeaderSize = 0x20
	BackupHeaderSize      = 0x70
)

// Header versions.
const (
	VersionInstallable = 0
	VersionBackup      = 1
)

// Alignment is the boundary every section starts on.
const Alignment = 0x40

// Detect identifies the package type from the first header bytes.
func Detect(buf []byte) (Type, error) {
	if len(buf) < 8 {
		return 0, fmt.Errorf("%w: need 8 bytes, have %d", ErrInvalidHeader, len(buf))
	}

	size := binary.BigEndian.Uint32(buf[0:4])
	typ := Type(binary.BigEndian.Uint16(buf[4:6]))

	switch {
	case size == InstallableHeaderSize && (typ == TypeNormal || typ == TypeBoot2):
		return typ, nil
	case size == BackupHeaderSize && typ == TypeBackup:
		return typ, nil
	default:
		return 0, fmt.Errorf("%w: header size 0x%X, type %s", ErrUnsupportedType, size, typ)
	}
}

// InstallableHeader is the header of normal and boot2 packages.
type InstallableHeader struct {
	HeaderSize    uint32
	Type          Type
	Version       uint16
	CertChainSize uint32
	Reserved      uint32
	TicketSize    uint32
	TMDSize       uint32
	DataSize      uint32
	FooterSize    uint32
}

// NewInstallableHeader returns a header for the given section sizes.
func NewInstallableHeader(typ Type, certChain, ticket, tmd, data, footer uint32) InstallableHeader {
	return InstallableHeader{
		HeaderSize:    InstallableHeaderSize,
		Type:          typ,
		Version:       VersionInstallable,
		CertChainSize: certChain,
		TicketSize:    ticket,
		TMDSize:       tmd,
		DataSize:      data,
		FooterSize:    footer,
	}
}

// DecodeInstallableHeader decodes and validates an installable header.
func DecodeInstallableHeader(buf []byte) (InstallableHeader, error) {
	if len(buf) < InstallableHeaderSize {
		return InstallableHeader{}, fmt.Errorf("%w: need 0x%X bytes, have 0x%X",
			ErrInvalidHeader, InstallableHeaderSize, len(buf))
	}

	h := InstallableHeader{
		HeaderSize:    binary.BigEndian.Uint32(buf[0x00:]),
		Type:          Type(binary.BigEndian.Uint16(buf[0x04:])),
		Version:       binary.BigEndian.Uint16(buf[0x06:]),
		CertChainSize: binary.BigEndian.Uint32(buf[0x08:]),
		Reserved:      binary.BigEndian.Uint32(buf[0x0C:]),
		TicketSize:    binary.BigEndian.Uint32(buf[0x10:]),
		TMDSize:       binary.BigEndian.Uint32(buf[0x14:]),
		DataSize:      binary.BigEndian.Uint32(buf[0x18:]),
		FooterSize:    binary.BigEndian.Uint32(buf[0x1C:]),
	}
	if err := h.validate(); err != nil {
		return InstallableHeader{}, err
	}
	return h, nil
}

func (h InstallableHeader) validate() error {
	if h.HeaderSize != InstallableHeaderSize {
		return fmt.Errorf("%w: header size 0x%X", ErrUnsupportedType, h.HeaderSize)
	}
	if h.Type != TypeNormal && h.Type != TypeBoot2 {
		return fmt.Errorf("%w: type %s", ErrUnsupportedType, h.Type)
	}
	if h.Version != VersionInstallable {
		return fmt.Errorf("%w: version %d", ErrInvalidHeader, h.Version)
	}
	if h.CertChainSize == 0 || h.TicketSize == 0 || h.TMDSize == 0 {
		return fmt.Errorf("%w: empty cert chain, ticket or TMD", ErrInvalidHeader)
	}
	return nil
}

// Encode returns the 0x20-byte big-endian header.
func (h InstallableHeader) Encode() []byte {
	buf := make([]byte, InstallableHeaderSize)
	binary.BigEndian.PutUint32(buf[0x00:], h.HeaderSize)
	binary.BigEndian.PutUint16(buf[0x04:], uint16(h.Type))
	binary.BigEndian.PutUint16(buf[0x06:], h.Version)
	binary.BigEndian.PutUint32(buf[0x08:], h.CertChainSize)
	binary.BigEndian.PutUint32(buf[0x0C:], h.Reserved)
	binary.BigEndian.PutUint32(buf[0x10:], h.TicketSize)
	binary.BigEndian.PutUint32(buf[0x14:], h.TMDSize)
	binary.BigEndian.PutUint32(buf[0x18:], h.DataSize)
	binary.BigEndian.PutUint32(buf[0x1C:], h.FooterSize)
	return buf
}

// Section file names used by Unpack and Pack.
const (
	CertChainFile = "cert.bin"
	TicketFile    = "tik.bin"
	TMDFile       = "tmd.bin"
	DataFile      = "data.bin"
	FooterFile    = "footer.bin"
)

// Section locates one part of the package.
type Section struct {
	Name   string
	Offset int64
	Size   int64
}

// End returns the offset one past the last byte of the section.
func (s Section) End() int64 {
	return s.Offset + s.Size
}

// Sections are the package parts in file order.
type Sections struct {
	CertChain Section
	Ticket    Section
	TMD       Section
	Data      Section
	Footer    Section
}

// All returns the sections in file order.
func (s Sections) All() []Section {
	return []Section{s.CertChain, s.Ticket, s.TMD, s.Data, s.Footer}
}

// End returns the offset one past the last byte of the last non-empty
// section. Padding after that section is optional, so a package may end
// exactly there.
func (s Sections) End() int64 {
	var end int64
	for _, sec := range s.All() {
		if sec.Size > 0 {
			end = sec.End()
		}
	}
	return end
}

// SectionFiles lists the section file names in file order.
func SectionFiles() []string {
	return []string{CertChainFile, TicketFile, TMDFile, DataFile, FooterFile}
}

// Layout computes the section offsets for h.
func (h InstallableHeader) Layout() Sections {
	var s Sections
	off := alignUp(int64(h.HeaderSize))

	next := func(name string, size uint32) Section {
		sec := Section{Name: name, Offset: off, Size: int64(size)}
		off = alignUp(sec.End())
		return sec
	}

	s.CertChain = next(CertChainFile, h.CertChainSize)
	s.Ticket = next(TicketFile, h.TicketSize)
	s.TMD = next(TMDFile, h.TMDSize)
	s.Data = next(DataFile, h.DataSize)
	s.Footer = next(FooterFile, h.FooterSize)
	return s
}

func alignUp(v int64) int64 {
	return (v + Alignment - 1) &^ (Alignment - 1)
}

// paddingFor returns the zero bytes needed to bring size up to Alignment.
func paddingFor(size int64) int64 {
	return -size & (Alignment - 1)
}

// BackupHeader is the header of backup packages (data.bin and content.bin).
type BackupHeader struct {
	HeaderSize       uint32
	Type             Type
	Version          uint16
	ConsoleID        uint32
	SaveFileCount    uint32
	SaveFileDataSize uint32
	ContentTMDSize   uint32
	ContentDataSize  uint32
	BackupAreaSize   uint32
	IncludedContents [0x40]byte
	TitleID          uint64
	MACAddress       [6]byte
}

// DecodeBackupHeader decodes and validates a backup header.
func DecodeBackupHeader(buf []byte) (BackupHeader, error) {
	if len(buf) < BackupHeaderSize {
		return BackupHeader{}, fmt.Errorf("%w: need 0x%X bytes, have 0x%X",
			ErrInvalidHeader, BackupHeaderSize, len(buf))
	}

	h := BackupHeader{
		HeaderSize:       binary.BigEndian.Uint32(buf[0x00:]),
		Type:             Type(binary.BigEndian.Uint16(buf[0x04:])),
		Version:          binary.BigEndian.Uint16(buf[0x06:]),
		ConsoleID:        binary.BigEndian.Uint32(buf[0x08:]),
		SaveFileCount:    binary.BigEndian.Uint32(buf[0x0C:]),
		SaveFileDataSize: binary.BigEndian.Uint32(buf[0x10:]),
		ContentTMDSize:   binary.BigEndian.Uint32(buf[0x14:]),
		ContentDataSize:  binary.BigEndian.Uint32(buf[0x18:]),
		BackupAreaSize:   binary.BigEndian.Uint32(buf[0x1C:]),
		TitleID:          binary.BigEndian.Uint64(buf[0x60:]),
	}
	copy(h.IncludedContents[:], buf[0x20:0x60])
	copy(h.MACAddress[:], buf[0x68:0x6E])

	if h.HeaderSize != BackupHeaderSize || h.Type != TypeBackup {
		return BackupHeader{}, fmt.Errorf("%w: header size 0x%X, type %s", ErrUnsupportedType, h.HeaderSize, h.Type)
	}
	if h.Version != VersionBackup {
		return BackupHeader{}, fmt.Errorf("%w: version %d", ErrInvalidHeader, h.Version)
	}
	return h, nil
}
