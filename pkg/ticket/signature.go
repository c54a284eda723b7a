package ticket

import (
	"encoding/binary"
	"fmt"
)

// SignatureType is the big-endian tag at offset 0 of every signature block.
type SignatureType uint32

const (
	SignatureRsa4096Sha1   SignatureType = 0x00010000
	SignatureRsa2048Sha1   SignatureType = 0x00010001
	SignatureEcc480Sha1    SignatureType = 0x00010002
	SignatureRsa4096Sha256 SignatureType = 0x00010003
	SignatureRsa2048Sha256 SignatureType = 0x00010004
	SignatureEcc480Sha256  SignatureType = 0x00010005
	SignatureHmac160Sha1   SignatureType = 0x00010006
)

// String returns the tag name, or its hex value if it is not a known tag.
func (s SignatureType) String() string {
	switch s {
	case SignatureRsa4096Sha1:
		return "RSA-4096/SHA-1"
	case SignatureRsa2048Sha1:
		return "RSA-2048/SHA-1"
	case SignatureEcc480Sha1:
		return "ECC-480/SHA-1"
	case SignatureRsa4096Sha256:
		return "RSA-4096/SHA-256"
	case SignatureRsa2048Sha256:
		return "RSA-2048/SHA-256"
	case SignatureEcc480Sha256:
		return "ECC-480/SHA-256"
	case SignatureHmac160Sha1:
		return "HMAC-160/SHA-1"
	default:
		return fmt.Sprintf("0x%08X", uint32(s))
	}
}

// Kind is the signature block family. The set is closed.
type Kind uint8

const (
	KindRsa4096 Kind = iota + 1
	KindRsa2048
	KindEcc480
	KindHmac160
)

// signatureLayout describes one signature block family.
type signatureLayout struct {
	name          string
	blockSize     int
	signatureSize int
}

// signatureOffset is where the signature payload starts, right after the tag.
const signatureOffset = 4

var layouts = [...]signatureLayout{
	KindRsa4096: {name: "RSA-4096", blockSize: 0x240, signatureSize: 0x200},
	KindRsa2048: {name: "RSA-2048", blockSize: 0x140, signatureSize: 0x100},
	KindEcc480:  {name: "ECC-480", blockSize: 0x80, signatureSize: 0x3C},
	KindHmac160: {name: "HMAC-160", blockSize: 0x40, signatureSize: 0x14},
}

func (k Kind) valid() bool {
	return k >= KindRsa4096 && k <= KindHmac160
}

// String returns the family name.
func (k Kind) String() string {
	if !k.valid() {
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
	return layouts[k].name
}

// BlockSize returns the on-disk size of the signature block, including tag and padding.
func (k Kind) BlockSize() int {
	if !k.valid() {
		return 0
	}
	return layouts[k].blockSize
}

// SignatureSize returns the size of the raw signature payload.
func (k Kind) SignatureSize() int {
	if !k.valid() {
		return 0
	}
	return layouts[k].signatureSize
}

// KindOf maps a signature-type tag to its block family.
func KindOf(s SignatureType) (Kind, error) {
	switch s {
	case SignatureRsa4096Sha1, SignatureRsa4096Sha256:
		return KindRsa4096, nil
	case SignatureRsa2048Sha1, SignatureRsa2048Sha256:
		return KindRsa2048, nil
	case SignatureEcc480Sha1, SignatureEcc480Sha256:
		return KindEcc480, nil
	case SignatureHmac160Sha1:
		return KindHmac160, nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnrecognizedSignatureType, s)
	}
}

// readSignatureType reads the tag at offset 0. buf must hold at least 4 bytes.
func readSignatureType(buf []byte) SignatureType {
	return SignatureType(binary.BigEndian.Uint32(buf[0:4]))
}
