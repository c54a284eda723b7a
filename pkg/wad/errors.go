package wad

import "errors"

var (
	// ErrInvalidHeader indicates a header that is too short or internally inconsistent.
	ErrInvalidHeader = errors.New("invalid WAD header")
	// ErrUnsupportedType indicates an unknown header size or type tag.
	ErrUnsupportedType = errors.New("unsupported WAD type")
	// ErrBackupPackage indicates a backup package where an installable one is required.
	ErrBackupPackage = errors.New("backup WAD packages are not installable")
	// ErrTruncatedPackage indicates the file ends before the last section does.
	ErrTruncatedPackage = errors.New("truncated WAD package")
)
