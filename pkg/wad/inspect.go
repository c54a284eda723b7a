package wad

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/eunmann/wadtik/pkg/ticket"
)

// Info summarizes a package without extracting it.
type Info struct {
	Type Type
	Size int64

	// Installable packages.
	Header   *InstallableHeader
	Sections Sections
	Ticket   *ticket.Ticket

	// Backup packages.
	Backup *BackupHeader
}

// Inspect maps the package at path and decodes its header and ticket.
// Backup packages report their header only.
func Inspect(path string) (*Info, error) {
	m, err := openMapped(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	info, err := inspect(m.Bytes())
	return info, errors.Join(err, m.Close())
}

func inspect(data []byte) (*Info, error) {
	typ, err := Detect(data)
	if err != nil {
		return nil, err
	}
	info := &Info{Type: typ, Size: int64(len(data))}

	if typ == TypeBackup {
		bh, err := DecodeBackupHeader(data)
		if err != nil {
			return nil, err
		}
		info.Backup = &bh
		return info, nil
	}

	h, err := DecodeInstallableHeader(data)
	if err != nil {
		return nil, err
	}
	info.Header = &h
	info.Sections = h.Layout()

	sec := info.Sections.Ticket
	if sec.End() > info.Size {
		return nil, fmt.Errorf("%w: ticket ends at 0x%X, file is 0x%X bytes",
			ErrTruncatedPackage, sec.End(), info.Size)
	}
	tik, err := ticket.Load(bytes.NewReader(sectionBytes(data, sec)), int(h.TicketSize))
	if err != nil {
		return nil, fmt.Errorf("load ticket: %w", err)
	}
	if info.Ticket, err = ticket.Parse(tik); err != nil {
		return nil, fmt.Errorf("parse ticket: %w", err)
	}
	return info, nil
}
