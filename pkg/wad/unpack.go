package wad

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/eunmann/wadtik/internal/logctx"
	"github.com/eunmann/wadtik/pkg/fileutil"
	"github.com/eunmann/wadtik/pkg/logging"
	"github.com/eunmann/wadtik/pkg/ticket"
)

// UnpackOptions controls Unpack.
type UnpackOptions struct {
	// Fakesign fakesigns the ticket before it is written.
	Fakesign bool
	// TmpDir holds files while they are written. Defaults to the output directory.
	TmpDir string
}

// UnpackResult describes an unpacked package.
type UnpackResult struct {
	Header   InstallableHeader
	Sections Sections
	Ticket   *ticket.Ticket
	// Fakesign is set when UnpackOptions.Fakesign was requested.
	Fakesign *ticket.Result
	// Files are the written section paths, in file order.
	Files []string
	Bytes int64
}

// Unpack splits the installable package at wadPath into one file per
// section under outDir. The ticket section must be a well-formed ticket of
// exactly the size the header declares.
func Unpack(ctx context.Context, wadPath, outDir string, opts UnpackOptions) (*UnpackResult, error) {
	start := time.Now()
	ctx = logctx.WithStr(ctx, "wad", wadPath)
	log := logctx.FromContext(ctx)

	m, err := openMapped(wadPath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", wadPath, err)
	}
	defer m.Close()
	data := m.Bytes()

	typ, err := Detect(data)
	if err != nil {
		return nil, err
	}
	if typ == TypeBackup {
		return nil, ErrBackupPackage
	}

	h, err := DecodeInstallableHeader(data)
	if err != nil {
		return nil, err
	}

	secs := h.Layout()
	if secs.End() > int64(len(data)) {
		return nil, fmt.Errorf("%w: sections end at 0x%X, file is 0x%X bytes",
			ErrTruncatedPackage, secs.End(), len(data))
	}

	// The mapping is read-only, so the ticket is copied out by Load before
	// it can be fakesigned.
	tik, err := ticket.Load(bytes.NewReader(sectionBytes(data, secs.Ticket)), int(h.TicketSize))
	if err != nil {
		return nil, fmt.Errorf("load ticket: %w", err)
	}

	tmpDir := opts.TmpDir
	if tmpDir == "" {
		tmpDir = outDir
	}
	removed, err := fileutil.RemoveTmpFiles(tmpDir, SectionFiles()...)
	if err != nil {
		return nil, err
	}
	if removed > 0 {
		log.Debug().Int("files_removed", removed).Str("dir", tmpDir).Msg("removed stale section tmp files")
	}

	res := &UnpackResult{Header: h, Sections: secs}
	if opts.Fakesign {
		fr, err := ticket.FakesignResult(tik)
		if err != nil {
			return nil, fmt.Errorf("fakesign ticket: %w", err)
		}
		res.Fakesign = &fr
		if fr.Exhausted {
			log.Warn().Msg("no weak digest found, ticket left at counter 0xFFFF")
		}
	}
	if res.Ticket, err = ticket.Parse(tik); err != nil {
		return nil, fmt.Errorf("parse ticket: %w", err)
	}

	for _, sec := range secs.All() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if sec.Name == FooterFile && sec.Size == 0 {
			continue
		}

		content := sectionBytes(data, sec)
		if sec.Name == TicketFile {
			content = tik
		}

		writeStart := time.Now()
		outPath := filepath.Join(outDir, sec.Name)
		if err := fileutil.WriteFile(opts.TmpDir, outPath, content); err != nil {
			return nil, fmt.Errorf("write %s: %w", sec.Name, err)
		}
		logging.FileCreated(log, "unpack", time.Since(writeStart)).
			Str("file", outPath).
			Bytes("size", sec.Size).
			LogDebug("section written")

		res.Files = append(res.Files, outPath)
		res.Bytes += sec.Size
	}

	logging.PhaseComplete(log, "unpack", time.Since(start)).
		Str("type", h.Type.String()).
		Str("title_id", fmt.Sprintf("%016X", res.Ticket.TitleID)).
		Bool("fakesigned", res.Fakesign != nil).
		Bytes("bytes", res.Bytes).
		Log("package unpacked")

	return res, nil
}

// ExtractTicket returns a copy of the ticket section of an installable
// package held in memory.
func ExtractTicket(data []byte) ([]byte, error) {
	typ, err := Detect(data)
	if err != nil {
		return nil, err
	}
	if typ == TypeBackup {
		return nil, ErrBackupPackage
	}
	h, err := DecodeInstallableHeader(data)
	if err != nil {
		return nil, err
	}

	sec := h.Layout().Ticket
	if sec.End() > int64(len(data)) {
		return nil, fmt.Errorf("%w: ticket ends at 0x%X, file is 0x%X bytes",
			ErrTruncatedPackage, sec.End(), len(data))
	}
	return ticket.Load(bytes.NewReader(sectionBytes(data, sec)), int(h.TicketSize))
}

// ReadTicket maps the package at path and extracts its ticket.
func ReadTicket(path string) ([]byte, error) {
	m, err := openMapped(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	tik, err := ExtractTicket(m.Bytes())
	return tik, errors.Join(err, m.Close())
}

// sectionBytes slices sec out of data. Callers check bounds first.
func sectionBytes(data []byte, sec Section) []byte {
	return data[sec.Offset:sec.End():sec.End()]
}
