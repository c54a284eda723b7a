package wad

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/eunmann/wadtik/internal/logctx"
	"github.com/eunmann/wadtik/pkg/fileutil"
	"github.com/eunmann/wadtik/pkg/logging"
	"github.com/eunmann/wadtik/pkg/ticket"
)

// PackOptions controls Pack.
type PackOptions struct {
	// Type is the package type tag. Defaults to TypeNormal.
	Type Type
	// Fakesign fakesigns the ticket before it is written.
	Fakesign bool
	// TmpDir holds the package while it is written. Defaults to the output directory.
	TmpDir string
}

// PackResult describes a written package.
type PackResult struct {
	Header   InstallableHeader
	Ticket   *ticket.Ticket
	Fakesign *ticket.Result
	Size     int64
}

// Pack builds an installable package at wadPath from the section files in
// srcDir, as written by Unpack. The footer file is optional.
func Pack(ctx context.Context, srcDir, wadPath string, opts PackOptions) (*PackResult, error) {
	start := time.Now()
	ctx = logctx.WithStr(ctx, "wad", wadPath)
	log := logctx.FromContext(ctx)

	typ := opts.Type
	if typ == 0 {
		typ = TypeNormal
	}
	if typ != TypeNormal && typ != TypeBoot2 {
		return nil, fmt.Errorf("%w: cannot pack type %s", ErrUnsupportedType, typ)
	}

	sizes := make(map[string]int64, 5)
	for _, name := range SectionFiles() {
		info, err := os.Stat(filepath.Join(srcDir, name))
		switch {
		case errors.Is(err, os.ErrNotExist) && name == FooterFile:
			continue
		case err != nil:
			return nil, fmt.Errorf("stat %s: %w", name, err)
		case info.Size() > math.MaxUint32:
			return nil, fmt.Errorf("%w: %s is 0x%X bytes", ErrInvalidHeader, name, info.Size())
		}
		sizes[name] = info.Size()
	}

	tik, err := loadTicketFile(filepath.Join(srcDir, TicketFile), sizes[TicketFile])
	if err != nil {
		return nil, err
	}

	res := &PackResult{}
	if opts.Fakesign {
		fr, err := ticket.FakesignResult(tik)
		if err != nil {
			return nil, fmt.Errorf("fakesign ticket: %w", err)
		}
		res.Fakesign = &fr
	}
	if res.Ticket, err = ticket.Parse(tik); err != nil {
		return nil, fmt.Errorf("parse ticket: %w", err)
	}

	h := NewInstallableHeader(typ,
		uint32(sizes[CertChainFile]), uint32(sizes[TicketFile]), uint32(sizes[TMDFile]),
		uint32(sizes[DataFile]), uint32(sizes[FooterFile]))
	if err := h.validate(); err != nil {
		return nil, err
	}
	res.Header = h

	err = fileutil.WriteTmpThenMove(opts.TmpDir, wadPath, func(tmpPath string) error {
		n, err := writePackage(ctx, tmpPath, srcDir, h, tik)
		res.Size = n
		return err
	})
	if err != nil {
		return nil, err
	}

	logging.PhaseComplete(log, "pack", time.Since(start)).
		Str("type", typ.String()).
		Str("title_id", fmt.Sprintf("%016X", res.Ticket.TitleID)).
		Bool("fakesigned", res.Fakesign != nil).
		Bytes("bytes", res.Size).
		Log("package written")

	return res, nil
}

func loadTicketFile(path string, size int64) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open ticket: %w", err)
	}
	defer f.Close()

	tik, err := ticket.Load(f, int(size))
	if err != nil {
		return nil, fmt.Errorf("load ticket: %w", err)
	}
	return tik, nil
}

// writePackage writes header and sections, each padded to Alignment. The
// last section is padded too, so the file size is always a multiple of
// Alignment.
func writePackage(ctx context.Context, path, srcDir string, h InstallableHeader, tik []byte) (written int64, err error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create package: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close package: %w", cerr)
		}
	}()

	w := bufio.NewWriterSize(f, 1<<20)

	emit := func(r io.Reader, size int64) error {
		n, err := io.CopyN(w, r, size)
		written += n
		if err != nil {
			return err
		}
		pad, err := w.Write(make([]byte, paddingFor(size)))
		written += int64(pad)
		return err
	}

	if err := emit(bytes.NewReader(h.Encode()), InstallableHeaderSize); err != nil {
		return written, fmt.Errorf("write header: %w", err)
	}

	for _, sec := range h.Layout().All() {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		if sec.Size == 0 {
			continue
		}
		if sec.Name == TicketFile {
			if err := emit(bytes.NewReader(tik), sec.Size); err != nil {
				return written, fmt.Errorf("write %s: %w", sec.Name, err)
			}
			continue
		}
		if err := copySection(filepath.Join(srcDir, sec.Name), sec.Size, emit); err != nil {
			return written, fmt.Errorf("write %s: %w", sec.Name, err)
		}
	}

	if err := w.Flush(); err != nil {
		return written, fmt.Errorf("flush package: %w", err)
	}
	return written, nil
}

func copySection(path string, size int64, emit func(io.Reader, int64) error) error {
	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()
	return emit(src, size)
}
