package wad

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/eunmann/wadtik/pkg/ticket"
)

const testTitleID uint64 = 0x0001000148414241

// testTicket returns an RSA-2048 signed ticket bound to a console.
func testTicket() []byte {
	buf := make([]byte, 0x2A4)
	binary.BigEndian.PutUint32(buf, uint32(ticket.SignatureRsa2048Sha1))
	for i := 4; i < 0x104; i++ {
		buf[i] = byte(i)
	}
	cb := buf[0x140:]
	copy(cb, "Root-CA00000001-XS00000003")
	for i := 0x40; i < 0x7C; i++ {
		cb[i] = 0xEE
	}
	binary.BigEndian.PutUint32(cb[0x98:], 0x0403AC68)
	binary.BigEndian.PutUint64(cb[0x9C:], testTitleID)
	return buf
}

func patterned(n int, seed byte) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = seed + byte(i*7)
	}
	return b
}

// writeSections writes a full set of section files to a new directory.
func writeSections(t *testing.T, footer bool) (string, map[string][]byte) {
	t.Helper()

	dir := t.TempDir()
	files := map[string][]byte{
		CertChainFile: patterned(0xA00, 1),
		TicketFile:    testTicket(),
		TMDFile:       patterned(0x208, 2),
		DataFile:      patterned(0x3F0, 3),
	}
	if footer {
		files[FooterFile] = patterned(0x40, 4)
	}
	for name, data := range files {
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir, files
}

func packTestWAD(t *testing.T, footer bool) (string, map[string][]byte) {
	t.Helper()

	src, files := writeSections(t, footer)
	wadPath := filepath.Join(t.TempDir(), "title.wad")
	if _, err := Pack(context.Background(), src, wadPath, PackOptions{}); err != nil {
		t.Fatalf("Pack failed: %v", err)
	}
	return wadPath, files
}

func TestPackUnpackRoundTrip(t *testing.T) {
	for _, footer := range []bool{true, false} {
		wadPath, files := packTestWAD(t, footer)

		outDir := t.TempDir()
		res, err := Unpack(context.Background(), wadPath, outDir, UnpackOptions{})
		if err != nil {
			t.Fatalf("Unpack failed: %v", err)
		}
		if res.Ticket.TitleID != testTitleID {
			t.Errorf("TitleID = %016X, want %016X", res.Ticket.TitleID, testTitleID)
		}
		if res.Fakesign != nil {
			t.Error("Fakesign result set without the option")
		}
		if len(res.Files) != len(files) {
			t.Errorf("wrote %d files, want %d", len(res.Files), len(files))
		}

		for name, want := range files {
			got, err := os.ReadFile(filepath.Join(outDir, name))
			if err != nil {
				t.Fatalf("read %s: %v", name, err)
			}
			if !bytes.Equal(got, want) {
				t.Errorf("%s differs after round trip", name)
			}
		}
		if !footer {
			if _, err := os.Stat(filepath.Join(outDir, FooterFile)); !os.IsNotExist(err) {
				t.Error("footer written for a package without one")
			}
		}

		// Repacking the unpacked sections reproduces the package byte for byte.
		repacked := filepath.Join(t.TempDir(), "again.wad")
		if _, err := Pack(context.Background(), outDir, repacked, PackOptions{}); err != nil {
			t.Fatalf("repack failed: %v", err)
		}
		a, _ := os.ReadFile(wadPath)
		b, _ := os.ReadFile(repacked)
		if !bytes.Equal(a, b) {
			t.Error("repacked package differs from original")
		}
		if len(a)%Alignment != 0 {
			t.Errorf("package size 0x%X not aligned", len(a))
		}
	}
}

func TestUnpackFakesign(t *testing.T) {
	wadPath, files := packTestWAD(t, true)
	outDir := t.TempDir()

	res, err := Unpack(context.Background(), wadPath, outDir, UnpackOptions{Fakesign: true})
	if err != nil {
		t.Fatalf("Unpack failed: %v", err)
	}
	if res.Fakesign == nil || res.Fakesign.Exhausted {
		t.Fatalf("Fakesign = %+v", res.Fakesign)
	}
	if !res.Ticket.Fakesigned || res.Ticket.ConsoleID != 0 {
		t.Errorf("ticket = %+v, want fakesigned with console ID 0", res.Ticket)
	}

	tik, err := os.ReadFile(filepath.Join(outDir, TicketFile))
	if err != nil {
		t.Fatal(err)
	}
	cb, err := ticket.LocateCommonBlock(tik)
	if err != nil {
		t.Fatalf("LocateCommonBlock: %v", err)
	}
	if d := cb.Digest(); d[0] != 0 {
		t.Errorf("digest[0] = 0x%02X, want 0", d[0])
	}
	if !bytes.Equal(tik[4:0x104], make([]byte, 0x100)) {
		t.Error("signature not zeroed")
	}

	// Other sections are untouched.
	got, _ := os.ReadFile(filepath.Join(outDir, TMDFile))
	if !bytes.Equal(got, files[TMDFile]) {
		t.Error("TMD modified by fakesign")
	}

	// The source package is never written through the mapping.
	if orig, _ := ReadTicket(wadPath); !bytes.Equal(orig, files[TicketFile]) {
		t.Error("source package ticket modified")
	}
}

func TestPackFakesignBoot2(t *testing.T) {
	src, _ := writeSections(t, false)
	wadPath := filepath.Join(t.TempDir(), "boot2.wad")

	res, err := Pack(context.Background(), src, wadPath, PackOptions{Type: TypeBoot2, Fakesign: true})
	if err != nil {
		t.Fatalf("Pack failed: %v", err)
	}
	if res.Header.Type != TypeBoot2 || res.Fakesign == nil {
		t.Errorf("result = %+v", res)
	}

	tik, err := ReadTicket(wadPath)
	if err != nil {
		t.Fatalf("ReadTicket failed: %v", err)
	}
	parsed, err := ticket.Parse(tik)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if !parsed.Fakesigned {
		t.Error("packed ticket not fakesigned")
	}
}

func TestPackRejectsBadInput(t *testing.T) {
	src, _ := writeSections(t, false)

	if _, err := Pack(context.Background(), src, filepath.Join(t.TempDir(), "x.wad"), PackOptions{Type: TypeBackup}); !errors.Is(err, ErrUnsupportedType) {
		t.Errorf("Pack(backup) = %v, want ErrUnsupportedType", err)
	}

	if err := os.WriteFile(filepath.Join(src, TicketFile), append(testTicket(), 0, 0), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Pack(context.Background(), src, filepath.Join(t.TempDir(), "x.wad"), PackOptions{}); !errors.Is(err, ticket.ErrSizeMismatch) {
		t.Errorf("Pack(oversized ticket) = %v, want ticket.ErrSizeMismatch", err)
	}

	if err := os.Remove(filepath.Join(src, TMDFile)); err != nil {
		t.Fatal(err)
	}
	if _, err := Pack(context.Background(), src, filepath.Join(t.TempDir(), "x.wad"), PackOptions{}); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Pack(missing tmd) = %v, want os.ErrNotExist", err)
	}
}

func TestUnpackUnpaddedEnd(t *testing.T) {
	wadPath, files := packTestWAD(t, false)
	data, err := os.ReadFile(wadPath)
	if err != nil {
		t.Fatal(err)
	}

	// Without a footer the package may stop right after the data section.
	pad := paddingFor(int64(len(files[DataFile])))
	if pad == 0 {
		t.Fatal("test data section is already aligned")
	}
	trimmed := filepath.Join(t.TempDir(), "trimmed.wad")
	if err := os.WriteFile(trimmed, data[:int64(len(data))-pad], 0o644); err != nil {
		t.Fatal(err)
	}

	outDir := t.TempDir()
	res, err := Unpack(context.Background(), trimmed, outDir, UnpackOptions{})
	if err != nil {
		t.Fatalf("Unpack failed: %v", err)
	}
	if res.Sections.End() != int64(len(data))-pad {
		t.Errorf("sections end at 0x%X, want 0x%X", res.Sections.End(), int64(len(data))-pad)
	}
	got, err := os.ReadFile(filepath.Join(outDir, DataFile))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, files[DataFile]) {
		t.Error("data section differs")
	}

	// Pack always pads the last section, so the repack matches the padded
	// original rather than the trimmed input.
	repacked := filepath.Join(t.TempDir(), "again.wad")
	if _, err := Pack(context.Background(), outDir, repacked, PackOptions{}); err != nil {
		t.Fatalf("repack failed: %v", err)
	}
	if b, _ := os.ReadFile(repacked); !bytes.Equal(b, data) {
		t.Error("repacked package differs from the padded original")
	}

	// One byte short of the data section is still truncated.
	short := filepath.Join(t.TempDir(), "short.wad")
	if err := os.WriteFile(short, data[:int64(len(data))-pad-1], 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Unpack(context.Background(), short, t.TempDir(), UnpackOptions{}); !errors.Is(err, ErrTruncatedPackage) {
		t.Errorf("Unpack(short) = %v, want ErrTruncatedPackage", err)
	}
}

func TestUnpackRemovesOnlyStaleSectionTmpFiles(t *testing.T) {
	wadPath, _ := packTestWAD(t, true)
	outDir := t.TempDir()

	stale := filepath.Join(outDir, TicketFile+".tmp")
	keep := []string{
		filepath.Join(outDir, "notes.tmp"),
		filepath.Join(outDir, "project", "notes.tmp"),
		filepath.Join(outDir, "project", TMDFile+".tmp"),
	}
	for _, p := range append([]string{stale}, keep...) {
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte("partial"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	// A package that cannot be read leaves the directory alone.
	if _, err := Unpack(context.Background(), filepath.Join(t.TempDir(), "missing.wad"), outDir, UnpackOptions{}); err == nil {
		t.Fatal("Unpack of a missing package succeeded")
	}
	if _, err := os.Stat(stale); err != nil {
		t.Errorf("stale %s removed by a failed unpack: %v", filepath.Base(stale), err)
	}

	if _, err := Unpack(context.Background(), wadPath, outDir, UnpackOptions{}); err != nil {
		t.Fatalf("Unpack failed: %v", err)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Errorf("stale %s survived unpack", filepath.Base(stale))
	}
	for _, p := range keep {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("%s removed: %v", p, err)
		}
	}
}

func TestUnpackErrors(t *testing.T) {
	wadPath, _ := packTestWAD(t, true)
	data, err := os.ReadFile(wadPath)
	if err != nil {
		t.Fatal(err)
	}

	write := func(t *testing.T, b []byte) string {
		p := filepath.Join(t.TempDir(), "bad.wad")
		if err := os.WriteFile(p, b, 0o644); err != nil {
			t.Fatal(err)
		}
		return p
	}

	t.Run("Truncated", func(t *testing.T) {
		p := write(t, data[:len(data)-0x80])
		if _, err := Unpack(context.Background(), p, t.TempDir(), UnpackOptions{}); !errors.Is(err, ErrTruncatedPackage) {
			t.Errorf("Unpack = %v, want ErrTruncatedPackage", err)
		}
	})

	t.Run("Backup", func(t *testing.T) {
		b := make([]byte, BackupHeaderSize)
		binary.BigEndian.PutUint32(b, BackupHeaderSize)
		binary.BigEndian.PutUint16(b[4:], uint16(TypeBackup))
		if _, err := Unpack(context.Background(), write(t, b), t.TempDir(), UnpackOptions{}); !errors.Is(err, ErrBackupPackage) {
			t.Errorf("Unpack = %v, want ErrBackupPackage", err)
		}
	})

	t.Run("TicketSizeMismatch", func(t *testing.T) {
		b := append([]byte{}, data...)
		// Declare a ticket larger than its structure; the TMD still fits.
		binary.BigEndian.PutUint32(b[0x10:], 0x2B0)
		if _, err := Unpack(context.Background(), write(t, b), t.TempDir(), UnpackOptions{}); !errors.Is(err, ticket.ErrSizeMismatch) {
			t.Errorf("Unpack = %v, want ticket.ErrSizeMismatch", err)
		}
	})

	t.Run("BadSignatureType", func(t *testing.T) {
		b := append([]byte{}, data...)
		binary.BigEndian.PutUint32(b[0xA40:], 0xDEADBEEF)
		if _, err := Unpack(context.Background(), write(t, b), t.TempDir(), UnpackOptions{}); !errors.Is(err, ticket.ErrUnrecognizedSignatureType) {
			t.Errorf("Unpack = %v, want ticket.ErrUnrecognizedSignatureType", err)
		}
	})

	t.Run("Canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := Unpack(ctx, wadPath, t.TempDir(), UnpackOptions{}); !errors.Is(err, context.Canceled) {
			t.Errorf("Unpack = %v, want context.Canceled", err)
		}
	})
}

func TestExtractTicket(t *testing.T) {
	wadPath, files := packTestWAD(t, false)
	data, err := os.ReadFile(wadPath)
	if err != nil {
		t.Fatal(err)
	}

	tik, err := ExtractTicket(data)
	if err != nil {
		t.Fatalf("ExtractTicket failed: %v", err)
	}
	if !bytes.Equal(tik, files[TicketFile]) {
		t.Error("extracted ticket differs")
	}

	// The extracted ticket is a copy.
	tik[0x200] ^= 0xFF
	if data[0xA40+0x200] == tik[0x200] {
		t.Error("ExtractTicket returned a view into the package")
	}

	if _, err := ExtractTicket(data[:0x100]); !errors.Is(err, ErrTruncatedPackage) {
		t.Errorf("ExtractTicket(short) = %v, want ErrTruncatedPackage", err)
	}
}
