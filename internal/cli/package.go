package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/eunmann/wadtik/internal/logctx"
	"github.com/eunmann/wadtik/pkg/fileutil"
	"github.com/eunmann/wadtik/pkg/humanfmt"
	"github.com/eunmann/wadtik/pkg/ticket"
	"github.com/eunmann/wadtik/pkg/wad"
)

func runFakesign(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("fakesign", flag.ContinueOnError)
	outPath := fs.String("out", "", "output ticket path (may equal the input)")
	tmpDir := fs.String("tmp", "", "temporary directory (env "+EnvTmpDir+")")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *outPath == "" {
		return errors.New("--out is required")
	}
	if fs.NArg() != 1 {
		return errors.New("exactly one ticket is required")
	}

	dir, src := determineTmpDir(*tmpDir)
	log := logctx.FromContext(ctx)
	log.Debug().Str("tmp_dir", dir).Str("source", string(src)).Msg("temp directory")

	in := &inputs{tmpDir: dir}
	defer in.Close()

	path, err := in.local(ctx, fs.Arg(0))
	if err != nil {
		return err
	}
	buf, err := loadTicket(path)
	if err != nil {
		return err
	}

	res, err := ticket.FakesignResult(buf)
	if err != nil {
		return fmt.Errorf("fakesign %s: %w", fs.Arg(0), err)
	}
	if err := fileutil.WriteFile(dir, *outPath, buf); err != nil {
		return fmt.Errorf("write %s: %w", *outPath, err)
	}

	printFakesign(stdout, *outPath, &res)
	return nil
}

// loadTicket reads a ticket file that must hold exactly one ticket.
func loadTicket(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	buf, err := ticket.Load(f, int(info.Size()))
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return buf, nil
}

func printFakesign(w io.Writer, path string, res *ticket.Result) {
	if res.Exhausted {
		fmt.Fprintf(w, "%s: no weak digest after %s attempts, ticket written unsigned\n",
			path, humanfmt.Count(int64(res.Attempts)))
		return
	}
	fmt.Fprintf(w, "%s: fakesigned, counter 0x%04X, digest %x (%s attempts)\n",
		path, res.Counter, res.Digest, humanfmt.Count(int64(res.Attempts)))
}

func runUnpack(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("unpack", flag.ContinueOnError)
	outDir := fs.String("out", "", "output directory for section files")
	fakesign := fs.Bool("fakesign", false, "fakesign the ticket before writing it")
	force := fs.Bool("force", false, "overwrite existing section files")
	tmpDir := fs.String("tmp", "", "temporary directory (env "+EnvTmpDir+")")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *outDir == "" {
		return errors.New("--out is required")
	}
	if fs.NArg() != 1 {
		return errors.New("exactly one package is required")
	}
	if !*force && fileutil.IsNonEmpty(filepath.Join(*outDir, wad.TicketFile)) {
		return fmt.Errorf("%s already holds an unpacked package (use --force)", *outDir)
	}

	dir, _ := determineTmpDir(*tmpDir)
	in := &inputs{tmpDir: dir}
	defer in.Close()

	path, err := in.local(ctx, fs.Arg(0))
	if err != nil {
		return err
	}
	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	res, err := wad.Unpack(ctx, path, *outDir, wad.UnpackOptions{Fakesign: *fakesign, TmpDir: dir})
	if err != nil {
		return err
	}

	for _, f := range res.Files {
		fmt.Fprintln(stdout, f)
	}
	if res.Fakesign != nil {
		printFakesign(stdout, fs.Arg(0), res.Fakesign)
	}
	fmt.Fprintf(stdout, "%s: %s, %d files, %s\n",
		fs.Arg(0), humanfmt.TitleID(res.Ticket.TitleID), len(res.Files), humanfmt.Bytes(res.Bytes))
	return nil
}

func runPack(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("pack", flag.ContinueOnError)
	outPath := fs.String("out", "", "output package path")
	boot2 := fs.Bool("boot2", false, "write a boot2 package (type ib)")
	fakesign := fs.Bool("fakesign", false, "fakesign the ticket before packing")
	force := fs.Bool("force", false, "overwrite an existing package")
	tmpDir := fs.String("tmp", "", "temporary directory (env "+EnvTmpDir+")")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *outPath == "" {
		return errors.New("--out is required")
	}
	if fs.NArg() != 1 {
		return errors.New("exactly one section directory is required")
	}
	if !*force && fileutil.Exists(*outPath) {
		return fmt.Errorf("%s exists (use --force)", *outPath)
	}

	opts := wad.PackOptions{Type: wad.TypeNormal, Fakesign: *fakesign}
	if *boot2 {
		opts.Type = wad.TypeBoot2
	}
	opts.TmpDir, _ = determineTmpDir(*tmpDir)

	res, err := wad.Pack(ctx, fs.Arg(0), *outPath, opts)
	if err != nil {
		return err
	}

	if res.Fakesign != nil {
		printFakesign(stdout, *outPath, res.Fakesign)
	}
	fmt.Fprintf(stdout, "%s: %s, type %s, %s\n",
		*outPath, humanfmt.TitleID(res.Ticket.TitleID), res.Header.Type, humanfmt.Bytes(res.Size))
	return nil
}
