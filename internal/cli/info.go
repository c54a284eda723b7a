package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/eunmann/wadtik/pkg/catalog"
	"github.com/eunmann/wadtik/pkg/humanfmt"
	"github.com/eunmann/wadtik/pkg/ticket"
	"github.com/eunmann/wadtik/pkg/wad"
)

func runInfo(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("info", flag.ContinueOnError)
	tmpDir := fs.String("tmp", "", "temporary directory for downloaded inputs (env "+EnvTmpDir+")")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return errors.New("at least one package or ticket is required")
	}

	dir, _ := determineTmpDir(*tmpDir)
	in := &inputs{tmpDir: dir}
	defer in.Close()

	for i, arg := range fs.Args() {
		if i > 0 {
			fmt.Fprintln(stdout)
		}
		path, err := in.local(ctx, arg)
		if err != nil {
			return err
		}
		if err := describe(stdout, arg, path); err != nil {
			return fmt.Errorf("%s: %w", arg, err)
		}
	}
	return nil
}

// describe prints a package if the file is one, otherwise a ticket.
func describe(w io.Writer, name, path string) error {
	if catalog.ContainerOf(name) == catalog.ContainerTicket {
		return describeTicketFile(w, name, path)
	}

	info, err := wad.Inspect(path)
	switch {
	case err == nil:
		return printPackage(w, name, info)
	case errors.Is(err, wad.ErrInvalidHeader), errors.Is(err, wad.ErrUnsupportedType):
		if catalog.ContainerOf(name) == catalog.ContainerWAD {
			return err
		}
		return describeTicketFile(w, name, path)
	default:
		return err
	}
}

func describeTicketFile(w io.Writer, name, path string) error {
	buf, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	t, err := ticket.Parse(buf)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "file\t%s\n", name)
	printTicket(tw, t)
	if len(buf) > t.Size {
		fmt.Fprintf(tw, "trailing\t%s\n", humanfmt.Size(int64(len(buf)-t.Size)))
	}
	return tw.Flush()
}

func printPackage(w io.Writer, name string, info *wad.Info) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "file\t%s\n", name)
	fmt.Fprintf(tw, "type\t%s\n", info.Type)
	fmt.Fprintf(tw, "size\t%s\n", humanfmt.Size(info.Size))

	if b := info.Backup; b != nil {
		fmt.Fprintf(tw, "title ID\t%s\n", humanfmt.TitleID(b.TitleID))
		fmt.Fprintf(tw, "console ID\t%08X\n", b.ConsoleID)
		fmt.Fprintf(tw, "save files\t%d (%s)\n", b.SaveFileCount, humanfmt.Size(int64(b.SaveFileDataSize)))
		fmt.Fprintf(tw, "content TMD\t%s\n", humanfmt.Size(int64(b.ContentTMDSize)))
		fmt.Fprintf(tw, "content data\t%s\n", humanfmt.Size(int64(b.ContentDataSize)))
		fmt.Fprintf(tw, "MAC\t% X\n", b.MACAddress[:])
		return tw.Flush()
	}

	for _, sec := range info.Sections.All() {
		fmt.Fprintf(tw, "%s\t%s @ 0x%X\n", sec.Name, humanfmt.Size(sec.Size), sec.Offset)
	}
	printTicket(tw, info.Ticket)
	return tw.Flush()
}

func printTicket(w io.Writer, t *ticket.Ticket) {
	export := "not exportable"
	if t.Exportable() {
		export = "exportable"
	}
	fmt.Fprintf(w, "signature\t%s\n", t.SignatureType)
	fmt.Fprintf(w, "ticket size\t%s\n", humanfmt.Size(int64(t.Size)))
	fmt.Fprintf(w, "issuer\t%s\n", t.Issuer)
	fmt.Fprintf(w, "title ID\t%s\n", humanfmt.TitleID(t.TitleID))
	fmt.Fprintf(w, "category\t%s, %s\n", t.Category(), export)
	fmt.Fprintf(w, "title version\t%d\n", t.TitleVersion)
	fmt.Fprintf(w, "ticket ID\t%016X\n", t.TicketID)
	fmt.Fprintf(w, "console ID\t%08X\n", t.ConsoleID)
	fmt.Fprintf(w, "common key\t%d\n", t.CommonKeyIndex)
	fmt.Fprintf(w, "permit mask\t%08X\n", t.PermitMask)
	fmt.Fprintf(w, "titles mask\t%08X\n", t.PermittedTitlesMask)
	fmt.Fprintf(w, "content perms\t%d of %d\n", t.AccessibleContents(), len(t.ContentAccess)*8)
	fmt.Fprintf(w, "fakesigned\t%t\n", t.Fakesigned)
}
