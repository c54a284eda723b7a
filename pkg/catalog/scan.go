package catalog

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/eunmann/wadtik/internal/logctx"
	"github.com/eunmann/wadtik/pkg/logging"
	"github.com/eunmann/wadtik/pkg/ticket"
	"github.com/eunmann/wadtik/pkg/wad"
	"golang.org/x/sync/errgroup"
)

// Input is one file to catalog. Name is what the report shows; Path is
// where the bytes are. They differ for downloaded objects.
type Input struct {
	Name string
	Path string
}

// ContainerOf returns the container type implied by the file extension,
// or "" if the file is not cataloged.
func ContainerOf(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".wad":
		return ContainerWAD
	case ".tik":
		return ContainerTicket
	default:
		return ""
	}
}

// Walk lists the packages and tickets under root in lexical order.
func Walk(root string) ([]Input, error) {
	var inputs []Input
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() && ContainerOf(path) != "" {
			inputs = append(inputs, Input{Name: path, Path: path})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	sort.Slice(inputs, func(i, j int) bool { return inputs[i].Name < inputs[j].Name })
	return inputs, nil
}

// Scan reads every input with up to workers files in flight and returns
// one record per input, in input order. Per-file failures are recorded in
// Record.Error; only cancellation aborts the scan.
func Scan(ctx context.Context, inputs []Input, workers int) ([]Record, error) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	tracker := logging.NewScanTracker(logctx.FromContext(ctx), len(inputs))

	records := make([]Record, len(inputs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, in := range inputs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			rec := scanFile(logctx.WithStr(ctx, "file", in.Name), in)
			if rec.OK() {
				tracker.Ticket(in.Name, rec.TitleID, rec.Kind, time.Since(start))
			} else {
				tracker.Failed(in.Name, rec.Error, time.Since(start))
			}
			records[i] = rec
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	tracker.Complete("catalog scanned")
	return records, nil
}

// ScanDir walks root and scans what it finds.
func ScanDir(ctx context.Context, root string, workers int) ([]Record, error) {
	inputs, err := Walk(root)
	if err != nil {
		return nil, err
	}
	return Scan(ctx, inputs, workers)
}

func scanFile(ctx context.Context, in Input) Record {
	container := ContainerOf(in.Name)
	if container == "" {
		container = ContainerOf(in.Path)
	}
	rec := Record{Path: in.Name, Container: container}

	if in.Path != in.Name {
		log := logctx.FromContext(ctx)
		log.Debug().Str("path", in.Path).Msg("reading downloaded copy")
	}
	buf, err := readTicket(in.Path, container)
	if err != nil {
		rec.Error = err.Error()
		return rec
	}
	t, err := ticket.Parse(buf)
	if err != nil {
		rec.Error = err.Error()
		return rec
	}
	return FromTicket(in.Name, container, t)
}

func readTicket(path, container string) ([]byte, error) {
	switch container {
	case ContainerWAD:
		return wad.ReadTicket(path)
	case ContainerTicket:
		// Ticket files may carry a certificate chain after the ticket.
		return os.ReadFile(path)
	default:
		return nil, fmt.Errorf("unsupported file type %q", filepath.Ext(path))
	}
}
