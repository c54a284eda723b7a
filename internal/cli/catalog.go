package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/eunmann/wadtik/internal/logctx"
	"github.com/eunmann/wadtik/pkg/catalog"
	"github.com/eunmann/wadtik/pkg/humanfmt"
	"github.com/eunmann/wadtik/pkg/s3fetch"
)

func runCatalog(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("catalog", flag.ContinueOnError)
	outPath := fs.String("out", "", "report path (.parquet, .csv or .csv.gz)")
	workers := fs.Int("workers", runtime.NumCPU(), "files read in parallel")
	tmpDir := fs.String("tmp", "", "temporary directory (env "+EnvTmpDir+")")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *outPath == "" {
		return errors.New("--out is required")
	}
	if _, err := catalog.FormatOf(*outPath); err != nil {
		return fmt.Errorf("--out: %w", err)
	}
	if *workers <= 0 {
		return errors.New("--workers must be positive")
	}
	if fs.NArg() == 0 {
		return errors.New("at least one directory, file or s3:// prefix is required")
	}

	dir, _ := determineTmpDir(*tmpDir)
	in := &inputs{tmpDir: dir}
	defer in.Close()

	var all []catalog.Input
	for _, root := range fs.Args() {
		found, err := in.catalogInputs(ctx, root)
		if err != nil {
			return err
		}
		all = append(all, found...)
	}

	records, err := catalog.Scan(ctx, all, *workers)
	if err != nil {
		return err
	}
	if err := catalog.Write(logctx.FromContext(ctx), dir, *outPath, records); err != nil {
		return err
	}

	failed := 0
	for _, r := range records {
		if !r.OK() {
			failed++
		}
	}
	fmt.Fprintf(stdout, "%s: %s records, %s unreadable\n",
		*outPath, humanfmt.Count(int64(len(records))), humanfmt.Count(int64(failed)))
	return nil
}

// catalogInputs expands one argument: an s3:// prefix, a directory or a file.
func (in *inputs) catalogInputs(ctx context.Context, root string) ([]catalog.Input, error) {
	if s3fetch.IsS3URI(root) {
		f, err := in.s3(ctx)
		if err != nil {
			return nil, err
		}
		objs, err := f.FetchPrefix(ctx, root, func(key string) bool {
			return catalog.ContainerOf(key) != ""
		})
		if err != nil {
			return nil, err
		}
		found := make([]catalog.Input, len(objs))
		for i, o := range objs {
			found[i] = catalog.Input{Name: o.URI, Path: o.Path}
		}
		return found, nil
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return catalog.Walk(root)
	}
	return []catalog.Input{{Name: root, Path: root}}, nil
}
