package catalog

import (
	"compress/gzip"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/eunmann/wadtik/pkg/fileutil"
	"github.com/eunmann/wadtik/pkg/logging"
	"github.com/parquet-go/parquet-go"
	"github.com/rs/zerolog"
)

// Format is a report file format.
type Format int

const (
	FormatParquet Format = iota
	FormatCSV
	FormatCSVGzip
)

// ErrUnknownFormat is returned for report paths with an unrecognized extension.
var ErrUnknownFormat = errors.New("unknown report format")

// FormatOf picks the report format from the path's extension:
// .parquet, .csv or .csv.gz.
func FormatOf(path string) (Format, error) {
	p := strings.ToLower(path)
	switch {
	case strings.HasSuffix(p, ".parquet"):
		return FormatParquet, nil
	case strings.HasSuffix(p, ".csv.gz"):
		return FormatCSVGzip, nil
	case strings.HasSuffix(p, ".csv"):
		return FormatCSV, nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}
}

// Write writes records to path in the format its extension names.
// The file appears atomically.
func Write(log zerolog.Logger, tmpDir, path string, records []Record) error {
	start := time.Now()

	format, err := FormatOf(path)
	if err != nil {
		return err
	}

	err = fileutil.WriteTmpThenMove(tmpDir, path, func(tmpPath string) error {
		f, err := os.Create(tmpPath)
		if err != nil {
			return fmt.Errorf("create report: %w", err)
		}
		if err := encode(f, format, records); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	})
	if err != nil {
		return err
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat report: %w", err)
	}
	logging.FileCreated(log, "catalog", time.Since(start)).
		Str("file", path).
		Count("records", int64(len(records))).
		Bytes("size", info.Size()).
		Log("report written")
	return nil
}

func encode(w io.Writer, format Format, records []Record) error {
	switch format {
	case FormatParquet:
		return writeParquet(w, records)
	case FormatCSVGzip:
		gzw := gzip.NewWriter(w)
		if err := writeCSV(gzw, records); err != nil {
			gzw.Close()
			return err
		}
		return gzw.Close()
	default:
		return writeCSV(w, records)
	}
}

func writeParquet(w io.Writer, records []Record) error {
	pw := parquet.NewGenericWriter[Record](w)
	if _, err := pw.Write(records); err != nil {
		pw.Close()
		return fmt.Errorf("write parquet rows: %w", err)
	}
	if err := pw.Close(); err != nil {
		return fmt.Errorf("close parquet writer: %w", err)
	}
	return nil
}

func writeCSV(w io.Writer, records []Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return fmt.Errorf("write CSV header: %w", err)
	}
	for _, r := range records {
		if err := cw.Write(r.csvFields()); err != nil {
			return fmt.Errorf("write CSV row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
