package catalog

import (
	"compress/gzip"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/parquet-go/parquet-go"
)

// Reader streams records from a report.
type Reader interface {
	// Next returns the next record. Returns io.EOF when all records have been read.
	Next() (Record, error)

	// Close releases resources associated with the reader.
	Close() error
}

var recordSchema = parquet.SchemaOf(Record{})

// Open opens the report at path in the format its extension names.
func Open(path string) (Reader, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open report: %w", err)
	}

	var r Reader
	switch format {
	case FormatParquet:
		r, err = newParquetReader(f)
	case FormatCSVGzip:
		r, err = newCSVReader(f, true)
	default:
		r, err = newCSVReader(f, false)
	}
	if err != nil {
		f.Close()
		return nil, err
	}
	return r, nil
}

// ReadAll reads every record of the report at path.
func ReadAll(path string) ([]Record, error) {
	r, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var records []Record
	for {
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
}

// parquetReader iterates the row groups of a Parquet report.
type parquetReader struct {
	f *os.File

	rowGroups    []parquet.RowGroup
	currentRGIdx int
	currentRows  parquet.Rows
	rowBuf       []parquet.Row
	bufIdx       int
	bufLen       int
}

func newParquetReader(f *os.File) (*parquetReader, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat report: %w", err)
	}
	file, err := parquet.OpenFile(f, info.Size())
	if err != nil {
		return nil, fmt.Errorf("open parquet file: %w", err)
	}
	if err := checkParquetSchema(file.Schema()); err != nil {
		return nil, err
	}

	return &parquetReader{
		f:            f,
		rowGroups:    file.RowGroups(),
		currentRGIdx: -1,
		rowBuf:       make([]parquet.Row, 256),
	}, nil
}

// checkParquetSchema rejects files not written by Write.
func checkParquetSchema(schema *parquet.Schema) error {
	have := make(map[string]bool)
	for _, field := range schema.Fields() {
		have[field.Name()] = true
	}
	for _, col := range columns {
		if !have[col] {
			return fmt.Errorf("parquet schema missing %q column", col)
		}
	}
	if len(have) != len(columns) {
		return fmt.Errorf("parquet schema has %d columns, want %d", len(have), len(columns))
	}
	return nil
}

func (r *parquetReader) Next() (Record, error) {
	for {
		if r.bufIdx < r.bufLen {
			row := r.rowBuf[r.bufIdx]
			r.bufIdx++

			var rec Record
			if err := recordSchema.Reconstruct(&rec, row); err != nil {
				return Record{}, fmt.Errorf("decode parquet row: %w", err)
			}
			return rec, nil
		}

		if r.currentRows != nil {
			n, err := r.currentRows.ReadRows(r.rowBuf)
			if n > 0 {
				r.bufIdx = 0
				r.bufLen = n
				continue
			}
			if err != nil && !errors.Is(err, io.EOF) {
				return Record{}, fmt.Errorf("read parquet rows: %w", err)
			}
			r.currentRows.Close()
			r.currentRows = nil
		}

		r.currentRGIdx++
		if r.currentRGIdx >= len(r.rowGroups) {
			return Record{}, io.EOF
		}
		r.currentRows = r.rowGroups[r.currentRGIdx].Rows()
	}
}

func (r *parquetReader) Close() error {
	if r.currentRows != nil {
		r.currentRows.Close()
	}
	return r.f.Close()
}

// csvReader reads a CSV report, locating columns by the header row.
type csvReader struct {
	csvReader *csv.Reader
	index     map[string]int
	closers   []io.Closer
}

func newCSVReader(f *os.File, gzipped bool) (*csvReader, error) {
	var reader io.Reader = f
	closers := []io.Closer{f}

	if gzipped {
		gzr, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("create gzip reader: %w", err)
		}
		closers = append(closers, gzr)
		reader = gzr
	}

	csvr := csv.NewReader(reader)
	csvr.FieldsPerRecord = -1

	header, err := csvr.Read()
	if err != nil {
		return nil, fmt.Errorf("read CSV header: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[name] = i
	}
	if _, ok := index["path"]; !ok {
		return nil, errors.New("CSV report missing 'path' column")
	}

	return &csvReader{csvReader: csvr, index: index, closers: closers}, nil
}

func (r *csvReader) Next() (Record, error) {
	fields, err := r.csvReader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Record{}, io.EOF
		}
		return Record{}, fmt.Errorf("read CSV row: %w", err)
	}

	get := func(name string) string {
		i, ok := r.index[name]
		if !ok || i >= len(fields) {
			return ""
		}
		return fields[i]
	}

	rec := Record{
		Path:          get("path"),
		Container:     get("container"),
		SignatureType: get("signature_type"),
		Kind:          get("kind"),
		Issuer:        get("issuer"),
		TitleID:       get("title_id"),
		Category:      get("category"),
		TicketID:      get("ticket_id"),
		ConsoleID:     get("console_id"),
		Error:         get("error"),
	}

	// Rows for unreadable files carry no ticket columns.
	if !rec.OK() {
		return rec, nil
	}
	if rec.Exportable, err = strconv.ParseBool(get("exportable")); err != nil {
		return Record{}, fmt.Errorf("parse exportable for %s: %w", rec.Path, err)
	}
	if rec.Fakesigned, err = strconv.ParseBool(get("fakesigned")); err != nil {
		return Record{}, fmt.Errorf("parse fakesigned for %s: %w", rec.Path, err)
	}
	v, err := strconv.ParseInt(get("title_version"), 10, 32)
	if err != nil {
		return Record{}, fmt.Errorf("parse title_version for %s: %w", rec.Path, err)
	}
	rec.TitleVersion = int32(v)
	if v, err = strconv.ParseInt(get("common_key_index"), 10, 32); err != nil {
		return Record{}, fmt.Errorf("parse common_key_index for %s: %w", rec.Path, err)
	}
	rec.CommonKeyIndex = int32(v)
	if rec.Size, err = strconv.ParseInt(get("size"), 10, 64); err != nil {
		return Record{}, fmt.Errorf("parse size for %s: %w", rec.Path, err)
	}
	return rec, nil
}

func (r *csvReader) Close() error {
	var firstErr error
	// Close in reverse order (gzip reader before underlying file)
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i].Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
