// Package catalog scans trees of packages and tickets and writes one
// report row per file, as Parquet or CSV.
package catalog

import (
	"fmt"
	"strconv"

	"github.com/eunmann/wadtik/pkg/ticket"
)

// Container names the file type a record was read from.
const (
	ContainerWAD    = "wad"
	ContainerTicket = "tik"
)

// Record is one catalog row. Fields that could not be read are left zero
// and Error says why.
type Record struct {
	Path           string `parquet:"path"`
	Container      string `parquet:"container"`
	SignatureType  string `parquet:"signature_type"`
	Kind           string `parquet:"kind"`
	Issuer         string `parquet:"issuer"`
	TitleID        string `parquet:"title_id"`
	Category       string `parquet:"category"`
	Exportable     bool   `parquet:"exportable"`
	TicketID       string `parquet:"ticket_id"`
	ConsoleID      string `parquet:"console_id"`
	TitleVersion   int32  `parquet:"title_version"`
	CommonKeyIndex int32  `parquet:"common_key_index"`
	Size           int64  `parquet:"size"`
	Fakesigned     bool   `parquet:"fakesigned"`
	Error          string `parquet:"error"`
}

// columns is the CSV header, in Record field order.
var columns = []string{
	"path", "container", "signature_type", "kind", "issuer", "title_id", "category",
	"exportable", "ticket_id", "console_id", "title_version", "common_key_index",
	"size", "fakesigned", "error",
}

// FromTicket fills the ticket columns of a record.
func FromTicket(path, container string, t *ticket.Ticket) Record {
	return Record{
		Path:           path,
		Container:      container,
		SignatureType:  t.SignatureType.String(),
		Kind:           t.Kind.String(),
		Issuer:         t.Issuer,
		TitleID:        fmt.Sprintf("%016X", t.TitleID),
		Category:       t.Category().String(),
		Exportable:     t.Exportable(),
		TicketID:       fmt.Sprintf("%016X", t.TicketID),
		ConsoleID:      fmt.Sprintf("%08X", t.ConsoleID),
		TitleVersion:   int32(t.TitleVersion),
		CommonKeyIndex: int32(t.CommonKeyIndex),
		Size:           int64(t.Size),
		Fakesigned:     t.Fakesigned,
	}
}

// OK reports whether the file was read without error.
func (r Record) OK() bool {
	return r.Error == ""
}

func (r Record) csvFields() []string {
	return []string{
		r.Path, r.Container, r.SignatureType, r.Kind, r.Issuer, r.TitleID, r.Category,
		strconv.FormatBool(r.Exportable), r.TicketID, r.ConsoleID,
		strconv.FormatInt(int64(r.TitleVersion), 10),
		strconv.FormatInt(int64(r.CommonKeyIndex), 10),
		strconv.FormatInt(r.Size, 10),
		strconv.FormatBool(r.Fakesigned), r.Error,
	}
}
