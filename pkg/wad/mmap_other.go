//go:build !unix

package wad

import (
	"fmt"
	"os"
)

type mappedFile struct {
	data []byte
}

func openMapped(path string) (*mappedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return &mappedFile{data: data}, nil
}

func (m *mappedFile) Bytes() []byte {
	return m.data
}

func (m *mappedFile) Close() error {
	m.data = nil
	return nil
}
