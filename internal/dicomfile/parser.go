package dicomfile

import (
	"bytes"
	"fmt"
	"io"

	"github.com/go-git/go-billy/v5"
	"github.com/suyashkumar/dicom"

	"dicomsort/internal/record"
)

const preambleLength = 128

var magic = []byte("DICM")

// Parser recognizes DICOM files on a billy filesystem.
type Parser struct {
	FS billy.Filesystem
}

// NewParser returns a parser reading from fs.
func NewParser(fs billy.Filesystem) *Parser {
	return &Parser{FS: fs}
}

// TryParse implements record.Parser. Files without the DICM preamble marker
// are reported as record.ErrNotARecord.
func (p *Parser) TryParse(path string) (record.Record, error) {
	ds, err := p.read(path, true)
	if err != nil {
		return nil, err
	}
	return newFile(p.FS, path, ds), nil
}

func (p *Parser) read(path string, skipPixels bool) (dicom.Dataset, error) {
	f, err := p.FS.Open(path)
	if err != nil {
		return dicom.Dataset{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	info, err := p.FS.Stat(path)
	if err != nil {
		return dicom.Dataset{}, fmt.Errorf("stat %s: %w", path, err)
	}

	header := make([]byte, preambleLength+len(magic))
	if _, err := io.ReadFull(f, header); err != nil {
		return dicom.Dataset{}, fmt.Errorf("%w: %s: short file", record.ErrNotARecord, path)
	}
	if !bytes.Equal(header[preambleLength:], magic) {
		return dicom.Dataset{}, fmt.Errorf("%w: %s: missing DICM marker", record.ErrNotARecord, path)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return dicom.Dataset{}, fmt.Errorf("rewind %s: %w", path, err)
	}

	var opts []dicom.ParseOption
	if skipPixels {
		opts = append(opts, dicom.SkipPixelData())
	}
	ds, err := dicom.Parse(f, info.Size(), nil, opts...)
	if err != nil {
		return dicom.Dataset{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return ds, nil
}
