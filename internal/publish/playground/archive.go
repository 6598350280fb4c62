package playground

import (
	"bytes"
	"time"

	"github.com/klauspost/compress/zip"
)

// ArchiveEntry is the name of the single file stored in each project archive.
const ArchiveEntry = "index.js"

// archive returns an in-memory zip holding code as ArchiveEntry.
func archive(code string) ([]byte, error) {
	var buf bytes.Buffer

	zw := zip.NewWriter(&buf)

	w, err := zw.CreateHeader(&zip.FileHeader{
		Name:     ArchiveEntry,
		Method:   zip.Deflate,
		Modified: time.Now(),
	})
	if err != nil {
		return nil, err
	}

	if _, err := w.Write([]byte(code)); err != nil {
		return nil, err
	}

	if err := zw.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
