package archive

import (
	"archive/zip"
	"bytes"
)

// File is a named payload bundled into a zip export.
type File struct {
	Name string
	MIME string
	Data []byte
}

// Build writes the files into an in-memory zip archive.
func Build(files []File) []byte {
	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)
	for _, f := range files {
		w, err := zw.Create(f.Name)
		if err != nil {
			continue
		}
		if _, err := w.Write(f.Data); err != nil {
			return nil
		}
	}
	_ = zw.Close()
	return buf.Bytes()
}
