// Package filex reads local files for upload.
package filex

import (
	"fmt"
	"io"
	"net/http"
	"os"
)

// ReadLimited reads the file at path, refusing files larger than maxSize
// bytes, and sniffs its content type.
func ReadLimited(path string, maxSize int64) ([]byte, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, "", fmt.Errorf("stat %s: %w", path, err)
	}
	if fi.IsDir() {
		return nil, "", fmt.Errorf("%s is a directory", path)
	}
	if fi.Size() > maxSize {
		return nil, "", fmt.Errorf("%s is %d bytes, limit is %d", path, fi.Size(), maxSize)
	}

	data, err := io.ReadAll(io.LimitReader(f, maxSize+1))
	if err != nil {
		return nil, "", fmt.Errorf("read %s: %w", path, err)
	}
	if int64(len(data)) > maxSize {
		return nil, "", fmt.Errorf("%s grew past the %d byte limit", path, maxSize)
	}

	return data, http.DetectContentType(data), nil
}
