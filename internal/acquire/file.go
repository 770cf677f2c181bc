package acquire

import (
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/example/pneumoscan/internal/classification"
	"github.com/example/pneumoscan/internal/validator"
)

// LoadFile reads an image from disk into a SelectedFile. Files larger than
// the upload limit are described but not read.
func LoadFile(path string) (classification.SelectedFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return classification.SelectedFile{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return classification.SelectedFile{}, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return classification.SelectedFile{}, fmt.Errorf("%s is a directory", path)
	}

	file := classification.SelectedFile{
		Name:      filepath.Base(path),
		SizeBytes: info.Size(),
	}

	if info.Size() > validator.MaxUploadSize {
		head := make([]byte, 3072)
		n, _ := io.ReadFull(f, head)
		file.MIMEType = DetectMIME(file.Name, head[:n])
		return file, nil
	}

	data, err := io.ReadAll(f)
	if err != nil {
		return classification.SelectedFile{}, fmt.Errorf("read %s: %w", path, err)
	}
	file.Data = data
	file.MIMEType = DetectMIME(file.Name, data)
	return file, nil
}

// DetectMIME sniffs the content first and falls back to the file extension
// when the content is not recognized.
func DetectMIME(name string, data []byte) string {
	if len(data) > 0 {
		detected := mimetype.Detect(data)
		if !detected.Is("application/octet-stream") && !detected.Is("text/plain") {
			return baseType(detected.String())
		}
	}
	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); byExt != "" {
		return baseType(byExt)
	}
	return "application/octet-stream"
}

func baseType(t string) string {
	mediaType, _, err := mime.ParseMediaType(t)
	if err != nil {
		return t
	}
	return mediaType
}
