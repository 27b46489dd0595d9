package util

import (
	"encoding/base64"
	"errors"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

var ErrUnsupportedUpload = errors.New("unsupported file type, allowed: .pdf, .jpg, .jpeg, .png")

var allowedUploadTypes = map[string][]string{
	".pdf":  {"application/pdf"},
	".jpg":  {"image/jpeg"},
	".jpeg": {"image/jpeg"},
	".png":  {"image/png"},
}

// EncodeDataURL sniffs the content type of data and returns it as a base64 data URL.
// Only PDF, JPEG and PNG files are accepted, and the sniffed type must agree with the file extension.
func EncodeDataURL(filename string, data []byte) (string, error) {
	allowed, ok := allowedUploadTypes[strings.ToLower(filepath.Ext(filename))]
	if !ok {
		return "", ErrUnsupportedUpload
	}

	mt := mimetype.Detect(data)
	if !Contains(mt.String(), allowed) {
		return "", ErrUnsupportedUpload
	}

	return "data:" + mt.String() + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}
