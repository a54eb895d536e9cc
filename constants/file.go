package constants

import (
	"bytes"
	"strings"
)

// MaxUploadBytes caps uploaded documents at 10 MiB.
const MaxUploadBytes = 10 << 20

// pdfMagic is the required prefix of every PDF byte stream.
var pdfMagic = []byte("%PDF")

// IsPDF reports whether the byte stream starts with the PDF magic bytes.
func IsPDF(b []byte) bool {
	return bytes.HasPrefix(b, pdfMagic)
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}
