package archive

import (
	"bytes"
	"path"
	"strings"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
)

// extension table consulted before content sniffing; keeps results stable
// across hosts regardless of system mime databases.
var extensionTypes = map[string]string{
	".py":    "text/x-python",
	".ipynb": "application/x-ipynb+json",
	".r":     "text/x-r",
	".m":     "text/x-matlab",
	".jl":    "text/x-julia",
	".c":     "text/x-c",
	".h":     "text/x-c",
	".cpp":   "text/x-c++",
	".hpp":   "text/x-c++",
	".java":  "text/x-java",
	".go":    "text/x-go",
	".rs":    "text/x-rust",
	".js":    "text/javascript",
	".ts":    "text/x-typescript",
	".sh":    "text/x-shellscript",
	".tex":   "application/x-tex",
	".bib":   "text/x-bibtex",
	".md":    "text/markdown",
	".txt":   "text/plain",
	".csv":   "text/csv",
	".tsv":   "text/tab-separated-values",
	".json":  "application/json",
	".yaml":  "application/yaml",
	".yml":   "application/yaml",
	".toml":  "application/toml",
	".xml":   "application/xml",
	".html":  "text/html",
	".css":   "text/css",
	".png":   "image/png",
	".jpg":   "image/jpeg",
	".jpeg":  "image/jpeg",
	".gif":   "image/gif",
	".bmp":   "image/bmp",
	".webp":  "image/webp",
	".svg":   "image/svg+xml",
	".ico":   "image/x-icon",
	".tif":   "image/tiff",
	".tiff":  "image/tiff",
	".ttf":   "font/ttf",
	".otf":   "font/otf",
	".woff":  "font/woff",
	".woff2": "font/woff2",
	".exe":   "application/vnd.microsoft.portable-executable",
	".dll":   "application/vnd.microsoft.portable-executable",
	".so":    "application/x-sharedlib",
	".dylib": "application/x-mach-binary",
	".o":     "application/x-object",
	".class": "application/java-vm",
	".pyc":   "application/x-python-code",
	".pdf":   "application/pdf",
	".zip":   "application/zip",
}

var executableTypes = map[string]bool{
	"application/vnd.microsoft.portable-executable": true,
	"application/x-msdownload":                      true,
	"application/x-executable":                      true,
	"application/x-elf":                             true,
	"application/x-sharedlib":                       true,
	"application/x-mach-binary":                     true,
	"application/x-object":                          true,
	"application/java-vm":                           true,
	"application/x-python-code":                     true,
	"application/wasm":                              true,
}

// DetectContentType infers a MIME type from the entry name, falling back to
// sniffing the content.
func DetectContentType(name string, data []byte) string {
	if ct, ok := extensionTypes[strings.ToLower(path.Ext(name))]; ok {
		return ct
	}
	return mimetype.Detect(data).String()
}

// IsBinary classifies content: a NUL byte, invalid UTF-8, or an
// image/font/executable content type make it binary.
func IsBinary(data []byte, contentType string) bool {
	if bytes.IndexByte(data, 0) >= 0 || !utf8.Valid(data) {
		return true
	}
	return isBinaryFamily(contentType)
}

func isBinaryFamily(contentType string) bool {
	base := strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0])
	switch {
	case strings.HasPrefix(base, "image/"), strings.HasPrefix(base, "font/"):
		return true
	case executableTypes[base]:
		return true
	}
	return false
}
