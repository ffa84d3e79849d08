// Package archive lists and extracts entries of ZIP code bundles without
// unpacking them to disk.
package archive

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/klauspost/compress/zip"

	"github.com/RigelNana/arkpaper/pkg/metrics"
	"github.com/RigelNana/arkpaper/services/paperwork-service/apperr"
)

// DefaultMaxEntryBytes caps how much of a single entry is decompressed.
const DefaultMaxEntryBytes = 10 << 20

// Entry describes one file inside an archive.
type Entry struct {
	Path     string    `json:"path"`
	Size     uint64    `json:"size"`
	Modified time.Time `json:"modified"`
}

// EntryContent is a single extracted entry. Binary content is base64 encoded.
type EntryContent struct {
	Path        string `json:"path"`
	Content     string `json:"content"`
	ContentType string `json:"content_type"`
	IsBinary    bool   `json:"is_binary"`
	Size        int64  `json:"size"`
}

// Inspector reads ZIP archives through an io.ReaderAt so only the central
// directory and the requested entry are ever read.
type Inspector struct {
	maxEntryBytes int64
}

func NewInspector(maxEntryBytes int64) *Inspector {
	if maxEntryBytes <= 0 {
		maxEntryBytes = DefaultMaxEntryBytes
	}
	return &Inspector{maxEntryBytes: maxEntryBytes}
}

func open(r io.ReaderAt, size int64) (*zip.Reader, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindCorruptArchive, err, "not a valid zip archive")
	}
	return zr, nil
}

// Validate checks that the bytes form a readable archive.
func (i *Inspector) Validate(r io.ReaderAt, size int64) error {
	_, err := open(r, size)
	return err
}

// ListEntries returns a lazy sequence over the archive's file entries.
// Directories are skipped. The sequence may be ranged over repeatedly.
func (i *Inspector) ListEntries(r io.ReaderAt, size int64) (iter.Seq[Entry], error) {
	zr, err := open(r, size)
	if err != nil {
		return nil, err
	}
	return func(yield func(Entry) bool) {
		for _, f := range zr.File {
			if f.FileInfo().IsDir() {
				continue
			}
			if !yield(Entry{Path: f.Name, Size: f.UncompressedSize64, Modified: f.Modified}) {
				return
			}
		}
	}, nil
}

// Filter narrows a sequence to paths matching a doublestar pattern such as
// "**/*.py". An empty pattern matches everything.
func Filter(entries iter.Seq[Entry], pattern string) (iter.Seq[Entry], error) {
	if pattern == "" {
		return entries, nil
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, apperr.New(apperr.KindInvalidInput, "invalid entry pattern %q", pattern)
	}
	return func(yield func(Entry) bool) {
		for e := range entries {
			if ok, _ := doublestar.Match(pattern, e.Path); !ok {
				continue
			}
			if !yield(e) {
				return
			}
		}
	}, nil
}

// Paths collects the entry paths of a sequence.
func Paths(entries iter.Seq[Entry]) []string {
	paths := []string{}
	for e := range entries {
		paths = append(paths, e.Path)
	}
	return paths
}

// ExtractEntry decompresses one entry and classifies it as binary or text.
// It is deterministic: identical inputs yield identical results.
func (i *Inspector) ExtractEntry(r io.ReaderAt, size int64, path string) (*EntryContent, error) {
	zr, err := open(r, size)
	if err != nil {
		return nil, err
	}
	name := strings.TrimPrefix(path, "/")
	var target *zip.File
	for _, f := range zr.File {
		if f.Name == name && !f.FileInfo().IsDir() {
			target = f
			break
		}
	}
	if target == nil {
		return nil, apperr.New(apperr.KindEntryNotFound, "entry %q not found in archive", path)
	}
	if target.UncompressedSize64 > uint64(i.maxEntryBytes) {
		return nil, apperr.New(apperr.KindEntryTooLarge, "entry %q is %d bytes, limit is %d", path, target.UncompressedSize64, i.maxEntryBytes)
	}

	rc, err := target.Open()
	if err != nil {
		return nil, apperr.Wrap(apperr.KindCorruptArchive, err, "open entry %q", path)
	}
	defer rc.Close()

	// the header size is advisory; never read past the limit
	data, err := io.ReadAll(io.LimitReader(rc, i.maxEntryBytes+1))
	if err != nil {
		if errors.Is(err, zip.ErrChecksum) || errors.Is(err, zip.ErrFormat) || errors.Is(err, zip.ErrAlgorithm) {
			return nil, apperr.Wrap(apperr.KindCorruptArchive, err, "read entry %q", path)
		}
		return nil, fmt.Errorf("read entry %q: %w", path, err)
	}
	if int64(len(data)) > i.maxEntryBytes {
		return nil, apperr.New(apperr.KindEntryTooLarge, "entry %q exceeds %d bytes", path, i.maxEntryBytes)
	}

	contentType := DetectContentType(name, data)
	result := &EntryContent{
		Path:        name,
		ContentType: contentType,
		Size:        int64(len(data)),
	}
	if IsBinary(data, contentType) {
		result.IsBinary = true
		result.Content = base64.StdEncoding.EncodeToString(data)
		metrics.ArchiveExtractions.WithLabelValues("binary").Inc()
	} else {
		result.Content = string(data)
		metrics.ArchiveExtractions.WithLabelValues("text").Inc()
	}
	return result, nil
}
