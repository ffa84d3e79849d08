// Package storage persists raw artifact bytes under write-once keys.
package storage

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/RigelNana/arkpaper/services/paperwork-service/apperr"
	"github.com/RigelNana/arkpaper/services/paperwork-service/models"
)

// Store is the artifact byte store. Put is write-once per key.
type Store interface {
	Put(ctx context.Context, key string, data []byte) error
	Open(ctx context.Context, key string) (Object, error)
	// Delete exists only to clean up bytes orphaned by a failed ledger commit.
	Delete(ctx context.Context, key string) error
}

// Object is an open, immutable stored artifact.
type Object interface {
	io.Reader
	io.ReaderAt
	io.Seeker
	io.Closer
	Size() int64
}

// Key is the parsed form of an artifact storage key.
type Key struct {
	PaperworkID uuid.UUID
	Version     int
	Role        models.ArtifactRole
}

// String renders paperwork/{id}/version/{no}/{role}.
func (k Key) String() string {
	return fmt.Sprintf("paperwork/%s/version/%d/%s", k.PaperworkID, k.Version, k.Role)
}

// ArtifactKey builds the durable key for one artifact of a version.
func ArtifactKey(paperworkID uuid.UUID, version int, role models.ArtifactRole) string {
	return Key{PaperworkID: paperworkID, Version: version, Role: role}.String()
}

// ParseKey splits a storage key back into its scope. Authorization scope is
// derived from the key alone.
func ParseKey(key string) (Key, error) {
	parts := strings.Split(key, "/")
	if len(parts) != 5 || parts[0] != "paperwork" || parts[2] != "version" {
		return Key{}, apperr.New(apperr.KindInvalidInput, "malformed storage key %q", key)
	}
	id, err := uuid.Parse(parts[1])
	if err != nil {
		return Key{}, apperr.Wrap(apperr.KindInvalidInput, err, "malformed paperwork id in key %q", key)
	}
	no, err := strconv.Atoi(parts[3])
	if err != nil || no < 1 {
		return Key{}, apperr.New(apperr.KindInvalidInput, "malformed version number in key %q", key)
	}
	role, err := models.ParseRole(parts[4])
	if err != nil || string(role) != parts[4] {
		return Key{}, apperr.New(apperr.KindInvalidInput, "malformed role in key %q", key)
	}
	return Key{PaperworkID: id, Version: no, Role: role}, nil
}

// ReadRange reads length bytes starting at offset. A short read at the end of
// the object returns the available bytes.
func ReadRange(ctx context.Context, s Store, key string, offset, length int64) ([]byte, error) {
	if offset < 0 || length < 0 {
		return nil, apperr.New(apperr.KindInvalidInput, "invalid range %d+%d", offset, length)
	}
	obj, err := s.Open(ctx, key)
	if err != nil {
		return nil, err
	}
	defer obj.Close()

	if offset >= obj.Size() {
		return []byte{}, nil
	}
	if remaining := obj.Size() - offset; length > remaining {
		length = remaining
	}
	buf := make([]byte, length)
	n, err := obj.ReadAt(buf, offset)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("read range of %s: %w", key, err)
	}
	return buf[:n], nil
}

func notFound(key string) error {
	return apperr.New(apperr.KindNotFound, "artifact %s not found", key)
}

func alreadyExists(key string) error {
	return apperr.New(apperr.KindKeyAlreadyExists, "artifact %s already written", key)
}
