package handler

import (
	"context"
	"mime"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/RigelNana/arkpaper/services/paperwork-service/archive"
	"github.com/RigelNana/arkpaper/services/paperwork-service/models"
	"github.com/RigelNana/arkpaper/services/paperwork-service/service"
)

// ArtifactGateway is the read-only artifact surface the handler serves.
type ArtifactGateway interface {
	OpenArtifact(ctx context.Context, p models.Principal, id uuid.UUID, number int, role models.ArtifactRole) (*service.ArtifactStream, error)
	ListArchiveEntries(ctx context.Context, p models.Principal, id uuid.UUID, number int, role models.ArtifactRole, pattern string) ([]archive.Entry, error)
	ExtractArchiveEntry(ctx context.Context, p models.Principal, id uuid.UUID, number int, role models.ArtifactRole, path string) (*archive.EntryContent, error)
}

type ArtifactHandler struct {
	access ArtifactGateway
	logger *logrus.Logger
}

func NewArtifactHandler(access ArtifactGateway, logger *logrus.Logger) *ArtifactHandler {
	return &ArtifactHandler{access: access, logger: logger}
}

type artifactTarget struct {
	principal models.Principal
	id        uuid.UUID
	number    int
	role      models.ArtifactRole
}

// target collects the path parameters without validating them, so
// that authorization runs before any not-found decision. The role comes from
// the path when present, else from ?role=, defaulting to code_bundle. A
// version that is not a number resolves as version 0, which never exists.
func (h *ArtifactHandler) target(c *gin.Context) (artifactTarget, bool) {
	p, ok := principal(c, h.logger)
	if !ok {
		return artifactTarget{}, false
	}
	// a malformed id resolves like an unknown paperwork
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		id = uuid.Nil
	}
	no, err := strconv.Atoi(c.Param("no"))
	if err != nil {
		no = 0
	}
	role := c.Param("role")
	if role == "" {
		role = c.DefaultQuery("role", string(models.RoleCodeBundle))
	}
	return artifactTarget{principal: p, id: id, number: no, role: models.ArtifactRole(role)}, true
}

// Download streams one artifact. Range requests are honoured; ?inline=1
// asks the browser to display instead of save.
// GET /api/paperworks/:id/versions/:no/artifacts/:role
func (h *ArtifactHandler) Download(c *gin.Context) {
	t, ok := h.target(c)
	if !ok {
		return
	}
	stream, err := h.access.OpenArtifact(c.Request.Context(), t.principal, t.id, t.number, t.role)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	defer stream.Object.Close()

	disposition := "attachment"
	if c.Query("inline") == "1" {
		disposition = "inline"
	}
	c.Header("Content-Disposition", mime.FormatMediaType(disposition, map[string]string{"filename": stream.Filename}))
	c.Header("Content-Type", stream.ContentType)
	c.Header("X-Content-Type-Options", "nosniff")
	if stream.Artifact.Checksum != "" {
		c.Header("ETag", `"`+stream.Artifact.Checksum+`"`)
	}
	http.ServeContent(c.Writer, c.Request, stream.Filename, stream.ModTime, stream.Object)
}

// ArchiveEntries lists a zip artifact, optionally filtered by ?pattern=.
// GET /api/paperworks/:id/versions/:no/archive
func (h *ArtifactHandler) ArchiveEntries(c *gin.Context) {
	t, ok := h.target(c)
	if !ok {
		return
	}
	entries, err := h.access.ListArchiveEntries(c.Request.Context(), t.principal, t.id, t.number, t.role, c.Query("pattern"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries, "total": len(entries)})
}

// ArchiveEntry returns one zip entry; binary content is base64 encoded.
// GET /api/paperworks/:id/versions/:no/archive/entry?path=
func (h *ArtifactHandler) ArchiveEntry(c *gin.Context) {
	t, ok := h.target(c)
	if !ok {
		return
	}
	content, err := h.access.ExtractArchiveEntry(c.Request.Context(), t.principal, t.id, t.number, t.role, c.Query("path"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, content)
}
