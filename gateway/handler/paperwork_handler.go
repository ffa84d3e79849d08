package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/RigelNana/arkpaper/services/paperwork-service/apperr"
	"github.com/RigelNana/arkpaper/services/paperwork-service/models"
	"github.com/RigelNana/arkpaper/services/paperwork-service/service"
)

const defaultMaxUploadBytes = 200 << 20

type PaperworkHandler struct {
	svc            service.PaperworkService
	logger         *logrus.Logger
	maxUploadBytes int64
}

func NewPaperworkHandler(svc service.PaperworkService, logger *logrus.Logger, maxUploadBytes int64) *PaperworkHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = defaultMaxUploadBytes
	}
	return &PaperworkHandler{svc: svc, logger: logger, maxUploadBytes: maxUploadBytes}
}

type assignRequest struct {
	Title        string        `json:"title"`
	Description  string        `json:"description"`
	ResearcherID string        `json:"researcher_id"`
	Deadline     deadlineInput `json:"deadline"`
}

// AssignPaperwork 分配论文任务
// POST /api/admin/paperworks
func (h *PaperworkHandler) AssignPaperwork(c *gin.Context) {
	p, ok := principal(c, h.logger)
	if !ok {
		return
	}
	var req assignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.logger, apperr.Wrap(apperr.KindInvalidInput, err, "invalid request body"))
		return
	}
	researcher, err := uuid.Parse(req.ResearcherID)
	if err != nil {
		respondError(c, h.logger, apperr.New(apperr.KindInvalidInput, "invalid researcher_id %q", req.ResearcherID))
		return
	}
	view, err := h.svc.AssignPaperwork(c.Request.Context(), p, service.AssignInput{
		Title:        req.Title,
		Description:  req.Description,
		ResearcherID: researcher,
		Deadline:     req.Deadline.value,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

// ListPaperworks
// GET /api/paperworks
func (h *PaperworkHandler) ListPaperworks(c *gin.Context) {
	p, ok := principal(c, h.logger)
	if !ok {
		return
	}
	views, err := h.svc.ListPaperworks(c.Request.Context(), p)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"paperworks": views, "total": len(views)})
}

// GetPaperwork
// GET /api/paperworks/:id
func (h *PaperworkHandler) GetPaperwork(c *gin.Context) {
	p, ok := principal(c, h.logger)
	if !ok {
		return
	}
	id, err := paperworkID(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	view, err := h.svc.GetPaperwork(c.Request.Context(), p, id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// GetStatus
// GET /api/paperworks/:id/status
func (h *PaperworkHandler) GetStatus(c *gin.Context) {
	p, ok := principal(c, h.logger)
	if !ok {
		return
	}
	id, err := paperworkID(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	status, err := h.svc.Status(c.Request.Context(), p, id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"paperwork_id": id, "status": status})
}

// SetDeadline sets or clears (null) the deadline. Bare dates are accepted.
// PUT /api/paperworks/:id/deadline
func (h *PaperworkHandler) SetDeadline(c *gin.Context) {
	p, ok := principal(c, h.logger)
	if !ok {
		return
	}
	id, err := paperworkID(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	var req struct {
		Deadline deadlineInput `json:"deadline"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.logger, apperr.Wrap(apperr.KindInvalidInput, err, "invalid request body"))
		return
	}
	res, err := h.svc.SetDeadline(c.Request.Context(), p, id, req.Deadline.value)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// SubmitVersion 提交新版本. Multipart fields are named after artifact roles;
// an optional "<role>_kind" field overrides the extension-derived media kind.
// POST /api/paperworks/:id/versions
func (h *PaperworkHandler) SubmitVersion(c *gin.Context) {
	p, ok := principal(c, h.logger)
	if !ok {
		return
	}
	id, err := paperworkID(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	form, err := c.MultipartForm()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(c, h.logger, apperr.New(apperr.KindInvalidArtifact, "upload exceeds %d bytes", h.maxUploadBytes))
			return
		}
		respondError(c, h.logger, apperr.Wrap(apperr.KindInvalidInput, err, "expected a multipart form"))
		return
	}

	in := service.SubmitInput{Comments: c.PostForm("comments")}
	for field, headers := range form.File {
		role, err := models.ParseRole(field)
		if err != nil {
			respondError(c, h.logger, apperr.Wrap(apperr.KindInvalidArtifact, err, "unexpected file field %q", field))
			return
		}
		if len(headers) != 1 {
			respondError(c, h.logger, apperr.New(apperr.KindInvalidArtifact, "exactly one file expected for %s", role))
			return
		}
		fh := headers[0]
		f, err := fh.Open()
		if err != nil {
			respondError(c, h.logger, apperr.Wrap(apperr.KindInvalidInput, err, "read %s", fh.Filename))
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			respondError(c, h.logger, apperr.Wrap(apperr.KindInvalidInput, err, "read %s", fh.Filename))
			return
		}
		in.Artifacts = append(in.Artifacts, service.ArtifactUpload{
			Role:        role,
			MediaKind:   models.MediaKind(c.PostForm(field + "_kind")),
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Data:        data,
		})
	}

	v, err := h.svc.SubmitVersion(c.Request.Context(), p, id, in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, v)
}

// ListVersions
// GET /api/paperworks/:id/versions
func (h *PaperworkHandler) ListVersions(c *gin.Context) {
	p, ok := principal(c, h.logger)
	if !ok {
		return
	}
	id, err := paperworkID(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	versions, err := h.svc.ListVersions(c.Request.Context(), p, id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"versions": versions, "total": len(versions)})
}

// GetVersion
// GET /api/paperworks/:id/versions/:no
func (h *PaperworkHandler) GetVersion(c *gin.Context) {
	p, ok := principal(c, h.logger)
	if !ok {
		return
	}
	id, err := paperworkID(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	no, err := versionNo(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	v, err := h.svc.GetVersion(c.Request.Context(), p, id, no)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

// RecordReview 记录评审结论
// POST /api/paperworks/:id/review
func (h *PaperworkHandler) RecordReview(c *gin.Context) {
	p, ok := principal(c, h.logger)
	if !ok {
		return
	}
	id, err := paperworkID(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	var req service.ReviewInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.logger, apperr.Wrap(apperr.KindInvalidInput, err, "invalid request body"))
		return
	}
	r, err := h.svc.RecordReview(c.Request.Context(), p, id, req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, r)
}

// ListReviews
// GET /api/paperworks/:id/reviews
func (h *PaperworkHandler) ListReviews(c *gin.Context) {
	p, ok := principal(c, h.logger)
	if !ok {
		return
	}
	id, err := paperworkID(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	reviews, err := h.svc.ListReviews(c.Request.Context(), p, id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reviews": reviews, "total": len(reviews)})
}

// History
// GET /api/paperworks/:id/history
func (h *PaperworkHandler) History(c *gin.Context) {
	p, ok := principal(c, h.logger)
	if !ok {
		return
	}
	id, err := paperworkID(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	timeline, err := h.svc.History(c.Request.Context(), p, id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, timeline)
}
