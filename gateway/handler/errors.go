package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/RigelNana/arkpaper/gateway/middleware"
	"github.com/RigelNana/arkpaper/services/paperwork-service/apperr"
	"github.com/RigelNana/arkpaper/services/paperwork-service/models"
)

var statusByKind = map[apperr.Kind]int{
	apperr.KindNotAuthorized:          http.StatusForbidden,
	apperr.KindForbidden:              http.StatusForbidden,
	apperr.KindNotFound:               http.StatusNotFound,
	apperr.KindVersionNotFound:        http.StatusNotFound,
	apperr.KindEntryNotFound:          http.StatusNotFound,
	apperr.KindNothingToReview:        http.StatusConflict,
	apperr.KindStaleVersion:           http.StatusConflict,
	apperr.KindNoArtifacts:            http.StatusBadRequest,
	apperr.KindInvalidInput:           http.StatusBadRequest,
	apperr.KindMissingPrimaryArtifact: http.StatusUnprocessableEntity,
	apperr.KindInvalidArtifact:        http.StatusUnprocessableEntity,
	apperr.KindUnsupportedMediaKind:   http.StatusUnprocessableEntity,
	apperr.KindCorruptArchive:         http.StatusUnprocessableEntity,
	apperr.KindEntryTooLarge:          http.StatusRequestEntityTooLarge,
	apperr.KindKeyAlreadyExists:       http.StatusInternalServerError,
	apperr.KindStorageFailure:         http.StatusServiceUnavailable,
	apperr.KindInternal:               http.StatusInternalServerError,
}

// StatusFor maps an error kind onto an HTTP status.
func StatusFor(kind apperr.Kind) int {
	if status, ok := statusByKind[kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func respondError(c *gin.Context, logger *logrus.Logger, err error) {
	_ = c.Error(err)
	if errors.Is(err, context.Canceled) {
		c.AbortWithStatus(499)
		return
	}
	kind := apperr.KindOf(err)
	status := StatusFor(kind)
	message := apperr.MessageOf(err)

	entry := logger.WithError(err).WithFields(logrus.Fields{
		"kind": kind,
		"path": c.Request.URL.Path,
	})
	switch {
	case kind == apperr.KindKeyAlreadyExists:
		entry.Error("write-once violation")
	case kind == apperr.KindInternal:
		entry.Error("internal error")
		message = "internal error"
	case status >= 500:
		entry.Error("request failed")
	}
	c.AbortWithStatusJSON(status, gin.H{"error": gin.H{"kind": kind, "message": message}})
}

func principal(c *gin.Context, logger *logrus.Logger) (models.Principal, bool) {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		logger.WithField("path", c.Request.URL.Path).Error("principal missing from authenticated route")
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": gin.H{"kind": "Unauthenticated", "message": "user not authenticated"}})
	}
	return p, ok
}

func paperworkID(c *gin.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, apperr.New(apperr.KindInvalidInput, "invalid paperwork id %q", c.Param("id"))
	}
	return id, nil
}

func versionNo(c *gin.Context) (int, error) {
	no, err := strconv.Atoi(c.Param("no"))
	if err != nil || no < 1 {
		return 0, apperr.New(apperr.KindInvalidInput, "invalid version number %q", c.Param("no"))
	}
	return no, nil
}
