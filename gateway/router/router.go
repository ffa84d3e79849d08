package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/RigelNana/arkpaper/gateway/docs"
	"github.com/RigelNana/arkpaper/gateway/handler"
	"github.com/RigelNana/arkpaper/gateway/middleware"
	"github.com/RigelNana/arkpaper/pkg/metrics"
	ginmetrics "github.com/RigelNana/arkpaper/pkg/metrics/gin"
)

const serviceName = "paperwork-gateway"

type Handlers struct {
	Paperwork *handler.PaperworkHandler
	Artifact  *handler.ArtifactHandler
}

func Setup(h Handlers, auth *middleware.TokenValidator, logger *logrus.Logger) *gin.Engine {
	r := gin.New()
	r.Use(
		gin.Recovery(),
		middleware.RequestLogger(logger),
		ginmetrics.PrometheusMiddleware(serviceName, "/metrics", "/healthz", "/docs", "/openapi.json"),
	)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))
	docs.RegisterRoutes(r)

	api := r.Group("/api", auth.JWTAuth())
	{
		api.POST("/admin/paperworks", h.Paperwork.AssignPaperwork)

		api.GET("/paperworks", h.Paperwork.ListPaperworks)
		api.GET("/paperworks/:id", h.Paperwork.GetPaperwork)
		api.GET("/paperworks/:id/status", h.Paperwork.GetStatus)
		api.GET("/paperworks/:id/history", h.Paperwork.History)
		api.PUT("/paperworks/:id/deadline", h.Paperwork.SetDeadline)

		api.POST("/paperworks/:id/versions", h.Paperwork.SubmitVersion)
		api.GET("/paperworks/:id/versions", h.Paperwork.ListVersions)
		api.GET("/paperworks/:id/versions/:no", h.Paperwork.GetVersion)

		api.POST("/paperworks/:id/review", h.Paperwork.RecordReview)
		api.GET("/paperworks/:id/reviews", h.Paperwork.ListReviews)

		// 文件访问
		api.GET("/paperworks/:id/versions/:no/artifacts/:role", h.Artifact.Download)
		api.GET("/paperworks/:id/versions/:no/archive", h.Artifact.ArchiveEntries)
		api.GET("/paperworks/:id/versions/:no/archive/entry", h.Artifact.ArchiveEntry)
	}
	return r
}
