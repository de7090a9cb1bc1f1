package api

import (
	"context"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"resumeBuilder/internal/api/middleware"
	"resumeBuilder/internal/auth"
	"resumeBuilder/internal/config"
)

// ObjectStore 是 API 用到的对象存储能力，由 storage.Client 实现。
type ObjectStore interface {
	GeneratePresignedURLWithParams(ctx context.Context, objectKey string, duration time.Duration, params map[string]string) (string, error)
	DeletePrefix(ctx context.Context, prefix string) error
}

// Deps 汇总注册路由所需的依赖。Redis 与 Storage 可以为 nil。
type Deps struct {
	DB      *gorm.DB
	Queue   TaskEnqueuer
	Storage ObjectStore
	Redis   redis.UniversalClient
	Auth    *auth.AuthService
	Logger  *slog.Logger
	API     config.APIConfig
	AuthCfg config.AuthConfig
}

// RegisterRoutes 注册 /v1 下的全部业务路由。
func RegisterRoutes(router *gin.Engine, d Deps) {
	authHandler := NewAuthHandler(d.DB, d.Auth, d.Redis, d.Logger, d.AuthCfg)
	resumeHandler := NewResumeHandler(d.DB, d.Storage, d.API.MaxResumes)
	sectionHandler := NewSectionHandler(d.DB)
	templateHandler := NewTemplateHandler(d.DB)
	versionHandler := NewVersionHandler(d.DB)
	shareHandler := NewShareHandler(d.DB)
	pdfHandler := NewPDFHandler(d.DB, d.Queue, d.Storage, d.Redis, d.API.PDFDailyLimit)
	printHandler := NewPrintHandler(d.DB)
	authMiddleware := middleware.AuthMiddleware(d.Auth)

	v1 := router.Group("/v1")
	{
		if d.Redis != nil {
			wsHandler := NewWsHandler(d.Redis, d.Auth, d.Logger, d.API.Origins())
			v1.GET("/ws", wsHandler.HandleConnection)
		}

		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
			authGroup.POST("/refresh", authHandler.Refresh)
			authGroup.POST("/logout", authHandler.Logout)
			authGroup.GET("/me", authMiddleware, authHandler.Me)
		}

		v1.GET("/section-types", sectionHandler.ListSectionTypes)
		v1.GET("/templates", templateHandler.ListTemplates)
		v1.GET("/templates/:id", templateHandler.GetTemplate)

		resumes := v1.Group("/resumes")
		resumes.Use(authMiddleware)
		{
			resumes.GET("", resumeHandler.ListResumes)
			resumes.POST("", resumeHandler.CreateResume)
			resumes.GET("/:id", resumeHandler.GetResume)
			resumes.PATCH("/:id", resumeHandler.UpdateResume)
			resumes.DELETE("/:id", resumeHandler.DeleteResume)

			resumes.POST("/:id/sections", sectionHandler.CreateSection)
			resumes.PUT("/:id/sections/reorder", sectionHandler.ReorderSections)
			resumes.PATCH("/:id/sections/:sectionId", sectionHandler.UpdateSection)
			resumes.DELETE("/:id/sections/:sectionId", sectionHandler.DeleteSection)

			resumes.POST("/:id/sections/:sectionId/items", sectionHandler.CreateItem)
			resumes.PUT("/:id/sections/:sectionId/items/reorder", sectionHandler.ReorderItems)
			resumes.PATCH("/:id/sections/:sectionId/items/:itemId", sectionHandler.UpdateItem)
			resumes.DELETE("/:id/sections/:sectionId/items/:itemId", sectionHandler.DeleteItem)

			resumes.POST("/:id/template", templateHandler.ApplyTemplate)
			resumes.GET("/:id/design", templateHandler.GetDesign)
			resumes.PATCH("/:id/design", templateHandler.PatchDesign)

			resumes.POST("/:id/versions", versionHandler.CreateVersion)
			resumes.GET("/:id/versions", versionHandler.ListVersions)
			resumes.POST("/:id/versions/:version/restore", versionHandler.RestoreVersion)

			resumes.POST("/:id/share", shareHandler.CreateShare)
			resumes.GET("/:id/share", shareHandler.ListShares)

			if d.Queue != nil {
				resumes.POST("/:id/pdf", pdfHandler.ExportPDF)
			}
			if d.Storage != nil {
				resumes.GET("/:id/pdf/link", pdfHandler.PDFLink)
			}
		}

		share := v1.Group("/share")
		{
			share.GET("/:slug", shareHandler.ViewShare)
			share.POST("/:slug/verify", shareHandler.VerifyShare)
			share.PATCH("/:linkId", authMiddleware, shareHandler.UpdateShare)
			share.DELETE("/:linkId", authMiddleware, shareHandler.DeleteShare)
		}

		internal := v1.Group("/internal")
		internal.Use(middleware.InternalSecretMiddleware(d.API.InternalSecret))
		{
			internal.GET("/resumes/:id/print", printHandler.GetPrintData)
		}
	}
}
