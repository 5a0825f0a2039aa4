package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/timmy/surrogates/internal/api/handler"
	"github.com/timmy/surrogates/internal/api/middleware"
	"github.com/timmy/surrogates/internal/config"
	"github.com/timmy/surrogates/internal/storage"
)

// Dependencies are the collaborators wired into the router.
type Dependencies struct {
	Jobs         handler.JobRunner
	Progress     handler.Subscriber
	Storage      storage.ObjectStorage
	Providers    func() []string
	Results      handler.ResultLoader
	History      handler.HistoryLister // nil when the database is disabled
	Inspiration  handler.InspirationFinder
	UploadsDir   string
	PingInterval time.Duration
}

// SetupRouter configures the Gin router with all routes
func SetupRouter(cfg *config.ServerConfig, deps Dependencies) *gin.Engine {
	switch cfg.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	cors := middleware.CORSConfig{
		AllowedOrigins:  cfg.CORS.AllowedOrigins,
		AllowAllOrigins: cfg.CORS.AllowAllOrigins,
	}

	r := gin.New()
	r.MaxMultipartMemory = int64(cfg.MaxUploadMB) << 20

	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS(cors))

	healthHandler := handler.NewHealthHandler(deps.Providers)
	jobHandler := handler.NewJobHandler(deps.Jobs, deps.UploadsDir)
	imageHandler := handler.NewImageHandler(deps.Storage)
	uploadHandler := handler.NewUploadHandler(deps.UploadsDir, int64(cfg.MaxUploadMB)<<20)
	resultHandler := handler.NewResultHandler(deps.Results, deps.History)
	inspirationHandler := handler.NewInspirationHandler(deps.Inspiration)
	progressHandler := handler.NewProgressHandler(deps.Progress, deps.Jobs, deps.PingInterval, func(r *http.Request) bool {
		return middleware.IsOriginAllowed(r.Header.Get("Origin"), cors)
	})

	r.GET("/health", healthHandler.Health)
	r.GET("/ws/:job_id", progressHandler.Stream)

	api := r.Group("/api")
	{
		// Jobs
		api.POST("/download-images", jobHandler.DownloadImages)
		api.POST("/analyze-images", jobHandler.AnalyzeImages)
		api.GET("/job-status/:job_id", jobHandler.JobStatus)

		// Images
		api.GET("/images/:job_id", imageHandler.ListImages)
		api.GET("/image/:job_id/:filename", imageHandler.ServeImage)

		// Guidelines and results
		api.POST("/upload-guideline", uploadHandler.UploadGuideline)
		api.GET("/results/:job_id", resultHandler.GetResult)
		api.GET("/analyses", resultHandler.ListAnalyses)

		api.POST("/inspiration", inspirationHandler.FindInspiration)
		api.GET("/providers", healthHandler.Providers)
	}

	return r
}
