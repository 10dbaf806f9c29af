package api

import (
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/news-digest/app/feed"
	"github.com/lysyi3m/news-digest/app/refresh"
)

//go:embed templates/*.html
var templatesFS embed.FS

// NewServer creates a new HTTP server with all routes configured
func NewServer(handler *Handler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
				param.ClientIP,
				param.TimeStamp.Format(time.RFC3339),
				param.Method,
				param.Path,
				param.Request.Proto,
				param.StatusCode,
				param.Latency,
				param.Request.UserAgent(),
				param.ErrorMessage,
			)
		},
	}))

	r.Use(gin.Recovery())

	r.SetHTMLTemplate(template.Must(template.ParseFS(templatesFS, "templates/*.html")))

	setupRoutes(r, handler)

	return r
}

// setupRoutes configures all the application routes
func setupRoutes(r *gin.Engine, handler *Handler) {
	r.GET("/", handler.GetDigest(feed.HackerNews))

	for _, source := range feed.KnownSources {
		r.GET("/"+source, handler.GetDigest(source))
		r.GET("/"+source+"/feed", handler.GetFeed(source))
		r.POST("/update/"+source, handler.PostUpdate(refresh.Selector(source)))
	}
	r.POST("/update", handler.PostUpdate(refresh.All))

	r.GET("/img/:id", handler.GetImage)

	r.GET("/health", handler.GetHealth)

	// Favicon handler (return 204 to avoid 404s)
	r.GET("/favicon.ico", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
}
