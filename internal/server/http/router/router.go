package router

import (
	"net/http"
	"path"
	"path/filepath"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"posterbot/internal/server/http/handlers"
	"posterbot/internal/server/http/middleware"
)

type Options struct {
	Dialog    handlers.Dialog
	Limiter   handlers.RateLimiter
	RateLimit int
	UploadDir string
	// StaticDir holds the chat site, served from the root with index.html
	// at "/". Empty disables static serving.
	StaticDir    string
	MaxBodyBytes int64
}

// Setup configures the gin router with handlers and middleware.
func Setup(opts Options, logger *zap.Logger) *gin.Engine {
	engine := gin.New()

	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestLogger(logger))
	engine.Use(middleware.BodyLimit(opts.MaxBodyBytes))
	engine.Use(gzip.Gzip(gzip.DefaultCompression))

	chatHandler := handlers.NewChatHandler(opts.Dialog, opts.Limiter, opts.RateLimit, logger)
	uploadHandler := handlers.NewUploadHandler(opts.UploadDir, logger)

	engine.GET("/healthz", handlers.Health)
	engine.POST("/chat", chatHandler.Chat)
	engine.POST("/upload", uploadHandler.Upload)
	engine.Static(handlers.UploadsPath, opts.UploadDir)

	if opts.StaticDir != "" {
		engine.StaticFile("/", filepath.Join(opts.StaticDir, "index.html"))
	}
	engine.NoRoute(siteFallback(opts.StaticDir))

	return engine
}

// siteFallback serves files of the chat site from the root, so the pages
// and scripts the bot links to (/checkout.html, /products.html) resolve.
// Anything else is a JSON 404.
func siteFallback(staticDir string) gin.HandlerFunc {
	var fs http.FileSystem
	if staticDir != "" {
		fs = gin.Dir(staticDir, false)
	}

	return func(c *gin.Context) {
		method := c.Request.Method
		if fs != nil && (method == http.MethodGet || method == http.MethodHead) {
			name := path.Clean("/" + c.Request.URL.Path)
			if f, err := fs.Open(name); err == nil {
				info, statErr := f.Stat()
				f.Close()
				if statErr == nil && !info.IsDir() {
					c.FileFromFS(name, fs)
					return
				}
			}
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	}
}
