package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/news-digest/app/database"
	"github.com/lysyi3m/news-digest/app/feed"
	"github.com/lysyi3m/news-digest/app/httpcache"
	"github.com/lysyi3m/news-digest/app/refresh"
)

const feedContentType = "application/atom+xml; charset=utf-8"

func NewHandler(configCache *feed.ConfigCache, newsRepo database.NewsRepository, watermarks database.WatermarkStore,
	images database.ImageStore, assembler AssemblerInterface, generator GeneratorInterface,
	refresher RefresherInterface, baseURL, version string) *Handler {
	return &Handler{
		configCache: configCache,
		newsRepo:    newsRepo,
		watermarks:  watermarks,
		images:      images,
		assembler:   assembler,
		generator:   generator,
		refresher:   refresher,
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		version:     version,
		now:         time.Now,
	}
}

// GetDigest renders the ranked digest page of a source.
func (h *Handler) GetDigest(source string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		lastUpdated, err := h.watermarks.Get(ctx, source)
		if err != nil {
			slog.Error("Failed to read watermark", "source", source, "error", err)
			c.Status(http.StatusInternalServerError)
			return
		}

		if httpcache.IsFresh(lastUpdated, httpcache.ValidatorsFrom(c.Request)) {
			c.Status(http.StatusNotModified)
			return
		}

		sourceConfig, err := h.configCache.GetConfig(source)
		if err != nil {
			slog.Error("Source configuration not found", "source", source, "error", err)
			c.Status(http.StatusNotFound)
			return
		}

		news, err := h.newsRepo.ListByRank(ctx, source)
		if err != nil {
			slog.Error("Database error", "operation", "list_news", "source", source, "error", err)
			c.Status(http.StatusInternalServerError)
			return
		}

		now := h.now()
		page := digestPage{
			Title:   sourceConfig.Title,
			Source:  source,
			FeedURL: fmt.Sprintf("/%s/feed", source),
			Navs:    sourceConfig.Navs,
			News:    make([]newsView, 0, len(news)),
			Version: h.version,
		}
		if lastUpdated != nil {
			page.LastUpdated = humanize.RelTime(*lastUpdated, now, "ago", "from now")
		}
		for _, n := range news {
			page.News = append(page.News, toNewsView(n))
		}

		httpcache.Compute(lastUpdated, now).Apply(c.Writer.Header())
		httpcache.SetLastModified(c.Writer.Header(), lastUpdated)
		c.HTML(http.StatusOK, "digest.html", page)
	}
}

// GetFeed serves the Atom feed of a source, newest entries first.
func (h *Handler) GetFeed(source string) gin.HandlerFunc {
	return func(c *gin.Context) {
		selfURL := h.absoluteURL(c, c.Request.URL.RequestURI())
		alternateURL := h.absoluteURL(c, "/"+source)

		doc, err := h.assembler.Build(c.Request.Context(), source, selfURL, alternateURL, h.now())
		if err != nil {
			if errors.Is(err, feed.ErrUnknownSource) {
				c.Status(http.StatusNotFound)
				return
			}
			slog.Error("Feed assembly error", "source", source, "error", err)
			c.Status(http.StatusInternalServerError)
			return
		}

		atom, err := h.generator.Run(doc)
		if err != nil {
			slog.Error("Atom generation error", "source", source, "error", err)
			c.Status(http.StatusInternalServerError)
			return
		}

		c.Header("X-Feed-Items", strconv.Itoa(len(doc.Entries)))
		c.Header("X-Feed-Name", source)
		c.Data(http.StatusOK, feedContentType, []byte(atom))
	}
}

// GetImage serves a stored image. Images never change, so any validator
// is answered with 304.
func (h *Handler) GetImage(c *gin.Context) {
	if httpcache.HasValidators(httpcache.ValidatorsFrom(c.Request)) {
		c.Status(http.StatusNotModified)
		return
	}

	id := c.Param("id")
	img, err := h.images.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.Status(http.StatusNotFound)
			return
		}
		slog.Error("Image store error", "id", id, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	header := c.Writer.Header()
	httpcache.ForAsset(h.now()).Apply(header)
	httpcache.SetLastModified(header, &img.CreatedAt)
	header.Set("ETag", strconv.Quote(img.ID))

	c.Data(http.StatusOK, img.ContentType, img.Data)
}

// PostUpdate triggers a refresh of the selected sources.
func (h *Handler) PostUpdate(sel refresh.Selector) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.PostForm("key")
		_, force := c.GetQuery("force")

		stats, err := h.refresher.Refresh(c.Request.Context(), sel, force, key)
		if err != nil {
			var upstreamErr *refresh.UpstreamError
			switch {
			case errors.Is(err, refresh.ErrUnauthorized):
				slog.Warn("Unauthorized update attempt", "selector", string(sel), "client_ip", c.ClientIP())
				c.Status(http.StatusUnauthorized)
			case errors.Is(err, refresh.ErrUnknownSource):
				c.Status(http.StatusNotFound)
			case errors.As(err, &upstreamErr):
				slog.Error("Update failed", "source", upstreamErr.Source, "error", upstreamErr.Err)
				c.JSON(http.StatusBadGateway, gin.H{
					"error":  "upstream update failed",
					"source": upstreamErr.Source,
				})
			default:
				slog.Error("Update error", "selector", string(sel), "error", err)
				c.Status(http.StatusInternalServerError)
			}
			return
		}

		c.JSON(http.StatusOK, stats)
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	ctx := c.Request.Context()

	configs := h.configCache.GetConfigs()
	sources := make(map[string]interface{}, len(feed.KnownSources))
	for _, name := range feed.KnownSources {
		info := map[string]interface{}{}
		if sourceConfig, ok := configs[name]; ok {
			info["title"] = sourceConfig.Title
			info["refresh_interval"] = sourceConfig.Settings.RefreshInterval
		}
		if count, err := h.newsRepo.GetNewsCount(ctx, name); err == nil {
			info["entries"] = count
		}
		if lastUpdated, err := h.watermarks.Get(ctx, name); err == nil && lastUpdated != nil {
			info["last_updated"] = lastUpdated.Format(time.RFC3339)
		}
		sources[name] = info
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"timestamp":             h.now().In(time.Local).Format(time.RFC3339),
		"version":               h.version,
		"sources":               sources,
		"loaded_configurations": len(configs),
	})
}

func (h *Handler) absoluteURL(c *gin.Context, path string) string {
	if h.baseURL != "" {
		return h.baseURL + path
	}

	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	if proto := c.GetHeader("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return fmt.Sprintf("%s://%s%s", scheme, c.Request.Host, path)
}

func toNewsView(n database.News) newsView {
	view := newsView{
		Rank:         n.Rank,
		Title:        n.Title,
		URL:          n.URL,
		Comhead:      n.Comhead,
		Author:       n.Author,
		Score:        humanize.Comma(int64(n.Score)),
		CommentCount: n.CommentCount,
		CommentURL:   n.CommentURL,
		SubmitTime:   n.SubmitTime.String(),
		Summary:      n.Summary,
	}
	if n.ImageID != "" {
		view.ImageURL = "/img/" + n.ImageID
	}
	return view
}
