package stubbackend

import (
	"io"
	"mime"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jmerrifield20/neosconnect/pkg/connector"
)

const maxUploadSize = 8 << 20

func (s *Server) imageWithMetadata(c *gin.Context) {
	a, ok := s.store.asset(c.Query("image"))
	if !ok {
		abortJSON(c, http.StatusNotFound, "image not found")
		return
	}
	c.JSON(http.StatusOK, s.store.metadata(a))
}

func (s *Server) createImageVariant(c *gin.Context) {
	var req struct {
		Asset struct {
			OriginalAsset string         `json:"originalAsset"`
			Adjustments   map[string]any `json:"adjustments"`
		} `json:"asset"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		abortJSON(c, http.StatusBadRequest, err.Error())
		return
	}

	variant, err := s.store.createVariant(req.Asset.OriginalAsset)
	if err != nil {
		abortJSON(c, http.StatusNotFound, "original asset not found")
		return
	}
	meta := s.store.metadata(variant)
	c.JSON(http.StatusOK, gin.H{
		"__identity":               variant.Identifier,
		"originalAsset":            variant.Original,
		"adjustments":              req.Asset.Adjustments,
		"previewImageResourceUri":  meta.PreviewImageResourceURI,
		"originalImageResourceUri": meta.OriginalImageResourceURI,
	})
}

func (s *Server) masterPlugins(c *gin.Context) {
	c.JSON(http.StatusOK, s.store.masterPlugins())
}

func (s *Server) pluginViews(c *gin.Context) {
	p, ok := s.store.plugin(c.Query("identifier"))
	if !ok {
		c.JSON(http.StatusOK, gin.H{})
		return
	}
	c.JSON(http.StatusOK, p.Views)
}

func (s *Server) uploadAsset(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)

	fh, err := c.FormFile("asset[resource]")
	if err != nil {
		abortJSON(c, http.StatusBadRequest, "asset[resource] is required")
		return
	}
	if c.PostForm("__siteNodeName") == "" || c.PostForm("node") == "" {
		abortJSON(c, http.StatusBadRequest, "__siteNodeName and node are required")
		return
	}
	f, err := fh.Open()
	if err != nil {
		abortJSON(c, http.StatusBadRequest, err.Error())
		return
	}
	defer f.Close()
	size, err := io.Copy(io.Discard, f)
	if err != nil {
		abortJSON(c, http.StatusBadRequest, err.Error())
		return
	}

	mediaType := mime.TypeByExtension(filepath.Ext(fh.Filename))
	if mediaType == "" {
		mediaType = "application/octet-stream"
	}
	a := &Asset{Identifier: uuid.NewString(), Label: fh.Filename, MediaType: mediaType}
	s.store.addAsset(a)
	s.logger.Info("asset uploaded",
		zap.String("asset", a.Identifier),
		zap.String("property", c.PostForm("propertyName")),
		zap.String("metadata", c.PostForm("metadata")),
		zap.Int64("size", size),
	)

	out := connector.UploadedAsset{AssetUUID: a.Identifier, MediaType: mediaType}
	if c.PostForm("metadata") == "Image" {
		meta := s.store.metadata(*a)
		out.OriginalImageResourceURI = meta.OriginalImageResourceURI
		out.PreviewImageResourceURI = meta.PreviewImageResourceURI
		out.OriginalDimensions = &meta.OriginalDimensions
		out.PreviewDimensions = &meta.PreviewDimensions
	}
	c.JSON(http.StatusOK, out)
}
