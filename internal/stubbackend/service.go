package stubbackend

import (
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jmerrifield20/neosconnect/pkg/connector"
	"github.com/jmerrifield20/neosconnect/pkg/neosuri"
)

// Adoption modes accepted by the nodes route.
const (
	modeAdopt        = "adoptFromAnotherDimension"
	modeAdoptAndCopy = "adoptFromAnotherDimensionAndCopyContent"
)

// ── Asset proxies ────────────────────────────────────────────────────────

func (s *Server) searchAssetProxies(c *gin.Context) {
	source := c.Query("assetSourceIdentifier")
	if source == "" {
		source = SourceNeos
	}
	proxies, err := s.store.searchProxies(source, c.Query("searchTerm"))
	if err != nil {
		abortJSON(c, http.StatusNotFound, err.Error())
		return
	}
	c.HTML(http.StatusOK, "asset-proxies", proxies)
}

func (s *Server) showAssetProxy(c *gin.Context) {
	p, ok := s.store.proxy(c.Param("source"), c.Param("id"))
	if !ok {
		abortJSON(c, http.StatusNotFound, "asset proxy not found")
		return
	}
	c.HTML(http.StatusOK, "asset-proxy", p)
}

func (s *Server) importAssetProxy(c *gin.Context) {
	p, ok := s.store.importProxy(c.Param("source"), c.Param("id"))
	if !ok {
		abortJSON(c, http.StatusNotFound, "asset proxy not found")
		return
	}
	c.HTML(http.StatusOK, "asset-proxy", p)
}

// ── Assets ───────────────────────────────────────────────────────────────

type assetView struct {
	Identifier string
	Label      string
	Thumbnail  string
	Preview    string
}

func (s *Server) assetView(a Asset) assetView {
	return assetView{
		Identifier: a.Identifier,
		Label:      a.Label,
		Thumbnail:  s.store.resourceURI(a, "Thumbnail"),
		Preview:    s.store.resourceURI(a, "Preview"),
	}
}

func (s *Server) searchAssets(c *gin.Context) {
	assets := s.store.searchAssets(c.Query("searchTerm"))
	views := make([]assetView, len(assets))
	for i, a := range assets {
		views[i] = s.assetView(a)
	}
	c.HTML(http.StatusOK, "assets", views)
}

func (s *Server) showAsset(c *gin.Context) {
	a, ok := s.store.asset(c.Param("id"))
	if !ok {
		abortJSON(c, http.StatusNotFound, "asset not found")
		return
	}
	c.HTML(http.StatusOK, "asset", s.assetView(a))
}

// ── Nodes ────────────────────────────────────────────────────────────────

func queryLanguage(c *gin.Context, key string) string {
	return firstOr(c.QueryArray(key+"["+LanguageDimension+"][]"), defaultLanguage)
}

func formLanguage(c *gin.Context, key string) string {
	return firstOr(c.PostFormArray(key+"["+LanguageDimension+"][]"), defaultLanguage)
}

func workspaceOr(name string) string {
	if name == "" {
		return LiveWorkspace
	}
	return name
}

// siteOf returns the site node path of a context path, e.g. /sites/demo.
func siteOf(contextNode string) string {
	cp, err := neosuri.ParseContextPath(contextNode)
	if err != nil {
		return ""
	}
	parts := strings.SplitN(strings.TrimPrefix(cp.Path, "/"), "/", 3)
	if len(parts) < 2 {
		return cp.Path
	}
	return "/" + parts[0] + "/" + parts[1]
}

func (s *Server) searchNodes(c *gin.Context) {
	nodes := s.store.searchNodes(nodeQuery{
		term:      c.Query("searchTerm"),
		nodeTypes: c.QueryArray("nodeTypes[]"),
		workspace: workspaceOr(c.Query("workspaceName")),
		language:  queryLanguage(c, "dimensions"),
		under:     siteOf(c.Query("contextNode")),
	})
	c.HTML(http.StatusOK, "nodes", nodes)
}

func (s *Server) showNode(c *gin.Context) {
	s.respondLookup(c, s.store.lookup(c.Param("id"), workspaceOr(c.Query("workspaceName")), queryLanguage(c, "dimensions")))
}

func (s *Server) adoptNode(c *gin.Context) {
	mode := c.PostForm("mode")
	if mode != modeAdopt && mode != modeAdoptAndCopy {
		abortJSON(c, http.StatusBadRequest, "unsupported mode "+strconv.Quote(mode))
		return
	}
	s.respondLookup(c, s.store.adopt(
		c.PostForm("identifier"),
		workspaceOr(c.PostForm("workspaceName")),
		formLanguage(c, "sourceDimensions"),
		formLanguage(c, "dimensions"),
		mode == modeAdoptAndCopy,
	))
}

func (s *Server) respondLookup(c *gin.Context, l nodeLookup) {
	if l.found {
		c.HTML(http.StatusOK, "node", l.view)
		return
	}
	c.Header(connector.HeaderExistsInOtherDimensions, strconv.FormatBool(l.existsInOtherDimensions))
	c.Header(connector.HeaderNodesMissingOnRootline, strconv.Itoa(l.missingOnRootline))
	c.Status(http.StatusNotFound)
}

// ── Service endpoints ────────────────────────────────────────────────────

func (s *Server) contentDimensions(c *gin.Context) {
	name := strings.TrimSuffix(c.Param("file"), ".json")
	presets, ok := s.store.dimensionPresets(name)
	if !ok {
		abortJSON(c, http.StatusNotFound, "unknown dimension "+strconv.Quote(name))
		return
	}
	c.JSON(http.StatusOK, presets)
}

// DataSourceNodeTypes and DataSourceLanguages are the data sources the stub
// serves.
const (
	DataSourceNodeTypes = "node-types"
	DataSourceLanguages = "languages"
)

func (s *Server) dataSource(c *gin.Context) {
	switch c.Param("id") {
	case DataSourceNodeTypes:
		prefix := c.Query("prefix")
		seen := map[string]bool{}
		for _, n := range s.store.searchNodes(nodeQuery{workspace: LiveWorkspace, language: queryLanguage(c, "dimensions")}) {
			if strings.HasPrefix(n.NodeType, prefix) {
				seen[n.NodeType] = true
			}
		}
		types := make([]gin.H, 0, len(seen))
		for t := range seen {
			types = append(types, gin.H{"value": t, "label": t})
		}
		sort.Slice(types, func(i, j int) bool { return types[i]["value"].(string) < types[j]["value"].(string) })
		c.JSON(http.StatusOK, types)
	case DataSourceLanguages:
		presets, _ := s.store.dimensionPresets(LanguageDimension)
		c.JSON(http.StatusOK, presets)
	default:
		abortJSON(c, http.StatusNotFound, "unknown data source")
	}
}

func (s *Server) setUserPreference(c *gin.Context) {
	key := c.PostForm("key")
	if key == "" {
		abortJSON(c, http.StatusBadRequest, "key is required")
		return
	}
	s.store.setPreference(currentUser(c), key, c.PostForm("value"))
	c.Status(http.StatusNoContent)
}
