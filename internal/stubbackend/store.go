package stubbackend

import (
	"errors"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/jmerrifield20/neosconnect/pkg/connector"
	"github.com/jmerrifield20/neosconnect/pkg/neosuri"
)

// LanguageDimension is the only content dimension the stub knows.
const LanguageDimension = "language"

// LiveWorkspace is the public workspace every user workspace is based on.
const LiveWorkspace = "live"

var (
	errNotFound      = errors.New("not found")
	errUnknownSource = errors.New("unknown asset source")
)

// Node is a document node. It exists in every language it has a label for.
type Node struct {
	Identifier string
	Path       string
	NodeType   string
	Labels     map[string]string
}

func (n *Node) existsIn(language string) bool {
	_, ok := n.Labels[language]
	return ok
}

// Asset is a local media asset.
type Asset struct {
	Identifier string
	Label      string
	MediaType  string
	Width      int
	Height     int
	// Original is set for image variants.
	Original string
}

// AssetSource is a remote asset library.
type AssetSource struct {
	Identifier string
	Label      string
}

// AssetProxy is an asset offered by a source. LocalAsset is empty until the
// proxy is imported.
type AssetProxy struct {
	Source     string
	Identifier string
	Label      string
	LocalAsset string
}

// Plugin is a master plugin with the views it can be rendered in.
type Plugin struct {
	Identifier string
	Label      string
	Views      map[string]connector.PluginView
}

type workspace struct {
	name        string
	base        string
	publishable []connector.PublishableNode
	clipboard   string
	clipMode    string
}

// store is the in-memory content repository behind the stub.
type store struct {
	mu sync.RWMutex

	baseURL     string
	nodes       map[string]*Node // by identifier
	paths       map[string]*Node // by node path
	assets      map[string]*Asset
	assetOrder  []string
	sources     map[string]AssetSource
	proxies     map[string][]*AssetProxy // by source, in listing order
	plugins     []Plugin
	dimensions  map[string]map[string]any
	workspaces  map[string]*workspace
	preferences map[string]map[string]string // user → key → value
}

func newStore(baseURL string) *store {
	return &store{
		baseURL:     strings.TrimRight(baseURL, "/"),
		nodes:       map[string]*Node{},
		paths:       map[string]*Node{},
		assets:      map[string]*Asset{},
		sources:     map[string]AssetSource{},
		proxies:     map[string][]*AssetProxy{},
		dimensions:  map[string]map[string]any{},
		workspaces:  map[string]*workspace{},
		preferences: map[string]map[string]string{},
	}
}

// ── Nodes ────────────────────────────────────────────────────────────────

func (s *store) addNode(n *Node) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nodes[n.Identifier] = n
	s.paths[n.Path] = n
}

func frontendURI(nodePath, workspace, language string) string {
	cp := neosuri.ContextPath{
		Path:       nodePath,
		Workspace:  workspace,
		Dimensions: map[string][]string{LanguageDimension: {language}},
	}
	return cp.String() + ".html"
}

// nodeView is a node as rendered in one workspace and language.
type nodeView struct {
	Identifier  string
	Path        string
	Label       string
	NodeType    string
	FrontendURI string
}

func (s *store) view(n *Node, workspace, language string) nodeView {
	return nodeView{
		Identifier:  n.Identifier,
		Path:        n.Path,
		Label:       n.Labels[language],
		NodeType:    n.NodeType,
		FrontendURI: frontendURI(n.Path, workspace, language),
	}
}

type nodeQuery struct {
	term      string
	nodeTypes []string
	workspace string
	language  string
	// under restricts results to this path and its descendants.
	under string
}

func (s *store) searchNodes(q nodeQuery) []nodeView {
	s.mu.RLock()
	defer s.mu.RUnlock()

	term := strings.ToLower(q.term)
	var out []nodeView
	for _, n := range s.nodes {
		if !n.existsIn(q.language) {
			continue
		}
		if q.under != "" && n.Path != q.under && !strings.HasPrefix(n.Path, q.under+"/") {
			continue
		}
		if len(q.nodeTypes) > 0 && !contains(q.nodeTypes, n.NodeType) {
			continue
		}
		if term != "" && !strings.Contains(strings.ToLower(n.Labels[q.language]), term) {
			continue
		}
		out = append(out, s.view(n, q.workspace, q.language))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// nodeLookup is the outcome of finding one node in one language.
type nodeLookup struct {
	found                   bool
	view                    nodeView
	existsInOtherDimensions bool
	// missingOnRootline counts the node and its ancestors below the site
	// root that do not exist in the requested language.
	missingOnRootline int
}

func (s *store) lookup(identifier, workspace, language string) nodeLookup {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lookupLocked(identifier, workspace, language)
}

func (s *store) lookupLocked(identifier, workspace, language string) nodeLookup {
	n, ok := s.nodes[identifier]
	if !ok {
		return nodeLookup{missingOnRootline: 1}
	}
	if n.existsIn(language) {
		return nodeLookup{found: true, view: s.view(n, workspace, language)}
	}

	out := nodeLookup{existsInOtherDimensions: len(n.Labels) > 0}
	for p := n.Path; strings.Count(p, "/") > 1; p = path.Dir(p) {
		if ancestor, ok := s.paths[p]; !ok || !ancestor.existsIn(language) {
			out.missingOnRootline++
		}
	}
	return out
}

// adopt creates the variant of a node in target. With copyContent the label
// of the source variant is taken over.
func (s *store) adopt(identifier, workspace, source, target string, copyContent bool) nodeLookup {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.nodes[identifier]
	if !ok || !n.existsIn(source) {
		return s.lookupLocked(identifier, workspace, target)
	}
	if !n.existsIn(target) {
		label := "(untranslated)"
		if copyContent {
			label = n.Labels[source]
		}
		n.Labels[target] = label
		s.markChangedLocked(workspace, frontendContextPath(n.Path, workspace, target))
	}
	return s.lookupLocked(identifier, workspace, target)
}

func frontendContextPath(nodePath, workspace, language string) string {
	return neosuri.ContextPath{
		Path:       nodePath,
		Workspace:  workspace,
		Dimensions: map[string][]string{LanguageDimension: {language}},
	}.String()
}

// setLabel applies a title property change addressed by a context path.
func (s *store) setLabel(contextPath, label string) error {
	cp, err := neosuri.ParseContextPath(contextPath)
	if err != nil {
		return err
	}
	language := firstOr(cp.Dimensions[LanguageDimension], defaultLanguage)

	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.paths[cp.Path]
	if !ok || !n.existsIn(language) {
		return errNotFound
	}
	n.Labels[language] = label
	return nil
}

// ── Workspaces ───────────────────────────────────────────────────────────

func userWorkspace(username string) string {
	return "user-" + username
}

func (s *store) workspaceLocked(name string) *workspace {
	ws, ok := s.workspaces[name]
	if !ok {
		ws = &workspace{name: name, base: LiveWorkspace}
		s.workspaces[name] = ws
	}
	return ws
}

func (s *store) markChangedLocked(workspace, contextPath string) {
	ws := s.workspaceLocked(workspace)
	for _, p := range ws.publishable {
		if p.ContextPath == contextPath {
			return
		}
	}
	ws.publishable = append(ws.publishable, connector.PublishableNode{
		ContextPath:         contextPath,
		DocumentContextPath: contextPath,
	})
}

func (s *store) markChanged(workspace string, contextPaths ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range contextPaths {
		s.markChangedLocked(workspace, p)
	}
}

// release removes nodes from the publishable set and reports how many were
// pending.
func (s *store) release(workspace string, contextPaths []string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	ws := s.workspaceLocked(workspace)
	drop := make(map[string]bool, len(contextPaths))
	for _, p := range contextPaths {
		drop[p] = true
	}
	kept := ws.publishable[:0]
	released := 0
	for _, p := range ws.publishable {
		if drop[p.ContextPath] {
			released++
			continue
		}
		kept = append(kept, p)
	}
	ws.publishable = kept
	return released
}

func (s *store) workspaceInfo(name string) connector.WorkspaceInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	ws := s.workspaceLocked(name)
	publishable := make([]connector.PublishableNode, len(ws.publishable))
	copy(publishable, ws.publishable)
	return connector.WorkspaceInfo{
		Name:             ws.name,
		PublishableNodes: publishable,
		BaseWorkspace:    ws.base,
		Status:           workspaceStatus(len(publishable)),
	}
}

func workspaceStatus(pending int) string {
	if pending == 0 {
		return "UP_TO_DATE"
	}
	return "CHANGED"
}

func (s *store) rebase(name, base string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.workspaceLocked(name).base = base
}

func (s *store) setClipboard(workspace, contextPath, mode string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ws := s.workspaceLocked(workspace)
	ws.clipboard, ws.clipMode = contextPath, mode
}

// ── Assets ───────────────────────────────────────────────────────────────

func (s *store) addAsset(a *Asset) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addAssetLocked(a)
}

func (s *store) addAssetLocked(a *Asset) {
	if _, exists := s.assets[a.Identifier]; !exists {
		s.assetOrder = append(s.assetOrder, a.Identifier)
	}
	s.assets[a.Identifier] = a
}

func (s *store) searchAssets(term string) []Asset {
	s.mu.RLock()
	defer s.mu.RUnlock()

	term = strings.ToLower(term)
	var out []Asset
	for _, id := range s.assetOrder {
		a := s.assets[id]
		if a.Original != "" {
			continue
		}
		if term == "" || strings.Contains(strings.ToLower(a.Label), term) {
			out = append(out, *a)
		}
	}
	return out
}

func (s *store) asset(identifier string) (Asset, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.assets[identifier]
	if !ok {
		return Asset{}, false
	}
	return *a, true
}

func (s *store) createVariant(original string) (Asset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	orig, ok := s.assets[original]
	if !ok {
		return Asset{}, errNotFound
	}
	variant := *orig
	variant.Identifier = uuid.NewString()
	variant.Original = orig.Identifier
	s.addAssetLocked(&variant)
	return variant, nil
}

func (s *store) resourceURI(a Asset, kind string) string {
	return s.baseURL + "/_Resources/" + kind + "/" + a.Identifier
}

func (s *store) metadata(a Asset) connector.ImageMetadata {
	dims := connector.ImageDimensions{Width: a.Width, Height: a.Height}
	if a.Height > 0 {
		dims.AspectRatio = float64(a.Width) / float64(a.Height)
	}
	original := a
	if a.Original != "" {
		if o, ok := s.asset(a.Original); ok {
			original = o
		}
	}
	return connector.ImageMetadata{
		OriginalImageResourceURI: s.resourceURI(original, "Persistent"),
		PreviewImageResourceURI:  s.resourceURI(a, "Preview"),
		OriginalDimensions:       dims,
		PreviewDimensions:        dims,
		MediaType:                a.MediaType,
	}
}

// ── Asset proxies ────────────────────────────────────────────────────────

func (s *store) addSource(src AssetSource, proxies ...*AssetProxy) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sources[src.Identifier] = src
	for _, p := range proxies {
		p.Source = src.Identifier
	}
	s.proxies[src.Identifier] = append(s.proxies[src.Identifier], proxies...)
}

// proxyView is an asset proxy ready for rendering.
type proxyView struct {
	AssetProxy
	SourceLabel string
	Thumbnail   string
}

func (s *store) proxyViewLocked(p *AssetProxy) proxyView {
	return proxyView{
		AssetProxy:  *p,
		SourceLabel: s.sources[p.Source].Label,
		Thumbnail:   s.baseURL + "/_Resources/Proxy/" + p.Source + "/" + p.Identifier,
	}
}

func (s *store) searchProxies(source, term string) ([]proxyView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.sources[source]; !ok {
		return nil, errUnknownSource
	}
	term = strings.ToLower(term)
	var out []proxyView
	for _, p := range s.proxies[source] {
		if term == "" || strings.Contains(strings.ToLower(p.Label), term) {
			out = append(out, s.proxyViewLocked(p))
		}
	}
	return out, nil
}

func (s *store) findProxyLocked(source, identifier string) (*AssetProxy, bool) {
	for _, p := range s.proxies[source] {
		if p.Identifier == identifier {
			return p, true
		}
	}
	return nil, false
}

func (s *store) proxy(source, identifier string) (proxyView, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.findProxyLocked(source, identifier)
	if !ok {
		return proxyView{}, false
	}
	return s.proxyViewLocked(p), true
}

// importProxy imports a proxy as a local asset once; importing again returns
// the existing asset.
func (s *store) importProxy(source, identifier string) (proxyView, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.findProxyLocked(source, identifier)
	if !ok {
		return proxyView{}, false
	}
	if p.LocalAsset == "" {
		p.LocalAsset = uuid.NewString()
		s.addAssetLocked(&Asset{Identifier: p.LocalAsset, Label: p.Label, MediaType: "image/jpeg"})
	}
	return s.proxyViewLocked(p), true
}

// ── Plugins, dimensions, preferences ─────────────────────────────────────

func (s *store) plugin(identifier string) (Plugin, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.plugins {
		if p.Identifier == identifier {
			return p, true
		}
	}
	return Plugin{}, false
}

func (s *store) masterPlugins() []connector.PluginOption {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]connector.PluginOption, len(s.plugins))
	for i, p := range s.plugins {
		out[i] = connector.PluginOption{Value: p.Identifier, Label: p.Label}
	}
	return out
}

func (s *store) dimensionPresets(name string) (map[string]any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	presets, ok := s.dimensions[name]
	return presets, ok
}

func (s *store) setPreference(user, key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prefs, ok := s.preferences[user]
	if !ok {
		prefs = map[string]string{}
		s.preferences[user] = prefs
	}
	prefs[key] = value
}

func (s *store) preference(user, key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.preferences[user][key]
	return v, ok
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func firstOr(values []string, fallback string) string {
	if len(values) > 0 && values[0] != "" {
		return values[0]
	}
	return fallback
}
