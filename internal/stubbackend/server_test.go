package stubbackend_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/net/publicsuffix"

	"github.com/jmerrifield20/neosconnect/internal/stubbackend"
	"github.com/jmerrifield20/neosconnect/pkg/connector"
)

const (
	testUser     = "admin"
	testPassword = "password"
	userWS       = "user-admin"
)

func newBackend(t *testing.T, cfg stubbackend.Config) (*stubbackend.Server, *httptest.Server) {
	t.Helper()
	srv := httptest.NewUnstartedServer(nil)
	cfg.BaseURL = "http://" + srv.Listener.Addr().String()
	if cfg.Users == nil {
		cfg.Users = map[string]string{testUser: testPassword}
	}
	cfg.BcryptCost = bcrypt.MinCost
	cfg.Logger = zap.NewNop()

	stub, err := stubbackend.New(cfg)
	if err != nil {
		t.Fatalf("stubbackend.New: %v", err)
	}
	srv.Config.Handler = stub.Handler()
	srv.Start()
	t.Cleanup(srv.Close)
	return stub, srv
}

func loggedIn(t *testing.T, baseURL string, opts ...connector.Option) *connector.Client {
	t.Helper()
	c, err := connector.New(baseURL, append([]connector.Option{connector.WithLogger(zap.NewNop())}, opts...)...)
	if err != nil {
		t.Fatalf("connector.New: %v", err)
	}
	if _, ok := c.Login(context.Background(), testUser, testPassword); !ok {
		t.Fatal("login refused")
	}
	return c
}

func lang(l string) connector.Dimensions {
	return connector.Dimensions{stubbackend.LanguageDimension: {l}}
}

// ── Tests ────────────────────────────────────────────────────────────────

func TestLogin(t *testing.T) {
	_, srv := newBackend(t, stubbackend.Config{})
	ctx := context.Background()

	c := connector.MustNew(srv.URL)
	if _, ok := c.Login(ctx, testUser, "wrong"); ok {
		t.Error("wrong password accepted")
	}
	if _, ok := c.Login(ctx, "nobody", testPassword); ok {
		t.Error("unknown user accepted")
	}
	token, ok := c.Login(ctx, testUser, testPassword)
	if !ok || token == "" {
		t.Fatalf("login: %q, %v", token, ok)
	}
}

func TestRequiresSession(t *testing.T) {
	_, srv := newBackend(t, stubbackend.Config{})

	_, err := connector.MustNew(srv.URL).GetWorkspaceInfo(context.Background())
	var serr *connector.UnexpectedStatusError
	if !errors.As(err, &serr) || serr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", err)
	}
}

func TestRejectsForeignCSRFToken(t *testing.T) {
	_, srv := newBackend(t, stubbackend.Config{})
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		t.Fatal(err)
	}
	loggedIn(t, srv.URL, connector.WithCookieJar(jar))

	forged := connector.MustNew(srv.URL, connector.WithCookieJar(jar), connector.WithToken("forged"))
	_, err = forged.Publish(context.Background(), nil, stubbackend.LiveWorkspace)
	var serr *connector.UnexpectedStatusError
	if !errors.As(err, &serr) || serr.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %v", err)
	}
}

func TestChangeAndPublish(t *testing.T) {
	_, srv := newBackend(t, stubbackend.Config{})
	c := loggedIn(t, srv.URL)
	ctx := context.Background()

	about := "/sites/demo/about@" + userWS + ";language=en_US"
	fb, err := c.Change(ctx, []connector.Change{{
		Type:    stubbackend.ChangeTypeProperty,
		Subject: about,
		Payload: map[string]any{"propertyName": "title", "value": "About the company"},
	}})
	if err != nil {
		t.Fatalf("Change: %v", err)
	}
	if len(fb.Feedbacks) != 1 || fb.Feedbacks[0].Type != stubbackend.FeedbackUpdateWorkspaceInfo {
		t.Errorf("feedbacks: %+v", fb.Feedbacks)
	}

	info, err := c.GetWorkspaceInfo(ctx)
	if err != nil {
		t.Fatalf("GetWorkspaceInfo: %v", err)
	}
	want := []connector.PublishableNode{{ContextPath: about, DocumentContextPath: about}}
	if info.Name != userWS || info.BaseWorkspace != stubbackend.LiveWorkspace {
		t.Errorf("workspace: %+v", info)
	}
	if diff := cmp.Diff(want, info.PublishableNodes); diff != "" {
		t.Errorf("publishable nodes (-want +got):\n%s", diff)
	}

	nodes, err := c.SearchNodes(ctx, connector.NodeSearchQuery{SearchTerm: "company", WorkspaceName: userWS, Dimensions: lang("en_US")})
	if err != nil {
		t.Fatalf("SearchNodes: %v", err)
	}
	if len(nodes) != 1 || nodes[0].Identifier != stubbackend.NodeAbout || nodes[0].URIInLiveWorkspace != "/sites/demo/about.html" {
		t.Errorf("search after change: %+v", nodes)
	}

	fb, err = c.Publish(ctx, []string{about}, stubbackend.LiveWorkspace)
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(fb.Feedbacks) != 2 || fb.Feedbacks[0].Type != stubbackend.FeedbackSuccess {
		t.Errorf("publish feedbacks: %+v", fb.Feedbacks)
	}
	if info, _ = c.GetWorkspaceInfo(ctx); len(info.PublishableNodes) != 0 {
		t.Errorf("still publishable after publish: %+v", info.PublishableNodes)
	}
}

func TestClipboardAndBaseWorkspace(t *testing.T) {
	_, srv := newBackend(t, stubbackend.Config{})
	c := loggedIn(t, srv.URL)
	ctx := context.Background()
	node := "/sites/demo/news@" + userWS + ";language=en_US"

	for name, op := range map[string]func() (*connector.FeedbackResponse, error){
		"copy":  func() (*connector.FeedbackResponse, error) { return c.CopyNode(ctx, node) },
		"cut":   func() (*connector.FeedbackResponse, error) { return c.CutNode(ctx, node) },
		"clear": func() (*connector.FeedbackResponse, error) { return c.ClearClipboard(ctx) },
	} {
		fb, err := op()
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if len(fb.Feedbacks) != 1 || fb.Feedbacks[0].Type != stubbackend.FeedbackUpdateClipboard {
			t.Errorf("%s feedbacks: %+v", name, fb.Feedbacks)
		}
	}

	if _, err := c.ChangeBaseWorkspace(ctx, "review", node); err != nil {
		t.Fatalf("ChangeBaseWorkspace: %v", err)
	}
	info, err := c.GetWorkspaceInfo(ctx)
	if err != nil || info.BaseWorkspace != "review" {
		t.Errorf("base workspace: %+v, %v", info, err)
	}

	if _, err := c.Discard(ctx, []string{node}); err != nil {
		t.Errorf("Discard: %v", err)
	}
	policy, err := c.GetPolicyInfo(ctx, []string{node})
	if err != nil || !policy.NodePolicies[node].Policy.CanEdit {
		t.Errorf("policy: %+v, %v", policy, err)
	}
}

func TestSingleNodeLookup(t *testing.T) {
	_, srv := newBackend(t, stubbackend.Config{})
	c := loggedIn(t, srv.URL)
	ctx := context.Background()
	params := func(l string) map[string]any {
		return map[string]any{"workspaceName": userWS, "dimensions": map[string][]string(lang(l))}
	}

	lookup, err := c.GetSingleNode(ctx, stubbackend.NodeAbout, params("de"))
	if err != nil {
		t.Fatalf("GetSingleNode: %v", err)
	}
	if got, want := lookup, (connector.NodeFound{
		FrontendURI: "/sites/demo/about@" + userWS + ";language=de.html",
		ContextPath: "/sites/demo/about@" + userWS,
	}); got != want {
		t.Errorf("got %#v, want %#v", got, want)
	}

	lookup, err = c.GetSingleNode(ctx, stubbackend.NodeBerlin, params("de"))
	if err != nil {
		t.Fatalf("GetSingleNode: %v", err)
	}
	if got, want := lookup, (connector.NodeNotFound{ExistsInOtherDimensions: true, NumberOfMissingAncestors: 1}); got != want {
		t.Errorf("got %#v, want %#v", got, want)
	}

	lookup, err = c.GetSingleNode(ctx, "does-not-exist", params("en_US"))
	if err != nil {
		t.Fatalf("GetSingleNode: %v", err)
	}
	if got, want := lookup, (connector.NodeNotFound{}); got != want {
		t.Errorf("got %#v, want %#v", got, want)
	}
}

func TestAdoptNodeToOtherDimension(t *testing.T) {
	_, srv := newBackend(t, stubbackend.Config{})
	c := loggedIn(t, srv.URL)
	ctx := context.Background()

	lookup, err := c.AdoptNodeToOtherDimension(ctx, connector.AdoptRequest{
		Identifier:       stubbackend.NodeTeam,
		TargetDimensions: lang("de"),
		SourceDimensions: lang("en_US"),
		WorkspaceName:    userWS,
		CopyContent:      true,
	})
	if err != nil {
		t.Fatalf("AdoptNodeToOtherDimension: %v", err)
	}
	found, ok := lookup.(connector.NodeFound)
	if !ok || found.ContextPath != "/sites/demo/about/team@"+userWS {
		t.Fatalf("adopt: %#v", lookup)
	}

	// With the team page translated only berlin itself is missing.
	lookup, err = c.GetSingleNode(ctx, stubbackend.NodeBerlin, map[string]any{"workspaceName": userWS, "dimensions": map[string][]string(lang("de"))})
	if err != nil {
		t.Fatalf("GetSingleNode: %v", err)
	}
	if nf, ok := lookup.(connector.NodeNotFound); !ok || nf.NumberOfMissingAncestors != 0 {
		t.Errorf("after adopt: %#v", lookup)
	}

	info, err := c.GetWorkspaceInfo(ctx)
	if err != nil || len(info.PublishableNodes) != 1 {
		t.Errorf("adopted variant should be publishable: %+v, %v", info, err)
	}
}

func TestAssetProxies(t *testing.T) {
	_, srv := newBackend(t, stubbackend.Config{})
	c := loggedIn(t, srv.URL)
	ctx := context.Background()

	proxies, err := c.AssetProxySearch(ctx, "mountain", stubbackend.SourceUnsplash)
	if err != nil {
		t.Fatalf("AssetProxySearch: %v", err)
	}
	var ids []string
	for _, p := range proxies {
		ids = append(ids, p.Identifier)
	}
	if diff := cmp.Diff([]string{"unsplash/mountain-lake", "unsplash/mountain-hut"}, ids); diff != "" {
		t.Errorf("search (-want +got):\n%s", diff)
	}

	localID, err := c.AssetProxyImport(ctx, stubbackend.SourceUnsplash, "mountain-lake")
	if err != nil || localID == "" {
		t.Fatalf("AssetProxyImport: %q, %v", localID, err)
	}

	detail, err := c.AssetProxyDetail(ctx, stubbackend.SourceUnsplash, "mountain-lake")
	if err != nil {
		t.Fatalf("AssetProxyDetail: %v", err)
	}
	if detail.LocalAssetIdentifier == nil || *detail.LocalAssetIdentifier != localID || detail.Identifier != localID {
		t.Errorf("imported proxy: %+v", detail)
	}
	if detail.LoaderURI != "assetProxy://unsplash/mountain-lake" || detail.AssetSourceLabel != "Unsplash" {
		t.Errorf("proxy record: %+v", detail)
	}

	proxies, err = c.AssetProxySearch(ctx, "mountain", stubbackend.SourceUnsplash, localID)
	if err != nil || len(proxies) != 1 || proxies[0].AssetProxyIdentifier != "mountain-hut" {
		t.Errorf("exclusion: %+v, %v", proxies, err)
	}

	assets, err := c.AssetSearch(ctx, "mountain lake")
	if err != nil || len(assets) != 1 || assets[0].Identifier != localID {
		t.Errorf("imported asset should be searchable: %+v, %v", assets, err)
	}
}

func TestAssets(t *testing.T) {
	_, srv := newBackend(t, stubbackend.Config{})
	c := loggedIn(t, srv.URL)
	ctx := context.Background()

	assets, err := c.AssetSearch(ctx, "logo")
	if err != nil {
		t.Fatalf("AssetSearch: %v", err)
	}
	if len(assets) != 1 || assets[0].LoaderURI != "asset://"+stubbackend.AssetLogo {
		t.Errorf("search: %+v", assets)
	}

	a, err := c.AssetDetail(ctx, stubbackend.AssetLogo)
	if err != nil {
		t.Fatalf("AssetDetail: %v", err)
	}
	if !strings.HasSuffix(a.Preview, "/_Resources/Preview/"+stubbackend.AssetLogo) {
		t.Errorf("preview: %q", a.Preview)
	}

	if none, err := c.AssetSearch(ctx, "nothing matches"); err != nil || len(none) != 0 {
		t.Errorf("empty search: %+v, %v", none, err)
	}
}

func TestImagesAndUpload(t *testing.T) {
	_, srv := newBackend(t, stubbackend.Config{})
	c := loggedIn(t, srv.URL)
	ctx := context.Background()

	meta, err := c.LoadImageMetadata(ctx, stubbackend.AssetHeader)
	if err != nil {
		t.Fatalf("LoadImageMetadata: %v", err)
	}
	if meta.OriginalDimensions.Width != 1920 || meta.MediaType != "image/jpeg" {
		t.Errorf("metadata: %+v", meta)
	}

	raw, err := c.CreateImageVariant(ctx, stubbackend.AssetHeader, map[string]any{
		"Neos\\Media\\Domain\\Model\\Adjustment\\CropImageAdjustment": map[string]int{"x": 0, "y": 0, "width": 800, "height": 600},
	})
	if err != nil || !strings.Contains(string(raw), stubbackend.AssetHeader) {
		t.Errorf("CreateImageVariant: %s, %v", raw, err)
	}

	uploaded, err := c.UploadAsset(ctx, connector.UploadRequest{
		FileName:     "team.png",
		Content:      []byte("\x89PNG fake"),
		PropertyName: "image",
		Node:         "/sites/demo/about/team@" + userWS + ";language=en_US",
		SiteNodeName: stubbackend.DemoSiteNodeName,
	})
	if err != nil {
		t.Fatalf("UploadAsset: %v", err)
	}
	if uploaded.MediaType != "image/png" || uploaded.PreviewImageResourceURI == "" {
		t.Errorf("uploaded: %+v", uploaded)
	}
	if _, err := c.LoadImageMetadata(ctx, uploaded.AssetUUID); err != nil {
		t.Errorf("uploaded asset has no metadata: %v", err)
	}
}

func TestContentServices(t *testing.T) {
	stub, srv := newBackend(t, stubbackend.Config{})
	c := loggedIn(t, srv.URL)
	ctx := context.Background()

	plugins, err := c.LoadMasterPlugins(ctx, userWS, lang("en_US"))
	if err != nil || len(plugins) != 1 || plugins[0].Value != stubbackend.PluginNewsList {
		t.Fatalf("LoadMasterPlugins: %+v, %v", plugins, err)
	}
	views, err := c.LoadPluginViews(ctx, stubbackend.PluginNewsList, userWS, lang("en_US"))
	if err != nil || views["latest"].PageNode == nil || views["archive"].PageNode != nil {
		t.Errorf("LoadPluginViews: %+v, %v", views, err)
	}

	presets, err := c.ContentDimensions(ctx, stubbackend.LanguageDimension, map[string]string{"country": "de"})
	if err != nil {
		t.Fatalf("ContentDimensions: %v", err)
	}
	if _, ok := presets["de"]; !ok || len(presets) != 2 {
		t.Errorf("presets: %v", presets)
	}

	raw, err := c.DataSource(ctx, stubbackend.DataSourceNodeTypes, "", map[string]any{"prefix": "Neos.Demo:Document.B"})
	if err != nil || string(raw) != `[{"label":"Neos.Demo:Document.Blog","value":"Neos.Demo:Document.Blog"}]` {
		t.Errorf("DataSource: %s, %v", raw, err)
	}
	if _, err := c.GetJSONResource(ctx, srv.URL+"/neos/service/data-source/"+stubbackend.DataSourceLanguages); err != nil {
		t.Errorf("GetJSONResource: %v", err)
	}

	if err := c.SetUserPreference(ctx, "contentCanvas.editPreviewMode", map[string]bool{"inPlace": true}); err != nil {
		t.Fatalf("SetUserPreference: %v", err)
	}
	if v, ok := stub.Preference(testUser, "contentCanvas.editPreviewMode"); !ok || v != `{"inPlace":true}` {
		t.Errorf("stored preference: %q, %v", v, ok)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	_, srv := newBackend(t, stubbackend.Config{})

	health, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	health.Body.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "neosstub_requests_total") {
		t.Error("metrics output lacks neosstub_requests_total")
	}
}

func TestRateLimit(t *testing.T) {
	_, srv := newBackend(t, stubbackend.Config{RateLimitRPS: 1})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		resp, err := http.Get(srv.URL + "/healthz")
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		codes = append(codes, resp.StatusCode)
	}
	if diff := cmp.Diff([]int{200, 200, 429}, codes); diff != "" {
		t.Errorf("status codes (-want +got):\n%s", diff)
	}
}

func TestCORS(t *testing.T) {
	_, srv := newBackend(t, stubbackend.Config{CORSOrigins: []string{"http://editor.local"}})

	req, _ := http.NewRequest(http.MethodOptions, srv.URL+"/neos/ui-services/publish", nil)
	req.Header.Set("Origin", "http://editor.local")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "http://editor.local" {
		t.Errorf("allow origin: %q", got)
	}
}
