package connector

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// Routes is the table of backend addresses, one per endpoint. Each value is
// an absolute path ("/neos/service/nodes") resolved against the client's base
// URL, or an absolute URL.
type Routes struct {
	UI   UIRoutes
	Core CoreRoutes
}

// UIRoutes are the endpoints of the editing interface's own controller.
type UIRoutes struct {
	Service UIServiceRoutes
}

// UIServiceRoutes address the change and workspace endpoints.
type UIServiceRoutes struct {
	Change              string
	Publish             string
	Discard             string
	ChangeBaseWorkspace string
	CopyNode            string
	CutNode             string
	ClearClipboard      string
	LoadTree            string
	FlowQuery           string
	GetWorkspaceInfo    string
	GetPolicyInfo       string
}

// CoreRoutes address the content, service and module endpoints of the CMS.
type CoreRoutes struct {
	Content ContentRoutes
	Service ServiceRoutes
	Modules ModuleRoutes
	Login   string
	Logout  string
}

// ContentRoutes address the media and plugin endpoints.
type ContentRoutes struct {
	ImageWithMetadata  string
	CreateImageVariant string
	LoadMasterPlugins  string
	LoadPluginViews    string
	UploadAsset        string
}

// ServiceRoutes address the HTML-fragment and data services.
type ServiceRoutes struct {
	AssetProxies      string
	Assets            string
	Nodes             string
	UserPreferences   string
	DataSource        string
	ContentDimensions string
}

// ModuleRoutes address backend modules. Nothing in the catalog calls them;
// they are carried so a complete table can be configured and validated.
type ModuleRoutes struct {
	Workspaces   string
	UserSettings string
	MediaBrowser string
}

// DefaultRoutes returns the route layout of a standard Neos installation.
func DefaultRoutes() Routes {
	return Routes{
		UI: UIRoutes{Service: UIServiceRoutes{
			Change:              "/neos/ui-services/change",
			Publish:             "/neos/ui-services/publish",
			Discard:             "/neos/ui-services/discard",
			ChangeBaseWorkspace: "/neos/ui-services/change-base-workspace",
			CopyNode:            "/neos/ui-services/copy-node",
			CutNode:             "/neos/ui-services/cut-node",
			ClearClipboard:      "/neos/ui-services/clear-clipboard",
			LoadTree:            "/neos/ui-services/load-tree",
			FlowQuery:           "/neos/ui-services/flow-query",
			GetWorkspaceInfo:    "/neos/ui-services/get-workspace-info",
			GetPolicyInfo:       "/neos/ui-services/get-policy-info",
		}},
		Core: CoreRoutes{
			Content: ContentRoutes{
				ImageWithMetadata:  "/neos/content/image-with-metadata",
				CreateImageVariant: "/neos/content/create-image-variant",
				LoadMasterPlugins:  "/neos/content/master-plugins",
				LoadPluginViews:    "/neos/content/plugin-views",
				UploadAsset:        "/neos/content/upload-asset",
			},
			Service: ServiceRoutes{
				AssetProxies:      "/neos/service/asset-proxies",
				Assets:            "/neos/service/assets",
				Nodes:             "/neos/service/nodes",
				UserPreferences:   "/neos/service/user-preferences",
				DataSource:        "/neos/service/data-source",
				ContentDimensions: "/neos/service/content-dimensions",
			},
			Modules: ModuleRoutes{
				Workspaces:   "/neos/management/workspaces",
				UserSettings: "/neos/user/usersettings",
				MediaBrowser: "/neos/management/mediabrowser",
			},
			Login:  "/neos/login",
			Logout: "/neos/logout",
		},
	}
}

type routeEntry struct {
	name     string
	value    *string
	required bool
}

// entries lists every route under its dotted configuration name. Required
// routes are the ones some operation sends requests to.
func (r *Routes) entries() []routeEntry {
	s, c := &r.UI.Service, &r.Core
	return []routeEntry{
		{"ui.service.change", &s.Change, true},
		{"ui.service.publish", &s.Publish, true},
		{"ui.service.discard", &s.Discard, true},
		{"ui.service.changeBaseWorkspace", &s.ChangeBaseWorkspace, true},
		{"ui.service.copyNode", &s.CopyNode, true},
		{"ui.service.cutNode", &s.CutNode, true},
		{"ui.service.clearClipboard", &s.ClearClipboard, true},
		{"ui.service.loadTree", &s.LoadTree, false},
		{"ui.service.flowQuery", &s.FlowQuery, false},
		{"ui.service.getWorkspaceInfo", &s.GetWorkspaceInfo, true},
		{"ui.service.getPolicyInfo", &s.GetPolicyInfo, true},
		{"core.content.imageWithMetadata", &c.Content.ImageWithMetadata, true},
		{"core.content.createImageVariant", &c.Content.CreateImageVariant, true},
		{"core.content.loadMasterPlugins", &c.Content.LoadMasterPlugins, true},
		{"core.content.loadPluginViews", &c.Content.LoadPluginViews, true},
		{"core.content.uploadAsset", &c.Content.UploadAsset, true},
		{"core.service.assetProxies", &c.Service.AssetProxies, true},
		{"core.service.assets", &c.Service.Assets, true},
		{"core.service.nodes", &c.Service.Nodes, true},
		{"core.service.userPreferences", &c.Service.UserPreferences, true},
		{"core.service.dataSource", &c.Service.DataSource, true},
		{"core.service.contentDimensions", &c.Service.ContentDimensions, true},
		{"core.modules.workspaces", &c.Modules.Workspaces, false},
		{"core.modules.userSettings", &c.Modules.UserSettings, false},
		{"core.modules.mediaBrowser", &c.Modules.MediaBrowser, false},
		{"core.login", &c.Login, true},
		{"core.logout", &c.Logout, false},
	}
}

// RouteNames returns the dotted names accepted by Set, in table order.
func RouteNames() []string {
	var r Routes
	entries := r.entries()
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.name
	}
	return names
}

// Set overrides one route by its dotted name, e.g. "core.service.nodes".
// Names are matched case-insensitively, since configuration keys are often
// lower-cased on the way in.
func (r *Routes) Set(name, value string) error {
	for _, e := range r.entries() {
		if strings.EqualFold(e.name, name) {
			*e.value = value
			return nil
		}
	}
	return fmt.Errorf("unknown route %q", name)
}

// Get returns a route by its dotted name.
func (r Routes) Get(name string) (string, bool) {
	for _, e := range r.entries() {
		if strings.EqualFold(e.name, name) {
			return *e.value, true
		}
	}
	return "", false
}

// Validate checks every route and reports all bad entries at once. Required
// routes must be set; every set route must be an absolute path or an
// absolute URL.
func (r Routes) Validate() error {
	var result *multierror.Error
	for _, e := range r.entries() {
		v := *e.value
		if v == "" {
			if e.required {
				result = multierror.Append(result, fmt.Errorf("route %s: must be set", e.name))
			}
			continue
		}
		if err := validateRoute(v); err != nil {
			result = multierror.Append(result, fmt.Errorf("route %s: %w", e.name, err))
		}
	}
	return result.ErrorOrNil()
}

func validateRoute(v string) error {
	if strings.HasPrefix(v, "/") {
		if strings.HasPrefix(v, "//") {
			return fmt.Errorf("%q is protocol-relative, use an absolute URL", v)
		}
		return nil
	}
	u, err := url.Parse(v)
	if err != nil {
		return fmt.Errorf("parse %q: %w", v, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%q is neither an absolute path nor an absolute URL", v)
	}
	return nil
}
