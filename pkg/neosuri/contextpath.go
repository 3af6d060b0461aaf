package neosuri

import (
	"fmt"
	"sort"
	"strings"
)

// ContextPath is a node path combined with its workspace and dimension
// context:
//
//	/sites/demo/about@user-admin;language=en_US,de&country=de
type ContextPath struct {
	Path       string
	Workspace  string
	Dimensions map[string][]string
}

// ParseContextPath parses a node context path.
func ParseContextPath(raw string) (ContextPath, error) {
	path, context, ok := strings.Cut(raw, "@")
	if !ok {
		return ContextPath{}, fmt.Errorf("invalid context path %q: missing @workspace", raw)
	}
	if !strings.HasPrefix(path, "/") {
		return ContextPath{}, fmt.Errorf("invalid context path %q: node path must be absolute", raw)
	}

	workspace, dims, _ := strings.Cut(context, ";")
	if workspace == "" {
		return ContextPath{}, fmt.Errorf("invalid context path %q: empty workspace", raw)
	}

	cp := ContextPath{Path: path, Workspace: workspace}
	if dims == "" {
		return cp, nil
	}
	cp.Dimensions = make(map[string][]string)
	for _, pair := range strings.Split(dims, "&") {
		name, values, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			return ContextPath{}, fmt.Errorf("invalid context path %q: bad dimension %q", raw, pair)
		}
		cp.Dimensions[name] = strings.Split(values, ",")
	}
	return cp, nil
}

// String renders the context path. Dimensions are sorted by name.
func (c ContextPath) String() string {
	s := c.Path + "@" + c.Workspace
	if len(c.Dimensions) == 0 {
		return s
	}
	names := make([]string, 0, len(c.Dimensions))
	for name := range c.Dimensions {
		names = append(names, name)
	}
	sort.Strings(names)
	pairs := make([]string, len(names))
	for i, name := range names {
		pairs[i] = name + "=" + strings.Join(c.Dimensions[name], ",")
	}
	return s + ";" + strings.Join(pairs, "&")
}

// ContextFromFrontendURI returns the context segment of a frontend URI: the
// token after "@", up to the dimension separator ";" or the first ".".
//
//	/sites/demo@user-admin;language=en_US.html  →  user-admin
func ContextFromFrontendURI(frontendURI string) (string, error) {
	_, after, ok := strings.Cut(frontendURI, "@")
	if !ok {
		return "", fmt.Errorf("frontend URI %q has no context segment", frontendURI)
	}
	if i := strings.IndexAny(after, ";."); i >= 0 {
		after = after[:i]
	}
	if after == "" {
		return "", fmt.Errorf("frontend URI %q has an empty context segment", frontendURI)
	}
	return after, nil
}

// JoinContextPath builds "path@context".
func JoinContextPath(nodePath, context string) string {
	return nodePath + "@" + context
}

// LiveWorkspaceURI strips the workspace and dimension suffix from a frontend
// URI and keeps its file ending:
//
//	/sites/demo@user-admin;language=en_US.html  →  /sites/demo.html
//
// URIs without a context segment are already live URIs and are returned
// unchanged.
func LiveWorkspaceURI(frontendURI string) string {
	at := strings.Index(frontendURI, "@")
	if at < 0 {
		return frontendURI
	}
	base := frontendURI[:at]
	suffix := frontendURI[at:]
	if dot := strings.LastIndex(suffix, "."); dot >= 0 {
		return base + suffix[dot:]
	}
	return base
}
