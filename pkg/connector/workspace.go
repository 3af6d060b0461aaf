package connector

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// CSRFHeader carries the anti-forgery token on JSON and multipart requests.
// Form-encoded requests carry it in the __csrfToken field instead.
const CSRFHeader = "X-Flow-Csrftoken"

// Operation names, used in errors, logs and metrics.
const (
	OpChange              = "change"
	OpPublish             = "publish"
	OpDiscard             = "discard"
	OpChangeBaseWorkspace = "changeBaseWorkspace"
	OpCopyNode            = "copyNode"
	OpCutNode             = "cutNode"
	OpClearClipboard      = "clearClipboard"
	OpGetWorkspaceInfo    = "getWorkspaceInfo"
	OpGetPolicyInfo       = "getPolicyInfo"
)

// sendJSONWithToken POSTs payload as JSON with the token header.
func (c *Client) sendJSONWithToken(ctx context.Context, op, route string, payload any) (*Response, error) {
	body, err := jsonBody(op, payload)
	if err != nil {
		return nil, err
	}
	req, err := c.withToken(ctx, func(token string) (*Request, error) {
		h := http.Header{}
		h.Set(CSRFHeader, token)
		h.Set("Content-Type", "application/json")
		h.Set("Accept", "application/json")
		return NewRequest(op, http.MethodPost, route, CredentialInclude, h, body), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return c.exec.execute(ctx, req)
}

// getJSON GETs target and expects a JSON answer. No token is needed.
func (c *Client) getJSON(ctx context.Context, op, target string) (*Response, error) {
	h := http.Header{}
	h.Set("Accept", "application/json")
	return c.exec.execute(ctx, NewRequest(op, http.MethodGet, target, CredentialInclude, h, nil))
}

func mutate(ctx context.Context, c *Client, op, route string, payload any) (res *FeedbackResponse, err error) {
	defer c.observe(op, time.Now(), &err)

	resp, err := c.sendJSONWithToken(ctx, op, route, payload)
	if err != nil {
		return nil, err
	}
	out, err := decodeJSON[FeedbackResponse](op, resp)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Change applies a batch of node changes.
func (c *Client) Change(ctx context.Context, changes []Change) (*FeedbackResponse, error) {
	return mutate(ctx, c, OpChange, c.routes.UI.Service.Change, map[string]any{
		"changes": changes,
	})
}

// Publish publishes the given nodes to targetWorkspace.
func (c *Client) Publish(ctx context.Context, contextPaths []string, targetWorkspace string) (*FeedbackResponse, error) {
	return mutate(ctx, c, OpPublish, c.routes.UI.Service.Publish, map[string]any{
		"nodeContextPaths":    contextPaths,
		"targetWorkspaceName": targetWorkspace,
	})
}

// Discard throws away the pending changes of the given nodes.
func (c *Client) Discard(ctx context.Context, contextPaths []string) (*FeedbackResponse, error) {
	return mutate(ctx, c, OpDiscard, c.routes.UI.Service.Discard, map[string]any{
		"nodeContextPaths": contextPaths,
	})
}

// ChangeBaseWorkspace rebases the user's workspace onto targetWorkspace.
// documentNode is the document currently open, so the backend can tell
// whether it still exists after the switch.
func (c *Client) ChangeBaseWorkspace(ctx context.Context, targetWorkspace, documentNode string) (*FeedbackResponse, error) {
	return mutate(ctx, c, OpChangeBaseWorkspace, c.routes.UI.Service.ChangeBaseWorkspace, map[string]any{
		"targetWorkspaceName": targetWorkspace,
		"documentNode":        documentNode,
	})
}

// CopyNode puts a node on the clipboard for copying.
func (c *Client) CopyNode(ctx context.Context, contextPath string) (*FeedbackResponse, error) {
	return mutate(ctx, c, OpCopyNode, c.routes.UI.Service.CopyNode, map[string]any{
		"node": contextPath,
	})
}

// CutNode puts a node on the clipboard for moving.
func (c *Client) CutNode(ctx context.Context, contextPath string) (*FeedbackResponse, error) {
	return mutate(ctx, c, OpCutNode, c.routes.UI.Service.CutNode, map[string]any{
		"node": contextPath,
	})
}

// ClearClipboard empties the clipboard.
func (c *Client) ClearClipboard(ctx context.Context) (*FeedbackResponse, error) {
	return mutate(ctx, c, OpClearClipboard, c.routes.UI.Service.ClearClipboard, nil)
}

// GetWorkspaceInfo returns the state of the user's workspace.
func (c *Client) GetWorkspaceInfo(ctx context.Context) (info *WorkspaceInfo, err error) {
	defer c.observe(OpGetWorkspaceInfo, time.Now(), &err)

	resp, err := c.getJSON(ctx, OpGetWorkspaceInfo, c.routes.UI.Service.GetWorkspaceInfo)
	if err != nil {
		return nil, err
	}
	out, err := decodeJSON[WorkspaceInfo](OpGetWorkspaceInfo, resp)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetPolicyInfo returns what the current user may do with each node.
func (c *Client) GetPolicyInfo(ctx context.Context, contextPaths []string) (info *PolicyInfo, err error) {
	defer c.observe(OpGetPolicyInfo, time.Now(), &err)

	resp, err := c.sendJSONWithToken(ctx, OpGetPolicyInfo, c.routes.UI.Service.GetPolicyInfo, map[string]any{
		"nodes": contextPaths,
	})
	if err != nil {
		return nil, err
	}
	out, err := decodeJSON[PolicyInfo](OpGetPolicyInfo, resp)
	if err != nil {
		return nil, err
	}
	return &out, nil
}
