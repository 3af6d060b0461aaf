package connector

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html/atom"

	"github.com/jmerrifield20/neosconnect/pkg/fragment"
	"github.com/jmerrifield20/neosconnect/pkg/neosuri"
)

const (
	OpSearchNodes               = "searchNodes"
	OpGetSingleNode             = "getSingleNode"
	OpAdoptNodeToOtherDimension = "adoptNodeToOtherDimension"
)

// Response headers of a 404 single-node lookup.
const (
	HeaderExistsInOtherDimensions = "X-Neos-Node-Exists-In-Other-Dimensions"
	HeaderNodesMissingOnRootline  = "X-Neos-Nodes-Missing-On-Rootline"
)

var nodeSearchSchema = fragment.Schema{
	Scope:  fragment.Class("nodes"),
	Record: fragment.Class("node"),
	Fields: []fragment.Field{
		{Name: "uri", Marker: fragment.Class("node-frontend-uri")},
		{Name: "identifier", Marker: fragment.Class("node-identifier")},
		{Name: "label", Marker: fragment.Class("node-label")},
		{Name: "nodeType", Marker: fragment.Class("node-type")},
	},
}

var (
	frontendURIMarker = fragment.Class("node-frontend-uri")
	nodePathMarker    = fragment.Class("node-path")
)

// SearchNodes searches nodes, typically for the link editor:
//
//	searchTerm=se
//	nodeTypes[]=Neos.Neos:Document
//	workspaceName=user-admin
//	dimensions[language][]=en_US
//	contextNode=/sites/neosdemo@user-admin;language=en_US
func (c *Client) SearchNodes(ctx context.Context, q NodeSearchQuery) (nodes []NodeSearchResult, err error) {
	defer c.observe(OpSearchNodes, time.Now(), &err)

	target := urlWithParams(c.routes.Core.Service.Nodes, c.encoder.Encode(q.params()))
	doc, err := c.getFragment(ctx, OpSearchNodes, target, atom.Div)
	if err != nil {
		return nil, err
	}
	records, err := doc.Records(nodeSearchSchema)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", OpSearchNodes, err)
	}

	nodes = make([]NodeSearchResult, len(records))
	for i, r := range records {
		id := r.Value("identifier")
		uri := r.Value("uri")
		nodes[i] = NodeSearchResult{
			DataType:           DataTypeNode,
			LoaderURI:          neosuri.Node(id).String(),
			Label:              r.Value("label"),
			Identifier:         id,
			NodeType:           r.Value("nodeType"),
			URI:                uri,
			URIInLiveWorkspace: neosuri.LiveWorkspaceURI(uri),
		}
	}
	return nodes, nil
}

// GetSingleNode looks a node up in the context described by params, usually
// workspaceName and dimensions. The result is NodeFound or NodeNotFound.
func (c *Client) GetSingleNode(ctx context.Context, identifier string, params map[string]any) (lookup NodeLookup, err error) {
	defer c.observe(OpGetSingleNode, time.Now(), &err)

	target := urlWithParams(joinPath(c.routes.Core.Service.Nodes, identifier), c.encoder.Encode(params))
	h := http.Header{}
	h.Set("Accept", "text/html")
	resp, err := c.exec.execute(ctx, NewRequest(OpGetSingleNode, http.MethodGet, target, CredentialInclude, h, nil))
	if err != nil {
		return nil, err
	}
	return resolveSingleNode(OpGetSingleNode, resp)
}

// AdoptNodeToOtherDimension creates a variant of a node in the target
// dimensions, optionally copying its content, and looks the result up.
func (c *Client) AdoptNodeToOtherDimension(ctx context.Context, adopt AdoptRequest) (lookup NodeLookup, err error) {
	defer c.observe(OpAdoptNodeToOtherDimension, time.Now(), &err)

	req, err := c.withToken(ctx, func(token string) (*Request, error) {
		form := c.encoder.Encode(map[string]any{
			"identifier":       adopt.Identifier,
			"dimensions":       map[string][]string(adopt.TargetDimensions),
			"sourceDimensions": map[string][]string(adopt.SourceDimensions),
			"workspaceName":    adopt.WorkspaceName,
			"mode":             adopt.mode(),
			"__csrfToken":      token,
		})
		h := http.Header{}
		h.Set("Content-Type", "application/x-www-form-urlencoded")
		h.Set("Accept", "text/html")
		return NewRequest(OpAdoptNodeToOtherDimension, http.MethodPost, c.routes.Core.Service.Nodes, CredentialInclude, h, []byte(form.Encode())), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", OpAdoptNodeToOtherDimension, err)
	}
	resp, err := c.exec.execute(ctx, req)
	if err != nil {
		return nil, err
	}
	return resolveSingleNode(OpAdoptNodeToOtherDimension, resp)
}

// resolveSingleNode maps a lookup response to its outcome: 200 is NodeFound,
// 404 is NodeNotFound, anything else is an *UnexpectedStatusError.
func resolveSingleNode(op string, resp *Response) (NodeLookup, error) {
	switch resp.StatusCode {
	case http.StatusOK:
		return nodeFound(op, resp)
	case http.StatusNotFound:
		return nodeNotFound(op, resp)
	default:
		return nil, &UnexpectedStatusError{Op: op, StatusCode: resp.StatusCode, Body: resp.Body}
	}
}

func nodeFound(op string, resp *Response) (NodeLookup, error) {
	doc, err := parseFragment(op, resp, atom.Div)
	if err != nil {
		return nil, err
	}
	frontendURI, err := doc.Attribute(frontendURIMarker, "href")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	nodePath, err := doc.Text(nodePathMarker)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	nodeContext, err := neosuri.ContextFromFrontendURI(frontendURI)
	if err != nil {
		return nil, &DecodeError{Op: op, Body: resp.Body, Err: err}
	}
	return NodeFound{
		FrontendURI: frontendURI,
		ContextPath: neosuri.JoinContextPath(nodePath, nodeContext),
	}, nil
}

func nodeNotFound(op string, resp *Response) (NodeLookup, error) {
	var out NodeNotFound

	if v := strings.TrimSpace(resp.Header.Get(HeaderExistsInOtherDimensions)); v != "" {
		// Any value other than an explicit false counts as present.
		exists, err := strconv.ParseBool(v)
		out.ExistsInOtherDimensions = exists || err != nil
	}

	raw := strings.TrimSpace(resp.Header.Get(HeaderNodesMissingOnRootline))
	if raw == "" {
		return nil, fmt.Errorf("%s: %w", op, &FieldMissingError{Marker: HeaderNodesMissingOnRootline, Index: fragment.DocumentIndex})
	}
	missing, err := strconv.Atoi(raw)
	if err != nil {
		return nil, &DecodeError{Op: op, Body: resp.Body, Err: fmt.Errorf("header %s: %w", HeaderNodesMissingOnRootline, err)}
	}
	// The header counts the node itself.
	out.NumberOfMissingAncestors = missing - 1
	return out, nil
}
