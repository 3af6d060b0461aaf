package connector

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Data types reported by normalized records.
const (
	DataTypeAsset = "Neos.Media:Asset"
	DataTypeNode  = "Neos.ContentRepository:Node"
)

// Dimensions is a dimension combination: dimension name to preset values,
// e.g. {"language": ["en_US"]}.
type Dimensions map[string][]string

// Change is one entry of a change batch.
type Change struct {
	Type    string         `json:"type"`
	Subject string         `json:"subject"`
	Payload map[string]any `json:"payload,omitempty"`
}

// Feedback is an instruction the backend sends back after a mutation, such
// as "reload document" or "node created".
type Feedback struct {
	Type        string          `json:"type"`
	Description string          `json:"description,omitempty"`
	Payload     json.RawMessage `json:"payload,omitempty"`
}

// FeedbackResponse is the payload of every mutating collection operation.
type FeedbackResponse struct {
	Feedbacks []Feedback `json:"feedbacks"`
}

// PublishableNode is a changed node awaiting publication.
type PublishableNode struct {
	ContextPath         string `json:"contextPath"`
	DocumentContextPath string `json:"documentContextPath"`
}

// WorkspaceInfo describes the user's personal workspace.
type WorkspaceInfo struct {
	Name             string            `json:"name"`
	PublishableNodes []PublishableNode `json:"publishableNodes"`
	BaseWorkspace    string            `json:"baseWorkspace"`
	ReadOnly         bool              `json:"readOnly"`
	Status           string            `json:"status,omitempty"`
}

func (w *WorkspaceInfo) validate() error {
	if w.Name == "" {
		return errors.New("workspace info: missing name")
	}
	return nil
}

// NodePolicy lists what the current user may do with a node.
type NodePolicy struct {
	CanRemove            bool     `json:"canRemove"`
	CanEdit              bool     `json:"canEdit"`
	DisallowedNodeTypes  []string `json:"disallowedNodeTypes"`
	DisallowedProperties []string `json:"disallowedProperties"`
}

// NodePolicyInfo wraps the policy of one node.
type NodePolicyInfo struct {
	Policy NodePolicy `json:"policy"`
}

// PolicyInfo maps node context paths to their policies.
type PolicyInfo struct {
	Success      bool                      `json:"success"`
	NodePolicies map[string]NodePolicyInfo `json:"nodePolicies"`
}

func (p *PolicyInfo) validate() error {
	if !p.Success {
		return errors.New("policy info: backend reported failure")
	}
	return nil
}

// ImageDimensions is the pixel size of an image.
type ImageDimensions struct {
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	AspectRatio float64 `json:"aspectRatio,omitempty"`
}

// ImageMetadata describes an image or image variant.
type ImageMetadata struct {
	OriginalImageResourceURI string          `json:"originalImageResourceUri"`
	PreviewImageResourceURI  string          `json:"previewImageResourceUri"`
	OriginalDimensions       ImageDimensions `json:"originalDimensions"`
	PreviewDimensions        ImageDimensions `json:"previewDimensions"`
	MediaType                string          `json:"mediaType"`
	Object                   json.RawMessage `json:"object,omitempty"`
}

func (m *ImageMetadata) validate() error {
	if m.OriginalImageResourceURI == "" {
		return errors.New("image metadata: missing originalImageResourceUri")
	}
	return nil
}

// PluginOption is a selectable master plugin.
type PluginOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// PageNode is the document a plugin view is placed on.
type PageNode struct {
	Title string `json:"title"`
	URI   string `json:"uri"`
}

// PluginView describes where one view of a plugin is rendered.
type PluginView struct {
	Label    string    `json:"label"`
	PageNode *PageNode `json:"pageNode,omitempty"`
}

// UploadRequest is the input of UploadAsset.
type UploadRequest struct {
	FileName     string
	Content      []byte
	PropertyName string
	Node         string // context path of the node the asset is uploaded for
	SiteNodeName string
	Metadata     string // defaults to "Image"
}

// UploadedAsset is the record the backend returns for an upload.
type UploadedAsset struct {
	AssetUUID                string           `json:"assetUuid"`
	OriginalImageResourceURI string           `json:"originalImageResourceUri,omitempty"`
	PreviewImageResourceURI  string           `json:"previewImageResourceUri,omitempty"`
	OriginalDimensions       *ImageDimensions `json:"originalDimensions,omitempty"`
	PreviewDimensions        *ImageDimensions `json:"previewDimensions,omitempty"`
	MediaType                string           `json:"mediaType,omitempty"`
	Object                   json.RawMessage  `json:"object,omitempty"`
}

func (u *UploadedAsset) validate() error {
	if u.AssetUUID == "" {
		return errors.New("upload: missing assetUuid")
	}
	return nil
}

// AssetRecord is a local asset.
type AssetRecord struct {
	DataType   string `json:"dataType"`
	LoaderURI  string `json:"loaderUri"`
	Label      string `json:"label"`
	Preview    string `json:"preview"`
	Identifier string `json:"identifier"`
}

// AssetProxyRecord is an asset offered by an asset source, possibly already
// imported as a local asset.
type AssetProxyRecord struct {
	AssetRecord
	AssetSourceIdentifier string `json:"assetSourceIdentifier"`
	AssetSourceLabel      string `json:"assetSourceLabel"`
	AssetProxyIdentifier  string `json:"assetProxyIdentifier"`
	// LocalAssetIdentifier is nil until the proxy has been imported.
	LocalAssetIdentifier *string `json:"localAssetIdentifier,omitempty"`
}

// NodeSearchQuery holds the parameters of a node search. Extra is merged in
// last and may carry backend specific parameters.
type NodeSearchQuery struct {
	SearchTerm    string
	NodeTypes     []string
	WorkspaceName string
	Dimensions    Dimensions
	ContextNode   string
	Extra         map[string]any
}

func (q NodeSearchQuery) params() map[string]any {
	p := map[string]any{}
	if q.SearchTerm != "" {
		p["searchTerm"] = q.SearchTerm
	}
	if len(q.NodeTypes) > 0 {
		p["nodeTypes"] = q.NodeTypes
	}
	if q.WorkspaceName != "" {
		p["workspaceName"] = q.WorkspaceName
	}
	if len(q.Dimensions) > 0 {
		p["dimensions"] = map[string][]string(q.Dimensions)
	}
	if q.ContextNode != "" {
		p["contextNode"] = q.ContextNode
	}
	for k, v := range q.Extra {
		p[k] = v
	}
	return p
}

// NodeSearchResult is one node found by SearchNodes.
type NodeSearchResult struct {
	DataType           string `json:"dataType"`
	LoaderURI          string `json:"loaderUri"`
	Label              string `json:"label"`
	Identifier         string `json:"identifier"`
	NodeType           string `json:"nodeType"`
	URI                string `json:"uri"`
	URIInLiveWorkspace string `json:"uriInLiveWorkspace"`
}

// NodeLookup is the outcome of a single-node lookup: NodeFound or
// NodeNotFound. Any other response is an error.
type NodeLookup interface {
	isNodeLookup()
}

// NodeFound is a node that resolved in the requested context.
type NodeFound struct {
	FrontendURI string `json:"nodeFrontendUri"`
	ContextPath string `json:"nodeContextPath"`
}

// NodeNotFound is a node that does not exist in the requested context.
type NodeNotFound struct {
	// ExistsInOtherDimensions reports whether the node could be adopted from
	// another dimension combination.
	ExistsInOtherDimensions bool `json:"nodeExistsInOtherDimensions"`
	// NumberOfMissingAncestors counts the ancestors missing on the path to
	// the node, the node itself excluded.
	NumberOfMissingAncestors int `json:"numberOfNodesMissingOnRootline"`
}

func (NodeFound) isNodeLookup()    {}
func (NodeNotFound) isNodeLookup() {}

// AdoptRequest is the input of AdoptNodeToOtherDimension.
type AdoptRequest struct {
	Identifier       string
	TargetDimensions Dimensions
	SourceDimensions Dimensions
	WorkspaceName    string
	// CopyContent copies the node's properties instead of creating an empty
	// variant.
	CopyContent bool
}

func (r AdoptRequest) mode() string {
	if r.CopyContent {
		return "adoptFromAnotherDimensionAndCopyContent"
	}
	return "adoptFromAnotherDimension"
}

// String makes lookups readable in logs and CLI output.
func (n NodeFound) String() string {
	return fmt.Sprintf("found %s (%s)", n.ContextPath, n.FrontendURI)
}

func (n NodeNotFound) String() string {
	return fmt.Sprintf("not found (exists in other dimensions: %t, missing ancestors: %d)",
		n.ExistsInOtherDimensions, n.NumberOfMissingAncestors)
}
