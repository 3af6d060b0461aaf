package connector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"
)

const (
	OpLoadImageMetadata  = "loadImageMetadata"
	OpCreateImageVariant = "createImageVariant"
	OpLoadMasterPlugins  = "loadMasterPlugins"
	OpLoadPluginViews    = "loadPluginViews"
	OpUploadAsset        = "uploadAsset"
	OpContentDimensions  = "contentDimensions"
)

// LoadImageMetadata returns metadata and preview information of an image or
// image variant.
func (c *Client) LoadImageMetadata(ctx context.Context, imageVariantID string) (meta *ImageMetadata, err error) {
	defer c.observe(OpLoadImageMetadata, time.Now(), &err)

	target := urlWithParams(c.routes.Core.Content.ImageWithMetadata, url.Values{"image": {imageVariantID}})
	resp, err := c.getJSON(ctx, OpLoadImageMetadata, target)
	if err != nil {
		return nil, err
	}
	out, err := decodeJSON[ImageMetadata](OpLoadImageMetadata, resp)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateImageVariant creates a variant of an image with the given
// adjustments, keyed by adjustment class:
//
//	{"Neos\\Media\\Domain\\Model\\Adjustment\\CropImageAdjustment": {"x": 0, "y": 0, "width": 210, "height": 85}}
//
// The backend's answer is returned as-is.
func (c *Client) CreateImageVariant(ctx context.Context, originalAssetID string, adjustments map[string]any) (raw json.RawMessage, err error) {
	defer c.observe(OpCreateImageVariant, time.Now(), &err)

	resp, err := c.sendJSONWithToken(ctx, OpCreateImageVariant, c.routes.Core.Content.CreateImageVariant, map[string]any{
		"asset": map[string]any{
			"originalAsset": originalAssetID,
			"adjustments":   adjustments,
		},
	})
	if err != nil {
		return nil, err
	}
	return decodeRaw(OpCreateImageVariant, resp)
}

// LoadMasterPlugins lists the plugins a plugin view can be attached to.
func (c *Client) LoadMasterPlugins(ctx context.Context, workspace string, dimensions Dimensions) (plugins []PluginOption, err error) {
	defer c.observe(OpLoadMasterPlugins, time.Now(), &err)

	params := c.encoder.Encode(map[string]any{
		"workspaceName": workspace,
		"dimensions":    map[string][]string(dimensions),
	})
	resp, err := c.getJSON(ctx, OpLoadMasterPlugins, urlWithParams(c.routes.Core.Content.LoadMasterPlugins, params))
	if err != nil {
		return nil, err
	}
	return decodeJSON[[]PluginOption](OpLoadMasterPlugins, resp)
}

// LoadPluginViews returns the views of a plugin, keyed by view name.
func (c *Client) LoadPluginViews(ctx context.Context, identifier, workspace string, dimensions Dimensions) (views map[string]PluginView, err error) {
	defer c.observe(OpLoadPluginViews, time.Now(), &err)

	params := c.encoder.Encode(map[string]any{
		"identifier":    identifier,
		"workspaceName": workspace,
		"dimensions":    map[string][]string(dimensions),
	})
	resp, err := c.getJSON(ctx, OpLoadPluginViews, urlWithParams(c.routes.Core.Content.LoadPluginViews, params))
	if err != nil {
		return nil, err
	}
	return decodeJSON[map[string]PluginView](OpLoadPluginViews, resp)
}

// ContentDimensions returns the presets of one dimension that are allowed
// in combination with the already chosen presets of the others.
func (c *Client) ContentDimensions(ctx context.Context, dimensionName string, chosenPresets map[string]string) (presets map[string]json.RawMessage, err error) {
	defer c.observe(OpContentDimensions, time.Now(), &err)

	target := c.routes.Core.Service.ContentDimensions + "/" + url.PathEscape(dimensionName) + ".json"
	params := c.encoder.Encode(map[string]any{"chosenDimensionPresets": chosenPresets})
	resp, err := c.getJSON(ctx, OpContentDimensions, urlWithParams(target, params))
	if err != nil {
		return nil, err
	}
	return decodeJSON[map[string]json.RawMessage](OpContentDimensions, resp)
}

// UploadAsset uploads a file as a new asset for a node property.
func (c *Client) UploadAsset(ctx context.Context, upload UploadRequest) (asset *UploadedAsset, err error) {
	defer c.observe(OpUploadAsset, time.Now(), &err)

	body, contentType, err := uploadBody(upload)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", OpUploadAsset, err)
	}
	req, err := c.withToken(ctx, func(token string) (*Request, error) {
		h := http.Header{}
		h.Set(CSRFHeader, token)
		h.Set("Content-Type", contentType)
		h.Set("Accept", "application/json")
		return NewRequest(OpUploadAsset, http.MethodPost, c.routes.Core.Content.UploadAsset, CredentialInclude, h, body), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", OpUploadAsset, err)
	}
	resp, err := c.exec.execute(ctx, req)
	if err != nil {
		return nil, err
	}
	out, err := decodeJSON[UploadedAsset](OpUploadAsset, resp)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func uploadBody(upload UploadRequest) ([]byte, string, error) {
	metadata := upload.Metadata
	if metadata == "" {
		metadata = "Image"
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("__siteNodeName", upload.SiteNodeName); err != nil {
		return nil, "", err
	}
	part, err := w.CreateFormFile("asset[resource]", upload.FileName)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(upload.Content); err != nil {
		return nil, "", err
	}
	for _, f := range [][2]string{
		{"metadata", metadata},
		{"propertyName", upload.PropertyName},
		{"node", upload.Node},
	} {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}
