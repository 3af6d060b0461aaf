package connector

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/net/html/atom"

	"github.com/jmerrifield20/neosconnect/pkg/fragment"
	"github.com/jmerrifield20/neosconnect/pkg/neosuri"
)

const (
	OpAssetProxySearch = "assetProxySearch"
	OpAssetProxyDetail = "assetProxyDetail"
	OpAssetProxyImport = "assetProxyImport"
	OpAssetSearch      = "assetSearch"
	OpAssetDetail      = "assetDetail"
)

// Asset proxy listings are table rows, so they are parsed in a table context.
var assetProxySchema = fragment.Schema{
	Record: fragment.Class("asset-proxy"),
	Fields: []fragment.Field{
		{Name: "sourceIdentifier", Marker: fragment.Class("asset-source-identifier")},
		{Name: "sourceLabel", Marker: fragment.Class("asset-source-label")},
		{Name: "proxyIdentifier", Marker: fragment.Class("asset-proxy-identifier")},
		{Name: "localIdentifier", Marker: fragment.Class("local-asset-identifier"), Optional: true},
		{Name: "label", Marker: fragment.Class("asset-proxy-label")},
		{Name: "preview", Marker: fragment.Attr("rel", "thumbnail"), Attr: "href"},
	},
}

var assetImportSchema = fragment.Schema{
	Record: fragment.Class("asset-proxy"),
	Fields: []fragment.Field{
		{Name: "localIdentifier", Marker: fragment.Class("local-asset-identifier")},
	},
}

var assetSearchSchema = fragment.Schema{
	Scope:         fragment.Class("assets"),
	ScopeRequired: true,
	Record:        fragment.Class("asset"),
	Fields: []fragment.Field{
		{Name: "identifier", Marker: fragment.Class("asset-identifier")},
		{Name: "label", Marker: fragment.Class("asset-label")},
		{Name: "preview", Marker: fragment.Attr("rel", "thumbnail"), Attr: "href"},
	},
}

var assetDetailSchema = fragment.Schema{
	Record: fragment.Class("asset"),
	Fields: []fragment.Field{
		{Name: "identifier", Marker: fragment.Class("asset-identifier")},
		{Name: "label", Marker: fragment.Class("asset-label")},
		{Name: "preview", Marker: fragment.Attr("rel", "preview"), Attr: "href"},
	},
}

func assetProxyFromRecord(r fragment.Record) AssetProxyRecord {
	source := r.Value("sourceIdentifier")
	proxyID := r.Value("proxyIdentifier")

	out := AssetProxyRecord{
		AssetRecord: AssetRecord{
			DataType:   DataTypeAsset,
			LoaderURI:  neosuri.AssetProxy(source, proxyID).String(),
			Label:      r.Value("label"),
			Preview:    r.Value("preview"),
			Identifier: source + "/" + proxyID,
		},
		AssetSourceIdentifier: source,
		AssetSourceLabel:      r.Value("sourceLabel"),
		AssetProxyIdentifier:  proxyID,
	}
	// An imported proxy is addressed by its local asset.
	if local, ok := r.Get("localIdentifier"); ok && local != "" {
		out.LocalAssetIdentifier = &local
		out.Identifier = local
	}
	return out
}

func assetFromRecord(r fragment.Record) AssetRecord {
	id := r.Value("identifier")
	return AssetRecord{
		DataType:   DataTypeAsset,
		LoaderURI:  neosuri.Asset(id).String(),
		Label:      r.Value("label"),
		Preview:    r.Value("preview"),
		Identifier: id,
	}
}

// getFragment GETs target and parses the 2xx body as markup.
func (c *Client) getFragment(ctx context.Context, op, target string, parent atom.Atom) (*fragment.Document, error) {
	h := http.Header{}
	h.Set("Accept", "text/html")
	resp, err := c.exec.execute(ctx, NewRequest(op, http.MethodGet, target, CredentialInclude, h, nil))
	if err != nil {
		return nil, err
	}
	return decodeFragment(op, resp, parent)
}

// AssetProxySearch searches the assets offered by an asset source. An empty
// source searches the default source. Proxies whose identifier is listed in
// exclude are dropped; the order of the rest is kept.
func (c *Client) AssetProxySearch(ctx context.Context, searchTerm, assetSource string, exclude ...string) (proxies []AssetProxyRecord, err error) {
	defer c.observe(OpAssetProxySearch, time.Now(), &err)

	target := urlWithParams(c.routes.Core.Service.AssetProxies, url.Values{
		"searchTerm":            {searchTerm},
		"assetSourceIdentifier": {assetSource},
	})
	doc, err := c.getFragment(ctx, OpAssetProxySearch, target, atom.Table)
	if err != nil {
		return nil, err
	}
	records, err := doc.Records(assetProxySchema)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", OpAssetProxySearch, err)
	}

	excluded := make(map[string]bool, len(exclude))
	for _, id := range exclude {
		excluded[id] = true
	}
	proxies = make([]AssetProxyRecord, 0, len(records))
	for _, r := range records {
		p := assetProxyFromRecord(r)
		if excluded[p.Identifier] {
			continue
		}
		proxies = append(proxies, p)
	}
	return proxies, nil
}

// AssetProxyDetail returns one asset proxy of an asset source.
func (c *Client) AssetProxyDetail(ctx context.Context, assetSource, proxyID string) (proxy *AssetProxyRecord, err error) {
	defer c.observe(OpAssetProxyDetail, time.Now(), &err)

	doc, err := c.getFragment(ctx, OpAssetProxyDetail, joinPath(c.routes.Core.Service.AssetProxies, assetSource, proxyID), atom.Table)
	if err != nil {
		return nil, err
	}
	r, err := doc.Record(assetProxySchema)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", OpAssetProxyDetail, err)
	}
	p := assetProxyFromRecord(r)
	return &p, nil
}

// AssetProxyImport imports an asset proxy into the local media library and
// returns the identifier of the new local asset.
func (c *Client) AssetProxyImport(ctx context.Context, assetSource, proxyID string) (localID string, err error) {
	defer c.observe(OpAssetProxyImport, time.Now(), &err)

	target := joinPath(c.routes.Core.Service.AssetProxies, assetSource, proxyID)
	req, err := c.withToken(ctx, func(token string) (*Request, error) {
		h := http.Header{}
		h.Set(CSRFHeader, token)
		h.Set("Accept", "text/html")
		return NewRequest(OpAssetProxyImport, http.MethodPost, target, CredentialInclude, h, nil), nil
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", OpAssetProxyImport, err)
	}
	resp, err := c.exec.execute(ctx, req)
	if err != nil {
		return "", err
	}
	doc, err := decodeFragment(OpAssetProxyImport, resp, atom.Table)
	if err != nil {
		return "", err
	}
	r, err := doc.Record(assetImportSchema)
	if err != nil {
		return "", fmt.Errorf("%s: %w", OpAssetProxyImport, err)
	}
	return r.Value("localIdentifier"), nil
}

// AssetSearch searches the local media library.
func (c *Client) AssetSearch(ctx context.Context, searchTerm string) (assets []AssetRecord, err error) {
	defer c.observe(OpAssetSearch, time.Now(), &err)

	target := urlWithParams(c.routes.Core.Service.Assets, url.Values{"searchTerm": {searchTerm}})
	doc, err := c.getFragment(ctx, OpAssetSearch, target, atom.Div)
	if err != nil {
		return nil, err
	}
	records, err := doc.Records(assetSearchSchema)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", OpAssetSearch, err)
	}
	assets = make([]AssetRecord, len(records))
	for i, r := range records {
		assets[i] = assetFromRecord(r)
	}
	return assets, nil
}

// AssetDetail returns one local asset.
func (c *Client) AssetDetail(ctx context.Context, identifier string) (asset *AssetRecord, err error) {
	defer c.observe(OpAssetDetail, time.Now(), &err)

	doc, err := c.getFragment(ctx, OpAssetDetail, joinPath(c.routes.Core.Service.Assets, identifier), atom.Div)
	if err != nil {
		return nil, err
	}
	r, err := doc.Record(assetDetailSchema)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", OpAssetDetail, err)
	}
	a := assetFromRecord(r)
	return &a, nil
}
