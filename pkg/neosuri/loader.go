// Package neosuri builds and parses the identifiers the editing interface
// passes around: loader URIs for assets, asset proxies and nodes, node
// context paths, and frontend URIs.
//
// Loader URI formats:
//
//	asset://{identifier}
//	assetProxy://{assetSourceIdentifier}/{assetProxyIdentifier}
//	node://{identifier}
//
// Loader URIs are opaque handles for the UI. Each one can be rebuilt exactly
// from its identifier and, for proxies, its asset source.
package neosuri

import (
	"fmt"
	"strings"
)

// Loader URI schemes. Schemes are case sensitive.
const (
	SchemeAsset      = "asset"
	SchemeAssetProxy = "assetProxy"
	SchemeNode       = "node"
)

// LoaderURI is a parsed loader URI.
type LoaderURI struct {
	Scheme     string
	Source     string // asset source identifier; only set for assetProxy://
	Identifier string
}

// Asset returns the loader URI of a local asset.
func Asset(identifier string) LoaderURI {
	return LoaderURI{Scheme: SchemeAsset, Identifier: identifier}
}

// AssetProxy returns the loader URI of an asset proxy within its asset source.
func AssetProxy(source, identifier string) LoaderURI {
	return LoaderURI{Scheme: SchemeAssetProxy, Source: source, Identifier: identifier}
}

// Node returns the loader URI of a node.
func Node(identifier string) LoaderURI {
	return LoaderURI{Scheme: SchemeNode, Identifier: identifier}
}

// String returns the canonical loader URI.
func (u LoaderURI) String() string {
	if u.Scheme == SchemeAssetProxy {
		return u.Scheme + "://" + u.Source + "/" + u.Identifier
	}
	return u.Scheme + "://" + u.Identifier
}

// ParseLoaderURI parses a loader URI string.
func ParseLoaderURI(raw string) (LoaderURI, error) {
	scheme, rest, ok := strings.Cut(raw, "://")
	if !ok {
		return LoaderURI{}, fmt.Errorf("invalid loader URI %q: missing scheme", raw)
	}
	if rest == "" {
		return LoaderURI{}, fmt.Errorf("invalid loader URI %q: missing identifier", raw)
	}

	switch scheme {
	case SchemeAsset, SchemeNode:
		return LoaderURI{Scheme: scheme, Identifier: rest}, nil
	case SchemeAssetProxy:
		source, id, ok := strings.Cut(rest, "/")
		if !ok || source == "" || id == "" {
			return LoaderURI{}, fmt.Errorf("invalid loader URI %q: expected assetProxy://{source}/{identifier}", raw)
		}
		return LoaderURI{Scheme: scheme, Source: source, Identifier: id}, nil
	default:
		return LoaderURI{}, fmt.Errorf("unsupported loader URI scheme %q", scheme)
	}
}

// MustParseLoaderURI parses a loader URI and panics on error. Useful in tests.
func MustParseLoaderURI(raw string) LoaderURI {
	u, err := ParseLoaderURI(raw)
	if err != nil {
		panic(err)
	}
	return u
}
