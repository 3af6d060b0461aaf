package connector_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/jmerrifield20/neosconnect/pkg/connector"
	"github.com/jmerrifield20/neosconnect/pkg/fragment"
)

func proxyRow(source, id, local string) string {
	localCell := ""
	if local != "" {
		localCell = `<td class="local-asset-identifier">` + local + `</td>`
	}
	return fmt.Sprintf(`<tr class="asset-proxy">
  <td class="asset-source-identifier">%[1]s</td>
  <td class="asset-source-label">Unsplash</td>
  <td class="asset-proxy-identifier">%[2]s</td>
  %[3]s
  <td class="asset-proxy-label">Photo %[2]s</td>
  <td><a rel="thumbnail" href="https://images.example.com/%[2]s.jpg">thumb</a></td>
</tr>`, source, id, localCell)
}

func nodeItem(id, label, uri string) string {
	return fmt.Sprintf(`<li class="node">
  <span class="node-frontend-uri">%s</span>
  <span class="node-identifier">%s</span>
  <span class="node-label">%s</span>
  <span class="node-type">Neos.NodeTypes:Page</span>
</li>`, uri, id, label)
}

// ── Asset proxies ───────────────────────────────────────────────────────

func TestAssetProxySearch_recordsInOrder(t *testing.T) {
	s := newStub(t)
	s.handle("/neos/service/asset-proxies", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("searchTerm") != "mountain" || q.Get("assetSourceIdentifier") != "unsplash" {
			t.Errorf("query: %s", r.URL.RawQuery)
		}
		writeHTML(w, http.StatusOK, proxyRow("unsplash", "b2", "")+proxyRow("unsplash", "a1", "local-uuid")+proxyRow("unsplash", "c3", ""))
	})

	proxies, err := newClient(t, s.URL).AssetProxySearch(context.Background(), "mountain", "unsplash")
	if err != nil {
		t.Fatalf("AssetProxySearch: %v", err)
	}
	if len(proxies) != 3 {
		t.Fatalf("expected 3 proxies, got %d", len(proxies))
	}

	local := "local-uuid"
	want := connector.AssetProxyRecord{
		AssetRecord: connector.AssetRecord{
			DataType:   connector.DataTypeAsset,
			LoaderURI:  "assetProxy://unsplash/a1",
			Label:      "Photo a1",
			Preview:    "https://images.example.com/a1.jpg",
			Identifier: "local-uuid",
		},
		AssetSourceIdentifier: "unsplash",
		AssetSourceLabel:      "Unsplash",
		AssetProxyIdentifier:  "a1",
		LocalAssetIdentifier:  &local,
	}
	if diff := cmp.Diff(want, proxies[1]); diff != "" {
		t.Errorf("imported proxy mismatch (-want +got):\n%s", diff)
	}

	var loaderURIs, ids []string
	for _, p := range proxies {
		loaderURIs = append(loaderURIs, p.LoaderURI)
		ids = append(ids, p.Identifier)
	}
	if diff := cmp.Diff([]string{"assetProxy://unsplash/b2", "assetProxy://unsplash/a1", "assetProxy://unsplash/c3"}, loaderURIs); diff != "" {
		t.Errorf("loader URIs (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"unsplash/b2", "local-uuid", "unsplash/c3"}, ids); diff != "" {
		t.Errorf("identifiers (-want +got):\n%s", diff)
	}
	if proxies[0].LocalAssetIdentifier != nil {
		t.Error("proxy without local asset must report it as absent")
	}
}

func TestAssetProxySearch_exclusion(t *testing.T) {
	s := newStub(t)
	s.handle("/neos/service/asset-proxies", func(w http.ResponseWriter, r *http.Request) {
		writeHTML(w, http.StatusOK, proxyRow("unsplash", "1", "")+proxyRow("unsplash", "2", "uuid-2")+proxyRow("unsplash", "3", ""))
	})

	proxies, err := newClient(t, s.URL).AssetProxySearch(context.Background(), "", "", "uuid-2", "unsplash/3")
	if err != nil {
		t.Fatalf("AssetProxySearch: %v", err)
	}
	if len(proxies) != 1 || proxies[0].AssetProxyIdentifier != "1" {
		t.Errorf("expected only proxy 1, got %+v", proxies)
	}
}

func TestAssetProxySearch_missingMarkerFails(t *testing.T) {
	broken := strings.Replace(proxyRow("unsplash", "2", ""), `<td class="asset-source-label">Unsplash</td>`, "", 1)
	s := newStub(t)
	s.handle("/neos/service/asset-proxies", func(w http.ResponseWriter, r *http.Request) {
		writeHTML(w, http.StatusOK, proxyRow("unsplash", "1", "")+broken)
	})

	proxies, err := newClient(t, s.URL).AssetProxySearch(context.Background(), "", "")
	var missing *connector.FieldMissingError
	if !errors.As(err, &missing) {
		t.Fatalf("expected *FieldMissingError, got %v", err)
	}
	if missing.Marker != ".asset-source-label" || missing.Index != 1 {
		t.Errorf("got marker %q index %d", missing.Marker, missing.Index)
	}
	if proxies != nil {
		t.Errorf("no partial result expected, got %d records", len(proxies))
	}
}

func TestAssetProxyDetail(t *testing.T) {
	s := newStub(t)
	s.handle("/neos/service/asset-proxies/unsplash/a1", func(w http.ResponseWriter, r *http.Request) {
		writeHTML(w, http.StatusOK, proxyRow("unsplash", "a1", ""))
	})

	p, err := newClient(t, s.URL).AssetProxyDetail(context.Background(), "unsplash", "a1")
	if err != nil {
		t.Fatalf("AssetProxyDetail: %v", err)
	}
	if p.LoaderURI != "assetProxy://unsplash/a1" || p.Identifier != "unsplash/a1" {
		t.Errorf("proxy: %+v", p)
	}
}

func TestAssetProxyImport(t *testing.T) {
	s := newStub(t)
	s.handle("/neos/service/asset-proxies/unsplash/a1", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.Header.Get(connector.CSRFHeader) != "tok" {
			t.Errorf("import: method %s token %q", r.Method, r.Header.Get(connector.CSRFHeader))
		}
		writeHTML(w, http.StatusOK, proxyRow("unsplash", "a1", "new-local-id"))
	})
	s.handle("/neos/service/asset-proxies/unsplash/b2", func(w http.ResponseWriter, r *http.Request) {
		writeHTML(w, http.StatusOK, proxyRow("unsplash", "b2", ""))
	})

	c := newClient(t, s.URL, connector.WithToken("tok"))
	id, err := c.AssetProxyImport(context.Background(), "unsplash", "a1")
	if err != nil || id != "new-local-id" {
		t.Fatalf("AssetProxyImport: got %q, %v", id, err)
	}

	_, err = c.AssetProxyImport(context.Background(), "unsplash", "b2")
	var missing *connector.FieldMissingError
	if !errors.As(err, &missing) || missing.Marker != ".local-asset-identifier" {
		t.Errorf("expected missing .local-asset-identifier, got %v", err)
	}
}

// ── Assets ──────────────────────────────────────────────────────────────

func TestAssetSearch(t *testing.T) {
	s := newStub(t)
	s.handle("/neos/service/assets", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("searchTerm") == "none" {
			writeHTML(w, http.StatusOK, `<p>No assets</p>`)
			return
		}
		writeHTML(w, http.StatusOK, `<div class="assets">
  <div class="asset"><span class="asset-identifier">id-1</span><span class="asset-label">One</span><a rel="thumbnail" href="/t/1.jpg"></a></div>
  <div class="asset"><span class="asset-identifier">id-2</span><span class="asset-label">Two</span><a rel="thumbnail" href="/t/2.jpg"></a></div>
</div>`)
	})

	c := newClient(t, s.URL)
	assets, err := c.AssetSearch(context.Background(), "logo")
	if err != nil {
		t.Fatalf("AssetSearch: %v", err)
	}
	want := []connector.AssetRecord{
		{DataType: connector.DataTypeAsset, LoaderURI: "asset://id-1", Label: "One", Preview: "/t/1.jpg", Identifier: "id-1"},
		{DataType: connector.DataTypeAsset, LoaderURI: "asset://id-2", Label: "Two", Preview: "/t/2.jpg", Identifier: "id-2"},
	}
	if diff := cmp.Diff(want, assets); diff != "" {
		t.Errorf("assets mismatch (-want +got):\n%s", diff)
	}

	_, err = c.AssetSearch(context.Background(), "none")
	var missing *connector.FieldMissingError
	if !errors.As(err, &missing) || missing.Marker != ".assets" || missing.Index != fragment.DocumentIndex {
		t.Errorf("expected missing .assets root, got %v", err)
	}
}

func TestAssetDetail_usesPreviewLink(t *testing.T) {
	s := newStub(t)
	s.handle("/neos/service/assets/id-1", func(w http.ResponseWriter, r *http.Request) {
		writeHTML(w, http.StatusOK, `<div class="asset"><span class="asset-identifier">id-1</span>`+
			`<span class="asset-label">One</span><a rel="preview" href="/p/1.jpg"></a></div>`)
	})
	s.handle("/neos/service/assets/id-2", func(w http.ResponseWriter, r *http.Request) {
		writeHTML(w, http.StatusOK, `<div class="asset"><span class="asset-identifier">id-2</span>`+
			`<span class="asset-label">Two</span><a rel="thumbnail" href="/t/2.jpg"></a></div>`)
	})

	c := newClient(t, s.URL)
	a, err := c.AssetDetail(context.Background(), "id-1")
	if err != nil {
		t.Fatalf("AssetDetail: %v", err)
	}
	if a.Preview != "/p/1.jpg" || a.LoaderURI != "asset://id-1" {
		t.Errorf("asset: %+v", a)
	}

	_, err = c.AssetDetail(context.Background(), "id-2")
	var missing *connector.FieldMissingError
	if !errors.As(err, &missing) || missing.Marker != "[rel=preview][href]" {
		t.Errorf("expected missing preview link, got %v", err)
	}
}

func TestFragmentOperation_unexpectedStatus(t *testing.T) {
	s := newStub(t)
	s.handle("/neos/service/assets", func(w http.ResponseWriter, r *http.Request) {
		writeHTML(w, http.StatusForbidden, `<div class="assets"></div>`)
	})

	_, err := newClient(t, s.URL).AssetSearch(context.Background(), "")
	var serr *connector.UnexpectedStatusError
	if !errors.As(err, &serr) || serr.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403 UnexpectedStatusError, got %v", err)
	}
}

// ── Nodes ───────────────────────────────────────────────────────────────

func TestSearchNodes(t *testing.T) {
	s := newStub(t)
	s.handle("/neos/service/nodes", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("searchTerm") != "ab" || q.Get("nodeTypes[]") != "Neos.Neos:Document" ||
			q.Get("dimensions[language][]") != "en_US" || q.Get("workspaceName") != "user-admin" {
			t.Errorf("query: %s", r.URL.RawQuery)
		}
		writeHTML(w, http.StatusOK, `<ul class="nodes">`+
			nodeItem("n-2", "About", "/sites/demo/about@user-admin;language=en_US.html")+
			nodeItem("n-1", "Home", "/sites/demo@user-admin;language=en_US.html")+
			`</ul>`)
	})

	nodes, err := newClient(t, s.URL).SearchNodes(context.Background(), connector.NodeSearchQuery{
		SearchTerm:    "ab",
		NodeTypes:     []string{"Neos.Neos:Document"},
		WorkspaceName: "user-admin",
		Dimensions:    connector.Dimensions{"language": {"en_US"}},
		ContextNode:   "/sites/demo@user-admin;language=en_US",
	})
	if err != nil {
		t.Fatalf("SearchNodes: %v", err)
	}
	want := []connector.NodeSearchResult{
		{
			DataType:           connector.DataTypeNode,
			LoaderURI:          "node://n-2",
			Label:              "About",
			Identifier:         "n-2",
			NodeType:           "Neos.NodeTypes:Page",
			URI:                "/sites/demo/about@user-admin;language=en_US.html",
			URIInLiveWorkspace: "/sites/demo/about.html",
		},
		{
			DataType:           connector.DataTypeNode,
			LoaderURI:          "node://n-1",
			Label:              "Home",
			Identifier:         "n-1",
			NodeType:           "Neos.NodeTypes:Page",
			URI:                "/sites/demo@user-admin;language=en_US.html",
			URIInLiveWorkspace: "/sites/demo.html",
		},
	}
	if diff := cmp.Diff(want, nodes); diff != "" {
		t.Errorf("nodes mismatch (-want +got):\n%s", diff)
	}
}

func TestSearchNodes_missingMarkerNamesRecord(t *testing.T) {
	s := newStub(t)
	s.handle("/neos/service/nodes", func(w http.ResponseWriter, r *http.Request) {
		broken := strings.Replace(nodeItem("n-3", "Broken", "/x@live.html"), `<span class="node-type">Neos.NodeTypes:Page</span>`, "", 1)
		writeHTML(w, http.StatusOK, `<ul class="nodes">`+nodeItem("n-1", "A", "/a@live.html")+nodeItem("n-2", "B", "/b@live.html")+broken+`</ul>`)
	})

	_, err := newClient(t, s.URL).SearchNodes(context.Background(), connector.NodeSearchQuery{SearchTerm: "x"})
	var missing *connector.FieldMissingError
	if !errors.As(err, &missing) || missing.Marker != ".node-type" || missing.Index != 2 {
		t.Errorf("expected .node-type missing on record 2, got %v", err)
	}
}

func singleNodeStub(t *testing.T, status int, headers map[string]string, body string) *stubBackend {
	t.Helper()
	s := newStub(t)
	s.handle("/neos/service/nodes/n-1", func(w http.ResponseWriter, r *http.Request) {
		for k, v := range headers {
			w.Header().Set(k, v)
		}
		writeHTML(w, status, body)
	})
	return s
}

func TestGetSingleNode_found(t *testing.T) {
	s := singleNodeStub(t, http.StatusOK, nil,
		`<div class="node"><a class="node-frontend-uri" href="/sites/demo@user-admin;language=en_US.html">Demo</a>`+
			`<span class="node-path">/sites/demo/about</span></div>`)

	lookup, err := newClient(t, s.URL).GetSingleNode(context.Background(), "n-1", map[string]any{
		"workspaceName": "user-admin",
		"dimensions":    map[string][]string{"language": {"en_US"}},
	})
	if err != nil {
		t.Fatalf("GetSingleNode: %v", err)
	}
	found, ok := lookup.(connector.NodeFound)
	if !ok {
		t.Fatalf("expected NodeFound, got %T", lookup)
	}
	want := connector.NodeFound{
		FrontendURI: "/sites/demo@user-admin;language=en_US.html",
		ContextPath: "/sites/demo/about@user-admin",
	}
	if found != want {
		t.Errorf("got %+v, want %+v", found, want)
	}
}

func TestGetSingleNode_foundWithoutPathIsFieldMissing(t *testing.T) {
	s := singleNodeStub(t, http.StatusOK, nil, `<a class="node-frontend-uri" href="/sites/demo@live.html">Demo</a>`)

	lookup, err := newClient(t, s.URL).GetSingleNode(context.Background(), "n-1", nil)
	var missing *connector.FieldMissingError
	if !errors.As(err, &missing) || missing.Marker != ".node-path" {
		t.Fatalf("expected missing .node-path, got %v (%v)", err, lookup)
	}
}

func TestGetSingleNode_notFound(t *testing.T) {
	cases := []struct {
		name    string
		headers map[string]string
		want    connector.NodeNotFound
	}{
		{
			name: "exists elsewhere",
			headers: map[string]string{
				connector.HeaderExistsInOtherDimensions: "true",
				connector.HeaderNodesMissingOnRootline:  "3",
			},
			want: connector.NodeNotFound{ExistsInOtherDimensions: true, NumberOfMissingAncestors: 2},
		},
		{
			name: "nowhere",
			headers: map[string]string{
				connector.HeaderExistsInOtherDimensions: "false",
				connector.HeaderNodesMissingOnRootline:  "1",
			},
			want: connector.NodeNotFound{ExistsInOtherDimensions: false, NumberOfMissingAncestors: 0},
		},
		{
			name:    "flag header absent",
			headers: map[string]string{connector.HeaderNodesMissingOnRootline: "2"},
			want:    connector.NodeNotFound{NumberOfMissingAncestors: 1},
		},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			s := singleNodeStub(t, http.StatusNotFound, tc.headers, "")
			lookup, err := newClient(t, s.URL).GetSingleNode(context.Background(), "n-1", nil)
			if err != nil {
				t.Fatalf("GetSingleNode: %v", err)
			}
			if got, ok := lookup.(connector.NodeNotFound); !ok || got != tc.want {
				t.Errorf("got %#v, want %#v", lookup, tc.want)
			}
		})
	}
}

func TestGetSingleNode_notFoundWithoutRootlineHeader(t *testing.T) {
	s := singleNodeStub(t, http.StatusNotFound, map[string]string{connector.HeaderExistsInOtherDimensions: "true"}, "")
	_, err := newClient(t, s.URL).GetSingleNode(context.Background(), "n-1", nil)
	var missing *connector.FieldMissingError
	if !errors.As(err, &missing) || missing.Marker != connector.HeaderNodesMissingOnRootline {
		t.Errorf("expected missing rootline header, got %v", err)
	}

	s = singleNodeStub(t, http.StatusNotFound, map[string]string{connector.HeaderNodesMissingOnRootline: "many"}, "")
	_, err = newClient(t, s.URL).GetSingleNode(context.Background(), "n-1", nil)
	var derr *connector.DecodeError
	if !errors.As(err, &derr) {
		t.Errorf("expected DecodeError for non-numeric header, got %v", err)
	}
}

func TestGetSingleNode_otherStatusIsUnexpected(t *testing.T) {
	for _, status := range []int{http.StatusInternalServerError, http.StatusForbidden, http.StatusNoContent} {
		s := singleNodeStub(t, status, map[string]string{connector.HeaderNodesMissingOnRootline: "1"}, "")
		lookup, err := newClient(t, s.URL).GetSingleNode(context.Background(), "n-1", nil)
		var serr *connector.UnexpectedStatusError
		if !errors.As(err, &serr) || serr.StatusCode != status {
			t.Errorf("status %d: expected UnexpectedStatusError, got %v / %v", status, lookup, err)
		}
	}
}

func TestAdoptNodeToOtherDimension(t *testing.T) {
	s := newStub(t)
	s.handle("/neos/service/nodes", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method: %s", r.Method)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatal(err)
		}
		f := r.PostForm
		if f.Get("__csrfToken") != "tok" || f.Get("identifier") != "n-1" ||
			f.Get("mode") != "adoptFromAnotherDimensionAndCopyContent" ||
			f.Get("dimensions[language][]") != "de" || f.Get("sourceDimensions[language][]") != "en_US" ||
			f.Get("workspaceName") != "user-admin" {
			t.Errorf("form: %v", f)
		}
		writeHTML(w, http.StatusOK, `<a class="node-frontend-uri" href="/sites/demo/ueber@user-admin;language=de.html"></a>`+
			`<span class="node-path">/sites/demo/about</span>`)
	})

	lookup, err := newClient(t, s.URL, connector.WithToken("tok")).AdoptNodeToOtherDimension(context.Background(), connector.AdoptRequest{
		Identifier:       "n-1",
		TargetDimensions: connector.Dimensions{"language": {"de"}},
		SourceDimensions: connector.Dimensions{"language": {"en_US"}},
		WorkspaceName:    "user-admin",
		CopyContent:      true,
	})
	if err != nil {
		t.Fatalf("AdoptNodeToOtherDimension: %v", err)
	}
	if found, ok := lookup.(connector.NodeFound); !ok || found.ContextPath != "/sites/demo/about@user-admin" {
		t.Errorf("got %#v", lookup)
	}
}
