package stubbackend

import "github.com/jmerrifield20/neosconnect/pkg/connector"

const defaultLanguage = "en_US"

// Fixture identifiers, stable so tests and demos can address them.
const (
	DemoSiteNodeName = "demo"

	NodeHome    = "a3a6b7e4-0000-4000-8000-000000000001"
	NodeAbout   = "a3a6b7e4-0000-4000-8000-000000000002"
	NodeTeam    = "a3a6b7e4-0000-4000-8000-000000000003"
	NodeNews    = "a3a6b7e4-0000-4000-8000-000000000004"
	NodeImprint = "a3a6b7e4-0000-4000-8000-000000000005"
	NodeBerlin  = "a3a6b7e4-0000-4000-8000-000000000006"

	AssetLogo   = "5d6e7f80-0000-4000-8000-00000000000a"
	AssetHeader = "5d6e7f80-0000-4000-8000-00000000000b"

	SourceUnsplash = "unsplash"
	SourceNeos     = "neos"

	PluginNewsList = "9c0d1e2f-0000-4000-8000-0000000000f1"
)

// seed fills the store with a small demo site in English and German.
func seed(s *store) {
	for _, n := range []*Node{
		{Identifier: NodeHome, Path: "/sites/demo", NodeType: "Neos.Demo:Document.Homepage",
			Labels: map[string]string{"en_US": "Home", "de": "Startseite"}},
		{Identifier: NodeAbout, Path: "/sites/demo/about", NodeType: "Neos.Demo:Document.Page",
			Labels: map[string]string{"en_US": "About us", "de": "Über uns"}},
		{Identifier: NodeTeam, Path: "/sites/demo/about/team", NodeType: "Neos.Demo:Document.Page",
			Labels: map[string]string{"en_US": "Our team"}},
		{Identifier: NodeBerlin, Path: "/sites/demo/about/team/berlin", NodeType: "Neos.Demo:Document.Page",
			Labels: map[string]string{"en_US": "Berlin office"}},
		{Identifier: NodeNews, Path: "/sites/demo/news", NodeType: "Neos.Demo:Document.Blog",
			Labels: map[string]string{"en_US": "News"}},
		{Identifier: NodeImprint, Path: "/sites/demo/imprint", NodeType: "Neos.Demo:Document.Page",
			Labels: map[string]string{"de": "Impressum"}},
	} {
		s.addNode(n)
	}

	s.addAsset(&Asset{Identifier: AssetLogo, Label: "Company logo", MediaType: "image/png", Width: 400, Height: 200})
	s.addAsset(&Asset{Identifier: AssetHeader, Label: "Header image", MediaType: "image/jpeg", Width: 1920, Height: 1080})

	s.addSource(AssetSource{Identifier: SourceNeos, Label: "Neos"})
	s.addSource(AssetSource{Identifier: SourceUnsplash, Label: "Unsplash"},
		&AssetProxy{Identifier: "mountain-lake", Label: "Mountain lake at dawn"},
		&AssetProxy{Identifier: "city-night", Label: "City at night"},
		&AssetProxy{Identifier: "mountain-hut", Label: "Mountain hut"},
	)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.plugins = []Plugin{{
		Identifier: PluginNewsList,
		Label:      "News list (News)",
		Views: map[string]connector.PluginView{
			"latest": {
				Label:    "Latest articles",
				PageNode: &connector.PageNode{Title: "Home", URI: frontendURI("/sites/demo", LiveWorkspace, defaultLanguage)},
			},
			"archive": {Label: "Archive"},
		},
	}}
	s.dimensions[LanguageDimension] = map[string]any{
		"en_US": map[string]any{"label": "English (US)", "values": []string{"en_US"}, "uriSegment": "en"},
		"de":    map[string]any{"label": "Deutsch", "values": []string{"de"}, "uriSegment": "de"},
	}
}
