package stubbackend

import "html/template"

// Fragment templates. Class names and rel values are the markers the
// connector extracts records by.
const fragmentTemplates = `
{{define "asset-proxies"}}{{range .}}{{template "asset-proxy" .}}{{end}}{{end}}

{{define "asset-proxy"}}<tr class="asset-proxy">
  <td class="asset-source-identifier">{{.Source}}</td>
  <td class="asset-source-label">{{.SourceLabel}}</td>
  <td class="asset-proxy-identifier">{{.Identifier}}</td>
  {{- if .LocalAsset}}
  <td class="local-asset-identifier">{{.LocalAsset}}</td>
  {{- end}}
  <td class="asset-proxy-label">{{.Label}}</td>
  <td><a rel="thumbnail" href="{{.Thumbnail}}"><img src="{{.Thumbnail}}" alt=""></a></td>
</tr>
{{end}}

{{define "assets"}}<div class="assets">
{{- range .}}
  <div class="asset">
    <span class="asset-identifier">{{.Identifier}}</span>
    <span class="asset-label">{{.Label}}</span>
    <a rel="thumbnail" href="{{.Thumbnail}}"></a>
  </div>
{{- end}}
</div>
{{end}}

{{define "asset"}}<div class="asset">
  <span class="asset-identifier">{{.Identifier}}</span>
  <span class="asset-label">{{.Label}}</span>
  <a rel="preview" href="{{.Preview}}"></a>
</div>
{{end}}

{{define "nodes"}}<ul class="nodes">
{{- range .}}
  <li class="node">
    <span class="node-frontend-uri">{{.FrontendURI}}</span>
    <span class="node-identifier">{{.Identifier}}</span>
    <span class="node-label">{{.Label}}</span>
    <span class="node-type">{{.NodeType}}</span>
  </li>
{{- end}}
</ul>
{{end}}

{{define "node"}}<div class="node">
  <a class="node-frontend-uri" href="{{.FrontendURI}}">{{.Label}}</a>
  <span class="node-path">{{.Path}}</span>
  <span class="node-identifier">{{.Identifier}}</span>
</div>
{{end}}
`

func parseTemplates() (*template.Template, error) {
	return template.New("fragments").Parse(fragmentTemplates)
}
