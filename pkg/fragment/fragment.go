// Package fragment extracts typed records from server-rendered HTML fragments.
//
// Several backend endpoints answer with a markup snippet instead of JSON.
// Each record is an element carrying a record marker (for example the class
// "asset-proxy"), and each field of the record lives in a descendant element
// carrying its own marker:
//
//	<tr class="asset-proxy">
//	  <td class="asset-proxy-identifier">abc</td>
//	  <td><a rel="thumbnail" href="/thumb/abc.jpg"></a></td>
//	</tr>
//
// A Schema names the record marker and the fields to pull out. Extraction is
// strict: a required field whose marker is absent fails the whole decode with
// a *FieldMissingError, so markup drift on the backend never reaches callers
// as empty values.
package fragment

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// DocumentIndex is the Index reported by a FieldMissingError for markers
// looked up at document scope rather than inside a record.
const DocumentIndex = -1

// FieldMissingError reports a structural marker that a fragment was required
// to contain but did not.
type FieldMissingError struct {
	Marker string
	Index  int
}

func (e *FieldMissingError) Error() string {
	if e.Index == DocumentIndex {
		return fmt.Sprintf("fragment: required marker %s not found in document", e.Marker)
	}
	return fmt.Sprintf("fragment: required marker %s not found in record %d", e.Marker, e.Index)
}

// Marker identifies elements either by a class token or by an exact
// attribute value.
type Marker struct {
	class string
	attr  string
	value string
}

// Class matches elements whose class attribute contains name as a token.
func Class(name string) Marker {
	return Marker{class: name}
}

// Attr matches elements whose attribute key equals value, e.g. rel=thumbnail.
func Attr(key, value string) Marker {
	return Marker{attr: key, value: value}
}

// IsZero reports whether m matches nothing (the zero Marker).
func (m Marker) IsZero() bool {
	return m.class == "" && m.attr == ""
}

// String renders the marker in selector notation: ".class" or "[key=value]".
func (m Marker) String() string {
	if m.class != "" {
		return "." + m.class
	}
	return "[" + m.attr + "=" + m.value + "]"
}

func (m Marker) matches(n *html.Node) bool {
	if n.Type != html.ElementNode || m.IsZero() {
		return false
	}
	if m.class != "" {
		v, ok := attribute(n, "class")
		if !ok {
			return false
		}
		for _, token := range strings.Fields(v) {
			if token == m.class {
				return true
			}
		}
		return false
	}
	v, ok := attribute(n, m.attr)
	return ok && v == m.value
}

// Field describes one value of a record.
type Field struct {
	// Name is the key the value is stored under in the Record.
	Name string
	// Marker locates the element carrying the value.
	Marker Marker
	// Attr, when set, takes the value from this attribute of the element
	// instead of its text content. A missing attribute counts as a missing
	// field.
	Attr string
	// Optional fields may be absent; the Record then reports them as not
	// present instead of failing.
	Optional bool
}

func (f Field) marker() string {
	if f.Attr == "" {
		return f.Marker.String()
	}
	return f.Marker.String() + "[" + f.Attr + "]"
}

// Schema describes how to turn a fragment into records.
type Schema struct {
	// Scope restricts record lookup to descendants of elements carrying this
	// marker. The zero Marker means the whole document.
	Scope Marker
	// ScopeRequired fails extraction when no Scope element exists. Without
	// it a missing scope yields zero records.
	ScopeRequired bool
	// Record marks the root element of one record.
	Record Marker
	// Fields are extracted from descendants of each record element.
	Fields []Field
}

// Record holds the extracted values of one record element.
type Record struct {
	values map[string]string
}

// Get returns the value stored under name and whether it was present.
func (r Record) Get(name string) (string, bool) {
	v, ok := r.values[name]
	return v, ok
}

// Value returns the value stored under name, or "" when it was absent.
// Use Get for optional fields.
func (r Record) Value(name string) string {
	return r.values[name]
}

// Document is a parsed fragment.
type Document struct {
	roots []*html.Node
}

// Parse parses fragment as the content of a context element, the way
// assigning innerHTML to that element would. Table rows need atom.Table as
// context; atom.Div suits everything else. No scripts run and nothing is
// fetched.
func Parse(fragment string, context atom.Atom) (*Document, error) {
	ctx := &html.Node{Type: html.ElementNode, Data: context.String(), DataAtom: context}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), ctx)
	if err != nil {
		return nil, fmt.Errorf("parse fragment: %w", err)
	}
	return &Document{roots: nodes}, nil
}

// Records returns every record described by s, in document order.
func (d *Document) Records(s Schema) ([]Record, error) {
	elements, err := d.recordElements(s)
	if err != nil {
		return nil, err
	}
	records := make([]Record, 0, len(elements))
	for i, el := range elements {
		rec, err := extract(el, s.Fields, i)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// Record returns the first record described by s. A fragment without any
// record element fails with a *FieldMissingError for the record marker.
func (d *Document) Record(s Schema) (Record, error) {
	elements, err := d.recordElements(s)
	if err != nil {
		return Record{}, err
	}
	if len(elements) == 0 {
		return Record{}, &FieldMissingError{Marker: s.Record.String(), Index: DocumentIndex}
	}
	return extract(elements[0], s.Fields, 0)
}

// Text returns the text content of the first element matching m.
func (d *Document) Text(m Marker) (string, error) {
	n := d.first(m)
	if n == nil {
		return "", &FieldMissingError{Marker: m.String(), Index: DocumentIndex}
	}
	return textContent(n), nil
}

// Attribute returns attribute key of the first element matching m.
func (d *Document) Attribute(m Marker, key string) (string, error) {
	n := d.first(m)
	if n == nil {
		return "", &FieldMissingError{Marker: m.String(), Index: DocumentIndex}
	}
	v, ok := attribute(n, key)
	if !ok {
		return "", &FieldMissingError{Marker: m.String() + "[" + key + "]", Index: DocumentIndex}
	}
	return v, nil
}

func (d *Document) first(m Marker) *html.Node {
	for _, root := range d.roots {
		if n := findFirst(root, m, true); n != nil {
			return n
		}
	}
	return nil
}

func (d *Document) recordElements(s Schema) ([]*html.Node, error) {
	if s.Scope.IsZero() {
		var out []*html.Node
		for _, root := range d.roots {
			out = appendMatches(out, root, s.Record, true)
		}
		return out, nil
	}

	var scopes []*html.Node
	for _, root := range d.roots {
		scopes = appendMatches(scopes, root, s.Scope, true)
	}
	if len(scopes) == 0 && s.ScopeRequired {
		return nil, &FieldMissingError{Marker: s.Scope.String(), Index: DocumentIndex}
	}

	// Nested scopes would otherwise yield the same record twice.
	seen := make(map[*html.Node]bool)
	var out []*html.Node
	for _, scope := range scopes {
		for _, n := range appendMatches(nil, scope, s.Record, false) {
			if !seen[n] {
				seen[n] = true
				out = append(out, n)
			}
		}
	}
	return out, nil
}

func extract(el *html.Node, fields []Field, index int) (Record, error) {
	rec := Record{values: make(map[string]string, len(fields))}
	for _, f := range fields {
		n := findFirst(el, f.Marker, false)
		if n == nil {
			if f.Optional {
				continue
			}
			return Record{}, &FieldMissingError{Marker: f.marker(), Index: index}
		}
		if f.Attr == "" {
			rec.values[f.Name] = textContent(n)
			continue
		}
		v, ok := attribute(n, f.Attr)
		if !ok {
			if f.Optional {
				continue
			}
			return Record{}, &FieldMissingError{Marker: f.marker(), Index: index}
		}
		rec.values[f.Name] = v
	}
	return rec, nil
}

// findFirst does a pre-order walk, which is document order.
func findFirst(n *html.Node, m Marker, includeSelf bool) *html.Node {
	if includeSelf && m.matches(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, m, true); found != nil {
			return found
		}
	}
	return nil
}

func appendMatches(out []*html.Node, n *html.Node, m Marker, includeSelf bool) []*html.Node {
	if includeSelf && m.matches(n) {
		out = append(out, n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out = appendMatches(out, c, m, true)
	}
	return out
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.TrimSpace(sb.String())
}

func attribute(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}
