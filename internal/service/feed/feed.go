package feed

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/antchfx/xmlquery"

	"github.com/ifuryst/postmigrate/internal/service"
)

const (
	// TextKey holds the character data of an element that also has
	// attributes or child elements.
	TextKey = "_"
	// AttrKey holds an element's attributes.
	AttrKey = "$"
)

// Entry is one legacy post with loosely typed fields. A value is a string, a
// map[string]any (wrapped text and/or attributes and children) or a []any when
// the element repeats.
type Entry map[string]any

// ReadFile decodes the feed at path. XML (WXR export) is the default, files
// ending in .json are read as an array of entry objects.
func ReadFile(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, service.PreconditionError{Resource: "legacy feed", Path: path}
		}
		return nil, fmt.Errorf("failed to open feed: %w", err)
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".json") {
		return DecodeJSON(f)
	}
	return DecodeXML(f)
}

// DecodeXML turns every channel item of an RSS/WXR document into an Entry.
func DecodeXML(r io.Reader) ([]Entry, error) {
	doc, err := xmlquery.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed XML: %w", err)
	}

	items := xmlquery.Find(doc, "//channel/item")
	entries := make([]Entry, 0, len(items))
	for _, item := range items {
		entry := Entry{}
		for c := item.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != xmlquery.ElementNode {
				continue
			}
			addField(entry, qualifiedName(c), nodeValue(c))
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

// DecodeJSON reads a JSON array of entry objects. An element that is not an
// object keeps its position as a nil Entry so the normalizer can drop it.
func DecodeJSON(r io.Reader) ([]Entry, error) {
	var raw []any
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode feed JSON: %w", err)
	}

	entries := make([]Entry, len(raw))
	for i, v := range raw {
		if m, ok := v.(map[string]any); ok {
			entries[i] = Entry(m)
		}
	}
	return entries, nil
}

func nodeValue(n *xmlquery.Node) any {
	fields := map[string]any{}
	var text strings.Builder
	hasChildren := false

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case xmlquery.ElementNode:
			hasChildren = true
			addField(fields, qualifiedName(c), nodeValue(c))
		case xmlquery.TextNode, xmlquery.CharDataNode:
			text.WriteString(c.Data)
		}
	}

	if !hasChildren && len(n.Attr) == 0 {
		return text.String()
	}

	if len(n.Attr) > 0 {
		attrs := make(map[string]any, len(n.Attr))
		for _, a := range n.Attr {
			attrs[a.Name.Local] = a.Value
		}
		fields[AttrKey] = attrs
	}
	if s := text.String(); strings.TrimSpace(s) != "" || !hasChildren {
		fields[TextKey] = s
	}

	return fields
}

// addField stores value under key, turning repeated keys into a list.
func addField(m map[string]any, key string, value any) {
	existing, ok := m[key]
	if !ok {
		m[key] = value
		return
	}
	if list, ok := existing.([]any); ok {
		m[key] = append(list, value)
		return
	}
	m[key] = []any{existing, value}
}

func qualifiedName(n *xmlquery.Node) string {
	if n.Prefix != "" {
		return n.Prefix + ":" + n.Data
	}
	return n.Data
}
