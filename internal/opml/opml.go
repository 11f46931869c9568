// Package opml loads news feed source lists from OPML files.
package opml

import (
	"encoding/xml"
	"fmt"
	"io"
)

// OPML represents the root of an OPML document.
type OPML struct {
	XMLName xml.Name `xml:"opml"`
	Version string   `xml:"version,attr"`
	Body    Body     `xml:"body"`
}

// Body contains the outlines.
type Body struct {
	Outlines []Outline `xml:"outline"`
}

// Outline represents a single outline element (folder or feed).
type Outline struct {
	Text     string    `xml:"text,attr"`
	Title    string    `xml:"title,attr,omitempty"`
	Type     string    `xml:"type,attr,omitempty"`
	XMLURL   string    `xml:"xmlUrl,attr,omitempty"`
	Outlines []Outline `xml:"outline,omitempty"`
}

// Source is a flattened feed entry.
type Source struct {
	Name string
	URL  string
}

// ParseSources reads an OPML document and returns a flat list of feed
// sources, descending into folders. Outlines without an xmlUrl are
// treated as folders and skipped.
func ParseSources(r io.Reader) ([]Source, error) {
	var doc OPML
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode opml: %w", err)
	}
	var sources []Source
	var walk func(outlines []Outline)
	walk = func(outlines []Outline) {
		for _, o := range outlines {
			if o.XMLURL != "" {
				name := o.Title
				if name == "" {
					name = o.Text
				}
				sources = append(sources, Source{Name: name, URL: o.XMLURL})
			} else if len(o.Outlines) > 0 {
				walk(o.Outlines)
			}
		}
	}
	walk(doc.Body.Outlines)
	return sources, nil
}
