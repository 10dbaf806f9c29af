package feed

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"html"
	"time"
)

type Generator struct {
	version string
}

func NewGenerator(version string) *Generator {
	return &Generator{version: version}
}

// Run serializes doc as an Atom 1.0 feed.
func (g *Generator) Run(doc *Document) (string, error) {
	if doc == nil {
		return "", fmt.Errorf("document is nil")
	}

	var buf bytes.Buffer

	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	buf.WriteString("\n")
	buf.WriteString(`<feed xmlns="http://www.w3.org/2005/Atom">`)
	buf.WriteString("\n")

	g.writeRequiredElement(&buf, "title", doc.Title, 2)
	g.writeRequiredElement(&buf, "id", doc.SelfURL, 2)
	g.writeElement(&buf, "updated", doc.Updated.UTC().Format(time.RFC3339), 2)
	g.writeLink(&buf, doc.SelfURL, "self", 2)
	g.writeLink(&buf, doc.AlternateURL, "alternate", 2)

	if doc.Author != "" {
		buf.WriteString("  <author>\n")
		g.writeElement(&buf, "name", doc.Author, 4)
		buf.WriteString("  </author>\n")
	}

	buf.WriteString(fmt.Sprintf("  <generator version=\"%s\">News Digest</generator>\n", html.EscapeString(g.version)))

	for _, entry := range doc.Entries {
		g.writeEntry(&buf, entry)
	}

	buf.WriteString("</feed>")

	return buf.String(), nil
}

func (g *Generator) writeEntry(buf *bytes.Buffer, entry Entry) {
	buf.WriteString("  <entry>\n")

	g.writeRequiredElement(buf, "title", entry.Title, 4)
	g.writeRequiredElement(buf, "id", entry.ID, 4)
	g.writeLink(buf, entry.Link, "alternate", 4)
	g.writeElement(buf, "updated", entry.Updated.UTC().Format(time.RFC3339), 4)
	g.writeElement(buf, "published", entry.Published.UTC().Format(time.RFC3339), 4)

	if entry.Author != "" {
		buf.WriteString("    <author>\n")
		g.writeElement(buf, "name", entry.Author, 6)
		buf.WriteString("    </author>\n")
	}

	if entry.Summary != "" {
		buf.WriteString("    <summary type=\"text\">")
		xml.EscapeText(buf, []byte(entry.Summary))
		buf.WriteString("</summary>\n")
	}

	buf.WriteString("  </entry>\n")
}

func (g *Generator) writeLink(buf *bytes.Buffer, href, rel string, indent int) {
	if href == "" {
		return
	}

	for i := 0; i < indent; i++ {
		buf.WriteByte(' ')
	}
	buf.WriteString(fmt.Sprintf("<link href=\"%s\" rel=\"%s\" />\n", html.EscapeString(href), rel))
}

func (g *Generator) writeElement(buf *bytes.Buffer, tag, content string, indent int) {
	if content == "" {
		return
	}
	g.writeRequiredElement(buf, tag, content, indent)
}

// writeRequiredElement writes tag even when content is empty.
func (g *Generator) writeRequiredElement(buf *bytes.Buffer, tag, content string, indent int) {
	for i := 0; i < indent; i++ {
		buf.WriteByte(' ')
	}

	buf.WriteString("<")
	buf.WriteString(tag)
	buf.WriteString(">")
	xml.EscapeText(buf, []byte(content))
	buf.WriteString("</")
	buf.WriteString(tag)
	buf.WriteString(">\n")
}
