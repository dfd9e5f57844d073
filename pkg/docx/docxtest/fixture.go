// Package docxtest builds small .docx packages for tests.
package docxtest

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"strings"
)

const contentTypes = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"><Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/><Default Extension="xml" ContentType="application/xml"/><Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/></Types>`

const rootRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"><Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/></Relationships>`

const documentHead = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`

const documentTail = `<w:sectPr/></w:body></w:document>`

// Paragraph renders one paragraph whose text is split into the given runs.
func Paragraph(runs ...string) string {
	var b strings.Builder
	b.WriteString(`<w:p><w:pPr><w:pStyle w:val="Normal"/></w:pPr>`)
	for _, r := range runs {
		b.WriteString(`<w:r><w:rPr><w:b/></w:rPr><w:t xml:space="preserve">`)
		xml.EscapeText(&b, []byte(r))
		b.WriteString(`</w:t></w:r>`)
	}
	b.WriteString(`</w:p>`)
	return b.String()
}

// Table renders a single-row table, one paragraph per cell.
func Table(cells ...string) string {
	var b strings.Builder
	b.WriteString(`<w:tbl><w:tblPr/><w:tr>`)
	for _, c := range cells {
		b.WriteString(`<w:tc><w:tcPr/>`)
		b.WriteString(Paragraph(c))
		b.WriteString(`</w:tc>`)
	}
	b.WriteString(`</w:tr></w:tbl>`)
	return b.String()
}

// Build packages body elements (from Paragraph or Table) into a .docx.
// Extra parts such as "word/header1.xml" can be passed in extra.
func Build(body []string, extra map[string]string) []byte {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	write := func(name, content string) {
		w, err := zw.Create(name)
		if err != nil {
			panic(err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			panic(err)
		}
	}

	write("[Content_Types].xml", contentTypes)
	write("_rels/.rels", rootRels)
	write("word/document.xml", documentHead+strings.Join(body, "")+documentTail)
	for name, content := range extra {
		write(name, content)
	}

	if err := zw.Close(); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// Header renders a header part holding the given paragraphs.
func Header(paragraphs ...string) string {
	return `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:hdr xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">` + strings.Join(paragraphs, "") + `</w:hdr>`
}

// Texts is a convenience for Build with one single-run paragraph per text.
func Texts(texts ...string) []byte {
	body := make([]string, len(texts))
	for i, t := range texts {
		body[i] = Paragraph(t)
	}
	return Build(body, nil)
}
