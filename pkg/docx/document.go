// Package docx is a thin text layer over Office Open XML word documents.
//
// It only knows about paragraphs and their text runs: enough to read what a
// reader sees in each paragraph and to write replacement text back. Every
// other part of the package (styles, media, relationships) is carried through
// untouched.
package docx

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"html"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
)

const bodyPart = "word/document.xml"

var (
	ErrNotPackage   = errors.New("docx: not a zip package")
	ErrNotDocx      = errors.New("docx: missing " + bodyPart)
	ErrMalformedXML = errors.New("docx: unterminated text run")
)

// headerFooterPattern selects the other parts whose paragraphs carry
// placeholders.
var headerFooterPattern = regexp.MustCompile(`^word/(header|footer)\d*\.xml$`)

// tagPattern matches opening, closing and self-closing <w:p>, <w:r>, <w:t>
// tags and the in-run separators <w:tab>, <w:br> and <w:cr>.
// Groups: 1 closing slash, 2 tag name, 3 attributes, 4 self-closing slash.
var tagPattern = regexp.MustCompile(`<(/?)w:(p|r|t|tab|br|cr)(\s[^>]*?)?(/?)>`)

// separators maps in-run separator elements to the text they stand for.
var separators = map[string]string{"tab": "\t", "br": "\n", "cr": "\n"}

const closeText = "</w:t>"

type entry struct {
	header zip.FileHeader
	data   []byte
}

// Document is an in-memory copy of a .docx package.
type Document struct {
	entries []*entry
	byName  map[string]*entry
}

// textRun is a <w:t> element, or a tab or break when sep is set.
type textRun struct {
	start, end int
	text       string
	sep        bool
}

type paragraph struct {
	start int
	runs  []textRun
}

func (p paragraph) text() string {
	var buf bytes.Buffer
	for _, r := range p.runs {
		buf.WriteString(r.text)
	}
	return buf.String()
}

func (p paragraph) textRuns() []textRun {
	var out []textRun
	for _, r := range p.runs {
		if !r.sep {
			out = append(out, r)
		}
	}
	return out
}

// segments splits the text runs at tabs and breaks.
func (p paragraph) segments() (segs [][]textRun, seps []string) {
	segs = [][]textRun{nil}
	for _, r := range p.runs {
		if r.sep {
			seps = append(seps, r.text)
			segs = append(segs, nil)
			continue
		}
		segs[len(segs)-1] = append(segs[len(segs)-1], r)
	}
	return segs, seps
}

// rewrite returns the edits that give p the text newText. Tabs and breaks
// stay where they are as long as newText keeps the same sequence of them;
// each changed segment goes into its first run. Otherwise the whole text
// goes into the paragraph's first run.
func (p paragraph) rewrite(newText string) []edit {
	segs, seps := p.segments()
	parts, newSeps := splitSeparators(newText)

	if equalStrings(seps, newSeps) {
		var edits []edit
		ok := true
		for i, seg := range segs {
			if joinRuns(seg) == parts[i] {
				continue
			}
			if len(seg) == 0 {
				ok = false
				break
			}
			edits = append(edits, replaceRuns(seg, parts[i])...)
		}
		if ok {
			return edits
		}
	}

	return replaceRuns(p.textRuns(), newText)
}

func replaceRuns(runs []textRun, text string) []edit {
	edits := []edit{{runs[0].start, runs[0].end, textElement(text)}}
	for _, r := range runs[1:] {
		edits = append(edits, edit{r.start, r.end, "<w:t></w:t>"})
	}
	return edits
}

func joinRuns(runs []textRun) string {
	var buf bytes.Buffer
	for _, r := range runs {
		buf.WriteString(r.text)
	}
	return buf.String()
}

func splitSeparators(text string) (parts, seps []string) {
	start := 0
	for i, c := range text {
		if c == '\t' || c == '\n' {
			parts = append(parts, text[start:i])
			seps = append(seps, string(c))
			start = i + 1
		}
	}
	return append(parts, text[start:]), seps
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Open reads the document at path.
func Open(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Read(bytes.NewReader(data), int64(len(data)))
}

// Read parses a .docx package.
func Read(r io.ReaderAt, size int64) (*Document, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotPackage, err)
	}

	doc := &Document{byName: make(map[string]*entry, len(zr.File))}
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("docx: open %s: %w", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("docx: read %s: %w", f.Name, err)
		}

		e := &entry{header: f.FileHeader, data: data}
		doc.entries = append(doc.entries, e)
		doc.byName[f.Name] = e
	}

	if _, ok := doc.byName[bodyPart]; !ok {
		return nil, ErrNotDocx
	}
	return doc, nil
}

// textParts returns the body first, then headers and footers by name.
func (d *Document) textParts() []*entry {
	parts := []*entry{d.byName[bodyPart]}

	var extra []*entry
	for _, e := range d.entries {
		if headerFooterPattern.MatchString(e.header.Name) {
			extra = append(extra, e)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i].header.Name < extra[j].header.Name })

	return append(parts, extra...)
}

// Texts returns the plain text of every paragraph in document order. Table
// cells contribute their own paragraphs.
func (d *Document) Texts() ([]string, error) {
	var out []string
	for _, part := range d.textParts() {
		paras, err := scanParagraphs(part.data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", part.header.Name, err)
		}
		for _, p := range paras {
			out = append(out, p.text())
		}
	}
	return out, nil
}

// MapText passes every paragraph's text through fn. Tabs and breaks appear
// in that text as \t and \n. In a changed paragraph each changed stretch
// between separators goes into its first run and the stretch's other runs
// are emptied, so that run's formatting applies to the stretch. It returns
// the number of paragraphs rewritten.
func (d *Document) MapText(fn func(string) (string, error)) (int, error) {
	changed := 0
	for _, part := range d.textParts() {
		paras, err := scanParagraphs(part.data)
		if err != nil {
			return changed, fmt.Errorf("%s: %w", part.header.Name, err)
		}

		var edits []edit
		for _, p := range paras {
			if len(p.textRuns()) == 0 {
				continue
			}
			oldText := p.text()
			newText, err := fn(oldText)
			if err != nil {
				return changed, err
			}
			if newText == oldText {
				continue
			}

			edits = append(edits, p.rewrite(newText)...)
			changed++
		}

		part.data = applyEdits(part.data, edits)
	}
	return changed, nil
}

// WriteTo writes the package as a zip archive.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	zw := zip.NewWriter(cw)

	for _, e := range d.entries {
		hdr := &zip.FileHeader{
			Name:     e.header.Name,
			Method:   e.header.Method,
			Modified: e.header.Modified,
		}
		fw, err := zw.CreateHeader(hdr)
		if err != nil {
			return cw.n, fmt.Errorf("docx: create %s: %w", e.header.Name, err)
		}
		if _, err := fw.Write(e.data); err != nil {
			return cw.n, fmt.Errorf("docx: write %s: %w", e.header.Name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return cw.n, err
	}
	return cw.n, nil
}

// Bytes returns the encoded package.
func (d *Document) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := d.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Save writes the package to path through a temp file in the same
// directory, so readers never see a half-written document.
func (d *Document) Save(path string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".docx-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := d.WriteTo(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}

func scanParagraphs(data []byte) ([]paragraph, error) {
	var (
		stack []*paragraph
		out   []paragraph
		inRun bool
	)

	for _, m := range tagPattern.FindAllSubmatchIndex(data, -1) {
		closing := m[3] > m[2]
		tag := string(data[m[4]:m[5]])
		selfClosing := m[9] > m[8]

		switch {
		case tag == "p" && closing:
			if len(stack) == 0 {
				continue
			}
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			out = append(out, *top)

		case tag == "p" && selfClosing:
			// empty paragraph

		case tag == "p":
			stack = append(stack, &paragraph{start: m[0]})

		case tag == "r" && closing:
			inRun = false

		case tag == "r" && selfClosing:
			// empty run

		case tag == "r":
			inRun = true

		case closing:
			// </w:t> is consumed with its opening tag

		case len(stack) == 0:
			// text outside any paragraph is left alone

		case tag != "t":
			// <w:tab> also defines tab stops in <w:tabs>; only run content counts.
			if inRun {
				top := stack[len(stack)-1]
				top.runs = append(top.runs, textRun{start: m[0], end: m[1], text: separators[tag], sep: true})
			}

		case tag == "t" && selfClosing:
			top := stack[len(stack)-1]
			top.runs = append(top.runs, textRun{start: m[0], end: m[1]})

		case tag == "t":
			idx := bytes.Index(data[m[1]:], []byte(closeText))
			if idx < 0 {
				return nil, ErrMalformedXML
			}
			contentEnd := m[1] + idx
			top := stack[len(stack)-1]
			top.runs = append(top.runs, textRun{
				start: m[0],
				end:   contentEnd + len(closeText),
				text:  html.UnescapeString(string(data[m[1]:contentEnd])),
			})
		}
	}

	// Nested paragraphs (text boxes) close before their parent.
	sort.SliceStable(out, func(i, j int) bool { return out[i].start < out[j].start })
	return out, nil
}

type edit struct {
	start, end int
	repl       string
}

func applyEdits(data []byte, edits []edit) []byte {
	if len(edits) == 0 {
		return data
	}
	sort.Slice(edits, func(i, j int) bool { return edits[i].start < edits[j].start })

	var buf bytes.Buffer
	buf.Grow(len(data))
	pos := 0
	for _, e := range edits {
		buf.Write(data[pos:e.start])
		buf.WriteString(e.repl)
		pos = e.end
	}
	buf.Write(data[pos:])
	return buf.Bytes()
}

func textElement(text string) string {
	var buf bytes.Buffer
	buf.WriteString(`<w:t xml:space="preserve">`)
	xml.EscapeText(&buf, []byte(text))
	buf.WriteString(closeText)
	return buf.String()
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
