// Package folia is a minimal FoLiA document model over an XML element tree.
// Markup it does not interpret is preserved on save.
package folia

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/beevik/etree"
	"github.com/klauspost/compress/gzip"
	"github.com/spf13/afero"

	"github.com/agentstation/oztfix/pkg/constants"
	"github.com/agentstation/oztfix/pkg/errors"
)

// Namespace is the FoLiA XML namespace.
const Namespace = "http://ilk.uvt.nl/folia"

// Document is a parsed FoLiA document.
type Document struct {
	tree *etree.Document
	root *etree.Element
	path string
	raw  []byte
}

// Load reads a FoLiA document from fs. Gzip-compressed input is detected by
// its magic bytes, so both .xml and .xml.gz files are accepted.
func Load(fs afero.Fs, path string) (*Document, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, errors.WrapIO("read", path, err)
	}

	if isGzip(data) {
		zr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, errors.WrapIO("decompress", path, err)
		}
		var buf bytes.Buffer
		if _, err := buf.ReadFrom(zr); err != nil {
			return nil, errors.WrapIO("decompress", path, err)
		}
		if err := zr.Close(); err != nil {
			return nil, errors.WrapIO("decompress", path, err)
		}
		data = buf.Bytes()
	}

	doc, err := Parse(data)
	if err != nil {
		var parseErr *errors.ParseError
		if errors.As(err, &parseErr) {
			parseErr.File = path
		}
		return nil, err
	}
	doc.path = path
	return doc, nil
}

// Parse parses an uncompressed FoLiA document.
func Parse(data []byte) (*Document, error) {
	tree := etree.NewDocument()
	tree.ReadSettings.PreserveCData = true
	tree.ReadSettings.ValidateInput = true
	if err := tree.ReadFromBytes(data); err != nil {
		return nil, errors.NewParseError("xml", "", "malformed document", err)
	}

	root := tree.Root()
	if root == nil || root.Tag != "FoLiA" {
		return nil, errors.NewParseError("xml", "", "root element is not FoLiA", nil)
	}

	return &Document{tree: tree, root: root, raw: data}, nil
}

func isGzip(data []byte) bool {
	return len(data) >= 2 && data[0] == 0x1f && data[1] == 0x8b
}

// Path returns the file the document was loaded from.
func (d *Document) Path() string {
	return d.path
}

// Raw returns the document bytes as read, after decompression.
func (d *Document) Raw() []byte {
	return d.raw
}

// Root returns the FoLiA root element.
func (d *Document) Root() Element {
	return wrap(d.root)
}

// ID returns the document identifier.
func (d *Document) ID() string {
	return xmlID(d.root)
}

// SetID renames the document.
func (d *Document) SetID(id string) {
	d.root.CreateAttr("xml:id", id)
}

// Metadata returns the document's own native metadata block, creating it when absent.
func (d *Document) Metadata() *Metadata {
	return &Metadata{node: d.metadataNode()}
}

func (d *Document) metadataNode() *etree.Element {
	if m := d.root.SelectElement("metadata"); m != nil {
		return m
	}
	m := etree.NewElement("metadata")
	m.CreateAttr("type", constants.NativeMetadataType)
	d.root.InsertChildAt(0, m)
	return m
}

// Submetadata returns the metadata block with the given identifier.
func (d *Document) Submetadata(id string) (*Metadata, bool) {
	for _, s := range d.metadataNode().SelectElements("submetadata") {
		if xmlID(s) == id {
			return &Metadata{node: s}, true
		}
	}
	return nil, false
}

// CreateSubmetadata adds an empty metadata block of the given type,
// replacing any existing block with the same identifier.
func (d *Document) CreateSubmetadata(id, typ string) *Metadata {
	d.DeleteSubmetadata(id)
	s := etree.NewElement("submetadata")
	s.CreateAttr("xml:id", id)
	s.CreateAttr("type", typ)
	d.metadataNode().AddChild(s)
	return &Metadata{node: s}
}

// SubmetadataIDs returns the identifiers of all metadata blocks in document order.
func (d *Document) SubmetadataIDs() []string {
	var ids []string
	for _, s := range d.metadataNode().SelectElements("submetadata") {
		ids = append(ids, xmlID(s))
	}
	return ids
}

// DeleteSubmetadata removes a metadata block together with its type. It
// reports whether the block existed.
func (d *Document) DeleteSubmetadata(id string) bool {
	m, ok := d.Submetadata(id)
	if !ok {
		return false
	}
	m.node.Parent().RemoveChild(m.node)
	return true
}

// Bodies returns the text and speech bodies of the document.
func (d *Document) Bodies() []Element {
	var out []Element
	for _, c := range d.root.ChildElements() {
		if c.Tag == TagText || c.Tag == TagSpeech {
			out = append(out, wrap(c))
		}
	}
	return out
}

// Divisions returns the divisions directly inside the document bodies, in document order.
func (d *Document) Divisions() []Element {
	var out []Element
	for _, body := range d.Bodies() {
		for _, c := range body.node.SelectElements(TagDivision) {
			out = append(out, wrap(c))
		}
	}
	return out
}

// AllDivisions returns every division in the document, in document order.
func (d *Document) AllDivisions() []Element {
	var out []Element
	for _, e := range d.Root().Descendants() {
		if e.Kind() == TagDivision {
			out = append(out, e)
		}
	}
	return out
}

// ElementByID finds the element carrying the given xml:id.
func (d *Document) ElementByID(id string) (Element, bool) {
	if id == "" {
		return Element{}, false
	}
	if xmlID(d.root) == id {
		return d.Root(), true
	}
	for _, e := range d.Root().Descendants() {
		if e.ID() == id {
			return e, true
		}
	}
	return Element{}, false
}

// Elements returns every element of the document in document order,
// including alternatives and superseded content.
func (d *Document) Elements() []Element {
	out := []Element{d.Root()}
	var walk func(n *etree.Element)
	walk = func(n *etree.Element) {
		for _, c := range n.ChildElements() {
			out = append(out, wrap(c))
			walk(c)
		}
	}
	walk(d.root)
	return out
}

// IDs returns every identifier in use in the document. When an identifier
// is duplicated the first element carrying it wins.
func (d *Document) IDs() map[string]Element {
	ids := make(map[string]Element)
	for _, e := range d.Elements() {
		if id := e.ID(); id != "" {
			if _, dup := ids[id]; !dup {
				ids[id] = e
			}
		}
	}
	return ids
}

// WordRefs returns every word reference (wref) in the document.
func (d *Document) WordRefs() []Element {
	var out []Element
	for _, e := range d.Elements() {
		if e.Kind() == TagWordRef {
			out = append(out, e)
		}
	}
	return out
}

// Bytes serializes the document.
func (d *Document) Bytes() ([]byte, error) {
	data, err := d.tree.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("serializing %s: %w", d.ID(), err)
	}
	return data, nil
}

// Save writes the serialized document to path, creating the directory when needed.
func (d *Document) Save(fs afero.Fs, path string) error {
	data, err := d.Bytes()
	if err != nil {
		return err
	}
	return WriteFile(fs, path, data)
}

// WriteFile writes data to path through a temporary file in the same
// directory, so an interrupted run never leaves a truncated document behind.
func WriteFile(fs afero.Fs, path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := fs.MkdirAll(dir, constants.DirPermissions); err != nil {
		return errors.WrapIO("mkdir", dir, err)
	}

	tmp, err := afero.TempFile(fs, dir, "."+constants.AppName+"-*")
	if err != nil {
		return errors.WrapIO("create", dir, err)
	}
	name := tmp.Name()
	defer func() { _ = fs.Remove(name) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return errors.WrapIO("write", path, err)
	}
	if err := tmp.Close(); err != nil {
		return errors.WrapIO("write", path, err)
	}
	if err := fs.Chmod(name, constants.FilePermissions); err != nil {
		return errors.WrapIO("chmod", path, err)
	}
	if err := fs.Rename(name, path); err != nil {
		return errors.WrapIO("rename", path, err)
	}
	return nil
}

// OutputName returns the file name a document is saved under: its base name
// with a .xml.gz extension replaced by .xml.
func OutputName(path string) string {
	base := filepath.Base(path)
	if strings.HasSuffix(base, constants.GzipXMLExtension) {
		return strings.TrimSuffix(base, constants.GzipXMLExtension) + constants.XMLExtension
	}
	return base
}
