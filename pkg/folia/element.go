package folia

import (
	"github.com/beevik/etree"
)

// Element tags with special meaning to identifier handling.
const (
	TagDivision    = "div"
	TagSentence    = "s"
	TagLinebreak   = "br"
	TagWhitespace  = "whitespace"
	TagEntityLayer = "entities"
	TagEntity      = "entity"
	TagWordRef     = "wref"
	TagText        = "text"
	TagSpeech      = "speech"
)

// structureTags are the FoLiA structure elements.
var structureTags = map[string]bool{
	"div": true, "p": true, "s": true, "w": true, "hiddenw": true,
	"head": true, "list": true, "item": true, "label": true,
	"figure": true, "caption": true, "table": true, "tablehead": true,
	"row": true, "cell": true, "event": true, "part": true,
	"br": true, "whitespace": true, "gap": true, "note": true,
	"ref": true, "quote": true, "utt": true, "entry": true,
	"term": true, "def": true, "ex": true, "text": true, "speech": true,
}

// ignoredTags hold alternative or superseded content that is not walked.
var ignoredTags = map[string]bool{
	"alt":          true,
	"altlayers":    true,
	"original":     true,
	"suggestion":   true,
	"foreign-data": true,
}

// Element is a node of a FoLiA document tree. The zero value is a nil element.
type Element struct {
	node *etree.Element
}

func wrap(node *etree.Element) Element {
	return Element{node: node}
}

// IsZero reports whether the element refers to no node.
func (e Element) IsZero() bool {
	return e.node == nil
}

// Node returns the underlying etree element.
func (e Element) Node() *etree.Element {
	return e.node
}

// Kind returns the element's tag, e.g. "div" or "s".
func (e Element) Kind() string {
	return e.node.Tag
}

// ID returns the element's xml:id, or "".
func (e Element) ID() string {
	return xmlID(e.node)
}

// SetID sets the element's xml:id.
func (e Element) SetID(id string) {
	e.node.CreateAttr("xml:id", id)
}

// ClearID removes the element's xml:id.
func (e Element) ClearID() {
	e.node.RemoveAttr("xml:id")
}

// Class returns the element's class attribute.
func (e Element) Class() string {
	return plainAttr(e.node, "class")
}

// MetadataRef returns the metadata block this element refers to, or "".
func (e Element) MetadataRef() string {
	return plainAttr(e.node, "metadata")
}

// SetMetadataRef points the element at a metadata block.
func (e Element) SetMetadataRef(id string) {
	e.node.CreateAttr("metadata", id)
}

// ClearMetadataRef removes any metadata block reference.
func (e Element) ClearMetadataRef() {
	e.node.RemoveAttr("metadata")
}

// RefID returns the target of a word reference (wref/@id).
func (e Element) RefID() string {
	return plainAttr(e.node, "id")
}

// SetRefID retargets a word reference.
func (e Element) SetRefID(id string) {
	e.node.CreateAttr("id", id)
}

// Parent returns the parent element, or the zero Element at the root.
func (e Element) Parent() Element {
	p := e.node.Parent()
	if p == nil || (p.Tag == "" && p.Parent() == nil) {
		return Element{}
	}
	return wrap(p)
}

// Children returns the child elements in document order.
func (e Element) Children() []Element {
	children := e.node.ChildElements()
	out := make([]Element, len(children))
	for i, c := range children {
		out[i] = wrap(c)
	}
	return out
}

// IsStructure reports whether the element is a structure element.
func (e Element) IsStructure() bool {
	return structureTags[e.node.Tag]
}

// IsFormatting reports whether the element only marks layout (line break or whitespace).
func (e Element) IsFormatting() bool {
	return e.node.Tag == TagLinebreak || e.node.Tag == TagWhitespace
}

// IsSentence reports whether the element is a sentence.
func (e Element) IsSentence() bool {
	return e.node.Tag == TagSentence
}

// Descendants returns every element below e in document order, skipping
// alternatives and superseded content.
func (e Element) Descendants() []Element {
	var out []Element
	var walk func(n *etree.Element)
	walk = func(n *etree.Element) {
		for _, c := range n.ChildElements() {
			if ignoredTags[c.Tag] {
				continue
			}
			out = append(out, wrap(c))
			walk(c)
		}
	}
	walk(e.node)
	return out
}

// StructureDescendants returns the structure elements below e in document order.
func (e Element) StructureDescendants() []Element {
	var out []Element
	for _, d := range e.Descendants() {
		if d.IsStructure() {
			out = append(out, d)
		}
	}
	return out
}

// EntityLayers returns the entity annotation layers directly inside e.
func (e Element) EntityLayers() []Element {
	var out []Element
	for _, c := range e.node.SelectElements(TagEntityLayer) {
		out = append(out, wrap(c))
	}
	return out
}

// Entities returns the entities of an entity layer.
func (e Element) Entities() []Element {
	var out []Element
	for _, c := range e.node.SelectElements(TagEntity) {
		out = append(out, wrap(c))
	}
	return out
}

// NearestIdentifiedAncestor walks up from e's parent to the first element
// carrying a non-empty identifier.
func (e Element) NearestIdentifiedAncestor() (Element, bool) {
	for p := e.node.Parent(); p != nil; p = p.Parent() {
		if xmlID(p) != "" {
			return wrap(p), true
		}
	}
	return Element{}, false
}

// xmlID returns the xml:id attribute of a node.
func xmlID(n *etree.Element) string {
	for _, a := range n.Attr {
		if a.Space == "xml" && a.Key == "id" {
			return a.Value
		}
	}
	return ""
}

// plainAttr returns an attribute without namespace prefix; etree's own lookup
// would also match xml:id for "id".
func plainAttr(n *etree.Element, key string) string {
	for _, a := range n.Attr {
		if a.Space == "" && a.Key == key {
			return a.Value
		}
	}
	return ""
}
