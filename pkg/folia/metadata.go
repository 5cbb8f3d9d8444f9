package folia

import (
	"github.com/beevik/etree"
)

// Metadata is a native key/value metadata block: the document's own
// <metadata> or one of its <submetadata> blocks.
type Metadata struct {
	node *etree.Element
}

// ID returns the block identifier ("" for the document's own metadata).
func (m *Metadata) ID() string {
	return xmlID(m.node)
}

// Type returns the block type, e.g. "native".
func (m *Metadata) Type() string {
	return plainAttr(m.node, "type")
}

// Get returns the value of a field.
func (m *Metadata) Get(key string) (string, bool) {
	if meta := m.find(key); meta != nil {
		return meta.Text(), true
	}
	return "", false
}

// Set assigns a field, replacing any existing value.
func (m *Metadata) Set(key, value string) {
	meta := m.find(key)
	if meta == nil {
		meta = etree.NewElement("meta")
		meta.CreateAttr("id", key)
		m.insert(meta)
	}
	meta.SetText(value)
}

// Delete removes a field. It reports whether the field existed.
func (m *Metadata) Delete(key string) bool {
	meta := m.find(key)
	if meta == nil {
		return false
	}
	m.node.RemoveChild(meta)
	return true
}

// Keys returns the field names in document order.
func (m *Metadata) Keys() []string {
	var keys []string
	for _, c := range m.node.SelectElements("meta") {
		keys = append(keys, plainAttr(c, "id"))
	}
	return keys
}

// Len returns the number of fields.
func (m *Metadata) Len() int {
	return len(m.node.SelectElements("meta"))
}

func (m *Metadata) find(key string) *etree.Element {
	for _, c := range m.node.SelectElements("meta") {
		if plainAttr(c, "id") == key {
			return c
		}
	}
	return nil
}

// insert adds a meta element after the last existing one so fields stay
// grouped ahead of any submetadata blocks.
func (m *Metadata) insert(meta *etree.Element) {
	metas := m.node.SelectElements("meta")
	if len(metas) == 0 {
		index := 0
		for _, c := range m.node.ChildElements() {
			if c.Tag == "annotations" || c.Tag == "provenance" {
				index = c.Index() + 1
			}
		}
		m.node.InsertChildAt(index, meta)
		return
	}
	m.node.InsertChildAt(metas[len(metas)-1].Index()+1, meta)
}

// IsEmpty reports whether the block holds nothing at all.
func (m *Metadata) IsEmpty() bool {
	return len(m.node.ChildElements()) == 0
}
