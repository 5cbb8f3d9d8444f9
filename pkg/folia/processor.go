package folia

import (
	"github.com/agentstation/utc"
	"github.com/beevik/etree"
)

// Processor describes a tool that touched the document, recorded in the
// document's provenance chain.
type Processor struct {
	ID      string
	Name    string
	Type    string
	Version string
	Host    string
	Begin   utc.Time
}

// AddProcessor appends a processor to the document's provenance, creating
// the provenance section when absent.
func (d *Document) AddProcessor(p Processor) {
	meta := d.metadataNode()

	provenance := meta.SelectElement("provenance")
	if provenance == nil {
		provenance = etree.NewElement("provenance")
		index := 0
		if annotations := meta.SelectElement("annotations"); annotations != nil {
			index = annotations.Index() + 1
		}
		meta.InsertChildAt(index, provenance)
	}

	proc := provenance.CreateElement("processor")
	proc.CreateAttr("xml:id", p.ID)
	proc.CreateAttr("name", p.Name)
	if p.Type != "" {
		proc.CreateAttr("type", p.Type)
	}
	if p.Version != "" {
		proc.CreateAttr("version", p.Version)
	}
	if p.Host != "" {
		proc.CreateAttr("host", p.Host)
	}
	if !p.Begin.IsZero() {
		proc.CreateAttr("begindatetime", p.Begin.Format("2006-01-02T15:04:05"))
	}
}

// Processors returns the names of the processors in the provenance chain.
func (d *Document) Processors() []string {
	var names []string
	provenance := d.metadataNode().SelectElement("provenance")
	if provenance == nil {
		return nil
	}
	for _, proc := range provenance.SelectElements("processor") {
		names = append(names, plainAttr(proc, "name"))
	}
	return names
}
