package folia_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/agentstation/utc"
	"github.com/klauspost/compress/gzip"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/oztfix/pkg/errors"
	"github.com/agentstation/oztfix/pkg/folia"
)

const sample = `<?xml version="1.0" encoding="utf-8"?>
<FoLiA xmlns="http://ilk.uvt.nl/folia" xml:id="abcd001_01" version="2.0">
  <metadata type="native">
    <annotations>
      <division-annotation/>
    </annotations>
    <meta id="genre">proza</meta>
    <submetadata xml:id="stale.metadata" type="native">
      <meta id="title">Oud</meta>
    </submetadata>
    <submetadata xml:id="empty.metadata" type="native"/>
  </metadata>
  <text xml:id="abcd001_01.text">
    <div xml:id="abcd001_01.div.1" class="chapter" metadata="stale.metadata">
      <head xml:id="abcd001_01.div.1.head.1"><t>Een</t></head>
      <p xml:id="abcd001_01.div.1.p.1">
        <s xml:id="abcd001_01.div.1.p.1.s.1">
          <w xml:id="abcd001_01.div.1.p.1.s.1.w.1"><t>Jan</t></w>
          <br/>
          <entities xml:id="abcd001_01.div.1.p.1.s.1.entities.1">
            <entity xml:id="e1" class="per"><wref id="abcd001_01.div.1.p.1.s.1.w.1" t="Jan"/></entity>
          </entities>
        </s>
        <alt><w xml:id="alt.w.1"><t>x</t></w></alt>
      </p>
      <div xml:id="abcd001_01.div.1.div.1" class="section"/>
    </div>
    <div xml:id="abcd001_01.div.2" class="act"/>
  </text>
</FoLiA>`

func parse(t *testing.T) *folia.Document {
	t.Helper()
	doc, err := folia.Parse([]byte(sample))
	require.NoError(t, err)
	return doc
}

func TestDocumentIdentity(t *testing.T) {
	doc := parse(t)
	assert.Equal(t, "abcd001_01", doc.ID())
	doc.SetID("abcd001_01_x")
	assert.Equal(t, "abcd001_01_x", doc.ID())
	assert.Equal(t, "FoLiA", doc.Root().Kind())
	assert.True(t, doc.Root().Parent().IsZero())
}

func TestDocumentMetadata(t *testing.T) {
	doc := parse(t)
	meta := doc.Metadata()

	v, ok := meta.Get("genre")
	require.True(t, ok)
	assert.Equal(t, "proza", v)

	meta.Set("genre", "poezie")
	meta.Set("nederlabID", "nl-1")
	assert.Equal(t, []string{"genre", "nederlabID"}, meta.Keys())
	assert.Equal(t, 2, meta.Len())

	assert.True(t, meta.Delete("genre"))
	assert.False(t, meta.Delete("genre"))
	_, ok = meta.Get("genre")
	assert.False(t, ok)

	// new fields go before the submetadata blocks
	out, err := doc.Bytes()
	require.NoError(t, err)
	assert.Less(t, bytes.Index(out, []byte(`<meta id="nederlabID">`)), bytes.Index(out, []byte(`<submetadata`)))
}

func TestMetadataCreatedWhenMissing(t *testing.T) {
	doc, err := folia.Parse([]byte(`<FoLiA xml:id="d"><text xml:id="d.text"/></FoLiA>`))
	require.NoError(t, err)

	doc.Metadata().Set("genre", "proza")
	out, err := doc.Bytes()
	require.NoError(t, err)
	assert.Contains(t, string(out), `<metadata type="native"><meta id="genre">proza</meta></metadata>`)
}

func TestSubmetadata(t *testing.T) {
	doc := parse(t)
	assert.Equal(t, []string{"stale.metadata", "empty.metadata"}, doc.SubmetadataIDs())

	stale, ok := doc.Submetadata("stale.metadata")
	require.True(t, ok)
	assert.Equal(t, "native", stale.Type())
	assert.Equal(t, 1, stale.Len())

	empty, ok := doc.Submetadata("empty.metadata")
	require.True(t, ok)
	assert.Equal(t, 0, empty.Len())

	created := doc.CreateSubmetadata("new.metadata", "native")
	created.Set("author", "Vondel")
	assert.Equal(t, "new.metadata", created.ID())

	// re-creating replaces the block
	doc.CreateSubmetadata("new.metadata", "native")
	again, ok := doc.Submetadata("new.metadata")
	require.True(t, ok)
	assert.Equal(t, 0, again.Len())

	assert.True(t, doc.DeleteSubmetadata("empty.metadata"))
	assert.False(t, doc.DeleteSubmetadata("empty.metadata"))
	assert.Equal(t, []string{"stale.metadata", "new.metadata"}, doc.SubmetadataIDs())
}

func TestDivisions(t *testing.T) {
	doc := parse(t)

	top := doc.Divisions()
	require.Len(t, top, 2)
	assert.Equal(t, "chapter", top[0].Class())
	assert.Equal(t, "act", top[1].Class())
	assert.Equal(t, "stale.metadata", top[0].MetadataRef())

	all := doc.AllDivisions()
	require.Len(t, all, 3)
	assert.Equal(t, "abcd001_01.div.1.div.1", all[1].ID())

	top[0].ClearMetadataRef()
	assert.Empty(t, top[0].MetadataRef())
	top[0].SetMetadataRef("x.metadata")
	assert.Equal(t, "x.metadata", top[0].MetadataRef())
}

func TestElementNavigation(t *testing.T) {
	doc := parse(t)
	div := doc.Divisions()[0]

	kinds := []string{}
	for _, e := range div.StructureDescendants() {
		kinds = append(kinds, e.Kind())
	}
	// alternatives and non-structure annotations are skipped
	assert.Equal(t, []string{"head", "p", "s", "w", "br", "div"}, kinds)

	s, ok := doc.ElementByID("abcd001_01.div.1.p.1.s.1")
	require.True(t, ok)
	assert.True(t, s.IsSentence())

	layers := s.EntityLayers()
	require.Len(t, layers, 1)
	entities := layers[0].Entities()
	require.Len(t, entities, 1)
	assert.Equal(t, "e1", entities[0].ID())

	// a cleared layer id is skipped when walking up
	layers[0].ClearID()
	anc, ok := entities[0].NearestIdentifiedAncestor()
	require.True(t, ok)
	assert.Equal(t, s.ID(), anc.ID())

	br := s.Children()[1]
	assert.True(t, br.IsFormatting())
	assert.True(t, br.IsStructure())
	assert.Empty(t, br.ID())

	refs := doc.WordRefs()
	require.Len(t, refs, 1)
	assert.Equal(t, "abcd001_01.div.1.p.1.s.1.w.1", refs[0].RefID())
	assert.Empty(t, refs[0].ID())

	ids := doc.IDs()
	assert.Contains(t, ids, "alt.w.1")
	assert.Contains(t, ids, "abcd001_01")

	_, ok = doc.ElementByID("missing")
	assert.False(t, ok)
}

func TestAddProcessor(t *testing.T) {
	doc := parse(t)
	doc.AddProcessor(folia.Processor{
		ID:      "oztfix.1",
		Name:    "oztfix",
		Type:    "auto",
		Version: "v1.0.0",
		Begin:   utc.New(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)),
	})
	assert.Equal(t, []string{"oztfix"}, doc.Processors())

	out, err := doc.Bytes()
	require.NoError(t, err)
	s := string(out)
	assert.Contains(t, s, `<processor xml:id="oztfix.1" name="oztfix" type="auto" version="v1.0.0" begindatetime="2024-05-01T12:00:00"/>`)
	// provenance follows the annotation declarations
	assert.Less(t, bytes.Index(out, []byte("</annotations>")), bytes.Index(out, []byte("<provenance>")))
	assert.Less(t, bytes.Index(out, []byte("<provenance>")), bytes.Index(out, []byte(`<meta id="genre">`)))
}

func TestLoadAndSave(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/in/plain.xml", []byte(sample), 0o644))

	var gz bytes.Buffer
	zw := gzip.NewWriter(&gz)
	_, err := zw.Write([]byte(sample))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, afero.WriteFile(fs, "/in/packed.xml.gz", gz.Bytes(), 0o644))

	for _, path := range []string{"/in/plain.xml", "/in/packed.xml.gz"} {
		doc, err := folia.Load(fs, path)
		require.NoError(t, err, path)
		assert.Equal(t, "abcd001_01", doc.ID())
		assert.Equal(t, path, doc.Path())
		assert.Equal(t, sample, string(doc.Raw()))
	}

	doc, err := folia.Load(fs, "/in/packed.xml.gz")
	require.NoError(t, err)
	require.NoError(t, doc.Save(fs, "/out/nested/packed.xml"))

	saved, err := folia.Load(fs, "/out/nested/packed.xml")
	require.NoError(t, err)
	assert.Equal(t, "abcd001_01", saved.ID())
}

func TestLoadErrors(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/bad.xml", []byte("<FoLiA><text>"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/other.xml", []byte("<TEI/>"), 0o644))

	_, err := folia.Load(fs, "/missing.xml")
	var ioErr *errors.IOError
	assert.ErrorAs(t, err, &ioErr)

	for _, path := range []string{"/bad.xml", "/other.xml"} {
		_, err = folia.Load(fs, path)
		var parseErr *errors.ParseError
		require.ErrorAs(t, err, &parseErr, path)
		assert.Equal(t, path, parseErr.File)
	}
}

func TestOutputName(t *testing.T) {
	tests := map[string]string{
		"/in/abcd001_01.xml.gz": "abcd001_01.xml",
		"abcd001_01.xml":        "abcd001_01.xml",
		"dir/abcd.folia.xml":    "abcd.folia.xml",
	}
	for in, want := range tests {
		assert.Equal(t, want, folia.OutputName(in), in)
	}
}

func TestWriteFileReplacesAtomically(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, folia.WriteFile(fs, "/out/abcd001_01.xml", []byte("first")))
	require.NoError(t, folia.WriteFile(fs, "/out/abcd001_01.xml", []byte("second")))

	data, err := afero.ReadFile(fs, "/out/abcd001_01.xml")
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	entries, err := afero.ReadDir(fs, "/out")
	require.NoError(t, err)
	require.Len(t, entries, 1, "no temporary files are left behind")
	assert.Equal(t, "abcd001_01.xml", entries[0].Name())
}
