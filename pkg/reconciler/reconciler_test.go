package reconciler_test

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/oztfix/pkg/constants"
	"github.com/agentstation/oztfix/pkg/errors"
	"github.com/agentstation/oztfix/pkg/folia"
	"github.com/agentstation/oztfix/pkg/logging"
	"github.com/agentstation/oztfix/pkg/metadata"
	"github.com/agentstation/oztfix/pkg/reconciler"
	"github.com/agentstation/oztfix/pkg/types"
)

const (
	datadir   = "/data"
	inputDir  = "/in"
	outputDir = "/out"
)

const titlesCSV = `sourceRef,nederlabID,title,ingestTime,updateTime,processingMethod,witnessYearMin,witnessYearMax,witnessYearApprox,genre
abcd001,'nl-1',Bundel,2019-01-01,2019-02-01,import,1700,1720,1710,poezie
abcd002,'nl-2',Roman,2019-01-01,2019-02-01,import,1800,1810,1805,proza
`

const curatedTSV = "fileID\twitnessYearMin\twitnessYearMax\twitnessYearApprox\n" +
	"abcd001_01\t1701\t1720\t1711\n"

// abcd001_01 expects two embedded titles; the second chapter is a false positive.
const dependentCSV = `sourceRef,nederlabID,title,author
abcd001_01_0001,'nl-1-1',Eerste gedicht,Vondel
abcd001_01_0003,'nl-1-3',Derde gedicht,Vondel
`

const bundleDoc = `<?xml version="1.0" encoding="utf-8"?>
<FoLiA xmlns="http://ilk.uvt.nl/folia" xml:id="abcd001_01" version="2.0">
  <metadata type="native">
    <annotations>
      <division-annotation/>
    </annotations>
    <meta id="genre">oud</meta>
    <submetadata xml:id="old.metadata" type="native">
      <meta id="title">Oud</meta>
    </submetadata>
    <submetadata xml:id="empty.metadata" type="native"/>
  </metadata>
  <text xml:id="abcd001_01.text">
    <div xml:id="abcd001_01.div.1" class="chapter" metadata="old.metadata">
      <head xml:id="abcd001_01.head.1"><t>Een</t></head>
      <p xml:id="abcd001_01.p.1">
        <s xml:id="abcd001_01.p.1.s.1">
          <w xml:id="abcd001_01.p.1.s.1.w.1"><t>Jan</t></w>
          <entities xml:id="abcd001_01.ents.1">
            <entity xml:id="abcd001_01.e.1" class="per"><wref id="abcd001_01.p.1.s.1.w.1" t="Jan"/></entity>
          </entities>
        </s>
      </p>
    </div>
    <div xml:id="abcd001_01.div.2" class="chapter" metadata="old.metadata">
      <p xml:id="abcd001_01.p.2" metadata="empty.metadata"/>
    </div>
    <div xml:id="abcd001_01.div.3" class="act">
      <p xml:id="abcd001_01.p.3"><s><w><t>Einde</t></w></s></p>
      <div xml:id="abcd001_01.div.3.1" class="section" metadata="old.metadata"/>
    </div>
  </text>
</FoLiA>`

// Only one of the two expected titles is present.
const shortBundleDoc = `<FoLiA xmlns="http://ilk.uvt.nl/folia" xml:id="abcd001_01">
  <metadata type="native"/>
  <text xml:id="abcd001_01.text">
    <div xml:id="abcd001_01.div.1" class="chapter"><p xml:id="abcd001_01.p.1"/></div>
  </text>
</FoLiA>`

const novelDoc = `<FoLiA xmlns="http://ilk.uvt.nl/folia" xml:id="%s">
  <metadata type="native">
    <submetadata xml:id="stale.metadata" type="native">
      <meta id="title">Hoofdstuk</meta>
    </submetadata>
  </metadata>
  <text xml:id="abcd002.text">
    <div xml:id="abcd002.div.1" class="chapter" metadata="stale.metadata">
      <p xml:id="abcd002.p.1"/>
    </div>
  </text>
</FoLiA>`

func novel(id string) string {
	return strings.Replace(novelDoc, "%s", id, 1)
}

type fixture struct {
	fs    afero.Fs
	store *metadata.Store
	log   *logging.TestLogger
	ctx   context.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	fs := afero.NewMemMapFs()
	tables := map[string]string{
		constants.TitleTablePath:          titlesCSV,
		constants.CuratedTablePath:        curatedTSV,
		constants.DependentTitleTablePath: dependentCSV,
	}
	for rel, content := range tables {
		path := filepath.Join(datadir, rel)
		require.NoError(t, fs.MkdirAll(filepath.Dir(path), constants.DirPermissions))
		require.NoError(t, afero.WriteFile(fs, path, []byte(content), constants.FilePermissions))
	}

	tl := logging.NewTestLogger(t)
	ctx := logging.WithLogger(context.Background(), tl.Logger)
	store, err := metadata.Load(ctx, datadir, metadata.WithFS(fs))
	require.NoError(t, err)

	return &fixture{fs: fs, store: store, log: tl, ctx: ctx}
}

func (f *fixture) write(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(inputDir, name)
	require.NoError(t, folia.WriteFile(f.fs, path, []byte(content)))
	return path
}

func (f *fixture) reconciler(t *testing.T, opts ...reconciler.Option) reconciler.Reconciler {
	t.Helper()
	opts = append([]reconciler.Option{
		reconciler.WithFS(f.fs),
		reconciler.WithOutputDir(outputDir),
		reconciler.WithVersion("test"),
	}, opts...)
	r, err := reconciler.New(f.store, opts...)
	require.NoError(t, err)
	return r
}

func (f *fixture) output(t *testing.T, name string) *folia.Document {
	t.Helper()
	doc, err := folia.Load(f.fs, filepath.Join(outputDir, name))
	require.NoError(t, err)
	return doc
}

func (f *fixture) exists(t *testing.T, name string) bool {
	t.Helper()
	ok, err := afero.Exists(f.fs, filepath.Join(outputDir, name))
	require.NoError(t, err)
	return ok
}

func TestEmbeddedTitles(t *testing.T) {
	f := newFixture(t)
	path := f.write(t, "abcd001_01.xml", bundleDoc)

	result, err := f.reconciler(t).File(f.ctx, path)
	require.NoError(t, err)

	assert.True(t, result.IsSuccess())
	assert.Equal(t, reconciler.StateSaved, result.State)
	assert.Equal(t, []reconciler.State{
		reconciler.StateResolving,
		reconciler.StateMerging,
		reconciler.StateTitleScan,
		reconciler.StateValidating,
		reconciler.StateCleanup,
		reconciler.StateSaved,
	}, result.History)
	assert.Equal(t, reconciler.TitleCounts{Expected: 2, Confirmed: 2, Unmatched: 1}, result.Counts)
	assert.Equal(t, filepath.Join(outputDir, "abcd001_01.xml"), result.OutputPath)
	assert.Equal(t, "abcd001_01 saved to /out/abcd001_01.xml: 2/2 embedded titles confirmed, 1 of 3 candidates unmatched", result.Summary())
	require.Len(t, result.Titles, 3)
	assert.True(t, result.Titles[0].Confirmed)
	assert.False(t, result.Titles[1].Confirmed)
	assert.Equal(t, "abcd001_01_0002", result.Titles[1].ID)
	assert.True(t, result.Titles[2].Confirmed)
	assert.Equal(t, "abcd001_01_0003", result.Titles[2].ID)

	out := f.output(t, "abcd001_01.xml")

	// confirmed titles are relabelled and linked to a fresh metadata block
	first, ok := out.ElementByID("abcd001_01_0001.text")
	require.True(t, ok)
	assert.Equal(t, "abcd001_01_0001.metadata", first.MetadataRef())
	block, ok := out.Submetadata("abcd001_01_0001.metadata")
	require.True(t, ok)
	author, _ := block.Get("author")
	assert.Equal(t, "Vondel", author)
	nederlabID, _ := block.Get("nederlabID")
	assert.Equal(t, "nl-1-1", nederlabID)
	_, hasTitle := block.Get("title")
	assert.False(t, hasTitle, "excluded fields are not merged")

	for _, id := range []string{
		"abcd001_01_0001.text.head.1",
		"abcd001_01_0001.text.p.1",
		"abcd001_01_0001.text.p.1.s.1",
		"abcd001_01_0001.text.p.1.s.1.w.1",
		"abcd001_01_0001.text.p.1.s.1.entity.1",
		"abcd001_01_0003.text",
		"abcd001_01_0003.text.p.1",
		"abcd001_01_0003.text.p.1.s.1",
		"abcd001_01_0003.text.p.1.s.1.w.1",
		"abcd001_01_0003.text.div.1",
	} {
		_, ok := out.ElementByID(id)
		assert.True(t, ok, "expected element %s", id)
	}

	// word references follow the renamed words
	refs := out.WordRefs()
	require.Len(t, refs, 1)
	assert.Equal(t, "abcd001_01_0001.text.p.1.s.1.w.1", refs[0].RefID())

	// the false positive keeps its identifier and loses its stale metadata
	second, ok := out.ElementByID("abcd001_01.div.2")
	require.True(t, ok)
	assert.Empty(t, second.MetadataRef())
	nested, _ := out.ElementByID("abcd001_01_0003.text.div.1")
	assert.Empty(t, nested.MetadataRef())

	// empty blocks and references to them are gone
	_, ok = out.Submetadata("empty.metadata")
	assert.False(t, ok)
	assert.Equal(t, []string{"empty.metadata"}, result.DeletedSubmetadata)
	p, ok := out.ElementByID("abcd001_01.p.2")
	require.True(t, ok)
	assert.Empty(t, p.MetadataRef())
	_, ok = out.Submetadata("old.metadata")
	assert.True(t, ok, "non-empty blocks are kept")

	assert.Contains(t, out.Processors(), constants.ProcessorName)

	f.log.AssertContains(t, "Found abcd001_01_0001, reassigning identifiers")
	f.log.AssertContains(t, "No metadata was found for abcd001_01_0002")
	f.log.AssertContains(t, "Saving document")
}

func TestDocumentMetadataMerge(t *testing.T) {
	f := newFixture(t)
	path := f.write(t, "abcd001_01.xml", bundleDoc)

	result, err := f.reconciler(t).File(f.ctx, path)
	require.NoError(t, err)

	md := f.output(t, "abcd001_01.xml").Metadata()
	tests := []struct {
		field string
		want  string
	}{
		{"sourceRef", "abcd001"},
		{"nederlabID", "nl-1"},
		{"witnessYearMin", "1701"},
		{"witnessYearMax", "1720"},
		{"witnessYearApprox", "1711"},
		{"genre", "poezie"},
		{"curated", "1"},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			got, ok := md.Get(tt.field)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
	for _, field := range []string{"title", "ingestTime", "updateTime", "processingMethod"} {
		_, ok := md.Get(field)
		assert.False(t, ok, "%s is never merged", field)
	}

	history := result.Provenance["document:abcd001_01:witnessYearMin"]
	require.Len(t, history, 1)
	assert.Equal(t, types.CuratedID, history[0].Source)
	history = result.Provenance["document:abcd001_01:genre"]
	require.Len(t, history, 1)
	assert.Equal(t, types.TitlesID, history[0].Source)
	assert.Equal(t, "oud", history[0].Previous)
	history = result.Provenance["embedded-title:abcd001_01_0001:author"]
	require.Len(t, history, 1)
	assert.Equal(t, types.DependentTitlesID, history[0].Source)
}

func TestSuffixFallback(t *testing.T) {
	t.Run("retries with the edition suffix", func(t *testing.T) {
		f := newFixture(t)
		path := f.write(t, "abcd002.xml", novel("abcd002"))

		result, err := f.reconciler(t).File(f.ctx, path)
		require.NoError(t, err)

		assert.True(t, result.Fallback)
		assert.Equal(t, "abcd002", result.OriginalID)
		assert.Equal(t, "abcd002_01", result.DocumentID)
		assert.Equal(t, "abcd002_01", f.output(t, "abcd002.xml").ID())
		f.log.AssertContains(t, "did not have the _01 suffix")
	})

	t.Run("disabled", func(t *testing.T) {
		f := newFixture(t)
		path := f.write(t, "abcd002.xml", novel("abcd002"))

		result, err := f.reconciler(t, reconciler.WithSuffixFallback(false)).File(f.ctx, path)
		require.Error(t, err)

		var notFound *errors.DocumentNotFoundError
		require.True(t, errors.As(err, &notFound))
		assert.Equal(t, []string{"abcd002"}, notFound.Tried)
		assert.Equal(t, reconciler.StateError, result.State)
		assert.False(t, f.exists(t, "abcd002.xml"))
	})
}

func TestDocumentNotFound(t *testing.T) {
	t.Run("fails", func(t *testing.T) {
		f := newFixture(t)
		path := f.write(t, "zzzz999_01.xml", novel("zzzz999_01"))

		result, err := f.reconciler(t).File(f.ctx, path)
		require.Error(t, err)
		assert.True(t, errors.IsNotFound(err))
		assert.False(t, result.IsSuccess())

		var notFound *errors.DocumentNotFoundError
		require.True(t, errors.As(err, &notFound))
		assert.Equal(t, []string{"zzzz999_01", "zzzz999_01_01"}, notFound.Tried)
		assert.False(t, f.exists(t, "zzzz999_01.xml"))
	})

	t.Run("passes through when permissive", func(t *testing.T) {
		f := newFixture(t)
		content := novel("zzzz999_01")
		path := f.write(t, "zzzz999_01.xml", content)

		result, err := f.reconciler(t, reconciler.WithPermissive(true)).File(f.ctx, path)
		require.NoError(t, err)
		assert.Equal(t, reconciler.StatePassThrough, result.State)
		assert.True(t, result.IsSuccess())
		assert.NotEmpty(t, result.Warnings)

		data, err := afero.ReadFile(f.fs, filepath.Join(outputDir, "zzzz999_01.xml"))
		require.NoError(t, err)
		assert.Equal(t, content, string(data), "passed through byte for byte")
	})
}

func TestTitleMismatch(t *testing.T) {
	f := newFixture(t)
	path := f.write(t, "abcd001_01.xml", shortBundleDoc)

	result, err := f.reconciler(t).File(f.ctx, path)
	require.Error(t, err)
	assert.True(t, errors.IsTitleMismatch(err))

	var mismatch *errors.EmbeddedTitleMismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, 1, mismatch.Confirmed)
	assert.Equal(t, 2, mismatch.Expected)
	assert.Equal(t, reconciler.StateError, result.State)
	assert.False(t, f.exists(t, "abcd001_01.xml"), "no output is written on a mismatch")
}

func TestStrictStrategy(t *testing.T) {
	f := newFixture(t)
	path := f.write(t, "abcd001_01.xml", bundleDoc)

	r := f.reconciler(t, reconciler.WithStrategy(reconciler.NewStrictStrategy()))
	result, err := r.File(f.ctx, path)
	require.Error(t, err)
	assert.True(t, errors.IsTitleMismatch(err))
	assert.Equal(t, 1, result.Counts.Unmatched)
	assert.Equal(t, reconciler.StrategyTypeStrict, result.Metadata.Strategy)
	assert.False(t, f.exists(t, "abcd001_01.xml"))
}

func TestNoIndependentTitles(t *testing.T) {
	f := newFixture(t)
	path := f.write(t, "abcd002_01.xml", novel("abcd002_01"))

	result, err := f.reconciler(t).File(f.ctx, path)
	require.NoError(t, err)

	assert.Equal(t, 0, result.Counts.Expected)
	assert.Empty(t, result.Titles)
	assert.Equal(t, 1, result.ClearedDivisions)
	f.log.AssertContains(t, "Document has no independent titles")

	out := f.output(t, "abcd002_01.xml")
	div, ok := out.ElementByID("abcd002.div.1")
	require.True(t, ok)
	assert.Empty(t, div.MetadataRef())
}

func TestDryRun(t *testing.T) {
	f := newFixture(t)
	path := f.write(t, "abcd001_01.xml", bundleDoc)

	result, err := f.reconciler(t, reconciler.WithDryRun(true)).File(f.ctx, path)
	require.NoError(t, err)
	assert.Equal(t, reconciler.StateSaved, result.State)
	assert.True(t, result.Metadata.DryRun)
	assert.False(t, f.exists(t, "abcd001_01.xml"))
	f.log.AssertContains(t, "Dry run")
}

func TestCompressedInput(t *testing.T) {
	f := newFixture(t)

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write([]byte(novel("abcd002_01")))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	path := filepath.Join(inputDir, "abcd002_01.xml.gz")
	require.NoError(t, folia.WriteFile(f.fs, path, buf.Bytes()))

	result, err := f.reconciler(t).File(f.ctx, path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(outputDir, "abcd002_01.xml"), result.OutputPath)
	assert.Equal(t, "abcd002_01", f.output(t, "abcd002_01.xml").ID())
}

func TestUnreadableInput(t *testing.T) {
	f := newFixture(t)
	path := f.write(t, "broken.xml", "<FoLiA xml:id=")

	result, err := f.reconciler(t).File(f.ctx, path)
	require.Error(t, err)
	assert.Equal(t, reconciler.StateError, result.State)
	assert.Equal(t, path, result.InputPath)
}

func TestCancelledContext(t *testing.T) {
	f := newFixture(t)
	path := f.write(t, "abcd002_01.xml", novel("abcd002_01"))

	ctx, cancel := context.WithCancel(f.ctx)
	cancel()

	_, err := f.reconciler(t).File(ctx, path)
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, f.exists(t, "abcd002_01.xml"))
}

func TestNew(t *testing.T) {
	f := newFixture(t)

	_, err := reconciler.New(nil)
	assert.True(t, errors.IsValidationError(err))

	tests := []struct {
		name string
		opt  reconciler.Option
	}{
		{"nil fs", reconciler.WithFS(nil)},
		{"empty output dir", reconciler.WithOutputDir("")},
		{"nil strategy", reconciler.WithStrategy(nil)},
		{"nil authorities", reconciler.WithAuthorities(nil)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := reconciler.New(f.store, tt.opt)
			assert.True(t, errors.IsValidationError(err))
		})
	}
}

// The word w1 of the first title shares its identifier with a word outside any title.
const sharedWordDoc = `<FoLiA xmlns="http://ilk.uvt.nl/folia" xml:id="abcd001_01">
  <metadata type="native"/>
  <text xml:id="abcd001_01.text">
    <div xml:id="abcd001_01.div.1" class="chapter">
      <p xml:id="abcd001_01.p.1"><s xml:id="abcd001_01.p.1.s.1">
        <w xml:id="w1"><t>Jan</t></w>
        <entities><entity xml:id="inside.e"><wref id="w1"/></entity></entities>
      </s></p>
    </div>
    <div xml:id="abcd001_01.div.2" class="chapter"/>
    <div xml:id="abcd001_01.div.3" class="act"/>
    <div xml:id="abcd001_01.div.4" class="section">
      <p xml:id="abcd001_01.p.4"><s xml:id="abcd001_01.p.4.s.1">
        <w xml:id="w1"><t>Piet</t></w>
        <entities><entity xml:id="outside.e"><wref id="w1"/></entity></entities>
      </s></p>
    </div>
  </text>
</FoLiA>`

func TestSharedIdentifierOutsideTitle(t *testing.T) {
	f := newFixture(t)
	path := f.write(t, "abcd001_01.xml", sharedWordDoc)

	result, err := f.reconciler(t).File(f.ctx, path)
	require.NoError(t, err)
	assert.Equal(t, reconciler.StateSaved, result.State)
	assert.Contains(t, result.Warnings, "identifier w1 is not unique, only references inside abcd001_01_0001 were updated")

	out := f.output(t, "abcd001_01.xml")
	refs := map[string]string{}
	for _, ref := range out.WordRefs() {
		refs[ref.Parent().ID()] = ref.RefID()
	}
	assert.Equal(t, "abcd001_01_0001.text.p.1.s.1.w.1", refs["abcd001_01_0001.text.p.1.s.1.entity.1"])
	assert.Equal(t, "w1", refs["outside.e"], "references outside the title keep their target")

	word, ok := out.ElementByID("w1")
	require.True(t, ok)
	assert.Equal(t, "abcd001_01.p.4.s.1", word.Parent().ID())
	f.log.AssertContains(t, "Identifier is not unique")
}
