package knowledge

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/salus/internal/common"
	"github.com/ternarybob/salus/internal/models"
)

const dentalPage = `<html>
<head><title>שירותי רפואת שיניים</title></head>
<body>
<h2>מרפאות שיניים</h2>
<p>מידע על טיפולי שיניים במסגרת הביטוח המשלים.</p>
<table>
<tr><th>שירות</th><th>מכבי</th><th>מאוחדת</th><th>כללית</th></tr>
<tr>
<td>טיפול שורש</td>
<td>זהב: 80% הנחה</td>
<td>כסף: 60% הנחה</td>
<td>ארד: 40% הנחה</td>
</tr>
</table>
<h3>מספרי טלפון</h3>
<ul>
<li>מכבי: *3555</li>
<li>כללית: *2700</li>
</ul>
</body>
</html>`

func TestProcessDentalPage(t *testing.T) {
	processor := NewHTMLProcessor(arbor.NewLogger())

	doc, err := processor.Process("dentel_services", dentalPage)
	require.NoError(t, err)

	assert.Equal(t, "dentel_services", doc.ID)
	assert.Equal(t, "מרפאות שיניים", doc.Title)
	assert.Equal(t, "dental", doc.Category)
	assert.Equal(t, models.LanguageHebrew, doc.Language)

	// Intro + three table cells + contact list.
	require.Len(t, doc.Sections, 5)

	intro := doc.Sections[0]
	assert.Equal(t, models.InsurerGeneric, intro.Insurer)
	assert.Contains(t, intro.Text, "מרפאות שיניים")
	assert.Contains(t, intro.Text, "הביטוח המשלים")

	maccabi := doc.Sections[1]
	assert.Equal(t, models.InsurerMaccabi, maccabi.Insurer)
	assert.Equal(t, models.TierGold, maccabi.Tier)
	assert.Contains(t, maccabi.Text, "Service: טיפול שורש")
	assert.Contains(t, maccabi.Text, "80% הנחה")
	assert.Contains(t, maccabi.Text, "Keywords: dental")

	meuhedet := doc.Sections[2]
	assert.Equal(t, models.InsurerMeuhedet, meuhedet.Insurer)
	assert.Equal(t, models.TierSilver, meuhedet.Tier)

	clalit := doc.Sections[3]
	assert.Equal(t, models.InsurerClalit, clalit.Insurer)
	assert.Equal(t, models.TierBronze, clalit.Tier)

	contact := doc.Sections[4]
	assert.Equal(t, models.InsurerGeneric, contact.Insurer)
	assert.Contains(t, contact.Text, "*3555")
	assert.Contains(t, contact.Text, "*2700")
}

func TestProcessPlainTextFallback(t *testing.T) {
	processor := NewHTMLProcessor(arbor.NewLogger())

	doc, err := processor.Process("notes", "coverage notes without any markup")
	require.NoError(t, err)

	require.Len(t, doc.Sections, 1)
	assert.Equal(t, models.InsurerGeneric, doc.Sections[0].Insurer)
	assert.Contains(t, doc.Sections[0].Text, "coverage notes")
	assert.Equal(t, models.LanguageEnglish, doc.Language)
}

func TestProcessSkipsUnknownColumns(t *testing.T) {
	processor := NewHTMLProcessor(arbor.NewLogger())

	html := `<table>
<tr><th>Service</th><th>Notes</th><th>מכבי</th></tr>
<tr><td>Checkup</td><td>annual</td><td>covered in gold plan</td></tr>
</table>`

	doc, err := processor.Process("optometry_services", html)
	require.NoError(t, err)

	require.Len(t, doc.Sections, 1)
	assert.Equal(t, models.InsurerMaccabi, doc.Sections[0].Insurer)
	assert.Equal(t, models.TierGold, doc.Sections[0].Tier)
	assert.Contains(t, doc.Sections[0].Text, "Keywords: vision")
}

func TestCategoryForDoc(t *testing.T) {
	tests := []struct {
		docID    string
		expected string
	}{
		{"dentel_services", "dental"},
		{"dental_services", "dental"},
		{"pragrency_services", "pregnancy"},
		{"optometry_services", "optometry"},
		{"communication_clinic_services", "communication"},
		{"alternative_services", "alternative"},
		{"workshops_services", "workshops"},
		{"unknown_page", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, CategoryForDoc(tt.docID), "docID %s", tt.docID)
	}
}

func TestLoadCorpusWithManifest(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "dentel_services.html"), []byte(dentalPage), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "misc.html"), []byte("<p>general info</p>"), 0644))

	manifest := `sources:
  misc.html:
    category: workshops
    title: General Workshops
    insurer: Maccabi
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sources.yaml"), []byte(manifest), 0644))

	service := NewService(&common.KnowledgeConfig{Dir: dir}, arbor.NewLogger())
	docs, err := service.LoadCorpus()
	require.NoError(t, err)
	require.Len(t, docs, 2)

	// Name-ordered: dentel before misc.
	assert.Equal(t, "dentel_services", docs[0].ID)
	assert.Equal(t, "misc", docs[1].ID)
	assert.Equal(t, "workshops", docs[1].Category)
	assert.Equal(t, "General Workshops", docs[1].Title)
	require.NotEmpty(t, docs[1].Sections)
	for _, section := range docs[1].Sections {
		assert.Equal(t, models.InsurerMaccabi, section.Insurer)
	}
}

func TestLoadCorpusRejectsUnknownManifestInsurer(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "misc.html"), []byte("<p>general info</p>"), 0644))
	manifest := `sources:
  misc.html:
    insurer: bluecross
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sources.yaml"), []byte(manifest), 0644))

	service := NewService(&common.KnowledgeConfig{Dir: dir}, arbor.NewLogger())
	_, err := service.LoadCorpus()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bluecross")
}

func TestLoadCorpusEmptyDirectory(t *testing.T) {
	service := NewService(&common.KnowledgeConfig{Dir: t.TempDir()}, arbor.NewLogger())
	_, err := service.LoadCorpus()
	assert.Error(t, err)
}
