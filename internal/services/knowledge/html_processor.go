// -----------------------------------------------------------------------
// HTML Processor - knowledge-base page extraction and section tagging
// -----------------------------------------------------------------------

package knowledge

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/salus/internal/models"
)

// HTMLProcessor extracts tagged sections from knowledge-base HTML pages.
// Pages follow a fixed shape: an h2 title, introduction paragraphs, benefit
// tables with one column per health fund, and h3-headed contact lists.
type HTMLProcessor struct {
	logger arbor.ILogger
}

// NewHTMLProcessor creates a new HTML processor
func NewHTMLProcessor(logger arbor.ILogger) *HTMLProcessor {
	return &HTMLProcessor{
		logger: logger,
	}
}

// searchKeywords maps a service category to English keywords appended to
// table sections so English queries land on Hebrew benefit text.
var searchKeywords = map[string]string{
	"pregnancy":     "pregnancy, prenatal, birth, maternity, pregnant",
	"dental":        "dental, teeth, tooth, dentist, oral",
	"optometry":     "vision, eye, glasses, contact lenses, optometry",
	"communication": "speech, hearing, communication, language, therapy",
	"alternative":   "alternative medicine, acupuncture, homeopathy, massage, natural",
	"workshops":     "workshop, class, group, training, education",
}

// categoryPatterns maps file-name substrings to categories. The legacy
// corpus file names carry misspellings, so those are matched too.
var categoryPatterns = []struct {
	substr   string
	category string
}{
	{"pregnancy", "pregnancy"},
	{"pragrency", "pregnancy"},
	{"dental", "dental"},
	{"dentel", "dental"},
	{"optometry", "optometry"},
	{"communication", "communication"},
	{"alternative", "alternative"},
	{"workshop", "workshops"},
}

// CategoryForDoc derives the service category from a document identifier.
// Returns empty when no known category matches.
func CategoryForDoc(docID string) string {
	lower := strings.ToLower(docID)
	for _, p := range categoryPatterns {
		if strings.Contains(lower, p.substr) {
			return p.category
		}
	}
	return ""
}

// Process extracts a tagged source document from raw HTML. Malformed or
// structure-free HTML degrades to a single untagged section holding the
// visible text; it is never an error.
func (p *HTMLProcessor) Process(docID string, html string) (*models.SourceDocument, error) {
	doc := &models.SourceDocument{
		ID:       docID,
		Category: CategoryForDoc(docID),
	}

	parsed, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		p.logger.Warn().Err(err).Str("doc_id", docID).Msg("HTML parse failed, using raw text")
		doc.Sections = []models.Section{{
			Text:    strings.TrimSpace(html),
			Insurer: models.InsurerGeneric,
		}}
		doc.Language = models.DetectLanguage(html)
		return doc, nil
	}

	doc.Title = p.extractTitle(parsed)
	doc.Sections = append(doc.Sections, p.extractIntroduction(parsed, doc.Title)...)
	doc.Sections = append(doc.Sections, p.extractTables(parsed, doc.Category)...)
	doc.Sections = append(doc.Sections, p.extractContacts(parsed)...)

	if len(doc.Sections) == 0 {
		text := strings.TrimSpace(parsed.Text())
		if text != "" {
			doc.Sections = []models.Section{{
				Text:    text,
				Insurer: models.InsurerGeneric,
			}}
		}
	}

	var all strings.Builder
	for _, section := range doc.Sections {
		all.WriteString(section.Text)
		all.WriteString("\n")
	}
	doc.Language = models.DetectLanguage(all.String())

	p.logger.Debug().
		Str("doc_id", docID).
		Str("title", doc.Title).
		Str("category", doc.Category).
		Str("language", string(doc.Language)).
		Int("sections", len(doc.Sections)).
		Msg("HTML document processed")

	return doc, nil
}

// extractTitle takes the first h2, then the page title, then the first h1.
func (p *HTMLProcessor) extractTitle(doc *goquery.Document) string {
	if title := strings.TrimSpace(doc.Find("h2").First().Text()); title != "" {
		return title
	}
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		return title
	}
	return strings.TrimSpace(doc.Find("h1").First().Text())
}

// extractIntroduction joins the title and all paragraphs into one untagged
// section.
func (p *HTMLProcessor) extractIntroduction(doc *goquery.Document, title string) []models.Section {
	var text strings.Builder
	if title != "" {
		text.WriteString(title)
		text.WriteString("\n")
	}
	doc.Find("p").Each(func(_ int, sel *goquery.Selection) {
		para := strings.TrimSpace(sel.Text())
		if para != "" {
			text.WriteString(para)
			text.WriteString("\n")
		}
	})

	intro := strings.TrimSpace(text.String())
	if intro == "" {
		return nil
	}
	return []models.Section{{
		Text:    intro,
		Insurer: models.InsurerGeneric,
	}}
}

// extractTables produces one section per benefit cell. The first column
// names the service; each remaining column belongs to one health fund, and
// the coverage tier is read from the cell text when present.
func (p *HTMLProcessor) extractTables(doc *goquery.Document, category string) []models.Section {
	var sections []models.Section

	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		rows := table.Find("tr")
		if rows.Length() < 2 {
			return
		}

		var headers []string
		rows.First().Find("th").Each(func(_ int, th *goquery.Selection) {
			headers = append(headers, strings.TrimSpace(th.Text()))
		})
		if len(headers) < 2 {
			return
		}

		rows.Slice(1, rows.Length()).Each(func(_ int, row *goquery.Selection) {
			var cells []string
			row.Find("td").Each(func(_ int, td *goquery.Selection) {
				cells = append(cells, strings.TrimSpace(td.Text()))
			})
			if len(cells) < 2 {
				return
			}

			serviceName := cells[0]
			for i := 1; i < len(cells) && i < len(headers); i++ {
				insurer, err := models.ParseInsurer(headers[i])
				if err != nil {
					continue
				}

				cellText := cells[i]
				if cellText == "" {
					continue
				}

				var text strings.Builder
				fmt.Fprintf(&text, "Service: %s\nHMO: %s\nDetails: %s", serviceName, headers[i], cellText)
				if keywords, ok := searchKeywords[category]; ok {
					fmt.Fprintf(&text, "\nKeywords: %s", keywords)
				}

				sections = append(sections, models.Section{
					Text:    text.String(),
					Insurer: insurer,
					Tier:    detectTier(cellText),
				})
			}
		})
	})

	return sections
}

// detectTier scans benefit text for a coverage tier name in Hebrew or
// English. Returns the empty tier when none appears.
func detectTier(text string) models.Tier {
	for _, candidate := range []struct {
		token string
		tier  models.Tier
	}{
		{"זהב", models.TierGold},
		{"כסף", models.TierSilver},
		{"ארד", models.TierBronze},
		{"gold", models.TierGold},
		{"silver", models.TierSilver},
		{"bronze", models.TierBronze},
	} {
		if strings.Contains(strings.ToLower(text), candidate.token) {
			return candidate.tier
		}
	}
	return ""
}

// extractContacts collects phone lists that follow h3 contact headings.
func (p *HTMLProcessor) extractContacts(doc *goquery.Document) []models.Section {
	var sections []models.Section

	doc.Find("h3").Each(func(_ int, heading *goquery.Selection) {
		text := heading.Text()
		if !strings.Contains(text, "טלפון") && !strings.Contains(text, "מספרי") &&
			!strings.Contains(strings.ToLower(text), "phone") {
			return
		}

		list := heading.NextAllFiltered("ul").First()
		if list.Length() == 0 {
			return
		}

		var contact strings.Builder
		contact.WriteString(strings.TrimSpace(text))
		contact.WriteString("\n")
		list.Find("li").Each(func(_ int, li *goquery.Selection) {
			item := strings.TrimSpace(li.Text())
			if item != "" {
				contact.WriteString(item)
				contact.WriteString("\n")
			}
		})

		sections = append(sections, models.Section{
			Text:    strings.TrimSpace(contact.String()),
			Insurer: models.InsurerGeneric,
		})
	})

	return sections
}
