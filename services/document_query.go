package services

import (
	"bytes"

	"github.com/PuerkitoBio/goquery"
	"github.com/fenilmodi00/ipo-calendar-sync/shared"
)

// TableRow is the normalized text of one table row's data cells
type TableRow struct {
	Cells []string
}

// Cell returns the i-th cell or "" when the row is shorter
func (r TableRow) Cell(i int) string {
	if i < 0 || i >= len(r.Cells) {
		return ""
	}
	return r.Cells[i]
}

// ParseDocument builds a queryable document from UTF-8 markup
func ParseDocument(body []byte) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, shared.NewServiceError(
			shared.ErrorCategoryDocument,
			"PARSE_FAILED",
			"failed to parse HTML document",
			"DocumentQuery",
			"ParseDocument",
			false,
			err,
		)
	}
	return doc, nil
}

// ExtractTableRows returns the td cells of every row matched by rowSelector.
// Rows without td cells (header rows) are skipped.
func ExtractTableRows(doc *goquery.Document, rowSelector string) []TableRow {
	var rows []TableRow

	doc.Find(rowSelector).Each(func(_ int, row *goquery.Selection) {
		var cells []string
		row.ChildrenFiltered("td").Each(func(_ int, cell *goquery.Selection) {
			cells = append(cells, NormalizeTextContent(cell.Text()))
		})
		if len(cells) > 0 {
			rows = append(rows, TableRow{Cells: cells})
		}
	})

	return rows
}
