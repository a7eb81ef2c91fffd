package notionsync

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/zerobalance/internal/domain"
	"github.com/jomei/notionapi"
)

// Property names of the mirrored transactions database.
const (
	propDescription   = "Description"
	propTransactionID = "Transaction ID"
	propDate          = "Date"
	propAmount        = "Amount"
	propType          = "Type"
	propCategory      = "Category"
	propPaidBy        = "Paid By"
	propNotes         = "Notes"
	propRecordedAt    = "Recorded At"
)

// TransactionToNotionProperties converts a transaction to Notion properties.
// userName and categoryName are the display names of its ids; empty names
// fall back to the ids themselves.
func TransactionToNotionProperties(tx domain.Transaction, userName, categoryName string) notionapi.Properties {
	if userName == "" {
		userName = tx.UserID
	}
	if categoryName == "" {
		categoryName = tx.CategoryID
	}

	props := notionapi.Properties{
		propDescription: notionapi.TitleProperty{
			Title: richText(tx.Description),
		},
		propTransactionID: notionapi.RichTextProperty{
			RichText: richText(tx.ID),
		},
		propDate: notionapi.DateProperty{
			Date: &notionapi.DateObject{
				Start: notionDate(tx.Date),
			},
		},
		propAmount: notionapi.NumberProperty{
			Number: tx.Amount,
		},
		propType: notionapi.SelectProperty{
			Select: notionapi.Option{
				Name: string(tx.Type),
			},
		},
		propCategory: notionapi.SelectProperty{
			Select: notionapi.Option{
				Name: categoryName,
			},
		},
		propPaidBy: notionapi.SelectProperty{
			Select: notionapi.Option{
				Name: userName,
			},
		},
	}

	if tx.Notes != "" {
		props[propNotes] = notionapi.RichTextProperty{
			RichText: richText(tx.Notes),
		}
	}

	if !tx.CreatedAt.IsZero() {
		created := tx.CreatedAt
		props[propRecordedAt] = notionapi.DateProperty{
			Date: &notionapi.DateObject{
				Start: (*notionapi.Date)(&created),
			},
		}
	}

	return props
}

func richText(content string) []notionapi.RichText {
	return []notionapi.RichText{
		{
			Type: notionapi.ObjectTypeText,
			Text: &notionapi.Text{
				Content: content,
			},
		},
	}
}

func notionDate(d civil.Date) *notionapi.Date {
	nd := notionapi.Date(time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC))
	return &nd
}

// extractTransactionID returns the Transaction ID property of a page read
// back from Notion, or "" when it has none.
func extractTransactionID(page notionapi.Page) string {
	if prop, ok := page.Properties[propTransactionID]; ok {
		if rt, ok := prop.(*notionapi.RichTextProperty); ok {
			if len(rt.RichText) > 0 {
				return rt.RichText[0].PlainText
			}
		}
	}
	return ""
}

// extractDate returns the Date property of a page read back from Notion.
// ok is false when the page carries no date.
func extractDate(page notionapi.Page) (civil.Date, bool) {
	prop, ok := page.Properties[propDate]
	if !ok {
		return civil.Date{}, false
	}
	dp, ok := prop.(*notionapi.DateProperty)
	if !ok || dp.Date == nil || dp.Date.Start == nil {
		return civil.Date{}, false
	}
	return civil.DateOf(time.Time(*dp.Date.Start)), true
}

// pageMatches reports whether a mirrored page still shows tx. Only the
// fields a ledger edit can change and the page actually carries are
// compared; a page missing one of them is not judged on it.
func pageMatches(page notionapi.Page, tx domain.Transaction) bool {
	if date, ok := extractDate(page); ok && date != tx.Date {
		return false
	}
	if prop, ok := page.Properties[propAmount].(*notionapi.NumberProperty); ok && prop.Number != tx.Amount {
		return false
	}
	if prop, ok := page.Properties[propDescription].(*notionapi.TitleProperty); ok && plainText(prop.Title) != tx.Description {
		return false
	}
	if prop, ok := page.Properties[propType].(*notionapi.SelectProperty); ok && prop.Select.Name != string(tx.Type) {
		return false
	}
	return true
}

func plainText(rt []notionapi.RichText) string {
	var s string
	for _, t := range rt {
		s += t.PlainText
	}
	return s
}
