package notionsync

import (
	"time"

	"github.com/jomei/notionapi"

	"github.com/dvloznov/expense-ai/internal/infra/bigquery"
)

// TransactionToNotionProperties converts a transaction row to Notion page
// properties. The Transaction ID title property is the idempotency key for
// the sync.
func TransactionToNotionProperties(tx *bigquery.TransactionRow, categoryName string) notionapi.Properties {
	props := notionapi.Properties{
		"Transaction ID": notionapi.TitleProperty{
			Title: []notionapi.RichText{
				{
					Type: notionapi.ObjectTypeText,
					Text: &notionapi.Text{
						Content: tx.TransactionID,
					},
				},
			},
		},
		"Vendor Raw": notionapi.RichTextProperty{
			RichText: []notionapi.RichText{
				{
					Type: notionapi.ObjectTypeText,
					Text: &notionapi.Text{
						Content: tx.VendorRaw,
					},
				},
			},
		},
	}

	if tx.VendorNormalized.Valid && tx.VendorNormalized.StringVal != "" {
		props["Vendor"] = notionapi.SelectProperty{
			Select: notionapi.Option{
				Name: tx.VendorNormalized.StringVal,
			},
		}
	}

	if tx.Amount != nil {
		amount, _ := tx.Amount.Float64()
		props["Amount"] = notionapi.NumberProperty{
			Number: amount,
		}
	}

	// Unresolved dates stay as free text instead of a date property.
	if parsed, err := time.Parse("2006-01-02", tx.TransactionDate); err == nil {
		d := notionapi.Date(parsed)
		props["Date"] = notionapi.DateProperty{
			Date: &notionapi.DateObject{Start: &d},
		}
	} else if tx.TransactionDate != "" {
		props["Date Raw"] = notionapi.RichTextProperty{
			RichText: []notionapi.RichText{
				{
					Type: notionapi.ObjectTypeText,
					Text: &notionapi.Text{
						Content: tx.TransactionDate,
					},
				},
			},
		}
	}

	if categoryName != "" {
		props["Category"] = notionapi.SelectProperty{
			Select: notionapi.Option{
				Name: categoryName,
			},
		}
	}

	return props
}

// extractTransactionID pulls the Transaction ID title out of a Notion page,
// or "" when the page has no usable title.
func extractTransactionID(page notionapi.Page) string {
	prop, ok := page.Properties["Transaction ID"]
	if !ok {
		return ""
	}
	switch p := prop.(type) {
	case *notionapi.TitleProperty:
		if len(p.Title) > 0 {
			return p.Title[0].PlainText
		}
	case *notionapi.RichTextProperty:
		if len(p.RichText) > 0 {
			return p.RichText[0].PlainText
		}
	}
	return ""
}
