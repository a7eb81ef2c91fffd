package assistant

import (
	"google.golang.org/genai"

	"github.com/dvloznov/zerobalance/internal/domain"
)

// chatActionSchema is the loose response schema sent to Gemini. Params is
// a single object with every field optional; which fields matter depends
// on the action and is enforced after the call, not by the model.
func chatActionSchema() *genai.Schema {
	str := func(desc string) *genai.Schema {
		return &genai.Schema{Type: genai.TypeString, Description: desc}
	}

	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"action": {
				Type: genai.TypeString,
				Enum: []string{
					string(domain.KindAddTransaction),
					string(domain.KindListTransactions),
					string(domain.KindClarify),
					string(domain.KindInfo),
					string(domain.KindError),
				},
			},
			"params": {
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"userId":      str("ID of the user who paid, taken from the users list."),
					"description": str("Brief description of the transaction, e.g. Groceries."),
					"amount": {
						Type:        genai.TypeNumber,
						Description: "Monetary amount. Extract only the number.",
					},
					"date":         str("Transaction date in YYYY-MM-DD format."),
					"categoryName": str("Common category name, e.g. Groceries. Omit if unknown."),
					"type": {
						Type: genai.TypeString,
						Enum: []string{string(domain.TypeIncome), string(domain.TypeExpense)},
					},
					"period":              str("Period to list, e.g. this month."),
					"user":                str("User name filter."),
					"category":            str("Category name filter."),
					"clarificationNeeded": str("Question asking the user for missing information."),
					"aiResponse":          str("General helpful message."),
					"errorMessage":        str("Internal error description."),
				},
			},
		},
		Required: []string{"action", "params"},
	}
}

func categorySuggestionSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"category":   {Type: genai.TypeString},
			"confidence": {Type: genai.TypeNumber},
		},
		Required: []string{"category", "confidence"},
	}
}

func subscriptionReviewSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"potentialSubscriptions": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"name":               {Type: genai.TypeString},
						"averageAmount":      {Type: genai.TypeNumber},
						"estimatedFrequency": {Type: genai.TypeString},
						"confidence":         {Type: genai.TypeNumber},
						"supportingEvidence": {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
						"notes":              {Type: genai.TypeString},
					},
					Required: []string{"name", "averageAmount", "estimatedFrequency", "confidence", "supportingEvidence"},
				},
			},
			"summary": {Type: genai.TypeString},
		},
		Required: []string{"potentialSubscriptions"},
	}
}
