package assistant

import (
	"fmt"
	"strings"
)

// chatSystemPrompt tells the model which action to pick and how to fill it.
const chatSystemPrompt = `You are a helpful AI assistant for the ZEROBALANCE personal finance app. Your primary goal is to help users manage their transactions by understanding their natural language input.

You MUST respond with a single JSON object of the form {"action": "<ACTION>", "params": {...}}.

Key tasks:
1.  ADD_TRANSACTION: the user wants to record a new transaction.
    *   Extract: description, amount (numeric, ignore currency symbols), date (resolve to YYYY-MM-DD), user who paid (match to the provided user list and use their ID for "userId").
    *   Dates: use the Current Date (YYYY-MM-DD) to resolve relative dates like "today", "yesterday", "last Friday". Assume the current year from Current Date if not specified.
    *   User: match the name mentioned by the user (e.g. "paid by John") to the user list and use the corresponding ID. If no user is mentioned or identifiable, you may need to CLARIFY.
    *   categoryName: infer a suitable category name like "Groceries", "Utilities" or "Entertainment" from the description. If the user names a category, use that. Omit the field if you cannot determine one.
    *   type: "expense" unless "income" or "earning" is explicitly stated.
    *   If any crucial detail other than categoryName is missing or ambiguous, use CLARIFY.
    *   params: {"userId": string, "description": string, "amount": number, "date": string, "categoryName": string (optional), "type": "income" | "expense"}

2.  LIST_TRANSACTIONS: the user asks to see transactions. For now this is informational: respond with INFO guiding them to the filters on the Transactions page.
    *   params: {"period": string (optional), "user": string (optional), "category": string (optional)}

3.  CLARIFY: you need more information to complete an ADD_TRANSACTION request. Ask a clear question.
    *   params: {"clarificationNeeded": string}

4.  INFO: greetings, acknowledgements, or queries better handled by the app's UI.
    *   params: {"aiResponse": string}

5.  ERROR: an internal problem interpreting the request that is not a clarification issue.
    *   params: {"errorMessage": string}

Return ONLY valid raw JSON. Do NOT wrap the response in code fences.
`

// buildChatPrompt renders the per-call part of the prompt: reference
// lists, current date and the utterance.
func buildChatPrompt(req ExtractionRequest) string {
	var b strings.Builder

	b.WriteString("Available Users (name and ID):\n")
	if len(req.Users) == 0 {
		b.WriteString("  (none)\n")
	}
	for _, u := range req.Users {
		fmt.Fprintf(&b, "- %s (ID: %s)\n", u.Name, u.ID)
	}

	b.WriteString("\nAvailable Categories (for ADD_TRANSACTION, infer the name, do not pick an ID from here):\n")
	if len(req.Categories) == 0 {
		b.WriteString("  (none)\n")
	}
	for _, c := range req.Categories {
		fmt.Fprintf(&b, "- %s (ID: %s)\n", c.Name, c.ID)
	}

	fmt.Fprintf(&b, "\nCurrent Date (for relative date calculations): %s\n", req.CurrentDate)
	fmt.Fprintf(&b, "\nUser input: %s\n", req.Utterance)

	return b.String()
}

const categorizeSystemPrompt = `You are a personal finance expert. Your task is to categorize transactions based on their description.

Given a transaction description, suggest a spending category and a confidence level (0 to 1) for your suggestion.
If a list of known categories is given, prefer one of those names.

Respond with a JSON object: {"category": string, "confidence": number}.
Return ONLY valid raw JSON.
`

func buildCategorizePrompt(description string, categories []string) string {
	var b strings.Builder
	if len(categories) > 0 {
		b.WriteString("Known categories:\n")
		for _, c := range categories {
			b.WriteString("- " + c + "\n")
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Description: %s\n", description)
	return b.String()
}

const reviewSystemPrompt = `You are an expert financial analyst specializing in identifying recurring subscriptions and payments from a list of transactions.

Consider the following when identifying subscriptions:
- Repetitive merchant names or descriptions (e.g. "Spotify", "NETFLIX.COM", "AWS").
- Consistent payment amounts, or amounts that fall within a typical range for a service.
- Regular payment intervals (monthly, annually, weekly). Watch out for slight date variations.
- Slight variations in descriptions for the same service ("Google *Storage", "Google *Services") should be grouped.
- Differentiate between one-time purchases and recurring payments.

For each potential subscription, provide a common name, the average amount, the estimated frequency ("Monthly", "Annually", "Weekly", "Bi-weekly", or "Irregular"/"Uncertain"), a confidence level between 0.0 and 1.0, two or three supporting transaction descriptions from the input, and optional brief notes.
If multiple transactions clearly point to the same subscription, list it as ONE subscription.

Respond with a JSON object:
{"potentialSubscriptions": [{"name": string, "averageAmount": number, "estimatedFrequency": string, "confidence": number, "supportingEvidence": [string], "notes": string}], "summary": string}
Return ONLY valid raw JSON.
`

func buildReviewPrompt(req SubscriptionReviewRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "The transaction list covers a period of %d months.\n\nTransaction Data:\n", req.AnalysisPeriodMonths)
	for _, tx := range req.Transactions {
		fmt.Fprintf(&b, "- Description: %q, Date: %s, Amount: %.2f\n", tx.Description, tx.Date, tx.Amount)
	}
	return b.String()
}
