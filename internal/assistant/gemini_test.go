package assistant

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dvloznov/zerobalance/internal/domain"
	"github.com/google/go-cmp/cmp"
	"google.golang.org/genai"
)

// fakeGenerator is a mock TextGenerator for testing.
type fakeGenerator struct {
	response string
	err      error

	calls        int
	systemPrompt string
	userPrompt   string
	schema       *genai.Schema
}

func (f *fakeGenerator) GenerateJSON(_ context.Context, systemPrompt, userPrompt string, schema *genai.Schema) (string, error) {
	f.calls++
	f.systemPrompt = systemPrompt
	f.userPrompt = userPrompt
	f.schema = schema
	return f.response, f.err
}

func TestModelExtractor_Extract(t *testing.T) {
	req := ExtractionRequest{
		Utterance:   "Paid 500 for groceries yesterday",
		Users:       refs("u1", "Alice"),
		Categories:  refs("groceries", "Groceries"),
		CurrentDate: "2024-03-10",
	}

	t.Run("decodes action and sends reference data", func(t *testing.T) {
		gen := &fakeGenerator{response: "```json\n{\"action\":\"INFO\",\"params\":{\"aiResponse\":\"Hi\"}}\n```"}
		la, err := NewModelExtractor(gen).Extract(context.Background(), req)
		if err != nil {
			t.Fatalf("Extract() error = %v", err)
		}
		if la.Action != "INFO" || la.Raw != gen.response {
			t.Errorf("Extract() = %+v", la)
		}
		for _, want := range []string{"- Alice (ID: u1)", "- Groceries (ID: groceries)", "2024-03-10", "User input: Paid 500 for groceries yesterday"} {
			if !strings.Contains(gen.userPrompt, want) {
				t.Errorf("prompt missing %q:\n%s", want, gen.userPrompt)
			}
		}
		if gen.systemPrompt != chatSystemPrompt {
			t.Error("chat system prompt not used")
		}
		if gen.schema == nil || gen.schema.Type != genai.TypeObject {
			t.Errorf("schema = %+v, want object schema", gen.schema)
		}
	})

	t.Run("empty answer is no value", func(t *testing.T) {
		la, err := NewModelExtractor(&fakeGenerator{}).Extract(context.Background(), req)
		if la != nil || err != nil {
			t.Errorf("Extract() = %v, %v; want nil, nil", la, err)
		}
	})

	t.Run("backend error passes through", func(t *testing.T) {
		wantErr := errors.New("quota exceeded")
		_, err := NewModelExtractor(&fakeGenerator{err: wantErr}).Extract(context.Background(), req)
		if !errors.Is(err, wantErr) {
			t.Errorf("Extract() error = %v, want %v", err, wantErr)
		}
	})

	t.Run("unparseable answer keeps raw text", func(t *testing.T) {
		la, err := NewModelExtractor(&fakeGenerator{response: "I cannot help"}).Extract(context.Background(), req)
		if err == nil {
			t.Fatal("Extract() expected error")
		}
		if la == nil || la.Raw != "I cannot help" {
			t.Errorf("Extract() raw not kept: %+v", la)
		}
	})
}

func TestModelExtractor_ThroughResolver(t *testing.T) {
	gen := &fakeGenerator{response: `{"action":"ADD_TRANSACTION","params":{"userId":"u1","description":"Coffee","amount":4.5,"date":"2024-03-10","categoryName":"Food & Dining"}}`}
	r := NewResolver(NewModelExtractor(gen))

	got := r.Resolve(context.Background(), Request{
		Utterance:   "Alice had a coffee for 4.50 today",
		Users:       refs("u1", "Alice"),
		Categories:  refs("food-dining", "Food & Dining", "other", "Other"),
		CurrentDate: "2024-03-10",
	})

	want := domain.AddTransaction{
		UserID:      "u1",
		Description: "Coffee",
		Amount:      4.5,
		Date:        "2024-03-10",
		CategoryID:  "food-dining",
		Type:        domain.TypeExpense,
	}
	if diff := cmp.Diff(domain.Action(want), got); diff != "" {
		t.Errorf("Resolve() mismatch (-want +got):\n%s", diff)
	}
}

func TestCategorizer_Suggest(t *testing.T) {
	cats := refs("food-dining", "Food & Dining", "other", "Other")

	tests := []struct {
		name     string
		response string
		genErr   error
		want     CategorySuggestion
		wantErr  bool
	}{
		{
			name:     "valid suggestion",
			response: `{"category":"Food & Dining","confidence":0.92}`,
			want:     CategorySuggestion{Category: "Food & Dining", Confidence: 0.92},
		},
		{
			name:     "confidence out of range",
			response: `{"category":"Food & Dining","confidence":1.5}`,
			wantErr:  true,
		},
		{
			name:     "empty category",
			response: `{"category":" ","confidence":0.5}`,
			wantErr:  true,
		},
		{
			name:     "empty response",
			response: "",
			wantErr:  true,
		},
		{
			name:    "backend error",
			genErr:  errors.New("unavailable"),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &fakeGenerator{response: tt.response, err: tt.genErr}
			got, err := NewCategorizer(gen).Suggest(context.Background(), "Starbucks latte", cats)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Suggest() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Suggest() mismatch (-want +got):\n%s", diff)
			}
			if !strings.Contains(gen.userPrompt, "- Food & Dining") || !strings.Contains(gen.userPrompt, "Starbucks latte") {
				t.Errorf("prompt = %q", gen.userPrompt)
			}
		})
	}

	gen := &fakeGenerator{}
	if _, err := NewCategorizer(gen).Suggest(context.Background(), "  ", cats); err == nil {
		t.Error("Suggest() expected error for blank description")
	}
	if gen.calls != 0 {
		t.Error("model called for blank description")
	}
}

func TestMatchSuggestion(t *testing.T) {
	cats := refs("food-dining", "Food & Dining", "other", "Other")

	if id, ok := MatchSuggestion(CategorySuggestion{Category: "food & dining"}, cats); id != "food-dining" || !ok {
		t.Errorf("MatchSuggestion() = %q, %v", id, ok)
	}
	if id, ok := MatchSuggestion(CategorySuggestion{Category: "Coffee"}, cats); id != "other" || ok {
		t.Errorf("MatchSuggestion() = %q, %v; want other, false", id, ok)
	}
}

func TestSubscriptionReviewer_Review(t *testing.T) {
	txs := []ReviewTransaction{
		{Description: "NETFLIX.COM", Date: "2024-01-05", Amount: 15.99},
		{Description: "NETFLIX.COM", Date: "2024-02-05", Amount: 15.99},
	}

	t.Run("parses review", func(t *testing.T) {
		gen := &fakeGenerator{response: `{
			"potentialSubscriptions": [{
				"name": "Netflix",
				"averageAmount": 15.99,
				"estimatedFrequency": "Monthly",
				"confidence": 0.95,
				"supportingEvidence": ["NETFLIX.COM"]
			}],
			"summary": "One streaming subscription."
		}`}

		got, err := NewSubscriptionReviewer(gen).Review(context.Background(), SubscriptionReviewRequest{
			Transactions:         txs,
			AnalysisPeriodMonths: 2,
		})
		if err != nil {
			t.Fatalf("Review() error = %v", err)
		}

		want := &SubscriptionReview{
			PotentialSubscriptions: []Subscription{{
				Name:               "Netflix",
				AverageAmount:      15.99,
				EstimatedFrequency: "Monthly",
				Confidence:         0.95,
				SupportingEvidence: []string{"NETFLIX.COM"},
			}},
			Summary: "One streaming subscription.",
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("Review() mismatch (-want +got):\n%s", diff)
		}
		if !strings.Contains(gen.userPrompt, "period of 2 months") || !strings.Contains(gen.userPrompt, `"NETFLIX.COM"`) {
			t.Errorf("prompt = %q", gen.userPrompt)
		}
	})

	t.Run("no transactions skips the model", func(t *testing.T) {
		gen := &fakeGenerator{}
		got, err := NewSubscriptionReviewer(gen).Review(context.Background(), SubscriptionReviewRequest{AnalysisPeriodMonths: 3})
		if err != nil {
			t.Fatalf("Review() error = %v", err)
		}
		if gen.calls != 0 {
			t.Error("model called for empty transaction list")
		}
		if len(got.PotentialSubscriptions) != 0 || got.Summary != "No transactions to analyze." {
			t.Errorf("Review() = %+v", got)
		}
	})

	t.Run("invalid period", func(t *testing.T) {
		if _, err := NewSubscriptionReviewer(&fakeGenerator{}).Review(context.Background(), SubscriptionReviewRequest{Transactions: txs}); err == nil {
			t.Error("Review() expected error for zero months")
		}
	})

	t.Run("bad confidence", func(t *testing.T) {
		gen := &fakeGenerator{response: `{"potentialSubscriptions":[{"name":"Gym","confidence":7}]}`}
		if _, err := NewSubscriptionReviewer(gen).Review(context.Background(), SubscriptionReviewRequest{Transactions: txs, AnalysisPeriodMonths: 2}); err == nil {
			t.Error("Review() expected validation error")
		}
	})

	t.Run("empty response", func(t *testing.T) {
		if _, err := NewSubscriptionReviewer(&fakeGenerator{}).Review(context.Background(), SubscriptionReviewRequest{Transactions: txs, AnalysisPeriodMonths: 2}); err == nil {
			t.Error("Review() expected error for empty response")
		}
	})
}
