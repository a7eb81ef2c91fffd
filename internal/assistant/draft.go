package assistant

import (
	"encoding/json"
	"fmt"
	"strings"
)

// LooseAction is the backend's unvalidated answer: an action tag plus
// whatever params object came with it. Nothing in it is trusted.
type LooseAction struct {
	Action string          `json:"action"`
	Params json.RawMessage `json:"params,omitempty"`

	// Raw is the backend text the action was decoded from, kept for audit.
	Raw string `json:"-"`
}

// LooseDraft is the add-transaction candidate as the backend produced it.
// Any field may be missing or malformed; a nil pointer means the field was
// absent or had the wrong JSON type.
type LooseDraft struct {
	UserID       *string  `json:"userId,omitempty"`
	Description  *string  `json:"description,omitempty"`
	Amount       *float64 `json:"amount,omitempty"`
	Date         *string  `json:"date,omitempty"`
	CategoryName *string  `json:"categoryName,omitempty"`
	Type         *string  `json:"type,omitempty"`
}

// ParseLooseAction decodes backend text into a LooseAction. It tolerates
// Markdown code fences and chatter around the JSON object.
func ParseLooseAction(text string) (*LooseAction, error) {
	clean := cleanModelJSON(text)
	if clean == "" || clean == "null" {
		return nil, nil
	}

	var la LooseAction
	if err := json.Unmarshal([]byte(clean), &la); err != nil {
		return nil, fmt.Errorf("ParseLooseAction: unmarshal JSON: %w", err)
	}
	la.Raw = text
	return &la, nil
}

// Draft decodes the params of an ADD_TRANSACTION action. It only fails when
// params is not a JSON object; wrongly typed fields become nil.
func (la *LooseAction) Draft() (LooseDraft, error) {
	obj, err := paramsObject(la.Params)
	if err != nil {
		return LooseDraft{}, err
	}

	return LooseDraft{
		UserID:       looseString(obj, "userId"),
		Description:  looseString(obj, "description"),
		Amount:       looseNumber(obj, "amount"),
		Date:         looseString(obj, "date"),
		CategoryName: looseString(obj, "categoryName"),
		Type:         looseEnum(obj, "type"),
	}, nil
}

func paramsObject(params json.RawMessage) (map[string]interface{}, error) {
	if len(params) == 0 || string(params) == "null" {
		return nil, fmt.Errorf("params: required")
	}
	var obj map[string]interface{}
	if err := json.Unmarshal(params, &obj); err != nil {
		return nil, fmt.Errorf("params: expected object: %w", err)
	}
	if obj == nil {
		return nil, fmt.Errorf("params: expected object, got null")
	}
	return obj, nil
}

func looseString(m map[string]interface{}, key string) *string {
	s, ok := m[key].(string)
	if !ok {
		return nil
	}
	return &s
}

func looseNumber(m map[string]interface{}, key string) *float64 {
	f, ok := m[key].(float64)
	if !ok {
		return nil
	}
	return &f
}

// looseEnum keeps a non-string value in printed form so the validator
// rejects it instead of the canonicalizer silently defaulting it.
func looseEnum(m map[string]interface{}, key string) *string {
	v, ok := m[key]
	if !ok || v == nil {
		return nil
	}
	if s, ok := v.(string); ok {
		return &s
	}
	s := fmt.Sprint(v)
	return &s
}

// cleanModelJSON strips Markdown fences and keeps only the outermost
// JSON object of a model response.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	// Handle ```json ... ``` or ``` ... ``` wrappers.
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			s = strings.TrimPrefix(s, "```")
		}
		s = strings.TrimSpace(s)
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end != -1 && end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}

	return s
}
