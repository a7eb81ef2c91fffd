package domain

import (
	"encoding/json"
	"fmt"
)

// ActionKind is the wire tag of a resolver action.
type ActionKind string

const (
	KindAddTransaction   ActionKind = "ADD_TRANSACTION"
	KindListTransactions ActionKind = "LIST_TRANSACTIONS"
	KindClarify          ActionKind = "CLARIFY"
	KindInfo             ActionKind = "INFO"
	KindError            ActionKind = "ERROR"
)

// TransactionType is either income or expense.
type TransactionType string

const (
	TypeIncome  TransactionType = "income"
	TypeExpense TransactionType = "expense"
)

// Valid reports whether t is one of the known transaction types.
func (t TransactionType) Valid() bool {
	return t == TypeIncome || t == TypeExpense
}

// Action is the closed set of outcomes of one chat resolution.
// Only the types declared in this file implement it.
type Action interface {
	Kind() ActionKind
	isAction()
}

// AddTransaction records a fully validated transaction.
type AddTransaction struct {
	UserID      string          `json:"userId"`
	Description string          `json:"description"`
	Amount      float64         `json:"amount"`
	Date        string          `json:"date"` // YYYY-MM-DD
	CategoryID  string          `json:"categoryId"`
	Type        TransactionType `json:"type"`
}

// ListTransactions is informational only; its filters are free text.
type ListTransactions struct {
	Period   *string `json:"period,omitempty"`
	User     *string `json:"user,omitempty"`
	Category *string `json:"category,omitempty"`
}

// Clarify carries a question to relay verbatim to the user.
type Clarify struct {
	ClarificationNeeded string `json:"clarificationNeeded"`
}

// Info carries a message to relay verbatim to the user.
type Info struct {
	AIResponse string `json:"aiResponse"`
}

// Error carries a diagnostic to relay verbatim to the user.
type Error struct {
	ErrorMessage string `json:"errorMessage"`
}

func (AddTransaction) Kind() ActionKind   { return KindAddTransaction }
func (ListTransactions) Kind() ActionKind { return KindListTransactions }
func (Clarify) Kind() ActionKind          { return KindClarify }
func (Info) Kind() ActionKind             { return KindInfo }
func (Error) Kind() ActionKind            { return KindError }

func (AddTransaction) isAction()   {}
func (ListTransactions) isAction() {}
func (Clarify) isAction()          {}
func (Info) isAction()             {}
func (Error) isAction()            {}

// envelope is the JSON form shared with the chat UI:
// {"action": "ADD_TRANSACTION", "params": {...}}.
type envelope struct {
	Action ActionKind      `json:"action"`
	Params json.RawMessage `json:"params"`
}

// MarshalAction encodes an action in its tagged wire form.
func MarshalAction(a Action) ([]byte, error) {
	if a == nil {
		return nil, fmt.Errorf("MarshalAction: nil action")
	}
	params, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("MarshalAction: encoding params: %w", err)
	}
	return json.Marshal(envelope{Action: a.Kind(), Params: params})
}

// UnmarshalAction decodes the tagged wire form produced by MarshalAction.
// It does not validate field contents.
func UnmarshalAction(data []byte) (Action, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("UnmarshalAction: %w", err)
	}

	var a Action
	var err error
	switch env.Action {
	case KindAddTransaction:
		var v AddTransaction
		err = json.Unmarshal(env.Params, &v)
		a = v
	case KindListTransactions:
		var v ListTransactions
		err = json.Unmarshal(env.Params, &v)
		a = v
	case KindClarify:
		var v Clarify
		err = json.Unmarshal(env.Params, &v)
		a = v
	case KindInfo:
		var v Info
		err = json.Unmarshal(env.Params, &v)
		a = v
	case KindError:
		var v Error
		err = json.Unmarshal(env.Params, &v)
		a = v
	default:
		return nil, fmt.Errorf("UnmarshalAction: unknown action %q", env.Action)
	}
	if err != nil {
		return nil, fmt.Errorf("UnmarshalAction: %s params: %w", env.Action, err)
	}
	return a, nil
}
