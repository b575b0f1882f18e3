package answer

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// ParseKey decodes and validates a stored correct-answer payload for the
// given category. Any failure is reported as a *DataIntegrityError.
func ParseKey(category Category, raw []byte) (Key, error) {
	schema, err := keySchemaFor(category)
	if err != nil {
		return nil, &DataIntegrityError{Payload: "correct answer", Err: err}
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, &DataIntegrityError{Payload: "correct answer", Err: fmt.Errorf("invalid JSON: %w", err)}
	}
	if err := validateDocument(schema, doc); err != nil {
		return nil, &DataIntegrityError{Payload: "correct answer", Err: err}
	}

	key, err := decodeKey(category, raw)
	if err != nil {
		return nil, &DataIntegrityError{Payload: "correct answer", Err: err}
	}
	return key, nil
}

type journalKeyJSON struct {
	JournalEntry struct {
		DebitAccount  string  `json:"debit_account,omitempty"`
		DebitAmount   float64 `json:"debit_amount,omitempty"`
		CreditAccount string  `json:"credit_account,omitempty"`
		CreditAmount  float64 `json:"credit_amount,omitempty"`
		Debits        []Line  `json:"debits,omitempty"`
		Credits       []Line  `json:"credits,omitempty"`
	} `json:"journalEntry"`
}

type ledgerKeyJSON struct {
	LedgerEntry struct {
		Entries []LedgerLine `json:"entries"`
	} `json:"ledgerEntry"`
}

type trialBalanceKeyJSON struct {
	TrialBalance struct {
		Balances map[string]float64 `json:"balances"`
	} `json:"trialBalance"`
}

func decodeKey(category Category, raw []byte) (Key, error) {
	switch category {
	case CategoryJournal:
		var v journalKeyJSON
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		je := v.JournalEntry
		if je.DebitAccount != "" && je.CreditAccount != "" {
			return JournalKey{
				Debits:  []Line{{Account: je.DebitAccount, Amount: je.DebitAmount}},
				Credits: []Line{{Account: je.CreditAccount, Amount: je.CreditAmount}},
			}, nil
		}
		return JournalKey{Debits: je.Debits, Credits: je.Credits}, nil

	case CategoryLedger:
		var v ledgerKeyJSON
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return LedgerKey{Entries: v.LedgerEntry.Entries}, nil

	case CategoryTrialBalance:
		var v trialBalanceKeyJSON
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return TrialBalanceKey{Balances: v.TrialBalance.Balances}, nil
	}
	return nil, fmt.Errorf("unsupported category %q", category)
}

// EncodeKey renders a key back into its stored JSON shape.
func EncodeKey(key Key) ([]byte, error) {
	switch k := key.(type) {
	case JournalKey:
		var v journalKeyJSON
		if len(k.Debits) == 1 && len(k.Credits) == 1 {
			v.JournalEntry.DebitAccount = k.Debits[0].Account
			v.JournalEntry.DebitAmount = k.Debits[0].Amount
			v.JournalEntry.CreditAccount = k.Credits[0].Account
			v.JournalEntry.CreditAmount = k.Credits[0].Amount
		} else {
			v.JournalEntry.Debits = k.Debits
			v.JournalEntry.Credits = k.Credits
		}
		return json.Marshal(v)
	case LedgerKey:
		var v ledgerKeyJSON
		v.LedgerEntry.Entries = k.Entries
		return json.Marshal(v)
	case TrialBalanceKey:
		var v trialBalanceKeyJSON
		v.TrialBalance.Balances = k.Balances
		return json.Marshal(v)
	}
	return nil, fmt.Errorf("unsupported key type %T", key)
}

// ParseTemplate decodes and validates a stored answer template.
func ParseTemplate(raw []byte) (*Template, error) {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, &DataIntegrityError{Payload: "answer template", Err: fmt.Errorf("invalid JSON: %w", err)}
	}
	if err := validateDocument(TemplateSchema, doc); err != nil {
		return nil, &DataIntegrityError{Payload: "answer template", Err: err}
	}
	var t Template
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, &DataIntegrityError{Payload: "answer template", Err: err}
	}
	return &t, nil
}

// ParseSubmission decodes a posted answer. The payload must be a JSON object.
func ParseSubmission(raw []byte) (Submission, error) {
	var s Submission
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decode answer: %w", err)
	}
	if s == nil {
		return nil, fmt.Errorf("decode answer: expected a JSON object")
	}
	return s, nil
}

// Response converts the loosely typed submission into the typed answer for
// category. It fails only when the submission's structure is unusable.
func (s Submission) Response(category Category) (Response, error) {
	switch category {
	case CategoryJournal:
		return s.journalResponse()
	case CategoryLedger:
		return s.ledgerResponse()
	case CategoryTrialBalance:
		return s.trialBalanceResponse()
	}
	return nil, fmt.Errorf("unsupported category %q", category)
}

func (s Submission) journalResponse() (Response, error) {
	debits, hasDebits := s["debits"]
	credits, hasCredits := s["credits"]
	if hasDebits || hasCredits {
		d, err := toLines(debits)
		if err != nil {
			return nil, fmt.Errorf("debits: %w", err)
		}
		c, err := toLines(credits)
		if err != nil {
			return nil, fmt.Errorf("credits: %w", err)
		}
		return JournalResponse{Debits: nonEmptyLines(d), Credits: nonEmptyLines(c)}, nil
	}

	debitAmount, _ := s["debit_amount"].(float64)
	creditAmount, _ := s["credit_amount"].(float64)
	return JournalResponse{
		Debits:  []Line{{Account: stringField(s, "debit_account"), Amount: debitAmount}},
		Credits: []Line{{Account: stringField(s, "credit_account"), Amount: creditAmount}},
	}, nil
}

func (s Submission) ledgerResponse() (Response, error) {
	raw, ok := s["entries"]
	if !ok {
		line := LedgerLine{
			Account:     stringField(s, "account"),
			Description: stringField(s, "description"),
		}
		if amt, ok := s["amount"].(float64); ok {
			line.Amount = &amt
		}
		return LedgerResponse{Entries: []LedgerLine{line}}, nil
	}

	items, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("entries: expected an array")
	}
	entries := make([]LedgerLine, 0, len(items))
	for i, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("entries[%d]: expected an object", i)
		}
		line := LedgerLine{
			Account:     stringField(m, "account"),
			Description: stringField(m, "description"),
		}
		if amt, ok := m["amount"].(float64); ok {
			line.Amount = &amt
		}
		entries = append(entries, line)
	}
	return LedgerResponse{Entries: entries}, nil
}

func (s Submission) trialBalanceResponse() (Response, error) {
	source := map[string]any(s)
	if nested, ok := s["balances"]; ok {
		m, ok := nested.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("balances: expected an object")
		}
		source = m
	}

	balances := make(map[string]float64, len(source))
	for account, v := range source {
		if amt, ok := v.(float64); ok {
			balances[account] = amt
		}
	}
	return TrialBalanceResponse{Balances: balances}, nil
}

func toLines(v any) ([]Line, error) {
	if v == nil {
		return nil, nil
	}
	items, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("expected an array")
	}
	lines := make([]Line, 0, len(items))
	for i, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("[%d]: expected an object", i)
		}
		amt, _ := m["amount"].(float64)
		lines = append(lines, Line{Account: stringField(m, "account"), Amount: amt})
	}
	return lines, nil
}

// nonEmptyLines drops form rows left blank: no account or a zero amount.
func nonEmptyLines(lines []Line) []Line {
	out := lines[:0:0]
	for _, l := range lines {
		if l.Account != "" && l.Amount > 0 {
			out = append(out, l)
		}
	}
	return out
}

func stringField(m map[string]any, name string) string {
	s, _ := m[name].(string)
	return strings.TrimSpace(s)
}

// sortedKeys returns the keys of m in lexical order.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
