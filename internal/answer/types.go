package answer

import "fmt"

// Category identifies the exam section a question belongs to.
type Category string

const (
	CategoryJournal      Category = "journal"
	CategoryLedger       Category = "ledger"
	CategoryTrialBalance Category = "trial_balance"
)

// Categories lists every gradable category in exam order.
var Categories = []Category{CategoryJournal, CategoryLedger, CategoryTrialBalance}

// ParseCategory converts a stored category id into a Category.
func ParseCategory(s string) (Category, error) {
	switch Category(s) {
	case CategoryJournal, CategoryLedger, CategoryTrialBalance:
		return Category(s), nil
	default:
		return "", fmt.Errorf("unknown category %q", s)
	}
}

// DisplayName returns the human-readable section name.
func (c Category) DisplayName() string {
	switch c {
	case CategoryJournal:
		return "Journal entries"
	case CategoryLedger:
		return "Ledgers"
	case CategoryTrialBalance:
		return "Trial balance"
	default:
		return string(c)
	}
}

// Line is a single account/amount pair on one side of a journal entry.
type Line struct {
	Account string  `json:"account"`
	Amount  float64 `json:"amount"`
}

// LedgerLine is one row of a ledger answer. Empty fields in an expected
// line are not compared.
type LedgerLine struct {
	Account     string   `json:"account,omitempty"`
	Description string   `json:"description,omitempty"`
	Amount      *float64 `json:"amount,omitempty"`
}

// Key is the correct-answer payload of a question. The set of
// implementations is closed: JournalKey, LedgerKey and TrialBalanceKey.
type Key interface {
	Category() Category
	isKey()
}

// JournalKey is the expected journal entry. Simple questions have exactly
// one debit and one credit line.
type JournalKey struct {
	Debits  []Line `json:"debits"`
	Credits []Line `json:"credits"`
}

func (JournalKey) Category() Category { return CategoryJournal }
func (JournalKey) isKey()             {}

// LedgerKey is the expected list of ledger rows, compared by index.
type LedgerKey struct {
	Entries []LedgerLine `json:"entries"`
}

func (LedgerKey) Category() Category { return CategoryLedger }
func (LedgerKey) isKey()             {}

// TrialBalanceKey maps account names to their expected balance.
type TrialBalanceKey struct {
	Balances map[string]float64 `json:"balances"`
}

func (TrialBalanceKey) Category() Category { return CategoryTrialBalance }
func (TrialBalanceKey) isKey()             {}

// Response is a learner's answer converted to the typed shape of its
// category. The set of implementations mirrors Key.
type Response interface {
	Category() Category
	isResponse()
}

// JournalResponse holds the debit and credit lines entered by the learner.
type JournalResponse struct {
	Debits  []Line
	Credits []Line
}

func (JournalResponse) Category() Category { return CategoryJournal }
func (JournalResponse) isResponse()        {}

// LedgerResponse holds the ledger rows entered by the learner, in order.
type LedgerResponse struct {
	Entries []LedgerLine
}

func (LedgerResponse) Category() Category { return CategoryLedger }
func (LedgerResponse) isResponse()        {}

// TrialBalanceResponse maps account names to the balance entered.
type TrialBalanceResponse struct {
	Balances map[string]float64
}

func (TrialBalanceResponse) Category() Category { return CategoryTrialBalance }
func (TrialBalanceResponse) isResponse()        {}

// FieldType describes how an answer template field is entered.
type FieldType string

const (
	FieldNumber   FieldType = "number"
	FieldText     FieldType = "text"
	FieldDropdown FieldType = "dropdown"
)

// Field is one input of an answer template.
type Field struct {
	Name     string    `json:"name"`
	Label    string    `json:"label"`
	Type     FieldType `json:"type"`
	Required bool      `json:"required"`
}

// DisplayLabel returns the label, or the field name when no label is set.
func (f Field) DisplayLabel() string {
	if f.Label != "" {
		return f.Label
	}
	return f.Name
}

// Template describes the inputs the answer form offers for a question.
type Template struct {
	Type   string  `json:"type"`
	Fields []Field `json:"fields"`
}

// Submission is the raw, loosely typed answer as posted by the form.
// Keys are template field names; values are decoded JSON.
type Submission map[string]any
