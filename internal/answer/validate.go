package answer

import (
	"fmt"
	"math"
	"strings"
)

// Validate checks a submission against the question's answer template and
// returns human-readable problems. An empty result means the submission
// may be graded. tmpl may be nil when the question has no template.
func Validate(sub Submission, tmpl *Template, category Category) []string {
	var errs []string

	if tmpl != nil {
		for _, f := range tmpl.Fields {
			if f.Required && isBlank(sub[f.Name]) {
				errs = append(errs, requiredMessage(f))
			}
		}

		for _, f := range tmpl.Fields {
			if f.Type != FieldNumber {
				continue
			}
			v, ok := sub[f.Name]
			if !ok || v == nil {
				continue
			}
			if msg := numberProblem(f.DisplayLabel(), v); msg != "" {
				errs = append(errs, msg)
			}
		}
	}

	errs = append(errs, lineAmountProblems(sub)...)

	if category == CategoryJournal && hasDuplicateAccounts(sub) {
		errs = append(errs, "the same account cannot be selected more than once")
	}

	return errs
}

func requiredMessage(f Field) string {
	msg := fmt.Sprintf("%s is required", f.DisplayLabel())
	switch {
	case f.Type == FieldText && f.Name == "date":
		msg += "; enter it as month/day (e.g. 4/1)"
	case f.Type == FieldText && f.Name == "description":
		msg += "; briefly describe the transaction"
	case f.Type == FieldNumber:
		msg += "; enter a number"
	case f.Type == FieldDropdown:
		msg += "; choose an option from the list"
	}
	return msg
}

func numberProblem(label string, v any) string {
	n, ok := v.(float64)
	if !ok || math.IsNaN(n) || math.IsInf(n, 0) {
		return fmt.Sprintf("%s must be a valid number", label)
	}
	if n < 0 {
		return fmt.Sprintf("%s must be zero or greater", label)
	}
	return ""
}

// lineAmountProblems checks amounts nested in debits, credits and entries.
func lineAmountProblems(sub Submission) []string {
	var errs []string
	for _, group := range []string{"debits", "credits", "entries"} {
		items, ok := sub[group].([]any)
		if !ok {
			continue
		}
		for i, item := range items {
			m, ok := item.(map[string]any)
			if !ok {
				continue
			}
			v, ok := m["amount"]
			if !ok || v == nil {
				continue
			}
			if msg := numberProblem(fmt.Sprintf("%s line %d amount", group, i+1), v); msg != "" {
				errs = append(errs, msg)
			}
		}
	}
	return errs
}

// hasDuplicateAccounts reports whether any account name is chosen twice
// across the debit and credit side of a journal answer.
func hasDuplicateAccounts(sub Submission) bool {
	seen := make(map[string]bool)
	add := func(v any) bool {
		name, ok := v.(string)
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return false
		}
		if seen[name] {
			return true
		}
		seen[name] = true
		return false
	}

	for _, k := range sortedKeys(sub) {
		if strings.Contains(k, "account") && add(sub[k]) {
			return true
		}
	}
	for _, group := range []string{"debits", "credits"} {
		items, _ := sub[group].([]any)
		for _, item := range items {
			if m, ok := item.(map[string]any); ok && add(m["account"]) {
				return true
			}
		}
	}
	return false
}

func isBlank(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}
