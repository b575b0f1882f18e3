package answer

import (
	"sort"
	"strings"
)

// IsCorrect grades a typed response against the question's key. It has no
// side effects; a response of the wrong category is never correct.
func IsCorrect(resp Response, key Key) bool {
	switch k := key.(type) {
	case JournalKey:
		r, ok := resp.(JournalResponse)
		return ok && journalCorrect(r, k)
	case LedgerKey:
		r, ok := resp.(LedgerResponse)
		return ok && ledgerCorrect(r, k)
	case TrialBalanceKey:
		r, ok := resp.(TrialBalanceResponse)
		return ok && trialBalanceCorrect(r, k)
	default:
		return false
	}
}

// journalCorrect requires every debit and credit line to match exactly.
// Line order within a side is irrelevant.
func journalCorrect(r JournalResponse, k JournalKey) bool {
	if len(k.Debits) == 0 || len(k.Credits) == 0 {
		return false
	}
	return sameLines(r.Debits, k.Debits) && sameLines(r.Credits, k.Credits)
}

func sameLines(got, want []Line) bool {
	if len(got) != len(want) {
		return false
	}
	g := sortLines(got)
	w := sortLines(want)
	for i := range w {
		if g[i].Account != w[i].Account || g[i].Amount != w[i].Amount {
			return false
		}
	}
	return true
}

func sortLines(lines []Line) []Line {
	out := append([]Line(nil), lines...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Account != out[j].Account {
			return out[i].Account < out[j].Account
		}
		return out[i].Amount < out[j].Amount
	})
	return out
}

// ledgerCorrect compares expected rows by index. Only the non-empty fields
// of an expected row are checked; a missing learner row fails the answer.
func ledgerCorrect(r LedgerResponse, k LedgerKey) bool {
	if len(k.Entries) == 0 {
		return false
	}
	for i, want := range k.Entries {
		if i >= len(r.Entries) {
			return false
		}
		got := r.Entries[i]
		if want.Account != "" && got.Account != want.Account {
			return false
		}
		if want.Amount != nil && (got.Amount == nil || *got.Amount != *want.Amount) {
			return false
		}
		if want.Description != "" && !descriptionMatches(got.Description, want.Description) {
			return false
		}
	}
	return true
}

// descriptionMatches accepts either text containing the other, so
// "purchase of goods" matches the expected "purchase".
func descriptionMatches(got, want string) bool {
	got = strings.TrimSpace(got)
	if got == "" {
		return false
	}
	return strings.Contains(got, want) || strings.Contains(want, got)
}

// trialBalanceCorrect requires every expected account balance to be present
// with the exact amount.
func trialBalanceCorrect(r TrialBalanceResponse, k TrialBalanceKey) bool {
	if len(k.Balances) == 0 {
		return false
	}
	for _, account := range sortedKeys(k.Balances) {
		got, ok := r.Balances[account]
		if !ok || got != k.Balances[account] {
			return false
		}
	}
	return true
}
