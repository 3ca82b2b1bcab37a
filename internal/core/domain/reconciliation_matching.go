package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Match failure reasons.
const (
	ReasonAmountMismatch = "Amount mismatch"
	ReasonDateOutOfRange = "Date outside tolerance"
	ReasonNotUnmatched   = "Transaction is not unmatched"
)

const defaultDateToleranceDay = 0

// MatchCandidate is a posted journal line against the bank's GL account.
type MatchCandidate struct {
	JournalLineID   string          `json:"journalLineID"`
	JournalEntryID  string          `json:"journalEntryID"`
	EntryNumber     string          `json:"entryNumber"`
	AccountID       string          `json:"accountID"`
	EntryDate       time.Time       `json:"entryDate"`
	TransactionType TransactionType `json:"transactionType"`
	Amount          decimal.Decimal `json:"amount"`
}

// SignedAmount is the movement of the bank GL account: a debit is money in.
func (c MatchCandidate) SignedAmount() decimal.Decimal {
	if c.TransactionType == Credit {
		return c.Amount.Neg()
	}
	return c.Amount
}

// MatchOptions tunes the matching rule.
type MatchOptions struct {
	DateToleranceDays int `json:"dateToleranceDays"`
}

// MatchResult is the outcome of evaluating one transaction against one line.
type MatchResult struct {
	Matched bool   `json:"matched"`
	Reason  string `json:"reason,omitempty"`
}

// DaysBetween counts whole calendar days between a and b, ignoring time of day.
func DaysBetween(a, b time.Time) int {
	da := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	db := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	days := int(da.Sub(db).Hours() / 24)
	if days < 0 {
		return -days
	}
	return days
}

// EvaluateMatch applies the exact-amount and date-tolerance rule without
// touching either side.
func EvaluateMatch(tx *BankTransaction, candidate MatchCandidate, opts MatchOptions) MatchResult {
	if !tx.Amount.Equal(candidate.SignedAmount()) {
		return MatchResult{Reason: ReasonAmountMismatch}
	}
	tolerance := opts.DateToleranceDays
	if tolerance < 0 {
		tolerance = defaultDateToleranceDay
	}
	if DaysBetween(tx.TransactionDate, candidate.EntryDate) > tolerance {
		return MatchResult{Reason: ReasonDateOutOfRange}
	}
	return MatchResult{Matched: true}
}

// MatchTransactionToJournalLine matches tx to the candidate when the rule
// holds. On a rule failure the transaction is left unchanged and the reason
// is returned.
func MatchTransactionToJournalLine(tx *BankTransaction, candidate MatchCandidate, matchedBy string, opts MatchOptions, now time.Time) (MatchResult, error) {
	result := EvaluateMatch(tx, candidate, opts)
	if !result.Matched {
		return result, nil
	}
	if err := tx.Match(candidate.JournalLineID, matchedBy, now); err != nil {
		return MatchResult{Reason: ReasonNotUnmatched}, err
	}
	return result, nil
}

// MatchPair links a matched transaction to its journal line.
type MatchPair struct {
	BankTransactionID string `json:"bankTransactionID"`
	JournalLineID     string `json:"journalLineID"`
}

// AutoMatchResult summarizes an auto-match pass.
type AutoMatchResult struct {
	Examined       int         `json:"examined"`
	Matched        int         `json:"matched"`
	Unmatched      int         `json:"unmatched"`
	AlreadyMatched int         `json:"alreadyMatched"`
	Excluded       int         `json:"excluded"`
	Pairs          []MatchPair `json:"pairs"`
}

// AutoMatchTransactions matches Unmatched transactions against candidates.
// Each candidate is consumed by at most one transaction; among eligible
// candidates the closest date wins, ties going to the earlier candidate.
func AutoMatchTransactions(transactions []*BankTransaction, candidates []MatchCandidate, matchedBy string, opts MatchOptions, now time.Time) AutoMatchResult {
	result := AutoMatchResult{Pairs: []MatchPair{}}
	used := make(map[string]bool, len(candidates))

	for _, tx := range transactions {
		switch tx.MatchStatus {
		case MatchMatched:
			result.AlreadyMatched++
			continue
		case MatchExcluded:
			result.Excluded++
			continue
		}
		result.Examined++

		best := -1
		bestDays := 0
		for i, candidate := range candidates {
			if used[candidate.JournalLineID] {
				continue
			}
			if !EvaluateMatch(tx, candidate, opts).Matched {
				continue
			}
			days := DaysBetween(tx.TransactionDate, candidate.EntryDate)
			if best == -1 || days < bestDays {
				best, bestDays = i, days
			}
		}
		if best == -1 {
			result.Unmatched++
			continue
		}
		if err := tx.Match(candidates[best].JournalLineID, matchedBy, now); err != nil {
			result.Unmatched++
			continue
		}
		used[candidates[best].JournalLineID] = true
		result.Matched++
		result.Pairs = append(result.Pairs, MatchPair{
			BankTransactionID: tx.BankTransactionID,
			JournalLineID:     candidates[best].JournalLineID,
		})
	}
	return result
}
