package memory

import (
	"context"
	"slices"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/SscSPs/commerce_ledger/internal/apperrors"
	"github.com/SscSPs/commerce_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/commerce_ledger/internal/core/ports/repositories"
	"github.com/SscSPs/commerce_ledger/internal/utils/pagination"
)

// JournalEntryRepository implements portsrepo.JournalEntryRepositoryFacade.
type JournalEntryRepository struct {
	s *Store
}

var _ portsrepo.JournalEntryRepositoryFacade = (*JournalEntryRepository)(nil)

// storedEntry detaches the entry from the caller: lines are copied and
// buffered events are dropped.
func storedEntry(e domain.JournalEntry) domain.JournalEntry {
	e.Lines = slices.Clone(e.Lines)
	e.AggregateRoot = domain.AggregateRoot{}
	return e
}

// FindJournalEntryByID ignores lock; store transactions are already serial.
func (r *JournalEntryRepository) FindJournalEntryByID(ctx context.Context, journalEntryID string, _ portsrepo.RowLock) (*domain.JournalEntry, error) {
	var out *domain.JournalEntry
	err := r.s.run(ctx, func(st *state) error {
		e, ok := st.entries[journalEntryID]
		if !ok {
			return apperrors.NewNotFoundError("journal entry %s not found", journalEntryID)
		}
		e = storedEntry(e)
		out = &e
		return nil
	})
	return out, err
}

func (r *JournalEntryRepository) FindBySourceReference(ctx context.Context, sourceService, sourceReferenceID string) (*domain.JournalEntry, error) {
	var out *domain.JournalEntry
	err := r.s.run(ctx, func(st *state) error {
		for _, e := range st.entries {
			if e.SourceService == sourceService && e.SourceReferenceID == sourceReferenceID {
				e = storedEntry(e)
				out = &e
				return nil
			}
		}
		return apperrors.NewNotFoundError("journal entry for %s/%s not found", sourceService, sourceReferenceID)
	})
	return out, err
}

func (r *JournalEntryRepository) ListJournalEntries(ctx context.Context, filter portsrepo.JournalEntryFilter, limit int, nextToken *string) ([]domain.JournalEntry, *string, error) {
	var cursor *pagination.Cursor
	if nextToken != nil && *nextToken != "" {
		c, err := pagination.DecodeToken(*nextToken)
		if err != nil {
			return nil, nil, apperrors.NewValidationError("INVALID_PAGE_TOKEN", "%s", err.Error())
		}
		cursor = &c
	}

	var (
		out  []domain.JournalEntry
		next *string
	)
	err := r.s.run(ctx, func(st *state) error {
		matched := make([]domain.JournalEntry, 0)
		for _, e := range st.entries {
			if filter.Period != nil && e.Period() != *filter.Period {
				continue
			}
			if filter.Status != "" && e.Status != filter.Status {
				continue
			}
			if cursor != nil && !cursor.After(e.EntryDate, e.CreatedAt, e.JournalEntryID) {
				continue
			}
			matched = append(matched, storedEntry(e))
		}
		sort.Slice(matched, func(i, j int) bool {
			a, b := matched[i], matched[j]
			if !a.EntryDate.Equal(b.EntryDate) {
				return a.EntryDate.After(b.EntryDate)
			}
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.After(b.CreatedAt)
			}
			return a.JournalEntryID > b.JournalEntryID
		})
		if limit > 0 && len(matched) > limit {
			last := matched[limit-1]
			token := pagination.EncodeToken(last.EntryDate, last.CreatedAt, last.JournalEntryID)
			next = &token
			matched = matched[:limit]
		}
		out = matched
		return nil
	})
	return out, next, err
}

func (r *JournalEntryRepository) AccountHasLines(ctx context.Context, accountID string) (bool, error) {
	used := false
	err := r.s.run(ctx, func(st *state) error {
		for _, e := range st.entries {
			for _, l := range e.Lines {
				if l.AccountID == accountID {
					used = true
					return nil
				}
			}
		}
		return nil
	})
	return used, err
}

func (r *JournalEntryRepository) SaveJournalEntry(ctx context.Context, entry domain.JournalEntry) error {
	return r.s.run(ctx, func(st *state) error {
		if _, exists := st.entries[entry.JournalEntryID]; exists {
			return apperrors.NewConflictError("DUPLICATE_JOURNAL_ENTRY", "journal entry %s already exists", entry.JournalEntryID)
		}
		if entry.SourceService != "" {
			for _, e := range st.entries {
				if e.SourceService == entry.SourceService && e.SourceReferenceID == entry.SourceReferenceID {
					return apperrors.NewConflictError("DUPLICATE_SOURCE_REFERENCE", "source reference %s/%s already used", entry.SourceService, entry.SourceReferenceID)
				}
			}
		}
		st.entries[entry.JournalEntryID] = storedEntry(entry)
		return nil
	})
}

func (r *JournalEntryRepository) UpdateJournalEntry(ctx context.Context, entry domain.JournalEntry) error {
	return r.s.run(ctx, func(st *state) error {
		current, exists := st.entries[entry.JournalEntryID]
		if !exists {
			return apperrors.NewNotFoundError("journal entry %s not found", entry.JournalEntryID)
		}
		if current.Status != domain.JournalDraft {
			return apperrors.NewConflictError("CONCURRENT_MODIFICATION", "journal entry %s is no longer a draft", entry.JournalEntryID)
		}
		st.entries[entry.JournalEntryID] = storedEntry(entry)
		return nil
	})
}

func (r *JournalEntryRepository) UpdateJournalEntryStatus(ctx context.Context, entry domain.JournalEntry, expected domain.JournalStatus) error {
	return r.s.run(ctx, func(st *state) error {
		current, exists := st.entries[entry.JournalEntryID]
		if !exists {
			return apperrors.NewNotFoundError("journal entry %s not found", entry.JournalEntryID)
		}
		if current.Status != expected {
			return apperrors.NewConflictError("CONCURRENT_MODIFICATION", "journal entry %s is %s, expected %s", entry.JournalEntryID, current.Status, expected)
		}
		if entry.EntryNumber != "" && entry.EntryNumber != current.EntryNumber {
			for id, e := range st.entries {
				if id != entry.JournalEntryID && e.EntryNumber == entry.EntryNumber {
					return apperrors.NewConflictError(portsrepo.CodeDuplicateEntryNumber, "entry number %s is already taken", entry.EntryNumber)
				}
			}
		}
		st.entries[entry.JournalEntryID] = storedEntry(entry)
		return nil
	})
}

func (r *JournalEntryRepository) DeleteJournalEntry(ctx context.Context, journalEntryID string) error {
	return r.s.run(ctx, func(st *state) error {
		current, exists := st.entries[journalEntryID]
		if !exists {
			return apperrors.NewNotFoundError("journal entry %s not found", journalEntryID)
		}
		if current.Status != domain.JournalDraft {
			return apperrors.NewConflictError("CONCURRENT_MODIFICATION", "journal entry %s is no longer a draft", journalEntryID)
		}
		delete(st.entries, journalEntryID)
		return nil
	})
}

func (r *JournalEntryRepository) GenerateEntryNumber(ctx context.Context, period domain.PeriodRef) (string, error) {
	var number string
	err := r.s.run(ctx, func(st *state) error {
		st.entryCounters[period]++
		number = domain.FormatEntryNumber(period, st.entryCounters[period])
		return nil
	})
	return number, err
}

func (r *JournalEntryRepository) AggregatePostedLines(ctx context.Context, period domain.PeriodRef) ([]domain.AccountMovement, error) {
	var out []domain.AccountMovement
	err := r.s.run(ctx, func(st *state) error {
		byAccount := make(map[string]*domain.AccountMovement)
		for _, e := range st.entries {
			if e.Status != domain.JournalPosted || e.Period() != period {
				continue
			}
			for _, l := range e.Lines {
				m, ok := byAccount[l.AccountID]
				if !ok {
					m = &domain.AccountMovement{AccountID: l.AccountID, Debit: decimal.Zero, Credit: decimal.Zero}
					byAccount[l.AccountID] = m
				}
				if l.TransactionType == domain.Debit {
					m.Debit = m.Debit.Add(l.Amount)
				} else {
					m.Credit = m.Credit.Add(l.Amount)
				}
			}
		}
		out = make([]domain.AccountMovement, 0, len(byAccount))
		for _, m := range byAccount {
			out = append(out, *m)
		}
		sort.Slice(out, func(i, j int) bool { return out[i].AccountID < out[j].AccountID })
		return nil
	})
	return out, err
}

func (r *JournalEntryRepository) FindMatchCandidates(ctx context.Context, glAccountID string, from, to time.Time) ([]domain.MatchCandidate, error) {
	var out []domain.MatchCandidate
	err := r.s.run(ctx, func(st *state) error {
		taken := matchedLines(st)
		for _, e := range st.entries {
			if e.Status != domain.JournalPosted || e.EntryDate.Before(from) || e.EntryDate.After(to) {
				continue
			}
			for _, l := range e.Lines {
				if l.AccountID == glAccountID && !taken[l.JournalLineID] {
					out = append(out, candidateOf(e, l))
				}
			}
		}
		sort.Slice(out, func(i, j int) bool {
			if !out[i].EntryDate.Equal(out[j].EntryDate) {
				return out[i].EntryDate.Before(out[j].EntryDate)
			}
			return out[i].JournalLineID < out[j].JournalLineID
		})
		return nil
	})
	return out, err
}

func (r *JournalEntryRepository) FindMatchCandidate(ctx context.Context, journalLineID string) (*domain.MatchCandidate, error) {
	var out *domain.MatchCandidate
	err := r.s.run(ctx, func(st *state) error {
		for _, e := range st.entries {
			if e.Status != domain.JournalPosted {
				continue
			}
			for _, l := range e.Lines {
				if l.JournalLineID == journalLineID {
					c := candidateOf(e, l)
					out = &c
					return nil
				}
			}
		}
		return apperrors.NewNotFoundError("posted journal line %s not found", journalLineID)
	})
	return out, err
}

func candidateOf(e domain.JournalEntry, l domain.JournalLine) domain.MatchCandidate {
	return domain.MatchCandidate{
		JournalLineID:   l.JournalLineID,
		JournalEntryID:  e.JournalEntryID,
		EntryNumber:     e.EntryNumber,
		AccountID:       l.AccountID,
		EntryDate:       e.EntryDate,
		TransactionType: l.TransactionType,
		Amount:          l.Amount,
	}
}

func matchedLines(st *state) map[string]bool {
	taken := make(map[string]bool)
	for _, tx := range st.bankTxs {
		if tx.MatchStatus == domain.MatchMatched && tx.MatchedJournalLineID != nil {
			taken[*tx.MatchedJournalLineID] = true
		}
	}
	return taken
}
