package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"virtualArena/game"
	"virtualArena/settlement"
)

const (
	accountsCollection = "accounts"
	historyCollection  = "history"
)

// RepoLedger is a settlement.Ledger over any Repository. Adjustments are
// serialized by a mutex, which makes it suitable for a single process only.
type RepoLedger struct {
	repo Repository
	mu   sync.Mutex

	autoOpen     bool
	openBalance  decimal.Decimal
	bettingLimit decimal.Decimal
}

func NewRepoLedger(repo Repository) *RepoLedger {
	return &RepoLedger{repo: repo}
}

// NewDemoLedger opens unknown accounts on first touch with the demo balance.
func NewDemoLedger(repo Repository, openBalance, bettingLimit float64) *RepoLedger {
	return &RepoLedger{
		repo:         repo,
		autoOpen:     true,
		openBalance:  settlement.Money(openBalance),
		bettingLimit: settlement.Money(bettingLimit),
	}
}

// Open creates or replaces an account.
func (l *RepoLedger) Open(ctx context.Context, acct *settlement.Account) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.save(ctx, acct)
}

func (l *RepoLedger) Account(ctx context.Context, accountID string) (*settlement.Account, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.load(ctx, accountID)
}

func (l *RepoLedger) Balance(ctx context.Context, accountID string) (decimal.Decimal, error) {
	acct, err := l.Account(ctx, accountID)
	if err != nil {
		return decimal.Zero, err
	}
	return acct.Balance, nil
}

func (l *RepoLedger) Adjust(ctx context.Context, accountID string, delta decimal.Decimal) (decimal.Decimal, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	acct, err := l.load(ctx, accountID)
	if err != nil {
		return decimal.Zero, err
	}
	if acct.Frozen {
		return decimal.Zero, settlement.ErrAccountFrozen
	}

	next := acct.Balance.Add(delta)
	if next.IsNegative() {
		return decimal.Zero, settlement.ErrInsufficientBalance
	}
	acct.Balance = next
	if err := l.save(ctx, acct); err != nil {
		return decimal.Zero, err
	}
	return next, nil
}

// SetStatus flips the frozen and suspended flags of an existing account.
func (l *RepoLedger) SetStatus(ctx context.Context, accountID string, frozen, suspended bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	acct, err := l.load(ctx, accountID)
	if err != nil {
		return err
	}
	acct.Frozen = frozen
	acct.Suspended = suspended
	return l.save(ctx, acct)
}

func (l *RepoLedger) load(ctx context.Context, accountID string) (*settlement.Account, error) {
	data, err := l.repo.Get(ctx, accountsCollection, accountID)
	if errors.Is(err, ErrNotFound) {
		if !l.autoOpen {
			return nil, fmt.Errorf("%w: %s", settlement.ErrAccountNotFound, accountID)
		}
		acct := &settlement.Account{
			ID:           accountID,
			Balance:      l.openBalance,
			BettingLimit: l.bettingLimit,
		}
		if err := l.save(ctx, acct); err != nil {
			return nil, err
		}
		log.Info("🎟️  Opened demo wallet", "account", accountID, "balance", l.openBalance.StringFixed(2))
		return acct, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load account: %w", err)
	}

	var acct settlement.Account
	if err := json.Unmarshal(data, &acct); err != nil {
		return nil, fmt.Errorf("failed to unmarshal account: %w", err)
	}
	return &acct, nil
}

func (l *RepoLedger) save(ctx context.Context, acct *settlement.Account) error {
	data, err := json.Marshal(acct)
	if err != nil {
		return fmt.Errorf("failed to marshal account: %w", err)
	}
	if err := l.repo.Set(ctx, accountsCollection, acct.ID, data); err != nil {
		return fmt.Errorf("failed to store account: %w", err)
	}
	return nil
}

// RepoHistory is an append-only settlement.HistoryStore over a Repository.
type RepoHistory struct {
	repo Repository
}

func NewRepoHistory(repo Repository) *RepoHistory {
	return &RepoHistory{repo: repo}
}

func (h *RepoHistory) Append(ctx context.Context, rec *settlement.HistoryRecord) (string, error) {
	id := uuid.NewString()
	stored := *rec
	stored.ID = id

	data, err := json.Marshal(&stored)
	if err != nil {
		return "", fmt.Errorf("failed to marshal history record: %w", err)
	}
	if err := h.repo.Set(ctx, historyCollection, id, data); err != nil {
		return "", fmt.Errorf("failed to store history record: %w", err)
	}
	return id, nil
}

// List returns the account's records, newest first.
func (h *RepoHistory) List(ctx context.Context, accountID string, limit int) ([]*settlement.HistoryRecord, error) {
	raw, err := h.repo.List(ctx, historyCollection)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}

	out := make([]*settlement.HistoryRecord, 0)
	for _, data := range raw {
		var rec settlement.HistoryRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			log.Warn("⚠️  Skipping unreadable history record", "err", err)
			continue
		}
		if rec.AccountID == accountID {
			out = append(out, &rec)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// LeaderboardEntry is one account's net real-mode result.
type LeaderboardEntry struct {
	Rank      int             `json:"rank"`
	AccountID string          `json:"accountId"`
	Net       decimal.Decimal `json:"net"`
	Wagers    int             `json:"wagers"`
}

// Leaderboard ranks accounts by net real-mode result.
func (h *RepoHistory) Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	raw, err := h.repo.List(ctx, historyCollection)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}

	totals := make(map[string]*LeaderboardEntry)
	for _, data := range raw {
		var rec settlement.HistoryRecord
		if err := json.Unmarshal(data, &rec); err != nil || rec.Mode != game.ModeReal {
			continue
		}
		e, ok := totals[rec.AccountID]
		if !ok {
			e = &LeaderboardEntry{AccountID: rec.AccountID}
			totals[rec.AccountID] = e
		}
		e.Net = e.Net.Add(rec.Payout).Sub(rec.Stake)
		e.Wagers++
	}

	entries := make([]LeaderboardEntry, 0, len(totals))
	for _, e := range totals {
		entries = append(entries, *e)
	}
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].Net.Equal(entries[j].Net) {
			return entries[i].Net.GreaterThan(entries[j].Net)
		}
		return entries[i].AccountID < entries[j].AccountID
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, nil
}
