/*
store.go - Balance store: the mutable data set and its persistence

PURPOSE:
  Holds settings, leave entries and the sparse list of monthly overrides.
  Exposes the mutations the planner needs and round-trips the whole data set
  through a key-value BlobStore.

OVERRIDE MERGE (SetMonthlyBalance):
  No record for the month: the update is stored verbatim.
  Existing record: start from the update, then for accrual and balance
  restore the stored value when the update left the field UNSET.

    stored {accrual: 5}           + update {balance: 100}    = {accrual: 5, balance: 100}
    stored {accrual: 5}           + update {accrual: null}   = {accrual: null}
    stored {accrual: 5, notes: x} + update {balance: 1}      = {accrual: 5, balance: 1}   (notes dropped)

  Notes are NOT preserved when omitted. The asymmetry is long-standing
  behaviour and is pinned by tests.

IMPORT / LOAD:
  Settings in a snapshot are decoded over the defaults, so a snapshot written
  before a settings field existed still yields complete settings. Missing
  lists become empty lists.

CONCURRENCY:
  The data model is single-writer, but HTTP handlers run concurrently, so all
  access goes through a sync.RWMutex and reads return copies. Every mutation
  signals Changes(); the Autosaver persists without the mutator waiting.

SEE ALSO:
  - autosave.go: Debounced persistence
  - projection.go: Reads Snapshot()
  - store/sqlite, store/redis, store/postgres: BlobStore implementations
*/
package leave

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultSnapshotKey is the fixed key the data set is persisted under.
const DefaultSnapshotKey = "leave-planner-data"

// =============================================================================
// BLOB STORE - External key-value persistence
// =============================================================================

// BlobStore persists opaque values by key.
type BlobStore interface {
	// Get returns ErrBlobNotFound when the key has never been written.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put creates or replaces the value.
	Put(ctx context.Context, key string, value []byte) error
}

// =============================================================================
// DEFAULTS
// =============================================================================

// DefaultSettings returns the settings a fresh planner starts with.
func DefaultSettings(now time.Time) Settings {
	return Settings{
		StartBalance:            Hours{},
		StartDate:               DateOf(now),
		DefaultAccrualRate:      NewHoursFromInt(10),
		ProjectionHorizon:       DefaultProjectionHorizon,
		HoursPerDay:             DefaultHoursPerDay,
		FinancialYearStartMonth: DefaultFinancialYearStartMonth,
	}
}

// Validate rejects settings the projection would have to silently repair.
func (s Settings) Validate() error {
	if !s.HoursPerDay.IsPositive() {
		return &SettingsError{Field: "hoursPerDay", Reason: "must be greater than zero"}
	}
	if s.ProjectionHorizon < 0 || s.ProjectionHorizon > MaxProjectionMonths {
		return &SettingsError{Field: "projectionHorizon", Reason: fmt.Sprintf("must be between 0 and %d", MaxProjectionMonths)}
	}
	if s.FinancialYearStartMonth < 0 || s.FinancialYearStartMonth > 12 {
		return &SettingsError{Field: "financialYearStartMonth", Reason: "must be between 1 and 12"}
	}
	return nil
}

// DecodeData decodes a snapshot. Settings fields absent from raw keep the
// values in defaults; absent or null lists become empty.
func DecodeData(raw []byte, defaults Settings) (Data, error) {
	var wire struct {
		Settings        json.RawMessage  `json:"settings"`
		LeaveEntries    []LeaveEntry     `json:"leaveEntries"`
		MonthlyBalances []MonthlyBalance `json:"monthlyBalances"`
	}
	if err := json.Unmarshal(raw, &wire); err != nil {
		return Data{}, &SnapshotError{Err: err}
	}

	settings := defaults
	if len(wire.Settings) > 0 && string(wire.Settings) != "null" {
		if err := json.Unmarshal(wire.Settings, &settings); err != nil {
			return Data{}, &SnapshotError{Err: fmt.Errorf("settings: %w", err)}
		}
	}

	d := Data{
		Settings:        settings,
		LeaveEntries:    wire.LeaveEntries,
		MonthlyBalances: wire.MonthlyBalances,
	}
	if d.LeaveEntries == nil {
		d.LeaveEntries = []LeaveEntry{}
	}
	if d.MonthlyBalances == nil {
		d.MonthlyBalances = []MonthlyBalance{}
	}
	return d, nil
}

// =============================================================================
// STORE
// =============================================================================

// Store is the balance store.
type Store struct {
	mu      sync.RWMutex
	data    Data
	clock   Clock
	newID   func() string
	logger  *slog.Logger
	changes chan struct{}
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the clock used for default settings.
func WithClock(c Clock) Option {
	return func(s *Store) { s.clock = c }
}

// WithLogger sets the logger used for load/save diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithIDGenerator replaces uuid generation for new leave entries.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) { s.newID = fn }
}

// NewStore returns a store holding the default data set.
func NewStore(opts ...Option) *Store {
	s := &Store{
		clock:   time.Now,
		newID:   uuid.NewString,
		logger:  slog.Default(),
		changes: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.data = Data{
		Settings:        s.defaults(),
		LeaveEntries:    []LeaveEntry{},
		MonthlyBalances: []MonthlyBalance{},
	}
	return s
}

func (s *Store) defaults() Settings {
	return DefaultSettings(s.clock())
}

// Changes delivers a value after mutations. Bursts coalesce into one signal.
func (s *Store) Changes() <-chan struct{} {
	return s.changes
}

func (s *Store) notify() {
	select {
	case s.changes <- struct{}{}:
	default:
	}
}

// =============================================================================
// READS
// =============================================================================

// Snapshot returns a copy of the whole data set.
func (s *Store) Snapshot() Data {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.Clone()
}

func (s *Store) Settings() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.Settings
}

func (s *Store) LeaveEntries() []LeaveEntry {
	return s.Snapshot().LeaveEntries
}

func (s *Store) MonthlyBalances() []MonthlyBalance {
	return s.Snapshot().MonthlyBalances
}

// LeaveEntry looks up an entry by id.
func (s *Store) LeaveEntry(id string) (LeaveEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.data.LeaveEntries {
		if e.ID == id {
			return e, nil
		}
	}
	return LeaveEntry{}, fmt.Errorf("%w: %s", ErrEntryNotFound, id)
}

// MonthlyBalance looks up the override record for a month.
func (s *Store) MonthlyBalance(month Month) (MonthlyBalance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.overrideIndex(month); i >= 0 {
		return s.data.MonthlyBalances[i], nil
	}
	return MonthlyBalance{}, fmt.Errorf("%w: %s", ErrOverrideNotFound, month)
}

func (s *Store) overrideIndex(month Month) int {
	for i, b := range s.data.MonthlyBalances {
		if b.Month == month {
			return i
		}
	}
	return -1
}

// =============================================================================
// LEAVE ENTRIES
// =============================================================================

// AddLeaveEntry stores entry under a fresh id, ignoring any id it carries.
func (s *Store) AddLeaveEntry(entry LeaveEntry) LeaveEntry {
	s.mu.Lock()
	entry.ID = s.newID()
	s.data.LeaveEntries = append(s.data.LeaveEntries, entry)
	s.mu.Unlock()

	s.notify()
	return entry
}

// UpdateLeaveEntry replaces the entry with the same id. Returns false (and
// changes nothing) when no such entry exists.
func (s *Store) UpdateLeaveEntry(entry LeaveEntry) bool {
	s.mu.Lock()
	found := false
	for i := range s.data.LeaveEntries {
		if s.data.LeaveEntries[i].ID == entry.ID {
			s.data.LeaveEntries[i] = entry
			found = true
			break
		}
	}
	s.mu.Unlock()

	if found {
		s.notify()
	}
	return found
}

// DeleteLeaveEntry removes the entry with the given id.
func (s *Store) DeleteLeaveEntry(id string) bool {
	s.mu.Lock()
	kept := make([]LeaveEntry, 0, len(s.data.LeaveEntries))
	for _, e := range s.data.LeaveEntries {
		if e.ID != id {
			kept = append(kept, e)
		}
	}
	removed := len(kept) != len(s.data.LeaveEntries)
	s.data.LeaveEntries = kept
	s.mu.Unlock()

	if removed {
		s.notify()
	}
	return removed
}

// =============================================================================
// MONTHLY OVERRIDES
// =============================================================================

// SetMonthlyBalance upserts the override record for update.Month and returns
// the stored result. See the file header for merge rules.
func (s *Store) SetMonthlyBalance(update MonthlyBalance) MonthlyBalance {
	s.mu.Lock()
	result := update
	if i := s.overrideIndex(update.Month); i >= 0 {
		result = mergeOverride(s.data.MonthlyBalances[i], update)
		s.data.MonthlyBalances[i] = result
	} else {
		s.data.MonthlyBalances = append(s.data.MonthlyBalances, update)
	}
	s.mu.Unlock()

	s.notify()
	return result
}

func mergeOverride(existing, update MonthlyBalance) MonthlyBalance {
	merged := update
	if update.Accrual.State == FieldUnset {
		merged.Accrual = existing.Accrual
	}
	if update.Balance.State == FieldUnset {
		merged.Balance = existing.Balance
	}
	return merged
}

// DeleteMonthlyBalance drops the override record for month entirely.
func (s *Store) DeleteMonthlyBalance(month Month) bool {
	s.mu.Lock()
	i := s.overrideIndex(month)
	if i >= 0 {
		s.data.MonthlyBalances = append(s.data.MonthlyBalances[:i], s.data.MonthlyBalances[i+1:]...)
	}
	s.mu.Unlock()

	if i < 0 {
		return false
	}
	s.notify()
	return true
}

// =============================================================================
// SETTINGS / BULK
// =============================================================================

// UpdateSettings replaces the settings wholesale.
func (s *Store) UpdateSettings(settings Settings) {
	s.mu.Lock()
	s.data.Settings = settings
	s.mu.Unlock()

	s.notify()
}

// Import replaces the whole data set. Nil lists become empty lists.
// Settings are taken as given; use ImportJSON to merge over the defaults.
func (s *Store) Import(d Data) {
	d = d.Clone()

	s.mu.Lock()
	s.data = d
	s.mu.Unlock()

	s.notify()
}

// ImportJSON decodes a snapshot over the defaults and replaces the data set.
// On a decode error the store is left untouched.
func (s *Store) ImportJSON(raw []byte) error {
	d, err := DecodeData(raw, s.defaults())
	if err != nil {
		return err
	}
	s.Import(d)
	return nil
}

// Export encodes the data set as a snapshot.
func (s *Store) Export() ([]byte, error) {
	return json.Marshal(s.Snapshot())
}

// =============================================================================
// PERSISTENCE
// =============================================================================

// Load replaces the data set with the snapshot stored under key.
//
// A missing key keeps the current state. A malformed snapshot is logged and
// ignored: the store keeps its defaults and Load returns nil. Only failures
// of the blob store itself are returned.
func (s *Store) Load(ctx context.Context, blobs BlobStore, key string) error {
	raw, err := blobs.Get(ctx, key)
	if errors.Is(err, ErrBlobNotFound) {
		s.logger.Info("no saved planner data, using defaults", slog.String("key", key))
		return nil
	}
	if err != nil {
		return fmt.Errorf("load %q: %w", key, err)
	}

	d, err := DecodeData(raw, s.defaults())
	if err != nil {
		var snapErr *SnapshotError
		if errors.As(err, &snapErr) {
			snapErr.Key = key
		}
		s.logger.Warn("failed to load planner data, using defaults", slog.Any("error", err))
		return nil
	}

	s.mu.Lock()
	s.data = d
	s.mu.Unlock()

	s.logger.Info("loaded planner data",
		slog.String("key", key),
		slog.Int("leave_entries", len(d.LeaveEntries)),
		slog.Int("monthly_balances", len(d.MonthlyBalances)))
	return nil
}

// Save writes the current snapshot under key.
func (s *Store) Save(ctx context.Context, blobs BlobStore, key string) error {
	raw, err := s.Export()
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := blobs.Put(ctx, key, raw); err != nil {
		return fmt.Errorf("save %q: %w", key, err)
	}
	return nil
}
