// Package history keeps the list of decoded payloads, newest first, and
// mirrors it into the preference store.
package history

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/MeKo-Tech/qrscan/internal/detect"
	"github.com/MeKo-Tech/qrscan/internal/prefs"
)

// Entry is one remembered detection.
type Entry struct {
	Data   string `json:"data" yaml:"data"`
	Symbol string `json:"symbol" yaml:"symbol"`
}

// ID returns the stable identifier of the entry, derived from its payload.
func (e Entry) ID() string {
	return fmt.Sprintf("q-%d", HashCode(e.Data))
}

// HashCode is the 31-based rolling hash over the code points of s, wrapped
// to a signed 32-bit integer. Each code point contributes its first UTF-16
// unit, so astral characters hash by their high surrogate only.
func HashCode(s string) int32 {
	var h int32
	for _, r := range s {
		unit := r
		if hi, _ := utf16.EncodeRune(r); hi != utf8.RuneError {
			unit = hi
		}
		h = 31*h + int32(unit)
	}
	return h
}

var linkPattern = regexp.MustCompile(`https?://[^\s]+`)

// Links returns the http and https URLs contained in payload.
func Links(payload string) []string {
	return linkPattern.FindAllString(payload, -1)
}

// Policy controls how a payload that is already stored is handled.
type Policy int

const (
	// MoveToFront removes the older entry before inserting the new one.
	MoveToFront Policy = iota
	// AllowDuplicates keeps older entries with the same payload.
	AllowDuplicates
)

// ParsePolicy maps a configuration name to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "move-to-front":
		return MoveToFront, nil
	case "append":
		return AllowDuplicates, nil
	default:
		return MoveToFront, fmt.Errorf("unknown history policy %q", s)
	}
}

// Options are the defaults used when the preference store has no value.
type Options struct {
	Max    int
	Save   bool
	Policy Policy
}

// DefaultOptions keeps up to 100 entries and saves them.
func DefaultOptions() Options {
	return Options{Max: 100, Save: true, Policy: MoveToFront}
}

// Store is the history list.
type Store struct {
	prefs prefs.Store
	opts  Options

	// persistMu orders writes to the preference store. It is taken before mu.
	persistMu sync.Mutex
	mu        sync.Mutex
	entries   []Entry
}

// New returns an empty store backed by p.
func New(p prefs.Store, opts Options) *Store {
	if opts.Max <= 0 {
		opts.Max = DefaultOptions().Max
	}
	return &Store{prefs: p, opts: opts}
}

type settings struct {
	max  int
	save bool
}

func (s *Store) settings(ctx context.Context) (settings, error) {
	max, err := prefs.GetOr(ctx, s.prefs, prefs.KeyMax, s.opts.Max)
	if err != nil {
		return settings{}, err
	}
	if max <= 0 {
		max = s.opts.Max
	}
	save, err := prefs.GetOr(ctx, s.prefs, prefs.KeySave, s.opts.Save)
	if err != nil {
		return settings{}, err
	}
	return settings{max: max, save: save}, nil
}

// Load replaces the in-memory list with the persisted one.
func (s *Store) Load(ctx context.Context) ([]Entry, error) {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()
	stored, err := prefs.GetOr[[]Entry](ctx, s.prefs, prefs.KeyHistory, nil)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = stored
	return s.snapshot(), nil
}

// Append inserts e at the front, trims the list to the configured maximum
// and persists it when saving is enabled.
func (s *Store) Append(ctx context.Context, e Entry) error {
	cfg, err := s.settings(ctx)
	if err != nil {
		return err
	}

	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	s.mu.Lock()
	next := make([]Entry, 0, len(s.entries)+1)
	next = append(next, e)
	for _, old := range s.entries {
		if s.opts.Policy == MoveToFront && old.Data == e.Data {
			continue
		}
		next = append(next, old)
	}
	if len(next) > cfg.max {
		next = next[:cfg.max]
	}
	s.entries = next
	snap := s.snapshot()
	s.mu.Unlock()

	if !cfg.save {
		return nil
	}
	return s.prefs.Set(ctx, map[string]any{prefs.KeyHistory: snap})
}

// AppendDetection records d.
func (s *Store) AppendDetection(ctx context.Context, d detect.Detection) error {
	return s.Append(ctx, Entry{Data: d.Payload, Symbol: d.Symbol})
}

// List returns the entries, newest first.
func (s *Store) List() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

// Find returns the entry with the given id.
func (s *Store) Find(id string) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if e.ID() == id {
			return e, true
		}
	}
	return Entry{}, false
}

// Delete removes every entry whose id is listed and returns how many were
// removed. The persisted list is updated from the store, not from memory,
// so entries saved by another process survive.
func (s *Store) Delete(ctx context.Context, ids ...string) (int, error) {
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	keep := func(list []Entry) []Entry {
		out := make([]Entry, 0, len(list))
		for _, e := range list {
			if !drop[e.ID()] {
				out = append(out, e)
			}
		}
		return out
	}

	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	s.mu.Lock()
	before := len(s.entries)
	s.entries = keep(s.entries)
	removed := before - len(s.entries)
	s.mu.Unlock()

	stored, err := prefs.GetOr[[]Entry](ctx, s.prefs, prefs.KeyHistory, nil)
	if err != nil {
		return removed, err
	}
	return removed, s.prefs.Set(ctx, map[string]any{prefs.KeyHistory: keep(stored)})
}

// Clear forgets every entry and removes the persisted key.
func (s *Store) Clear(ctx context.Context) error {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	s.mu.Lock()
	s.entries = nil
	s.mu.Unlock()
	return s.prefs.Remove(ctx, prefs.KeyHistory)
}

// Copy joins the payloads of the listed entries with blank lines, in list
// order. With no ids every entry is included.
func (s *Store) Copy(ids ...string) string {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var parts []string
	for _, e := range s.entries {
		if len(ids) == 0 || want[e.ID()] {
			parts = append(parts, e.Data)
		}
	}
	return strings.Join(parts, "\n\n")
}

func (s *Store) snapshot() []Entry {
	return append([]Entry(nil), s.entries...)
}
