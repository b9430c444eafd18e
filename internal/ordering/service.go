// Package ordering maintains the single interleaved display order of artists
// and teams used by public listings.
package ordering

import (
	"context"
	"log/slog"
	"time"

	"github.com/alecgard/troupe/internal/account"
	"github.com/alecgard/troupe/internal/apperr"
	"github.com/alecgard/troupe/internal/team"
	"golang.org/x/sync/errgroup"
)

// OrderStore persists ordering items.
type OrderStore interface {
	List(ctx context.Context) ([]Item, error)
	Count(ctx context.Context) (int, error)
	InsertAll(ctx context.Context, items []Item) error
	Replace(ctx context.Context, items []Item) (Diff, error)
}

// ArtistSource resolves dancer accounts.
type ArtistSource interface {
	List(ctx context.Context, params account.ListParams) ([]*account.Account, error)
	ListByIDs(ctx context.Context, ids []string) ([]*account.Account, error)
}

// TeamSource resolves teams.
type TeamSource interface {
	List(ctx context.Context, activeOnly bool) ([]*team.Team, error)
	ListByIDs(ctx context.Context, ids []string) ([]*team.Team, error)
}

// Observer receives ordering events, typically to update metrics.
type Observer interface {
	OrderSaved(outcome string, d Diff, took time.Duration)
	OrderInitialized(items int)
}

// Service loads, initializes and saves the display order.
type Service struct {
	store   OrderStore
	artists ArtistSource
	teams   TeamSource
	cache   ListingCache
	logger  *slog.Logger
	obs     Observer
}

// Option configures a Service.
type Option func(*Service)

// WithCache caches the resolved listing.
func WithCache(c ListingCache) Option {
	return func(s *Service) { s.cache = c }
}

// WithObserver reports save and initialize events to o.
func WithObserver(o Observer) Option {
	return func(s *Service) { s.obs = o }
}

// NewService creates an ordering service.
func NewService(store OrderStore, artists ArtistSource, teams TeamSource, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{store: store, artists: artists, teams: teams, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Session loads the stored order into a clean session for editing.
func (s *Service) Session(ctx context.Context) (Session, error) {
	items, err := s.store.List(ctx)
	if err != nil {
		return Session{}, apperr.Persistence("loading display order", err)
	}
	return NewSession(items), nil
}

// Load returns the stored order resolved to artists and teams. Items whose
// record no longer exists are dropped.
func (s *Service) Load(ctx context.Context) ([]Entry, error) {
	items, err := s.store.List(ctx)
	if err != nil {
		return nil, apperr.Persistence("loading display order", err)
	}

	var artistIDs, teamIDs []string
	for _, it := range items {
		switch it.ItemType {
		case TypeArtist:
			artistIDs = append(artistIDs, it.ItemID)
		case TypeTeam:
			teamIDs = append(teamIDs, it.ItemID)
		}
	}

	artists := map[string]*account.Account{}
	teams := map[string]*team.Team{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		list, err := s.artists.ListByIDs(gctx, artistIDs)
		if err != nil {
			return err
		}
		for _, a := range list {
			artists[a.ID] = a
		}
		return nil
	})
	g.Go(func() error {
		list, err := s.teams.ListByIDs(gctx, teamIDs)
		if err != nil {
			return err
		}
		for _, t := range list {
			teams[t.ID] = t
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, apperr.Persistence("resolving display order", err)
	}

	entries := make([]Entry, 0, len(items))
	for _, it := range items {
		switch it.ItemType {
		case TypeArtist:
			if a, ok := artists[it.ItemID]; ok && !a.IsHidden {
				entries = append(entries, Entry{Item: it, Artist: artistCard(a)})
			}
		case TypeTeam:
			if t, ok := teams[it.ItemID]; ok {
				entries = append(entries, Entry{Item: it, Team: t})
			}
		}
	}
	return entries, nil
}

// Initialize numbers visible dancers, then active teams, from 1 and bulk
// inserts them. It does not check for existing rows; calling it on a
// populated table duplicates the order. Use EnsureInitialized.
func (s *Service) Initialize(ctx context.Context) ([]Item, error) {
	dancers, err := s.artists.List(ctx, account.ListParams{Type: account.RoleDancer})
	if err != nil {
		return nil, apperr.Persistence("listing dancers", err)
	}
	teams, err := s.teams.List(ctx, true)
	if err != nil {
		return nil, apperr.Persistence("listing teams", err)
	}

	items := make([]Item, 0, len(dancers)+len(teams))
	for _, a := range dancers {
		items = append(items, Item{ItemType: TypeArtist, ItemID: a.ID})
	}
	for _, t := range teams {
		items = append(items, Item{ItemType: TypeTeam, ItemID: t.ID})
	}
	items = Renumber(items)

	if err := s.store.InsertAll(ctx, items); err != nil {
		return nil, apperr.Persistence("initializing display order", err)
	}
	s.InvalidateListing(ctx)
	if s.obs != nil {
		s.obs.OrderInitialized(len(items))
	}
	s.logger.Info("display order initialized", "items", len(items))
	return items, nil
}

// EnsureInitialized initializes the order only when no items are stored. It
// reports whether it did so.
func (s *Service) EnsureInitialized(ctx context.Context) (bool, error) {
	n, err := s.store.Count(ctx)
	if err != nil {
		return false, apperr.Persistence("counting display order", err)
	}
	if n > 0 {
		return false, nil
	}
	if _, err := s.Initialize(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// Listing returns the public listing, initializing the order on first use
// and serving from the cache when one is configured.
func (s *Service) Listing(ctx context.Context) ([]Entry, error) {
	if s.cache != nil {
		entries, ok, err := s.cache.Get(ctx)
		if err != nil {
			s.logger.Warn("display order cache read failed", "error", err)
		} else if ok {
			return entries, nil
		}
	}

	if _, err := s.EnsureInitialized(ctx); err != nil {
		return nil, err
	}
	entries, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, entries); err != nil {
			s.logger.Warn("display order cache write failed", "error", err)
		}
	}
	return entries, nil
}

// Persist saves a session. Items are renumbered to 1..N before saving. On
// failure the given session is returned unchanged, still dirty, so the
// caller can retry. On success a clean session over the saved items is
// returned.
func (s *Service) Persist(ctx context.Context, sess Session) (Session, error) {
	if !sess.Dirty() {
		return sess, nil
	}
	items := Renumber(sess.items)
	if err := checkItems(items); err != nil {
		return sess, err
	}

	start := time.Now()
	d, err := s.store.Replace(ctx, items)
	if err != nil {
		s.observeSave("error", Diff{}, time.Since(start))
		s.logger.Error("saving display order", "items", len(items), "error", err)
		return sess, apperr.Persistence("saving display order", err)
	}
	s.observeSave("ok", d, time.Since(start))
	s.InvalidateListing(ctx)

	s.logger.Info("display order saved",
		"items", len(items),
		"updated", len(d.Updates),
		"inserted", len(d.Inserts),
		"deleted", len(d.Deletes),
	)
	return NewSession(items), nil
}

// Save replaces the order with items in the given sequence.
func (s *Service) Save(ctx context.Context, items []Item) (Session, error) {
	return s.Persist(ctx, Session{}.Replace(items))
}

// Move loads the stored order, moves one item and saves the result.
func (s *Service) Move(ctx context.Context, from, to int) (Session, error) {
	sess, err := s.Session(ctx)
	if err != nil {
		return Session{}, err
	}
	moved, err := sess.Move(from, to)
	if err != nil {
		return sess, err
	}
	return s.Persist(ctx, moved)
}

func (s *Service) observeSave(outcome string, d Diff, took time.Duration) {
	if s.obs != nil {
		s.obs.OrderSaved(outcome, d, took)
	}
}

// InvalidateListing drops the cached listing. Callers that change an
// artist's profile, visibility or existence use it so the public listing
// does not serve stale cards until the TTL expires.
func (s *Service) InvalidateListing(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.Warn("display order cache invalidation failed", "error", err)
	}
}
