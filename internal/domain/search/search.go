// Package search provides scope-filtered search and listing over items.
package search

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/core/security"
	"stockledger/internal/core/tx"
	"stockledger/internal/domain/ledger"
	"stockledger/pkg/logger"
	"stockledger/pkg/textnorm"
)

// Relevance scores. A candidate takes the best score among its fields.
const (
	ScoreExactCode     = 100
	ScoreExactName     = 90
	ScoreCodeSubstring = 80
	ScoreNameSubstring = 70
	ScoreSecondary     = 40

	// MinScore is the exclusive lower bound for a candidate to be returned.
	MinScore = 15
)

const (
	defaultSearchLimit    = 20
	maxSearchLimit        = 200
	defaultCandidateLimit = 5000
	defaultPageSize       = 20
	maxPageSize           = 100
)

// Repository reads items for search and listing.
type Repository interface {
	// Candidates returns items within scope, most recently updated first.
	Candidates(ctx context.Context, scope security.Scope, limit int) ([]ledger.Item, error)

	// Page returns items within scope ordered by (name, id) strictly after cursor.
	Page(ctx context.Context, scope security.Scope, after *Cursor, limit int) ([]ledger.Item, error)
}

// Cursor is a keyset position in the name ordering.
type Cursor struct {
	Name string `json:"n"`
	ID   id.ID  `json:"i"`
}

// Encode returns the opaque form of c.
func (c Cursor) Encode() string {
	raw, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(raw)
}

// DecodeCursor parses an opaque cursor. Empty input yields nil.
func DecodeCursor(s string) (*Cursor, error) {
	if s == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, apperror.NewValidation("invalid cursor").WithCause(err)
	}
	var c Cursor
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, apperror.NewValidation("invalid cursor").WithCause(err)
	}
	return &c, nil
}

// Hit is a scored search result.
type Hit struct {
	Item  ledger.Item `json:"item"`
	Score int         `json:"score"`
}

// Page is one page of ListAll.
type Page struct {
	Items      []ledger.Item `json:"items"`
	NextCursor string        `json:"nextCursor,omitempty"`
}

// Service runs search and listing.
type Service struct {
	repo           Repository
	reader         tx.Reader
	candidateLimit int
}

// Option configures a Service.
type Option func(*Service)

// WithReader runs repository reads inside read-only units of r.
func WithReader(r tx.Reader) Option {
	return func(s *Service) { s.reader = r }
}

// NewService creates a search service. candidateLimit bounds the rows scored per search.
func NewService(repo Repository, candidateLimit int, opts ...Option) *Service {
	if candidateLimit <= 0 {
		candidateLimit = defaultCandidateLimit
	}
	s := &Service{repo: repo, candidateLimit: candidateLimit}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Search ranks items visible to p against term.
// warehouseID optionally narrows the scope to one warehouse.
func (s *Service) Search(ctx context.Context, term, warehouseID string, limit int, p security.Principal) ([]Hit, error) {
	normalized := textnorm.Normalize(term)
	if len([]rune(normalized)) < textnorm.MinTermLength {
		return nil, apperror.NewInvalidSearchTerm(term, textnorm.MinTermLength)
	}
	scope, err := security.ResolveRead(p, strings.TrimSpace(warehouseID))
	if err != nil {
		return nil, err
	}
	limit = clamp(limit, defaultSearchLimit, maxSearchLimit)

	var candidates []ledger.Item
	err = tx.ReadOnly(ctx, s.reader, func(ctx context.Context) error {
		var err error
		candidates, err = s.repo.Candidates(ctx, scope, s.candidateLimit)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("load search candidates: %w", err)
	}
	if len(candidates) >= s.candidateLimit {
		logger.Warn(ctx, "search candidates truncated, older items were not scored",
			"term", normalized,
			"candidate_limit", s.candidateLimit,
		)
	}

	hits := make([]Hit, 0, limit)
	for _, item := range candidates {
		if score := Score(&item, normalized); score > MinScore {
			hits = append(hits, Hit{Item: item, Score: score})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Item.UpdatedAt.After(hits[j].Item.UpdatedAt)
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// Score rates item against an already normalized term.
func Score(item *ledger.Item, term string) int {
	code := textnorm.Normalize(item.Code)
	name := textnorm.Normalize(item.Name)
	switch {
	case code == term:
		return ScoreExactCode
	case name == term:
		return ScoreExactName
	case strings.Contains(code, term):
		return ScoreCodeSubstring
	case strings.Contains(name, term):
		return ScoreNameSubstring
	}

	secondary := append([]string{item.Color, item.Supplier, item.ItemLocation, item.Notes}, item.ExternalCodes...)
	for _, field := range secondary {
		if textnorm.Contains(field, term) {
			return ScoreSecondary
		}
	}
	return 0
}

// ListAll pages through items visible to p ordered by name.
func (s *Service) ListAll(ctx context.Context, pageSize int, cursor string, p security.Principal) (Page, error) {
	after, err := DecodeCursor(cursor)
	if err != nil {
		return Page{}, err
	}
	scope, err := security.ResolveRead(p, "")
	if err != nil {
		return Page{}, err
	}
	pageSize = clamp(pageSize, defaultPageSize, maxPageSize)

	var items []ledger.Item
	err = tx.ReadOnly(ctx, s.reader, func(ctx context.Context) error {
		var err error
		items, err = s.repo.Page(ctx, scope, after, pageSize+1)
		return err
	})
	if err != nil {
		return Page{}, fmt.Errorf("list items: %w", err)
	}

	page := Page{Items: items}
	if len(items) > pageSize {
		page.Items = items[:pageSize]
		last := page.Items[pageSize-1]
		page.NextCursor = Cursor{Name: last.Name, ID: last.ID}.Encode()
	}
	if page.Items == nil {
		page.Items = []ledger.Item{}
	}
	return page, nil
}

func clamp(v, def, maxV int) int {
	if v <= 0 {
		return def
	}
	return min(v, maxV)
}
