package search_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/core/security"
	"stockledger/internal/core/tx"
	"stockledger/internal/domain/ledger"
	"stockledger/internal/domain/search"
	"stockledger/internal/infrastructure/storage/memstore"
	"stockledger/pkg/logger"
)

var admin = security.Principal{Role: security.RoleSuperadmin}

func item(name, code, warehouse string, updated time.Time) *ledger.Item {
	remaining := int64(12)
	return &ledger.Item{
		ID:                id.New(),
		Name:              name,
		Code:              code,
		Color:             "red",
		WarehouseID:       warehouse,
		CartonsCount:      1,
		PerCartonCount:    12,
		RemainingQuantity: &remaining,
		UpdatedAt:         updated,
	}
}

func TestScore(t *testing.T) {
	base := item("مياه معدنية", "A-100", "W1", time.Time{})
	base.Supplier = "شركة النيل"
	base.ExternalCodes = []string{"EAN777"}

	tests := []struct {
		term string
		want int
	}{
		{"a100", search.ScoreExactCode},
		{"مياه معدنيه", search.ScoreExactName},
		{"100", search.ScoreCodeSubstring},
		{"معدني", search.ScoreNameSubstring},
		{"النيل", search.ScoreSecondary},
		{"ean777", search.ScoreSecondary},
		{"red", search.ScoreSecondary},
		{"zzz", 0},
	}
	for _, tt := range tests {
		t.Run(tt.term, func(t *testing.T) {
			assert.Equal(t, tt.want, search.Score(base, tt.term))
		})
	}
}

func TestSearchRanksAndFilters(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	exactCode := item("Cola", "زيت", "W1", now)
	nameOld := item("زيت زيتون", "1", "W1", now.Add(-2*time.Hour))
	nameNew := item("زيت ذرة", "2", "W1", now.Add(-time.Hour))
	otherWarehouse := item("زيت نخيل", "3", "W2", now)
	unrelated := item("Water", "4", "W1", now)
	store.Seed(exactCode, nameOld, nameNew, otherWarehouse, unrelated)

	svc := search.NewService(store, 0)

	hits, err := svc.Search(ctx, "  زَيت ", "W1", 10, admin)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, exactCode.ID, hits[0].Item.ID)
	assert.Equal(t, search.ScoreExactCode, hits[0].Score)
	assert.Equal(t, nameNew.ID, hits[1].Item.ID, "ties go to the most recently updated")
	assert.Equal(t, nameOld.ID, hits[2].Item.ID)

	hits, err = svc.Search(ctx, "زيت", "", 2, admin)
	require.NoError(t, err)
	assert.Len(t, hits, 2)

	manager := security.Principal{Role: security.RoleWarehouseManager, AllowedWarehouses: []string{"W2"}}
	hits, err = svc.Search(ctx, "زيت", "", 10, manager)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, otherWarehouse.ID, hits[0].Item.ID)

	_, err = svc.Search(ctx, "زيت", "W1", 10, manager)
	assert.Equal(t, apperror.CodeForbidden, apperror.Kind(err))
}

func TestSearchRejectsShortTerms(t *testing.T) {
	svc := search.NewService(memstore.New(), 0)
	for _, term := range []string{"", " ", "a", "َأ", "!!"} {
		_, err := svc.Search(context.Background(), term, "", 10, admin)
		assert.Equal(t, apperror.CodeInvalidSearchTerm, apperror.Kind(err), "term %q", term)
	}
}

func TestListAllPaginates(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	names := []string{"delta", "alpha", "charlie", "bravo", "echo"}
	for i, n := range names {
		store.Seed(item(n, string(rune('a'+i)), "W1", time.Time{}))
	}
	store.Seed(item("aaa-hidden", "z", "W9", time.Time{}))
	svc := search.NewService(store, 0)
	viewer := security.Principal{Role: security.RoleUser, AllowedWarehouses: []string{"W1"}}

	var got []string
	cursor := ""
	for pages := 0; pages < 5; pages++ {
		page, err := svc.ListAll(ctx, 2, cursor, viewer)
		require.NoError(t, err)
		for _, it := range page.Items {
			got = append(got, it.Name)
		}
		if page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}
	assert.Equal(t, []string{"alpha", "bravo", "charlie", "delta", "echo"}, got)

	_, err := svc.ListAll(ctx, 2, "not base64!", viewer)
	assert.Equal(t, apperror.CodeValidation, apperror.Kind(err))
}

func TestCursorRoundTrip(t *testing.T) {
	c := search.Cursor{Name: "زيت", ID: id.New()}
	decoded, err := search.DecodeCursor(c.Encode())
	require.NoError(t, err)
	assert.Equal(t, c, *decoded)

	decoded, err = search.DecodeCursor("")
	require.NoError(t, err)
	assert.Nil(t, decoded)
}

type countingReader struct {
	tx.Reader
	calls atomic.Int64
}

func (r *countingReader) ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	r.calls.Add(1)
	return r.Reader.ReadOnly(ctx, fn)
}

func TestReadsRunInReadOnlyUnits(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	store.Seed(item("زيت", "1", "W1", time.Time{}))
	reader := &countingReader{Reader: store}
	svc := search.NewService(store, 0, search.WithReader(reader))

	hits, err := svc.Search(ctx, "زيت", "", 10, admin)
	require.NoError(t, err)
	assert.Len(t, hits, 1)

	page, err := svc.ListAll(ctx, 10, "", admin)
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)

	assert.Equal(t, int64(2), reader.calls.Load())
}

func TestSearchWarnsWhenCandidatesTruncated(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	ctx := logger.WithLogger(context.Background(), logger.NewFromCore(core))
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	store := memstore.New()
	oldest := item("زيت قديم", "ZZ", "W1", now.Add(-time.Hour))
	store.Seed(oldest, item("زيت", "1", "W1", now), item("زيت", "2", "W1", now))

	hits, err := search.NewService(store, 2).Search(ctx, "زيت", "", 10, admin)
	require.NoError(t, err)
	assert.Len(t, hits, 2)
	for _, h := range hits {
		assert.NotEqual(t, oldest.ID, h.Item.ID)
	}
	assert.Equal(t, 1, logs.FilterMessage("search candidates truncated, older items were not scored").Len())

	logs.TakeAll()
	_, err = search.NewService(store, 10).Search(ctx, "زيت", "", 10, admin)
	require.NoError(t, err)
	assert.Zero(t, logs.Len())
}
