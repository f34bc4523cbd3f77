package sqlstore_test

import (
	"testing"

	"coinprices/internal/model"

	"github.com/stretchr/testify/require"
)

// go test -v --run ^TestResolve$
func TestResolve(t *testing.T) {
	client := newTestClient(t)
	ctx := t.Context()

	require.NoError(t, client.UpsertMapping(ctx, model.Mapping{Symbol: "BTC", Name: "bitcoin"}))

	name, err := client.Resolve(ctx, "BTC")
	require.NoError(t, err)
	require.Equal(t, "bitcoin", name)

	_, err = client.Resolve(ctx, "btc")
	require.ErrorIs(t, err, model.ErrSymbolNotFound, "lookup is case-sensitive")

	_, err = client.Resolve(ctx, "DOGE")
	require.ErrorIs(t, err, model.ErrSymbolNotFound)
}

func TestUpsertMappingReplacesName(t *testing.T) {
	client := newTestClient(t)
	ctx := t.Context()

	require.NoError(t, client.UpsertMapping(ctx, model.Mapping{Symbol: "ETH", Name: "eth"}))
	require.NoError(t, client.UpsertMapping(ctx, model.Mapping{Symbol: "ETH", Name: "ethereum"}))

	name, err := client.Resolve(ctx, "ETH")
	require.NoError(t, err)
	require.Equal(t, "ethereum", name)

	n, err := client.CountMappings(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
}

func TestListMappedSymbols(t *testing.T) {
	client := newTestClient(t)
	ctx := t.Context()

	symbols, err := client.ListMappedSymbols(ctx)
	require.NoError(t, err)
	require.Empty(t, symbols)

	for _, m := range []model.Mapping{
		{Symbol: "SOL", Name: "solana"},
		{Symbol: "BTC", Name: "bitcoin"},
		{Symbol: "ETH", Name: "ethereum"},
	} {
		require.NoError(t, client.UpsertMapping(ctx, m))
	}

	symbols, err = client.ListMappedSymbols(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"BTC", "ETH", "SOL"}, symbols)

	mappings, err := client.LoadMappings(ctx)
	require.NoError(t, err)
	require.Len(t, mappings, 3)
	require.Equal(t, model.Mapping{Symbol: "BTC", Name: "bitcoin"}, mappings[0])
}
