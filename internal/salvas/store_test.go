// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package salvas

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tjsasakifln/PNCP-poc-sub006/pkg/types"
)

func newTestStore(t *testing.T, max int) *Store {
	t.Helper()
	s, err := NewStore(types.SalvasConfig{
		Path: filepath.Join(t.TempDir(), "smartlic.db"),
		Max:  max,
	})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleParams(setor string) types.SearchParams {
	return types.SearchParams{
		Setor:       setor,
		UFs:         []string{"SP", "RJ"},
		DataInicial: "2026-08-01",
		DataFinal:   "2026-08-15",
	}
}

func TestStore_SaveAndList(t *testing.T) {
	s := newTestStore(t, 10)
	ctx := context.Background()

	saved, err := s.Save(ctx, "TI em SP", sampleParams("ti"))
	require.NoError(t, err)
	assert.NotZero(t, saved.ID)
	assert.False(t, saved.CreatedAt.IsZero())

	_, err = s.Save(ctx, "Saúde", sampleParams("saude"))
	require.NoError(t, err)

	items, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "TI em SP", items[0].Nome, "insertion order is preserved")
	assert.Equal(t, "Saúde", items[1].Nome)
	assert.Equal(t, sampleParams("ti"), items[0].Params)
}

func TestStore_CapacityError(t *testing.T) {
	s := newTestStore(t, 10)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		_, err := s.Save(ctx, fmt.Sprintf("busca %d", i), sampleParams("ti"))
		require.NoError(t, err)
	}

	_, err := s.Save(ctx, "a décima primeira", sampleParams("ti"))
	require.ErrorIs(t, err, ErrCapacity)

	items, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 10, "the overflowing save must not modify the list")
}

func TestStore_RemoveFreesCapacity(t *testing.T) {
	s := newTestStore(t, 2)
	ctx := context.Background()

	first, err := s.Save(ctx, "um", sampleParams("ti"))
	require.NoError(t, err)
	_, err = s.Save(ctx, "dois", sampleParams("saude"))
	require.NoError(t, err)

	_, err = s.Save(ctx, "três", sampleParams("obras"))
	require.ErrorIs(t, err, ErrCapacity)

	require.NoError(t, s.Remove(ctx, first.ID))
	_, err = s.Save(ctx, "três", sampleParams("obras"))
	require.NoError(t, err)
}

func TestStore_RemoveMissing(t *testing.T) {
	s := newTestStore(t, 10)
	err := s.Remove(context.Background(), 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_SaveRequiresName(t *testing.T) {
	s := newTestStore(t, 10)
	_, err := s.Save(context.Background(), "", sampleParams("ti"))
	assert.Error(t, err)
}

func TestStore_ExportYAML(t *testing.T) {
	s := newTestStore(t, 10)
	ctx := context.Background()

	_, err := s.Save(ctx, "TI em SP", sampleParams("ti"))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, s.ExportYAML(ctx, &buf))
	assert.Contains(t, buf.String(), "buscas_salvas")
	assert.Contains(t, buf.String(), "TI em SP")
	assert.Contains(t, buf.String(), "setor: ti")
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	cfg := types.SalvasConfig{Path: filepath.Join(dir, "smartlic.db"), Max: 10}

	s, err := NewStore(cfg)
	require.NoError(t, err)
	_, err = s.Save(context.Background(), "persistente", sampleParams("ti"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s2, err := NewStore(cfg)
	require.NoError(t, err)
	defer s2.Close()

	items, err := s2.List(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "persistente", items[0].Nome)
}
