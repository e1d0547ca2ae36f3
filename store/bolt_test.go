package store

import (
	`path/filepath`
	`testing`

	`github.com/rs/zerolog`
	`github.com/stretchr/testify/require`
)

func openTestStore(t *testing.T) *BoltStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chain.db")
	st, err := Open(path, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestEmptyStoreReturnsErrNotFound(t *testing.T) {
	st := openTestStore(t)

	_, err := st.GetTip()
	require.ErrorIs(t, err, ErrNotFound)

	_, err = st.GetHeight()
	require.ErrorIs(t, err, ErrNotFound)

	_, err = st.GetBlock("deadbeef")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateBlocksAdvancesTipAndHeightTogether(t *testing.T) {
	st := openTestStore(t)

	require.NoError(t, st.UpdateBlocks("hash-1", []byte("block-1"), 1))

	tip, err := st.GetTip()
	require.NoError(t, err)
	require.Equal(t, "hash-1", tip)

	height, err := st.GetHeight()
	require.NoError(t, err)
	require.Equal(t, uint64(1), height)

	data, err := st.GetBlock("hash-1")
	require.NoError(t, err)
	require.Equal(t, []byte("block-1"), data)

	require.NoError(t, st.UpdateBlocks("hash-2", []byte("block-2"), 2))
	tip, err = st.GetTip()
	require.NoError(t, err)
	require.Equal(t, "hash-2", tip)
}

func TestUTXOSetWriteReadClear(t *testing.T) {
	st := openTestStore(t)

	require.NoError(t, st.WriteUTXO("tx-a", []byte("outs-a")))
	require.NoError(t, st.WriteUTXO("tx-b", []byte("outs-b")))

	set, err := st.GetUTXOSet()
	require.NoError(t, err)
	require.Equal(t, map[string][]byte{"tx-a": []byte("outs-a"), "tx-b": []byte("outs-b")}, set)

	require.NoError(t, st.ClearUTXOSet())
	set, err = st.GetUTXOSet()
	require.NoError(t, err)
	require.Empty(t, set)
}
