package mempool

import (
	`testing`

	`github.com/stretchr/testify/require`
)

type fakeTx string

func (f fakeTx) GetId() string { return string(f) }

func TestPoolAddContainsRemove(t *testing.T) {
	pool := New()
	require.Equal(t, 0, pool.Len())

	pool.Add(fakeTx("tx-1"))
	require.True(t, pool.Contains("tx-1"))
	require.Equal(t, 1, pool.Len())

	tx, ok := pool.Get("tx-1")
	require.True(t, ok)
	require.Equal(t, "tx-1", tx.GetId())

	pool.Remove("tx-1")
	require.False(t, pool.Contains("tx-1"))
	require.Equal(t, 0, pool.Len())
}

func TestPoolReadyToMineAtThreshold(t *testing.T) {
	pool := New()
	for i := 0; i < TransactionThreshold-1; i++ {
		pool.Add(fakeTx(string(rune('a' + i))))
		require.False(t, pool.ReadyToMine())
	}
	pool.Add(fakeTx("last"))
	require.True(t, pool.ReadyToMine())
}

func TestPoolGetAllReturnsEveryPendingTransaction(t *testing.T) {
	pool := New()
	pool.Add(fakeTx("tx-1"))
	pool.Add(fakeTx("tx-2"))

	all := pool.GetAll()
	require.Len(t, all, 2)

	ids := map[string]bool{}
	for _, tx := range all {
		ids[tx.GetId()] = true
	}
	require.True(t, ids["tx-1"])
	require.True(t, ids["tx-2"])
}

func TestBlocksInTransitQueue(t *testing.T) {
	transit := NewBlocksInTransit()
	require.Equal(t, 0, transit.Len())

	transit.AddBlocks([]string{"h1", "h2", "h3"})
	require.Equal(t, 3, transit.Len())

	head, ok := transit.First()
	require.True(t, ok)
	require.Equal(t, "h1", head)

	transit.Remove("h2")
	require.Equal(t, 2, transit.Len())

	transit.Clear()
	require.Equal(t, 0, transit.Len())
	_, ok = transit.First()
	require.False(t, ok)
}
