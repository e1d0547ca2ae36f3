package core

import (
	`path/filepath`
	`testing`

	`github.com/rs/zerolog`
	`github.com/stretchr/testify/require`

	`gossipchain/store`
)

func openTestStore(t *testing.T) store.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chain.db")
	st, err := store.Open(path, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestGenesisChainState(t *testing.T) {
	st := openTestStore(t)
	chain, err := Open(st)
	require.NoError(t, err)
	require.True(t, chain.IsEmpty())

	wallets := &Wallets{WalletsMap: make(map[string]*Wallet)}
	minerAddr, err := wallets.CreateWallet()
	require.NoError(t, err)

	genesis, err := chain.CreateGenesis(minerAddr, DefaultBits)
	require.NoError(t, err)
	require.Equal(t, uint64(1), chain.Height())
	require.Equal(t, genesis.Hash, chain.Tip())
	require.Len(t, genesis.Transactions, 1)
	require.Equal(t, int32(Subsidy), genesis.Transactions[0].Vout[0].Value)

	idx := NewUTXOIndex(st)
	require.NoError(t, idx.Reindex(chain))

	balance, err := idx.GetBalance(minerWalletPubKey(t, wallets, minerAddr))
	require.NoError(t, err)
	require.Equal(t, int32(Subsidy), balance)
}

func minerWalletPubKey(t *testing.T, wallets *Wallets, addr string) []byte {
	t.Helper()
	wallet, err := wallets.GetWallet(addr)
	require.NoError(t, err)
	return wallet.PubKey
}

func TestMiningAppendsBlockAndConservesBalance(t *testing.T) {
	st := openTestStore(t)
	chain, err := Open(st)
	require.NoError(t, err)

	wallets := &Wallets{WalletsMap: make(map[string]*Wallet)}
	minerAddr, err := wallets.CreateWallet()
	require.NoError(t, err)
	aliceAddr, err := wallets.CreateWallet()
	require.NoError(t, err)

	_, err = chain.CreateGenesis(minerAddr, DefaultBits)
	require.NoError(t, err)

	idx := NewUTXOIndex(st)
	require.NoError(t, idx.Reindex(chain))

	spendTx, err := NewUTXOTransaction(wallets, minerAddr, aliceAddr, 5, idx, chain.FindTransaction)
	require.NoError(t, err)

	coinbase, err := NewCoinbaseTx(minerAddr)
	require.NoError(t, err)

	block, err := chain.Mining([]*Transaction{coinbase, spendTx}, DefaultBits)
	require.NoError(t, err)
	require.Equal(t, uint64(2), chain.Height())
	require.Equal(t, block.Hash, chain.Tip())

	require.NoError(t, idx.Reindex(chain))

	minerBalance, err := idx.GetBalance(minerWalletPubKey(t, wallets, minerAddr))
	require.NoError(t, err)
	aliceBalance, err := idx.GetBalance(minerWalletPubKey(t, wallets, aliceAddr))
	require.NoError(t, err)

	// two coinbases (genesis + this block) minus the 5 sent to alice still
	// sitting with the miner as change, plus alice's received 5.
	require.Equal(t, int32(2*Subsidy), minerBalance+aliceBalance)
	require.Equal(t, int32(5), aliceBalance)
}

func TestMiningRejectsInvalidSignature(t *testing.T) {
	st := openTestStore(t)
	chain, err := Open(st)
	require.NoError(t, err)

	wallets := &Wallets{WalletsMap: make(map[string]*Wallet)}
	minerAddr, err := wallets.CreateWallet()
	require.NoError(t, err)
	aliceAddr, err := wallets.CreateWallet()
	require.NoError(t, err)

	_, err = chain.CreateGenesis(minerAddr, DefaultBits)
	require.NoError(t, err)

	idx := NewUTXOIndex(st)
	require.NoError(t, idx.Reindex(chain))

	spendTx, err := NewUTXOTransaction(wallets, minerAddr, aliceAddr, 5, idx, chain.FindTransaction)
	require.NoError(t, err)
	spendTx.Vin[0].Signature[0] ^= 0xFF

	_, err = chain.Mining([]*Transaction{spendTx}, DefaultBits)
	require.Error(t, err)
	require.Equal(t, uint64(1), chain.Height())
}

func TestAddBlockIsIdempotent(t *testing.T) {
	st := openTestStore(t)
	chain, err := Open(st)
	require.NoError(t, err)

	wallets := &Wallets{WalletsMap: make(map[string]*Wallet)}
	minerAddr, err := wallets.CreateWallet()
	require.NoError(t, err)

	genesis, err := chain.CreateGenesis(minerAddr, DefaultBits)
	require.NoError(t, err)

	coinbase, err := NewCoinbaseTx(minerAddr)
	require.NoError(t, err)
	block := NewBlock([]*Transaction{coinbase}, genesis.Hash, DefaultBits)

	require.NoError(t, chain.AddBlock(block))
	require.Equal(t, uint64(2), chain.Height())
	require.Equal(t, block.Hash, chain.Tip())

	require.NoError(t, chain.AddBlock(block))
	require.Equal(t, uint64(2), chain.Height())
	require.Equal(t, block.Hash, chain.Tip())
}

func TestAddBlockRejectsInvalidBlock(t *testing.T) {
	st := openTestStore(t)
	chain, err := Open(st)
	require.NoError(t, err)

	wallets := &Wallets{WalletsMap: make(map[string]*Wallet)}
	minerAddr, err := wallets.CreateWallet()
	require.NoError(t, err)

	genesis, err := chain.CreateGenesis(minerAddr, DefaultBits)
	require.NoError(t, err)

	coinbase, err := NewCoinbaseTx(minerAddr)
	require.NoError(t, err)
	block := NewBlock([]*Transaction{coinbase}, genesis.Hash, DefaultBits)
	block.Header.TxsHash = "tampered"

	require.Error(t, chain.AddBlock(block))
	require.Equal(t, uint64(1), chain.Height())
	require.Equal(t, genesis.Hash, chain.Tip())
}

func TestFindTransactionLocatesGenesisCoinbase(t *testing.T) {
	st := openTestStore(t)
	chain, err := Open(st)
	require.NoError(t, err)

	wallets := &Wallets{WalletsMap: make(map[string]*Wallet)}
	minerAddr, err := wallets.CreateWallet()
	require.NoError(t, err)

	genesis, err := chain.CreateGenesis(minerAddr, DefaultBits)
	require.NoError(t, err)

	found, err := chain.FindTransaction(genesis.Transactions[0].Id)
	require.NoError(t, err)
	require.Equal(t, genesis.Transactions[0].Id, found.Id)

	_, err = chain.FindTransaction("does-not-exist")
	require.Error(t, err)
}
