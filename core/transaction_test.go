package core

import (
	`errors`
	`testing`

	`github.com/stretchr/testify/require`

	`gossipchain/chainerr`
)

// fakeUTXOSource implements UTXOSource over a fixed in-memory set of
// outputs, letting transaction-level tests exercise NewUTXOTransaction
// without a real Chain/store.
type fakeUTXOSource struct {
	byTxid map[string][]TxOutput
}

func (f fakeUTXOSource) FindSpendableOutputs(pubKeyHash []byte, amount int32) (int32, map[string][]int, error) {
	var total int32
	unspent := make(map[string][]int)
	for txid, outs := range f.byTxid {
		for idx, out := range outs {
			if total >= amount {
				break
			}
			if out.IsLockedWithKey(pubKeyHash) {
				total += out.Value
				unspent[txid] = append(unspent[txid], idx)
			}
		}
	}
	return total, unspent, nil
}

func newTestWallets(t *testing.T) *Wallets {
	t.Helper()
	return &Wallets{WalletsMap: make(map[string]*Wallet)}
}

func TestTransactionIdRoundTrip(t *testing.T) {
	tx, err := NewCoinbaseTx(testAddress(t))
	require.NoError(t, err)

	recomputed, err := tx.hash()
	require.NoError(t, err)
	require.Equal(t, tx.Id, recomputed)
}

func TestNewUTXOTransactionSignsAndVerifies(t *testing.T) {
	wallets := newTestWallets(t)
	fromAddr, err := wallets.CreateWallet()
	require.NoError(t, err)
	toAddr, err := wallets.CreateWallet()
	require.NoError(t, err)

	fromWallet, err := wallets.GetWallet(fromAddr)
	require.NoError(t, err)

	coinbase, err := NewCoinbaseTx(fromAddr)
	require.NoError(t, err)

	source := fakeUTXOSource{byTxid: map[string][]TxOutput{coinbase.Id: coinbase.Vout}}
	lookup := func(txId string) (*Transaction, error) {
		if txId == coinbase.Id {
			return coinbase, nil
		}
		return nil, errors.New("unknown transaction: " + txId)
	}

	tx, err := NewUTXOTransaction(wallets, fromAddr, toAddr, 5, source, lookup)
	require.NoError(t, err)
	require.Len(t, tx.Vin, 1)
	require.Equal(t, coinbase.Id, tx.Vin[0].TxId)
	require.Equal(t, 0, tx.Vin[0].Vout)
	require.Len(t, tx.Vout, 2)
	require.Equal(t, int32(5), tx.Vout[0].Value)
	require.Equal(t, int32(Subsidy-5), tx.Vout[1].Value)
	require.Equal(t, HashPubKey(fromWallet.PubKey), tx.Vout[1].PubKeyHash)

	ok, err := tx.Verify(lookup)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestTamperedSignatureFailsVerify(t *testing.T) {
	wallets := newTestWallets(t)
	fromAddr, err := wallets.CreateWallet()
	require.NoError(t, err)
	toAddr, err := wallets.CreateWallet()
	require.NoError(t, err)

	coinbase, err := NewCoinbaseTx(fromAddr)
	require.NoError(t, err)

	source := fakeUTXOSource{byTxid: map[string][]TxOutput{coinbase.Id: coinbase.Vout}}
	lookup := func(txId string) (*Transaction, error) {
		if txId == coinbase.Id {
			return coinbase, nil
		}
		return nil, errors.New("unknown transaction: " + txId)
	}

	tx, err := NewUTXOTransaction(wallets, fromAddr, toAddr, 5, source, lookup)
	require.NoError(t, err)

	tx.Vin[0].Signature[0] ^= 0xFF

	ok, err := tx.Verify(lookup)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestInsufficientFunds(t *testing.T) {
	wallets := newTestWallets(t)
	fromAddr, err := wallets.CreateWallet()
	require.NoError(t, err)
	toAddr, err := wallets.CreateWallet()
	require.NoError(t, err)

	empty := fakeUTXOSource{byTxid: map[string][]TxOutput{}}
	lookup := func(txId string) (*Transaction, error) { return nil, errors.New("unknown transaction: " + txId) }

	_, err = NewUTXOTransaction(wallets, fromAddr, toAddr, 1, empty, lookup)
	require.ErrorIs(t, err, chainerr.ErrInsufficientFunds)
}
