package core

import (
	`encoding/hex`
	`testing`

	`github.com/stretchr/testify/require`
)

// testAddress returns the address of a freshly generated wallet, since
// NewCoinbaseTx only locks outputs to well-formed addresses.
func testAddress(t *testing.T) string {
	t.Helper()
	wallet, err := NewWallet()
	require.NoError(t, err)
	return wallet.GenerateAddress()
}

func TestNewGenesisBlockIsValid(t *testing.T) {
	coinbase, err := NewCoinbaseTx(testAddress(t))
	require.NoError(t, err)

	genesis := NewGenesisBlock(coinbase, DefaultBits)
	require.True(t, genesis.IsGenesis())
	require.NoError(t, genesis.Validate())
	require.Len(t, genesis.Transactions, 1)
	require.Equal(t, int32(Subsidy), genesis.Transactions[0].Vout[0].Value)
}

func TestBlockSerializeRoundTrip(t *testing.T) {
	coinbase, err := NewCoinbaseTx(testAddress(t))
	require.NoError(t, err)
	block := NewGenesisBlock(coinbase, DefaultBits)

	data, err := block.Serialize()
	require.NoError(t, err)

	decoded, err := DeserializeBlock(data)
	require.NoError(t, err)
	require.Equal(t, block.Hash, decoded.Hash)
	require.Equal(t, block.Header, decoded.Header)
	require.Len(t, decoded.Transactions, 1)
	require.Equal(t, block.Transactions[0].Id, decoded.Transactions[0].Id)
}

func TestBlockValidateRejectsTamperedTxsHash(t *testing.T) {
	coinbase, err := NewCoinbaseTx(testAddress(t))
	require.NoError(t, err)
	block := NewGenesisBlock(coinbase, DefaultBits)

	block.Header.TxsHash = "00"
	require.Error(t, block.Validate())
}

func TestMerkleRootPlaceholderDiffersFromTxsHash(t *testing.T) {
	coinbase, err := NewCoinbaseTx(testAddress(t))
	require.NoError(t, err)
	block := NewGenesisBlock(coinbase, DefaultBits)

	root, err := block.merkleRootPlaceholder()
	require.NoError(t, err)
	require.NotEmpty(t, root)
	require.NotEqual(t, block.Header.TxsHash, hex.EncodeToString(root))
}
