package core

import (
	`encoding/hex`
	`math/big`
	`testing`

	`github.com/stretchr/testify/require`

	`gossipchain/utils`
)

func TestProofOfWorkRunProducesValidDigest(t *testing.T) {
	tx, err := NewCoinbaseTx(testAddress(t))
	require.NoError(t, err)

	block := &Block{
		Header: BlockHeader{
			PrevHash: "",
			Bits:     DefaultBits,
		},
		Transactions: []*Transaction{tx},
	}
	block.Header.TxsHash = hex.EncodeToString(hashTransactions(block.Transactions))

	pow := NewProofOfWork(block)
	nonce, hash := pow.Run()
	block.Header.Nonce = nonce

	var hashInt big.Int
	hashInt.SetBytes(hash[:])
	require.Equal(t, -1, hashInt.Cmp(pow.target), "digest must be strictly below target")

	block.Hash = hex.EncodeToString(hash[:])
	require.True(t, NewProofOfWork(block).Validate())
}

func TestProofOfWorkValidateRejectsTamperedNonce(t *testing.T) {
	tx, err := NewCoinbaseTx(testAddress(t))
	require.NoError(t, err)
	block := NewBlock([]*Transaction{tx}, "", DefaultBits)

	// Run returns the first nonce that meets the target; at DefaultBits a
	// later nonce meets it too about one time in four, so tamper with the
	// next nonce whose digest is at or above the target.
	pow := NewProofOfWork(block)
	tampered := block.Header.Nonce + 1
	for {
		digest := utils.Sha3256(pow.prepareData(tampered))
		if new(big.Int).SetBytes(digest[:]).Cmp(pow.target) >= 0 {
			break
		}
		tampered++
	}
	block.Header.Nonce = tampered
	require.False(t, NewProofOfWork(block).Validate())
}
