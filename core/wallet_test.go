package core

import (
	`bytes`
	`encoding/gob`
	`path/filepath`
	`testing`

	`github.com/stretchr/testify/require`

	`gossipchain/utils`
)

func TestNewWalletsOnMissingFileIsEmptyNotError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallet.dat")

	wallets, err := NewWallets(path)
	require.NoError(t, err)
	require.Empty(t, wallets.WalletsMap)
}

func TestNewWalletsLoadsExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallet.dat")

	saved := &Wallets{WalletsMap: make(map[string]*Wallet)}
	addr, err := saved.CreateWallet()
	require.NoError(t, err)
	require.NoError(t, saved.SaveToFile(path))

	loaded, err := NewWallets(path)
	require.NoError(t, err)
	require.Contains(t, loaded.WalletsMap, addr)
}

func TestWalletAddressRoundTrip(t *testing.T) {
	wallet, err := NewWallet()
	require.NoError(t, err)

	addr := wallet.GenerateAddress()
	require.True(t, ValidateAddress(addr))

	hash, err := PubKeyHashFromAddress(addr)
	require.NoError(t, err)
	require.Equal(t, HashPubKey(wallet.PubKey), hash)
	require.Len(t, hash, 20)
}

func TestValidateAddressRejectsTamperedPayload(t *testing.T) {
	wallet, err := NewWallet()
	require.NoError(t, err)
	addr := wallet.GenerateAddress()

	tampered := []byte(addr)
	tampered[0]++
	require.False(t, ValidateAddress(string(tampered)))
}

func TestValidateAddressRejectsWrongLengthPayload(t *testing.T) {
	version := []byte{addressVersion}
	shortHash := []byte{0x01, 0x02, 0x03} // not pubKeyHashLen bytes
	payload := append(version, shortHash...)
	full := append(payload, checksum(payload)...)

	require.False(t, ValidateAddress(string(utils.Base58Encoding(full))))
}

func TestWalletGobRoundTrip(t *testing.T) {
	wallet, err := NewWallet()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, gob.NewEncoder(&buf).Encode(wallet))

	var decoded Wallet
	require.NoError(t, gob.NewDecoder(&buf).Decode(&decoded))

	require.Equal(t, wallet.PubKey, decoded.PubKey)
	require.Equal(t, wallet.PrivateKey.D, decoded.PrivateKey.D)
	require.Equal(t, wallet.PrivateKey.X, decoded.PrivateKey.X)
	require.Equal(t, wallet.PrivateKey.Y, decoded.PrivateKey.Y)
}

func TestNamedWalletsCreateAndResolve(t *testing.T) {
	wallets := &Wallets{WalletsMap: make(map[string]*Wallet)}
	named := NewNamedWallets(wallets)

	addr, err := named.CreateNamed("alice")
	require.NoError(t, err)

	resolved, err := named.Resolve("alice")
	require.NoError(t, err)
	require.Equal(t, addr, resolved)

	_, err = named.Resolve("bob")
	require.Error(t, err)
}
