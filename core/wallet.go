// Copyright 2021 Hailiang Zhao <hliangzhao@zju.edu.cn>
// This file is part of the lightChain.
//
// The lightChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The lightChain is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the lightChain. If not, see <http://www.gnu.org/licenses/>.

package core

import (
	`bytes`
	`crypto/ecdsa`
	`crypto/elliptic`
	`crypto/rand`
	`crypto/x509`
	`encoding/gob`
	`fmt`
	`io/ioutil`

	`gossipchain/chainerr`
	`gossipchain/utils`
)

const addressVersion = byte(0x00)
const addrChecksumLen = 4
const pubKeyHashLen = 20 // RIPEMD-160(SHA-256(pubkey))

// Wallet holds one ECDSA P-256 keypair. PubKey is the raw, uncompressed
// X||Y coordinate pair, matching the width TxInput.PubKey and the
// signature-verification code in transaction.go expect.
type Wallet struct {
	PrivateKey ecdsa.PrivateKey
	PubKey     []byte
}

// NewWallet generates a fresh P-256 keypair.
func NewWallet() (*Wallet, error) {
	curve := elliptic.P256()
	private, err := ecdsa.GenerateKey(curve, rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate wallet key: %v", err)
	}
	pubKey := append(fixedWidth(private.PublicKey.X), fixedWidth(private.PublicKey.Y)...)
	return &Wallet{PrivateKey: *private, PubKey: pubKey}, nil
}

// HashPubKey returns RIPEMD-160(SHA-256(pubKey)), the 20-byte value locked
// into a TxOutput and embedded into an address.
func HashPubKey(pubKey []byte) []byte {
	return utils.Ripemd160AfterSha256(pubKey)
}

// checksum returns the first addrChecksumLen bytes of DoubleSha256(payload).
func checksum(payload []byte) []byte {
	sum := utils.DoubleSha256(payload)
	return sum[:addrChecksumLen]
}

// GenerateAddress returns wallet's base58 address: version || pubKeyHash ||
// checksum, base58-encoded.
func (wallet *Wallet) GenerateAddress() string {
	pubKeyHash := HashPubKey(wallet.PubKey)
	versioned := append([]byte{addressVersion}, pubKeyHash...)
	full := append(versioned, checksum(versioned)...)
	return string(utils.Base58Encoding(full))
}

// ValidateAddress reports whether addr decodes to exactly version (1 byte)
// || pubKeyHash (pubKeyHashLen bytes) || checksum (addrChecksumLen bytes),
// with a checksum matching its version+pubKeyHash.
func ValidateAddress(addr string) bool {
	full := utils.Base58Decoding([]byte(addr))
	if len(full) != 1+pubKeyHashLen+addrChecksumLen {
		return false
	}
	version := full[0]
	pubKeyHash := full[1 : len(full)-addrChecksumLen]
	want := full[len(full)-addrChecksumLen:]
	got := checksum(append([]byte{version}, pubKeyHash...))
	return bytes.Equal(want, got)
}

// PubKeyHashFromAddress decodes addr and returns its embedded pubKeyHash,
// after verifying the checksum.
func PubKeyHashFromAddress(addr string) ([]byte, error) {
	if !ValidateAddress(addr) {
		return nil, fmt.Errorf("address %s: %w: checksum mismatch", addr, chainerr.ErrInvalidTransaction)
	}
	full := utils.Base58Decoding([]byte(addr))
	return full[1 : len(full)-addrChecksumLen], nil
}

// GobEncode persists Wallet's private key as a PKCS#8 DER blob rather than
// gob-encoding the ecdsa.PrivateKey struct directly, so wallet.dat does not
// depend on registering elliptic.P256 with the gob package.
func (wallet Wallet) GobEncode() ([]byte, error) {
	der, err := x509.MarshalPKCS8PrivateKey(&wallet.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("marshal wallet private key: %w: %v", chainerr.ErrSerialization, err)
	}
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	if err := enc.Encode(der); err != nil {
		return nil, fmt.Errorf("encode wallet: %w: %v", chainerr.ErrSerialization, err)
	}
	if err := enc.Encode(wallet.PubKey); err != nil {
		return nil, fmt.Errorf("encode wallet pubkey: %w: %v", chainerr.ErrSerialization, err)
	}
	return buf.Bytes(), nil
}

// GobDecode reverses GobEncode.
func (wallet *Wallet) GobDecode(data []byte) error {
	dec := gob.NewDecoder(bytes.NewReader(data))
	var der []byte
	if err := dec.Decode(&der); err != nil {
		return fmt.Errorf("decode wallet: %w: %v", chainerr.ErrSerialization, err)
	}
	if err := dec.Decode(&wallet.PubKey); err != nil {
		return fmt.Errorf("decode wallet pubkey: %w: %v", chainerr.ErrSerialization, err)
	}
	key, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return fmt.Errorf("parse wallet private key: %w: %v", chainerr.ErrSerialization, err)
	}
	privateKey, ok := key.(*ecdsa.PrivateKey)
	if !ok {
		return fmt.Errorf("wallet private key: %w: not an ECDSA key", chainerr.ErrSerialization)
	}
	wallet.PrivateKey = *privateKey
	return nil
}

// Wallets is the on-disk keyring: every address this node controls, keyed
// by its own address string.
type Wallets struct {
	WalletsMap map[string]*Wallet
}

// NewWallets loads wallets from path, or returns an empty keyring if path
// does not exist yet.
func NewWallets(path string) (*Wallets, error) {
	wallets := &Wallets{WalletsMap: make(map[string]*Wallet)}
	exists, err := utils.FileExists(path)
	if !exists {
		return wallets, nil
	}
	if err != nil {
		return nil, err
	}
	if err := wallets.LoadFromFile(path); err != nil {
		return nil, err
	}
	return wallets, nil
}

// LoadFromFile replaces wallets' contents with what is stored at path.
func (wallets *Wallets) LoadFromFile(path string) error {
	raw, err := ioutil.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read wallets file %s: %w: %v", path, chainerr.ErrStorage, err)
	}
	var loaded Wallets
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&loaded); err != nil {
		return fmt.Errorf("decode wallets file %s: %w: %v", path, chainerr.ErrSerialization, err)
	}
	wallets.WalletsMap = loaded.WalletsMap
	return nil
}

// SaveToFile persists wallets to path.
func (wallets *Wallets) SaveToFile(path string) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(*wallets); err != nil {
		return fmt.Errorf("encode wallets: %w: %v", chainerr.ErrSerialization, err)
	}
	if err := ioutil.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("write wallets file %s: %w: %v", path, chainerr.ErrStorage, err)
	}
	return nil
}

// Addresses returns every address this keyring controls.
func (wallets *Wallets) Addresses() []string {
	addrs := make([]string, 0, len(wallets.WalletsMap))
	for addr := range wallets.WalletsMap {
		addrs = append(addrs, addr)
	}
	return addrs
}

// GetWallet returns the wallet controlling addr.
func (wallets *Wallets) GetWallet(addr string) (Wallet, error) {
	wallet, ok := wallets.WalletsMap[addr]
	if !ok {
		return Wallet{}, fmt.Errorf("address %s: %w: not found in wallets", addr, chainerr.ErrInvalidTransaction)
	}
	return *wallet, nil
}

// CreateWallet generates a new wallet, registers it under its own address,
// and returns that address.
func (wallets *Wallets) CreateWallet() (string, error) {
	wallet, err := NewWallet()
	if err != nil {
		return "", err
	}
	addr := wallet.GenerateAddress()
	wallets.WalletsMap[addr] = wallet
	return addr, nil
}

// NamedWallets maps a human-chosen name to an address, so a node's
// interactive commands can refer to "alice"/"bob" instead of raw base58
// strings. This supplements spec.md's address-only model, grounded on the
// WALLET_MAP the Rust original keeps in node.rs.
type NamedWallets struct {
	Wallets *Wallets
	Names   map[string]string // name -> address
}

// NewNamedWallets wraps wallets with an empty name table.
func NewNamedWallets(wallets *Wallets) *NamedWallets {
	return &NamedWallets{Wallets: wallets, Names: make(map[string]string)}
}

// CreateNamed creates a new wallet, registers it under name, and returns
// its address.
func (nw *NamedWallets) CreateNamed(name string) (string, error) {
	addr, err := nw.Wallets.CreateWallet()
	if err != nil {
		return "", err
	}
	nw.Names[name] = addr
	return addr, nil
}

// Resolve returns the address registered for name.
func (nw *NamedWallets) Resolve(name string) (string, error) {
	addr, ok := nw.Names[name]
	if !ok {
		return "", fmt.Errorf("wallet name %s: %w: not found", name, chainerr.ErrInvalidTransaction)
	}
	return addr, nil
}
