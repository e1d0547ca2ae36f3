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

// Package store defines the durable key-value contract gossipchain's chain
// and UTXO index are built on (spec.md §4.4/§6), and a boltdb-backed
// implementation of it. Store operates entirely on pre-serialized bytes and
// hex-encoded string keys, so it has no dependency on package core and
// core may safely depend on store.
package store

import "errors"

// ErrNotFound is returned by lookups that find no value for a key. Callers
// that want to distinguish "absent" from "storage failure" check for this
// with errors.Is; every other error indicates chainerr.ErrStorage at the
// caller.
var ErrNotFound = errors.New("store: key not found")

// Store is the durable key-value contract shared by Chain (C5) and the
// UTXO index (C7). Implementations must be safe for concurrent use by
// multiple goroutines.
type Store interface {
	// GetTip returns the current chain tip's hex hash, or ErrNotFound if
	// the store has never held a tip (empty chain).
	GetTip() (string, error)

	// GetHeight returns the current chain height, or ErrNotFound if the
	// store has never held one.
	GetHeight() (uint64, error)

	// GetBlock returns the serialized block stored under hash, or
	// ErrNotFound.
	GetBlock(hash string) ([]byte, error)

	// UpdateBlocks atomically writes blocks:<hash>, tip_hash and height
	// in one transaction, so that no reader ever observes one without the
	// others.
	UpdateBlocks(hash string, blockData []byte, height uint64) error

	// GetUTXOSet returns every utxos:<txid> entry, keyed by hex txid.
	GetUTXOSet() (map[string][]byte, error)

	// WriteUTXO persists one txid's serialized unspent-output list.
	WriteUTXO(txid string, data []byte) error

	// ClearUTXOSet removes every utxos:<txid> entry.
	ClearUTXOSet() error

	// Close releases the store's underlying resources.
	Close() error
}
