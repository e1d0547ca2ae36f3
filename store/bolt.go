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

package store

import (
	`encoding/binary`
	`fmt`
	`strings`
	`time`

	`github.com/boltdb/bolt`
	`github.com/rs/zerolog`

	`gossipchain/chainerr`
)

const chainBucket = "chain"
const utxoBucket = "ChainState"

const tipKey = "tip_hash"
const heightKey = "height"
const blockKeyPrefix = "blocks:"
const utxoKeyPrefix = "utxos:"

// BoltStore is a store.Store backed by boltdb, grounded on the teacher's
// blockchain.go/utxo.go bolt usage (blocksBucket/ChainState buckets,
// db.View/db.Update), generalized to the Store interface's explicit
// tip/height/blocks/utxos key layout from spec.md §4.4/§6.
type BoltStore struct {
	db  *bolt.DB
	log zerolog.Logger
}

// Open opens (creating if absent) a boltdb file at path with the two
// buckets Store needs.
func Open(path string, log zerolog.Logger) (*BoltStore, error) {
	db, err := bolt.Open(path, 0644, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open boltdb %s: %w: %v", path, chainerr.ErrStorage, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(chainBucket)); err != nil {
			return err
		}
		if _, err := tx.CreateBucketIfNotExists([]byte(utxoBucket)); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("init boltdb buckets: %w: %v", chainerr.ErrStorage, err)
	}
	return &BoltStore{db: db, log: log}, nil
}

func (s *BoltStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close boltdb: %w: %v", chainerr.ErrStorage, err)
	}
	return nil
}

func (s *BoltStore) GetTip() (string, error) {
	var tip []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		tip = tx.Bucket([]byte(chainBucket)).Get([]byte(tipKey))
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("read tip: %w: %v", chainerr.ErrStorage, err)
	}
	if tip == nil {
		return "", ErrNotFound
	}
	return string(tip), nil
}

func (s *BoltStore) GetHeight() (uint64, error) {
	var raw []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		raw = tx.Bucket([]byte(chainBucket)).Get([]byte(heightKey))
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("read height: %w: %v", chainerr.ErrStorage, err)
	}
	if raw == nil {
		return 0, ErrNotFound
	}
	return binary.BigEndian.Uint64(raw), nil
}

func (s *BoltStore) GetBlock(hash string) ([]byte, error) {
	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(chainBucket)).Get(blockKey(hash))
		if v != nil {
			data = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read block %s: %w: %v", hash, chainerr.ErrStorage, err)
	}
	if data == nil {
		return nil, ErrNotFound
	}
	return data, nil
}

// UpdateBlocks writes blocks:<hash>, tip_hash and height in a single bolt
// transaction, matching spec.md §4.4's "atomically... then flush" contract.
func (s *BoltStore) UpdateBlocks(hash string, blockData []byte, height uint64) error {
	heightBuf := make([]byte, 8)
	binary.BigEndian.PutUint64(heightBuf, height)

	err := s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(chainBucket))
		if err := bucket.Put(blockKey(hash), blockData); err != nil {
			return err
		}
		if err := bucket.Put([]byte(tipKey), []byte(hash)); err != nil {
			return err
		}
		return bucket.Put([]byte(heightKey), heightBuf)
	})
	if err != nil {
		return fmt.Errorf("update blocks (hash=%s height=%d): %w: %v", hash, height, chainerr.ErrStorage, err)
	}
	return nil
}

func (s *BoltStore) GetUTXOSet() (map[string][]byte, error) {
	out := make(map[string][]byte)
	err := s.db.View(func(tx *bolt.Tx) error {
		cursor := tx.Bucket([]byte(utxoBucket)).Cursor()
		for k, v := cursor.First(); k != nil; k, v = cursor.Next() {
			txid := strings.TrimPrefix(string(k), utxoKeyPrefix)
			out[txid] = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan utxo set: %w: %v", chainerr.ErrStorage, err)
	}
	return out, nil
}

func (s *BoltStore) WriteUTXO(txid string, data []byte) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(utxoBucket)).Put([]byte(utxoKeyPrefix+txid), data)
	})
	if err != nil {
		return fmt.Errorf("write utxo %s: %w: %v", txid, chainerr.ErrStorage, err)
	}
	return nil
}

func (s *BoltStore) ClearUTXOSet() error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket([]byte(utxoBucket)); err != nil && err != bolt.ErrBucketNotFound {
			return err
		}
		_, err := tx.CreateBucket([]byte(utxoBucket))
		return err
	})
	if err != nil {
		return fmt.Errorf("clear utxo set: %w: %v", chainerr.ErrStorage, err)
	}
	return nil
}

func blockKey(hash string) []byte {
	if strings.HasPrefix(hash, blockKeyPrefix) {
		return []byte(hash)
	}
	return []byte(blockKeyPrefix + hash)
}
