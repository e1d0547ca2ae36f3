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

package utils

import (
	`crypto/sha256`
	`log`

	`golang.org/x/crypto/ripemd160`
	`golang.org/x/crypto/sha3`
)

// Sha3256 returns the SHA3-256 digest of data. Block hashes, transaction
// ids and the transactions digest all go through this.
func Sha3256(data []byte) [32]byte {
	return sha3.Sum256(data)
}

// DoubleSha256 returns SHA-256(SHA-256(data)), used for address checksums.
func DoubleSha256(data []byte) [32]byte {
	first := sha256.Sum256(data)
	return sha256.Sum256(first[:])
}

// Ripemd160AfterSha256 returns RIPEMD-160(SHA-256(data)), used to derive a
// public-key hash from a raw public key.
func Ripemd160AfterSha256(data []byte) []byte {
	shaSum := sha256.Sum256(data)
	hasher := ripemd160.New()
	if _, err := hasher.Write(shaSum[:]); err != nil {
		log.Panic(err)
	}
	return hasher.Sum(nil)
}
