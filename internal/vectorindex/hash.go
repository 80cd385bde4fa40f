// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package vectorindex

import (
	"github.com/minio/highwayhash"
)

// hash1Key and hash2Key are two independent HighwayHash keys used to
// scatter a term into two distinct embedding dimensions (spec §4.5:
// "emb[hash1(term) mod D] += w; emb[hash2(term) mod D] += 0.5*w").
var (
	hash1Key = []byte("astra-vectorindex-hash1-key-0001")
	hash2Key = []byte("astra-vectorindex-hash2-key-0002")
)

func hash1(s string) uint64 {
	h, err := highwayhash.New64(hash1Key)
	if err != nil {
		return fnv1a(s)
	}
	_, _ = h.Write([]byte(s))
	return h.Sum64()
}

func hash2(s string) uint64 {
	h, err := highwayhash.New64(hash2Key)
	if err != nil {
		return fnv1a(s) ^ 0x9e3779b97f4a7c15
	}
	_, _ = h.Write([]byte(s))
	return h.Sum64()
}

// fnv1a is the fallback used only if key initialization itself fails
// (both keys are fixed 32-byte constants, so this path is unreachable in
// practice; it exists so hashing never panics).
func fnv1a(s string) uint64 {
	var h uint64 = 14695981039346656037
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= 1099511628211
	}
	return h
}
