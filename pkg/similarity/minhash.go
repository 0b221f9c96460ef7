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

package similarity

import "math"

// NumPermutations is the MinHash signature width (128 hash
// functions).
const NumPermutations = 128

// Signature is a 128-wide MinHash signature over a shingle set.
type Signature [NumPermutations]uint64

// hashString is the djb2-style string hash used throughout this package:
// the recurrence hash = hash*33 + c seeded from 5381. Deterministic, so
// signatures are reproducible across runs.
func hashString(s string) uint64 {
	var hash uint64 = 5381
	for _, c := range s {
		hash = ((hash << 5) + hash) + uint64(c)
	}
	return hash
}

// permutationSeeds are 128 fixed odd multipliers, so Signature is
// reproducible across runs and across processes without any shared
// random state.
var permutationSeeds = buildPermutationSeeds()

func buildPermutationSeeds() [NumPermutations]uint64 {
	var seeds [NumPermutations]uint64
	// Derive each seed from the index itself through the same djb2
	// recurrence, rather than a PRNG, so the table needs no literal data
	// and no math/rand seeding.
	for i := 0; i < NumPermutations; i++ {
		seed := hashString("shade-minhash-permutation-" + itoa(i))
		if seed%2 == 0 {
			seed++ // keep multipliers odd so they stay full-period mod 2^64.
		}
		seeds[i] = seed
	}
	return seeds
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	digits := [20]byte{}
	pos := len(digits)
	for i > 0 {
		pos--
		digits[pos] = byte('0' + i%10)
		i /= 10
	}
	return string(digits[pos:])
}

// Compute derives a MinHash Signature from a shingle set: for each of the
// 128 permutations, the minimum permuted hash over every shingle.
func Compute(shingles map[string]bool) Signature {
	var sig Signature
	for i := range sig {
		sig[i] = math.MaxUint64
	}
	for shingle := range shingles {
		base := hashString(shingle)
		for i, seed := range permutationSeeds {
			permuted := base * seed
			if permuted < sig[i] {
				sig[i] = permuted
			}
		}
	}
	return sig
}

// EstimateJaccard is the fraction of permutation slots at which two
// signatures agree, the standard MinHash Jaccard estimator.
func EstimateJaccard(a, b Signature) float64 {
	matches := 0
	for i := range a {
		if a[i] == b[i] {
			matches++
		}
	}
	return float64(matches) / float64(NumPermutations)
}

// ExactJaccard computes the true Jaccard index between two shingle sets,
// used to confirm MinHash-estimated candidates before clustering.
func ExactJaccard(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	intersection := 0
	for s := range a {
		if b[s] {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
