// Package merkle implements the SHA-256 Merkle tree used for epoch roots.
// Leaf and interior hashes carry distinct prefixes so a leaf can never be
// replayed as an interior node. An odd node at any level is promoted to the
// next level unchanged.
package merkle

import (
	"bytes"
	"crypto/sha256"
	"fmt"
)

const (
	leafPrefix = 0x00
	nodePrefix = 0x01
)

// LeafHash hashes one canonical record into its leaf digest.
func LeafHash(record []byte) []byte {
	h := sha256.New()
	h.Write([]byte{leafPrefix})
	h.Write(record)
	return h.Sum(nil)
}

func nodeHash(left, right []byte) []byte {
	h := sha256.New()
	h.Write([]byte{nodePrefix})
	h.Write(left)
	h.Write(right)
	return h.Sum(nil)
}

// Root computes the Merkle root over the records in order. An empty record
// set has no root.
func Root(records [][]byte) ([]byte, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("merkle: no records")
	}
	level := make([][]byte, len(records))
	for i, r := range records {
		level[i] = LeafHash(r)
	}
	for len(level) > 1 {
		next := make([][]byte, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			if i+1 < len(level) {
				next = append(next, nodeHash(level[i], level[i+1]))
			} else {
				next = append(next, level[i])
			}
		}
		level = next
	}
	return level[0], nil
}

// Proof is an inclusion proof for the record at Index among Leaves records.
// Path holds sibling digests bottom-up; levels where the node was promoted
// contribute no entry.
type Proof struct {
	Index  int      `json:"index"`
	Leaves int      `json:"leaves"`
	Path   [][]byte `json:"path"`
}

// Prove builds the inclusion proof for records[index].
func Prove(records [][]byte, index int) (*Proof, error) {
	if index < 0 || index >= len(records) {
		return nil, fmt.Errorf("merkle: index %d out of range [0, %d)", index, len(records))
	}
	level := make([][]byte, len(records))
	for i, r := range records {
		level[i] = LeafHash(r)
	}

	proof := &Proof{Index: index, Leaves: len(records)}
	i := index
	for len(level) > 1 {
		if sib := i ^ 1; sib < len(level) {
			proof.Path = append(proof.Path, level[sib])
		}
		next := make([][]byte, 0, (len(level)+1)/2)
		for j := 0; j < len(level); j += 2 {
			if j+1 < len(level) {
				next = append(next, nodeHash(level[j], level[j+1]))
			} else {
				next = append(next, level[j])
			}
		}
		level = next
		i /= 2
	}
	return proof, nil
}

// Verify reports whether the proof binds record to root.
func (p *Proof) Verify(root, record []byte) bool {
	if p == nil || p.Index < 0 || p.Index >= p.Leaves {
		return false
	}
	h := LeafHash(record)
	i, n := p.Index, p.Leaves
	used := 0
	for n > 1 {
		if sib := i ^ 1; sib < n {
			if used >= len(p.Path) {
				return false
			}
			if i%2 == 0 {
				h = nodeHash(h, p.Path[used])
			} else {
				h = nodeHash(p.Path[used], h)
			}
			used++
		}
		i /= 2
		n = (n + 1) / 2
	}
	return used == len(p.Path) && bytes.Equal(h, root)
}
