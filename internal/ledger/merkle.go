package ledger

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/cortexdb/cortex/internal/model"
)

// merkleTree is a balanced binary Merkle tree over 32-byte leaf hashes,
// adapted from certenIO-certen-validator's pkg/merkle/tree.go: same
// left-duplication rule for odd-length levels, same sibling-path proof
// shape, generalized from validator-batch anchoring to ledger
// checkpoints (spec §4.4).
type merkleTree struct {
	leaves [][]byte
	levels [][][]byte
	root   []byte
}

// buildMerkleTree constructs a tree over leaves, which must be non-empty
// 32-byte SHA-256 digests.
func buildMerkleTree(leaves [][]byte) (*merkleTree, error) {
	if len(leaves) == 0 {
		return nil, fmt.Errorf("ledger: cannot build checkpoint from zero transactions")
	}

	t := &merkleTree{leaves: leaves}
	level := append([][]byte(nil), leaves...)
	t.levels = append(t.levels, level)

	for len(level) > 1 {
		next := make([][]byte, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			if i+1 < len(level) {
				next = append(next, hashPair(level[i], level[i+1]))
			} else {
				next = append(next, hashPair(level[i], level[i])) // odd tail: duplicate
			}
		}
		t.levels = append(t.levels, next)
		level = next
	}

	t.root = level[0]
	return t, nil
}

func hashPair(left, right []byte) []byte {
	buf := make([]byte, 0, len(left)+len(right))
	buf = append(buf, left...)
	buf = append(buf, right...)
	sum := sha256.Sum256(buf)
	return sum[:]
}

// RootHex returns the tree's root as lowercase hex.
func (t *merkleTree) RootHex() string {
	return hex.EncodeToString(t.root)
}

// proofSibling is one step of an inclusion proof's sibling path.
type proofSibling struct {
	Hash   []byte
	OnLeft bool
}

// toInclusionProof converts a tree-internal sibling path into the public,
// wire-friendly model.InclusionProof shape: each sibling is hex-encoded
// with an "L:"/"R:" prefix recording which side it hashes on, since
// model.InclusionProof carries sides as part of the string rather than a
// parallel bool slice.
func toInclusionProof(leaf []byte, index int, path []proofSibling) *model.InclusionProof {
	siblings := make([]string, len(path))
	for i, step := range path {
		side := "R:"
		if step.OnLeft {
			side = "L:"
		}
		siblings[i] = side + hex.EncodeToString(step.Hash)
	}
	return &model.InclusionProof{
		LeafHash: hex.EncodeToString(leaf),
		LeafIdx:  index,
		Siblings: siblings,
	}
}

// fromInclusionProof recovers the tree-internal sibling path from a
// model.InclusionProof, the inverse of toInclusionProof.
func fromInclusionProof(p *model.InclusionProof) ([]byte, []proofSibling, error) {
	leaf, err := hex.DecodeString(p.LeafHash)
	if err != nil {
		return nil, nil, fmt.Errorf("ledger: decode proof leaf hash: %w", err)
	}
	path := make([]proofSibling, len(p.Siblings))
	for i, s := range p.Siblings {
		if len(s) < 2 {
			return nil, nil, fmt.Errorf("ledger: malformed proof sibling %q", s)
		}
		onLeft := s[:2] == "L:"
		hash, err := hex.DecodeString(s[2:])
		if err != nil {
			return nil, nil, fmt.Errorf("ledger: decode proof sibling %q: %w", s, err)
		}
		path[i] = proofSibling{Hash: hash, OnLeft: onLeft}
	}
	return leaf, path, nil
}

// proof generates the sibling path for the leaf at index, spec §4.4's
// inclusion proof used by verify_fact.
func (t *merkleTree) proof(index int) ([]proofSibling, error) {
	if index < 0 || index >= len(t.leaves) {
		return nil, fmt.Errorf("ledger: leaf index %d out of range [0,%d)", index, len(t.leaves))
	}

	var path []proofSibling
	cur := index
	for level := 0; level < len(t.levels)-1; level++ {
		nodes := t.levels[level]
		var siblingIdx int
		var onLeft bool
		if cur%2 == 0 {
			siblingIdx = cur + 1
			onLeft = false
		} else {
			siblingIdx = cur - 1
			onLeft = true
		}
		var sibling []byte
		if siblingIdx < len(nodes) {
			sibling = nodes[siblingIdx]
		} else {
			sibling = nodes[cur] // odd tail: node was hashed against itself
			onLeft = false
		}
		path = append(path, proofSibling{Hash: sibling, OnLeft: onLeft})
		cur /= 2
	}
	return path, nil
}

// verifyProof recomputes the root from leaf and path and compares it
// against root.
func verifyProof(leaf []byte, path []proofSibling, root []byte) bool {
	cur := leaf
	for _, step := range path {
		if step.OnLeft {
			cur = hashPair(step.Hash, cur)
		} else {
			cur = hashPair(cur, step.Hash)
		}
	}
	return bytes.Equal(cur, root)
}
