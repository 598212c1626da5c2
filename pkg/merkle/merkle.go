// Package merkle implements the allowlist commitment scheme: a keccak-256
// Merkle tree over account identifiers with sorted-pair hashing, so proofs
// carry no left/right orientation bits.
package merkle

import (
	"bytes"
	"encoding/hex"

	"github.com/google/uuid"
	"golang.org/x/crypto/sha3"
)

// HashSize is the size of a tree node in bytes.
const HashSize = 32

// Hash is a tree node.
type Hash [HashSize]byte

// String returns the lowercase hex encoding of the hash.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// ParseHash decodes a lowercase hex node. Returns false on malformed input.
func ParseHash(s string) (Hash, bool) {
	var h Hash
	raw, err := hex.DecodeString(s)
	if err != nil || len(raw) != HashSize {
		return h, false
	}
	copy(h[:], raw)
	return h, true
}

// Leaf hashes an account identifier into a tree leaf.
func Leaf(account uuid.UUID) Hash {
	return keccak(account[:])
}

// Verify checks a membership proof against a root commitment.
// The proof is a bottom-up list of sibling hashes in hex.
func Verify(root string, leaf Hash, proof []string) bool {
	want, ok := ParseHash(root)
	if !ok {
		return false
	}

	node := leaf
	for _, p := range proof {
		sibling, ok := ParseHash(p)
		if !ok {
			return false
		}
		node = hashPair(node, sibling)
	}
	return node == want
}

// Tree is a complete Merkle tree kept level by level, leaves first.
type Tree struct {
	levels [][]Hash
}

// NewTree builds a tree over the given accounts. Odd nodes are promoted
// unhashed to the next level.
func NewTree(accounts []uuid.UUID) *Tree {
	leaves := make([]Hash, len(accounts))
	for i, a := range accounts {
		leaves[i] = Leaf(a)
	}

	t := &Tree{levels: [][]Hash{leaves}}
	for level := leaves; len(level) > 1; {
		next := make([]Hash, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			if i+1 == len(level) {
				next = append(next, level[i])
				continue
			}
			next = append(next, hashPair(level[i], level[i+1]))
		}
		t.levels = append(t.levels, next)
		level = next
	}
	return t
}

// Root returns the hex-encoded root commitment. Empty trees return "".
func (t *Tree) Root() string {
	top := t.levels[len(t.levels)-1]
	if len(top) == 0 {
		return ""
	}
	return top[0].String()
}

// Proof returns the membership proof for the leaf at index i.
func (t *Tree) Proof(i int) []string {
	var proof []string
	for _, level := range t.levels[:len(t.levels)-1] {
		sibling := i ^ 1
		if sibling < len(level) {
			proof = append(proof, level[sibling].String())
		}
		i /= 2
	}
	return proof
}

// hashPair hashes two nodes in byte order, smaller first.
func hashPair(a, b Hash) Hash {
	if bytes.Compare(a[:], b[:]) > 0 {
		a, b = b, a
	}
	return keccak(append(append([]byte{}, a[:]...), b[:]...))
}

func keccak(data []byte) Hash {
	var h Hash
	d := sha3.NewLegacyKeccak256()
	d.Write(data)
	copy(h[:], d.Sum(nil))
	return h
}
