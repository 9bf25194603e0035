// Copyright 2017 Cameron Bergoon
// https://github.com/cbergoon/merkletree
// Licensed under the MIT License, see LICENCE file for details.
// This code has been cleaned up, refactored, and turned into generics.

// Package merkle provides the binary hash tree used to commit a block's
// transactions and candidate nonce into a single root digest.
//
// Pairing convention: leaves are hashed, then adjacent node hashes are
// concatenated and hashed level by level. When a level holds an odd number
// of nodes the last node is paired with itself. At least one pairing round
// always runs, so a tree over a single leaf h has the root H(h || h).
package merkle

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"hash"
)

// ErrNoContent is returned when a tree is requested over no values.
var ErrNoContent = errors.New("cannot construct tree with no content")

// Hashable represents the behavior concrete data must exhibit to be used in
// the merkle tree.
type Hashable[T any] interface {
	Hash() ([]byte, error)
}

// =============================================================================

// Leaf is an opaque string leaf. Block commitments are built from the
// canonical encoding of each transaction followed by the decimal nonce.
type Leaf string

// Hash implements the Hashable interface using sha256.
func (l Leaf) Hash() ([]byte, error) {
	h := sha256.Sum256([]byte(l))
	return h[:], nil
}

// RootHex builds a sha256 tree over the leaves and returns the root as
// lowercase hex without a prefix.
func RootHex(leaves []string) (string, error) {
	values := make([]Leaf, len(leaves))
	for i, s := range leaves {
		values[i] = Leaf(s)
	}

	tree, err := NewTree(values)
	if err != nil {
		return "", err
	}

	return tree.RootHex(), nil
}

// =============================================================================

// Tree represents a merkle tree that uses data of some type T that exhibits the
// behavior defined by the Hashable constraint.
type Tree[T Hashable[T]] struct {
	Values       []T
	Levels       [][][]byte
	MerkleRoot   []byte
	hashStrategy func() hash.Hash
}

// WithHashStrategy is used to change the default hash strategy of using sha256
// when constructing a new tree.
func WithHashStrategy[T Hashable[T]](hashStrategy func() hash.Hash) func(t *Tree[T]) {
	return func(t *Tree[T]) {
		t.hashStrategy = hashStrategy
	}
}

// NewTree constructs a new merkle tree that uses data of some type T that
// exhibits the behavior defined by the Hashable interface.
func NewTree[T Hashable[T]](values []T, options ...func(t *Tree[T])) (*Tree[T], error) {
	t := Tree[T]{
		hashStrategy: sha256.New,
	}

	for _, option := range options {
		option(&t)
	}

	if err := t.Generate(values); err != nil {
		return nil, err
	}

	return &t, nil
}

// Generate constructs the levels of the tree from the specified data. If the
// tree has been generated previously, the tree is re-generated from scratch.
func (t *Tree[T]) Generate(values []T) error {
	if len(values) == 0 {
		return ErrNoContent
	}

	level := make([][]byte, 0, len(values))
	for _, value := range values {
		hash, err := value.Hash()
		if err != nil {
			return err
		}
		level = append(level, hash)
	}

	levels := [][][]byte{level}
	for {
		next := make([][]byte, 0, (len(level)+1)/2)

		for i := 0; i < len(level); i += 2 {
			left, right := level[i], level[i]
			if i+1 < len(level) {
				right = level[i+1]
			}

			h := t.hashStrategy()
			h.Write(left)
			h.Write(right)
			next = append(next, h.Sum(nil))
		}

		levels = append(levels, next)
		level = next

		if len(level) == 1 {
			break
		}
	}

	t.Values = values
	t.Levels = levels
	t.MerkleRoot = level[0]

	return nil
}

// RootHex converts the merkle root byte hash to a hex encoded string.
func (t *Tree[T]) RootHex() string {
	return hex.EncodeToString(t.MerkleRoot)
}
