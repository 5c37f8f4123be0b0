package ggm

import (
	"io"

	"github.com/sirupsen/logrus"
)

type (
	// node is a frontier entry: the value sitting at the root of a subtree whose
	// leaves are all still evaluable.
	node struct {
		prefix prefix
		value  [OutputSize]byte
	}

	// puncturableKey holds the directional generators, the frontier and the
	// leaves punctured so far. The frontier is an antichain: no prefix in it is a
	// prefix of another, so at most one node covers any given leaf.
	puncturableKey struct {
		prgs      [2]*prg
		frontier  []node
		punctured map[string]struct{}
	}
)

func newPuncturableKey(rand io.Reader) (*puncturableKey, error) {
	secret, err := sampleSecret(rand)
	if err != nil {
		return nil, err
	}
	prg0, err := newPRG(rand)
	if err != nil {
		return nil, err
	}
	prg1, err := newPRG(rand)
	if err != nil {
		return nil, err
	}

	return &puncturableKey{
		prgs: [2]*prg{prg0, prg1},
		frontier: []node{
			{prefix: newPrefix(false), value: prg0.eval(secret)},
			{prefix: newPrefix(true), value: prg1.eval(secret)},
		},
		punctured: make(map[string]struct{}),
	}, nil
}

// generator returns the PRG used when the path continues with bit b.
func (k *puncturableKey) generator(b bool) *prg {
	if b {
		return k.prgs[1]
	}
	return k.prgs[0]
}

func (k *puncturableKey) findPrefix(bits prefix) (node, error) {
	for _, n := range k.frontier {
		if bits.hasPrefix(n.prefix) {
			return n, nil
		}
	}
	return node{}, ErrNoPrefixFound
}

func (k *puncturableKey) isPunctured(leaf prefix) bool {
	_, ok := k.punctured[leaf.String()]
	return ok
}

// puncture replaces the frontier node at covering by the given replacement
// nodes and records leaf as punctured. The new frontier is assembled before it
// is installed, so a failed call leaves the key untouched.
func (k *puncturableKey) puncture(covering, leaf prefix, replacements []node) error {
	if k.isPunctured(leaf) {
		return ErrAlreadyPunctured
	}

	index := -1
	for i, n := range k.frontier {
		if n.prefix.equal(covering) {
			index = i
			break
		}
	}
	if index < 0 {
		return ErrNoPrefixFound
	}

	frontier := make([]node, 0, len(k.frontier)-1+len(replacements))
	frontier = append(frontier, k.frontier[:index]...)
	frontier = append(frontier, k.frontier[index+1:]...)
	frontier = append(frontier, replacements...)

	k.frontier = frontier
	k.punctured[leaf.String()] = struct{}{}

	Logger.WithFields(logrus.Fields{
		"depth":        covering.len(),
		"replacements": len(replacements),
		"frontier":     len(frontier),
	}).Trace("punctured frontier node")
	return nil
}
