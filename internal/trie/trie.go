package trie

import (
	"sync"
)

// Node is one rune step in the trie. Fields are exported for gob.
type Node struct {
	Children    map[rune]*Node
	ChildrenArr []rune
	IDs         []uint32
}

// Trie maps exact, case-sensitive keys to the IDs of the entities that own them.
type Trie struct {
	Root *Node
	Keys int
	mu   sync.RWMutex
}

func New() *Trie {
	return &Trie{Root: newNode()}
}

func newNode() *Node {
	return &Node{Children: make(map[rune]*Node)}
}

// Insert records that id owns key. Empty keys are ignored.
func (t *Trie) Insert(key string, id uint32) {
	if key == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	node := t.Root
	for _, ch := range key {
		if _, exists := node.Children[ch]; !exists {
			node.Children[ch] = newNode()
			node.ChildrenArr = append(node.ChildrenArr, ch)
		}
		node = node.Children[ch]
	}
	if len(node.IDs) == 0 {
		t.Keys++
	}
	for _, existing := range node.IDs {
		if existing == id {
			return
		}
	}
	node.IDs = append(node.IDs, id)
}

// SearchPrefix returns the IDs owning any key that starts with prefix.
// Comparison is by rune, so "Al" does not match "alice".
func (t *Trie) SearchPrefix(prefix string) []uint32 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	node := t.Root
	for _, ch := range prefix {
		child, exists := node.Children[ch]
		if !exists {
			return nil
		}
		node = child
	}

	var results []uint32
	collectIDs(node, &results)
	return results
}

func collectIDs(node *Node, results *[]uint32) {
	*results = append(*results, node.IDs...)
	for _, ch := range node.ChildrenArr {
		collectIDs(node.Children[ch], results)
	}
}
