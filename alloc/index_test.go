package alloc

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// checkAVL verifies ordering, stored heights and the balance factor of every
// node and returns the subtree height.
func checkAVL(t *testing.T, n *avlNode) int8 {
	t.Helper()
	if n == nil {
		return 0
	}
	if n.left != nil {
		require.True(t, keyLess(n.left.size, n.left.off, n), "left child out of order")
	}
	if n.right != nil {
		require.False(t, keyLess(n.right.size, n.right.off, n), "right child out of order")
	}
	lh, rh := checkAVL(t, n.left), checkAVL(t, n.right)
	require.LessOrEqual(t, int(lh)-int(rh), 1)
	require.GreaterOrEqual(t, int(lh)-int(rh), -1)
	require.Equal(t, 1+max(lh, rh), n.height)
	return n.height
}

// bruteBestSize returns the smallest size >= need in ref, or -1.
func bruteBestSize(ref map[int64]int64, need int64) int64 {
	best := int64(-1)
	for _, size := range ref {
		if size >= need && (best < 0 || size < best) {
			best = size
		}
	}
	return best
}

func exerciseIndex(t *testing.T, idx freeIndex, seed int64, onStep func()) {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	ref := make(map[int64]int64)

	for i := 0; i < 3000; i++ {
		if len(ref) == 0 || rng.Intn(3) > 0 {
			// Sizes repeat often so duplicate keys get exercised.
			size := int64(8 * (1 + rng.Intn(64)))
			off := int64(8 * rng.Intn(1<<20))
			for _, taken := ref[off]; taken; _, taken = ref[off] {
				off += 8
			}
			idx.insert(off, size)
			ref[off] = size
		} else {
			for off, size := range ref {
				require.True(t, idx.remove(off, size), "step %d: remove %#x", i, off)
				delete(ref, off)
				break
			}
		}
		require.Equal(t, len(ref), idx.len(), "step %d", i)

		need := int64(8 * (1 + rng.Intn(70)))
		want := bruteBestSize(ref, need)
		off, size, ok := idx.bestFit(need)
		if want < 0 {
			require.False(t, ok, "step %d: best fit for %d should miss", i, need)
		} else {
			require.True(t, ok)
			require.Equal(t, want, size, "step %d: best fit for %d", i, need)
			require.Equal(t, ref[off], size)
		}

		off, size, ok = idx.firstFit(need)
		require.Equal(t, want >= 0, ok, "step %d: first fit must find a block when one exists", i)
		if ok {
			require.GreaterOrEqual(t, size, need)
			require.Equal(t, ref[off], size)
		}

		if onStep != nil {
			onStep()
		}
	}

	seen := 0
	idx.each(func(off, size int64) bool {
		assert.Equal(t, ref[off], size)
		seen++
		return true
	})
	assert.Equal(t, len(ref), seen)
}

func TestAVLTreeAgainstReference(t *testing.T) {
	tree := newAVLTree()
	exerciseIndex(t, tree, 42, func() { checkAVL(t, tree.root) })
}

func TestAddrListAgainstReference(t *testing.T) {
	list := newAddrList()
	exerciseIndex(t, list, 7, func() {
		prev := int64(-1)
		list.each(func(off, _ int64) bool {
			require.Greater(t, off, prev, "list must stay address ordered")
			prev = off
			return true
		})
	})
}

func TestAVLRemoveMissing(t *testing.T) {
	tree := newAVLTree()
	tree.insert(0x100, 64)
	assert.False(t, tree.remove(0x100, 72), "size is part of the key")
	assert.False(t, tree.remove(0x200, 64))
	assert.True(t, tree.remove(0x100, 64))
	assert.Equal(t, 0, tree.len())
	assert.Nil(t, tree.root)
}

func TestAVLStaysShallow(t *testing.T) {
	tree := newAVLTree()
	// Ascending inserts degrade an unbalanced tree into a list.
	for i := int64(0); i < 1<<12; i++ {
		tree.insert(i*64, 8)
	}
	h := checkAVL(t, tree.root)
	assert.LessOrEqual(t, int(h), 18, "AVL height bound is about 1.44 log2(n)")
}

func TestAVLBestFitExactShortCircuit(t *testing.T) {
	tree := newAVLTree()
	for i, size := range []int64{64, 32, 128, 64, 256} {
		tree.insert(int64(i)*0x1000, size)
	}
	_, size, ok := tree.bestFit(64)
	require.True(t, ok)
	assert.Equal(t, int64(64), size)

	_, size, ok = tree.bestFit(65)
	require.True(t, ok)
	assert.Equal(t, int64(128), size)

	_, _, ok = tree.bestFit(257)
	assert.False(t, ok)
}

func TestAddrListOrder(t *testing.T) {
	list := newAddrList()
	for _, off := range []int64{0x300, 0x100, 0x500, 0x200, 0x400} {
		list.insert(off, off/8)
	}

	var got []int64
	list.each(func(off, _ int64) bool {
		got = append(got, off)
		return true
	})
	assert.Equal(t, []int64{0x100, 0x200, 0x300, 0x400, 0x500}, got)

	off, _, ok := list.firstFit(0x50)
	require.True(t, ok)
	assert.Equal(t, int64(0x300), off, "lowest address whose size fits")

	off, _, ok = list.bestFit(0x41)
	require.True(t, ok)
	assert.Equal(t, int64(0x300), off)

	require.True(t, list.remove(0x100, 0x20))
	require.True(t, list.remove(0x500, 0xA0))
	assert.Equal(t, int64(0x200), list.head.off)
	assert.Equal(t, int64(0x400), list.tail.off)
}

func TestQuickListStack(t *testing.T) {
	assert.Nil(t, newQuickList(0))

	q := newQuickList(128)
	q.push(1)
	q.push(2)
	assert.Equal(t, 2, q.len())
	off, ok := q.pop()
	require.True(t, ok)
	assert.Equal(t, int64(2), off)
	off, ok = q.pop()
	require.True(t, ok)
	assert.Equal(t, int64(1), off)
	_, ok = q.pop()
	assert.False(t, ok)
}

func TestSizeClassTable(t *testing.T) {
	for _, cfg := range []SizeClassConfig{ConfigFineGrained, ConfigBalanced, ConfigCoarse} {
		table := newSizeClassTable(cfg)
		require.Positive(t, table.numClasses(), cfg.Name)
		assert.Equal(t, cfg.Name, table.String())

		prev := -1
		for size := int64(8); size <= cfg.MediumMax+64; size += 8 {
			c := table.class(size)
			require.GreaterOrEqual(t, c, prev, "%s: classes must not decrease", cfg.Name)
			if c < table.numClasses() {
				require.LessOrEqual(t, size, table.upper(c))
			}
			prev = c
		}
		assert.Equal(t, table.numClasses(), table.class(cfg.MediumMax*4), "%s: overflow bucket", cfg.Name)
		assert.Equal(t, int64(-1), table.upper(table.numClasses()))
	}
}
