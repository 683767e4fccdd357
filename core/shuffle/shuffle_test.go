package shuffle

import (
	"fmt"
	"math/rand"
	"testing"

	"QueueFM/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeItems(n int) []model.QueueItem {
	items := make([]model.QueueItem, n)
	for i := range items {
		items[i] = model.QueueItem{
			Song:          model.Song{ID: fmt.Sprintf("s%d", i)},
			QueueID:       fmt.Sprintf("q%d", i),
			OriginalIndex: -1,
		}
	}
	return items
}

func ids(items []model.QueueItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.QueueID
	}
	return out
}

func TestShuffle_KeepsPlayedAndCurrentInPlace(t *testing.T) {
	items := makeItems(20)
	out := Shuffle(items, 4, rand.New(rand.NewSource(1)))

	require.Len(t, out, 20)
	assert.Equal(t, ids(items)[:5], ids(out)[:5])
	assert.ElementsMatch(t, ids(items)[5:], ids(out)[5:])
	assert.NotEqual(t, ids(items)[5:], ids(out)[5:], "20 items with seed 1 should not stay sorted")
}

func TestShuffle_DoesNotMutateInput(t *testing.T) {
	items := makeItems(6)
	before := ids(items)
	_ = Shuffle(items, 0, rand.New(rand.NewSource(7)))
	assert.Equal(t, before, ids(items))
	assert.Equal(t, -1, items[3].OriginalIndex)
}

func TestShuffle_QueuedItemsKeepSlots(t *testing.T) {
	items := makeItems(10)
	items[1].IsQueued = true
	items[2].IsQueued = true
	items[7].IsQueued = true

	for seed := int64(0); seed < 20; seed++ {
		out := Shuffle(items, 0, rand.New(rand.NewSource(seed)))
		assert.Equal(t, "q1", out[1].QueueID)
		assert.Equal(t, "q2", out[2].QueueID)
		assert.Equal(t, "q7", out[7].QueueID)
	}
}

func TestUnshuffle_RoundTrip(t *testing.T) {
	items := makeItems(15)
	items[3].IsQueued = true

	shuffled := Shuffle(items, 2, rand.New(rand.NewSource(42)))
	restored := Unshuffle(shuffled, 2)

	assert.Equal(t, ids(items), ids(restored))
}

func TestUnshuffle_AfterPlayingRestoresRemainingOrder(t *testing.T) {
	items := makeItems(8)
	shuffled := Shuffle(items, 0, rand.New(rand.NewSource(3)))

	// 播放头前进两首后再还原
	restored := Unshuffle(shuffled, 2)
	assert.Equal(t, ids(shuffled)[:3], ids(restored)[:3])

	upcoming := restored[3:]
	for i := 1; i < len(upcoming); i++ {
		assert.Less(t, upcoming[i-1].OriginalIndex, upcoming[i].OriginalIndex)
	}
}

func TestUnshuffle_UnrecordedItemsGoLast(t *testing.T) {
	items := makeItems(4)
	items[1].OriginalIndex = 3
	items[2].OriginalIndex = -1
	items[3].OriginalIndex = 1

	out := Unshuffle(items, 0)
	assert.Equal(t, []string{"q0", "q3", "q1", "q2"}, ids(out))
}

func TestShuffle_ShortTail(t *testing.T) {
	items := makeItems(3)
	out := Shuffle(items, 1, rand.New(rand.NewSource(9)))
	assert.Equal(t, ids(items), ids(out))
	assert.Equal(t, 2, out[2].OriginalIndex)
}
