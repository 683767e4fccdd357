// Package shuffle 提供播放队列"待播部分"的打乱与还原。
//
// 只处理当前播放项之后的自然顺序项；当前项、已播放项以及临时插入的项
// （下一首播放/最后播放）保持原位。
package shuffle

import (
	"math/rand"
	"sort"

	"QueueFM/model"

	"github.com/samber/lo"
)

// upcomingSlots 返回 current 之后所有可参与打乱的位置
func upcomingSlots(items []model.QueueItem, current int) []int {
	return lo.Filter(lo.Range(len(items)), func(i int, _ int) bool {
		return i > current && !items[i].IsQueued
	})
}

// RecordOriginalOrder 记录每一项当前的位置，作为还原依据
func RecordOriginalOrder(items []model.QueueItem) {
	for i := range items {
		items[i].OriginalIndex = i
	}
}

// Shuffle 返回打乱后的新队列，输入不会被修改。
// 打乱前会重新记录 OriginalIndex，Unshuffle 依此恢复顺序。
func Shuffle(items []model.QueueItem, current int, rng *rand.Rand) []model.QueueItem {
	out := make([]model.QueueItem, len(items))
	copy(out, items)
	RecordOriginalOrder(out)

	slots := upcomingSlots(out, current)
	if len(slots) <= 1 {
		return out
	}

	picked := lo.Map(slots, func(i int, _ int) model.QueueItem { return out[i] })

	// Fisher-Yates 洗牌算法
	for i := len(picked) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		picked[i], picked[j] = picked[j], picked[i]
	}

	for k, slot := range slots {
		out[slot] = picked[k]
	}
	return out
}

// Unshuffle 按 OriginalIndex 还原待播部分的相对顺序，结果是确定的。
// 没有记录原始位置的项排在最后，彼此保持现有顺序。
func Unshuffle(items []model.QueueItem, current int) []model.QueueItem {
	out := make([]model.QueueItem, len(items))
	copy(out, items)

	slots := upcomingSlots(out, current)
	if len(slots) <= 1 {
		return out
	}

	picked := lo.Map(slots, func(i int, _ int) model.QueueItem { return out[i] })
	sort.SliceStable(picked, func(a, b int) bool {
		return sortKey(picked[a]) < sortKey(picked[b])
	})

	for k, slot := range slots {
		out[slot] = picked[k]
	}
	return out
}

func sortKey(item model.QueueItem) int {
	if item.OriginalIndex < 0 {
		return int(^uint(0) >> 1)
	}
	return item.OriginalIndex
}
