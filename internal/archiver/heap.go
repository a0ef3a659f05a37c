package archiver

import (
	"container/heap"

	"permanode/internal/model"
)

// bundleHeap buffers MilestoneData bundles with index > next, ordered so
// the lowest index is always at the top. Grounded on container/heap usage
// across the retrieved pack (see SPEC_FULL.md §4.3), the idiomatic choice
// for a priority queue absent a dedicated heap library in the corpus.
type bundleHeap []model.MilestoneData

func (h bundleHeap) Len() int { return len(h) }
func (h bundleHeap) Less(i, j int) bool {
	return h[i].MilestoneIndex < h[j].MilestoneIndex
}
func (h bundleHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *bundleHeap) Push(x interface{}) {
	*h = append(*h, x.(model.MilestoneData))
}
func (h *bundleHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

func (h *bundleHeap) push(m model.MilestoneData) { heap.Push(h, m) }
func (h *bundleHeap) pop() model.MilestoneData   { return heap.Pop(h).(model.MilestoneData) }
func (h bundleHeap) peek() (model.MilestoneData, bool) {
	if len(h) == 0 {
		return model.MilestoneData{}, false
	}
	return h[0], true
}
