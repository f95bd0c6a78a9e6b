package index

import "github.com/tidwall/tinyqueue"

type frontierItem struct {
	branch int
	score  float64
	seq    uint64
}

// Less orders the queue so that the highest score comes out first. Equal
// scores come out in insertion order.
func (item *frontierItem) Less(b tinyqueue.Item) bool {
	other := b.(*frontierItem)
	if item.score != other.score {
		return item.score > other.score
	}
	return item.seq < other.seq
}

// Frontier is a max-first priority queue of scored branches.
type Frontier struct {
	queue *tinyqueue.Queue
	seq   uint64
}

// NewFrontier returns an empty frontier.
func NewFrontier() *Frontier {
	return &Frontier{queue: tinyqueue.New(nil)}
}

// Push queues a branch under score.
func (f *Frontier) Push(branch int, score float64) {
	f.queue.Push(&frontierItem{branch: branch, score: score, seq: f.seq})
	f.seq++
}

// Pop removes the best entry. It must not be called on an empty frontier.
func (f *Frontier) Pop() (branch int, score float64) {
	item := f.queue.Pop().(*frontierItem)
	return item.branch, item.score
}

// PeekScore returns the best score without removing its entry. It must not
// be called on an empty frontier.
func (f *Frontier) PeekScore() float64 {
	return f.queue.Peek().(*frontierItem).score
}

// Len is the number of queued entries.
func (f *Frontier) Len() int { return f.queue.Len() }
