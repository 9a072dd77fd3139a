package monitoring

import (
	"sync"
	"time"
)

// A ProgressBar tracks how many temperature steps of a search are done.
type ProgressBar struct {
	lock      sync.Mutex
	ID        string
	Name      string
	StartTime time.Time
	Total     uint64
	Finished  uint64
}

type progressRsp struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	StartTime time.Time `json:"start_time"`
	Total     uint64    `json:"total"`
	Finished  uint64    `json:"finished"`
}

// IncrementFinished adds to the number of finished steps.
func (b *ProgressBar) IncrementFinished(amount uint64) {
	b.lock.Lock()
	defer b.lock.Unlock()

	b.Finished += amount
}

// Complete marks every step as finished.
func (b *ProgressBar) Complete() {
	b.lock.Lock()
	defer b.lock.Unlock()

	b.Finished = b.Total
}

func (b *ProgressBar) response() progressRsp {
	b.lock.Lock()
	defer b.lock.Unlock()

	return progressRsp{
		ID:        b.ID,
		Name:      b.Name,
		StartTime: b.StartTime,
		Total:     b.Total,
		Finished:  b.Finished,
	}
}
