package monitor

import (
	"sync"
	"time"
)

// RateDetector counts events in one-second buckets over a sliding window
// and flags a second whose count exceeds threshold times the average of
// the previous ones.
type RateDetector struct {
	mu        sync.Mutex
	buckets   []uint64 // indexed by unix second modulo window
	stamps    []int64  // second each bucket belongs to
	threshold float64
	now       func() time.Time
}

// NewRateDetector creates a detector over window seconds.
func NewRateDetector(window time.Duration, threshold float64) *RateDetector {
	secs := int(window / time.Second)
	if secs < 3 {
		secs = 10
	}
	if threshold <= 0 {
		threshold = 3.0
	}
	return &RateDetector{
		buckets:   make([]uint64, secs),
		stamps:    make([]int64, secs),
		threshold: threshold,
		now:       time.Now,
	}
}

// Add records n events now and reports whether the current second spikes.
func (r *RateDetector) Add(n int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	sec := r.now().Unix()
	i := r.index(sec)
	if r.stamps[i] != sec {
		r.stamps[i] = sec
		r.buckets[i] = 0
	}
	r.buckets[i] += uint64(n)
	return r.spiking(sec)
}

// Rate returns events per second over the completed seconds of the window.
func (r *RateDetector) Rate() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	sum, secs := r.history(r.now().Unix())
	if secs == 0 {
		return 0
	}
	return float64(sum) / float64(secs)
}

// Current returns the count for the current second.
func (r *RateDetector) Current() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	sec := r.now().Unix()
	i := r.index(sec)
	if r.stamps[i] != sec {
		return 0
	}
	return r.buckets[i]
}

func (r *RateDetector) index(sec int64) int {
	return int(sec % int64(len(r.buckets)))
}

// history sums the buckets of the seconds before sec still in the window.
func (r *RateDetector) history(sec int64) (sum uint64, secs int) {
	for i, st := range r.stamps {
		if st < sec && sec-st < int64(len(r.buckets)) {
			sum += r.buckets[i]
			secs++
		}
	}
	return sum, secs
}

func (r *RateDetector) spiking(sec int64) bool {
	sum, secs := r.history(sec)
	if secs < 2 {
		return false
	}
	avg := float64(sum) / float64(secs)
	if avg == 0 {
		return false
	}
	return float64(r.buckets[r.index(sec)]) > avg*r.threshold
}
