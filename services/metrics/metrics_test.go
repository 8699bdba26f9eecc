package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRecordCallRunningAverage(t *testing.T) {
	s := NewService()

	s.RecordCall("shopee", 100*time.Millisecond)
	s.RecordCall("shopee", 300*time.Millisecond)

	stats := s.Snapshot()["shopee"]
	assert.Equal(t, int64(2), stats.Calls)
	assert.Equal(t, 200*time.Millisecond, stats.AvgLatency)
}

func TestRecordFailure(t *testing.T) {
	s := NewService()

	s.RecordFailure("lazada")
	s.RecordFailure("lazada")

	stats := s.Snapshot()["lazada"]
	assert.Equal(t, int64(2), stats.Failures)
	assert.Equal(t, int64(0), stats.Calls)
}

func TestSnapshotIsACopy(t *testing.T) {
	s := NewService()
	s.RecordCall("tiki", time.Millisecond)

	snap := s.Snapshot()
	entry := snap["tiki"]
	entry.Calls = 999
	snap["tiki"] = entry

	assert.Equal(t, int64(1), s.Snapshot()["tiki"].Calls)
}

func TestConcurrentRecording(t *testing.T) {
	s := NewService()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.RecordCall("shopee", 10*time.Millisecond)
			s.RecordFailure("shopee")
		}()
	}
	wg.Wait()

	stats := s.Snapshot()["shopee"]
	assert.Equal(t, int64(50), stats.Calls)
	assert.Equal(t, int64(50), stats.Failures)
	assert.Equal(t, 10*time.Millisecond, stats.AvgLatency)
}
