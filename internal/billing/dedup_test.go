// internal/billing/dedup_test.go
package billing

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupWindow_SeenAfterAdd(t *testing.T) {
	w := NewDedupWindow(4)

	assert.False(t, w.Seen("evt_1"))
	w.Add("evt_1")
	assert.True(t, w.Seen("evt_1"))
	assert.Equal(t, 1, w.Len())
}

func TestDedupWindow_AddIsIdempotent(t *testing.T) {
	w := NewDedupWindow(4)

	w.Add("evt_1")
	w.Add("evt_1")
	w.Add("evt_1")
	assert.Equal(t, 1, w.Len())
}

func TestDedupWindow_FIFOEviction(t *testing.T) {
	w := NewDedupWindow(3)

	w.Add("evt_1")
	w.Add("evt_2")
	w.Add("evt_3")
	assert.Equal(t, 3, w.Len())

	// A fourth entry evicts the oldest.
	w.Add("evt_4")
	assert.Equal(t, 3, w.Len())
	assert.False(t, w.Seen("evt_1"))
	assert.True(t, w.Seen("evt_2"))
	assert.True(t, w.Seen("evt_3"))
	assert.True(t, w.Seen("evt_4"))
}

func TestDedupWindow_EvictionOrderHolds(t *testing.T) {
	w := NewDedupWindow(2)

	for i := 0; i < 10; i++ {
		w.Add(fmt.Sprintf("evt_%d", i))
	}
	assert.Equal(t, 2, w.Len())
	assert.True(t, w.Seen("evt_8"))
	assert.True(t, w.Seen("evt_9"))
	assert.False(t, w.Seen("evt_7"))
}

func TestDedupWindow_MinimumSize(t *testing.T) {
	w := NewDedupWindow(0)

	w.Add("evt_1")
	assert.True(t, w.Seen("evt_1"))
	w.Add("evt_2")
	assert.False(t, w.Seen("evt_1"))
	assert.True(t, w.Seen("evt_2"))
}
