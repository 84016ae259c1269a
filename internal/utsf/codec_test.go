package utsf

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompressExpandRoundTrip(t *testing.T) {
	tests := []struct {
		name      string
		pincodes  []int
		threshold int
	}{
		{"empty", nil, 3},
		{"single value", []int{500001}, 3},
		{"short run stays singles", []int{1, 2}, 3},
		{"exact threshold run becomes range", []int{1, 2, 3}, 3},
		{"mixed runs and gaps", []int{1, 2, 3, 10, 20, 21, 22, 23, 30}, 3},
		{"unsorted duplicated input", []int{5, 3, 4, 3, 5}, 3},
		{"threshold of one collapses everything", []int{1, 5, 9}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ranges, singles := Compress(tt.pincodes, tt.threshold)
			expanded := Expand(ranges, singles)

			want := make(map[int]struct{}, len(tt.pincodes))
			for _, p := range tt.pincodes {
				want[p] = struct{}{}
			}

			assert.Equal(t, want, expanded)
		})
	}
}

func TestCompressThresholdBoundary(t *testing.T) {
	ranges, singles := Compress([]int{100, 101, 102}, 3)
	assert.Len(t, ranges, 1)
	assert.Empty(t, singles)
	assert.Equal(t, Range{S: 100, E: 102}, ranges[0])

	ranges, singles = Compress([]int{100, 101}, 3)
	assert.Empty(t, ranges)
	assert.Equal(t, []int{100, 101}, singles)
}

func TestCompressZeroThresholdFallsBackToDefault(t *testing.T) {
	ranges, _ := Compress([]int{1, 2, 3}, 0)
	assert.Equal(t, []Range{{S: 1, E: 3}}, ranges)
}

func TestExpandReversedRange(t *testing.T) {
	out := Expand([]Range{{S: 10, E: 5}}, nil)
	for p := 5; p <= 10; p++ {
		assert.Contains(t, out, p)
	}
	assert.Len(t, out, 6)
}
