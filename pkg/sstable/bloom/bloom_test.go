package bloom

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFilterNoFalseNegatives(t *testing.T) {
	f := New(1000, 0.01)
	keys := make([][]byte, 0, 1000)
	for i := 0; i < 1000; i++ {
		k := []byte(fmt.Sprintf("key-%d", i))
		keys = append(keys, k)
		f.Add(k)
	}
	for _, k := range keys {
		require.True(t, f.PossiblyContains(k))
	}
}

func TestFilterLowFalsePositiveRate(t *testing.T) {
	f := New(1000, 0.01)
	for i := 0; i < 1000; i++ {
		f.Add([]byte(fmt.Sprintf("key-%d", i)))
	}
	falsePositives := 0
	trials := 10000
	for i := 0; i < trials; i++ {
		if f.PossiblyContains([]byte(fmt.Sprintf("absent-%d", i))) {
			falsePositives++
		}
	}
	require.Less(t, float64(falsePositives)/float64(trials), 0.05)
}

func TestFilterEncodeDecodeRoundTrip(t *testing.T) {
	f := New(100, 0.05)
	f.Add([]byte("alpha"))
	f.Add([]byte("beta"))

	data := f.Encode()
	decoded, err := Decode(data)
	require.NoError(t, err)

	require.True(t, decoded.PossiblyContains([]byte("alpha")))
	require.True(t, decoded.PossiblyContains([]byte("beta")))
}

func TestDecodeRejectsTruncatedData(t *testing.T) {
	_, err := Decode([]byte{1, 2, 3})
	require.Error(t, err)
}
