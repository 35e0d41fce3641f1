package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseDay(t *testing.T) {
	t.Run("iso date", func(t *testing.T) {
		d, err := ParseDay("2020-01-02")
		require.NoError(t, err)
		require.Equal(t, time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC), d)
	})

	t.Run("yyyymmdd day key", func(t *testing.T) {
		d, err := ParseDay("20200102")
		require.NoError(t, err)
		require.Equal(t, time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC), d)
	})

	t.Run("anything else is an error", func(t *testing.T) {
		_, err := ParseDay("01/02/2020")
		require.Error(t, err)

		_, err = ParseDay("202001")
		require.Error(t, err)
	})
}
