package pageio

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewPageWrapsNumberAndData(t *testing.T) {
	data := make([]byte, 32)
	copy(data, "page contents")

	p := NewPage(PageNumber(5), data)
	require.Equal(t, PageNumber(5), p.Number())
	require.Equal(t, data, p.Data())
}
