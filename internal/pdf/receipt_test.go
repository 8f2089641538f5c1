package pdf

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReceipts_Render(t *testing.T) {
	var buf bytes.Buffer
	err := NewReceipts("Natours").Render(&buf, ReceiptData{
		BookingID:     7,
		TourName:      "The Forest Hiker",
		CustomerName:  "Zoé Müller",
		CustomerEmail: "zoe@example.io",
		Price:         397,
		Currency:      "USD",
		Paid:          true,
		BookedAt:      time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
	assert.Greater(t, buf.Len(), 500)
}
