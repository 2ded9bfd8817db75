package batch

import (
	"fmt"
	"testing"

	"github.com/a11ysuite/aiscan/internal/models"
	"github.com/stretchr/testify/assert"
)

func makeRecords(n int) []models.ScanRecord {
	records := make([]models.ScanRecord, n)
	for i := range records {
		records[i] = models.ScanRecord{
			ScanID: fmt.Sprintf("scan-%03d", i+1),
			URL:    fmt.Sprintf("https://example.com/page-%d", i+1),
		}
	}
	return records
}

func TestOrganize(t *testing.T) {
	tests := []struct {
		name              string
		records           int
		batchSize         int
		miniBatchSize     int
		wantBatches       int
		wantLastBatchSize int
	}{
		{
			name:              "exact multiple",
			records:           200,
			batchSize:         100,
			miniBatchSize:     5,
			wantBatches:       2,
			wantLastBatchSize: 100,
		},
		{
			name:              "trailing partial batch",
			records:           237,
			batchSize:         100,
			miniBatchSize:     5,
			wantBatches:       3,
			wantLastBatchSize: 37,
		},
		{
			name:              "fewer records than one batch",
			records:           12,
			batchSize:         100,
			miniBatchSize:     5,
			wantBatches:       1,
			wantLastBatchSize: 12,
		},
		{
			name:              "single record",
			records:           1,
			batchSize:         100,
			miniBatchSize:     5,
			wantBatches:       1,
			wantLastBatchSize: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records := makeRecords(tt.records)
			batches := Organize(records, tt.batchSize, tt.miniBatchSize)

			assert.Len(t, batches, tt.wantBatches)
			assert.Equal(t, tt.wantLastBatchSize, batches[len(batches)-1].ItemCount())

			total := 0
			for i, b := range batches {
				assert.Equal(t, i+1, b.Number)
				total += b.ItemCount()
				for _, mb := range b.MiniBatches {
					assert.LessOrEqual(t, len(mb), tt.miniBatchSize)
					assert.NotEmpty(t, mb)
				}
			}
			assert.Equal(t, tt.records, total)
		})
	}
}

func TestOrganizePreservesOrder(t *testing.T) {
	records := makeRecords(237)
	batches := Organize(records, 100, 5)

	var flattened []models.ScanRecord
	for _, b := range batches {
		for _, mb := range b.MiniBatches {
			flattened = append(flattened, mb...)
		}
	}

	assert.Equal(t, records, flattened)
}

func TestOrganizeMiniBatchSplit(t *testing.T) {
	// 237 records, batch size 100: batches of 100, 100, 37.
	// Mini-batch size 5 leaves a trailing mini-batch of 2 in the last batch.
	batches := Organize(makeRecords(237), 100, 5)

	last := batches[2]
	assert.Len(t, last.MiniBatches, 8)
	assert.Len(t, last.MiniBatches[7], 2)

	for _, b := range batches[:2] {
		assert.Len(t, b.MiniBatches, 20)
	}
}

func TestOrganizeEmptyInput(t *testing.T) {
	batches := Organize(nil, 100, 5)
	assert.Empty(t, batches)
}

func TestOrganizeMiniBatchSizeOne(t *testing.T) {
	batches := Organize(makeRecords(3), 100, 1)
	assert.Len(t, batches, 1)
	assert.Len(t, batches[0].MiniBatches, 3)
	for _, mb := range batches[0].MiniBatches {
		assert.Len(t, mb, 1)
	}
}
