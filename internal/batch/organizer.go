package batch

import "github.com/a11ysuite/aiscan/internal/models"

// Batch is an ordered group of scan records bounded by the batch size,
// partitioned into mini-batches bounded by the mini-batch size.
// Batches are ephemeral and recomputed every run.
type Batch struct {
	Number      int // 1-based
	MiniBatches [][]models.ScanRecord
}

// ItemCount returns the number of records across all mini-batches.
func (b Batch) ItemCount() int {
	count := 0
	for _, mb := range b.MiniBatches {
		count += len(mb)
	}
	return count
}

// Organize partitions records into batches and mini-batches.
// Pure and deterministic: input order is preserved, partitions are
// contiguous, no record is reordered or filtered. Size bounds are
// validated at the CLI layer before this is called.
func Organize(records []models.ScanRecord, batchSize, miniBatchSize int) []Batch {
	if len(records) == 0 {
		return []Batch{}
	}

	batches := make([]Batch, 0, (len(records)+batchSize-1)/batchSize)
	for i := 0; i < len(records); i += batchSize {
		end := i + batchSize
		if end > len(records) {
			end = len(records)
		}
		batches = append(batches, Batch{
			Number:      len(batches) + 1,
			MiniBatches: splitMiniBatches(records[i:end], miniBatchSize),
		})
	}
	return batches
}

// splitMiniBatches splits one batch's records into contiguous mini-batches.
func splitMiniBatches(records []models.ScanRecord, miniBatchSize int) [][]models.ScanRecord {
	miniBatches := make([][]models.ScanRecord, 0, (len(records)+miniBatchSize-1)/miniBatchSize)
	for i := 0; i < len(records); i += miniBatchSize {
		end := i + miniBatchSize
		if end > len(records) {
			end = len(records)
		}
		miniBatches = append(miniBatches, records[i:end])
	}
	return miniBatches
}
