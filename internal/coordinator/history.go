package coordinator

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"github.com/schalkdaniel/distributed-lm/internal/common"
)

// appendHistory records one completed round in the run's audit CSV. History is
// advisory: a failed append is logged but never fails the round that already
// committed.
func (r *Run) appendHistory(iteration int, averageLoss float64, converged bool) {
	fileName := filepath.Join(r.dir, common.HISTORY_FILE_NAME)
	file, err := os.OpenFile(fileName, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		r.logger.Warn("failed to open history file", "file", fileName, "error", err)
		return
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	record := []string{fmt.Sprintf("%d", iteration), fmt.Sprintf("%g", averageLoss), fmt.Sprintf("%t", converged)}
	if err := writer.Write(record); err != nil {
		r.logger.Warn("failed to append history record", "file", fileName, "error", err)
	}
}
