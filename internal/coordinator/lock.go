package coordinator

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/schalkdaniel/distributed-lm/internal/common"
)

// ErrLocked is returned when another coordinator already holds a run directory.
var ErrLocked = errors.New("run directory is locked by another coordinator")

// acquireLock creates the run's lock file exclusively. The lock makes the
// single-writer discipline over the shared persisted state explicit: two
// coordinators driving the same directory would race on the multi-record
// writes, so the second one is rejected here.
func acquireLock(dir string) error {
	file, err := os.OpenFile(lockPath(dir), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%w: %s", ErrLocked, lockPath(dir))
		}
		return err
	}
	defer file.Close()

	_, err = fmt.Fprintf(file, "%d\n", os.Getpid())
	return err
}

func releaseLock(dir string) error {
	if err := os.Remove(lockPath(dir)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func lockPath(dir string) string {
	return filepath.Join(dir, common.LOCK_FILE_NAME)
}
