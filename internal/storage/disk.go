package storage

import "os"

// sqliteSidecars are the journal files SQLite keeps next to the database in WAL mode.
var sqliteSidecars = []string{"-wal", "-shm"}

// DiskUsageBytes returns the total on-disk size in bytes of the given files.
// Used by the status endpoint to report database and index footprint.
// For the SQLite database this includes the WAL sidecar files, which can hold
// a significant share of recently upserted POIs before a checkpoint.
// Missing paths are skipped (contribute 0); other stat errors are returned.
func DiskUsageBytes(paths ...string) (int64, error) {
	var total int64
	for _, p := range paths {
		if p == "" {
			continue
		}
		n, err := fileSize(p)
		if err != nil {
			return 0, err
		}
		total += n
		for _, suffix := range sqliteSidecars {
			n, err := fileSize(p + suffix)
			if err != nil {
				return 0, err
			}
			total += n
		}
	}
	return total, nil
}

func fileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	if info.IsDir() {
		return 0, nil
	}
	return info.Size(), nil
}
