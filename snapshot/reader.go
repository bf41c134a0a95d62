package snapshot

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"
)

// Read decodes an export written by Writer.
func Read(path string) (Snapshot, error) {
	var s Snapshot
	b, err := os.ReadFile(path)
	if err != nil {
		return s, errors.Wrap(err, "read export")
	}
	return s, errors.Wrapf(json.Unmarshal(b, &s), "decode export %s", path)
}
