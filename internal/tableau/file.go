package tableau

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/TPSMaidscc/chat-audit/internal/ingest"
	"github.com/TPSMaidscc/chat-audit/internal/models"
)

// FileSource serves exports from local CSV files named <view>_<date>.csv.
// Used when no server credentials are configured.
type FileSource struct {
	Dir string
}

func (s FileSource) FetchEvents(_ context.Context, viewName string, date string) ([]models.MessageEvent, error) {
	path := filepath.Join(s.Dir, fmt.Sprintf("%s_%s.csv", viewName, date))
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, &FetchError{Op: "open file", Err: err}
	}
	defer f.Close()

	events, _, err := ingest.ParseEvents(f)
	if err != nil {
		return nil, err
	}
	return events, nil
}
