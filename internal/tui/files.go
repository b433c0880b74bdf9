package tui

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
)

// uploadCandidates lists regular, non-hidden files in dir for the upload picker.
func uploadCandidates(dir string) ([]pickerItem, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var items []pickerItem
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		info, err := e.Info()
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		items = append(items, pickerItem{
			ID:    filepath.Join(dir, e.Name()),
			Label: e.Name(),
			Meta:  humanize.Bytes(uint64(info.Size())),
		})
	}
	sort.Slice(items, func(i, j int) bool {
		ji, jj := strings.HasSuffix(items[i].Label, ".json"), strings.HasSuffix(items[j].Label, ".json")
		if ji != jj {
			return ji
		}
		return items[i].Label < items[j].Label
	})
	return items, nil
}

// resolveUploadPath makes a typed path relative to the upload directory.
func resolveUploadPath(dir, typed string) string {
	typed = strings.TrimSpace(typed)
	if typed == "" {
		return ""
	}
	if strings.HasPrefix(typed, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, typed[2:])
		}
	}
	if filepath.IsAbs(typed) {
		return typed
	}
	return filepath.Join(dir, typed)
}
