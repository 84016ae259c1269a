package utsf

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// LoadDir reads every *.json file in dir into a map keyed by vendor id.
// A malformed file aborts only that file; the rest still load (spec.md 7:
// "Repair errors ... abort that file only; other files proceed" applies
// equally to load).
func LoadDir(dir string) (map[string]*File, []error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, []error{fmt.Errorf("utsf: read dir %s: %w", dir, err)}
	}

	files := make(map[string]*File)
	var errs []error

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		f, err := LoadFile(path)
		if err != nil {
			errs = append(errs, fmt.Errorf("utsf: load %s: %w", entry.Name(), err))
			continue
		}
		files[f.VendorID()] = f
	}

	return files, errs
}

// LoadFile reads and parses one UTSF file.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// SaveFile persists f atomically: write to a sibling temp file, fsync,
// rename over the target (spec.md 4.4: "All Manager writes must be atomic
// at the file level").
func SaveFile(dir string, f *File) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("utsf: marshal %s: %w", f.VendorID(), err)
	}

	target := filepath.Join(dir, f.VendorID()+".json")
	tmp := target + ".tmp"

	handle, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("utsf: open temp file: %w", err)
	}

	if _, err := handle.Write(data); err != nil {
		handle.Close()
		os.Remove(tmp)
		return fmt.Errorf("utsf: write temp file: %w", err)
	}
	if err := handle.Sync(); err != nil {
		handle.Close()
		os.Remove(tmp)
		return fmt.Errorf("utsf: fsync temp file: %w", err)
	}
	if err := handle.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("utsf: close temp file: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("utsf: rename into place: %w", err)
	}

	return nil
}

// VendorIDs returns the sorted vendor ids present in files.
func VendorIDs(files map[string]*File) []string {
	ids := make([]string, 0, len(files))
	for id := range files {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
