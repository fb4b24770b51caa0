// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package statetest

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// LoadTestUnits reads one fixture file: a JSON object mapping fixture names
// to test units.
func LoadTestUnits(path string) (map[string]*TestUnit, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var units map[string]*TestUnit
	if err := json.Unmarshal(data, &units); err != nil {
		return nil, fmt.Errorf("failed to parse fixture file %s: %w", path, err)
	}
	return units, nil
}

// FindTestFiles resolves a path to the fixture files it covers: the path
// itself if it names a file, or all .json files under it if it names a
// directory. The result is sorted for a deterministic processing order.
func FindTestFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{path}, nil
	}
	var files []string
	err = filepath.WalkDir(path, func(entry string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(entry, ".json") {
			files = append(files, entry)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.Sort(files)
	return files, nil
}
