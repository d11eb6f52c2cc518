package utils

import (
	"encoding/csv"
	"fmt"
	"sort"

	"github.com/facette/natsort"
)

type CSV [][]string

func (data CSV) Less(i, j int) bool {
	return natsort.Compare(data[i][0], data[j][0])
}

func (data CSV) Len() int {
	return len(data)
}
func (data CSV) Swap(i, j int) {
	data[i], data[j] = data[j], data[i]
}

// WriteAsCSV writes columns followed by data rows ordered naturally by the
// first column, so "cycle 10" lands after "cycle 9".
func WriteAsCSV(data CSV, path, subpath, filename string, makeDir bool, columns []string) error {
	file, err := OpenFile(makeDir, path, subpath, GetFilename(filename))
	if err != nil {
		return fmt.Errorf("unable to open %s: %w", filename, err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write(columns); err != nil {
		return err
	}
	sort.Sort(data)
	if err := w.WriteAll(data); err != nil {
		return fmt.Errorf("error writing csv: %w", err)
	}
	return nil
}
