package main

import (
	"encoding/json"
	"io"
	"os"

	"github.com/cockroachdb/errors"

	"gearsel/internal/catalog"
)

// readInput reads path, or stdin when path is "" or "-".
func readInput(path string) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(os.Stdin)
	}
	b, err := os.ReadFile(path)
	return b, errors.Wrapf(err, "read %s", path)
}

// writeJSON writes v indented to path, or to stdout when path is "" or "-".
func writeJSON(stdout io.Writer, path string, v any) error {
	out := stdout
	if path != "" && path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return errors.Wrap(err, "create output")
		}
		defer f.Close()
		out = f
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return errors.Wrap(enc.Encode(v), "encode output")
}

func readCatalog(path string) (catalog.Catalog, []byte, error) {
	data, err := readInput(path)
	if err != nil {
		return catalog.Catalog{}, nil, err
	}
	var cat catalog.Catalog
	if err := json.Unmarshal(data, &cat); err != nil {
		return catalog.Catalog{}, nil, errors.Wrap(err, "decode catalog")
	}
	return cat, data, nil
}
