// Package config loads the YAML settings file that pins the per-
// generation constants a pack/unpack run needs: alignment, bucket
// distribution, and format version. It follows the same
// decode-a-struct-with-yaml.v2 style the example pack's YAML-consuming
// tools use (SPEC_FULL.md section 10.3).
package config

import (
	"io"
	"os"

	yaml "go.yaml.in/yaml/v2"

	"github.com/ashenhollow/bhd5kit/internal/bhd5"
	"github.com/ashenhollow/bhd5kit/internal/errs"
)

// Config is the on-disk settings file shape.
type Config struct {
	FormatVersion     string `yaml:"format_version"`
	Alignment         int64  `yaml:"alignment"`
	Distribution      int    `yaml:"distribution"`
	WriteDataHeader   bool   `yaml:"write_data_header"`
	DataHeaderVersion string `yaml:"data_header_version"`
	BigEndian         bool   `yaml:"big_endian"`
	HashDictionary    string `yaml:"hash_dictionary,omitempty"`
	MaxInFlightBytes  int64  `yaml:"max_in_flight_bytes,omitempty"`
}

// Default returns the conventional settings: EldenRing, 16-byte
// alignment, distribution 7, a DataHeader stamped with version "1.0".
func Default() Config {
	return Config{
		FormatVersion:     "EldenRing",
		Alignment:         16,
		Distribution:      7,
		WriteDataHeader:   true,
		DataHeaderVersion: "1.0",
	}
}

// Load reads and decodes a YAML config file at path. Fields the file
// doesn't set keep their zero value; Default() is not merged in.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, errs.NotFound("path", path)
	}
	defer f.Close()
	return Decode(f)
}

// Decode reads a Config from r.
func Decode(r io.Reader) (Config, error) {
	var c Config
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&c); err != nil && err != io.EOF {
		return Config{}, errs.IO(err)
	}
	return c, nil
}

var formatVersions = map[string]bhd5.FormatVersion{
	"DemonsSouls": bhd5.DemonsSouls,
	"DarkSouls1":  bhd5.DarkSouls1,
	"DarkSouls2":  bhd5.DarkSouls2,
	"DarkSouls3":  bhd5.DarkSouls3,
	"Sekiro":      bhd5.Sekiro,
	"EldenRing":   bhd5.EldenRing,
}

// ResolveFormatVersion maps c.FormatVersion's string name to the
// bhd5.FormatVersion the packer/unpacker actually operate on.
func (c Config) ResolveFormatVersion() (bhd5.FormatVersion, error) {
	v, ok := formatVersions[c.FormatVersion]
	if !ok {
		return 0, errs.Unrecognized("format_version", c.FormatVersion)
	}
	return v, nil
}

// Write serializes c to w as YAML.
func Write(w io.Writer, c Config) error {
	enc := yaml.NewEncoder(w)
	if err := enc.Encode(c); err != nil {
		return errs.IO(err)
	}
	return errs.IO(enc.Close())
}
