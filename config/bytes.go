package config

import (
	"strings"

	"github.com/alecthomas/units"
	"github.com/pkg/errors"
	"github.com/spf13/cast"
)

// ParseBytes converts a configuration value into a byte count.  Integers and
// integer strings are taken as bytes, anything else must carry a unit suffix
// ("64KiB", "8MiB", "1GB").  Units are always powers of two.
func ParseBytes(v interface{}) (int64, error) {
	if s, ok := v.(string); ok {
		s = strings.TrimSpace(s)
		if s == "" {
			return 0, errors.New("empty byte size")
		}
		v = s
	}

	n, err := cast.ToInt64E(v)
	if err != nil {
		s, ok := v.(string)
		if !ok {
			return 0, errors.Wrapf(err, "unable to parse byte size %v", v)
		}

		b, err := units.ParseBase2Bytes(s)
		if err != nil {
			return 0, errors.Wrapf(err, "unable to parse byte size %q", s)
		}
		n = int64(b)
	}

	if n < 0 {
		return 0, errors.Errorf("negative byte size: %d", n)
	}

	return n, nil
}
