package utils

import (
	"encoding/json"

	"github.com/juju/errors"
)

// Serialize encodes o the way store records are kept.
func Serialize(o any) ([]byte, error) {
	b, err := json.Marshal(o)
	if err != nil {
		return nil, errors.Annotatef(err, "serialize %T", o)
	}
	return b, nil
}

func Unserialize(b []byte, o any) error {
	if err := json.Unmarshal(b, o); err != nil {
		return errors.Annotatef(err, "unserialize into %T", o)
	}
	return nil
}
