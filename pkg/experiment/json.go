package experiment

import (
	"encoding/json"
	"errors"
)

// UnmarshalJSON restores the failure sentinel from the serialized Failure
// field, since error values do not survive a JSON round trip.
func (r *Record) UnmarshalJSON(data []byte) error {
	type alias Record
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*r = Record(a)
	if r.Failure != "" {
		r.Err = errors.New(r.Failure)
	}
	return nil
}

// UnmarshalJSON restores the failure sentinel from the serialized Failure field.
func (j *Judgment) UnmarshalJSON(data []byte) error {
	type alias Judgment
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*j = Judgment(a)
	if j.Failure != "" {
		j.Err = errors.New(j.Failure)
	}
	return nil
}
