package scheduler

import (
	"encoding/json"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// NeverFetched is the Age of a source that has not completed a fetch.
const NeverFetched time.Duration = -1

// SourceStatus is the diagnostic view of one source.
type SourceStatus struct {
	Name      string
	Enabled   bool
	Scheduled bool
	Interval  time.Duration
	LastFetch time.Time
	Age       time.Duration
}

type sourceStatusJSON struct {
	Name      string     `json:"name"`
	Enabled   bool       `json:"enabled"`
	Scheduled bool       `json:"scheduled"`
	Interval  string     `json:"interval"`
	LastFetch *time.Time `json:"last_fetch,omitempty"`
	AgeMS     int64      `json:"age_ms"`
}

func (s SourceStatus) wire() sourceStatusJSON {
	out := sourceStatusJSON{
		Name:      s.Name,
		Enabled:   s.Enabled,
		Scheduled: s.Scheduled,
		Interval:  s.Interval.String(),
		AgeMS:     -1,
	}
	if !s.LastFetch.IsZero() {
		ts := s.LastFetch
		out.LastFetch = &ts
		out.AgeMS = s.Age.Milliseconds()
	}
	return out
}

func (s *SourceStatus) fromWire(in sourceStatusJSON) error {
	interval, err := time.ParseDuration(in.Interval)
	if err != nil {
		return err
	}
	*s = SourceStatus{
		Name:      in.Name,
		Enabled:   in.Enabled,
		Scheduled: in.Scheduled,
		Interval:  interval,
		Age:       NeverFetched,
	}
	if in.LastFetch != nil {
		s.LastFetch = *in.LastFetch
		s.Age = time.Duration(in.AgeMS) * time.Millisecond
	}
	return nil
}

// MarshalJSON renders Interval as a duration string and Age in
// milliseconds, -1 when never fetched.
func (s SourceStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.wire())
}

func (s *SourceStatus) UnmarshalJSON(data []byte) error {
	var in sourceStatusJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	return s.fromWire(in)
}

// MarshalCBOR uses the same field layout as MarshalJSON.
func (s SourceStatus) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(s.wire())
}

func (s *SourceStatus) UnmarshalCBOR(data []byte) error {
	var in sourceStatusJSON
	if err := cbor.Unmarshal(data, &in); err != nil {
		return err
	}
	return s.fromWire(in)
}

// Fetched reports whether the source has completed at least one fetch.
func (s SourceStatus) Fetched() bool {
	return s.Age != NeverFetched
}
