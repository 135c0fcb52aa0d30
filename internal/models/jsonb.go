package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JSONB is a generic map stored in a jsonb column.
type JSONB map[string]any

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value any) error {
	if value == nil {
		*j = nil
		return nil
	}
	b, err := jsonbBytes(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, j)
}

// FeatureVector maps a term to its salience weight (>= 0).
type FeatureVector map[string]float64

func (v FeatureVector) Value() (driver.Value, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

func (v *FeatureVector) Scan(value any) error {
	if value == nil {
		*v = nil
		return nil
	}
	b, err := jsonbBytes(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

// IssueList is a jsonb-backed slice of detected issues.
type IssueList []DetectedIssue

func (l IssueList) Value() (driver.Value, error) {
	if l == nil {
		return nil, nil
	}
	return json.Marshal(l)
}

func (l *IssueList) Scan(value any) error {
	if value == nil {
		*l = nil
		return nil
	}
	b, err := jsonbBytes(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, l)
}

// MatchList is a jsonb-backed slice of similarity matches.
type MatchList []SimilarityMatch

func (m MatchList) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

func (m *MatchList) Scan(value any) error {
	if value == nil {
		*m = nil
		return nil
	}
	b, err := jsonbBytes(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, m)
}

func jsonbBytes(value any) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("unsupported jsonb source type %T", value)
	}
}
