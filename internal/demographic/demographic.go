// Package demographic holds the respondent attribute vocabularies used by
// registration and campaign targeting. Values outside these lists are never
// rejected at match time, they simply never match.
package demographic

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"
)

//go:embed states.json
var statesJSON []byte

var (
	once     sync.Once
	loadErr  error
	cached   []string
	stateSet map[string]struct{}
)

var Genders = []string{"Male", "Female"}

var AgeRanges = []string{"18-24", "25-34", "35-44", "45+"}

func loadOnce() {
	var states []string

	dec := json.NewDecoder(bytes.NewReader(statesJSON))
	dec.DisallowUnknownFields()

	err := dec.Decode(&states)
	if err != nil {
		loadErr = fmt.Errorf("demographic: failed to decode states.json: %w", err)
		return
	}

	m := make(map[string]struct{}, len(states))
	for i, s := range states {
		if s == "" {
			loadErr = fmt.Errorf("demographic: empty state entry at index %d", i)
			return
		}
		if _, exists := m[s]; exists {
			loadErr = fmt.Errorf("demographic: duplicated state: %s", s)
			return
		}
		m[s] = struct{}{}
	}

	cached = states
	stateSet = m
}

func States() []string {
	once.Do(loadOnce)
	if loadErr != nil {
		return nil
	}
	return cached
}

func IsValidState(s string) bool {
	once.Do(loadOnce)
	if loadErr != nil {
		return false
	}
	_, ok := stateSet[s]
	return ok
}

func IsValidGender(s string) bool {
	for _, g := range Genders {
		if g == s {
			return true
		}
	}
	return false
}

func IsValidAgeRange(s string) bool {
	for _, a := range AgeRanges {
		if a == s {
			return true
		}
	}
	return false
}
