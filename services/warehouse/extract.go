package warehouse

import (
	"encoding/json"
	"fmt"
	"sort"
)

// The MRData envelope nests entity lists under a table container whose
// name differs between endpoint families. Containers are probed in a
// fixed priority order; new endpoint shapes are additive here.
var containerOrder = []string{
	"RaceTable",
	"DriverTable",
	"ConstructorTable",
	"CircuitTable",
}

// extractEntities pulls the entity list named by `entity` out of a raw
// snapshot. Two envelope forms are accepted: the MRData envelope the
// API serves for dimension endpoints, and the flattened
// {"Races": [...], "year": N} document the ingestor writes for per-year
// pulls. Anything else is a *SchemaError.
func extractEntities(payload json.RawMessage, entity string) ([]json.RawMessage, error) {
	var doc map[string]json.RawMessage
	err := json.Unmarshal(payload, &doc)
	if err != nil {
		return nil, fmt.Errorf("decode raw snapshot: %w", err)
	}

	rawMRData, hasMRData := doc["MRData"]
	if !hasMRData {
		// the flattened form is recognized by the presence of the
		// key, so an empty season stays a legitimate empty collection
		if raw, ok := doc["Races"]; ok && entity == "Races" {
			var out []json.RawMessage
			err := json.Unmarshal(raw, &out)
			if err != nil {
				return nil, fmt.Errorf("decode entity list %q: %w", entity, err)
			}
			return out, nil
		}
		return nil, &SchemaError{Entity: entity, Observed: topLevelKeys(payload)}
	}

	var mrData map[string]json.RawMessage
	err = json.Unmarshal(rawMRData, &mrData)
	if err != nil {
		return nil, fmt.Errorf("decode raw snapshot: %w", err)
	}

	for _, container := range containerOrder {
		raw, ok := mrData[container]
		if !ok {
			continue
		}
		var table map[string]json.RawMessage
		err := json.Unmarshal(raw, &table)
		if err != nil {
			return nil, fmt.Errorf("decode container %q: %w", container, err)
		}
		entities, ok := table[entity]
		if !ok {
			continue
		}
		var out []json.RawMessage
		err = json.Unmarshal(entities, &out)
		if err != nil {
			return nil, fmt.Errorf("decode entity list %q: %w", entity, err)
		}
		return out, nil
	}

	// endpoints whose entity lives nested under races (e.g. results)
	// keep their rows in RaceTable.Races; an empty race table is a
	// legitimate empty collection, not a schema mismatch
	if entity == "Races" {
		if _, ok := mrData["RaceTable"]; ok {
			return nil, nil
		}
	}

	observed := make([]string, 0, len(mrData))
	for k := range mrData {
		observed = append(observed, k)
	}
	sort.Strings(observed)
	return nil, &SchemaError{Entity: entity, Observed: observed}
}

func topLevelKeys(payload json.RawMessage) []string {
	var doc map[string]json.RawMessage
	err := json.Unmarshal(payload, &doc)
	if err != nil {
		return nil
	}
	keys := make([]string, 0, len(doc))
	for k := range doc {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
