package warehouse

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"

	"pitwall-backend/lib/rawstore"

	"go.opentelemetry.io/otel/codes"
)

// Builder turns raw snapshots into flat, typed, uniquely-keyed tables.
// Each Build* method reads one or more snapshots, extracts the nested
// record list, renames fields to canonical names, coerces types and
// enforces the table's primary key before returning.
type Builder struct {
	raw   rawstore.Store
	years YearRange
}

func NewBuilder(raw rawstore.Store, years YearRange) Builder {
	return Builder{raw: raw, years: years}
}

type rawLocation struct {
	Lat      string `json:"lat"`
	Long     string `json:"long"`
	Locality string `json:"locality"`
	Country  string `json:"country"`
}

type rawDriver struct {
	DriverId    string `json:"driverId"`
	Code        string `json:"code"`
	GivenName   string `json:"givenName"`
	FamilyName  string `json:"familyName"`
	DateOfBirth string `json:"dateOfBirth"`
	Nationality string `json:"nationality"`
	Url         string `json:"url"`
}

type rawConstructor struct {
	ConstructorId string `json:"constructorId"`
	Name          string `json:"name"`
	Nationality   string `json:"nationality"`
	Url           string `json:"url"`
}

type rawCircuit struct {
	CircuitId   string      `json:"circuitId"`
	CircuitName string      `json:"circuitName"`
	Location    rawLocation `json:"Location"`
	Url         string      `json:"url"`
}

type rawRace struct {
	Season   string      `json:"season"`
	Round    string      `json:"round"`
	RaceName string      `json:"raceName"`
	Date     string      `json:"date"`
	Circuit  rawCircuit  `json:"Circuit"`
	Url      string      `json:"url"`
	Results  []rawResult `json:"Results"`
}

type rawResult struct {
	Grid          string `json:"grid"`
	Position      string `json:"position"`
	PositionOrder string `json:"positionOrder"`
	Points        string `json:"points"`
	Status        string `json:"status"`
	Laps          string `json:"laps"`
	Driver        struct {
		DriverId string `json:"driverId"`
	} `json:"Driver"`
	Constructor struct {
		ConstructorId string `json:"constructorId"`
	} `json:"Constructor"`
	Time *struct {
		Time string `json:"time"`
	} `json:"Time"`
}

func decodeEntities[T any](payload json.RawMessage, entity string) ([]T, error) {
	raws, err := extractEntities(payload, entity)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(raws))
	for _, raw := range raws {
		var record T
		err := json.Unmarshal(raw, &record)
		if err != nil {
			return nil, fmt.Errorf("decode %s record: %w", entity, err)
		}
		out = append(out, record)
	}
	return out, nil
}

func (b Builder) BuildDrivers(ctx context.Context) ([]Driver, error) {
	ctx, span := tracer.Start(ctx, "BuildDrivers")
	defer span.End()

	payload, err := b.raw.Read("drivers")
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	records, err := decodeEntities[rawDriver](payload, "Drivers")
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	rows := make([]Driver, 0, len(records))
	seen := map[string]bool{}
	var dups []string
	for _, r := range records {
		if seen[r.DriverId] {
			dups = append(dups, r.DriverId)
		}
		seen[r.DriverId] = true
		rows = append(rows, Driver{
			DriverId:    r.DriverId,
			DriverCode:  r.Code,
			GivenName:   r.GivenName,
			FamilyName:  r.FamilyName,
			Dob:         coerceDate(r.DateOfBirth),
			Nationality: r.Nationality,
			Url:         r.Url,
		})
	}
	if len(dups) > 0 {
		err := &IntegrityError{
			Table:  "drivers",
			Reason: "duplicate driver_id",
			Keys:   sampleKeys(dups),
		}
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	slog.InfoContext(ctx, "built drivers table", "rows", len(rows))
	return rows, nil
}

func (b Builder) BuildConstructors(ctx context.Context) ([]Constructor, error) {
	ctx, span := tracer.Start(ctx, "BuildConstructors")
	defer span.End()

	payload, err := b.raw.Read("constructors")
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	records, err := decodeEntities[rawConstructor](payload, "Constructors")
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	rows := make([]Constructor, 0, len(records))
	seen := map[string]bool{}
	var dups []string
	for _, r := range records {
		if seen[r.ConstructorId] {
			dups = append(dups, r.ConstructorId)
		}
		seen[r.ConstructorId] = true
		rows = append(rows, Constructor{
			ConstructorId: r.ConstructorId,
			Name:          r.Name,
			Nationality:   r.Nationality,
			Url:           r.Url,
		})
	}
	if len(dups) > 0 {
		err := &IntegrityError{
			Table:  "constructors",
			Reason: "duplicate constructor_id",
			Keys:   sampleKeys(dups),
		}
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	slog.InfoContext(ctx, "built constructors table", "rows", len(rows))
	return rows, nil
}

func (b Builder) BuildCircuits(ctx context.Context) ([]Circuit, error) {
	ctx, span := tracer.Start(ctx, "BuildCircuits")
	defer span.End()

	payload, err := b.raw.Read("circuits")
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	records, err := decodeEntities[rawCircuit](payload, "Circuits")
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	rows := make([]Circuit, 0, len(records))
	seen := map[string]bool{}
	var dups []string
	for _, r := range records {
		if seen[r.CircuitId] {
			dups = append(dups, r.CircuitId)
		}
		seen[r.CircuitId] = true
		rows = append(rows, Circuit{
			CircuitId: r.CircuitId,
			Name:      r.CircuitName,
			Locality:  r.Location.Locality,
			Country:   r.Location.Country,
			Lat:       coerceFloat(r.Location.Lat),
			Lng:       coerceFloat(r.Location.Long),
			Url:       r.Url,
		})
	}
	if len(dups) > 0 {
		err := &IntegrityError{
			Table:  "circuits",
			Reason: "duplicate circuit_id",
			Keys:   sampleKeys(dups),
		}
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	slog.InfoContext(ctx, "built circuits table", "rows", len(rows))
	return rows, nil
}

// raceId derives the surrogate key from a race's own season and round
// fields. Both the race and result builders go through here so the two
// tables can never disagree on the join key.
func raceId(season, round string) string {
	return fmt.Sprintf("%s_%s", season, round)
}

func (b Builder) BuildRaces(ctx context.Context) ([]Race, error) {
	ctx, span := tracer.Start(ctx, "BuildRaces")
	defer span.End()

	var rows []Race
	seen := map[string]bool{}
	var dups, noDates []string
	roundsByYear := map[string][]int64{}

	for _, year := range b.years.Years() {
		payload, err := b.raw.Read(fmt.Sprintf("races_%d", year))
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		records, err := decodeEntities[rawRace](payload, "Races")
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}

		for _, r := range records {
			id := raceId(r.Season, r.Round)
			if seen[id] {
				dups = append(dups, id)
			}
			seen[id] = true

			row := Race{
				RaceId:      id,
				Year:        coerceInt(r.Season),
				Round:       coerceInt(r.Round),
				RaceDate:    coerceDate(r.Date),
				RaceName:    r.RaceName,
				CircuitId:   r.Circuit.CircuitId,
				CircuitName: r.Circuit.CircuitName,
				Url:         r.Url,
			}
			if row.RaceDate == nil {
				noDates = append(noDates, id)
			}
			if row.Round != nil {
				roundsByYear[r.Season] = append(roundsByYear[r.Season], *row.Round)
			}
			rows = append(rows, row)
		}
	}

	if len(dups) > 0 {
		err := &IntegrityError{
			Table:  "races",
			Reason: "duplicate race_id",
			Keys:   sampleKeys(dups),
		}
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	// a null race date after parsing is unrecoverable data corruption,
	// not a soft warning
	if len(noDates) > 0 {
		err := &IntegrityError{
			Table:  "races",
			Reason: "races have missing race_date after parsing",
			Keys:   sampleKeys(noDates),
		}
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	err := checkRoundContiguity(roundsByYear)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	slog.InfoContext(ctx, "built races table", "rows", len(rows))
	return rows, nil
}

// checkRoundContiguity asserts that every season's rounds are exactly
// 1..N with no gaps or reuse. The "{year}_{round}" surrogate key scheme
// silently produces wrong joins if the upstream ever re-numbers rounds
// mid-season, so a gap fails loudly instead.
func checkRoundContiguity(roundsByYear map[string][]int64) error {
	var bad []string
	for season, rounds := range roundsByYear {
		sort.Slice(rounds, func(i, j int) bool { return rounds[i] < rounds[j] })
		for i, round := range rounds {
			if round != int64(i+1) {
				bad = append(bad, fmt.Sprintf("%s (round %d at position %d)", season, round, i+1))
				break
			}
		}
	}
	if len(bad) > 0 {
		sort.Strings(bad)
		return &IntegrityError{
			Table:  "races",
			Reason: "season rounds are not contiguous from 1",
			Keys:   sampleKeys(bad),
		}
	}
	return nil
}

func (b Builder) BuildResults(ctx context.Context) ([]Result, error) {
	ctx, span := tracer.Start(ctx, "BuildResults")
	defer span.End()

	var rows []Result
	seen := map[[2]string]bool{}
	var dups []string

	for _, year := range b.years.Years() {
		payload, err := b.raw.Read(fmt.Sprintf("results_%d", year))
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		races, err := decodeEntities[rawRace](payload, "Races")
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}

		for _, race := range races {
			// the race's own (season, round) is the source of truth
			// for the key, never an embedded id
			id := raceId(race.Season, race.Round)

			for _, r := range race.Results {
				key := [2]string{id, r.Driver.DriverId}
				if seen[key] {
					dups = append(dups, fmt.Sprintf("(%s, %s)", id, r.Driver.DriverId))
				}
				seen[key] = true

				var raceTime *string
				if r.Time != nil {
					raceTime = coerceString(r.Time.Time)
				}
				rows = append(rows, Result{
					RaceId:        id,
					Year:          coerceInt(race.Season),
					Round:         coerceInt(race.Round),
					DriverId:      r.Driver.DriverId,
					ConstructorId: r.Constructor.ConstructorId,
					Grid:          coerceInt(r.Grid),
					Position:      coerceInt(r.Position),
					PositionOrder: coerceInt(r.PositionOrder),
					Points:        coerceFloat(r.Points),
					Status:        r.Status,
					Laps:          coerceInt(r.Laps),
					Time:          raceTime,
				})
			}
		}
	}

	if len(dups) > 0 {
		err := &IntegrityError{
			Table:  "results",
			Reason: "duplicate (race_id, driver_id)",
			Keys:   sampleKeys(dups),
		}
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	slog.InfoContext(ctx, "built results table", "rows", len(rows))
	return rows, nil
}
