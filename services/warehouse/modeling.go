package warehouse

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"go.opentelemetry.io/otel/codes"
)

// StatusPolicy classifies a raw result status string, reporting whether
// the entrant failed to finish. It is a named, swappable policy rather
// than hard-coded truth: the default below is a conservative heuristic
// and callers may substitute their own reading of the status taxonomy.
type StatusPolicy func(status string) bool

var lappedFinish = regexp.MustCompile(`^\+\d+\s+Laps?$`)

// DefaultStatusPolicy treats "Finished" and lapped finishes
// ("+1 Lap", "+2 Laps", ...) as classified finishes; every other
// status (mechanical failure, collision, disqualification,
// retirement, an empty status) counts as a DNF.
func DefaultStatusPolicy(status string) bool {
	s := strings.TrimSpace(status)
	if s == "Finished" {
		return false
	}
	if lappedFinish.MatchString(s) {
		return false
	}
	return true
}

// ModelingOptions configures the modeling table build. HeldoutYear is
// the season assigned to the "test" split, normally the most recent
// season in the ingested range. A nil StatusPolicy falls back to
// DefaultStatusPolicy.
type ModelingOptions struct {
	HeldoutYear  int
	StatusPolicy StatusPolicy
}

// BuildModeling joins the result table to the race table on race_id,
// derives the labels, assigns the temporal split and projects to the
// fixed modeling column set. The join is validated many-to-one; any
// orphan result, fanned-out race key or missing date aborts the build.
//
// Rows come back sorted by (race_date, race_id, driver_id) so
// downstream temporal processing is deterministic.
func BuildModeling(ctx context.Context, races []Race, results []Result, opts ModelingOptions) ([]ModelingRow, error) {
	ctx, span := tracer.Start(ctx, "BuildModeling")
	defer span.End()

	policy := opts.StatusPolicy
	if policy == nil {
		policy = DefaultStatusPolicy
	}

	raceById := make(map[string]Race, len(races))
	var fanout []string
	for _, race := range races {
		if _, ok := raceById[race.RaceId]; ok {
			fanout = append(fanout, race.RaceId)
		}
		raceById[race.RaceId] = race
	}
	if len(fanout) > 0 {
		err := &IntegrityError{
			Table:  "driver_race_modeling",
			Reason: "join fan-out, race_id is not unique on the race side",
			Keys:   sampleKeys(fanout),
		}
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	var orphans, noDates []string
	rows := make([]ModelingRow, 0, len(results))
	for _, result := range results {
		race, ok := raceById[result.RaceId]
		if !ok {
			orphans = append(orphans, result.RaceId)
			continue
		}
		if race.RaceDate == nil {
			noDates = append(noDates, result.RaceId)
			continue
		}

		// an absent finish position means DNF, which cannot be a podium
		isPodium := result.Position != nil && *result.Position <= 3

		split := "train"
		if result.Year != nil && *result.Year == int64(opts.HeldoutYear) {
			split = "test"
		}

		rows = append(rows, ModelingRow{
			RaceId:         result.RaceId,
			Year:           result.Year,
			Round:          result.Round,
			RaceDate:       race.RaceDate,
			RaceName:       race.RaceName,
			CircuitId:      race.CircuitId,
			DriverId:       result.DriverId,
			ConstructorId:  result.ConstructorId,
			FinishPosition: result.Position,
			Points:         result.Points,
			Status:         result.Status,
			IsDnf:          policy(result.Status),
			IsPodium:       isPodium,
			Split:          split,
		})
	}

	if len(orphans) > 0 {
		err := &IntegrityError{
			Table:  "driver_race_modeling",
			Reason: "results reference unknown race_id",
			Keys:   sampleKeys(orphans),
		}
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if len(noDates) > 0 {
		err := &IntegrityError{
			Table:  "driver_race_modeling",
			Reason: "missing race_date after join",
			Keys:   sampleKeys(noDates),
		}
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].RaceDate.Equal(*rows[j].RaceDate) {
			return rows[i].RaceDate.Before(*rows[j].RaceDate)
		}
		if rows[i].RaceId != rows[j].RaceId {
			return rows[i].RaceId < rows[j].RaceId
		}
		return rows[i].DriverId < rows[j].DriverId
	})

	seen := map[[2]string]bool{}
	var dups []string
	for _, row := range rows {
		key := [2]string{row.RaceId, row.DriverId}
		if seen[key] {
			dups = append(dups, fmt.Sprintf("(%s, %s)", row.RaceId, row.DriverId))
		}
		seen[key] = true
	}
	if len(dups) > 0 {
		err := &IntegrityError{
			Table:  "driver_race_modeling",
			Reason: "duplicate (race_id, driver_id)",
			Keys:   sampleKeys(dups),
		}
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	slog.InfoContext(ctx, "built modeling table", "rows", len(rows))
	return rows, nil
}
