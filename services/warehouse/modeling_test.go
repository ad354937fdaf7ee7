package warehouse

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestDefaultStatusPolicy(t *testing.T) {
	cases := []struct {
		status string
		isDnf  bool
	}{
		{"Finished", false},
		{"  Finished  ", false},
		{"+1 Lap", false},
		{"+2 Laps", false},
		{"+11 Laps", false},
		{"Accident", true},
		{"Engine", true},
		{"Disqualified", true},
		{"Lapped", true},
		{"", true},
	}
	for _, c := range cases {
		require.Equal(t, c.isDnf, DefaultStatusPolicy(c.status), "status %q", c.status)
	}
}

func date(s string) *time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return &d
}

func i64(v int64) *int64     { return &v }
func f64(v float64) *float64 { return &v }

func modelingRace(id string, year, round int64, day string) Race {
	return Race{
		RaceId:      id,
		Year:        i64(year),
		Round:       i64(round),
		RaceDate:    date(day),
		RaceName:    "GP " + id,
		CircuitId:   "circuit_" + id,
		CircuitName: "Circuit " + id,
	}
}

func modelingResult(raceId string, year int64, driverId string, position *int64, status string) Result {
	return Result{
		RaceId:        raceId,
		Year:          i64(year),
		Round:         i64(1),
		DriverId:      driverId,
		ConstructorId: "team_" + driverId,
		Position:      position,
		Points:        f64(0),
		Status:        status,
	}
}

func TestBuildModeling(t *testing.T) {
	races := []Race{
		modelingRace("2021_1", 2021, 1, "2021-03-28"),
		modelingRace("2020_1", 2020, 1, "2020-07-05"),
	}
	results := []Result{
		modelingResult("2021_1", 2021, "verstappen", i64(1), "Finished"),
		modelingResult("2020_1", 2020, "bottas", i64(2), "Finished"),
		modelingResult("2020_1", 2020, "hamilton", i64(1), "Finished"),
		modelingResult("2020_1", 2020, "norris", i64(4), "+1 Lap"),
		modelingResult("2020_1", 2020, "albon", nil, "Accident"),
	}

	rows, err := BuildModeling(context.Background(), races, results, ModelingOptions{HeldoutYear: 2021})
	require.NoError(t, err)
	require.Len(t, rows, 5)

	// rows come back ordered by (race_date, race_id, driver_id)
	var order []string
	for _, row := range rows {
		order = append(order, row.RaceId+"/"+row.DriverId)
	}
	require.Empty(t, cmp.Diff([]string{
		"2020_1/albon",
		"2020_1/bottas",
		"2020_1/hamilton",
		"2020_1/norris",
		"2021_1/verstappen",
	}, order))

	byDriver := map[string]ModelingRow{}
	for _, row := range rows {
		byDriver[row.DriverId] = row
	}

	require.True(t, byDriver["hamilton"].IsPodium)
	require.True(t, byDriver["bottas"].IsPodium)
	require.False(t, byDriver["norris"].IsPodium)
	require.False(t, byDriver["albon"].IsPodium)

	require.True(t, byDriver["albon"].IsDnf)
	require.False(t, byDriver["norris"].IsDnf)
	require.False(t, byDriver["hamilton"].IsDnf)

	require.Equal(t, "test", byDriver["verstappen"].Split)
	require.Equal(t, "train", byDriver["hamilton"].Split)

	// joined race attributes come from the race side
	require.Equal(t, "circuit_2020_1", byDriver["hamilton"].CircuitId)
	require.Equal(t, "2020-07-05", byDriver["hamilton"].RaceDate.Format("2006-01-02"))
}

func TestBuildModelingCustomStatusPolicy(t *testing.T) {
	races := []Race{modelingRace("2020_1", 2020, 1, "2020-07-05")}
	results := []Result{modelingResult("2020_1", 2020, "hamilton", i64(1), "Finished")}

	everythingIsDnf := func(string) bool { return true }
	rows, err := BuildModeling(context.Background(), races, results, ModelingOptions{
		HeldoutYear:  2020,
		StatusPolicy: everythingIsDnf,
	})
	require.NoError(t, err)
	require.True(t, rows[0].IsDnf)
}

func TestBuildModelingOrphanResultIsFatal(t *testing.T) {
	races := []Race{modelingRace("2020_1", 2020, 1, "2020-07-05")}
	results := []Result{modelingResult("2020_2", 2020, "hamilton", i64(1), "Finished")}

	_, err := BuildModeling(context.Background(), races, results, ModelingOptions{HeldoutYear: 2020})
	var integrityErr *IntegrityError
	require.True(t, errors.As(err, &integrityErr))
	require.Equal(t, "driver_race_modeling", integrityErr.Table)
	require.Contains(t, integrityErr.Keys, "2020_2")
}

func TestBuildModelingJoinFanOutIsFatal(t *testing.T) {
	races := []Race{
		modelingRace("2020_1", 2020, 1, "2020-07-05"),
		modelingRace("2020_1", 2020, 1, "2020-07-05"),
	}

	_, err := BuildModeling(context.Background(), races, nil, ModelingOptions{HeldoutYear: 2020})
	var integrityErr *IntegrityError
	require.True(t, errors.As(err, &integrityErr))
	require.Contains(t, integrityErr.Reason, "fan-out")
}

func TestBuildModelingMissingDateIsFatal(t *testing.T) {
	race := modelingRace("2020_1", 2020, 1, "2020-07-05")
	race.RaceDate = nil
	results := []Result{modelingResult("2020_1", 2020, "hamilton", i64(1), "Finished")}

	_, err := BuildModeling(context.Background(), []Race{race}, results, ModelingOptions{HeldoutYear: 2020})
	var integrityErr *IntegrityError
	require.True(t, errors.As(err, &integrityErr))
	require.Contains(t, integrityErr.Reason, "race_date")
}

func TestBuildModelingDuplicateResultIsFatal(t *testing.T) {
	races := []Race{modelingRace("2020_1", 2020, 1, "2020-07-05")}
	results := []Result{
		modelingResult("2020_1", 2020, "hamilton", i64(1), "Finished"),
		modelingResult("2020_1", 2020, "hamilton", i64(2), "Finished"),
	}

	_, err := BuildModeling(context.Background(), races, results, ModelingOptions{HeldoutYear: 2020})
	var integrityErr *IntegrityError
	require.True(t, errors.As(err, &integrityErr))
	require.Contains(t, integrityErr.Keys, "(2020_1, hamilton)")
}
