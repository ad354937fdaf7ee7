package warehouse

import (
	"context"
	"database/sql"
	"testing"

	"pitwall-backend/lib/sqliteutil"
	warehousedb "pitwall-backend/services/warehouse/db"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func testDB(t *testing.T) *sql.DB {
	db, err := sqliteutil.OpenDB(warehousedb.Schema, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestWriteReadRaces(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	races := []Race{
		modelingRace("2020_1", 2020, 1, "2020-07-05"),
		modelingRace("2020_2", 2020, 2, "2020-07-12"),
	}
	require.NoError(t, NewWriter(db).WriteRaces(ctx, races))

	got, err := NewReader(db).ReadRaces(ctx)
	require.NoError(t, err)
	require.Empty(t, cmp.Diff(races, got))
}

func TestWriteReadResults(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	results := []Result{
		{
			RaceId:        "2020_1",
			Year:          i64(2020),
			Round:         i64(1),
			DriverId:      "hamilton",
			ConstructorId: "mercedes",
			Grid:          i64(1),
			Position:      i64(1),
			PositionOrder: i64(1),
			Points:        f64(25),
			Status:        "Finished",
			Laps:          i64(71),
			Time:          strPtr("1:30:55.739"),
		},
		{
			RaceId:        "2020_1",
			Year:          i64(2020),
			Round:         i64(1),
			DriverId:      "albon",
			ConstructorId: "red_bull",
			Grid:          i64(5),
			PositionOrder: i64(18),
			Points:        f64(0),
			Status:        "Accident",
			Laps:          i64(3),
		},
	}
	require.NoError(t, NewWriter(db).WriteResults(ctx, results))

	got, err := NewReader(db).ReadResults(ctx)
	require.NoError(t, err)
	require.Empty(t, cmp.Diff(results, got))
}

func strPtr(s string) *string { return &s }

func TestWriteReplacesPreviousContents(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	writer := NewWriter(db)
	reader := NewReader(db)

	first := []Race{
		modelingRace("2020_1", 2020, 1, "2020-07-05"),
		modelingRace("2020_2", 2020, 2, "2020-07-12"),
	}
	require.NoError(t, writer.WriteRaces(ctx, first))

	second := []Race{modelingRace("2021_1", 2021, 1, "2021-03-28")}
	require.NoError(t, writer.WriteRaces(ctx, second))

	got, err := reader.ReadRaces(ctx)
	require.NoError(t, err)
	require.Empty(t, cmp.Diff(second, got))

	count, err := reader.TableCount(ctx, "races")
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
}

func TestWriteDimensions(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	writer := NewWriter(db)
	reader := NewReader(db)

	require.NoError(t, writer.WriteDrivers(ctx, []Driver{
		{DriverId: "alonso", DriverCode: "ALO", GivenName: "Fernando", FamilyName: "Alonso",
			Dob: date("1981-07-29"), Nationality: "Spanish"},
		{DriverId: "unknown"},
	}))
	require.NoError(t, writer.WriteConstructors(ctx, []Constructor{
		{ConstructorId: "ferrari", Name: "Ferrari", Nationality: "Italian"},
	}))
	require.NoError(t, writer.WriteCircuits(ctx, []Circuit{
		{CircuitId: "monza", Name: "Monza", Locality: "Monza", Country: "Italy",
			Lat: f64(45.6156), Lng: f64(9.28111)},
		{CircuitId: "nowhere"},
	}))

	for table, want := range map[string]int64{
		"drivers":      2,
		"constructors": 1,
		"circuits":     2,
	} {
		count, err := reader.TableCount(ctx, table)
		require.NoError(t, err)
		require.Equal(t, want, count, "table %s", table)
	}
}

func TestWriteModelingAndSplitCounts(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	rows := []ModelingRow{
		{RaceId: "2020_1", Year: i64(2020), Round: i64(1), RaceDate: date("2020-07-05"),
			RaceName: "GP", CircuitId: "c1", DriverId: "hamilton", ConstructorId: "mercedes",
			FinishPosition: i64(1), Points: f64(25), Status: "Finished",
			IsDnf: false, IsPodium: true, Split: "train"},
		{RaceId: "2020_1", Year: i64(2020), Round: i64(1), RaceDate: date("2020-07-05"),
			RaceName: "GP", CircuitId: "c1", DriverId: "albon", ConstructorId: "red_bull",
			Status: "Accident", IsDnf: true, Split: "train"},
		{RaceId: "2021_1", Year: i64(2021), Round: i64(1), RaceDate: date("2021-03-28"),
			RaceName: "GP", CircuitId: "c2", DriverId: "verstappen", ConstructorId: "red_bull",
			FinishPosition: i64(1), Points: f64(25), Status: "Finished",
			IsPodium: true, Split: "test"},
	}
	require.NoError(t, NewWriter(db).WriteModeling(ctx, rows))

	counts, err := NewReader(db).SplitCounts(ctx)
	require.NoError(t, err)
	require.Equal(t, map[string]int64{"train": 2, "test": 1}, counts)
}
