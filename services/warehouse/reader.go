package warehouse

import (
	"context"
	"database/sql"
	"time"

	"go.opentelemetry.io/otel/codes"
)

// Reader loads clean tables back out of the warehouse database, for
// the modeling build and for reporting.
type Reader struct {
	db *sql.DB
}

func NewReader(db *sql.DB) Reader {
	return Reader{db: db}
}

func intPtr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	return &v.Int64
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return &v.Float64
}

func stringPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	return &v.String
}

func datePtr(v sql.NullString) *time.Time {
	if !v.Valid {
		return nil
	}
	t, err := time.Parse(dateLayout, v.String)
	if err != nil {
		return nil
	}
	return &t
}

func (r Reader) ReadRaces(ctx context.Context) ([]Race, error) {
	ctx, span := tracer.Start(ctx, "ReadRaces")
	defer span.End()

	rows, err := r.db.QueryContext(ctx,
		`SELECT race_id, year, round, race_date, race_name, circuit_id, circuit_name, url
		 FROM races`,
	)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	defer rows.Close()

	var out []Race
	for rows.Next() {
		var race Race
		var year, round sql.NullInt64
		var date sql.NullString
		err := rows.Scan(
			&race.RaceId, &year, &round, &date,
			&race.RaceName, &race.CircuitId, &race.CircuitName, &race.Url,
		)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		race.Year = intPtr(year)
		race.Round = intPtr(round)
		race.RaceDate = datePtr(date)
		out = append(out, race)
	}
	return out, rows.Err()
}

func (r Reader) ReadResults(ctx context.Context) ([]Result, error) {
	ctx, span := tracer.Start(ctx, "ReadResults")
	defer span.End()

	rows, err := r.db.QueryContext(ctx,
		`SELECT race_id, driver_id, year, round, constructor_id, grid, position, position_order, points, status, laps, time
		 FROM results`,
	)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	defer rows.Close()

	var out []Result
	for rows.Next() {
		var result Result
		var year, round, grid, position, positionOrder, laps sql.NullInt64
		var points sql.NullFloat64
		var raceTime sql.NullString
		err := rows.Scan(
			&result.RaceId, &result.DriverId, &year, &round,
			&result.ConstructorId, &grid, &position, &positionOrder,
			&points, &result.Status, &laps, &raceTime,
		)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		result.Year = intPtr(year)
		result.Round = intPtr(round)
		result.Grid = intPtr(grid)
		result.Position = intPtr(position)
		result.PositionOrder = intPtr(positionOrder)
		result.Points = floatPtr(points)
		result.Laps = intPtr(laps)
		result.Time = stringPtr(raceTime)
		out = append(out, result)
	}
	return out, rows.Err()
}

// TableCount reports the number of rows currently in a warehouse table.
func (r Reader) TableCount(ctx context.Context, table string) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&count)
	return count, err
}

// SplitCounts reports the split distribution of the modeling table.
func (r Reader) SplitCounts(ctx context.Context) (map[string]int64, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT split, COUNT(*) FROM driver_race_modeling GROUP BY split`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]int64{}
	for rows.Next() {
		var split string
		var count int64
		err := rows.Scan(&split, &count)
		if err != nil {
			return nil, err
		}
		out[split] = count
	}
	return out, rows.Err()
}
