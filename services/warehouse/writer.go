package warehouse

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/codes"
)

// Writer persists built tables into the warehouse database. Every table
// write replaces the previous contents wholesale inside one
// transaction: a build either fully lands or leaves the old table
// untouched.
type Writer struct {
	db *sql.DB
}

func NewWriter(db *sql.DB) Writer {
	return Writer{db: db}
}

func dateColumn(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(dateLayout)
}

func boolColumn(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func replaceAll(ctx context.Context, db *sql.DB, table, insert string, count int, row func(i int) []any) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, "DELETE FROM "+table)
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i := 0; i < count; i++ {
		_, err = stmt.ExecContext(ctx, row(i)...)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (w Writer) WriteDrivers(ctx context.Context, rows []Driver) error {
	ctx, span := tracer.Start(ctx, "WriteDrivers")
	defer span.End()

	err := replaceAll(ctx, w.db, "drivers",
		`INSERT INTO drivers (driver_id, driver_code, given_name, family_name, dob, nationality, url)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		len(rows),
		func(i int) []any {
			r := rows[i]
			return []any{r.DriverId, r.DriverCode, r.GivenName, r.FamilyName, dateColumn(r.Dob), r.Nationality, r.Url}
		},
	)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	slog.InfoContext(ctx, "wrote drivers table", "rows", len(rows))
	return nil
}

func (w Writer) WriteConstructors(ctx context.Context, rows []Constructor) error {
	ctx, span := tracer.Start(ctx, "WriteConstructors")
	defer span.End()

	err := replaceAll(ctx, w.db, "constructors",
		`INSERT INTO constructors (constructor_id, name, nationality, url)
		 VALUES (?, ?, ?, ?)`,
		len(rows),
		func(i int) []any {
			r := rows[i]
			return []any{r.ConstructorId, r.Name, r.Nationality, r.Url}
		},
	)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	slog.InfoContext(ctx, "wrote constructors table", "rows", len(rows))
	return nil
}

func (w Writer) WriteCircuits(ctx context.Context, rows []Circuit) error {
	ctx, span := tracer.Start(ctx, "WriteCircuits")
	defer span.End()

	err := replaceAll(ctx, w.db, "circuits",
		`INSERT INTO circuits (circuit_id, circuit_name, locality, country, lat, lng, url)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		len(rows),
		func(i int) []any {
			r := rows[i]
			return []any{r.CircuitId, r.Name, r.Locality, r.Country, r.Lat, r.Lng, r.Url}
		},
	)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	slog.InfoContext(ctx, "wrote circuits table", "rows", len(rows))
	return nil
}

func (w Writer) WriteRaces(ctx context.Context, rows []Race) error {
	ctx, span := tracer.Start(ctx, "WriteRaces")
	defer span.End()

	err := replaceAll(ctx, w.db, "races",
		`INSERT INTO races (race_id, year, round, race_date, race_name, circuit_id, circuit_name, url)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		len(rows),
		func(i int) []any {
			r := rows[i]
			return []any{r.RaceId, r.Year, r.Round, dateColumn(r.RaceDate), r.RaceName, r.CircuitId, r.CircuitName, r.Url}
		},
	)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	slog.InfoContext(ctx, "wrote races table", "rows", len(rows))
	return nil
}

func (w Writer) WriteResults(ctx context.Context, rows []Result) error {
	ctx, span := tracer.Start(ctx, "WriteResults")
	defer span.End()

	err := replaceAll(ctx, w.db, "results",
		`INSERT INTO results (race_id, driver_id, year, round, constructor_id, grid, position, position_order, points, status, laps, time)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		len(rows),
		func(i int) []any {
			r := rows[i]
			return []any{r.RaceId, r.DriverId, r.Year, r.Round, r.ConstructorId, r.Grid, r.Position, r.PositionOrder, r.Points, r.Status, r.Laps, r.Time}
		},
	)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	slog.InfoContext(ctx, "wrote results table", "rows", len(rows))
	return nil
}

func (w Writer) WriteModeling(ctx context.Context, rows []ModelingRow) error {
	ctx, span := tracer.Start(ctx, "WriteModeling")
	defer span.End()

	err := replaceAll(ctx, w.db, "driver_race_modeling",
		`INSERT INTO driver_race_modeling (race_id, driver_id, year, round, race_date, race_name, circuit_id, constructor_id, finish_position, points, status, is_dnf, is_podium, split)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		len(rows),
		func(i int) []any {
			r := rows[i]
			return []any{
				r.RaceId, r.DriverId, r.Year, r.Round, dateColumn(r.RaceDate),
				r.RaceName, r.CircuitId, r.ConstructorId, r.FinishPosition,
				r.Points, r.Status, boolColumn(r.IsDnf), boolColumn(r.IsPodium), r.Split,
			}
		},
	)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	slog.InfoContext(ctx, "wrote modeling table", "rows", len(rows))
	return nil
}
