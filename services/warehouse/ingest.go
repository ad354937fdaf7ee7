package warehouse

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"pitwall-backend/lib/ergast"
	"pitwall-backend/lib/rawstore"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("services/warehouse")

// Ingestor pulls raw snapshots from the API into the raw store. Every
// key is gated by an existence check, so a full re-run is idempotent
// and a crash mid-pull only needs to repeat the unfetched keys.
type Ingestor struct {
	client *ergast.Client
	raw    rawstore.Store
	years  YearRange
}

func NewIngestor(client *ergast.Client, raw rawstore.Store, years YearRange) Ingestor {
	return Ingestor{client: client, raw: raw, years: years}
}

// yearDocument is the envelope per-year pulls are stored under: the
// concatenated race entries of every page, plus the season they were
// pulled for.
type yearDocument struct {
	Races []json.RawMessage `json:"Races"`
	Year  int               `json:"year"`
}

// newYearDocument keeps an empty season as an empty list so the
// snapshot marshals with "Races": [] rather than null.
func newYearDocument(races []json.RawMessage, year int) yearDocument {
	if races == nil {
		races = []json.RawMessage{}
	}
	return yearDocument{Races: races, Year: year}
}

var dimensionEndpoints = []struct {
	Key  string
	Path string
}{
	{"drivers", "drivers.json"},
	{"constructors", "constructors.json"},
	{"circuits", "circuits.json"},
}

// Pull fetches every missing raw snapshot: the three dimension
// endpoints as single pulls, then races and results per year. Snapshots
// are only written on fully successful fetches, a failed key aborts
// the pull without corrupting anything already on disk.
func (i Ingestor) Pull(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "Pull")
	defer span.End()

	for _, endpoint := range dimensionEndpoints {
		if i.raw.Exists(endpoint.Key) {
			slog.DebugContext(ctx, "raw snapshot exists, skipping", "key", endpoint.Key)
			continue
		}
		payload, err := i.client.FetchOne(ctx, endpoint.Path, nil)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			return err
		}
		err = i.raw.Write(endpoint.Key, payload)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			return err
		}
		slog.InfoContext(ctx, "pulled raw snapshot", "key", endpoint.Key)
	}

	for _, year := range i.years.Years() {
		if err := ctx.Err(); err != nil {
			return err
		}

		racesKey := fmt.Sprintf("races_%d", year)
		if !i.raw.Exists(racesKey) {
			races, err := i.client.FetchPages(ctx, fmt.Sprintf("%d.json", year), nil)
			if err != nil {
				span.SetStatus(codes.Error, err.Error())
				return err
			}
			err = i.raw.Write(racesKey, newYearDocument(races, year))
			if err != nil {
				span.SetStatus(codes.Error, err.Error())
				return err
			}
			slog.InfoContext(ctx, "pulled raw snapshot", "key", racesKey, "races", len(races))
		}

		resultsKey := fmt.Sprintf("results_%d", year)
		if !i.raw.Exists(resultsKey) {
			races, err := i.client.FetchPages(ctx, fmt.Sprintf("%d/results.json", year), nil)
			if err != nil {
				span.SetStatus(codes.Error, err.Error())
				return err
			}
			err = i.raw.Write(resultsKey, newYearDocument(races, year))
			if err != nil {
				span.SetStatus(codes.Error, err.Error())
				return err
			}
			slog.InfoContext(ctx, "pulled raw snapshot", "key", resultsKey, "races", len(races))
		}
	}

	return nil
}
