package warehouse

import "time"

// Dimension rows carry a stable natural key and are immutable once
// ingested. Nullable columns are pointers.

type Driver struct {
	DriverId    string
	DriverCode  string
	GivenName   string
	FamilyName  string
	Dob         *time.Time
	Nationality string
	Url         string
}

type Constructor struct {
	ConstructorId string
	Name          string
	Nationality   string
	Url           string
}

type Circuit struct {
	CircuitId string
	Name      string
	Locality  string
	Country   string
	Lat       *float64
	Lng       *float64
	Url       string
}

// Race is keyed by the surrogate "{year}_{round}"; (year, round) is the
// unique natural key. RaceDate is a pointer only so parsing can report
// the null, the builder rejects any race where it stays nil.
type Race struct {
	RaceId      string
	Year        *int64
	Round       *int64
	RaceDate    *time.Time
	RaceName    string
	CircuitId   string
	CircuitName string
	Url         string
}

// Result is keyed by (RaceId, DriverId). Position is nil for entrants
// without a classified finish.
type Result struct {
	RaceId        string
	Year          *int64
	Round         *int64
	DriverId      string
	ConstructorId string
	Grid          *int64
	Position      *int64
	PositionOrder *int64
	Points        *float64
	Status        string
	Laps          *int64
	Time          *string
}

// ModelingRow is one (race, driver) observation for pre-weekend
// prediction. Grid position is deliberately absent: it is only knowable
// after qualifying and would leak post-weekend information.
type ModelingRow struct {
	RaceId         string
	Year           *int64
	Round          *int64
	RaceDate       *time.Time
	RaceName       string
	CircuitId      string
	DriverId       string
	ConstructorId  string
	FinishPosition *int64
	Points         *float64
	Status         string
	IsDnf          bool
	IsPodium       bool
	Split          string
}

// YearRange is a closed range of seasons, both ends inclusive.
type YearRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

func (r YearRange) Years() []int {
	if r.End < r.Start {
		return nil
	}
	years := make([]int, 0, r.End-r.Start+1)
	for y := r.Start; y <= r.End; y++ {
		years = append(years, y)
	}
	return years
}
