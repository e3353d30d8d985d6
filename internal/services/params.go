package services

import (
	"errors"
	"field-route-service/internal/domain"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	MaxStopsPerRoute = 50
	dateLayout       = time.DateOnly
	clockLayout      = "15:04"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// OptimizeParams is the caller-facing optimizer input, shared by the
// synchronous path and job enqueueing.
type OptimizeParams struct {
	Date        string   `json:"date" validate:"required,datetime=2006-01-02"`
	GarageID    string   `json:"garage_id" validate:"required,uuid"`
	TicketIDs   []string `json:"ticket_ids,omitempty" validate:"omitempty,dive,uuid"`
	StartTime   string   `json:"start_time,omitempty" validate:"omitempty,datetime=15:04"`
	MaxPerRoute *int     `json:"max_per_route,omitempty" validate:"omitempty,gte=1,lte=50"`
}

// PlanDefaults fills omitted optimizer and calculate inputs.
type PlanDefaults struct {
	StartTime      string
	MaxPerRoute    int
	ServiceMinutes int
	FallbackTravel int
	Location       *time.Location
}

func (d PlanDefaults) withFallbacks() PlanDefaults {
	if d.StartTime == "" {
		d.StartTime = "08:00"
	}
	if d.MaxPerRoute < 1 || d.MaxPerRoute > MaxStopsPerRoute {
		d.MaxPerRoute = 10
	}
	if d.ServiceMinutes < 1 {
		d.ServiceMinutes = 30
	}
	if d.FallbackTravel < 1 {
		d.FallbackTravel = 15
	}
	if d.Location == nil {
		d.Location = time.UTC
	}
	return d
}

// optimizeRequest is OptimizeParams after validation and defaulting.
type optimizeRequest struct {
	Date        time.Time
	GarageID    string
	TicketIDs   []string
	StartAt     time.Time
	MaxPerRoute int
}

func normalizeOptimizeParams(p OptimizeParams, d PlanDefaults) (*optimizeRequest, error) {
	p.Date = strings.TrimSpace(p.Date)
	p.GarageID = strings.TrimSpace(p.GarageID)
	p.StartTime = strings.TrimSpace(p.StartTime)

	if err := validate.Struct(p); err != nil {
		return nil, validationError(err)
	}

	date, err := time.ParseInLocation(dateLayout, p.Date, d.Location)
	if err != nil {
		return nil, domain.Validationf("date must be YYYY-MM-DD")
	}

	startTime := p.StartTime
	if startTime == "" {
		startTime = d.StartTime
	}
	startAt, err := startOfDay(date, startTime)
	if err != nil {
		return nil, err
	}

	maxPerRoute := d.MaxPerRoute
	if p.MaxPerRoute != nil {
		maxPerRoute = *p.MaxPerRoute
	}

	return &optimizeRequest{
		Date:        date,
		GarageID:    p.GarageID,
		TicketIDs:   dedupe(p.TicketIDs),
		StartAt:     startAt,
		MaxPerRoute: maxPerRoute,
	}, nil
}

// startOfDay combines a calendar date with an HH:MM clock time in the date's location.
func startOfDay(date time.Time, clock string) (time.Time, error) {
	t, err := time.Parse(clockLayout, clock)
	if err != nil {
		return time.Time{}, domain.Validationf("start_time must be HH:MM (24h)")
	}
	return time.Date(date.Year(), date.Month(), date.Day(), t.Hour(), t.Minute(), 0, 0, date.Location()), nil
}

func dedupe(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.ToLower(strings.TrimSpace(id))
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// validationError renders the first failed field as a ValidationError.
func validationError(err error) error {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) || len(ve) == 0 {
		return domain.Validationf("invalid request: %v", err)
	}

	fe := ve[0]
	field := jsonFieldName(fe)
	switch fe.Tag() {
	case "required":
		return domain.Validationf("%s is required", field)
	case "uuid":
		return domain.Validationf("%s must be a valid UUID", field)
	case "datetime":
		if fe.Param() == clockLayout {
			return domain.Validationf("%s must be HH:MM (24h)", field)
		}
		return domain.Validationf("%s must be YYYY-MM-DD", field)
	case "gte", "lte", "min", "max":
		return domain.Validationf("%s is out of range (%s %s)", field, fe.Tag(), fe.Param())
	default:
		return domain.Validationf("%s failed %q validation", field, fe.Tag())
	}
}

var fieldNames = map[string]string{
	"Date":             "date",
	"GarageID":         "garage_id",
	"TicketIDs":        "ticket_ids",
	"TicketID":         "ticket_id",
	"StartTime":        "start_time",
	"MaxPerRoute":      "max_per_route",
	"EstimatedMinutes": "estimated_minutes",
	"Notes":            "notes",
}

func jsonFieldName(fe validator.FieldError) string {
	name := fe.StructField()
	// dive errors are reported as TicketIDs[3].
	if i := strings.IndexByte(name, '['); i > 0 {
		if n, ok := fieldNames[name[:i]]; ok {
			return fmt.Sprintf("%s%s", n, name[i:])
		}
	}
	if n, ok := fieldNames[name]; ok {
		return n
	}
	return name
}
