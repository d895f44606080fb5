package scheduling

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type nationalHoliday struct {
	name  string
	month time.Month
	day   int
}

// Fixed-date national holidays. Movable feasts are left to manual closures.
var nationalHolidays = []nationalHoliday{
	{"New Year's Day", time.January, 1},
	{"Labour Day", time.May, 1},
	{"Independence Day", time.September, 7},
	{"All Souls' Day", time.November, 2},
	{"Republic Day", time.November, 15},
	{"Christmas Day", time.December, 25},
}

// ImportNationalHolidays upserts one single-day closure per national holiday
// for every organization for the given year. Re-running is safe: imports are
// keyed by organization, origin, and date.
func (s *Service) ImportNationalHolidays(ctx context.Context, year int) error {
	orgs, err := s.repo.ListOrganizations(ctx)
	if err != nil {
		return fmt.Errorf("list organizations: %w", err)
	}

	for _, org := range orgs {
		for _, h := range nationalHolidays {
			date := time.Date(year, h.month, h.day, 0, 0, 0, 0, time.UTC)
			yearRef := year
			closure := &OrgClosure{
				ID:        uuid.New(),
				OrgID:     org.ID,
				StartDate: date,
				EndDate:   date,
				Type:      ClosureHoliday,
				Active:    true,
				Origin:    OriginNationalImport,
				YearRef:   &yearRef,
			}
			if err := s.repo.UpsertImportedClosure(ctx, closure); err != nil {
				return fmt.Errorf("upsert closure for org %s: %w", org.ID, err)
			}
		}
	}

	s.logger.Info("national holidays imported",
		zap.Int("year", year),
		zap.Int("organizations", len(orgs)),
		zap.Int("holidays", len(nationalHolidays)))
	return nil
}
