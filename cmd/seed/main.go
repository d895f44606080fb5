package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/glowdesk/salon-scheduling/internal/db"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	orgIDs, err := seedOrganizations(context.Background(), pool, 5)
	if err != nil {
		log.Fatalf("seed organizations: %v", err)
	}
	if err := seedServices(context.Background(), pool, orgIDs); err != nil {
		log.Fatalf("seed services: %v", err)
	}
	if err := seedEmployees(context.Background(), pool, orgIDs, 12); err != nil {
		log.Fatalf("seed employees: %v", err)
	}

	log.Println("seed complete")
}

func seedOrganizations(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	log.Printf("seeding %d organizations", count)

	ids := make([]uuid.UUID, 0, count)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	for i := 0; i < count; i++ {
		id := uuid.New()
		name := gofakeit.Company() + " Salon"

		_, err := tx.Exec(ctx, `
			INSERT INTO organizations (id, name, created_at, updated_at)
			VALUES ($1, $2, now(), now())
		`, id, name)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	log.Println("organizations seeded")
	return ids, nil
}

func seedServices(ctx context.Context, pool *pgxpool.Pool, orgIDs []uuid.UUID) error {
	offerings := []struct {
		name     string
		duration int
		price    int64
	}{
		{"Haircut", 30, 3500},
		{"Hair Coloring", 90, 12000},
		{"Blow Dry", 45, 4500},
		{"Manicure", 40, 3000},
		{"Pedicure", 50, 4000},
		{"Beard Trim", 20, 2000},
		{"Facial", 60, 8000},
	}

	log.Printf("seeding %d services per organization", len(offerings))

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, orgID := range orgIDs {
		for _, o := range offerings {
			_, err := tx.Exec(ctx, `
				INSERT INTO services (id, org_id, name, duration_minutes, price_cents, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, now(), now())
			`, uuid.New(), orgID, o.name, o.duration, o.price)
			if err != nil {
				return err
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Println("services seeded")
	return nil
}

func seedEmployees(ctx context.Context, pool *pgxpool.Pool, orgIDs []uuid.UUID, perOrg int) error {
	log.Printf("seeding %d employees per organization", perOrg)

	for _, orgID := range orgIDs {
		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}

		for i := 0; i < perOrg; i++ {
			id := uuid.New()
			name := gofakeit.Name()

			_, err := tx.Exec(ctx, `
				INSERT INTO employees (id, org_id, name, created_at, updated_at)
				VALUES ($1, $2, $3, now(), now())
			`, id, orgID, name)
			if err != nil {
				_ = tx.Rollback(ctx)
				return err
			}

			if err := seedWeek(ctx, tx, id); err != nil {
				_ = tx.Rollback(ctx)
				return err
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}
	}

	log.Println("employees seeded")
	return nil
}

// seedWeek writes a Tuesday-Saturday schedule. Roughly a third of the days
// get a lunch split shift instead of one contiguous range.
func seedWeek(ctx context.Context, tx pgx.Tx, employeeID uuid.UUID) error {
	for weekday := 0; weekday < 7; weekday++ {
		active := weekday >= 2 && weekday <= 6 // Tuesday through Saturday

		_, err := tx.Exec(ctx, `
			INSERT INTO work_days (employee_id, weekday, active)
			VALUES ($1, $2, $3)
		`, employeeID, weekday, active)
		if err != nil {
			return err
		}
		if !active {
			continue
		}

		type span struct{ start, end int }
		var spans []span
		if gofakeit.Number(0, 2) == 0 {
			spans = []span{{9 * 60, 13 * 60}, {14 * 60, 18 * 60}}
		} else {
			spans = []span{{9 * 60, 18 * 60}}
		}

		for _, sp := range spans {
			_, err := tx.Exec(ctx, `
				INSERT INTO work_day_ranges (employee_id, weekday, start_minute, end_minute)
				VALUES ($1, $2, $3, $4)
			`, employeeID, weekday, sp.start, sp.end)
			if err != nil {
				return err
			}
		}
	}
	return nil
}
