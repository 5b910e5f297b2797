package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"sort"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"github.com/GreenHydrogen/H2-Backend/internal/plants"
)

var (
	file        = flag.String("file", "seeds/hydrogen_plants.yaml", "Path to the plant catalog YAML")
	dsn         = flag.String("dsn", "", "Postgres DSN (default: env DATABASE_URL)")
	dryRun      = flag.Bool("dry-run", false, "Parse + validate only; no DB writes")
	replace     = flag.Bool("replace", false, "Deactivate plants missing from the catalog")
	confirm     = flag.Bool("confirm", false, "Required together with --replace")
	advisoryKey = flag.Int64("advisory-lock", 0, "Optional Postgres advisory lock key. 0 = disabled")
)

const upsertQuery = `
INSERT INTO h2.plants (
	id, name, city, state, country, latitude, longitude,
	company_name, company_type, capacity_value, capacity_unit,
	status, primary_type, technology, planned_commissioning, actual_commissioning,
	description, applications, is_active, is_featured, priority, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$22)
ON CONFLICT (id) DO UPDATE SET
	name = EXCLUDED.name, city = EXCLUDED.city, state = EXCLUDED.state,
	country = EXCLUDED.country, latitude = EXCLUDED.latitude, longitude = EXCLUDED.longitude,
	company_name = EXCLUDED.company_name, company_type = EXCLUDED.company_type,
	capacity_value = EXCLUDED.capacity_value, capacity_unit = EXCLUDED.capacity_unit,
	status = EXCLUDED.status, primary_type = EXCLUDED.primary_type, technology = EXCLUDED.technology,
	planned_commissioning = EXCLUDED.planned_commissioning,
	actual_commissioning = EXCLUDED.actual_commissioning,
	description = EXCLUDED.description, applications = EXCLUDED.applications,
	is_active = EXCLUDED.is_active, is_featured = EXCLUDED.is_featured,
	priority = EXCLUDED.priority, updated_at = EXCLUDED.updated_at`

func main() {
	_ = godotenv.Load(".env.local")
	flag.Parse()
	if *dsn == "" {
		*dsn = os.Getenv("DATABASE_URL")
	}

	ps, err := plants.LoadSeedFile(*file)
	if err != nil {
		fatalf("catalog error: %v", err)
	}
	fmt.Printf("Loaded %d plants from %s\n", len(ps), *file)

	if *dryRun {
		printPlan(ps)
		fmt.Println("Dry run complete. No changes made.")
		return
	}
	if *dsn == "" {
		fatalf("--dsn not provided and DATABASE_URL not set")
	}
	if *replace && !*confirm {
		fatalf("Refusing to --replace without --confirm. Add --dry-run to preview.")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	db, err := sql.Open("pgx", *dsn)
	if err != nil {
		fatalf("connect: %v", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		fatalf("ping: %v", err)
	}

	tx, err := db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		fatalf("begin tx: %v", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if *advisoryKey != 0 {
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, *advisoryKey); err != nil {
			fatalf("advisory lock: %v", err)
		}
	}

	before, err := countActive(ctx, tx)
	if err != nil {
		fatalf("pre-count (has the server migrated h2.plants?): %v", err)
	}

	if err := upsertAll(ctx, tx, ps); err != nil {
		fatalf("upsert: %v", err)
	}

	if *replace {
		n, err := deactivateMissing(ctx, tx, ps)
		if err != nil {
			fatalf("deactivate: %v", err)
		}
		fmt.Printf("Deactivated %d plants not in the catalog\n", n)
	}

	after, err := countActive(ctx, tx)
	if err != nil {
		fatalf("post-count: %v", err)
	}
	if err := tx.Commit(); err != nil {
		fatalf("commit: %v", err)
	}
	fmt.Printf("Active plants: before=%d after=%d\n", before, after)
	fmt.Println("Seed complete ✅")
}

func upsertAll(ctx context.Context, tx *sql.Tx, ps []plants.Plant) error {
	stmt, err := tx.PrepareContext(ctx, upsertQuery)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now()
	for _, p := range ps {
		_, err := stmt.ExecContext(ctx,
			p.ID, p.Name, p.City, p.State, p.Country, p.Latitude, p.Longitude,
			p.CompanyName, p.CompanyType, p.CapacityValue, p.CapacityUnit,
			p.Status, p.PrimaryType, p.Technology, p.PlannedCommissioning, p.ActualCommissioning,
			p.Description, p.Applications, p.IsActive, p.IsFeatured, p.Priority, now,
		)
		if err != nil {
			return fmt.Errorf("plant %q: %w", p.Name, err)
		}
	}
	return nil
}

func deactivateMissing(ctx context.Context, tx *sql.Tx, ps []plants.Plant) (int64, error) {
	ids := make([]string, len(ps))
	for i, p := range ps {
		ids[i] = p.ID
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE h2.plants SET is_active = false, updated_at = now() WHERE is_active AND NOT (id = ANY($1))`,
		ids)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func countActive(ctx context.Context, tx *sql.Tx) (int64, error) {
	var n int64
	err := tx.QueryRowContext(ctx, `SELECT count(*) FROM h2.plants WHERE is_active`).Scan(&n)
	return n, err
}

func printPlan(ps []plants.Plant) {
	byStatus := map[string]int{}
	for _, p := range ps {
		byStatus[p.Status]++
	}
	statuses := make([]string, 0, len(byStatus))
	for s := range byStatus {
		statuses = append(statuses, s)
	}
	sort.Strings(statuses)

	fmt.Println("Plan preview:")
	fmt.Printf("  Plants to upsert: %d\n", len(ps))
	for _, s := range statuses {
		fmt.Printf("    %-20s %d\n", s, byStatus[s])
	}
	if *replace {
		fmt.Println("  Plants missing from the catalog will be deactivated")
	}
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
