package plants

import (
	"context"
	"fmt"

	"github.com/GreenHydrogen/H2-Backend/internal/db"
)

const statisticsQuery = `
SELECT
	COUNT(*)                                                AS total_plants,
	COUNT(*) FILTER (WHERE status = 'operational')          AS operational_plants,
	COUNT(*) FILTER (WHERE status = 'under_construction')   AS under_construction_plants,
	COUNT(*) FILTER (WHERE status = 'planned')              AS planned_plants,
	COALESCE(SUM(capacity_value), 0)                        AS total_capacity,
	COALESCE(AVG(capacity_value), 0)                        AS avg_capacity
FROM h2.plants
WHERE is_active = true`

// LoadStatistics aggregates the active catalog. An empty table yields zeros.
func LoadStatistics(ctx context.Context) (Statistics, error) {
	var s Statistics
	x, err := db.SQLX()
	if err != nil {
		return s, err
	}
	if err := x.GetContext(ctx, &s, statisticsQuery); err != nil {
		return s, fmt.Errorf("plant statistics: %w", err)
	}
	return s, nil
}
