package persist

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// ProfileRow is the recorded demand of one composition.
type ProfileRow struct {
	Composition string
	Facets      []string
	PeakCount   int
	Capacity    int
}

type ProfileRepo struct {
	db *DB
}

func NewProfileRepo(db *DB) *ProfileRepo {
	return &ProfileRepo{db: db}
}

// Load returns every recorded composition, busiest first.
func (r *ProfileRepo) Load(ctx context.Context) ([]ProfileRow, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT composition, facets, peak_count, capacity
		 FROM pool_profile ORDER BY peak_count DESC, composition`,
	)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	defer rows.Close()

	var result []ProfileRow
	for rows.Next() {
		var p ProfileRow
		var peak, capacity int32
		if err := rows.Scan(&p.Composition, &p.Facets, &peak, &capacity); err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		p.PeakCount, p.Capacity = int(peak), int(capacity)
		result = append(result, p)
	}
	return result, rows.Err()
}

// Save merges a snapshot into the stored profile. Peaks only ever grow;
// use Reset to forget them.
func (r *ProfileRepo) Save(ctx context.Context, snapshot []ProfileRow) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, p := range snapshot {
		if _, err := tx.Exec(ctx,
			`INSERT INTO pool_profile (composition, facets, peak_count, capacity, samples, updated_at)
			 VALUES ($1, $2, $3, $4, 1, now())
			 ON CONFLICT (composition) DO UPDATE SET
			   peak_count = GREATEST(pool_profile.peak_count, EXCLUDED.peak_count),
			   capacity   = GREATEST(pool_profile.capacity, EXCLUDED.capacity),
			   samples    = pool_profile.samples + 1,
			   updated_at = now()`,
			p.Composition, p.Facets, int32(p.PeakCount), int32(max(p.Capacity, p.PeakCount)),
		); err != nil {
			return fmt.Errorf("save profile %s: %w", p.Composition, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit profile: %w", err)
	}
	r.db.log.Info("pool profile saved", zap.Int("compositions", len(snapshot)))
	return nil
}
