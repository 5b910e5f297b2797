package plants

import (
	"context"
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SeedFile is the on-disk layout of a plant catalog.
type SeedFile struct {
	Plants []Plant `yaml:"plants"`
}

// ParseSeed decodes a YAML catalog and normalizes and validates each entry.
// Entries without an id get a stable one derived from their name.
func ParseSeed(data []byte) ([]Plant, error) {
	var f SeedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode seed: %w", err)
	}
	for i := range f.Plants {
		p := &f.Plants[i]
		p.Normalize()
		if p.ID == "" {
			p.ID = SeedID(p.Name)
		}
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("plant %d (%s): %w", i, p.Name, err)
		}
	}
	return f.Plants, nil
}

func LoadSeedFile(path string) ([]Plant, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseSeed(data)
}

// Upsert inserts p or overwrites the row with the same id.
func Upsert(ctx context.Context, tx *gorm.DB, p Plant) error {
	return tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&p).Error
}
