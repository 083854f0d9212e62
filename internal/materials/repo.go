package materials

import (
	"context"
	"strings"
	"time"

	"github.com/angelmondragon/bakery-quotes/internal/repo"
	"github.com/angelmondragon/bakery-quotes/pkg/db/models"
	pkgerrors "github.com/angelmondragon/bakery-quotes/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository reads and writes the materials table.
type Repository struct {
	base repo.Base
	now  func() time.Time
}

// NewRepository binds the repository to the provided GORM connection.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{base: repo.NewBase(db), now: time.Now}
}

// FindByNames issues a single IN query for every name.
func (r *Repository) FindByNames(ctx context.Context, names []string) ([]Record, error) {
	if len(names) == 0 {
		return nil, nil
	}
	keys := make([]string, 0, len(names))
	for _, n := range names {
		keys = append(keys, NormalizeName(n))
	}

	var rows []models.Material
	if err := r.base.DB(ctx).Where("LOWER(name) IN ?", keys).Find(&rows).Error; err != nil {
		return nil, err
	}
	return toRecords(rows), nil
}

func (r *Repository) List(ctx context.Context) ([]Record, error) {
	var rows []models.Material
	if err := r.base.DB(ctx).Order("name").Find(&rows).Error; err != nil {
		return nil, err
	}
	return toRecords(rows), nil
}

func (r *Repository) Get(ctx context.Context, name string) (Record, error) {
	var row models.Material
	err := r.base.DB(ctx).Where("LOWER(name) = ?", NormalizeName(name)).First(&row).Error
	if err != nil {
		return Record{}, repo.NotFound(err, "material")
	}
	return recordFromModel(row), nil
}

// Search matches names containing pattern, case-insensitively.
func (r *Repository) Search(ctx context.Context, pattern string) ([]Record, error) {
	like := "%" + escapeLike(NormalizeName(pattern)) + "%"
	var rows []models.Material
	if err := r.base.DB(ctx).Where(`LOWER(name) LIKE ? ESCAPE '\'`, like).Order("name").Find(&rows).Error; err != nil {
		return nil, err
	}
	return toRecords(rows), nil
}

// Upsert inserts the record or replaces unit, cost and currency of an
// existing one.
func (r *Repository) Upsert(ctx context.Context, record Record) (Record, error) {
	if record.LastUpdated.IsZero() {
		record.LastUpdated = r.now().UTC()
	}
	row := record.toModel()
	err := r.base.DB(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"unit", "unit_cost", "currency", "last_updated"}),
	}).Create(&row).Error
	if err != nil {
		return Record{}, err
	}
	return recordFromModel(row), nil
}

func (r *Repository) UpdateCost(ctx context.Context, name string, cost decimal.Decimal) (Record, error) {
	res := r.base.DB(ctx).Model(&models.Material{}).
		Where("LOWER(name) = ?", NormalizeName(name)).
		Updates(map[string]any{"unit_cost": cost, "last_updated": r.now().UTC()})
	if res.Error != nil {
		return Record{}, res.Error
	}
	if res.RowsAffected == 0 {
		return Record{}, pkgerrors.New(pkgerrors.CodeNotFound, "material not found")
	}
	return r.Get(ctx, name)
}

func toRecords(rows []models.Material) []Record {
	out := make([]Record, 0, len(rows))
	for _, row := range rows {
		out = append(out, recordFromModel(row))
	}
	return out
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
