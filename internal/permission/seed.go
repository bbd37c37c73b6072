package permission

import (
	"context"

	"github.com/Kyz7/backoffice/internal/models"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Seed registers every module/action pair that is missing, named like
// "Leads Read" so the derived slug is the capability atom "leads-read".
func (s *Service) Seed(ctx context.Context) error {
	var existing []models.Permission
	if err := s.db.WithContext(ctx).Find(&existing).Error; err != nil {
		return err
	}
	have := make(map[string]bool, len(existing))
	for _, p := range existing {
		have[models.CapabilitySlug(p.Module, p.Action)] = true
	}

	titleCase := cases.Title(language.English)
	var missing []models.Permission
	for _, m := range models.Modules {
		for _, a := range models.Actions {
			slug := models.CapabilitySlug(m, a)
			if have[slug] {
				continue
			}
			missing = append(missing, models.Permission{
				Name:        titleCase.String(m + " " + a),
				Slug:        slug,
				Description: titleCase.String(a) + " access to " + m,
				Module:      m,
				Action:      a,
				IsActive:    true,
			})
		}
	}

	if len(missing) > 0 {
		if err := s.db.WithContext(ctx).CreateInBatches(missing, 50).Error; err != nil {
			return err
		}
		s.cache.Invalidate()
	}

	s.log.WithField("created", len(missing)).Info("permissions seeded")
	return nil
}
