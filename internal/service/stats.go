package service

import "example.com/gymstore/internal/domain"

// Stats summarises the workout collections.
type Stats struct {
	TotalManual    int     `json:"totalManual"`
	TotalSupersets int     `json:"totalSupersets"`
	TotalWorkouts  int     `json:"totalWorkouts"`
	LastManual     *string `json:"lastManual"`
	LastSuperset   *string `json:"lastSuperset"`
}

// Stats counts workouts per family and reports when the most recently
// appended workout of each family took place.
func (s *Service) Stats() (Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	manual, err := s.workouts[domain.FamilyManual].List()
	if err != nil {
		return Stats{}, err
	}
	superset, err := s.workouts[domain.FamilySuperset].List()
	if err != nil {
		return Stats{}, err
	}
	return Stats{
		TotalManual:    len(manual),
		TotalSupersets: len(superset),
		TotalWorkouts:  len(manual) + len(superset),
		LastManual:     lastDate(manual),
		LastSuperset:   lastDate(superset),
	}, nil
}

// lastDate prefers the workout's own date and falls back to createdAt.
func lastDate(records []domain.Record) *string {
	if len(records) == 0 {
		return nil
	}
	last := records[len(records)-1]
	for _, field := range []string{"date", domain.FieldCreatedAt} {
		if value := last.String(field); value != "" {
			return &value
		}
	}
	return nil
}
