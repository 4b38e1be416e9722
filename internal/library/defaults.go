package library

import "example.com/gymstore/internal/domain"

// Defaults returns the catalog seeded into an empty store.
func Defaults() domain.ExerciseLibrary {
	manual := func(id int64, name, category string) domain.ExerciseRecord {
		return domain.ExerciseRecord{ID: id, Name: name, Category: category, Type: domain.FamilyManual}
	}
	superset := func(id int64, name, category string) domain.ExerciseRecord {
		return domain.ExerciseRecord{ID: id, Name: name, Category: category, Type: domain.FamilySuperset}
	}
	return domain.ExerciseLibrary{
		Manual: []domain.ExerciseRecord{
			manual(1, "Press Banca", "Pecho"),
			manual(2, "Sentadillas", "Piernas"),
			manual(3, "Dominadas", "Espalda"),
			manual(4, "Press Militar", "Hombros"),
			manual(5, "Curl Bíceps", "Brazos"),
			manual(6, "Press Francés", "Tríceps"),
			manual(7, "Peso Muerto", "Espalda"),
			manual(8, "Elevaciones Laterales", "Hombros"),
		},
		Superset: []domain.ExerciseRecord{
			superset(1001, "Press Banca + Aperturas", "Pecho"),
			superset(1002, "Sentadilla + Zancadas", "Piernas"),
			superset(1003, "Jalón al Pecho + Remo", "Espalda"),
			superset(1004, "Press Militar + Elevaciones", "Hombros"),
			superset(1005, "Curl Bíceps + Martillo", "Brazos"),
			superset(1006, "Fondos + Extensión Tríceps", "Tríceps"),
			superset(1007, "Prensa + Extensión de Cuádriceps", "Piernas"),
			superset(1008, "Remo + Face Pull", "Espalda/Hombros"),
		},
		SupersetGroups: []domain.SupersetGroup{
			{
				ID:   2001,
				Name: "Superserie Pecho Completo",
				Type: domain.SupersetGroupType,
				Exercises: []domain.GroupExercise{
					{Name: "Press Banca", Sets: 3, Reps: "8-10"},
					{Name: "Aperturas", Sets: 3, Reps: "12-15"},
					{Name: "Fondos", Sets: 3, Reps: "10-12"},
				},
			},
			{
				ID:   2002,
				Name: "Superserie Pierna Intensa",
				Type: domain.SupersetGroupType,
				Exercises: []domain.GroupExercise{
					{Name: "Sentadilla", Sets: 4, Reps: "6-8"},
					{Name: "Prensa", Sets: 3, Reps: "10-12"},
					{Name: "Extensiones", Sets: 3, Reps: "12-15"},
				},
			},
		},
	}
}
