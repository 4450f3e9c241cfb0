package model

// Category groups routines for display and filtering.
type Category string

const (
	CategoryMindfulness Category = "Mindfulness"
	CategoryWork        Category = "Work"
	CategoryFitness     Category = "Fitness"
	CategoryWellness    Category = "Wellness"
	CategoryHealth      Category = "Health"
	CategoryGrowth      Category = "Growth"
	CategoryMind        Category = "Mind"
)

var categories = []Category{
	CategoryMindfulness,
	CategoryWork,
	CategoryFitness,
	CategoryWellness,
	CategoryHealth,
	CategoryGrowth,
	CategoryMind,
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	for _, known := range categories {
		if c == known {
			return true
		}
	}
	return false
}

// RoutineItem is the template for a recurring task. StartTime and EndTime are
// "HH:MM" (24h) or the "All Day" sentinel; EndTime may be empty.
type RoutineItem struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Category  Category `json:"category"`
	StartTime string   `json:"start_time"`
	EndTime   string   `json:"end_time"`
	Required  bool     `json:"required"`
	Order     int      `json:"order"`
}

// RoutinePatch carries a partial update; nil fields are left untouched.
type RoutinePatch struct {
	Title     *string   `json:"title,omitempty"`
	Category  *Category `json:"category,omitempty"`
	StartTime *string   `json:"start_time,omitempty"`
	EndTime   *string   `json:"end_time,omitempty"`
	Required  *bool     `json:"required,omitempty"`
	Order     *int      `json:"order,omitempty"`
}

// Apply returns a copy of r with the patch applied.
func (p RoutinePatch) Apply(r RoutineItem) RoutineItem {
	if p.Title != nil {
		r.Title = *p.Title
	}
	if p.Category != nil {
		r.Category = *p.Category
	}
	if p.StartTime != nil {
		r.StartTime = *p.StartTime
	}
	if p.EndTime != nil {
		r.EndTime = *p.EndTime
	}
	if p.Required != nil {
		r.Required = *p.Required
	}
	if p.Order != nil {
		r.Order = *p.Order
	}
	return r
}

// DefaultRoutines is the starter set installed on reset and by the seeder.
func DefaultRoutines() []RoutineItem {
	return []RoutineItem{
		{ID: "r1", Title: "Morning Meditation", StartTime: "06:00", EndTime: "06:15", Category: CategoryMindfulness, Required: true, Order: 0},
		{ID: "r2", Title: "Exercise Routine", StartTime: "06:30", EndTime: "07:15", Category: CategoryFitness, Required: true, Order: 1},
		{ID: "r3", Title: "Healthy Breakfast", StartTime: "07:30", EndTime: "08:00", Category: CategoryHealth, Required: true, Order: 2},
		{ID: "r4", Title: "Deep Work Block", StartTime: "09:00", EndTime: "11:00", Category: CategoryWork, Required: true, Order: 3},
		{ID: "r5", Title: "Reading", StartTime: "12:00", EndTime: "12:30", Category: CategoryGrowth, Required: true, Order: 4},
		{ID: "r6", Title: "Journaling", StartTime: "20:00", EndTime: "20:30", Category: CategoryMind, Required: true, Order: 5},
		{ID: "r7", Title: "Evening Walk", StartTime: "18:00", EndTime: "18:45", Category: CategoryWellness, Required: true, Order: 6},
		{ID: "r8", Title: "Skill Practice", StartTime: "21:00", EndTime: "22:00", Category: CategoryGrowth, Required: false, Order: 7},
	}
}
