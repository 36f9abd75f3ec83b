package tasks

import "payskill/internal/models"

// Catalog is the fixed, ordered list of tasks. Display order drives the
// unlock rules.
type Catalog struct {
	tasks []models.Task
	index map[string]int
}

// NewCatalog builds a catalog over tasks in display order.
func NewCatalog(tasks []models.Task) *Catalog {
	c := &Catalog{tasks: tasks, index: make(map[string]int, len(tasks))}
	for i, t := range tasks {
		c.index[t.ID] = i
	}
	return c
}

// DefaultCatalog returns the ten built-in skill tasks.
func DefaultCatalog() *Catalog {
	return NewCatalog(defaultTasks())
}

// All returns a copy of the tasks in display order.
func (c *Catalog) All() []models.Task {
	out := make([]models.Task, len(c.tasks))
	copy(out, c.tasks)
	return out
}

// Get looks a task up by id.
func (c *Catalog) Get(id string) (models.Task, bool) {
	i, ok := c.index[id]
	if !ok {
		return models.Task{}, false
	}
	return c.tasks[i], true
}

// Position returns the 1-based display position of a task, or 0.
func (c *Catalog) Position(id string) int {
	i, ok := c.index[id]
	if !ok {
		return 0
	}
	return i + 1
}

// Len returns the number of tasks.
func (c *Catalog) Len() int {
	return len(c.tasks)
}

func defaultTasks() []models.Task {
	return []models.Task{
		{
			ID:            "cooking-basic-meal",
			Title:         "Cook a Basic Meal",
			Description:   "Prepare and cook a simple, nutritious meal from scratch",
			Category:      "Life Skills",
			Difficulty:    models.Beginner,
			EstimatedTime: "30-45 minutes",
			Icon:          "🍳",
		},
		{
			ID:            "public-speaking",
			Title:         "Public Speaking",
			Description:   "Deliver a 3-minute speech on a topic of your choice",
			Category:      "Communication",
			Difficulty:    models.Intermediate,
			EstimatedTime: "15-20 minutes",
			Icon:          "🎤",
		},
		{
			ID:            "basic-coding",
			Title:         "Write Basic Code",
			Description:   "Create a simple program that solves a basic problem",
			Category:      "Technical",
			Difficulty:    models.Beginner,
			EstimatedTime: "45-60 minutes",
			Icon:          "💻",
		},
		{
			ID:            "financial-budgeting",
			Title:         "Create a Budget Plan",
			Description:   "Design a monthly budget plan with income and expense tracking",
			Category:      "Finance",
			Difficulty:    models.Intermediate,
			EstimatedTime: "20-30 minutes",
			Icon:          "💰",
		},
		{
			ID:            "creative-art",
			Title:         "Create Artwork",
			Description:   "Draw, paint, or create any form of visual art",
			Category:      "Creative",
			Difficulty:    models.Beginner,
			EstimatedTime: "30-60 minutes",
			Icon:          "🎨",
		},
		{
			ID:            "fitness-routine",
			Title:         "Complete Workout",
			Description:   "Perform a 20-minute fitness routine or exercise session",
			Category:      "Health",
			Difficulty:    models.Beginner,
			EstimatedTime: "20-30 minutes",
			Icon:          "💪",
		},
		{
			ID:            "language-learning",
			Title:         "Language Practice",
			Description:   "Practice speaking a foreign language for 10 minutes",
			Category:      "Education",
			Difficulty:    models.Intermediate,
			EstimatedTime: "10-15 minutes",
			Icon:          "🗣️",
		},
		{
			ID:            "problem-solving",
			Title:         "Solve a Puzzle",
			Description:   "Complete a challenging puzzle or brain teaser",
			Category:      "Mental",
			Difficulty:    models.Intermediate,
			EstimatedTime: "15-30 minutes",
			Icon:          "🧩",
		},
		{
			ID:            "music-performance",
			Title:         "Musical Performance",
			Description:   "Play an instrument or sing a song for 3 minutes",
			Category:      "Creative",
			Difficulty:    models.Intermediate,
			EstimatedTime: "10-15 minutes",
			Icon:          "🎵",
		},
		{
			ID:            "leadership-task",
			Title:         "Leadership Challenge",
			Description:   "Organize and lead a small group activity or project",
			Category:      "Leadership",
			Difficulty:    models.Advanced,
			EstimatedTime: "45-60 minutes",
			Icon:          "👥",
		},
	}
}
