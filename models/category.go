package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Category groups issues by the department responsible and its SLA
type Category struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	LegacyID     *int64             `bson:"_sqlite_id,omitempty" json:"-"`
	Name         string             `bson:"name" json:"name"`
	Department   string             `bson:"department,omitempty" json:"department,omitempty"`
	SLAHours     int                `bson:"sla_hours" json:"sla_hours"`
	BasePriority int                `bson:"base_priority" json:"base_priority"`
}

// DefaultCategories is the catalogue seeded into a fresh database.
var DefaultCategories = []Category{
	{Name: "Pothole", Department: "Roads", SLAHours: 168, BasePriority: 5},
	{Name: "Garbage", Department: "Sanitation", SLAHours: 24, BasePriority: 4},
	{Name: "Street Light", Department: "Electricity", SLAHours: 48, BasePriority: 4},
	{Name: "Water Leakage", Department: "Water Supply", SLAHours: 24, BasePriority: 6},
	{Name: "Stray Animals", Department: "Animal Control", SLAHours: 48, BasePriority: 3},
	{Name: "Road Damage", Department: "Roads", SLAHours: 168, BasePriority: 5},
	{Name: "Drainage", Department: "Water Supply", SLAHours: 48, BasePriority: 5},
	{Name: "Public Safety", Department: "Safety", SLAHours: 12, BasePriority: 8},
	{Name: "Electricity", Department: "Electricity", SLAHours: 24, BasePriority: 6},
}
