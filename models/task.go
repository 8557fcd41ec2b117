// models/task.go
package models

const (
	TaskTypeCheckin = "checkin"
	TaskTypeSocial  = "social"
	TaskTypeDaily   = "daily"
)

// Task is an admin-defined reward definition. The engine only reads it.
type Task struct {
	ID                   string `json:"id" gorm:"primaryKey"`
	Title                string `json:"title" gorm:"not null"`
	Description          string `json:"description"`
	RewardAmount         int64  `json:"reward_amount" gorm:"not null;default:0"`
	Category             string `json:"category"`
	Type                 string `json:"type" gorm:"type:varchar(32)"`
	CooldownMinutes      int    `json:"cooldown_minutes" gorm:"default:0"`
	MaxCompletionsPerDay int    `json:"max_completions_per_day" gorm:"default:1"`
	IsActive             bool   `json:"is_active" gorm:"default:true"`

	Timestamps
}
