package models

import "time"

// Society описывает организацию старой модели данных, её заменяет клуб.
type Society struct {
	ID        int       `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Format    *string   `json:"format,omitempty" db:"format"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
