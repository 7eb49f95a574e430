package domain

import "time"

// GeneratedPassword is one entry of the password generator history.
type GeneratedPassword struct {
	Password  string    `json:"password"`
	Kind      string    `json:"kind"`
	Length    int       `json:"length"`
	CreatedAt time.Time `json:"created_at"`
}
