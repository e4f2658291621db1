package domain

import "time"

type ID string

type Contact struct {
	ID        ID
	Name      string
	Email     string
	Phone     string
	Message   string
	CreatedAt time.Time
}
