package domain

import "time"

type Guest struct {
	ID           int64
	Name         string
	Email        string
	Phone        string
	Address      *string
	RegisteredAt time.Time
}
