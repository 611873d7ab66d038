package domain

import "time"

type Shop struct {
	ID        uint64
	Name      string
	TypeID    uint64
	Address   string
	Comments  int
	Score     int
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Blog struct {
	ID        uint64
	UserID    uint64
	Title     string
	Liked     int
	CreatedAt time.Time
	UpdatedAt time.Time
}
