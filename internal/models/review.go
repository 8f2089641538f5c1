package models

import "time"

type ReviewAuthor struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Photo string `json:"photo"`
}

type Review struct {
	ID        int64         `json:"id"`
	Review    string        `json:"review"`
	Rating    float64       `json:"rating"`
	CreatedAt time.Time     `json:"createdAt"`
	Tour      int64         `json:"tour"`
	User      *ReviewAuthor `json:"user"`
}

type ReviewInput struct {
	Review *string  `json:"review"`
	Rating *float64 `json:"rating"`
	Tour   *int64   `json:"tour"`
	User   *int64   `json:"user"`
}
