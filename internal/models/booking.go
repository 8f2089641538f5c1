package models

import "time"

type BookingTour struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type BookingUser struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type Booking struct {
	ID        int64        `json:"id"`
	Tour      *BookingTour `json:"tour"`
	User      *BookingUser `json:"user"`
	Price     float64      `json:"price"`
	CreatedAt time.Time    `json:"createdAt"`
	Paid      bool         `json:"paid"`
}

type BookingInput struct {
	Tour  *int64   `json:"tour"`
	User  *int64   `json:"user"`
	Price *float64 `json:"price"`
	Paid  *bool    `json:"paid"`
}
