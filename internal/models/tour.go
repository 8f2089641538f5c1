package models

import "time"

type Difficulty string

const (
	DifficultyEasy      Difficulty = "easy"
	DifficultyMedium    Difficulty = "medium"
	DifficultyDifficult Difficulty = "difficult"
)

// Location is a GeoJSON point; Coordinates are [longitude, latitude].
type Location struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
	Address     string    `json:"address,omitempty"`
	Description string    `json:"description,omitempty"`
	Day         int       `json:"day,omitempty"`
}

type Guide struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Photo string `json:"photo"`
	Role  string `json:"role"`
}

// Tour mirrors the document produced by the tours schema.
type Tour struct {
	ID              int64       `json:"id"`
	Name            string      `json:"name"`
	Slug            string      `json:"slug"`
	Duration        int         `json:"duration"`
	MaxGroupSize    int         `json:"maxGroupSize"`
	Difficulty      Difficulty  `json:"difficulty"`
	RatingsAverage  float64     `json:"ratingsAverage"`
	RatingsQuantity int         `json:"ratingsQuantity"`
	Price           float64     `json:"price"`
	PriceDiscount   *float64    `json:"priceDiscount,omitempty"`
	Summary         string      `json:"summary"`
	Description     string      `json:"description"`
	ImageCover      string      `json:"imageCover"`
	Images          []string    `json:"images"`
	StartDates      []time.Time `json:"startDates"`
	StartLocation   *Location   `json:"startLocation,omitempty"`
	Locations       []Location  `json:"locations"`
	Guides          []Guide     `json:"guides"`
	Reviews         []Review    `json:"reviews,omitempty"`
	DurationWeeks   float64     `json:"durationWeeks"`
	CreatedAt       time.Time   `json:"createdAt"`
}

// TourInput is the body of create and update requests. Pointer fields are
// optional on update.
type TourInput struct {
	Name           *string     `json:"name"`
	Duration       *int        `json:"duration"`
	MaxGroupSize   *int        `json:"maxGroupSize"`
	Difficulty     *Difficulty `json:"difficulty"`
	RatingsAverage *float64    `json:"ratingsAverage"`
	Price          *float64    `json:"price"`
	PriceDiscount  *float64    `json:"priceDiscount"`
	Summary        *string     `json:"summary"`
	Description    *string     `json:"description"`
	ImageCover     *string     `json:"imageCover"`
	Images         []string    `json:"images"`
	StartDates     []time.Time `json:"startDates"`
	SecretTour     *bool       `json:"secretTour"`
	StartLocation  *Location   `json:"startLocation"`
	Locations      []Location  `json:"locations"`
	Guides         []int64     `json:"guides"`
}

type TourStats struct {
	Difficulty string  `json:"_id"`
	NumTours   int     `json:"numTours"`
	NumRatings int     `json:"numRatings"`
	AvgRating  float64 `json:"avgRating"`
	AvgPrice   float64 `json:"avgPrice"`
	MinPrice   float64 `json:"minPrice"`
	MaxPrice   float64 `json:"maxPrice"`
}

type MonthlyPlan struct {
	Month         int      `json:"month"`
	NumTourStarts int      `json:"numTourStarts"`
	Tours         []string `json:"tours"`
}

type TourDistance struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	Distance float64 `json:"distance"`
}
