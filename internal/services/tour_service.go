package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gosimple/slug"

	"natours/internal/apperror"
	"natours/internal/models"
	"natours/internal/query"
	"natours/internal/repositories"
	"natours/internal/storage"
)

// Geo units and conversions.
const (
	UnitMiles      = "mi"
	UnitKilometers = "km"

	earthRadiusMi = 3963.2
	earthRadiusKm = 6378.1

	metersToMiles = 0.000621371
	metersToKm    = 0.001

	MaxTourImages = 3
)

type TourService interface {
	Find(ctx context.Context, q *query.Query) ([]json.RawMessage, error)
	FindByID(ctx context.Context, id int64) (json.RawMessage, error)
	Create(ctx context.Context, in models.TourInput) (json.RawMessage, error)
	Update(ctx context.Context, id int64, in models.TourInput) (json.RawMessage, error)
	Delete(ctx context.Context, id int64) error

	GetBySlug(ctx context.Context, slug string) (*models.Tour, error)
	BookedBy(ctx context.Context, userID int64) ([]models.Tour, error)
	Stats(ctx context.Context) ([]models.TourStats, error)
	MonthlyPlan(ctx context.Context, year int) ([]models.MonthlyPlan, error)
	Within(ctx context.Context, distance, lat, lng float64, unit string) ([]json.RawMessage, error)
	Distances(ctx context.Context, lat, lng float64, unit string) ([]models.TourDistance, error)
	UploadImages(ctx context.Context, id int64, cover *storage.Upload, images []storage.Upload) (json.RawMessage, error)
}

type tourService struct {
	repo   repositories.TourRepository
	images storage.ImageStore
	now    func() time.Time
}

func NewTourService(repo repositories.TourRepository, images storage.ImageStore) TourService {
	return &tourService{repo: repo, images: images, now: time.Now}
}

func (s *tourService) Find(ctx context.Context, q *query.Query) ([]json.RawMessage, error) {
	return s.repo.Find(ctx, q)
}

func (s *tourService) FindByID(ctx context.Context, id int64) (json.RawMessage, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *tourService) Create(ctx context.Context, in models.TourInput) (json.RawMessage, error) {
	if err := validateTour(in, true); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(*in.Name)
	in.Name = &name
	return s.repo.Create(ctx, in, slug.Make(name))
}

func (s *tourService) Update(ctx context.Context, id int64, in models.TourInput) (json.RawMessage, error) {
	if err := validateTour(in, false); err != nil {
		return nil, err
	}
	var newSlug *string
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		sl := slug.Make(name)
		in.Name, newSlug = &name, &sl
	}
	return s.repo.Update(ctx, id, in, newSlug)
}

func (s *tourService) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

func (s *tourService) GetBySlug(ctx context.Context, slug string) (*models.Tour, error) {
	t, err := s.repo.GetBySlug(ctx, slug)
	if errors.Is(err, apperror.ErrNotFound) {
		return nil, apperror.Wrap(http.StatusNotFound, "There is no tour with that name.", err)
	}
	return t, err
}

func (s *tourService) BookedBy(ctx context.Context, userID int64) ([]models.Tour, error) {
	return s.repo.FindBookedBy(ctx, userID)
}

func (s *tourService) Stats(ctx context.Context) ([]models.TourStats, error) {
	return s.repo.Stats(ctx)
}

func (s *tourService) MonthlyPlan(ctx context.Context, year int) ([]models.MonthlyPlan, error) {
	return s.repo.MonthlyPlan(ctx, year)
}

// Within finds tours starting within distance (in unit) of the point. Any
// unit other than miles is taken as kilometres.
func (s *tourService) Within(ctx context.Context, distance, lat, lng float64, unit string) ([]json.RawMessage, error) {
	radius := distance / earthRadiusKm
	if unit == UnitMiles {
		radius = distance / earthRadiusMi
	}
	return s.repo.Within(ctx, lat, lng, radius)
}

func (s *tourService) Distances(ctx context.Context, lat, lng float64, unit string) ([]models.TourDistance, error) {
	multiplier := metersToKm
	if unit == UnitMiles {
		multiplier = metersToMiles
	}
	return s.repo.Distances(ctx, lat, lng, multiplier)
}

// UploadImages stores a new cover and/or gallery and points the tour at them.
func (s *tourService) UploadImages(ctx context.Context, id int64, cover *storage.Upload, images []storage.Upload) (json.RawMessage, error) {
	if cover == nil && len(images) == 0 {
		return s.repo.FindByID(ctx, id)
	}
	if len(images) > MaxTourImages {
		return nil, apperror.Validation(fmt.Sprintf("A tour can have at most %d images", MaxTourImages))
	}

	stamp := s.now().UnixMilli()
	var in models.TourInput
	if cover != nil {
		if err := cover.Validate(); err != nil {
			return nil, err
		}
		name := fmt.Sprintf("tour-%d-%d-cover.%s", id, stamp, cover.Ext())
		if err := s.images.Put(ctx, storage.DirTours, name, *cover); err != nil {
			return nil, err
		}
		in.ImageCover = &name
	}
	if len(images) > 0 {
		in.Images = make([]string, 0, len(images))
		for i, img := range images {
			if err := img.Validate(); err != nil {
				return nil, err
			}
			name := fmt.Sprintf("tour-%d-%d-%d.%s", id, stamp, i+1, img.Ext())
			if err := s.images.Put(ctx, storage.DirTours, name, img); err != nil {
				return nil, err
			}
			in.Images = append(in.Images, name)
		}
	}
	return s.repo.Update(ctx, id, in, nil)
}

func validateTour(in models.TourInput, creating bool) error {
	var msgs []string
	if creating {
		required := []struct {
			missing bool
			msg     string
		}{
			{in.Name == nil || strings.TrimSpace(*in.Name) == "", "A tour must have a name"},
			{in.Duration == nil, "A tour must have a duration"},
			{in.MaxGroupSize == nil, "A tour must have a group size"},
			{in.Difficulty == nil, "A tour must have a difficulty"},
			{in.Price == nil, "A tour must have a price"},
			{in.Summary == nil || strings.TrimSpace(*in.Summary) == "", "A tour must have a description"},
			{in.ImageCover == nil || *in.ImageCover == "", "A tour must have a cover image"},
		}
		for _, r := range required {
			if r.missing {
				msgs = append(msgs, r.msg)
			}
		}
	}
	if in.Name != nil {
		n := len([]rune(strings.TrimSpace(*in.Name)))
		if n > 40 {
			msgs = append(msgs, "A tour name must have less or equal than 40 characters")
		} else if n > 0 && n < 10 {
			msgs = append(msgs, "A tour name must have more or equal to 10 characters")
		}
	}
	if in.Difficulty != nil {
		switch *in.Difficulty {
		case models.DifficultyEasy, models.DifficultyMedium, models.DifficultyDifficult:
		default:
			msgs = append(msgs, "Difficulty is either: easy, medium or difficult")
		}
	}
	if in.RatingsAverage != nil {
		if *in.RatingsAverage < 1 {
			msgs = append(msgs, "Rating must be above 1.0")
		} else if *in.RatingsAverage > 5 {
			msgs = append(msgs, "Must be below 5.0")
		}
	}
	if in.PriceDiscount != nil && in.Price != nil && *in.PriceDiscount >= *in.Price {
		msgs = append(msgs, fmt.Sprintf("Discount price (%v) should be below regular price", *in.PriceDiscount))
	}
	if len(msgs) > 0 {
		return apperror.Validation(msgs...)
	}
	return nil
}
