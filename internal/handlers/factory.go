package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"natours/internal/query"
)

// QueryOptions tunes how list endpoints read the query string.
type QueryOptions struct {
	// Multi lists the keys that may repeat; see query.ParseRequest.
	Multi    []string
	MaxLimit int
}

// DefaultMultiKeys are the filter keys allowed to repeat in a query string.
var DefaultMultiKeys = []string{"duration", "ratingsQuantity", "ratingsAverage", "maxGroupSize", "difficulty", "price"}

type Finder interface {
	Find(ctx context.Context, q *query.Query) ([]json.RawMessage, error)
	FindByID(ctx context.Context, id int64) (json.RawMessage, error)
}

type Deleter interface {
	Delete(ctx context.Context, id int64) error
}

type Writer[In any] interface {
	Create(ctx context.Context, in In) (json.RawMessage, error)
	Update(ctx context.Context, id int64, in In) (json.RawMessage, error)
}

// baseQuery pins filter keys taken from the route, e.g. a parent id.
type baseQuery func(c *gin.Context) (*query.Query, error)

func (o QueryOptions) shape(c *gin.Context, base *query.Query) *query.Query {
	req := query.ParseRequest(c.Request.URL.Query(), o.Multi...)
	return query.New(base, req).WithMaxLimit(o.MaxLimit).Apply()
}

func getAll(res Finder, opts QueryOptions, base baseQuery) gin.HandlerFunc {
	return func(c *gin.Context) {
		var b *query.Query
		if base != nil {
			var err error
			if b, err = base(c); err != nil {
				fail(c, err)
				return
			}
		}
		docs, err := res.Find(c.Request.Context(), opts.shape(c, b))
		if err != nil {
			fail(c, err)
			return
		}
		sendList(c, docs)
	}
}

func getOne(res Finder) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := paramID(c, "id")
		if err != nil {
			fail(c, err)
			return
		}
		doc, err := res.FindByID(c.Request.Context(), id)
		if err != nil {
			fail(c, err)
			return
		}
		sendDoc(c, http.StatusOK, doc)
	}
}

// createOne decodes the body, lets prepare fill route defaults, and creates.
func createOne[In any](res Writer[In], prepare func(c *gin.Context, in *In) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in In
		if err := bindJSON(c, &in); err != nil {
			fail(c, err)
			return
		}
		if prepare != nil {
			if err := prepare(c, &in); err != nil {
				fail(c, err)
				return
			}
		}
		doc, err := res.Create(c.Request.Context(), in)
		if err != nil {
			fail(c, err)
			return
		}
		sendDoc(c, http.StatusCreated, doc)
	}
}

func updateOne[In any](res Writer[In]) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := paramID(c, "id")
		if err != nil {
			fail(c, err)
			return
		}
		var in In
		if err := bindJSON(c, &in); err != nil {
			fail(c, err)
			return
		}
		doc, err := res.Update(c.Request.Context(), id, in)
		if err != nil {
			fail(c, err)
			return
		}
		sendDoc(c, http.StatusOK, doc)
	}
}

func deleteOne(res Deleter) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := paramID(c, "id")
		if err != nil {
			fail(c, err)
			return
		}
		if err := res.Delete(c.Request.Context(), id); err != nil {
			fail(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}
