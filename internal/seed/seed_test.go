package seed

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"natours/internal/authz"
)

func writeFile(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600))
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "users.json", `[{"name":"Lourdes Browning","email":"loulou@example.com","role":"guide","password":"test1234"}]`)
	writeFile(t, dir, "tours.json", `[{"name":"The Forest Hiker","duration":5,"guides":["loulou@example.com"]}]`)
	writeFile(t, dir, "reviews.json", `[{"review":"Great","rating":5,"tour":"The Forest Hiker","user":"loulou@example.com"}]`)

	d, err := Load(dir)
	require.NoError(t, err)
	require.Len(t, d.Users, 1)
	assert.Equal(t, authz.RoleGuide, d.Users[0].Role)
	require.Len(t, d.Tours, 1)
	assert.Equal(t, "The Forest Hiker", *d.Tours[0].Name)
	assert.Equal(t, 5, *d.Tours[0].Duration)
	assert.Equal(t, []string{"loulou@example.com"}, d.Tours[0].Guides)
	assert.Equal(t, "The Forest Hiker", d.Reviews[0].Tour)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(t.TempDir())
	assert.ErrorContains(t, err, "users.json")
}

func TestLoad_ShippedDataSet(t *testing.T) {
	d, err := Load(filepath.Join("..", "..", "dev-data"))
	require.NoError(t, err)
	assert.NotEmpty(t, d.Users)
	assert.NotEmpty(t, d.Tours)

	emails := map[string]bool{}
	for _, u := range d.Users {
		emails[u.Email] = true
	}
	names := map[string]bool{}
	for _, tour := range d.Tours {
		names[*tour.Name] = true
		for _, g := range tour.Guides {
			assert.True(t, emails[g], "guide %s of %s", g, *tour.Name)
		}
	}
	for _, r := range d.Reviews {
		assert.True(t, names[r.Tour], "review tour %s", r.Tour)
		assert.True(t, emails[r.User], "review user %s", r.User)
	}
}

func TestDelete(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta(truncateAll)).WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, Delete(context.Background(), db))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestImport_UnknownGuide(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	name := "The Lost Tour"
	d := &Data{Tours: []Tour{{Guides: []string{"nobody@example.com"}}}}
	d.Tours[0].Name = &name
	err = Import(context.Background(), db, d, func(s string) (string, error) { return s, nil })
	assert.ErrorContains(t, err, "unknown guide nobody@example.com")
}
