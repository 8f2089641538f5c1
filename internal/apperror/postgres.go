package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"

	"github.com/lib/pq"
)

var duplicateValueRe = regexp.MustCompile(`\((.*?)\)=\((.*?)\)`)

// FromDB converts driver errors that stem from client input into operational
// errors. Other errors are returned unchanged.
func FromDB(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	switch pqErr.Code.Name() {
	case "invalid_text_representation", "invalid_datetime_format", "numeric_value_out_of_range", "datetime_field_overflow":
		return Wrap(http.StatusBadRequest, fmt.Sprintf("Invalid value: %s", pqErr.Message), err)
	case "unique_violation":
		value := pqErr.Detail
		if m := duplicateValueRe.FindStringSubmatch(pqErr.Detail); len(m) == 3 {
			value = m[2]
		}
		return Wrap(http.StatusBadRequest, fmt.Sprintf("Duplicate field value: %s. Please use another value!", value), err)
	case "check_violation", "not_null_violation", "foreign_key_violation":
		return &ValidationError{Messages: []string{pqErr.Message}}
	}
	return err
}
