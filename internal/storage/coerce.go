// Converts between album fields, caller arguments and comparable values.

package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/maruel/albumdb/internal/models"
	"github.com/maruel/albumdb/internal/query"
)

// ErrInvalidValue is returned when an argument cannot be stored in or compared
// with its column.
var ErrInvalidValue = errors.New("invalid value")

// Values are normalized to one of:
//
//	nil     NULL
//	int64   id, release_year, is_owned, want_to_own, whole numbers, booleans
//	float64 fractional numbers
//	string  text
//
// Flags and booleans become 0 or 1.

// normalize converts a caller argument to its canonical representation.
func normalize(value any) any {
	switch v := value.(type) {
	case nil:
		return nil
	case string:
		return v
	case int64:
		return v
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case int16:
		return int64(v)
	case int8:
		return int64(v)
	case uint:
		return int64(v)
	case uint32:
		return int64(v)
	case uint16:
		return int64(v)
	case uint8:
		return int64(v)
	case uint64:
		if v > math.MaxInt64 {
			return float64(v)
		}
		return int64(v)
	case float32:
		return normalize(float64(v))
	case float64:
		if v == math.Trunc(v) && !math.IsInf(v, 0) && !math.IsNaN(v) && v >= math.MinInt64 && v <= math.MaxInt64 {
			return int64(v)
		}
		return v
	case bool:
		if v {
			return int64(1)
		}
		return int64(0)
	case models.Flag:
		return v.Int()
	case models.NullString:
		return v.Value()
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i
		}
		if f, err := v.Float64(); err == nil {
			return f
		}
		return v.String()
	case *int64:
		if v == nil {
			return nil
		}
		return *v
	case *int:
		if v == nil {
			return nil
		}
		return int64(*v)
	case *string:
		if v == nil {
			return nil
		}
		return *v
	case time.Time:
		return v.Format(models.TimeFormat)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

func normalizeArgs(args []any) []any {
	out := make([]any, len(args))
	for i, a := range args {
		out[i] = normalize(a)
	}
	return out
}

// columnValue returns the normalized value of a column.
func columnValue(a *models.Album, col string) any {
	switch col {
	case query.ColID:
		return a.ID
	case query.ColArtistName:
		return a.ArtistName
	case query.ColAlbumName:
		return a.AlbumName
	case query.ColReleaseYear:
		if a.ReleaseYear == nil {
			return nil
		}
		return *a.ReleaseYear
	case query.ColIsOwned:
		return a.IsOwned.Int()
	case query.ColWantToOwn:
		return a.WantToOwn.Int()
	case query.ColCoverURL:
		return a.CoverURL.Value()
	case query.ColDiscogsReleaseID:
		return a.DiscogsReleaseID.Value()
	case query.ColStyle:
		return a.Style.Value()
	case query.ColFormat:
		return a.Format.Value()
	case query.ColArtistType:
		return a.ArtistType.Value()
	case query.ColLabel:
		return a.Label.Value()
	case query.ColProducer:
		return a.Producer.Value()
	case query.ColCreatedDate:
		return a.CreatedDate
	case query.ColUpdatedDate:
		return a.UpdatedDate
	default:
		return nil
	}
}

// setColumn assigns a normalized value to a mutable column.
func setColumn(a *models.Album, col string, value any) error {
	var err error
	switch col {
	case query.ColArtistName:
		a.ArtistName = coerceToText(value).String
	case query.ColAlbumName:
		a.AlbumName = coerceToText(value).String
	case query.ColReleaseYear:
		a.ReleaseYear, err = coerceToYear(value)
	case query.ColIsOwned:
		a.IsOwned, err = coerceToFlag(value)
	case query.ColWantToOwn:
		a.WantToOwn, err = coerceToFlag(value)
	case query.ColCoverURL:
		a.CoverURL = coerceToText(value)
	case query.ColDiscogsReleaseID:
		a.DiscogsReleaseID = coerceToText(value)
	case query.ColStyle:
		a.Style = coerceToText(value)
	case query.ColFormat:
		a.Format = coerceToText(value)
	case query.ColArtistType:
		a.ArtistType = coerceToText(value)
	case query.ColLabel:
		a.Label = coerceToText(value)
	case query.ColProducer:
		a.Producer = coerceToText(value)
	default:
		return fmt.Errorf("%w: column %s is not writable", ErrInvalidValue, col)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", col, err)
	}
	return nil
}

// coerceToText converts numeric values to their string representation.
func coerceToText(value any) models.NullString {
	switch v := value.(type) {
	case nil:
		return models.NullString{}
	case string:
		return models.Text(v)
	case int64:
		return models.Text(strconv.FormatInt(v, 10))
	case float64:
		return models.Text(strconv.FormatFloat(v, 'f', -1, 64))
	default:
		return models.Text(fmt.Sprint(v))
	}
}

// coerceToYear accepts integers, numeric strings and NULL. Empty strings are NULL.
func coerceToYear(value any) (*int64, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case int64:
		return &v, nil
	case string:
		y, err := models.ParseYear(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidValue, err)
		}
		return y, nil
	default:
		return nil, fmt.Errorf("%w: year %v", ErrInvalidValue, value)
	}
}

// coerceToFlag accepts 0, 1, their string forms, true/false and NULL.
func coerceToFlag(value any) (models.Flag, error) {
	switch v := value.(type) {
	case nil:
		return false, nil
	case int64:
		return v != 0, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "on":
			return true, nil
		case "0", "false", "no", "off", "":
			return false, nil
		}
	}
	return false, fmt.Errorf("%w: flag %v", ErrInvalidValue, value)
}

// coerceToInteger converts a value to an integer when it is numeric.
func coerceToInteger(value any) (int64, bool) {
	switch v := value.(type) {
	case int64:
		return v, true
	case float64:
		return int64(v), true
	case string:
		if i, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
			return i, true
		}
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return int64(f), true
		}
	}
	return 0, false
}

// coerceToReal converts a value to a float when it is numeric.
func coerceToReal(value any) (float64, bool) {
	switch v := value.(type) {
	case int64:
		return float64(v), true
	case float64:
		return v, true
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

// isNumeric reports whether a normalized value is a number.
func isNumeric(value any) bool {
	switch value.(type) {
	case int64, float64:
		return true
	default:
		return false
	}
}
