package course

import (
	"bytes"
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
)

const (
	maxOrderWhole = 9999 // NUMERIC(5,1)
	exerciseSub   = 5
)

var errInvalidOrder = "must be a positive number ending in .0 or .5"

// Order is the position of a chapter within its course: a whole chapter number
// and a sub-slot (0 for lessons, 5 for exercises), rendered as a one-digit decimal.
type Order struct {
	Whole int
	Sub   int
}

func LessonOrder(n int) Order   { return Order{Whole: n} }
func ExerciseOrder(n int) Order { return Order{Whole: n, Sub: exerciseSub} }

// ParseOrder parses a decimal such as "2", "2.0" or "2.5".
func ParseOrder(s string) (Order, error) {
	s = strings.TrimSpace(s)
	whole, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		whole, frac = s[:i], strings.TrimRight(s[i+1:], "0")
	}

	w, err := strconv.Atoi(whole)
	if err != nil {
		return Order{}, orderError(s)
	}
	o := Order{Whole: w}
	switch frac {
	case "":
	case "5":
		o.Sub = exerciseSub
	default:
		return Order{}, orderError(s)
	}
	if !o.IsValid() {
		return Order{}, orderError(s)
	}
	return o, nil
}

func orderError(s string) error {
	return core.NewValidationError(
		errors.Errorf("invalid order %q", s),
		core.FieldError{Field: "order", Error: errInvalidOrder},
	)
}

func (o Order) IsValid() bool {
	return o.Whole >= 1 && o.Whole <= maxOrderWhole && (o.Sub == 0 || o.Sub == exerciseSub)
}

// Fits reports whether o is a valid order for a chapter of kind k.
func (o Order) Fits(k Kind) bool {
	if !o.IsValid() {
		return false
	}
	switch k {
	case KindLesson:
		return o.Sub == 0
	case KindExercise:
		return o.Sub == exerciseSub
	}
	return false
}

// Compare returns -1, 0 or +1 depending on whether o sorts before, with or after p.
func (o Order) Compare(p Order) int {
	a, b := o.tenths(), p.tenths()
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func (o Order) Less(p Order) bool { return o.Compare(p) < 0 }

func (o Order) tenths() int { return o.Whole*10 + o.Sub }

func (o Order) String() string {
	if o.Sub == 0 {
		return strconv.Itoa(o.Whole)
	}
	return fmt.Sprintf("%d.%d", o.Whole, o.Sub)
}

func (o Order) MarshalJSON() ([]byte, error) {
	return []byte(o.String()), nil
}

// UnmarshalJSON accepts both JSON numbers and strings.
func (o *Order) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(bytes.TrimSpace(data), `"`)
	parsed, err := ParseOrder(string(data))
	if err != nil {
		return err
	}
	*o = parsed
	return nil
}

func (o Order) Value() (driver.Value, error) {
	return fmt.Sprintf("%d.%d", o.Whole, o.Sub), nil
}

func (o *Order) Scan(src interface{}) error {
	var s string
	switch v := src.(type) {
	case []byte:
		s = string(v)
	case string:
		s = v
	case int64:
		s = strconv.FormatInt(v, 10)
	case float64:
		s = strconv.FormatFloat(v, 'f', 1, 64)
	default:
		return errors.Errorf("cannot scan %T into Order", src)
	}
	parsed, err := ParseOrder(s)
	if err != nil {
		return errors.Wrapf(err, "scanning order %q", s)
	}
	*o = parsed
	return nil
}
