package validator

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// MaxDescriptorLength caps the free-text label of a report, in runes
const MaxDescriptorLength = 500

var (
	voterIDRegex = regexp.MustCompile(`^[A-Za-z0-9\-]{8,64}$`)
)

// ValidateStruct validates a struct based on validate tags.
// Supported rules: required, min=N, max=N (string length or numeric value), oneof=a b c.
func ValidateStruct(s interface{}) error {
	v := reflect.ValueOf(s)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}

	if v.Kind() != reflect.Struct {
		return errors.New("not a struct")
	}

	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("validate")
		if tag == "" {
			continue
		}

		name := field.Name
		if jsonName, _, _ := strings.Cut(field.Tag.Get("json"), ","); jsonName != "" && jsonName != "-" {
			name = jsonName
		}

		for _, rule := range strings.Split(tag, ",") {
			if err := validateField(name, v.Field(i), rule); err != nil {
				return err
			}
		}
	}

	return nil
}

// validateField validates a single field based on a rule
func validateField(fieldName string, value reflect.Value, rule string) error {
	if rule == "required" {
		if isZero(value) {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}

	// optional pointer fields are only checked when set
	if value.Kind() == reflect.Ptr {
		if value.IsNil() {
			return nil
		}
		value = value.Elem()
	}

	key, arg, _ := strings.Cut(rule, "=")
	switch key {
	case "min", "max":
		limit, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			return fmt.Errorf("invalid %s rule on %s", key, fieldName)
		}
		n, isString, ok := measure(value)
		if !ok {
			return nil
		}
		if key == "min" && n < limit {
			if isString {
				return fmt.Errorf("%s must be at least %s characters", fieldName, arg)
			}
			return fmt.Errorf("%s must be at least %s", fieldName, arg)
		}
		if key == "max" && n > limit {
			if isString {
				return fmt.Errorf("%s must be at most %s characters", fieldName, arg)
			}
			return fmt.Errorf("%s must be at most %s", fieldName, arg)
		}
	case "oneof":
		if value.Kind() != reflect.String {
			return nil
		}
		for _, option := range strings.Fields(arg) {
			if value.String() == option {
				return nil
			}
		}
		return fmt.Errorf("%s must be one of: %s", fieldName, strings.Join(strings.Fields(arg), ", "))
	}
	return nil
}

// measure returns rune length for strings and the numeric value otherwise
func measure(v reflect.Value) (float64, bool, bool) {
	switch v.Kind() {
	case reflect.String:
		return float64(utf8.RuneCountInString(v.String())), true, true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(v.Int()), false, true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(v.Uint()), false, true
	case reflect.Float32, reflect.Float64:
		return v.Float(), false, true
	default:
		return 0, false, false
	}
}

// isZero checks if a value is zero/empty
func isZero(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.String:
		return v.String() == ""
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	case reflect.Bool:
		return !v.Bool()
	case reflect.Ptr, reflect.Interface:
		return v.IsNil()
	default:
		return false
	}
}

// ValidateCoordinates checks that lat/lng are finite WGS-84 degrees
func ValidateCoordinates(lat, lng float64) error {
	if math.IsNaN(lat) || math.IsNaN(lng) || math.IsInf(lat, 0) || math.IsInf(lng, 0) {
		return errors.New("coordinates must be finite numbers")
	}
	if lat < -90 || lat > 90 {
		return errors.New("latitude must be between -90 and 90")
	}
	if lng < -180 || lng > 180 {
		return errors.New("longitude must be between -180 and 180")
	}
	return nil
}

// ValidateIntensity checks the 1..5 severity range
func ValidateIntensity(intensity int) error {
	if intensity < 1 || intensity > 5 {
		return fmt.Errorf("intensity must be between 1 and 5, got %d", intensity)
	}
	return nil
}

// ValidateVoteValue accepts only +1 and -1
func ValidateVoteValue(value int) error {
	if value != 1 && value != -1 {
		return fmt.Errorf("vote value must be 1 or -1, got %d", value)
	}
	return nil
}

// ValidateVoterID checks the shape of an anonymous voter id
func ValidateVoterID(voterID string) error {
	if voterID == "" {
		return errors.New("voter id is required")
	}
	if !voterIDRegex.MatchString(voterID) {
		return errors.New("invalid voter id format")
	}
	return nil
}

// ValidateDescriptor limits the descriptor length after sanitizing
func ValidateDescriptor(descriptor string) error {
	if utf8.RuneCountInString(SanitizeString(descriptor)) > MaxDescriptorLength {
		return fmt.Errorf("descriptor must be at most %d characters", MaxDescriptorLength)
	}
	return nil
}

// SanitizeString sanitizes a string by removing potentially dangerous characters
func SanitizeString(s string) string {
	// Remove null bytes
	s = strings.ReplaceAll(s, "\x00", "")
	// Trim whitespace
	s = strings.TrimSpace(s)
	return s
}
