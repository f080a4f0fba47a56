package utils

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

func TestFormatPrice(t *testing.T) {
	tests := []struct {
		price float64
		want  string
	}{
		{67012.456, "67,012.46"},
		{1234567.8, "1,234,567.80"},
		{250, "250.00"},
		{3.14159, "3.1416"},
		{0.123456789, "0.123457"},
		{0.0000123456, "0.00001235"},
		{-1500.5, "-1,500.50"},
		{0, "0.00000000"},
		{math.NaN(), "n/a"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatPrice(tt.price), "%v", tt.price)
	}
}

func TestFormatVolume(t *testing.T) {
	assert.Equal(t, "512.50", FormatVolume(512.5))
	assert.Equal(t, "1.5K", FormatVolume(1500))
	assert.Equal(t, "12.35M", FormatVolume(12_345_678))
	assert.Equal(t, "3G", FormatVolume(3e9))
	assert.Equal(t, "2K", FormatVolume(1999))
	assert.Equal(t, "1.01M", FormatVolume(1_005_000))
}

func TestFormatSignedAndRatio(t *testing.T) {
	assert.Equal(t, "+42.5", FormatSigned(42.46, 1))
	assert.Equal(t, "-7", FormatSigned(-7.2, 0))
	assert.Equal(t, "+1.50%", FormatPercent(1.5))
	assert.Equal(t, "-0.25%", FormatPercent(-0.25))
	assert.Equal(t, "2.5x", FormatRatio(2.5))
	assert.Equal(t, "2.5x", FormatRatio(2.499))
	assert.Equal(t, "1.67x", FormatRatio(5.0/3))
}

func TestProperty_FormatPriceRoundTrips(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	grouping := regexp.MustCompile(`^-?\d{1,3}(,\d{3})*(\.\d+)?$`)

	properties.Property("formatted price uses Western grouping and parses back within rounding", prop.ForAll(
		func(price float64) bool {
			formatted := FormatPrice(price)
			if !grouping.MatchString(formatted) {
				t.Logf("bad grouping for %v: %s", price, formatted)
				return false
			}

			_, dec, _ := strings.Cut(formatted, ".")
			if int32(len(dec)) != PricePlaces(price) {
				return false
			}

			parsed, err := strconv.ParseFloat(strings.ReplaceAll(formatted, ",", ""), 64)
			if err != nil {
				return false
			}
			return math.Abs(parsed-price) <= math.Pow(10, -float64(PricePlaces(price)))/2+1e-9*math.Abs(price)
		},
		gen.Float64Range(-1e9, 1e9),
	))

	properties.TestingRun(t)
}
