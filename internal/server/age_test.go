package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAgeMonths(t *testing.T) {
	now := time.Date(2025, time.October, 15, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, 14, ageMonths("2024-08", now))
	assert.Equal(t, 0, ageMonths("2025-10", now))
	assert.Equal(t, 34, ageMonths("2022-12", now))

	// Future or unparseable launch dates yield zero.
	assert.Equal(t, 0, ageMonths("2026-01", now))
	assert.Equal(t, 0, ageMonths("August 2024", now))
	assert.Equal(t, 0, ageMonths("", now))
}

func TestToInputDerivesAge(t *testing.T) {
	req := StartRequest{
		InspectionID: "insp-1",
		Description:  "desc",
		Images:       []string{"a.jpg"},
		PhoneDetails: PhoneDetails{
			Brand:       "Samsung",
			Model:       "Galaxy A06",
			LaunchDate:  "2020-01",
			RetailPrice: 27000,
		},
	}

	in := req.toInput()
	assert.Positive(t, in.AgeMonths, "age falls back to the launch date")
	assert.True(t, in.PTAApproved, "PTA approval defaults to true")

	explicit := req
	explicit.PhoneDetails.AgeMonths = 7
	pta := false
	explicit.PhoneDetails.PTAApproved = &pta
	in = explicit.toInput()
	assert.Equal(t, 7, in.AgeMonths)
	assert.False(t, in.PTAApproved)
}
