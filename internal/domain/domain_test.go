package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetFieldNeverOverwrites(t *testing.T) {
	s := NewCallSession("CA1", "+15551234567")

	require.True(t, s.SetField(FieldName, "Jane"))
	assert.False(t, s.SetField(FieldName, "Janet"))
	assert.Equal(t, "Jane", s.Field(FieldName))

	assert.False(t, s.SetField(FieldService, ""))
	assert.Empty(t, s.Field(FieldService))
}

func TestMissingFieldsOrder(t *testing.T) {
	s := NewCallSession("CA1", "")
	assert.Equal(t, []string{FieldName, FieldService, FieldDate, FieldTime}, s.MissingFields())

	s.SetField(FieldName, "Jane")
	s.SetField(FieldDate, "Friday, June 6")
	assert.Equal(t, []string{FieldService, FieldTime}, s.MissingFields())
	assert.False(t, s.Complete())
	assert.Equal(t, StateGatheringService, s.NextState())

	s.SetField(FieldService, "Cleaning")
	s.SetField(FieldTime, "10:00 AM")
	assert.True(t, s.Complete())
	assert.Equal(t, StateConfirming, s.NextState())
}

func TestClearFieldReopensGathering(t *testing.T) {
	s := NewCallSession("CA1", "")
	s.SetField(FieldName, "Jane")
	s.SetField(FieldService, "Cleaning")
	s.SetField(FieldDate, "Friday, June 6")
	s.SetField(FieldTime, "10:00 AM")

	s.ClearField(FieldTime)
	assert.Equal(t, StateGatheringTime, s.NextState())
	assert.True(t, s.SetField(FieldTime, "10:30 AM"))
}

func TestHistoryBounded(t *testing.T) {
	s := NewCallSession("CA1", "")
	for i := 0; i < 50; i++ {
		s.AddTurn("caller", "hello")
	}
	assert.Len(t, s.History, maxHistoryTurns)
}

func TestTerminalStates(t *testing.T) {
	assert.True(t, StateBooked.Terminal())
	assert.True(t, StateAbandoned.Terminal())
	assert.False(t, StateConfirming.Terminal())
}

func TestAppointmentActive(t *testing.T) {
	assert.True(t, Appointment{Status: StatusConfirmed}.Active())
	assert.True(t, Appointment{Status: StatusPendingManual}.Active())
	assert.False(t, Appointment{Status: StatusCancelled}.Active())
}
