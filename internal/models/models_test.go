package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDDecodesNumbersAndStrings(t *testing.T) {
	var payload struct {
		A ID `json:"a"`
		B ID `json:"b"`
		C ID `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a": 12, "b": " 12 ", "c": null}`), &payload))
	assert.Equal(t, ID("12"), payload.A)
	assert.Equal(t, payload.A, payload.B)
	assert.Equal(t, ID(""), payload.C)

	out, err := json.Marshal(map[string]ID{"n": "7", "s": "abc"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"n": 7, "s": "abc"}`, string(out))
}

func TestIDKeepsNonCanonicalDigitsAsStrings(t *testing.T) {
	out, err := json.Marshal(map[string]ID{"lead": "0042", "short": "07", "plus": "+5", "neg": "-3", "zero": "0"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"lead": "0042", "short": "07", "plus": "+5", "neg": -3, "zero": 0}`, string(out))

	var back map[string]ID
	require.NoError(t, json.Unmarshal(out, &back))
	assert.Equal(t, ID("0042"), back["lead"])
	assert.Equal(t, ID("07"), back["short"])
}

func TestIDLess(t *testing.T) {
	assert.True(t, ID("2").Less("10"))
	assert.False(t, ID("10").Less("2"))
	assert.True(t, ID("9").Less("abc"))
	assert.True(t, ID("abc").Less("abd"))
}

func TestUserRoleDecoding(t *testing.T) {
	var users []User
	require.NoError(t, json.Unmarshal([]byte(`[
		{"id": 1, "role": "tutor"},
		{"id": 2, "role": "estudiante"},
		{"id": 3, "role": "profesor"}
	]`), &users))
	assert.Equal(t, RoleTutor, users[0].Role)
	assert.Equal(t, RoleStudent, users[1].Role)
	assert.Equal(t, RoleOther, users[2].Role)
	assert.True(t, users[1].Role.CanCheckIn())
	assert.False(t, users[2].Role.CanCheckIn())
}

func TestAttendanceEventParsing(t *testing.T) {
	e := AttendanceEvent{Date: "2024-03-04", Time: "09:15"}
	day, ok := e.Day()
	require.True(t, ok)
	assert.Equal(t, "Monday", day.Weekday().String())
	hour, ok := e.Hour()
	require.True(t, ok)
	assert.Equal(t, 9, hour)

	_, ok = AttendanceEvent{Date: "04/03/2024"}.Day()
	assert.False(t, ok)
}

func TestFiltersMatch(t *testing.T) {
	e := AttendanceEvent{SessionID: "1", UserID: "100", Date: "2024-03-04"}
	assert.True(t, AttendanceFilter{SessionID: "1", Date: "2024-03-04"}.Match(e))
	assert.False(t, AttendanceFilter{UserID: "101"}.Match(e))

	s := Session{TutorID: "10", Status: SessionStatusActive}
	assert.True(t, SessionFilter{TutorID: "10"}.Match(s))
	assert.False(t, SessionFilter{Status: SessionStatusInactive}.Match(s))
}
