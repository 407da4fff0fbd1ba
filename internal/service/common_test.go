package service

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestFormatDocNo(t *testing.T) {
	at := time.Date(2026, 8, 23, 10, 0, 0, 0, time.UTC)

	assert.Equal(t, "SO-202608-0007", formatDocNo("SO", at, 7))
	assert.Equal(t, "INV-202608-0123", formatDocNo("INV", at, 123))
	assert.Equal(t, "DC-202608-10000", formatDocNo("DC", at, 10000))
}

func TestDocNoPrefix(t *testing.T) {
	at := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "MR-202601-", docNoPrefix("MR", at))
}

func TestParseActorID(t *testing.T) {
	id := uuid.New()

	parsed := parseActorID(id.String())
	if assert.NotNil(t, parsed) {
		assert.Equal(t, id, *parsed)
	}

	assert.Nil(t, parseActorID(""))
	assert.Nil(t, parseActorID("not-a-uuid"))
}
