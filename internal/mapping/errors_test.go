package mapping_test

import (
	"errors"
	"strconv"
	"testing"

	"github.com/frantjc/port-registry/internal/mapping"
	"github.com/stretchr/testify/assert"
)

func TestBoundsErrorMessage(t *testing.T) {
	assert.Equal(t, "mapping 5: index out of bounds: expected 1 - 1", (&mapping.BoundsError{Index: 5, Len: 1}).Error())
	assert.Equal(t, "mapping 0: index out of bounds: there are no mappings", (&mapping.BoundsError{}).Error())
}

func TestParseErrorUnwraps(t *testing.T) {
	_, cause := strconv.Atoi("two")
	err := error(&mapping.ParseError{Field: "index", Value: "two", Err: cause})

	assert.ErrorIs(t, err, mapping.ErrParse)
	assert.ErrorIs(t, err, strconv.ErrSyntax)
	assert.False(t, errors.Is(err, mapping.ErrIndexOutOfBounds))
	assert.Equal(t, `parse index "two": strconv.Atoi: parsing "two": invalid syntax`, err.Error())
}
