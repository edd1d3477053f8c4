package httpx

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePage(t *testing.T) {
	page, err := ParsePage(url.Values{})
	require.NoError(t, err)
	assert.Equal(t, 1, page)

	page, err = ParsePage(url.Values{"page": {"3"}})
	require.NoError(t, err)
	assert.Equal(t, 3, page)

	for _, raw := range []string{"0", "-2", "abc"} {
		_, err = ParsePage(url.Values{"page": {raw}})
		assert.ErrorIs(t, err, ErrInvalidPage, raw)
	}
}

func TestParseLimitOffset(t *testing.T) {
	limit, offset, err := ParseLimitOffset(url.Values{"limit": {"500"}, "offset": {"10"}}, 20, 100)
	require.NoError(t, err)
	assert.Equal(t, int64(100), limit)
	assert.Equal(t, int64(10), offset)

	_, _, err = ParseLimitOffset(url.Values{"limit": {"0"}}, 20, 100)
	assert.Error(t, err)
	_, _, err = ParseLimitOffset(url.Values{"offset": {"-1"}}, 20, 100)
	assert.Error(t, err)
}

func TestParseBool(t *testing.T) {
	v, err := ParseBool(url.Values{}, "approved")
	require.NoError(t, err)
	assert.Nil(t, v)

	v, err = ParseBool(url.Values{"approved": {"false"}}, "approved")
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.False(t, *v)

	_, err = ParseBool(url.Values{"approved": {"maybe"}}, "approved")
	assert.Error(t, err)
}

func TestDecodeJSONRejectsTrailingData(t *testing.T) {
	var dst struct {
		IDs []string `json:"ids"`
	}
	require.NoError(t, DecodeJSON(strings.NewReader(`{"ids":["a"]}`), &dst))
	assert.Equal(t, []string{"a"}, dst.IDs)

	assert.Error(t, DecodeJSON(strings.NewReader(`{"ids":[]}{}`), &dst))
	assert.Error(t, DecodeJSON(strings.NewReader(`{"unknown":1}`), &dst))
}
