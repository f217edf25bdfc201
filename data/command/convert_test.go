package command

import (
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"commq/errors"
)

func TestConvert_Numbers(t *testing.T) {
	i, err := Convert[int64](int64(42))
	require.NoError(t, err)
	assert.Equal(t, int64(42), i)

	n, err := Convert[int](int64(7))
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	small, err := Convert[int16]([]byte("123"))
	require.NoError(t, err)
	assert.Equal(t, int16(123), small)

	f, err := Convert[float64](int64(3))
	require.NoError(t, err)
	assert.Equal(t, 3.0, f)

	whole, err := Convert[int64](float64(5))
	require.NoError(t, err)
	assert.Equal(t, int64(5), whole)

	u, err := Convert[uint8](int64(200))
	require.NoError(t, err)
	assert.Equal(t, uint8(200), u)
}

func TestConvert_LossyNumbersFail(t *testing.T) {
	_, err := Convert[int8](int64(300))
	assert.ErrorIs(t, err, errors.ErrTypeMismatch)

	_, err = Convert[int64](1.5)
	assert.ErrorIs(t, err, errors.ErrTypeMismatch)

	_, err = Convert[uint32](int64(-1))
	assert.ErrorIs(t, err, errors.ErrTypeMismatch)

	_, err = Convert[float32](math.MaxFloat64)
	assert.ErrorIs(t, err, errors.ErrTypeMismatch)

	_, err = Convert[int64]("abc")
	assert.ErrorIs(t, err, errors.ErrTypeMismatch)
}

func TestConvert_Text(t *testing.T) {
	s, err := Convert[string]([]byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, "hello", s)

	b, err := Convert[[]byte]("hi")
	require.NoError(t, err)
	assert.Equal(t, []byte("hi"), b)

	_, err = Convert[string](int64(1))
	assert.ErrorIs(t, err, errors.ErrTypeMismatch)
}

func TestConvert_Bool(t *testing.T) {
	b, err := Convert[bool](int64(1))
	require.NoError(t, err)
	assert.True(t, b)

	b, err = Convert[bool]("false")
	require.NoError(t, err)
	assert.False(t, b)

	_, err = Convert[bool](int64(2))
	assert.ErrorIs(t, err, errors.ErrTypeMismatch)
}

func TestConvert_TimeAndUUID(t *testing.T) {
	want := time.Date(2024, 5, 1, 8, 30, 0, 0, time.UTC)

	got, err := Convert[time.Time]("2024-05-01T08:30:00Z")
	require.NoError(t, err)
	assert.True(t, want.Equal(got))

	got, err = Convert[time.Time]([]byte("2024-05-01 08:30:00"))
	require.NoError(t, err)
	assert.True(t, want.Equal(got))

	_, err = Convert[time.Time]("yesterday")
	assert.ErrorIs(t, err, errors.ErrTypeMismatch)

	id := uuid.New()
	parsed, err := Convert[uuid.UUID](id.String())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)

	raw, err := Convert[uuid.UUID](id[:])
	require.NoError(t, err)
	assert.Equal(t, id, raw)
}

func TestConvert_Null(t *testing.T) {
	_, err := Convert[int64](nil)
	assert.ErrorIs(t, err, errors.ErrTypeMismatch)

	p, err := Convert[*int64](nil)
	require.NoError(t, err)
	assert.Nil(t, p)

	p, err = Convert[*int64](int64(9))
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, int64(9), *p)

	v, err := Convert[any](nil)
	require.NoError(t, err)
	assert.Nil(t, v)

	b, err := Convert[[]byte](nil)
	require.NoError(t, err)
	assert.Nil(t, b)
}

func TestConvert_UnsupportedTarget(t *testing.T) {
	type custom struct{ A int }
	_, err := Convert[custom](int64(1))
	assert.ErrorIs(t, err, errors.ErrTypeMismatch)
}

type (
	itemCount  int64
	itemStatus string
	ratio      float32
	flag       bool
	level      uint8
	blob       []byte
)

func TestConvert_NamedTypes(t *testing.T) {
	n, err := Convert[itemCount](int64(2))
	require.NoError(t, err)
	assert.Equal(t, itemCount(2), n)

	n, err = Convert[itemCount]([]byte("17"))
	require.NoError(t, err)
	assert.Equal(t, itemCount(17), n)

	s, err := Convert[itemStatus]("active")
	require.NoError(t, err)
	assert.Equal(t, itemStatus("active"), s)

	s, err = Convert[itemStatus]([]byte("closed"))
	require.NoError(t, err)
	assert.Equal(t, itemStatus("closed"), s)

	r, err := Convert[ratio](0.5)
	require.NoError(t, err)
	assert.Equal(t, ratio(0.5), r)

	f, err := Convert[flag](int64(1))
	require.NoError(t, err)
	assert.Equal(t, flag(true), f)

	l, err := Convert[level](int64(3))
	require.NoError(t, err)
	assert.Equal(t, level(3), l)

	b, err := Convert[blob]("raw")
	require.NoError(t, err)
	assert.Equal(t, blob("raw"), b)

	nb, err := Convert[blob](nil)
	require.NoError(t, err)
	assert.Nil(t, nb)
}

func TestConvert_NamedTypesStayLossless(t *testing.T) {
	_, err := Convert[level](int64(256))
	assert.ErrorIs(t, err, errors.ErrTypeMismatch)

	_, err = Convert[level](int64(-1))
	assert.ErrorIs(t, err, errors.ErrTypeMismatch)

	_, err = Convert[ratio](math.MaxFloat64)
	assert.ErrorIs(t, err, errors.ErrTypeMismatch)

	_, err = Convert[itemCount](1.5)
	assert.ErrorIs(t, err, errors.ErrTypeMismatch)

	_, err = Convert[itemStatus](int64(1))
	assert.ErrorIs(t, err, errors.ErrTypeMismatch)

	_, err = Convert[itemStatus](nil)
	assert.ErrorIs(t, err, errors.ErrTypeMismatch)
}
