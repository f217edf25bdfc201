package command

import (
	"database/sql"
	stdErrors "errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"commq/data/db"
	"commq/data/db/dialect"
	"commq/errors"
)

func TestParameters_AddKeepsOneEntryPerName(t *testing.T) {
	p := newParameters(dialect.New("sqlite"))
	p.Add("@Name1", db.ParamString).Value = "Test1"
	p.AddSized("@Name2", db.ParamString, 10).Value = "Test2"
	p.Add("@Id", db.ParamInt32)
	p.AddValue("@Flag", db.ParamBool, true)

	require.NoError(t, p.Err())
	require.Equal(t, 4, p.Len())

	all := p.All()
	assert.Equal(t, "@Name1", all[0].Name)
	assert.Equal(t, db.ParamString, all[0].Type)
	assert.Equal(t, 0, all[0].Size)
	assert.Equal(t, "@Name2", all[1].Name)
	assert.Equal(t, 10, all[1].Size)
	assert.Equal(t, db.ParamInt32, all[2].Type)
	assert.Equal(t, true, all[3].Value)

	got, ok := p.Get("name2")
	require.True(t, ok)
	assert.Same(t, all[1], got)
	_, ok = p.Get("missing")
	assert.False(t, ok)
}

func TestParameters_UnsupportedTypeIsSticky(t *testing.T) {
	p := newParameters(dialect.New("postgres"))
	p.Add("@ok", db.ParamInt64).Value = int64(1)
	p.Add("@bad", db.ParamType(99))

	assert.ErrorIs(t, p.Err(), errors.ErrUnsupported)
	_, err := p.bind()
	assert.ErrorIs(t, err, errors.ErrUnsupported)
	assert.Equal(t, 2, p.Len(), "the parameter is still appended")
}

func TestParameter_DriverValue(t *testing.T) {
	id := uuid.New()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	var nilInt *int64
	seven := int64(7)

	tests := []struct {
		name  string
		param Parameter
		want  any
	}{
		{"string", Parameter{Type: db.ParamString, Value: "abc"}, "abc"},
		{"string within size", Parameter{Type: db.ParamString, Size: 3, Value: "日本語"}, "日本語"},
		{"int16 widened", Parameter{Type: db.ParamInt16, Value: int16(-5)}, int64(-5)},
		{"int32 from int", Parameter{Type: db.ParamInt32, Value: 42}, int64(42)},
		{"byte", Parameter{Type: db.ParamByte, Value: uint8(255)}, int64(255)},
		{"bool", Parameter{Type: db.ParamBool, Value: false}, false},
		{"float32", Parameter{Type: db.ParamFloat32, Value: float32(1.5)}, float64(1.5)},
		{"float64 from int", Parameter{Type: db.ParamFloat64, Value: 3}, float64(3)},
		{"decimal text", Parameter{Type: db.ParamDecimal, Value: "12.340"}, "12.340"},
		{"datetime", Parameter{Type: db.ParamDateTime, Value: now}, now},
		{"binary", Parameter{Type: db.ParamBinary, Size: 4, Value: []byte{1, 2}}, []byte{1, 2}},
		{"guid from text", Parameter{Type: db.ParamGuid, Value: "6BA7B810-9DAD-11D1-80B4-00C04FD430C8"}, "6ba7b810-9dad-11d1-80b4-00c04fd430c8"},
		{"nil", Parameter{Type: db.ParamString, Value: nil}, nil},
		{"nil pointer", Parameter{Type: db.ParamInt64, Value: nilInt}, nil},
		{"pointer", Parameter{Type: db.ParamInt64, Value: &seven}, int64(7)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.param.driverValue()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	// driver.Valuer 原样交给驱动
	valuer := Parameter{Type: db.ParamGuid, Value: id}
	got, err := valuer.driverValue()
	require.NoError(t, err)
	assert.Equal(t, id, got)

	ns := Parameter{Type: db.ParamString, Value: sql.NullString{}}
	got, err = ns.driverValue()
	require.NoError(t, err)
	assert.Equal(t, sql.NullString{}, got)
}

func TestParameter_DriverValueMismatch(t *testing.T) {
	tests := []struct {
		name  string
		param Parameter
	}{
		{"string too long", Parameter{Name: "@n", Type: db.ParamString, Size: 2, Value: "abc"}},
		{"binary too long", Parameter{Name: "@b", Type: db.ParamBinary, Size: 1, Value: []byte{1, 2}}},
		{"int16 overflow", Parameter{Name: "@i", Type: db.ParamInt16, Value: 40000}},
		{"byte negative", Parameter{Name: "@b", Type: db.ParamByte, Value: -1}},
		{"int from string", Parameter{Name: "@i", Type: db.ParamInt32, Value: "12"}},
		{"bool from int", Parameter{Name: "@f", Type: db.ParamBool, Value: 1}},
		{"bad decimal", Parameter{Name: "@d", Type: db.ParamDecimal, Value: "12,5"}},
		{"bad guid", Parameter{Name: "@g", Type: db.ParamGuid, Value: "not-a-guid"}},
		{"datetime from string", Parameter{Name: "@t", Type: db.ParamDateTime, Value: "2024-01-01"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.param.driverValue()
			assert.ErrorIs(t, err, errors.ErrTypeMismatch)
			assert.False(t, errors.IsMisuse(err))

			var appErr *errors.AppError
			require.True(t, stdErrors.As(err, &appErr))
			assert.Equal(t, tt.param.Name, appErr.Details()["parameter"])
		})
	}
}
