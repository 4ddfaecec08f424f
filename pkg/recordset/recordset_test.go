package recordset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordGetSet(t *testing.T) {
	r := Record{{Name: "id", Value: 1}, {Name: "name", Value: "A"}}

	v, ok := r.Get("name")
	require.True(t, ok)
	assert.Equal(t, "A", v)

	_, ok = r.Get("missing")
	assert.False(t, ok)

	r = r.Set("name", "B")
	v, _ = r.Get("name")
	assert.Equal(t, "B", v)
	assert.Equal(t, []string{"id", "name"}, r.Names())

	r = r.Set("extra", true)
	assert.Equal(t, []string{"id", "name", "extra"}, r.Names())
}

func TestRecordDelete(t *testing.T) {
	r := Record{{Name: "_id", Value: "abc"}, {Name: "id", Value: 1}}

	r = r.Delete("_id")
	assert.Equal(t, []string{"id"}, r.Names())

	// Deleting an absent field is a no-op.
	r = r.Delete("_id")
	assert.Equal(t, []string{"id"}, r.Names())
}

func TestRecordSetColumnsFirstSeenOrder(t *testing.T) {
	rs := New()
	rs.Append(Record{{Name: "id", Value: 1}, {Name: "name", Value: "A"}})
	rs.Append(Record{{Name: "id", Value: 2}, {Name: "signup", Value: nil}})
	rs.Append(Record{{Name: "email", Value: "c@example.com"}, {Name: "id", Value: 3}})

	assert.Equal(t, []string{"id", "name", "signup", "email"}, rs.Columns())
	assert.Equal(t, 3, rs.Len())
	assert.False(t, rs.Empty())
}

func TestRecordSetEmpty(t *testing.T) {
	rs := New()

	assert.True(t, rs.Empty())
	assert.Zero(t, rs.Len())
	assert.Empty(t, rs.Columns())
}
