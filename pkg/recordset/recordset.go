// Package recordset provides the in-memory tabular representation passed
// between the stages of the export pipeline.
//
// A Record is an ordered mapping from field name to scalar value. Go maps
// do not preserve insertion order, so a Record is a slice of fields; the
// producers of records (the relational source, the staging store) both
// expose column order natively and that order is kept all the way to the
// serialized artifact.
//
// A RecordSet is an ordered sequence of Records together with the union of
// their field names in first-seen order. Records in one set share a common
// field set by convention, not by enforcement; the set is schema-less.
package recordset

// Field is a single named value within a Record.
type Field struct {
	Name  string
	Value interface{}
}

// Record is an ordered mapping from field name to value.
type Record []Field

// Get returns the value of the named field and whether it is present.
func (r Record) Get(name string) (interface{}, bool) {
	for _, f := range r {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// Set replaces the named field in place, or appends it if absent, and
// returns the updated record.
func (r Record) Set(name string, value interface{}) Record {
	for i, f := range r {
		if f.Name == name {
			r[i].Value = value
			return r
		}
	}
	return append(r, Field{Name: name, Value: value})
}

// Delete removes the named field if present and returns the updated record.
func (r Record) Delete(name string) Record {
	for i, f := range r {
		if f.Name == name {
			return append(r[:i], r[i+1:]...)
		}
	}
	return r
}

// Names returns the field names in record order.
func (r Record) Names() []string {
	names := make([]string, len(r))
	for i, f := range r {
		names[i] = f.Name
	}
	return names
}

// RecordSet is an ordered sequence of Records.
type RecordSet struct {
	columns []string
	seen    map[string]struct{}
	rows    []Record
}

// New creates an empty RecordSet.
func New() *RecordSet {
	return &RecordSet{
		seen: make(map[string]struct{}),
	}
}

// Append adds a record to the set. Field names not seen before are added
// to the column union, preserving first-seen order.
func (rs *RecordSet) Append(r Record) {
	for _, f := range r {
		if _, ok := rs.seen[f.Name]; !ok {
			rs.seen[f.Name] = struct{}{}
			rs.columns = append(rs.columns, f.Name)
		}
	}
	rs.rows = append(rs.rows, r)
}

// Columns returns the union of field names across all records, in
// first-seen order.
func (rs *RecordSet) Columns() []string {
	return rs.columns
}

// Rows returns the records in insertion order.
func (rs *RecordSet) Rows() []Record {
	return rs.rows
}

// Len returns the number of records in the set.
func (rs *RecordSet) Len() int {
	return len(rs.rows)
}

// Empty reports whether the set has no records.
func (rs *RecordSet) Empty() bool {
	return len(rs.rows) == 0
}
