package bson

// Typed accessors for the materialized tree. Each getter distinguishes a
// missing key from a present key of the wrong type; errors.Is reports
// ErrNotPresent or ErrWrongType accordingly.

func lookup[T any](d *Document, key, want string) (T, error) {
	var zero T
	v, ok := d.Get(key)
	if !ok {
		return zero, &ValueAccessError{Key: key, Want: want, NotPresent: true}
	}
	t, ok := v.(T)
	if !ok {
		return zero, &ValueAccessError{Key: key, Want: want, Got: typeName(v)}
	}
	return t, nil
}

// GetDouble returns the double stored under key.
func (d *Document) GetDouble(key string) (float64, error) {
	return lookup[float64](d, key, "double")
}

// GetString returns the string stored under key.
func (d *Document) GetString(key string) (string, error) {
	return lookup[string](d, key, "string")
}

// GetDocument returns the embedded document stored under key.
func (d *Document) GetDocument(key string) (*Document, error) {
	return lookup[*Document](d, key, "document")
}

// GetArray returns the array stored under key.
func (d *Document) GetArray(key string) (*Array, error) {
	return lookup[*Array](d, key, "array")
}

// GetBinary returns the binary stored under key.
func (d *Document) GetBinary(key string) (Binary, error) {
	return lookup[Binary](d, key, "binary")
}

// GetObjectID returns the object id stored under key.
func (d *Document) GetObjectID(key string) (ObjectID, error) {
	return lookup[ObjectID](d, key, "objectId")
}

// GetBool returns the boolean stored under key.
func (d *Document) GetBool(key string) (bool, error) {
	return lookup[bool](d, key, "boolean")
}

// GetDateTime returns the datetime stored under key.
func (d *Document) GetDateTime(key string) (DateTime, error) {
	return lookup[DateTime](d, key, "dateTime")
}

// GetRegex returns the regex stored under key.
func (d *Document) GetRegex(key string) (Regex, error) {
	return lookup[Regex](d, key, "regex")
}

// GetInt32 returns the int32 stored under key.
func (d *Document) GetInt32(key string) (int32, error) {
	return lookup[int32](d, key, "int32")
}

// GetInt64 returns the int64 stored under key.
func (d *Document) GetInt64(key string) (int64, error) {
	return lookup[int64](d, key, "int64")
}

// GetTimestamp returns the timestamp stored under key.
func (d *Document) GetTimestamp(key string) (Timestamp, error) {
	return lookup[Timestamp](d, key, "timestamp")
}

// GetDecimal128 returns the decimal128 stored under key.
func (d *Document) GetDecimal128(key string) (Decimal128, error) {
	return lookup[Decimal128](d, key, "decimal128")
}

// IsNull reports whether key is present and holds null. A missing key is
// not null.
func (d *Document) IsNull(key string) bool {
	v, ok := d.Get(key)
	return ok && v == nil
}
