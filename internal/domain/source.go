package domain

// Source is a fetch target, a Steam app id with its display name.
type Source struct {
	ID          int64  `db:"id"`
	Name        string `db:"name"`
	ShouldFetch bool   `db:"should_fetch"`
}
