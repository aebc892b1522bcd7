package models

// Identity is the public, immutable view of an authenticated principal that
// gets embedded into signed credentials. It is supplied by callers and never
// constructed inside the token core.
type Identity struct {
	ID    int64
	Name  string
	Email string
}
