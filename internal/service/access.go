package service

// AccessResult is the outcome of resolving an entity against a caller.
// It keeps "missing" and "exists but not owned" apart so the boundary
// can answer 404 vs 403 without leaking existence.
type AccessResult int

const (
	AccessSuccess AccessResult = iota
	AccessNotFound
	AccessForbidden
)

func (r AccessResult) String() string {
	switch r {
	case AccessSuccess:
		return "success"
	case AccessNotFound:
		return "not_found"
	case AccessForbidden:
		return "forbidden"
	}
	return "unknown"
}
