package model

// Profile is a directory entry. Username is unique in the store.
type Profile struct {
	ID              int64  `json:"id"`
	Username        string `json:"username"`
	FullName        string `json:"name"`
	ProfilePhotoURL string `json:"profile_photo_url"`
}

// LookupStatus tags a LookupResult.
type LookupStatus int

// Allowed LookupStatus values.
const (
	LookupFound LookupStatus = iota
	LookupNotFound
	LookupUnconfigured
	LookupStoreError
)

func (s LookupStatus) String() string {
	switch s {
	case LookupFound:
		return "found"
	case LookupNotFound:
		return "not_found"
	case LookupUnconfigured:
		return "unconfigured"
	case LookupStoreError:
		return "store_error"
	}
	return "unknown"
}

// LookupResult is the outcome of a profile lookup. Profile is set for
// LookupFound; Err carries the cause for LookupUnconfigured and LookupStoreError.
type LookupResult struct {
	Status  LookupStatus
	Profile Profile
	Err     error
}

// Found wraps a matched profile.
func Found(p Profile) LookupResult { return LookupResult{Status: LookupFound, Profile: p} }

// NotFound reports a valid query with no matching row.
func NotFound() LookupResult { return LookupResult{Status: LookupNotFound} }

// Unconfigured reports that no pool could be obtained.
func Unconfigured(err error) LookupResult { return LookupResult{Status: LookupUnconfigured, Err: err} }

// StoreError reports a failure while talking to the store.
func StoreError(err error) LookupResult { return LookupResult{Status: LookupStoreError, Err: err} }
