package engine

import "time"

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() int64 { return time.Now().Unix() }

// StaticAuthorizer grants admin authority to a fixed set of callers.
type StaticAuthorizer map[string]struct{}

// NewStaticAuthorizer builds an authorizer from a list of admin names.
func NewStaticAuthorizer(admins []string) StaticAuthorizer {
	a := make(StaticAuthorizer, len(admins))
	for _, admin := range admins {
		a[admin] = struct{}{}
	}
	return a
}

func (a StaticAuthorizer) IsAdmin(caller string) bool {
	_, ok := a[caller]
	return ok
}
