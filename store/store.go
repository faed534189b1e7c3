package store

import (
	"github.com/chitoku-k/hoarder-sub005/internal/profile"
)

// Store provides database access to all raw objects.
// The closure table is never cached; every read goes to the driver.
type Store struct {
	profile *profile.Profile
	driver  Driver
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	return &Store{
		driver:  driver,
		profile: profile,
	}
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

func (s *Store) Close() error {
	return s.driver.Close()
}
