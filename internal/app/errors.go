package service

import "errors"

var (
	// ErrNoUsersFile is returned by Open when no store path is configured.
	ErrNoUsersFile = errors.New("service: users file not configured")
	// ErrStructureCheck is returned by Open when the store cannot be read or rewritten.
	ErrStructureCheck = errors.New("service: structure check failed")
)
