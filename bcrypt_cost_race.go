//go:build race

package auth

import "golang.org/x/crypto/bcrypt"

// race builds hash with the library default to keep the store tests fast
const defaultHashCost = bcrypt.DefaultCost

func passwordHashCost() int {
	return defaultHashCost
}
