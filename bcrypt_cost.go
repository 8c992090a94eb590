//go:build !race

package auth

// defaultHashCost applies when the configured cost is zero
const defaultHashCost = 12

func passwordHashCost() int {
	return defaultHashCost
}
