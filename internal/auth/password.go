package auth

import "golang.org/x/crypto/bcrypt"

// Credentials are provisioned outside the service, so hashing only has to
// agree with whatever seeded the users table: plain bcrypt.

// HashPassword hashes a plaintext password. A cost below the bcrypt minimum
// falls back to the library default.
func HashPassword(password string, cost int) (string, error) {
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// ComparePassword checks a plaintext password against the stored hash.
func ComparePassword(hashed, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
}
