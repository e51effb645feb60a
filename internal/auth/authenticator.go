package auth

import "crypto/subtle"

// Authenticator issues access tokens for the single configured admin
// account. It holds no database connection: the account is config, not
// state, matching warnbridge's single-operator deployment model.
type Authenticator struct {
	username     string
	passwordHash string
	jwtSecret    string
	tokenTTL     int
}

// NewAuthenticator builds an Authenticator from the admin account and
// JWT settings loaded from configuration.
func NewAuthenticator(username, passwordHash, jwtSecret string, tokenTTLMinutes int) *Authenticator {
	return &Authenticator{
		username:     username,
		passwordHash: passwordHash,
		jwtSecret:    jwtSecret,
		tokenTTL:     tokenTTLMinutes,
	}
}

// Login verifies a username/password pair against the configured admin
// account and, on success, returns a signed access token.
func (a *Authenticator) Login(username, password string) (string, error) {
	// Constant-time username comparison avoids leaking account existence
	// via timing, even though there is only ever one account.
	if subtle.ConstantTimeCompare([]byte(username), []byte(a.username)) != 1 {
		return "", ErrInvalidCredentials
	}

	ok, err := VerifyPassword(password, a.passwordHash)
	if err != nil {
		return "", ErrInvalidCredentials
	}
	if !ok {
		return "", ErrInvalidCredentials
	}

	return GenerateAccessToken(a.username, a.jwtSecret, a.tokenTTL)
}

// Verify parses and validates an access token, returning the
// authenticated username.
func (a *Authenticator) Verify(token string) (string, error) {
	claims, err := ParseToken(token, a.jwtSecret)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}
