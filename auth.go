// Copyright (C) 2025 Thinline Dynamic Solutions
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>

package main

import (
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"
)

const authTokenLifetime = 24 * time.Hour

// Auth validates the admin credential and issues short-lived session
// tokens for the API surface. The signing secret is generated per boot,
// so restarting the server invalidates outstanding tokens.
type Auth struct {
	secret       []byte
	passwordHash string
}

func NewAuth(passwordHash string) (*Auth, error) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("failed to generate auth secret: %v", err)
	}
	return &Auth{
		secret:       secret,
		passwordHash: passwordHash,
	}, nil
}

// HashPassword returns the bcrypt hash to store for a new admin
// password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %v", err)
	}
	return string(hash), nil
}

// Login checks the admin password and returns a signed session token.
func (auth *Auth) Login(password string) (string, error) {
	if auth.passwordHash == "" {
		return "", errors.New("no admin password configured")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(auth.passwordHash), []byte(password)); err != nil {
		return "", errors.New("invalid password")
	}

	claims := jwt.RegisteredClaims{
		Subject:   "admin",
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(authTokenLifetime)),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(auth.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %v", err)
	}
	return token, nil
}

// Validate checks a session token and returns an error when it is
// missing, malformed, expired or signed with another secret.
func (auth *Auth) Validate(tokenString string) error {
	if tokenString == "" {
		return errors.New("missing token")
	}

	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return auth.secret, nil
	})
	if err != nil {
		return fmt.Errorf("invalid token: %v", err)
	}
	if !token.Valid {
		return errors.New("invalid token")
	}
	return nil
}
