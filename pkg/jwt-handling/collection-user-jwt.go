package jwthandling

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Information a token enocodes. The subject is the actor recorded on submissions and expressions.
type CollectionUserClaims struct {
	InstanceID         string `json:"instance_id,omitempty"`
	CanEditCollections bool   `json:"can_edit_collections,omitempty"`
	jwt.RegisteredClaims
}

func GenerateNewCollectionUserToken(expiresIn time.Duration, actor string, instanceID string, canEditCollections bool, secretKey string) (tokenString string, err error) {
	claims := CollectionUserClaims{
		instanceID,
		canEditCollections,
		jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Subject:   actor,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err = token.SignedString([]byte(secretKey))
	return
}

func ValidateCollectionUserToken(tokenString string, secretKey string) (claims *CollectionUserClaims, valid bool, err error) {
	token, err := jwt.ParseWithClaims(tokenString, &CollectionUserClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secretKey), nil
	})
	if token == nil {
		return
	}
	claims, valid = token.Claims.(*CollectionUserClaims)
	valid = valid && token.Valid && claims.Subject != ""
	return
}
