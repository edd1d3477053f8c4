// Package store holds helpers shared by the Mongo and GORM repository implementations.
package store

import (
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"
)

// NewID returns a new 24 character hex identifier usable by every backend.
func NewID() string {
	return primitive.NewObjectID().Hex()
}

// IsDuplicateKey reports whether err is a unique constraint violation from either backend.
func IsDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if mongo.IsDuplicateKeyError(err) || errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// drivers that do not translate errors
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate entry") || strings.Contains(msg, "duplicate key")
}

// IsNoRows reports whether err means the lookup matched nothing.
func IsNoRows(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments) || errors.Is(err, gorm.ErrRecordNotFound)
}
