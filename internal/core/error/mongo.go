package errx

import (
	"errors"
	"net/http"

	"go.mongodb.org/mongo-driver/mongo"
)

// WrapMongo maps MongoDB driver errors to the unified Error type.
func WrapMongo(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return New(err, http.StatusNotFound, MongoNotFoundMessage)
	case mongo.IsDuplicateKeyError(err):
		return New(err, http.StatusConflict, MongoDuplicateMessage)
	default:
		return New(err, http.StatusBadGateway, MongoErrorMessage)
	}
}
