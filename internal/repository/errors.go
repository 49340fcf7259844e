package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fathima-sithara/conversation-service/internal/domain"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	writeTimeout = 3 * time.Second
	readTimeout  = 5 * time.Second
)

// mapErr folds driver errors into the domain taxonomy.
func mapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	case mongo.IsNetworkError(err), mongo.IsTimeout(err), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %s: %v", domain.ErrNetworkFailure, op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
