package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/jakechorley/boat-hire/pkg/core/model"
	"github.com/jakechorley/boat-hire/pkg/db"
)

var validate = validator.New()

// SetUserEmail records the address booking outcome emails are sent to
func SetUserEmail(ctx context.Context, users db.UserDirectory, logger *zap.Logger, userID, email string) error {
	userID = strings.TrimSpace(userID)
	email = strings.TrimSpace(email)

	if userID == "" {
		return fmt.Errorf("%w: user id is required", model.ErrInvalidModel)
	}
	if err := validate.Var(email, "required,email"); err != nil {
		return fmt.Errorf("%w: invalid email %q", model.ErrInvalidModel, email)
	}

	logger.Debug("Storing user email", zap.String("user_id", userID))
	if err := users.UpsertUser(ctx, userID, email); err != nil {
		return fmt.Errorf("failed to store email for user %s: %w", userID, err)
	}
	return nil
}
