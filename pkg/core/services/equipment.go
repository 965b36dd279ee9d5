package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jakechorley/boat-hire/pkg/core/model"
	"github.com/jakechorley/boat-hire/pkg/db"
)

// AddEquipment registers a new boat or battery with the given name
func AddEquipment(ctx context.Context, store db.EquipmentStore, logger *zap.Logger, kind model.EquipmentKind, name string) (model.Equipment, error) {
	logger.Debug("Adding equipment", zap.String("kind", string(kind)), zap.String("name", name))

	equipment, err := model.NewEquipment(model.EquipmentParams{
		ID:   uuid.New().String(),
		Kind: kind,
		Name: name,
	})
	if err != nil {
		return model.Equipment{}, fmt.Errorf("invalid equipment: %w", err)
	}

	if err := store.CreateEquipment(ctx, equipment); err != nil {
		return model.Equipment{}, fmt.Errorf("failed to create equipment: %w", err)
	}

	logger.Info("Equipment added",
		zap.String("id", equipment.ID()),
		zap.String("kind", string(equipment.Kind())),
		zap.String("name", equipment.Name()))

	return equipment, nil
}

// CommentOnEquipment appends a maintenance note to the equipment's history
func CommentOnEquipment(ctx context.Context, store db.EquipmentStore, logger *zap.Logger, id string, text string) (model.Equipment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return model.Equipment{}, fmt.Errorf("comment text is required")
	}

	logger.Debug("Adding equipment comment", zap.String("id", id))

	if err := store.AddEquipmentComment(ctx, id, text); err != nil {
		return model.Equipment{}, fmt.Errorf("failed to add comment: %w", err)
	}

	equipment, err := store.GetEquipment(ctx, id)
	if err != nil {
		return model.Equipment{}, fmt.Errorf("failed to reload equipment: %w", err)
	}

	logger.Debug("Equipment comment added",
		zap.String("id", id),
		zap.Int("comment_count", len(equipment.Comments())))

	return equipment, nil
}

// ListEquipment returns all equipment of a kind ordered by name
func ListEquipment(ctx context.Context, store db.EquipmentStore, logger *zap.Logger, kind model.EquipmentKind) ([]model.Equipment, error) {
	if !kind.IsValid() {
		return nil, fmt.Errorf("%w: unknown equipment kind %q", model.ErrInvalidModel, kind)
	}

	logger.Debug("Listing equipment", zap.String("kind", string(kind)))

	equipment, err := store.ListEquipment(ctx, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to list equipment: %w", err)
	}

	logger.Debug("Found equipment", zap.Int("count", len(equipment)))
	return equipment, nil
}
