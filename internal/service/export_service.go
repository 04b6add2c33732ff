package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/glebk/study-bot/internal/domain"
)

// ExportService produces admin data dumps
type ExportService struct {
	store domain.ExportRepository
	log   zerolog.Logger
}

// NewExportService creates a new ExportService
func NewExportService(store domain.ExportRepository, log zerolog.Logger) *ExportService {
	return &ExportService{
		store: store,
		log:   log.With().Str("component", "export").Logger(),
	}
}

// ExportJSON dumps the group's users, targets and day-offs as indented JSON.
// It also returns the number of exported records.
func (s *ExportService) ExportJSON(ctx context.Context, groupID int64) ([]byte, int, error) {
	export, err := s.store.Dump(ctx, groupID)
	if err != nil {
		return nil, 0, err
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return nil, 0, fmt.Errorf("failed to encode export: %w", err)
	}

	s.log.Info().Int64("group_id", groupID).Int("records", export.Records()).Int("bytes", len(data)).Msg("data exported")
	return data, export.Records(), nil
}
