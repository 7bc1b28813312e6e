package application

import (
	"context"
	"fmt"
	"sync"

	"crystaltides/internal/models"
	"crystaltides/internal/repository"
	"crystaltides/pkg/sheets"

	"github.com/xuri/excelize/v2"
)

const spreadsheetURLFormat = "https://docs.google.com/spreadsheets/d/%s"

var rosterHeaders = []string{"Game ID", "Game Account", "Chat ID", "Chat Tag", "Web User", "Updated"}

// RosterService exports the linked identity table for admins.
type RosterService interface {
	ExportExcel(ctx context.Context) ([]byte, error)
	// SyncSheet overwrites the roster spreadsheet and returns its URL.
	SyncSheet(ctx context.Context) (string, error)
}

type RosterServiceImpl struct {
	identities repository.Identity
	client     sheets.Client
	ownerEmail string
	logger     Logger

	mu            sync.Mutex
	spreadsheetID string
}

func NewRosterServiceImpl(identities repository.Identity, client sheets.Client, spreadsheetID, ownerEmail string, logger Logger) *RosterServiceImpl {
	return &RosterServiceImpl{
		identities:    identities,
		client:        client,
		spreadsheetID: spreadsheetID,
		ownerEmail:    ownerEmail,
		logger:        logger,
	}
}

func (s *RosterServiceImpl) ExportExcel(ctx context.Context) ([]byte, error) {
	records, err := s.identities.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list identities: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := rosterSheetName
	if _, err := f.NewSheet(sheet); err != nil {
		return nil, err
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}

	for i, h := range rosterHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}

	for i, rec := range records {
		for col, v := range rosterRow(rec) {
			cell, _ := excelize.CoordinatesToCellName(col+1, i+2)
			f.SetCellValue(sheet, cell, v)
		}
	}

	f.SetColWidth(sheet, "A", "A", 38)
	f.SetColWidth(sheet, "B", "E", 20)
	f.SetColWidth(sheet, "F", "F", 22)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *RosterServiceImpl) SyncSheet(ctx context.Context) (string, error) {
	if s.client == nil {
		return "", fmt.Errorf("google sheets: %w", ErrNotConfigured)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.ensureSpreadsheet(ctx)
	if err != nil {
		return "", err
	}

	records, err := s.identities.ListAll(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to list identities: %w", err)
	}

	values := make([][]interface{}, 0, len(records)+1)
	header := make([]interface{}, len(rosterHeaders))
	for i, h := range rosterHeaders {
		header[i] = h
	}
	values = append(values, header)
	for _, rec := range records {
		values = append(values, rosterRow(rec))
	}

	if err := s.client.ReplaceValues(ctx, id, rosterSheetRange, values); err != nil {
		return "", fmt.Errorf("failed to update spreadsheet: %w", err)
	}

	s.logger.Info("Synced %d identities to spreadsheet %s", len(records), id)
	return fmt.Sprintf(spreadsheetURLFormat, id), nil
}

func (s *RosterServiceImpl) ensureSpreadsheet(ctx context.Context) (string, error) {
	if s.spreadsheetID != "" {
		return s.spreadsheetID, nil
	}

	id, _, err := s.client.CreateSpreadsheet(ctx, rosterSheetTitle)
	if err != nil {
		return "", fmt.Errorf("failed to create spreadsheet: %w", err)
	}
	s.logger.Info("Created roster spreadsheet %s", id)

	if s.ownerEmail != "" {
		if err := s.client.AddPermission(ctx, id, s.ownerEmail, sheetsWriterRole); err != nil {
			return "", fmt.Errorf("failed to add owner permission: %w", err)
		}
	}

	s.spreadsheetID = id
	return id, nil
}

func rosterRow(rec models.IdentityRecord) []interface{} {
	return []interface{}{
		rec.GameID,
		rec.GameAccountName,
		rec.ChatID,
		rec.ChatTag,
		rec.WebUserID,
		rec.UpdatedAt.UTC().Format("2006-01-02 15:04:05"),
	}
}
