package service

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/alan-neves/fechaduras/internal/dto"
	"github.com/alan-neves/fechaduras/internal/model"
	"github.com/alan-neves/fechaduras/internal/repository"
)

// AccessLogService pulls access events from a lock's onboard log into
// Postgres and serves them back, paginated or as a spreadsheet.
type AccessLogService interface {
	// Pull fetches device log rows newer than the last stored one. Repeated
	// pulls are idempotent: rows are deduplicated by device log id.
	Pull(ctx context.Context, lockID uint, caller Caller) (*dto.PullLogsResponse, error)
	List(ctx context.Context, lockID uint, req *dto.AccessLogListRequest, caller Caller) ([]dto.AccessLogResponse, int64, error)
	// Export renders all stored logs of one lock as an .xlsx workbook.
	Export(ctx context.Context, lockID uint, caller Caller) (*bytes.Buffer, string, error)
}

type accessLogService struct {
	repo    *repository.Repository
	devices DeviceClientFactory
	logger  *zap.Logger
}

// NewAccessLogService creates an AccessLogService instance.
func NewAccessLogService(repo *repository.Repository, devices DeviceClientFactory, logger *zap.Logger) AccessLogService {
	return &accessLogService{repo: repo, devices: devices, logger: logger}
}

func (s *accessLogService) Pull(ctx context.Context, lockID uint, caller Caller) (*dto.PullLogsResponse, error) {
	lock, err := authorizeLock(ctx, s.repo, lockID, caller)
	if err != nil {
		return nil, err
	}

	afterID, err := s.repo.AccessLog.MaxDeviceLogID(ctx, lockID)
	if err != nil {
		return nil, err
	}

	deviceLogs, err := s.devices.ForLock(lock).LoadAccessLogs(ctx, afterID)
	if err != nil {
		s.logger.Error("pulling access logs failed", zap.Uint("lock_id", lockID), zap.Error(err))
		return nil, err
	}

	rows := make([]model.AccessLog, 0, len(deviceLogs))
	for _, l := range deviceLogs {
		rows = append(rows, model.AccessLog{
			LockID:       lockID,
			DeviceLogID:  l.ID,
			DeviceUserID: l.UserID,
			Event:        l.Event,
			LoggedAt:     l.Time,
		})
	}

	if err := s.repo.AccessLog.UpsertBatch(ctx, rows); err != nil {
		s.logger.Error("storing access logs failed", zap.Uint("lock_id", lockID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("access logs pulled",
		zap.Uint("lock_id", lockID), zap.Int("rows", len(rows)))

	return &dto.PullLogsResponse{Pulled: len(rows)}, nil
}

func (s *accessLogService) List(ctx context.Context, lockID uint, req *dto.AccessLogListRequest, caller Caller) ([]dto.AccessLogResponse, int64, error) {
	if _, err := authorizeLock(ctx, s.repo, lockID, caller); err != nil {
		return nil, 0, err
	}

	page := req.Page
	if page < 1 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize < 1 {
		pageSize = 50
	}

	logs, total, err := s.repo.AccessLog.ListByLock(ctx, lockID, page, pageSize)
	if err != nil {
		s.logger.Error("listing access logs failed", zap.Uint("lock_id", lockID), zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.AccessLogResponse, 0, len(logs))
	for _, l := range logs {
		result = append(result, dto.AccessLogResponse{
			ID:           l.ID,
			DeviceLogID:  l.DeviceLogID,
			DeviceUserID: l.DeviceUserID,
			Event:        l.Event,
			LoggedAt:     l.LoggedAt.Format(time.RFC3339),
		})
	}
	return result, total, nil
}

func (s *accessLogService) Export(ctx context.Context, lockID uint, caller Caller) (*bytes.Buffer, string, error) {
	lock, err := authorizeLock(ctx, s.repo, lockID, caller)
	if err != nil {
		return nil, "", err
	}

	const pageSize = 500
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Acessos"
	f.SetSheetName(f.GetSheetName(0), sheet)

	headers := []string{"Log ID", "Usuário", "Evento", "Data/Hora"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for page := 1; ; page++ {
		logs, _, err := s.repo.AccessLog.ListByLock(ctx, lockID, page, pageSize)
		if err != nil {
			return nil, "", err
		}
		if len(logs) == 0 {
			break
		}
		for _, l := range logs {
			f.SetCellValue(sheet, "A"+strconv.Itoa(row), l.DeviceLogID)
			f.SetCellValue(sheet, "B"+strconv.Itoa(row), l.DeviceUserID)
			f.SetCellValue(sheet, "C"+strconv.Itoa(row), l.Event)
			f.SetCellValue(sheet, "D"+strconv.Itoa(row), l.LoggedAt.Format("02/01/2006 15:04:05"))
			row++
		}
		if len(logs) < pageSize {
			break
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		s.logger.Error("rendering xlsx failed", zap.Uint("lock_id", lockID), zap.Error(err))
		return nil, "", err
	}

	filename := fmt.Sprintf("acessos-%s-%s.xlsx", sanitizeFilename(lock.Location), time.Now().Format("2006-01-02"))
	return buf, filename, nil
}

// sanitizeFilename keeps the location readable inside a download filename.
func sanitizeFilename(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			out = append(out, r)
		case r == ' ' || r == '-' || r == '_':
			out = append(out, '-')
		}
	}
	if len(out) == 0 {
		return "fechadura"
	}
	return string(out)
}
