package rooms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/MarcoPoloResearchLab/uibuilder/backend/internal/canvas"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	errMissingDatabase = errors.New("database handle is required")
	errMissingRoomCode = errors.New("room code is required")
	noOpLogger         = zap.NewNop()
)

type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

func (e *ServiceError) Code() string {
	return e.code
}

const (
	opServiceNew = "rooms.service.new"
	opLoadPages  = "rooms.load_pages"
	opSavePages  = "rooms.save_pages"
	opListRooms  = "rooms.list_rooms"
)

func newServiceError(operation, reason string, cause error) error {
	code := fmt.Sprintf("%s.%s", operation, reason)
	return &ServiceError{code: code, err: cause}
}

type ServiceConfig struct {
	Database *gorm.DB
	Clock    func() time.Time
	Logger   *zap.Logger
}

// Service persists room snapshots. It satisfies realtime.SnapshotStore.
type Service struct {
	db     *gorm.DB
	clock  func() time.Time
	logger *zap.Logger
}

func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, newServiceError(opServiceNew, "missing_database", errMissingDatabase)
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}

	return &Service{
		db:     cfg.Database,
		clock:  clock,
		logger: logger,
	}, nil
}

// LoadPages returns the stored pages of a room in order. Unknown rooms yield no pages.
func (s *Service) LoadPages(ctx context.Context, code canvas.RoomCode) ([]*canvas.Page, error) {
	if code == "" {
		return nil, newServiceError(opLoadPages, "missing_room_code", errMissingRoomCode)
	}
	var records []PageRecord
	err := s.db.WithContext(ctx).
		Where("room_code = ?", code.String()).
		Order("position ASC").
		Find(&records).Error
	if err != nil {
		s.logError(opLoadPages, "select_failed", err, zap.String("room_code", code.String()))
		return nil, newServiceError(opLoadPages, "select_failed", err)
	}

	pages := make([]*canvas.Page, 0, len(records))
	for _, record := range records {
		page, err := decodePage(record)
		if err != nil {
			s.logError(opLoadPages, "decode_failed", err,
				zap.String("room_code", code.String()),
				zap.String("page_id", record.PageID))
			return nil, newServiceError(opLoadPages, "decode_failed", err)
		}
		pages = append(pages, page)
	}
	return pages, nil
}

// SavePages replaces the stored pages of a room with the given ordered list.
func (s *Service) SavePages(ctx context.Context, code canvas.RoomCode, pages []*canvas.Page) error {
	if code == "" {
		return newServiceError(opSavePages, "missing_room_code", errMissingRoomCode)
	}
	updatedAt := s.clock().UTC().Unix()
	records := make([]PageRecord, 0, len(pages))
	for position, page := range pages {
		record, err := encodePage(code, position, page, updatedAt)
		if err != nil {
			s.logError(opSavePages, "encode_failed", err,
				zap.String("room_code", code.String()),
				zap.String("page_id", page.ID.String()))
			return newServiceError(opSavePages, "encode_failed", err)
		}
		records = append(records, record)
	}

	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("room_code = ?", code.String()).Delete(&PageRecord{}).Error; err != nil {
			return newServiceError(opSavePages, "delete_failed", err)
		}
		if len(records) == 0 {
			return nil
		}
		if err := tx.Create(&records).Error; err != nil {
			return newServiceError(opSavePages, "insert_failed", err)
		}
		return nil
	})
	if txErr != nil {
		var serviceErr *ServiceError
		if errors.As(txErr, &serviceErr) {
			s.logError(opSavePages, "transaction_failed", serviceErr, zap.String("room_code", code.String()))
			return txErr
		}
		s.logError(opSavePages, "transaction_failed", txErr, zap.String("room_code", code.String()))
		return newServiceError(opSavePages, "transaction_failed", txErr)
	}
	return nil
}

// ListRooms returns the codes of every room with stored pages.
func (s *Service) ListRooms(ctx context.Context) ([]canvas.RoomCode, error) {
	var codes []string
	err := s.db.WithContext(ctx).
		Model(&PageRecord{}).
		Distinct("room_code").
		Order("room_code ASC").
		Pluck("room_code", &codes).Error
	if err != nil {
		s.logError(opListRooms, "select_failed", err)
		return nil, newServiceError(opListRooms, "select_failed", err)
	}
	rooms := make([]canvas.RoomCode, 0, len(codes))
	for _, code := range codes {
		rooms = append(rooms, canvas.RoomCode(code))
	}
	return rooms, nil
}

func encodePage(code canvas.RoomCode, position int, page *canvas.Page, updatedAt int64) (PageRecord, error) {
	components := make([]canvas.ComponentWire, 0, len(page.Components))
	for _, component := range page.Components {
		components = append(components, component.ToWire())
	}
	payload, err := json.Marshal(components)
	if err != nil {
		return PageRecord{}, err
	}
	return PageRecord{
		RoomCode:         code.String(),
		PageID:           page.ID.String(),
		Position:         position,
		Name:             page.Name,
		ComponentsJSON:   string(payload),
		UpdatedAtSeconds: updatedAt,
	}, nil
}

func decodePage(record PageRecord) (*canvas.Page, error) {
	var components []canvas.ComponentWire
	if err := json.Unmarshal([]byte(record.ComponentsJSON), &components); err != nil {
		return nil, err
	}
	return canvas.PageFromWire(canvas.PageWire{
		ID:         record.PageID,
		Name:       record.Name,
		Components: components,
	})
}

func (s *Service) loggerOrDefault() *zap.Logger {
	if s == nil || s.logger == nil {
		return noOpLogger
	}
	return s.logger
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.loggerOrDefault().Error("rooms service error", attrs...)
}
