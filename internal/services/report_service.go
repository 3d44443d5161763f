package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/roadwatch-kerala/backend/internal/dto"
	"github.com/roadwatch-kerala/backend/internal/metrics"
	"github.com/roadwatch-kerala/backend/internal/models"
	"github.com/roadwatch-kerala/backend/internal/plate"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReportService runs the submission pipeline (validate, duplicate guard,
// adjudicate, persist) and serves the read side of the report store.
type ReportService struct {
	db        *gorm.DB
	plates    *plate.Validator
	moderator Adjudicator
	validate  *validator.Validate
	window    time.Duration
	limit     int
	metrics   *metrics.Metrics
	now       func() time.Time
}

func NewReportService(db *gorm.DB, plates *plate.Validator, moderator Adjudicator, window time.Duration, limit int, m *metrics.Metrics) *ReportService {
	v := validator.New()
	return &ReportService{
		db:        db,
		plates:    plates,
		moderator: moderator,
		validate:  v,
		window:    window,
		limit:     limit,
		metrics:   m,
		now:       time.Now,
	}
}

// Submit runs the whole pipeline for one report. claims is nil for anonymous
// callers, who are identified by remoteIP. The returned report carries its
// terminal status and verdict; a rejected verdict is a result, not an error.
func (s *ReportService) Submit(ctx context.Context, claims *IdentityClaims, remoteIP string, req *dto.SubmitReportRequest) (*models.Report, error) {
	report, err := s.submit(ctx, claims, remoteIP, req)
	s.metrics.SubmissionsTotal.WithLabelValues(submitOutcome(report, err)).Inc()
	return report, err
}

func (s *ReportService) submit(ctx context.Context, claims *IdentityClaims, remoteIP string, req *dto.SubmitReportRequest) (*models.Report, error) {
	if err := s.validateRequest(req); err != nil {
		return nil, err
	}

	plateNumber, ok := s.plates.Normalize(req.PlateNumber)
	if !ok {
		return nil, &ValidationError{
			Field:   "plateNumber",
			Message: fmt.Sprintf("Invalid %s plate number format", s.plates.Region()),
		}
	}

	// Resolve identity and gate on ban status before anything else runs.
	var user *models.User
	identityKey := remoteIP
	if claims != nil {
		identityKey = claims.SubjectID
		existing, err := s.findByFirebaseUID(s.db, claims.SubjectID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			if existing.IsBanned {
				return nil, &BanError{Reason: banReason(existing)}
			}
			user = existing
		}
	}

	// Cheap duplicate pre-check so obvious repeats never cost an AI call.
	// The authoritative count runs again inside the transaction. A verified
	// identity with no account yet has no prior reports to count.
	if user != nil || claims == nil {
		count, err := s.countRecent(s.db, plateNumber, user, remoteIP)
		if err != nil {
			return nil, err
		}
		if count >= int64(s.limit) {
			return nil, ErrDuplicateReport
		}
	}

	// Adjudicate before opening the transaction: the external call is the
	// only slow operation and must not hold a DB transaction open.
	verdict := s.moderator.Adjudicate(ctx, AdjudicateInput{
		PlateNumber: plateNumber,
		Violations:  req.Violations,
		Location:    req.Location,
		Description: deref(req.Description),
		ReporterRef: reporterRef(user, claims, remoteIP),
	})

	report := &models.Report{
		PlateNumber: plateNumber,
		Violations:  datatypes.JSONSlice[string](req.Violations),
		Location:    req.Location,
		Description: req.Description,
		PhotoURL:    req.PhotoURL,
	}
	report.SetModeration(verdict)

	err := s.db.Transaction(func(tx *gorm.DB) error {
		// Serialize concurrent submissions for the same identity and plate
		// so the count-and-insert below is atomic.
		lockKey := identityKey + "|" + plateNumber
		if err := tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", lockKey).Error; err != nil {
			return fmt.Errorf("failed to take submission lock: %w", err)
		}

		txUser := user
		if claims != nil {
			u, err := s.lockOrCreateUser(tx, claims)
			if err != nil {
				return err
			}
			if u.IsBanned {
				return &BanError{Reason: banReason(u)}
			}
			txUser = u
		}

		count, err := s.countRecent(tx, plateNumber, txUser, remoteIP)
		if err != nil {
			return err
		}
		if count >= int64(s.limit) {
			return ErrDuplicateReport
		}

		if txUser != nil {
			report.UserID = &txUser.ID
		} else {
			report.ReporterIP = &remoteIP
		}

		if err := tx.Create(report).Error; err != nil {
			return fmt.Errorf("failed to create report: %w", err)
		}

		if txUser != nil {
			txUser.ApplyOutcome(verdict.Approved)
			if err := tx.Save(txUser).Error; err != nil {
				return fmt.Errorf("failed to update reporter account: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

func (s *ReportService) validateRequest(req *dto.SubmitReportRequest) error {
	err := s.validate.Struct(req)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		field := jsonFieldName(fieldErrs[0].Field())
		return &ValidationError{
			Field:   field,
			Message: "Missing required field: " + field,
		}
	}
	return &ValidationError{Field: "", Message: "Invalid request"}
}

func (s *ReportService) findByFirebaseUID(db *gorm.DB, uid string) (*models.User, error) {
	var user models.User
	err := db.Where("firebase_uid = ?", uid).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return &user, nil
}

// lockOrCreateUser loads the account row FOR UPDATE so concurrent
// submissions cannot lose counter updates, creating the account on first
// sight of a verified identity. The insert only becomes durable if the
// surrounding transaction commits.
func (s *ReportService) lockOrCreateUser(tx *gorm.DB, claims *IdentityClaims) (*models.User, error) {
	var user models.User
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("firebase_uid = ?", claims.SubjectID).
		First(&user).Error
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to lock user: %w", err)
	}

	user = newUserFromClaims(claims)
	if err := tx.Create(&user).Error; err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return &user, nil
}

// countRecent is the duplicate guard: prior reports for the same plate and
// identity inside the rolling window, evaluated at submission time.
func (s *ReportService) countRecent(db *gorm.DB, plateNumber string, user *models.User, remoteIP string) (int64, error) {
	cutoff := s.now().UTC().Add(-s.window)
	query := db.Model(&models.Report{}).
		Where("plate_number = ? AND created_at >= ?", plateNumber, cutoff)
	if user != nil {
		query = query.Where("user_id = ?", user.ID)
	} else {
		query = query.Where("reporter_ip = ?", remoteIP)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count recent reports: %w", err)
	}
	return count, nil
}

// ListApproved returns approved reports newest first, with the total count
// for pagination.
func (s *ReportService) ListApproved(limit, offset int) ([]models.Report, int64, error) {
	var total int64
	if err := s.db.Model(&models.Report{}).Where("status = ?", models.StatusApproved).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count reports: %w", err)
	}

	var reports []models.Report
	err := s.db.Where("status = ?", models.StatusApproved).
		Order("created_at DESC").Limit(limit).Offset(offset).
		Find(&reports).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list reports: %w", err)
	}
	return reports, total, nil
}

// ListByPlate returns the approved reports for one plate (case-insensitive)
// with a violation-frequency histogram and a linear-decay safety score.
func (s *ReportService) ListByPlate(rawPlate string) (*dto.PlateReportsResponse, error) {
	plateNumber := strings.ToUpper(strings.TrimSpace(rawPlate))

	var reports []models.Report
	err := s.db.Where("plate_number = ? AND status = ?", plateNumber, models.StatusApproved).
		Order("created_at DESC").
		Find(&reports).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list reports by plate: %w", err)
	}

	breakdown := make(map[string]int)
	for _, r := range reports {
		for _, violation := range r.Violations {
			breakdown[violation]++
		}
	}

	return &dto.PlateReportsResponse{
		PlateNumber:        plateNumber,
		TotalReports:       len(reports),
		Reports:            reports,
		ViolationBreakdown: breakdown,
		SafetyScore:        max(0, 100-10*len(reports)),
	}, nil
}

// ListByUser returns one reporter's full history, newest first.
func (s *ReportService) ListByUser(userID uuid.UUID) ([]models.Report, error) {
	var reports []models.Report
	err := s.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&reports).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list user reports: %w", err)
	}
	return reports, nil
}

// Stats aggregates overall totals, the approval rate and today's volume
// (UTC day boundary).
func (s *ReportService) Stats() (*dto.StatsResponse, error) {
	stats := &dto.StatsResponse{}

	if err := s.db.Model(&models.Report{}).Count(&stats.Total).Error; err != nil {
		return nil, fmt.Errorf("failed to count reports: %w", err)
	}
	if err := s.db.Model(&models.Report{}).Where("status = ?", models.StatusApproved).Count(&stats.Approved).Error; err != nil {
		return nil, fmt.Errorf("failed to count approved reports: %w", err)
	}
	if err := s.db.Model(&models.Report{}).Where("status = ?", models.StatusRejected).Count(&stats.Rejected).Error; err != nil {
		return nil, fmt.Errorf("failed to count rejected reports: %w", err)
	}

	todayStart := s.now().UTC().Truncate(24 * time.Hour)
	if err := s.db.Model(&models.Report{}).Where("created_at >= ?", todayStart).Count(&stats.Today).Error; err != nil {
		return nil, fmt.Errorf("failed to count today's reports: %w", err)
	}

	if stats.Total > 0 {
		stats.ApprovalRate = float64(stats.Approved) / float64(stats.Total) * 100
	}
	return stats, nil
}

func submitOutcome(report *models.Report, err error) string {
	switch {
	case err == nil && report.Status == models.StatusApproved:
		return "approved"
	case err == nil:
		return "rejected"
	case errors.Is(err, ErrDuplicateReport):
		return "duplicate"
	default:
		var vErr *ValidationError
		var bErr *BanError
		if errors.As(err, &vErr) {
			return "validation_error"
		}
		if errors.As(err, &bErr) {
			return "banned"
		}
		return "error"
	}
}

func reporterRef(user *models.User, claims *IdentityClaims, remoteIP string) string {
	if user != nil {
		return user.Email
	}
	if claims != nil {
		return claims.Email
	}
	return remoteIP
}

func banReason(u *models.User) string {
	if u.BanReason != nil {
		return *u.BanReason
	}
	return "Account suspended"
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// jsonFieldName maps DTO struct field names to their wire spelling.
func jsonFieldName(field string) string {
	switch field {
	case "PlateNumber":
		return "plateNumber"
	case "Violations":
		return "violations"
	case "Location":
		return "location"
	case "PhotoURL":
		return "photoUrl"
	default:
		return strings.ToLower(field[:1]) + field[1:]
	}
}
