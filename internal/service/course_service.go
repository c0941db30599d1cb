package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/blocklearn/blocklearn-api/internal/models"
	appErrors "github.com/blocklearn/blocklearn-api/pkg/errors"
)

type courseRepository interface {
	List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error)
	FindByID(ctx context.Context, id string) (*models.Course, error)
	Create(ctx context.Context, course *models.Course) error
	Update(ctx context.Context, course *models.Course) error
	ListLessons(ctx context.Context, courseID string) ([]models.Lesson, error)
	FindLesson(ctx context.Context, id string) (*models.Lesson, error)
	AddLesson(ctx context.Context, lesson *models.Lesson) error
}

type enrollmentRepository interface {
	Create(ctx context.Context, enrollment *models.Enrollment) (bool, error)
	Exists(ctx context.Context, courseID, studentID string) (bool, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.Enrollment, error)
	UpsertProgress(ctx context.Context, progress *models.LessonProgress) error
	CourseProgress(ctx context.Context, courseID, studentID string) (*models.CourseProgress, error)
}

// CreateCourseRequest is the instructor course submission payload.
type CreateCourseRequest struct {
	Title       string  `json:"title" validate:"required,max=200"`
	Description string  `json:"description" validate:"required"`
	Level       string  `json:"level" validate:"required,oneof=BEGINNER INTERMEDIATE ADVANCED"`
	Category    string  `json:"category" validate:"required,max=100"`
	Price       float64 `json:"price" validate:"gte=0"`
	Published   bool    `json:"published"`
}

// AddLessonRequest appends a lesson to a course.
type AddLessonRequest struct {
	Title           string `json:"title" validate:"required,max=200"`
	VideoURL        string `json:"video_url" validate:"required,url"`
	DurationSeconds int    `json:"duration_seconds" validate:"gt=0"`
	Position        int    `json:"position" validate:"gte=0"`
}

// ProgressRequest records playback state for one lesson.
type ProgressRequest struct {
	PositionSeconds int  `json:"position_seconds" validate:"gte=0"`
	Completed       bool `json:"completed"`
}

// CourseService provides the course catalog, enrollments and lesson progress.
type CourseService struct {
	courses      courseRepository
	enrollments  enrollmentRepository
	transactions transactionWriter
	cache        *CacheService
	validator    *validator.Validate
	logger       *zap.Logger
	cacheTTL     time.Duration
}

// NewCourseService constructs a CourseService instance.
func NewCourseService(courses courseRepository, enrollments enrollmentRepository, transactions transactionWriter, cache *CacheService, validate *validator.Validate, logger *zap.Logger, cacheTTL time.Duration) *CourseService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &CourseService{
		courses:      courses,
		enrollments:  enrollments,
		transactions: transactions,
		cache:        cache,
		validator:    validate,
		logger:       logger,
		cacheTTL:     cacheTTL,
	}
}

type cachedCourseList struct {
	Courses []models.Course `json:"courses"`
	Total   int             `json:"total"`
}

// List returns published catalog entries. Unfiltered first pages are served
// from cache when available.
func (s *CourseService) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, *models.Pagination, error) {
	cacheable := s.cache != nil && s.cache.Enabled() && filter.Search == "" && filter.InstructorID == ""
	cacheKey := fmt.Sprintf("courses:list:%s:%s:%d:%d", filter.Category, filter.Level, filter.Page, filter.PageSize)

	if cacheable {
		var cached cachedCourseList
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
			return cached.Courses, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: cached.Total}, nil
		}
	}

	courses, total, err := s.courses.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}

	if cacheable {
		if err := s.cache.Set(ctx, cacheKey, cachedCourseList{Courses: courses, Total: total}, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache course list", zap.Error(err))
		}
	}
	return courses, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Get returns a course with its lessons.
func (s *CourseService) Get(ctx context.Context, id string) (*models.Course, error) {
	course, err := s.findCourse(ctx, id)
	if err != nil {
		return nil, err
	}
	lessons, err := s.courses.ListLessons(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list lessons")
	}
	course.Lessons = lessons
	return course, nil
}

// Create publishes a new course owned by the calling instructor.
func (s *CourseService) Create(ctx context.Context, instructorID string, req CreateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	course := &models.Course{
		InstructorID: instructorID,
		Title:        req.Title,
		Description:  req.Description,
		Level:        req.Level,
		Category:     req.Category,
		Price:        req.Price,
		Published:    req.Published,
	}
	if err := s.courses.Create(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course")
	}
	s.invalidateCatalog(ctx)
	s.logger.Info("course created", zap.String("course_id", course.ID), zap.String("instructor_id", instructorID))
	return course, nil
}

// Update applies changes to a course owned by the caller.
func (s *CourseService) Update(ctx context.Context, actor *models.JWTClaims, id string, req CreateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	course, err := s.findCourse(ctx, id)
	if err != nil {
		return nil, err
	}
	if course.InstructorID != actor.UserID && actor.Role != models.RoleAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not the course owner")
	}

	course.Title = req.Title
	course.Description = req.Description
	course.Level = req.Level
	course.Category = req.Category
	course.Price = req.Price
	course.Published = req.Published
	if err := s.courses.Update(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update course")
	}
	s.invalidateCatalog(ctx)
	return course, nil
}

// AddLesson appends a lesson to a course owned by the caller.
func (s *CourseService) AddLesson(ctx context.Context, actor *models.JWTClaims, courseID string, req AddLessonRequest) (*models.Lesson, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid lesson payload")
	}
	course, err := s.findCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if course.InstructorID != actor.UserID && actor.Role != models.RoleAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not the course owner")
	}

	lesson := &models.Lesson{
		CourseID:        courseID,
		Title:           req.Title,
		VideoURL:        req.VideoURL,
		DurationSeconds: req.DurationSeconds,
		Position:        req.Position,
	}
	if err := s.courses.AddLesson(ctx, lesson); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to add lesson")
	}
	s.invalidateCatalog(ctx)
	return lesson, nil
}

// Enroll registers a student on a course and records the payment ledger
// entry for paid courses.
func (s *CourseService) Enroll(ctx context.Context, studentID, courseID string) (*models.Enrollment, error) {
	course, err := s.findCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if !course.Published {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
	}

	enrollment := &models.Enrollment{CourseID: courseID, StudentID: studentID}
	created, err := s.enrollments.Create(ctx, enrollment)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enroll")
	}
	if !created {
		return nil, appErrors.Clone(appErrors.ErrAlreadyEnrolled, "already enrolled in this course")
	}

	if s.transactions != nil && course.Price > 0 {
		ledger := &models.Transaction{
			Type:        models.TransactionCourse,
			Status:      models.TransactionCompleted,
			PayerID:     studentID,
			PayeeID:     course.InstructorID,
			ReferenceID: enrollment.ID,
			Amount:      course.Price,
			Description: fmt.Sprintf("Course enrollment: %s", course.Title),
		}
		if err := s.transactions.Create(ctx, ledger); err != nil {
			s.logger.Error("failed to record enrollment transaction",
				zap.String("enrollment_id", enrollment.ID), zap.Error(err))
		}
	}

	s.logger.Info("student enrolled",
		zap.String("course_id", courseID), zap.String("student_id", studentID))
	return enrollment, nil
}

// MyEnrollments lists the courses the student is enrolled in.
func (s *CourseService) MyEnrollments(ctx context.Context, studentID string) ([]models.Enrollment, error) {
	enrollments, err := s.enrollments.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	return enrollments, nil
}

// RecordProgress stores playback state for an enrolled student.
func (s *CourseService) RecordProgress(ctx context.Context, studentID, lessonID string, req ProgressRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid progress payload")
	}
	lesson, err := s.courses.FindLesson(ctx, lessonID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "lesson not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch lesson")
	}
	enrolled, err := s.enrollments.Exists(ctx, lesson.CourseID, studentID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
	}
	if !enrolled {
		return appErrors.Clone(appErrors.ErrForbidden, "not enrolled in this course")
	}

	progress := &models.LessonProgress{
		LessonID:        lessonID,
		StudentID:       studentID,
		PositionSeconds: req.PositionSeconds,
		Completed:       req.Completed,
	}
	if err := s.enrollments.UpsertProgress(ctx, progress); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record progress")
	}
	return nil
}

// Progress returns the student's completion summary for a course.
func (s *CourseService) Progress(ctx context.Context, studentID, courseID string) (*models.CourseProgress, error) {
	enrolled, err := s.enrollments.Exists(ctx, courseID, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
	}
	if !enrolled {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not enrolled in this course")
	}
	progress, err := s.enrollments.CourseProgress(ctx, courseID, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute progress")
	}
	return progress, nil
}

func (s *CourseService) findCourse(ctx context.Context, id string) (*models.Course, error) {
	course, err := s.courses.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch course")
	}
	return course, nil
}

func (s *CourseService) invalidateCatalog(ctx context.Context) {
	if s.cache == nil || !s.cache.Enabled() {
		return
	}
	if err := s.cache.Invalidate(ctx, "courses:list:*"); err != nil {
		s.logger.Warn("failed to invalidate course cache", zap.Error(err))
	}
}
