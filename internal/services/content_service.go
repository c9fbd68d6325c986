package services

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/leadflow/internal/models"
	apperrors "github.com/charlesng35/leadflow/pkg/errors"
	"github.com/charlesng35/leadflow/pkg/logger"
)

// TestimonialInput is used for both create and full update of a testimonial.
type TestimonialInput struct {
	Name       string `json:"name" validate:"required,max=255"`
	Company    string `json:"company" validate:"omitempty,max=255"`
	Role       string `json:"role" validate:"omitempty,max=255"`
	Content    string `json:"content" validate:"required"`
	Rating     int    `json:"rating" validate:"min=1,max=5"`
	AvatarURL  string `json:"avatar_url" validate:"omitempty,url"`
	IsFeatured bool   `json:"is_featured"`
	IsApproved bool   `json:"is_approved"`
}

// ContentProjectInput is used for both create and full update of a project.
type ContentProjectInput struct {
	Title          string `json:"title" validate:"required,max=255"`
	Description    string `json:"description"`
	Category       string `json:"category" validate:"omitempty,max=64"`
	BeforeMediaURL string `json:"before_media_url"`
	AfterMediaURL  string `json:"after_media_url"`
	IsPublished    bool   `json:"is_published"`
	DisplayOrder   int    `json:"display_order" validate:"gte=0"`
}

// ContentService manages the marketing content shown on the public site:
// testimonials and before/after projects.
type ContentService struct {
	db  *gorm.DB
	log *zap.Logger
}

// NewContentService constructs a ContentService.
func NewContentService(db *gorm.DB) (*ContentService, error) {
	if db == nil {
		return nil, errors.New("content service: db is required")
	}
	return &ContentService{db: db, log: logger.WithModule("content")}, nil
}

// CreateTestimonial stores a testimonial. Rating must be between 1 and 5.
func (s *ContentService) CreateTestimonial(ctx context.Context, input TestimonialInput) (*models.Testimonial, error) {
	input = trimTestimonial(input)
	if err := validateInput(input); err != nil {
		return nil, err
	}

	testimonial := models.Testimonial{}
	applyTestimonial(&testimonial, input)
	if err := s.db.WithContext(ensureContext(ctx)).Create(&testimonial).Error; err != nil {
		return nil, storeError(s.log, "create testimonial", err)
	}
	return &testimonial, nil
}

// UpdateTestimonial replaces the editable fields of a testimonial.
func (s *ContentService) UpdateTestimonial(ctx context.Context, id string, input TestimonialInput) (*models.Testimonial, error) {
	ctx = ensureContext(ctx)
	input = trimTestimonial(input)
	if err := validateInput(input); err != nil {
		return nil, err
	}

	var testimonial models.Testimonial
	if err := s.db.WithContext(ctx).First(&testimonial, "id = ?", strings.TrimSpace(id)).Error; err != nil {
		return nil, storeError(s.log, "load testimonial", err)
	}
	applyTestimonial(&testimonial, input)
	if err := s.db.WithContext(ctx).Save(&testimonial).Error; err != nil {
		return nil, storeError(s.log, "update testimonial", err)
	}
	return &testimonial, nil
}

// ListTestimonials returns every testimonial, newest first.
func (s *ContentService) ListTestimonials(ctx context.Context) ([]models.Testimonial, error) {
	items := []models.Testimonial{}
	if err := s.db.WithContext(ensureContext(ctx)).Order("created_at DESC").Find(&items).Error; err != nil {
		return nil, storeError(s.log, "list testimonials", err)
	}
	return items, nil
}

// PublicTestimonials returns approved testimonials, featured ones first.
func (s *ContentService) PublicTestimonials(ctx context.Context) ([]models.Testimonial, error) {
	items := []models.Testimonial{}
	if err := s.db.WithContext(ensureContext(ctx)).
		Where("is_approved = ?", true).
		Order("is_featured DESC").
		Order("created_at DESC").
		Find(&items).Error; err != nil {
		return nil, storeError(s.log, "public testimonials", err)
	}
	return items, nil
}

// DeleteTestimonial removes a testimonial.
func (s *ContentService) DeleteTestimonial(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "testimonial", &models.Testimonial{}, id)
}

// CreateProject stores a content project.
func (s *ContentService) CreateProject(ctx context.Context, input ContentProjectInput) (*models.ContentProject, error) {
	input = trimProject(input)
	if err := validateInput(input); err != nil {
		return nil, err
	}

	project := models.ContentProject{}
	applyProject(&project, input)
	if err := s.db.WithContext(ensureContext(ctx)).Create(&project).Error; err != nil {
		return nil, storeError(s.log, "create project", err)
	}
	return &project, nil
}

// UpdateProject replaces the editable fields of a project.
func (s *ContentService) UpdateProject(ctx context.Context, id string, input ContentProjectInput) (*models.ContentProject, error) {
	ctx = ensureContext(ctx)
	input = trimProject(input)
	if err := validateInput(input); err != nil {
		return nil, err
	}

	var project models.ContentProject
	if err := s.db.WithContext(ctx).First(&project, "id = ?", strings.TrimSpace(id)).Error; err != nil {
		return nil, storeError(s.log, "load project", err)
	}
	applyProject(&project, input)
	if err := s.db.WithContext(ctx).Save(&project).Error; err != nil {
		return nil, storeError(s.log, "update project", err)
	}
	return &project, nil
}

// ListProjects returns every project in display order.
func (s *ContentService) ListProjects(ctx context.Context) ([]models.ContentProject, error) {
	return s.projects(ctx, false)
}

// PublicProjects returns published projects in display order.
func (s *ContentService) PublicProjects(ctx context.Context) ([]models.ContentProject, error) {
	return s.projects(ctx, true)
}

// DeleteProject removes a project.
func (s *ContentService) DeleteProject(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "project", &models.ContentProject{}, id)
}

func (s *ContentService) projects(ctx context.Context, publishedOnly bool) ([]models.ContentProject, error) {
	query := s.db.WithContext(ensureContext(ctx))
	if publishedOnly {
		query = query.Where("is_published = ?", true)
	}

	items := []models.ContentProject{}
	if err := query.Order("display_order ASC").Order("created_at DESC").Find(&items).Error; err != nil {
		return nil, storeError(s.log, "list projects", err)
	}
	return items, nil
}

func (s *ContentService) deleteByID(ctx context.Context, kind string, model any, id string) error {
	result := s.db.WithContext(ensureContext(ctx)).Where("id = ?", strings.TrimSpace(id)).Delete(model)
	if result.Error != nil {
		return storeError(s.log, "delete "+kind, result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func trimTestimonial(in TestimonialInput) TestimonialInput {
	in.Name = strings.TrimSpace(in.Name)
	in.Company = strings.TrimSpace(in.Company)
	in.Role = strings.TrimSpace(in.Role)
	in.Content = strings.TrimSpace(in.Content)
	in.AvatarURL = strings.TrimSpace(in.AvatarURL)
	return in
}

func applyTestimonial(t *models.Testimonial, in TestimonialInput) {
	t.Name = in.Name
	t.Company = in.Company
	t.Role = in.Role
	t.Content = in.Content
	t.Rating = in.Rating
	t.AvatarURL = in.AvatarURL
	t.IsFeatured = in.IsFeatured
	t.IsApproved = in.IsApproved
}

func trimProject(in ContentProjectInput) ContentProjectInput {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Category = strings.TrimSpace(in.Category)
	in.BeforeMediaURL = strings.TrimSpace(in.BeforeMediaURL)
	in.AfterMediaURL = strings.TrimSpace(in.AfterMediaURL)
	return in
}

func applyProject(p *models.ContentProject, in ContentProjectInput) {
	p.Title = in.Title
	p.Description = in.Description
	p.Category = in.Category
	p.BeforeMediaURL = in.BeforeMediaURL
	p.AfterMediaURL = in.AfterMediaURL
	p.IsPublished = in.IsPublished
	p.DisplayOrder = in.DisplayOrder
}
