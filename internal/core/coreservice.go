package core

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	_ "time/tzdata"

	"github.com/jo-hoe/agerestore/internal/backend/commandstructure"
	"github.com/jo-hoe/agerestore/internal/backend/database"
	"github.com/jo-hoe/agerestore/internal/journey"
	"github.com/jo-hoe/agerestore/internal/mail"
	"github.com/jo-hoe/agerestore/internal/uploadguard"

	// registers the photo commands in the default registry
	_ "github.com/jo-hoe/agerestore/internal/backend/commands"
)

type CoreService struct {
	config          *ServiceConfig
	databaseService database.DatabaseService
	admins          AdminSet
	mailer          mail.Mailer
	guard           uploadguard.Guard
	clock           func() time.Time
	defaultLocation *time.Location
	pipeline        *commandstructure.CommandInvoker
	avatarPipeline  *commandstructure.CommandInvoker
	thumbnailer     commandstructure.Command
}

type Option func(*CoreService)

func WithMailer(mailer mail.Mailer) Option {
	return func(s *CoreService) { s.mailer = mailer }
}

// WithClock replaces time.Now, mainly for tests
func WithClock(clock func() time.Time) Option {
	return func(s *CoreService) { s.clock = clock }
}

func WithUploadGuard(guard uploadguard.Guard) Option {
	return func(s *CoreService) { s.guard = guard }
}

func NewCoreService(config *ServiceConfig, opts ...Option) (*CoreService, error) {
	loc, err := time.LoadLocation(config.DefaultTimezone)
	if err != nil {
		return nil, fmt.Errorf("invalid default timezone: %w", err)
	}

	pipelineConfig := config.PhotoPipeline
	if len(pipelineConfig) == 0 {
		pipelineConfig = DefaultPhotoPipeline()
	}
	pipeline, err := commandstructure.NewCommandInvokerFromConfig(toCommandConfigs(pipelineConfig))
	if err != nil {
		return nil, fmt.Errorf("failed to build photo pipeline: %w", err)
	}
	avatarConfig := config.AvatarPipeline
	if len(avatarConfig) == 0 {
		avatarConfig = DefaultAvatarPipeline()
	}
	avatarPipeline, err := commandstructure.NewCommandInvokerFromConfig(toCommandConfigs(avatarConfig))
	if err != nil {
		return nil, fmt.Errorf("failed to build avatar pipeline: %w", err)
	}
	thumbnailWidth := config.ThumbnailWidth
	if thumbnailWidth <= 0 {
		thumbnailWidth = 240
	}
	thumbnailer, err := commandstructure.DefaultRegistry.Create("ThumbnailCommand", map[string]any{"width": thumbnailWidth})
	if err != nil {
		return nil, fmt.Errorf("failed to build thumbnail command: %w", err)
	}

	databaseService, err := getDatabaseService(config)
	if err != nil {
		return nil, err
	}

	service := &CoreService{
		config:          config,
		databaseService: databaseService,
		admins:          NewAdminSet(config.Admins),
		mailer:          mail.NewLogMailer(nil),
		guard:           uploadguard.NoopGuard{},
		clock:           time.Now,
		defaultLocation: loc,
		pipeline:        pipeline,
		avatarPipeline:  avatarPipeline,
		thumbnailer:     thumbnailer,
	}
	for _, opt := range opts {
		opt(service)
	}

	slog.Info("core service initialized",
		"admins", len(service.admins.Emails()),
		"default_timezone", loc.String(),
		"photo_pipeline", pipeline.Names(),
		"avatar_pipeline", avatarPipeline.Names())
	return service, nil
}

func getDatabaseService(config *ServiceConfig) (database.DatabaseService, error) {
	databaseService, err := database.NewDatabase(config.Database.Type, config.Database.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	slog.Info("database initialized successfully", "type", config.Database.Type)
	return databaseService, nil
}

func (s *CoreService) Close() error {
	return s.databaseService.Close()
}

func (s *CoreService) Admins() AdminSet {
	return s.admins
}

func (s *CoreService) IsAdmin(email string) bool {
	return s.admins.Contains(email)
}

// Location resolves an IANA timezone name, falling back to the configured default
func (s *CoreService) Location(name string) *time.Location {
	if name == "" {
		return s.defaultLocation
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		slog.Debug("unknown timezone, using default", "timezone", name, "error", err)
		return s.defaultLocation
	}
	return loc
}

// Today is the current calendar date in loc
func (s *CoreService) Today(loc *time.Location) journey.Date {
	if loc == nil {
		loc = s.defaultLocation
	}
	return journey.DateOf(s.clock().In(loc))
}

// notify sends mail without failing the calling operation
func (s *CoreService) notify(ctx context.Context, message mail.Message) {
	if len(message.To) == 0 {
		return
	}
	if err := s.mailer.Send(ctx, message); err != nil {
		slog.Warn("failed to send email", "subject", message.Subject, "error", err)
	}
}
