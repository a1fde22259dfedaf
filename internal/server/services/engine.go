// Package services contains the server-side business logic of the
// commission engine: the wallet ledger, the contract state machine, uploads,
// tickets, disputes and the expiration sweep. Every mutating operation runs
// in one unit of work obtained from the repository manager.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/commissions/internal/common"
	"github.com/dmitrijs2005/commissions/internal/logging"
	"github.com/dmitrijs2005/commissions/internal/server/config"
	"github.com/dmitrijs2005/commissions/internal/server/locks"
	"github.com/dmitrijs2005/commissions/internal/server/repositories/repomanager"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// FileStore persists an attachment and returns the URL stored with the record.
type FileStore interface {
	Store(ctx context.Context, data []byte, pathHint, contentType string) (string, error)
}

// AdminChecker answers whether a user holds the admin capability.
type AdminChecker interface {
	IsAdmin(ctx context.Context, userID string) (bool, error)
}

// Options are the engine policies taken from configuration.
type Options struct {
	ReviewWindow               time.Duration
	CounterWindow              time.Duration
	GraceWindow                time.Duration
	TicketResponseWindow       time.Duration
	PaymentWindow              time.Duration
	AllowConcurrentResolutions bool
	LapsePolicy                LapsePolicy
}

// OptionsFromConfig maps server configuration onto engine options.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	policy, err := LapsePolicyByName(cfg.LapsePolicy)
	if err != nil {
		return Options{}, err
	}
	return Options{
		ReviewWindow:               cfg.ReviewWindow,
		CounterWindow:              cfg.CounterWindow,
		GraceWindow:                cfg.GraceWindow,
		TicketResponseWindow:       cfg.TicketResponseWindow,
		PaymentWindow:              cfg.PaymentWindow,
		AllowConcurrentResolutions: cfg.AllowConcurrentResolutions,
		LapsePolicy:                policy,
	}, nil
}

// Deps wires the engine. Admins defaults to the users table with no
// allowlist, Locker to locks.Noop, Logger to logging.Nop and Now to time.Now.
type Deps struct {
	Repos   repomanager.RepositoryManager
	Files   FileStore
	Admins  AdminChecker
	Locker  locks.Locker
	Logger  logging.Logger
	Options Options
	Now     func() time.Time
}

type engine struct {
	repos    repomanager.RepositoryManager
	files    FileStore
	admins   AdminChecker
	locker   locks.Locker
	log      logging.Logger
	opts     Options
	now      func() time.Time
	newID    func() string
	validate *validator.Validate
}

// Services groups every service built on one engine.
type Services struct {
	Ledger      *LedgerService
	Contracts   *ContractService
	Uploads     *UploadService
	Tickets     *TicketService
	Resolutions *ResolutionService
	Reconciler  *ReconcileService
	Users       *UserService
}

// New builds all services around d.
func New(d Deps) *Services {
	e := &engine{
		repos:    d.Repos,
		files:    d.Files,
		admins:   d.Admins,
		locker:   d.Locker,
		log:      d.Logger,
		opts:     d.Options,
		now:      d.Now,
		newID:    uuid.NewString,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
	if e.admins == nil {
		e.admins = NewAdminChecker(d.Repos, nil)
	}
	if e.locker == nil {
		e.locker = locks.Noop{}
	}
	if e.log == nil {
		e.log = logging.Nop()
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.opts.LapsePolicy == nil {
		e.opts.LapsePolicy = FavorSubmitter
	}

	return &Services{
		Ledger:      &LedgerService{e},
		Contracts:   &ContractService{e},
		Uploads:     &UploadService{e},
		Tickets:     &TicketService{e},
		Resolutions: &ResolutionService{e},
		Reconciler:  &ReconcileService{e},
		Users:       &UserService{e},
	}
}

// check validates v against its struct tags.
func (e *engine) check(v any) error {
	err := e.validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, fe.Namespace()+":"+fe.Tag())
		}
		return fmt.Errorf("%w: %s", common.ErrorValidation, strings.Join(fields, ", "))
	}
	return fmt.Errorf("%w: %v", common.ErrorValidation, err)
}

func (e *engine) requireAdmin(ctx context.Context, userID string) error {
	ok, err := e.admins.IsAdmin(ctx, userID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("user %s is not an admin: %w", userID, common.ErrorUnauthorized)
	}
	return nil
}

// Attachment is an image sent with an upload or a dispute.
type Attachment struct {
	Name        string `json:"name"`
	ContentType string `json:"contentType" validate:"required"`
	Data        []byte `json:"data" validate:"required"`
}

// storeAttachments writes every attachment before any transaction starts
// and returns the stored URLs followed by the already hosted ones.
func (e *engine) storeAttachments(ctx context.Context, pathHint string, atts []Attachment, urls []string) ([]string, error) {
	out := make([]string, 0, len(atts)+len(urls))
	for _, a := range atts {
		if e.files == nil {
			return nil, fmt.Errorf("no file store configured: %w", common.ErrorInternal)
		}
		url, err := e.files.Store(ctx, a.Data, pathHint, a.ContentType)
		if err != nil {
			return nil, fmt.Errorf("store attachment %q: %w", a.Name, err)
		}
		out = append(out, url)
	}
	return append(out, urls...), nil
}
